package capture

import (
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestMotionDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	black := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer black.Close()
	white := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer white.Close()
	white.SetTo(gocv.NewScalar(255, 255, 255, 0))

	t.Run("first frame sets the baseline", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		detected, change := md.Detect(&black)
		if detected || change != 0 {
			t.Errorf("first frame detected=%v change=%f", detected, change)
		}
	})

	t.Run("identical frames are still", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		if detected, change := md.Detect(&black); detected {
			t.Errorf("identical frames detected motion, change=%f", change)
		}
	})

	t.Run("black to white is motion", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		detected, change := md.Detect(&white)
		if !detected || change < 50 {
			t.Errorf("expected motion, got detected=%v change=%f", detected, change)
		}
	})

	t.Run("reset drops the baseline", func(t *testing.T) {
		md := NewMotionDetector(1.0)
		defer md.Close()

		md.Detect(&black)
		md.Reset()
		if md.initialized || !md.prevGray.Empty() {
			t.Error("expected empty baseline after reset")
		}
		if detected, _ := md.Detect(&white); detected {
			t.Error("first frame after reset should not detect motion")
		}
	})
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(1.0)
	defer md.Close()

	md.SetThreshold(5.0)
	if md.threshold != 5.0 {
		t.Errorf("threshold = %f, want 5.0", md.threshold)
	}

	md.SetThreshold(-1.0)
	if md.threshold != 5.0 {
		t.Errorf("negative threshold should be ignored, got %f", md.threshold)
	}

	// Close multiple times should not panic
	md.Close()
	md.Close()
}

func TestPacer(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	p := NewPacer(DefaultPacerConfig())

	if p.FPS() != 5 || p.Active() {
		t.Fatalf("expected idle at 5 fps, got %d", p.FPS())
	}

	if fps := p.Observe(true, start); fps != 15 {
		t.Errorf("expected 15 fps on motion, got %d", fps)
	}
	if p.Interval() != time.Second/15 {
		t.Errorf("unexpected interval %v", p.Interval())
	}

	if fps := p.Observe(false, start.Add(time.Second)); fps != 15 {
		t.Errorf("expected to stay active within timeout, got %d", fps)
	}
	if fps := p.Observe(false, start.Add(3*time.Second)); fps != 5 {
		t.Errorf("expected idle after timeout, got %d", fps)
	}

	p.Observe(true, start.Add(4*time.Second))
	p.Reset()
	if p.Active() {
		t.Error("expected idle after reset")
	}
}

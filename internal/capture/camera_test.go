package capture

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewCamera(t *testing.T) {
	t.Run("zero config uses defaults", func(t *testing.T) {
		cam := NewCamera(Config{})

		if got := cam.FPS(); got != DefaultFPS {
			t.Errorf("FPS() = %d, want %d", got, DefaultFPS)
		}
		if cam.IsOpen() {
			t.Error("camera should not be running initially")
		}
	})

	t.Run("default config mirrors", func(t *testing.T) {
		cfg := DefaultConfig()
		if !cfg.Mirror || cfg.ProbeDevices != 5 {
			t.Errorf("unexpected defaults %+v", cfg)
		}
	})
}

func TestCamera_Candidates(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   []int
	}{
		{"default device first", Config{DeviceID: 0, ProbeDevices: 5}, []int{0, 1, 2, 3, 4}},
		{"configured device first", Config{DeviceID: 2, ProbeDevices: 5}, []int{2, 0, 1, 3, 4}},
		{"device outside probe range", Config{DeviceID: 7, ProbeDevices: 2}, []int{7, 0, 1}},
		{"probing disabled", Config{DeviceID: 1}, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam := NewCamera(tt.config).(*cameraImpl)
			if got := cam.candidates(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("candidates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	tests := []struct {
		name    string
		fps     int
		wantFPS int
	}{
		{"set to 10", 10, 10},
		{"set to 30", 30, 30},
		{"set to 0 should keep previous", 0, 30},
		{"set to negative should keep previous", -5, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cam.SetFPS(tt.fps)

			if got := cam.FPS(); got != tt.wantFPS {
				t.Errorf("FPS() = %d, want %d", got, tt.wantFPS)
			}
		})
	}
}

func TestCamera_SetMirror(t *testing.T) {
	cam := NewCamera(DefaultConfig()).(*cameraImpl)
	cam.SetMirror(false)
	if cam.mirror {
		t.Error("expected mirroring off")
	}
}

func TestCamera_OpenClose_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	cam := NewCamera(DefaultConfig())

	err := cam.Open()
	if err != nil {
		t.Skipf("skipping test - camera not available: %v", err)
	}

	if !cam.IsOpen() {
		t.Error("IsOpen() should return true after Open()")
	}

	mat, err := cam.ReadFrame()
	if err != nil {
		t.Errorf("ReadFrame() failed: %v", err)
	} else {
		if mat.Empty() {
			t.Error("ReadFrame() returned empty mat")
		}
		mat.Close()
	}

	if err := cam.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
	if cam.IsOpen() {
		t.Error("IsOpen() should return false after Close()")
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultConfig())

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() error = %v, want ErrCameraNotOpen", err)
	}

	// Close on not opened camera should not panic and return nil
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on not opened camera should return nil, got: %v", err)
	}
}

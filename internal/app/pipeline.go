package app

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/session"
)

// StartCamera opens the camera and starts the capture pipeline. Starting a
// running camera is a no-op.
func (a *App) StartCamera() (Status, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return Status{}, ErrClosed
	}
	if a.stopCh != nil {
		st := a.statusLocked()
		a.mu.Unlock()
		return st, nil
	}

	if err := a.camera.Open(); err != nil {
		st := a.statusLocked()
		a.mu.Unlock()
		return st, err
	}

	a.pacer.Reset()
	a.camera.SetFPS(a.pacer.FPS())
	a.metrics.GaugeCaptureFPS.Set(float64(a.pacer.FPS()))

	a.stopCh = make(chan struct{})
	a.pipelineDone = make(chan struct{})
	go a.runPipeline(a.stopCh, a.pipelineDone)

	st := a.statusLocked()
	a.mu.Unlock()

	log.Info("Capture pipeline started")
	a.subs.publish(st)
	return st, nil
}

// StopCamera stops the pipeline and closes the camera. Like switching the
// camera off by hand, it stops analysis and finishes the current set.
func (a *App) StopCamera() (Status, error) {
	a.mu.Lock()
	stopCh, done := a.stopCh, a.pipelineDone
	a.stopCh, a.pipelineDone = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return a.Status(), nil
	}

	// The pipeline takes a.mu per frame, so wait without holding it.
	close(stopCh)
	<-done

	if err := a.camera.Close(); err != nil {
		log.WithError(err).Warn("Error closing camera")
	}
	a.motion.Reset()
	a.clearJPEG()

	log.Info("Capture pipeline stopped")
	return a.update(func(c *session.Controller) error {
		c.StopAnalysis()
		c.Reset()
		return nil
	})
}

// CameraRunning reports whether the capture pipeline is running.
func (a *App) CameraRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopCh != nil
}

// LatestJPEG returns the newest captured frame as JPEG, or nil.
func (a *App) LatestJPEG() []byte {
	a.jpegMu.RLock()
	defer a.jpegMu.RUnlock()
	return a.jpeg
}

func (a *App) setJPEG(b []byte) {
	a.jpegMu.Lock()
	a.jpeg = b
	a.jpegMu.Unlock()
}

func (a *App) clearJPEG() {
	a.setJPEG(nil)
}

func (a *App) analyzing() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctrl.Analyzing()
}

// runPipeline reads frames until stopCh closes. Each frame:
//  1. motion detection picks the capture rate (idle or active)
//  2. the frame is encoded for the preview stream
//  3. while analysis is on, the detector finds the pose and the session
//     evaluates it
func (a *App) runPipeline(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.pacer.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			if errors.Is(err, capture.ErrEndOfFrames) {
				continue
			}
			log.WithError(err).Debug("Error reading frame")
			continue
		}

		prev := a.pacer.FPS()
		motion, _ := a.motion.Detect(frame)
		if fps := a.pacer.Observe(motion, a.config.Now()); fps != prev {
			a.camera.SetFPS(fps)
			ticker.Reset(a.pacer.Interval())
			a.metrics.GaugeCaptureFPS.Set(float64(fps))
			log.WithField("fps", fps).Debug("Capture rate changed")
		}

		if buf, err := gocv.IMEncode(".jpg", *frame); err == nil {
			a.setJPEG(append([]byte(nil), buf.GetBytes()...))
			buf.Close()
		}

		if !a.analyzing() {
			frame.Close()
			continue
		}

		pf, err := a.detector.Detect(frame)
		frame.Close()
		if err != nil {
			a.metrics.CounterDetectorErrors.Inc()
			log.WithError(err).Warn("Pose detection failed")
			continue
		}

		if _, err := a.ProcessFrame(pf); err != nil {
			return
		}
	}
}

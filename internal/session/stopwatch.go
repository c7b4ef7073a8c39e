package session

import (
	"fmt"
	"time"
)

// Stopwatch measures active workout time. It is paused while analysis is off.
type Stopwatch struct {
	now         func() time.Time
	running     bool
	startedAt   time.Time
	accumulated time.Duration
}

// NewStopwatch creates a paused stopwatch reading time from now.
func NewStopwatch(now func() time.Time) *Stopwatch {
	if now == nil {
		now = time.Now
	}
	return &Stopwatch{now: now}
}

// Start starts or resumes the stopwatch.
func (s *Stopwatch) Start() {
	if s.running {
		return
	}
	s.startedAt = s.now()
	s.running = true
}

// Pause stops the stopwatch, keeping the elapsed time.
func (s *Stopwatch) Pause() {
	if !s.running {
		return
	}
	s.accumulated += s.now().Sub(s.startedAt)
	s.running = false
}

// Reset zeroes the elapsed time. A running stopwatch keeps running from zero.
func (s *Stopwatch) Reset() {
	s.accumulated = 0
	if s.running {
		s.startedAt = s.now()
	}
}

// Running reports whether the stopwatch is running.
func (s *Stopwatch) Running() bool {
	return s.running
}

// Elapsed returns the total running time since the last reset.
func (s *Stopwatch) Elapsed() time.Duration {
	if s.running {
		return s.accumulated + s.now().Sub(s.startedAt)
	}
	return s.accumulated
}

// FormatElapsed renders d as mm:ss. Minutes are not wrapped into hours.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

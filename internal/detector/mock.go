package detector

import (
	"sync"

	"gocv.io/x/gocv"

	"github.com/ayusman/formcheck/internal/pose"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu       sync.Mutex
	frame    *pose.Frame
	sequence []*pose.Frame
	next     int
	err      error
	calls    int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetFrame sets the pose returned by every Detect call. Nil means no pose.
func (m *MockDetector) SetFrame(f *pose.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frame = f
	m.sequence = nil
}

// SetSequence makes Detect return the given poses in order, repeating the
// last one once the sequence is exhausted.
func (m *MockDetector) SetSequence(frames []*pose.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequence = frames
	m.next = 0
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Detect returns the pre-configured pose or error.
func (m *MockDetector) Detect(frame *gocv.Mat) (*pose.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.err != nil {
		return nil, m.err
	}
	if len(m.sequence) > 0 {
		f := m.sequence[m.next]
		if m.next < len(m.sequence)-1 {
			m.next++
		}
		return f.Clone(), nil
	}
	return m.frame.Clone(), nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

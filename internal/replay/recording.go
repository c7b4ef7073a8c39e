// Package replay evaluates recorded landmark sequences offline.
package replay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/pose"
)

// DefaultFPS is assumed when a recording does not state its frame rate.
const DefaultFPS = 15

// ErrEmptyRecording is returned for a recording without frames.
var ErrEmptyRecording = errors.New("recording has no frames")

// Recording is a landmark sequence. A nil frame is a frame without a pose.
type Recording struct {
	Movement movement.Type `json:"movement"`
	FPS      int           `json:"fps"`
	Frames   []*pose.Frame `json:"frames"`
}

// Decode reads one JSON recording.
func Decode(r io.Reader) (*Recording, error) {
	var rec Recording
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode recording: %w", err)
	}
	if err := rec.normalize(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// LoadFile reads a JSON recording from path.
func LoadFile(path string) (*Recording, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// FromRaw builds a recording from per-frame JSON, as kept by the store.
func FromRaw(t movement.Type, fps int, frames []json.RawMessage) (*Recording, error) {
	rec := &Recording{Movement: t, FPS: fps, Frames: make([]*pose.Frame, len(frames))}
	for i, raw := range frames {
		if err := json.Unmarshal(raw, &rec.Frames[i]); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
	}
	if err := rec.normalize(); err != nil {
		return nil, err
	}
	return rec, nil
}

// RawFrames encodes every frame separately.
func (r *Recording) RawFrames() ([]json.RawMessage, error) {
	raw := make([]json.RawMessage, len(r.Frames))
	for i, f := range r.Frames {
		data, err := json.Marshal(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		raw[i] = data
	}
	return raw, nil
}

func (r *Recording) normalize() error {
	if !r.Movement.Valid() {
		return fmt.Errorf("recording: %w", movement.ErrUnknownMovement)
	}
	if len(r.Frames) == 0 {
		return ErrEmptyRecording
	}
	if r.FPS <= 0 {
		r.FPS = DefaultFPS
	}
	return nil
}

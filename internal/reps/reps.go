// Package reps counts repetitions from a stream of form verdicts. A repetition
// is counted on every transition into a correct frame.
package reps

import (
	"fmt"

	"github.com/ayusman/formcheck/internal/movement"
)

// Phase records whether the previous frame was correct.
type Phase int

const (
	// Unset means no frame has been observed since the last reset.
	Unset Phase = iota
	NotCorrect
	Correct
)

func (p Phase) String() string {
	switch p {
	case Unset:
		return "unset"
	case NotCorrect:
		return "not_correct"
	case Correct:
		return "correct"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is the counter state. The zero value is the reset state.
type State struct {
	Count    int   `json:"count"`
	Previous Phase `json:"previous"`
}

// Next applies one frame to s. It returns the new state and whether the frame
// completed a repetition.
func Next(s State, correct bool) (State, bool) {
	counted := correct && s.Previous != Correct
	if counted {
		s.Count++
	}
	if correct {
		s.Previous = Correct
	} else {
		s.Previous = NotCorrect
	}
	return s, counted
}

// Observe applies a verdict to s. Incorrect and indeterminate verdicts both
// count as not correct.
func Observe(s State, v movement.Verdict) (State, bool) {
	return Next(s, v.IsCorrect())
}

// Reset returns the reset state.
func Reset() State {
	return State{}
}

// Counter is a mutable wrapper around State for callers that hold the state
// in one place.
type Counter struct {
	state State
}

// Observe applies a verdict and reports whether it completed a repetition.
func (c *Counter) Observe(v movement.Verdict) bool {
	var counted bool
	c.state, counted = Observe(c.state, v)
	return counted
}

// Count returns the number of repetitions since the last reset.
func (c *Counter) Count() int {
	return c.state.Count
}

// State returns the current state.
func (c *Counter) State() State {
	return c.state
}

// Reset clears the count and the previous phase.
func (c *Counter) Reset() {
	c.state = Reset()
}

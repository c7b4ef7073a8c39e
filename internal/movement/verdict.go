package movement

import (
	"fmt"
	"strings"
)

// Kind classifies a verdict.
type Kind int

const (
	// Indeterminate means the frame could not be judged.
	Indeterminate Kind = iota
	// Correct means every checked angle met its rule.
	Correct
	// Incorrect means at least one checked angle broke its rule.
	Incorrect
)

func (k Kind) String() string {
	switch k {
	case Correct:
		return "correct"
	case Incorrect:
		return "incorrect"
	case Indeterminate:
		return "indeterminate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind from its name.
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "correct":
		*k = Correct
	case "incorrect":
		*k = Incorrect
	case "indeterminate":
		*k = Indeterminate
	default:
		return fmt.Errorf("unknown verdict kind %q", text)
	}
	return nil
}

// Reason codes.
const (
	ReasonNoPose           = "no pose"
	ReasonLandmarksMissing = "landmarks missing"
	ReasonPositionUnclear  = "position unclear"
	ReasonLegWrong         = "leg wrong"
	ReasonTorsoWrong       = "torso wrong"
	ReasonBothWrong        = "both wrong"
	ReasonAngleWrong       = "angle wrong"
	ReasonFrontKneeWrong   = "front knee wrong"
	ReasonBackKneeWrong    = "back knee wrong"
)

// Verdict is the per-frame form classification.
type Verdict struct {
	Kind Kind `json:"kind"`
	// Reason is empty for correct verdicts.
	Reason string `json:"reason,omitempty"`
	// Region names the joint that made the frame indeterminate.
	Region string `json:"region,omitempty"`
	// Angles holds the measured angles in degrees by measure name.
	Angles map[string]float64 `json:"angles,omitempty"`
	// Top is set on correct verdicts of movements judged only at the top of the rep.
	Top bool `json:"top,omitempty"`
}

// IsCorrect reports whether the verdict is Correct.
func (v Verdict) IsCorrect() bool {
	return v.Kind == Correct
}

// Text returns the status line shown to the user.
func (v Verdict) Text() string {
	switch v.Kind {
	case Correct:
		if v.Top {
			return "CORRECT (TOP)"
		}
		return "CORRECT"
	case Incorrect:
		if v.Reason == ReasonBothWrong {
			return "LEG & TORSO WRONG"
		}
		return strings.ToUpper(v.Reason)
	default:
		if v.Reason == "" {
			return "Position unclear"
		}
		return strings.ToUpper(v.Reason[:1]) + v.Reason[1:]
	}
}

func correct(angles map[string]float64, top bool) Verdict {
	return Verdict{Kind: Correct, Angles: angles, Top: top}
}

func incorrect(reason string, angles map[string]float64) Verdict {
	return Verdict{Kind: Incorrect, Reason: reason, Angles: angles}
}

// NoPose is the verdict for a frame in which no person was detected.
func NoPose() Verdict {
	return Verdict{Kind: Indeterminate, Reason: ReasonNoPose}
}

func indeterminate(reason, region string) Verdict {
	return Verdict{Kind: Indeterminate, Reason: reason, Region: region}
}

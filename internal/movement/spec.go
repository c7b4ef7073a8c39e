package movement

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/ayusman/formcheck/internal/pose"
)

// ErrInvalidSpec is returned when a movement spec cannot be used for analysis.
var ErrInvalidSpec = errors.New("invalid movement spec")

// DefaultTolerance is the allowed deviation in degrees from a target angle.
const DefaultTolerance = 20.0

// Comparison selects how the primary angle is checked against the target.
type Comparison int

const (
	// Within requires target-tolerance <= angle <= target+tolerance.
	Within Comparison = iota
	// AtMost requires angle <= target+tolerance.
	AtMost
	// AtLeast requires angle >= target-tolerance.
	AtLeast
)

func (c Comparison) String() string {
	switch c {
	case Within:
		return "within"
	case AtMost:
		return "at_most"
	case AtLeast:
		return "at_least"
	default:
		return fmt.Sprintf("Comparison(%d)", int(c))
	}
}

// MarshalText encodes the comparison by name.
func (c Comparison) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a comparison from its name.
func (c *Comparison) UnmarshalText(text []byte) error {
	for _, v := range []Comparison{Within, AtMost, AtLeast} {
		if v.String() == string(text) {
			*c = v
			return nil
		}
	}
	return fmt.Errorf("unknown comparison %q", text)
}

// Measurement names.
const (
	MeasureKnee      = "knee"
	MeasureTorso     = "torso"
	MeasureElbow     = "elbow"
	MeasureFrontKnee = "front_knee"
	MeasureBackKnee  = "back_knee"
)

// Measure is a named joint angle read from each frame.
type Measure struct {
	Name   string      `json:"name"`
	Joints pose.Triple `json:"joints"`
}

// Spec is the immutable form rule for one movement.
type Spec struct {
	Type     Type      `json:"type"`
	Measures []Measure `json:"measures"`

	// Target is the ideal primary angle in degrees.
	Target float64 `json:"target"`
	// SecondaryTarget is the back knee target for lunges.
	SecondaryTarget float64 `json:"secondary_target,omitempty"`
	// Tolerance is the allowed deviation in degrees for every comparison.
	Tolerance float64 `json:"tolerance"`
	// MinTorso is the smallest acceptable torso angle for squats.
	MinTorso float64 `json:"min_torso,omitempty"`

	Comparison Comparison `json:"comparison"`
	// TopPhaseOnly marks movements that only recognise the top of the rep.
	TopPhaseOnly bool `json:"top_phase_only"`
}

var (
	leftKnee  = pose.Triple{A: pose.LeftHip, B: pose.LeftKnee, C: pose.LeftAnkle}
	rightKnee = pose.Triple{A: pose.RightHip, B: pose.RightKnee, C: pose.RightAnkle}
	leftTorso = pose.Triple{A: pose.LeftShoulder, B: pose.LeftHip, C: pose.LeftKnee}
	leftElbow = pose.Triple{A: pose.LeftShoulder, B: pose.LeftElbow, C: pose.LeftWrist}
)

// DefaultSpec returns the built-in rule for t using the given tolerance.
func DefaultSpec(t Type, tolerance float64) (Spec, error) {
	var s Spec
	switch t {
	case Squat:
		s = Spec{
			Measures: []Measure{
				{Name: MeasureKnee, Joints: leftKnee},
				{Name: MeasureTorso, Joints: leftTorso},
			},
			Target:   90,
			MinTorso: 70,
		}
	case PushUp:
		s = Spec{
			Measures: []Measure{{Name: MeasureElbow, Joints: leftElbow}},
			Target:   90,
		}
	case Lunge:
		s = Spec{
			Measures: []Measure{
				{Name: MeasureFrontKnee, Joints: leftKnee},
				{Name: MeasureBackKnee, Joints: rightKnee},
			},
			Target:          90,
			SecondaryTarget: 90,
		}
	case BicepCurl:
		s = Spec{
			Measures:     []Measure{{Name: MeasureElbow, Joints: leftElbow}},
			Target:       30,
			Comparison:   AtMost,
			TopPhaseOnly: true,
		}
	case ShoulderPress:
		s = Spec{
			Measures:     []Measure{{Name: MeasureElbow, Joints: leftElbow}},
			Target:       170,
			Comparison:   AtLeast,
			TopPhaseOnly: true,
		}
	default:
		return Spec{}, fmt.Errorf("%w: %d", ErrUnknownMovement, int(t))
	}
	s.Type = t
	s.Tolerance = tolerance
	return s, nil
}

// Validate reports every problem that would make the spec unusable.
func (s Spec) Validate() error {
	var problems []string

	if !s.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown type %d", int(s.Type)))
	}
	if len(s.Measures) == 0 {
		problems = append(problems, "no measures")
	}
	for _, m := range s.Measures {
		tr := m.Joints
		if !tr.A.Valid() || !tr.B.Valid() || !tr.C.Valid() {
			problems = append(problems, fmt.Sprintf("measure %q uses unknown joints", m.Name))
		}
	}
	if !angleInRange(s.Target) {
		problems = append(problems, fmt.Sprintf("target %.1f outside (0, 180]", s.Target))
	}
	if !finite(s.Tolerance) || s.Tolerance <= 0 {
		problems = append(problems, fmt.Sprintf("tolerance %.1f must be positive", s.Tolerance))
	}
	switch s.Type {
	case Squat:
		if !angleInRange(s.MinTorso) {
			problems = append(problems, fmt.Sprintf("min torso %.1f outside (0, 180]", s.MinTorso))
		}
		if len(s.Measures) != 2 {
			problems = append(problems, "squat needs knee and torso measures")
		}
	case Lunge:
		if !angleInRange(s.SecondaryTarget) {
			problems = append(problems, fmt.Sprintf("secondary target %.1f outside (0, 180]", s.SecondaryTarget))
		}
		if len(s.Measures) != 2 {
			problems = append(problems, "lunge needs front and back knee measures")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalidSpec, s.Type, strings.Join(problems, "; "))
	}
	return nil
}

// Joints returns every joint the spec reads, without duplicates, in measure order.
func (s Spec) Joints() []pose.Joint {
	seen := make(map[pose.Joint]bool)
	var joints []pose.Joint
	for _, m := range s.Measures {
		for _, j := range m.Joints.Joints() {
			if !seen[j] {
				seen[j] = true
				joints = append(joints, j)
			}
		}
	}
	return joints
}

func (s Spec) clone() Spec {
	c := s
	c.Measures = append([]Measure(nil), s.Measures...)
	return c
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// angleInRange reports whether deg is a finite angle in (0, 180].
func angleInRange(deg float64) bool {
	return finite(deg) && deg > 0 && deg <= 180
}

func within(angle, target, tolerance float64) bool {
	return angle >= target-tolerance && angle <= target+tolerance
}

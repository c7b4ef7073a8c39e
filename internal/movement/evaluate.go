package movement

import (
	"strings"

	"github.com/ayusman/formcheck/internal/pose"
)

// Evaluate classifies a single frame against spec. A nil frame means no pose
// was detected. Evaluate never panics; missing or unreliable landmarks yield
// an Indeterminate verdict that names the affected joint.
func Evaluate(frame *pose.Frame, spec Spec) Verdict {
	if frame == nil {
		return NoPose()
	}

	for _, j := range spec.Joints() {
		if _, ok := frame.Landmark(j); !ok {
			return indeterminate(ReasonLandmarksMissing, j.String())
		}
	}

	angles := make(map[string]float64, len(spec.Measures))
	for _, m := range spec.Measures {
		deg, ok := frame.Angle(m.Joints)
		if !ok {
			return indeterminate(ReasonPositionUnclear, unclearRegion(frame, m.Joints))
		}
		angles[m.Name] = deg
	}

	switch spec.Type {
	case Squat:
		return evaluateSquat(spec, angles)
	case PushUp, BicepCurl, ShoulderPress:
		return evaluateElbow(spec, angles)
	case Lunge:
		return evaluateLunge(spec, angles)
	default:
		return indeterminate(ReasonPositionUnclear, "")
	}
}

// unclearRegion names the first hidden joint of t, or the vertex when every
// joint is visible but the geometry is degenerate.
func unclearRegion(frame *pose.Frame, t pose.Triple) string {
	for _, j := range t.Joints() {
		if l, _ := frame.Landmark(j); !l.Visible() {
			return j.String()
		}
	}
	return t.B.String()
}

func evaluateSquat(spec Spec, angles map[string]float64) Verdict {
	legOK := within(angles[MeasureKnee], spec.Target, spec.Tolerance)
	torsoOK := angles[MeasureTorso] >= spec.MinTorso

	switch {
	case legOK && torsoOK:
		return correct(angles, false)
	case !legOK && !torsoOK:
		return incorrect(ReasonBothWrong, angles)
	case !legOK:
		return incorrect(ReasonLegWrong, angles)
	default:
		return incorrect(ReasonTorsoWrong, angles)
	}
}

func evaluateElbow(spec Spec, angles map[string]float64) Verdict {
	elbow := angles[MeasureElbow]

	var ok bool
	switch spec.Comparison {
	case AtMost:
		ok = elbow <= spec.Target+spec.Tolerance
	case AtLeast:
		ok = elbow >= spec.Target-spec.Tolerance
	default:
		ok = within(elbow, spec.Target, spec.Tolerance)
	}

	if !ok {
		return incorrect(ReasonAngleWrong, angles)
	}
	return correct(angles, spec.TopPhaseOnly)
}

func evaluateLunge(spec Spec, angles map[string]float64) Verdict {
	frontOK := within(angles[MeasureFrontKnee], spec.Target, spec.Tolerance)
	backOK := within(angles[MeasureBackKnee], spec.SecondaryTarget, spec.Tolerance)
	if frontOK && backOK {
		return correct(angles, false)
	}

	var failed []string
	if !frontOK {
		failed = append(failed, "front knee")
	}
	if !backOK {
		failed = append(failed, "back knee")
	}
	return incorrect(strings.Join(failed, " & ")+" wrong", angles)
}

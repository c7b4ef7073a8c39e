package session

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/pose/posetest"
	"github.com/ayusman/formcheck/internal/reps"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time           { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newController(t *testing.T, typ movement.Type, opts ...Option) *Controller {
	t.Helper()
	rules, err := movement.NewRuleSet(movement.DefaultConfig())
	if err != nil {
		t.Fatalf("rule set: %v", err)
	}
	c, err := New(rules, typ, opts...)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	return c
}

func TestController_SustainedSquat(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()

	for i := 0; i < 3; i++ {
		s := c.Process(posetest.Squat(90, 80))
		if !s.Correct || s.Verdict == nil || s.Verdict.Kind != movement.Correct {
			t.Fatalf("frame %d: expected correct, got %+v", i+1, s)
		}
		if s.Count != 1 {
			t.Errorf("frame %d: expected count 1, got %d", i+1, s.Count)
		}
	}
}

func TestController_TorsoWrongLeavesCount(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()

	s := c.Process(posetest.Squat(90, 50))
	if s.Verdict.Reason != movement.ReasonTorsoWrong {
		t.Errorf("expected torso wrong, got %q", s.Verdict.Reason)
	}
	if s.Text != "TORSO WRONG" || s.Correct {
		t.Errorf("unexpected status %+v", s)
	}
	if s.Count != 0 {
		t.Errorf("expected count 0, got %d", s.Count)
	}
}

func TestController_HiddenHip(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()

	c.Process(posetest.Squat(130, 80))
	frame := posetest.Squat(90, 80)
	hip, _ := frame.Landmark(pose.LeftHip)
	hip.Visibility = 0.3
	frame.Set(pose.LeftHip, hip)

	s := c.Process(frame)
	if s.Verdict.Kind != movement.Indeterminate {
		t.Fatalf("expected indeterminate, got %s", s.Verdict.Kind)
	}
	if s.Count != 0 {
		t.Errorf("expected no increment, got %d", s.Count)
	}
	if c.Counter().Previous != reps.NotCorrect {
		t.Errorf("expected previous not_correct, got %s", c.Counter().Previous)
	}
}

func TestController_SwitchMovementResetsCount(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()

	c.Process(posetest.Squat(90, 80))
	c.Process(posetest.Squat(150, 80))
	c.Process(posetest.Squat(90, 80))
	if c.Count() != 2 {
		t.Fatalf("expected count 2, got %d", c.Count())
	}

	if err := c.SelectMovement("Push-up"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if c.Count() != 0 {
		t.Errorf("expected count 0 after switch, got %d", c.Count())
	}
	if c.Counter().Previous != reps.Unset {
		t.Errorf("expected previous unset, got %s", c.Counter().Previous)
	}
	if c.Movement() != movement.PushUp {
		t.Errorf("expected push-up, got %s", c.Movement())
	}

	s := c.Status()
	if s.Text != "Push-up waiting..." {
		t.Errorf("expected waiting text, got %q", s.Text)
	}
}

func TestController_SelectSameMovementResets(t *testing.T) {
	c := newController(t, movement.BicepCurl)
	c.StartAnalysis()
	c.Process(posetest.Arm(25))

	if err := c.SelectMovement("bicep-curl"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if c.Count() != 0 {
		t.Errorf("expected count 0, got %d", c.Count())
	}
}

func TestController_UnknownMovement(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()
	c.Process(posetest.Squat(90, 80))

	err := c.SelectMovement("deadlift")
	if !errors.Is(err, movement.ErrUnknownMovement) {
		t.Fatalf("expected ErrUnknownMovement, got %v", err)
	}
	if c.Movement() != movement.Squat || c.Count() != 1 {
		t.Errorf("failed selection changed the session: %s %d", c.Movement(), c.Count())
	}
}

func TestController_Gate(t *testing.T) {
	c := newController(t, movement.BicepCurl)

	s := c.Process(posetest.Arm(25))
	if s.Count != 0 || s.Verdict != nil {
		t.Errorf("frame processed while analysis off: %+v", s)
	}
	if s.Text != TextStartAnalysis {
		t.Errorf("expected %q, got %q", TextStartAnalysis, s.Text)
	}

	c.StartAnalysis()
	if s := c.Status(); s.Text != "Bicep Curl waiting..." {
		t.Errorf("expected waiting text, got %q", s.Text)
	}
	s = c.Process(posetest.Arm(25))
	if s.Count != 1 || s.Text != "CORRECT (TOP)" {
		t.Errorf("unexpected status %+v", s)
	}

	c.StopAnalysis()
	c.Process(posetest.Arm(60))
	c.Process(posetest.Arm(25))
	s = c.Status()
	if s.Count != 1 {
		t.Errorf("expected count to stay 1 while stopped, got %d", s.Count)
	}
	if s.Text != TextAnalysisStopped || s.Analyzing {
		t.Errorf("unexpected stopped status %+v", s)
	}

	if !c.ToggleAnalysis() {
		t.Error("expected toggle to start analysis")
	}
	if c.ToggleAnalysis() {
		t.Error("expected toggle to stop analysis")
	}
}

func TestController_CurlScenario(t *testing.T) {
	c := newController(t, movement.BicepCurl)
	c.StartAnalysis()

	if s := c.Process(posetest.Arm(25)); s.Verdict.Kind != movement.Correct {
		t.Errorf("expected correct at 25 degrees, got %s", s.Verdict.Kind)
	}
	s := c.Process(posetest.Arm(60))
	if s.Verdict.Kind != movement.Incorrect || s.Verdict.Reason != movement.ReasonAngleWrong {
		t.Errorf("expected angle wrong at 60 degrees, got %s %q", s.Verdict.Kind, s.Verdict.Reason)
	}
}

func TestController_Stopwatch(t *testing.T) {
	clock := newFakeClock()
	c := newController(t, movement.Squat, WithClock(clock.Now))

	clock.Advance(time.Minute)
	if c.Elapsed() != 0 {
		t.Errorf("stopwatch ran before analysis: %v", c.Elapsed())
	}

	c.StartAnalysis()
	clock.Advance(30 * time.Second)
	c.StopAnalysis()
	clock.Advance(time.Hour)
	if c.Elapsed() != 30*time.Second {
		t.Errorf("expected 30s, got %v", c.Elapsed())
	}

	c.StartAnalysis()
	clock.Advance(15 * time.Second)
	if got := c.Status().Clock; got != "00:45" {
		t.Errorf("expected 00:45, got %s", got)
	}

	c.Reset()
	if c.Elapsed() != 0 {
		t.Errorf("expected 0 after reset, got %v", c.Elapsed())
	}
	clock.Advance(5 * time.Second)
	if c.Elapsed() != 5*time.Second {
		t.Errorf("expected running stopwatch to restart from zero, got %v", c.Elapsed())
	}
}

func TestController_Reset(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()
	c.Process(posetest.Squat(90, 80))

	c.Reset()
	first := c.Counter()
	c.Reset()
	if c.Counter() != first || first != (reps.State{}) {
		t.Errorf("reset not idempotent: %+v then %+v", first, c.Counter())
	}
	if s := c.Status(); s.Verdict != nil || s.Text != "Squat waiting..." {
		t.Errorf("unexpected status after reset %+v", s)
	}
}

func TestController_Events(t *testing.T) {
	clock := newFakeClock()
	var repEvents []RepEvent
	var formEvents []FormEvent
	var sets []SetSummary

	c := newController(t, movement.Squat,
		WithClock(clock.Now),
		OnRep(func(e RepEvent) { repEvents = append(repEvents, e) }),
		OnFormBroken(func(e FormEvent) { formEvents = append(formEvents, e) }),
		OnSetFinished(func(s SetSummary) { sets = append(sets, s) }),
	)
	c.StartAnalysis()

	c.Process(posetest.Squat(90, 80))
	clock.Advance(2 * time.Second)
	c.Process(posetest.Squat(90, 50))
	clock.Advance(2 * time.Second)
	c.Process(posetest.Squat(90, 80))
	c.Process(nil)
	c.Process(posetest.Squat(130, 80))

	if len(repEvents) != 2 || repEvents[1].Count != 2 {
		t.Errorf("expected 2 rep events, got %+v", repEvents)
	}
	if len(formEvents) != 1 || formEvents[0].Verdict.Reason != movement.ReasonTorsoWrong {
		t.Errorf("expected 1 form event, got %+v", formEvents)
	}

	c.Reset()
	if len(sets) != 1 {
		t.Fatalf("expected 1 finished set, got %d", len(sets))
	}
	if sets[0].Reps != 2 || sets[0].Movement != movement.Squat || sets[0].Duration != 4*time.Second {
		t.Errorf("unexpected set %+v", sets[0])
	}
	if sets[0].FinishedAt.Sub(sets[0].StartedAt) != 4*time.Second {
		t.Errorf("unexpected set bounds %v to %v", sets[0].StartedAt, sets[0].FinishedAt)
	}

	c.Reset()
	if err := c.SelectMovement("lunge"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(sets) != 1 {
		t.Errorf("empty sets must not be reported, got %d", len(sets))
	}
}

func TestController_SetRules(t *testing.T) {
	c := newController(t, movement.Squat)
	c.StartAnalysis()
	c.Process(posetest.Squat(100, 80))

	strict, err := c.Rules().WithOverride(movement.Squat, movement.Override{Tolerance: ptr(5)})
	if err != nil {
		t.Fatalf("override: %v", err)
	}
	if err := c.SetRules(strict); err != nil {
		t.Fatalf("set rules: %v", err)
	}
	if c.Count() != 1 {
		t.Errorf("expected count kept, got %d", c.Count())
	}
	if s := c.Process(posetest.Squat(100, 80)); s.Correct {
		t.Error("expected stricter rule to apply")
	}
	if c.Spec().Tolerance != 5 {
		t.Errorf("expected tolerance 5, got %f", c.Spec().Tolerance)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(nil, movement.Squat); err == nil {
		t.Error("expected error for nil rule set")
	}
	rules, _ := movement.NewRuleSet(movement.DefaultConfig())
	if _, err := New(rules, movement.Type(0)); !errors.Is(err, movement.ErrUnknownMovement) {
		t.Errorf("expected ErrUnknownMovement, got %v", err)
	}
}

func ptr(v float64) *float64 { return &v }

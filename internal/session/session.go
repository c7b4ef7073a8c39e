// Package session composes movement evaluation and repetition counting into a
// workout session with an analysis gate, a stopwatch and set boundaries.
//
// A Controller is not safe for concurrent use. Callers that drive it from
// several goroutines must serialise access.
package session

import (
	"fmt"
	"time"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/reps"
)

// Idle status texts.
const (
	TextStartAnalysis   = "Start analysis"
	TextAnalysisStopped = "Analysis stopped"
)

// WaitingText is shown while analysing before the first frame is judged.
func WaitingText(t movement.Type) string {
	return fmt.Sprintf("%s waiting...", t)
}

// Status is the snapshot handed to the presentation layer after each frame.
type Status struct {
	Movement  movement.Type     `json:"movement"`
	Analyzing bool              `json:"analyzing"`
	Text      string            `json:"text"`
	Correct   bool              `json:"correct"`
	Count     int               `json:"count"`
	Verdict   *movement.Verdict `json:"verdict,omitempty"`
	Elapsed   time.Duration     `json:"elapsed_ns"`
	Clock     string            `json:"elapsed"`
}

// RepEvent is emitted each time a repetition is counted.
type RepEvent struct {
	Movement movement.Type    `json:"movement"`
	Count    int              `json:"count"`
	Verdict  movement.Verdict `json:"verdict"`
	At       time.Time        `json:"at"`
}

// FormEvent is emitted when a correct position turns incorrect.
type FormEvent struct {
	Movement movement.Type    `json:"movement"`
	Verdict  movement.Verdict `json:"verdict"`
	At       time.Time        `json:"at"`
}

// SetSummary describes a finished set of at least one repetition.
type SetSummary struct {
	Movement   movement.Type `json:"movement"`
	Reps       int           `json:"reps"`
	Duration   time.Duration `json:"duration_ns"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the time source used for the stopwatch and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// OnRep registers a callback for counted repetitions.
func OnRep(fn func(RepEvent)) Option {
	return func(c *Controller) { c.onRep = fn }
}

// OnFormBroken registers a callback for correct to incorrect transitions.
func OnFormBroken(fn func(FormEvent)) Option {
	return func(c *Controller) { c.onFormBroken = fn }
}

// OnSetFinished registers a callback for finished sets.
func OnSetFinished(fn func(SetSummary)) Option {
	return func(c *Controller) { c.onSetFinished = fn }
}

// Controller owns the session state: the selected movement, the analysis
// gate, the repetition counter and the stopwatch.
type Controller struct {
	rules    *movement.RuleSet
	movement movement.Type
	spec     movement.Spec

	analyzing bool
	stopped   bool
	counter   reps.State
	verdict   *movement.Verdict
	watch     *Stopwatch
	setStart  time.Time

	now           func() time.Time
	onRep         func(RepEvent)
	onFormBroken  func(FormEvent)
	onSetFinished func(SetSummary)
}

// New creates a controller with analysis off and the given movement selected.
func New(rules *movement.RuleSet, initial movement.Type, opts ...Option) (*Controller, error) {
	if rules == nil {
		return nil, fmt.Errorf("session: nil rule set")
	}
	spec, err := rules.Spec(initial)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		rules:    rules,
		movement: initial,
		spec:     spec,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.watch = NewStopwatch(c.now)
	return c, nil
}

// Movement returns the selected movement.
func (c *Controller) Movement() movement.Type {
	return c.movement
}

// Spec returns the rule of the selected movement.
func (c *Controller) Spec() movement.Spec {
	return c.spec
}

// Rules returns the rule set in use.
func (c *Controller) Rules() *movement.RuleSet {
	return c.rules
}

// SelectMovement selects a movement by name. Unknown names fail without
// touching the session. Any selection, including the current movement,
// resets the counter and the stopwatch.
func (c *Controller) SelectMovement(name string) error {
	t, err := movement.ParseType(name)
	if err != nil {
		return err
	}
	return c.SetMovement(t)
}

// SetMovement selects t and resets the counter and the stopwatch.
func (c *Controller) SetMovement(t movement.Type) error {
	spec, err := c.rules.Spec(t)
	if err != nil {
		return err
	}
	c.finishSet()
	c.movement = t
	c.spec = spec
	c.clear()
	return nil
}

// SetRules replaces the rule set. The counter is kept so a tolerance change
// mid-set does not lose repetitions.
func (c *Controller) SetRules(rules *movement.RuleSet) error {
	spec, err := rules.Spec(c.movement)
	if err != nil {
		return err
	}
	c.rules = rules
	c.spec = spec
	return nil
}

// StartAnalysis opens the analysis gate and resumes the stopwatch.
func (c *Controller) StartAnalysis() {
	if c.analyzing {
		return
	}
	c.analyzing = true
	c.stopped = false
	c.verdict = nil
	if c.setStart.IsZero() {
		c.setStart = c.now()
	}
	c.watch.Start()
}

// StopAnalysis closes the analysis gate and pauses the stopwatch.
func (c *Controller) StopAnalysis() {
	if !c.analyzing {
		return
	}
	c.analyzing = false
	c.stopped = true
	c.watch.Pause()
}

// ToggleAnalysis flips the analysis gate and returns the new state.
func (c *Controller) ToggleAnalysis() bool {
	if c.analyzing {
		c.StopAnalysis()
	} else {
		c.StartAnalysis()
	}
	return c.analyzing
}

// Analyzing reports whether frames are being evaluated.
func (c *Controller) Analyzing() bool {
	return c.analyzing
}

// Reset zeroes the counter and the stopwatch, finishing the current set.
func (c *Controller) Reset() {
	c.finishSet()
	c.clear()
}

func (c *Controller) clear() {
	c.counter = reps.Reset()
	c.verdict = nil
	c.watch.Reset()
	c.setStart = time.Time{}
	if c.analyzing {
		c.setStart = c.now()
	}
}

func (c *Controller) finishSet() {
	if c.counter.Count == 0 || c.onSetFinished == nil {
		return
	}
	finished := c.now()
	started := c.setStart
	if started.IsZero() {
		started = finished.Add(-c.watch.Elapsed())
	}
	c.onSetFinished(SetSummary{
		Movement:   c.movement,
		Reps:       c.counter.Count,
		Duration:   c.watch.Elapsed(),
		StartedAt:  started,
		FinishedAt: finished,
	})
}

// Process evaluates one frame. A nil frame means no pose was detected. While
// analysis is off the frame is ignored and the current status is returned.
func (c *Controller) Process(frame *pose.Frame) Status {
	if !c.analyzing {
		return c.Status()
	}

	v := movement.Evaluate(frame, c.spec)
	wasCorrect := c.counter.Previous == reps.Correct

	var counted bool
	c.counter, counted = reps.Observe(c.counter, v)
	c.verdict = &v

	if counted && c.onRep != nil {
		c.onRep(RepEvent{Movement: c.movement, Count: c.counter.Count, Verdict: v, At: c.now()})
	}
	if wasCorrect && v.Kind == movement.Incorrect && c.onFormBroken != nil {
		c.onFormBroken(FormEvent{Movement: c.movement, Verdict: v, At: c.now()})
	}

	return c.Status()
}

// Count returns the repetitions counted since the last reset.
func (c *Controller) Count() int {
	return c.counter.Count
}

// Counter returns the raw counter state.
func (c *Controller) Counter() reps.State {
	return c.counter
}

// Elapsed returns the stopwatch reading.
func (c *Controller) Elapsed() time.Duration {
	return c.watch.Elapsed()
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	elapsed := c.watch.Elapsed()
	s := Status{
		Movement:  c.movement,
		Analyzing: c.analyzing,
		Count:     c.counter.Count,
		Elapsed:   elapsed,
		Clock:     FormatElapsed(elapsed),
	}

	switch {
	case c.analyzing && c.verdict != nil:
		v := *c.verdict
		s.Verdict = &v
		s.Text = v.Text()
		s.Correct = v.IsCorrect()
	case c.analyzing:
		s.Text = WaitingText(c.movement)
	case c.stopped:
		s.Text = TextAnalysisStopped
	default:
		s.Text = TextStartAnalysis
	}
	return s
}

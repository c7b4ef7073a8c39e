package replay

import (
	"context"
	"time"

	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/session"
)

// Result summarizes one replay.
type Result struct {
	Movement      movement.Type  `json:"movement"`
	Frames        int            `json:"frames"`
	Reps          int            `json:"reps"`
	Correct       int            `json:"correct"`
	Incorrect     int            `json:"incorrect"`
	Indeterminate int            `json:"indeterminate"`
	Reasons       map[string]int `json:"reasons"`
	RepFrames     []int          `json:"rep_frames"`
	Duration      time.Duration  `json:"duration_ns"`
}

// Option tunes Run.
type Option func(*options)

type options struct {
	movement movement.Type
	onFrame  func(i int, st session.Status)
}

// WithMovement evaluates the frames against t instead of the recorded movement.
func WithMovement(t movement.Type) Option {
	return func(o *options) { o.movement = t }
}

// OnFrame is called after every evaluated frame.
func OnFrame(fn func(i int, st session.Status)) Option {
	return func(o *options) { o.onFrame = fn }
}

// Run feeds every frame through a fresh session with analysis on. Time
// advances by one frame interval per frame, so Duration reflects the
// recording rather than the wall clock.
func Run(ctx context.Context, rules *movement.RuleSet, rec *Recording, opts ...Option) (Result, error) {
	o := options{movement: rec.Movement}
	for _, opt := range opts {
		opt(&o)
	}

	fps := rec.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}
	step := time.Second / time.Duration(fps)
	now := time.Unix(0, 0).UTC()
	clock := func() time.Time { return now }

	res := Result{Movement: o.movement, Reasons: map[string]int{}}
	frame := 0

	ctrl, err := session.New(rules, o.movement,
		session.WithClock(clock),
		session.OnRep(func(session.RepEvent) {
			res.RepFrames = append(res.RepFrames, frame)
		}),
	)
	if err != nil {
		return res, err
	}
	ctrl.StartAnalysis()

	for i, f := range rec.Frames {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		frame = i

		st := ctrl.Process(f)
		res.Frames++
		if v := st.Verdict; v != nil {
			switch v.Kind {
			case movement.Correct:
				res.Correct++
			case movement.Incorrect:
				res.Incorrect++
			default:
				res.Indeterminate++
			}
			if v.Reason != "" {
				res.Reasons[v.Reason]++
			}
		}
		if o.onFrame != nil {
			o.onFrame(i, st)
		}
		now = now.Add(step)
	}

	res.Reps = ctrl.Count()
	res.Duration = ctrl.Elapsed()
	return res, nil
}

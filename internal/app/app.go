// Package app wires the camera, pose detector, session controller, store and
// cue plugins into the running form-check application.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/capture"
	"github.com/ayusman/formcheck/internal/detector"
	"github.com/ayusman/formcheck/internal/metrics"
	"github.com/ayusman/formcheck/internal/movement"
	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/pose"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// TextStartCamera is shown while the camera is off and analysis is stopped.
const TextStartCamera = "Start camera"

// settingMovement keeps the last selected movement across restarts.
const settingMovement = "movement"

// ErrClosed is returned by operations on a closed App.
var ErrClosed = errors.New("app closed")

// Config holds configuration options for the application. Nil collaborators
// get defaults: a real camera, the MediaPipe detector (or a mock when it is
// unavailable), and metrics on a private registry.
type Config struct {
	Store    *store.Store
	Rules    movement.Config
	Movement movement.Type

	Camera          capture.Camera
	CameraConfig    capture.Config
	Pacer           capture.PacerConfig
	MotionThreshold float64

	Detector       detector.Detector
	DetectorConfig detector.Config

	PluginDir     string
	PluginTimeout time.Duration

	Metrics *metrics.Manager
	Now     func() time.Time
}

// Status is the session status plus application state.
type Status struct {
	session.Status
	Camera bool `json:"camera"`
}

// App is the main application. The session controller is not safe for
// concurrent use, so every access goes through mu.
type App struct {
	config  Config
	mu      sync.Mutex
	ctrl    *session.Controller
	metrics *metrics.Manager

	camera   capture.Camera
	motion   *capture.MotionDetector
	pacer    *capture.Pacer
	detector detector.Detector

	pluginMgr  *plugin.Manager
	pluginExec *plugin.Executor

	// pipeline
	stopCh       chan struct{}
	pipelineDone chan struct{}
	jpegMu       sync.RWMutex
	jpeg         []byte

	// events
	events    chan event
	ctx       context.Context
	cancel    context.CancelFunc
	workerWg  sync.WaitGroup
	closed    bool
	closeOnce sync.Once

	subs *broadcaster
}

// New creates the App. Stored overrides and the last selected movement are
// loaded from the store when one is configured.
func New(config Config) (*App, error) {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Pacer.ActiveFPS <= 0 || config.Pacer.IdleFPS <= 0 {
		config.Pacer = capture.DefaultPacerConfig()
	}
	if config.MotionThreshold <= 0 {
		config.MotionThreshold = 1.0
	}
	if config.Rules.Tolerance == 0 {
		config.Rules.Tolerance = movement.DefaultTolerance
	}
	if !config.Movement.Valid() {
		config.Movement = movement.Squat
	}

	m := config.Metrics
	if m == nil {
		m = metrics.NewManager("formcheck", "app", prometheus.NewRegistry())
	}

	a := &App{
		config:     config,
		metrics:    m,
		motion:     capture.NewMotionDetector(config.MotionThreshold),
		pacer:      capture.NewPacer(config.Pacer),
		pluginMgr:  plugin.NewManager(config.PluginDir),
		pluginExec: plugin.NewExecutor(config.PluginTimeout),
		events:     make(chan event, eventBuffer),
		subs:       newBroadcaster(),
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())

	initial := config.Movement
	if err := a.loadStored(&config.Rules, &initial); err != nil {
		log.WithError(err).Warn("Failed to load stored settings")
	}

	rules, err := movement.NewRuleSet(config.Rules)
	if err != nil {
		a.motion.Close()
		return nil, err
	}

	ctrl, err := session.New(rules, initial,
		session.WithClock(config.Now),
		session.OnRep(func(e session.RepEvent) { a.emit(event{rep: &e}) }),
		session.OnFormBroken(func(e session.FormEvent) { a.emit(event{form: &e}) }),
		session.OnSetFinished(func(s session.SetSummary) { a.emit(event{set: &s}) }),
	)
	if err != nil {
		a.motion.Close()
		return nil, err
	}
	a.ctrl = ctrl

	a.camera = config.Camera
	if a.camera == nil {
		a.camera = capture.NewCamera(config.CameraConfig)
	}

	a.detector = config.Detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.DetectorConfig); err == nil {
			a.detector = mp
			log.Info("Using MediaPipe pose detection")
		} else {
			log.Warnf("MediaPipe not available (%v), using mock detector", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.workerWg.Add(1)
	go a.runEvents()

	return a, nil
}

// loadStored merges stored overrides into rules and restores the last movement.
func (a *App) loadStored(rules *movement.Config, initial *movement.Type) error {
	st := a.config.Store
	if st == nil {
		return nil
	}

	overrides, err := st.Overrides().List()
	if err != nil {
		return err
	}
	if len(overrides) > 0 {
		merged := make(map[movement.Type]movement.Override, len(rules.Overrides)+len(overrides))
		for t, o := range rules.Overrides {
			merged[t] = o
		}
		for _, o := range overrides {
			t, err := movement.ParseType(o.Movement)
			if err != nil {
				log.WithField("movement", o.Movement).Warn("Ignoring override for unknown movement")
				continue
			}
			merged[t] = fromStoreOverride(o)
		}
		rules.Overrides = merged
	}

	name, err := st.Settings().Get(settingMovement)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if t, err := movement.ParseType(name); err == nil {
		*initial = t
	}
	return nil
}

// DiscoverPlugins scans the plugin directory and loads available plugins.
func (a *App) DiscoverPlugins() error {
	return a.pluginMgr.Discover()
}

// PluginManager returns the plugin manager.
func (a *App) PluginManager() *plugin.Manager {
	return a.pluginMgr
}

// Store returns the configured store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Metrics returns the metrics manager.
func (a *App) Metrics() *metrics.Manager {
	return a.metrics
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	return a.detector
}

// Status returns the current snapshot.
func (a *App) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusLocked()
}

func (a *App) statusLocked() Status {
	st := Status{Status: a.ctrl.Status(), Camera: a.stopCh != nil}
	if !st.Camera && !st.Analyzing {
		st.Text = TextStartCamera
	}
	return st
}

// update runs fn under the lock, then publishes the resulting status.
func (a *App) update(fn func(c *session.Controller) error) (Status, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return Status{}, ErrClosed
	}
	err := fn(a.ctrl)
	st := a.statusLocked()
	a.mu.Unlock()

	if err == nil {
		a.metrics.GaugeAnalyzing.Set(boolGauge(st.Analyzing))
		a.metrics.GaugeCurrentSetRep.Set(float64(st.Count))
		a.subs.publish(st)
	}
	return st, err
}

// StartAnalysis opens the analysis gate.
func (a *App) StartAnalysis() (Status, error) {
	return a.update(func(c *session.Controller) error {
		c.StartAnalysis()
		return nil
	})
}

// StopAnalysis closes the analysis gate.
func (a *App) StopAnalysis() (Status, error) {
	return a.update(func(c *session.Controller) error {
		c.StopAnalysis()
		return nil
	})
}

// ToggleAnalysis flips the analysis gate.
func (a *App) ToggleAnalysis() (Status, error) {
	return a.update(func(c *session.Controller) error {
		c.ToggleAnalysis()
		return nil
	})
}

// Reset zeroes the counter and the stopwatch, finishing the current set.
func (a *App) Reset() (Status, error) {
	return a.update(func(c *session.Controller) error {
		c.Reset()
		return nil
	})
}

// SelectMovement selects a movement by name and remembers it in the store.
func (a *App) SelectMovement(name string) (Status, error) {
	st, err := a.update(func(c *session.Controller) error {
		return c.SelectMovement(name)
	})
	if err != nil {
		return st, err
	}

	if s := a.config.Store; s != nil {
		if err := s.Settings().Set(settingMovement, st.Movement.Slug()); err != nil {
			log.WithError(err).Warn("Failed to persist selected movement")
		}
	}
	return st, nil
}

// Rules returns the rule set in use.
func (a *App) Rules() *movement.RuleSet {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ctrl.Rules()
}

// UpdateMovement replaces the override of t. A zero override restores the
// built-in rule. Invalid overrides are rejected and change nothing.
func (a *App) UpdateMovement(t movement.Type, o movement.Override) (movement.Spec, error) {
	var spec movement.Spec
	_, err := a.update(func(c *session.Controller) error {
		rules, err := c.Rules().WithOverride(t, o)
		if err != nil {
			return err
		}
		if err := c.SetRules(rules); err != nil {
			return err
		}
		spec, err = rules.Spec(t)
		return err
	})
	if err != nil {
		return spec, err
	}

	if s := a.config.Store; s != nil {
		if o.IsZero() {
			err = s.Overrides().Delete(t.Slug())
			if errors.Is(err, store.ErrNotFound) {
				err = nil
			}
		} else {
			err = s.Overrides().Upsert(toStoreOverride(t, o))
		}
		if err != nil {
			log.WithError(err).WithField("movement", t).Warn("Failed to persist override")
		}
	}
	return spec, nil
}

// ProcessFrame evaluates one frame. A nil frame means no pose was detected.
func (a *App) ProcessFrame(f *pose.Frame) (Status, error) {
	start := time.Now()
	st, err := a.update(func(c *session.Controller) error {
		if c.Analyzing() {
			a.metrics.CounterFrames.WithLabelValues(c.Movement().Slug()).Inc()
		}
		c.Process(f)
		return nil
	})
	if err != nil {
		return st, err
	}

	if v := st.Verdict; v != nil && st.Analyzing {
		a.metrics.CounterVerdicts.WithLabelValues(st.Movement.Slug(), v.Kind.String()).Inc()
		a.metrics.HistFrameDuration.Observe(time.Since(start).Seconds())
	}
	return st, nil
}

// Subscribe returns a channel of status updates and a function that ends
// the subscription. Slow subscribers only see the latest status.
func (a *App) Subscribe() (<-chan Status, func()) {
	ch, cancel := a.subs.subscribe()
	a.metrics.GaugeSubscribers.Set(float64(a.subs.count()))
	return ch, func() {
		cancel()
		a.metrics.GaugeSubscribers.Set(float64(a.subs.count()))
	}
}

// Close stops the camera, finishes the current set and releases resources.
func (a *App) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.StopCamera()

		a.mu.Lock()
		a.ctrl.Reset()
		a.closed = true
		a.mu.Unlock()

		close(a.events)
		a.workerWg.Wait()
		a.cancel()

		a.subs.close()
		a.motion.Close()
		if a.detector != nil {
			err = a.detector.Close()
		}
	})
	return err
}

func fromStoreOverride(o *store.Override) movement.Override {
	return movement.Override{
		Target:          o.Target,
		SecondaryTarget: o.SecondaryTarget,
		Tolerance:       o.Tolerance,
		MinTorso:        o.MinTorso,
	}
}

func toStoreOverride(t movement.Type, o movement.Override) *store.Override {
	return &store.Override{
		Movement:        t.Slug(),
		Target:          o.Target,
		SecondaryTarget: o.SecondaryTarget,
		Tolerance:       o.Tolerance,
		MinTorso:        o.MinTorso,
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

package app

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/plugin"
	"github.com/ayusman/formcheck/internal/session"
	"github.com/ayusman/formcheck/internal/store"
)

// eventBuffer bounds the hook queue; the frame loop never waits on it.
const eventBuffer = 64

// event carries exactly one of the session hooks.
type event struct {
	rep  *session.RepEvent
	form *session.FormEvent
	set  *session.SetSummary
}

func (e event) name() string {
	switch {
	case e.rep != nil:
		return store.EventRep
	case e.form != nil:
		return store.EventFormBroken
	default:
		return store.EventSetFinished
	}
}

// emit queues e. It is called with a.mu held and must not block.
func (a *App) emit(e event) {
	select {
	case a.events <- e:
	default:
		log.WithField("event", e.name()).Warn("Event queue full, dropping event")
	}
}

// runEvents handles queued events until the queue is closed.
func (a *App) runEvents() {
	defer a.workerWg.Done()
	for e := range a.events {
		a.handleEvent(e)
	}
}

func (a *App) handleEvent(e event) {
	var req plugin.Request
	switch {
	case e.rep != nil:
		a.metrics.CounterReps.WithLabelValues(e.rep.Movement.Slug()).Inc()
		log.WithFields(log.Fields{"movement": e.rep.Movement, "count": e.rep.Count}).Debug("Rep counted")
		req = plugin.Request{Event: store.EventRep, Movement: e.rep.Movement.String(), Count: e.rep.Count}

	case e.form != nil:
		log.WithFields(log.Fields{"movement": e.form.Movement, "reason": e.form.Verdict.Reason}).Debug("Form broken")
		req = plugin.Request{Event: store.EventFormBroken, Movement: e.form.Movement.String()}
		req.Params, _ = json.Marshal(map[string]string{"reason": e.form.Verdict.Reason})

	case e.set != nil:
		a.metrics.CounterSets.WithLabelValues(e.set.Movement.Slug()).Inc()
		log.WithFields(log.Fields{
			"movement": e.set.Movement,
			"reps":     e.set.Reps,
			"duration": e.set.Duration,
		}).Info("Set finished")
		a.saveSet(e.set)
		req = plugin.Request{Event: store.EventSetFinished, Movement: e.set.Movement.String(), Count: e.set.Reps}
	}

	a.dispatchCues(e, req)
}

func (a *App) saveSet(s *session.SetSummary) {
	st := a.config.Store
	if st == nil {
		return
	}
	ws := &store.WorkoutSet{
		Movement:   s.Movement.Slug(),
		Reps:       s.Reps,
		Duration:   s.Duration,
		StartedAt:  s.StartedAt,
		FinishedAt: s.FinishedAt,
	}
	if err := st.Sets().Create(ws); err != nil {
		log.WithError(err).Error("Failed to save set")
	}
}

// dispatchCues runs every enabled cue bound to the event and movement.
func (a *App) dispatchCues(e event, req plugin.Request) {
	st := a.config.Store
	if st == nil {
		return
	}

	slug := ""
	switch {
	case e.rep != nil:
		slug = e.rep.Movement.Slug()
	case e.form != nil:
		slug = e.form.Movement.Slug()
	case e.set != nil:
		slug = e.set.Movement.Slug()
	}

	cues, err := st.Cues().ListForEvent(req.Event, slug)
	if err != nil {
		log.WithError(err).Error("Failed to load cues")
		return
	}

	for _, cue := range cues {
		a.runCue(cue, req)
	}
}

func (a *App) runCue(cue *store.Cue, req plugin.Request) {
	logger := log.WithFields(log.Fields{"cue": cue.ID, "plugin": cue.PluginName, "action": cue.ActionName})

	p, err := a.pluginMgr.Get(cue.PluginName)
	if err != nil {
		logger.WithError(err).Warn("Cue plugin unavailable")
		a.metrics.CounterCues.WithLabelValues(req.Event, "missing").Inc()
		return
	}
	if !p.Manifest.HasAction(cue.ActionName) {
		logger.Warn("Cue action not offered by plugin")
		a.metrics.CounterCues.WithLabelValues(req.Event, "missing").Inc()
		return
	}

	req.Action = cue.ActionName
	req.Config = cue.Config

	resp, err := a.pluginExec.Execute(a.ctx, p, &req)
	switch {
	case err != nil:
		logger.WithError(err).Warn("Cue plugin failed")
		a.metrics.CounterCues.WithLabelValues(req.Event, "error").Inc()
	case !resp.Success:
		logger.WithField("error", resp.Error).Warn("Cue plugin reported failure")
		a.metrics.CounterCues.WithLabelValues(req.Event, "error").Inc()
	default:
		a.metrics.CounterCues.WithLabelValues(req.Event, "ok").Inc()
	}
}

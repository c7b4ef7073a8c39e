// Package tray provides a system tray interface for formcheck: camera and
// analysis toggles, the movement picker and the live rep count.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/formcheck/internal/app"
	"github.com/ayusman/formcheck/internal/movement"
)

// Controller is the part of the application the tray drives.
type Controller interface {
	Status() app.Status
	Subscribe() (<-chan app.Status, func())
	StartCamera() (app.Status, error)
	StopCamera() (app.Status, error)
	ToggleAnalysis() (app.Status, error)
	Reset() (app.Status, error)
	SelectMovement(name string) (app.Status, error)
}

// Tray represents the system tray application.
type Tray struct {
	ctrl       Controller
	onSettings func()
	onQuit     func()
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuCamera    *systray.MenuItem
	menuAnalysis  *systray.MenuItem
	menuStatus    *systray.MenuItem
	menuCount     *systray.MenuItem
	menuMovements map[movement.Type]*systray.MenuItem
}

// New creates a new Tray driving ctrl.
func New(ctrl Controller) *Tray {
	return &Tray{ctrl: ctrl}
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit ends Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("formcheck")
	systray.SetTooltip("formcheck exercise form checker")

	t.mu.Lock()
	t.menuCamera = systray.AddMenuItem("Start camera", "Start or stop the camera")
	t.menuAnalysis = systray.AddMenuItem("Start analysis", "Start or stop form analysis")
	menuReset := systray.AddMenuItem("Reset", "Reset the counter and the timer")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem("", "Current form")
	t.menuStatus.Disable()
	t.menuCount = systray.AddMenuItem("", "Repetitions and active time")
	t.menuCount.Disable()
	systray.AddSeparator()

	menuMovement := systray.AddMenuItem("Movement", "Select the exercise")
	t.menuMovements = make(map[movement.Type]*systray.MenuItem, len(movement.Types()))
	for _, m := range movement.Types() {
		t.menuMovements[m] = menuMovement.AddSubMenuItemCheckbox(m.String(), "Check "+m.String(), false)
	}
	systray.AddSeparator()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	menuQuit := systray.AddMenuItem("Quit", "Quit formcheck")
	t.mu.Unlock()

	t.SetStatus(t.ctrl.Status())

	updates, cancel := t.ctrl.Subscribe()
	go func() {
		for st := range updates {
			t.SetStatus(st)
		}
	}()

	for m, item := range t.menuMovements {
		go func(m movement.Type, item *systray.MenuItem) {
			for range item.ClickedCh {
				t.run("select movement", func() (app.Status, error) {
					return t.ctrl.SelectMovement(m.Slug())
				})
			}
		}(m, item)
	}

	go func() {
		for {
			select {
			case <-t.menuCamera.ClickedCh:
				t.handleCamera()
			case <-t.menuAnalysis.ClickedCh:
				t.run("toggle analysis", t.ctrl.ToggleAnalysis)
			case <-menuReset.ClickedCh:
				t.run("reset", t.ctrl.Reset)
			case <-menuSettings.ClickedCh:
				t.handleSettings()
			case <-menuQuit.ClickedCh:
				cancel()
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleCamera() {
	if t.ctrl.Status().Camera {
		t.run("stop camera", t.ctrl.StopCamera)
		return
	}
	t.run("start camera", t.ctrl.StartCamera)
}

// run calls op and shows its status. Errors are logged.
func (t *Tray) run(name string, op func() (app.Status, error)) {
	st, err := op()
	if err != nil {
		log.WithError(err).Warnf("Tray: %s failed", name)
		return
	}
	t.SetStatus(st)
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetStatus updates the menu from st.
func (t *Tray) SetStatus(st app.Status) {
	l := labelsFor(st)

	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuCamera == nil {
		return
	}
	systray.SetTitle(l.title)
	t.menuCamera.SetTitle(l.camera)
	t.menuAnalysis.SetTitle(l.analysis)
	t.menuStatus.SetTitle(l.status)
	t.menuCount.SetTitle(l.count)
	for m, item := range t.menuMovements {
		if m == st.Movement {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

type labels struct {
	title    string
	camera   string
	analysis string
	status   string
	count    string
}

func labelsFor(st app.Status) labels {
	l := labels{
		title:    "formcheck",
		camera:   "Start camera",
		analysis: "Start analysis",
		status:   st.Text,
		count:    fmt.Sprintf("%s: %d reps  %s", st.Movement, st.Count, st.Clock),
	}
	if st.Camera {
		l.camera = "Stop camera"
	}
	if st.Analyzing {
		l.analysis = "Stop analysis"
		mark := "○"
		if st.Correct {
			mark = "●"
		}
		l.title = fmt.Sprintf("%s %d", mark, st.Count)
	}
	return l
}

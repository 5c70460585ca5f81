// Package tray provides a system tray interface for the RepCoach squat coach.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/workout"
)

// Tray represents the system tray application.
type Tray struct {
	onCalibrate func()
	onCancel    func()
	onStart     func()
	onDashboard func()
	onQuit      func()
	mu          sync.RWMutex

	ready bool
	last  view

	// Menu items stored for later updates
	menuState     *systray.MenuItem
	menuProgress  *systray.MenuItem
	menuFeedback  *systray.MenuItem
	menuCalibrate *systray.MenuItem
	menuCancel    *systray.MenuItem
	menuStart     *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnCalibrate sets the callback for the Calibrate menu item.
func (t *Tray) OnCalibrate(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCalibrate = fn
}

// OnCancelCalibration sets the callback for the Cancel Calibration menu item.
func (t *Tray) OnCancelCalibration(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCancel = fn
}

// OnStart sets the callback for the Start Workout menu item.
func (t *Tray) OnStart(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnDashboard sets the callback for the Open Dashboard menu item. The item
// is hidden when no callback is set.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray event loop.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("RepCoach")
	systray.SetTooltip("RepCoach Squat Coach")

	t.mu.Lock()
	t.menuState = systray.AddMenuItem("Idle", "Coaching state")
	t.menuState.Disable()
	t.menuProgress = systray.AddMenuItem("", "Workout progress")
	t.menuProgress.Disable()
	t.menuFeedback = systray.AddMenuItem("", "Latest feedback")
	t.menuFeedback.Disable()
	systray.AddSeparator()

	t.menuCalibrate = systray.AddMenuItem("Calibrate", "Measure your squat depth")
	t.menuCancel = systray.AddMenuItem("Cancel Calibration", "Stop calibrating and keep the depth so far")
	t.menuStart = systray.AddMenuItem("Start Workout", "Start the configured sets and reps")
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the live view in a browser")
	if t.onDashboard == nil {
		menuDashboard.Hide()
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit RepCoach")
	t.ready = true
	last := t.last
	t.mu.Unlock()

	t.render(last)

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuCalibrate.ClickedCh:
				t.call(func() func() { return t.onCalibrate })
			case <-t.menuCancel.ClickedCh:
				t.call(func() func() { return t.onCancel })
			case <-t.menuStart.ClickedCh:
				t.call(func() func() { return t.onStart })
			case <-menuDashboard.ClickedCh:
				t.call(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
	t.mu.Lock()
	t.ready = false
	t.mu.Unlock()
}

// call runs the callback chosen by pick outside the lock.
func (t *Tray) call(pick func() func()) {
	t.mu.RLock()
	callback := pick()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.call(func() func() { return t.onQuit })
	systray.Quit()
}

// Update refreshes the menu from a status snapshot. It is safe to call
// before the tray is ready; the latest view is applied once it is.
func (t *Tray) Update(snap app.Snapshot) {
	v := viewOf(snap)

	t.mu.Lock()
	if v == t.last {
		t.mu.Unlock()
		return
	}
	t.last = v
	ready := t.ready
	t.mu.Unlock()

	if ready {
		t.render(v)
	}
}

// Watch applies every snapshot from updates until the channel closes.
func (t *Tray) Watch(updates <-chan app.Snapshot) {
	for snap := range updates {
		t.Update(snap)
	}
}

func (t *Tray) render(v view) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if !t.ready {
		return
	}

	systray.SetTitle(v.title)
	t.menuState.SetTitle(v.state)
	setOptional(t.menuProgress, v.progress)
	setOptional(t.menuFeedback, v.feedback)
	setEnabled(t.menuCalibrate, v.canCalibrate)
	setEnabled(t.menuCancel, v.canCancel)
	setEnabled(t.menuStart, v.canStart)
}

func setOptional(item *systray.MenuItem, title string) {
	if title == "" {
		item.Hide()
		return
	}
	item.SetTitle(title)
	item.Show()
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

// view is the tray's rendering of a snapshot.
type view struct {
	title        string
	state        string
	progress     string
	feedback     string
	canCalibrate bool
	canCancel    bool
	canStart     bool
}

func viewOf(snap app.Snapshot) view {
	v := view{
		title:        "RepCoach",
		feedback:     snap.Feedback,
		canCalibrate: snap.CanCalibrate,
		canCancel:    snap.State == workout.StateCalibrating,
		canStart:     snap.CanStart,
	}

	switch snap.State {
	case workout.StateIdle:
		v.state = "Not calibrated"
	case workout.StateCalibrating:
		v.state = fmt.Sprintf("Calibrating (%d)", snap.CalibrationRemaining)
		v.title = fmt.Sprintf("RepCoach %d", snap.CalibrationRemaining)
	case workout.StateReady:
		v.state = fmt.Sprintf("Ready, depth %.0f°", snap.Threshold)
		v.progress = fmt.Sprintf("Plan: %d x %d", snap.Plan.Sets, snap.Plan.RepsPerSet)
	case workout.StateActive:
		v.state = "Working"
		v.progress = snap.Info
		v.title = fmt.Sprintf("RepCoach %d/%d", snap.RepCount, snap.Plan.RepsPerSet)
	case workout.StateResting:
		v.state = fmt.Sprintf("Resting %ds", snap.RestRemaining)
		v.progress = snap.Info
		v.title = fmt.Sprintf("RepCoach rest %ds", snap.RestRemaining)
	case workout.StateComplete:
		v.state = "Workout complete"
		v.progress = fmt.Sprintf("%d sets done", snap.Plan.Sets)
	default:
		v.state = string(snap.State)
	}

	if !snap.PoseDetected && (snap.State == workout.StateActive || snap.State == workout.StateCalibrating) {
		v.title += " ?"
	}
	return v
}

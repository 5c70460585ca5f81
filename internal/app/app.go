// Package app wires camera, pose detection, the coaching session, speech
// and persistence into one frame loop.
package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/store"
	"github.com/ayusman/repcoach/internal/workout"
)

// DefaultTickInterval is the frame loop period.
const DefaultTickInterval = 10 * time.Millisecond

// frameInterest is how long after the last LatestFrame call annotated
// frames keep being encoded.
const frameInterest = 2 * time.Second

// ErrClosed is returned by actions issued after Close.
var ErrClosed = errors.New("app is closed")

// Speaker queues spoken prompts. speech.Channel implements it.
type Speaker interface {
	Say(text string) bool
	Close() error
}

// EventSink receives every session event, in order, from the frame loop.
// Emit must not block for long.
type EventSink interface {
	Emit(ev workout.Event)
}

// Config holds the collaborators of an App. Camera, Detector and Speaker
// are required; the rest are optional.
type Config struct {
	Camera   capture.Camera
	Detector pose.Detector
	Speaker  Speaker
	Store    *store.Store
	Sinks    []EventSink

	Settings     workout.Settings
	TickInterval time.Duration
	Logger       *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Snapshot is the published view of the app, safe to share between
// goroutines.
type Snapshot struct {
	workout.Status
	PoseDetected bool      `json:"pose_detected"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// App is the application context object. It owns the session and all
// collaborators, and is the only thing that mutates session state.
type App struct {
	config   Config
	logger   *slog.Logger
	now      func() time.Time
	session  *workout.Session
	recorder *recorder

	detectFailing bool

	// sessMu serialises Step and commands when no loop is running.
	sessMu   sync.Mutex
	commands chan command
	stopCh   chan struct{}
	loopDone chan struct{}
	running  bool

	mu          sync.RWMutex
	snapshot    Snapshot
	frame       []byte
	frameWanted time.Time
	subscribers map[chan Snapshot]struct{}
	closed      bool
	closeOnce   sync.Once
}

type command struct {
	run   func(now time.Time) (workout.TickResult, error)
	reply chan error
}

// New creates an App. The saved workout plan, if any, is restored from
// the store.
func New(config Config) *App {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.Settings == (workout.Settings{}) {
		config.Settings = workout.DefaultSettings()
	}

	a := &App{
		config:      config,
		logger:      config.Logger,
		now:         config.Now,
		commands:    make(chan command),
		stopCh:      make(chan struct{}),
		subscribers: make(map[chan Snapshot]struct{}),
	}

	if config.Store != nil {
		a.recorder = newRecorder(config.Store, a.logger)
		a.recorder.abandonStale(a.now())
		if plan, ok := a.recorder.savedPlan(); ok {
			config.Settings.Plan = plan
		}
	}

	a.session = workout.NewSession(config.Settings)
	a.publish(a.session.Status(), false)
	return a
}

// Snapshot returns the latest published state.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe returns a channel that receives every changed snapshot. Slow
// readers only see the newest one. Call cancel to unsubscribe.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	a.subscribers[ch] = struct{}{}
	ch <- a.snapshot
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			defer a.mu.Unlock()
			if _, ok := a.subscribers[ch]; ok {
				delete(a.subscribers, ch)
				close(ch)
			}
		})
	}
}

// LatestFrame returns the most recent annotated JPEG frame. Calling it
// keeps frame encoding switched on for a short while.
func (a *App) LatestFrame() ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.frameWanted = a.now()
	return a.frame, a.frame != nil
}

func (a *App) wantsFrames(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return !a.frameWanted.IsZero() && now.Sub(a.frameWanted) < frameInterest
}

// Store returns the history store, or nil.
func (a *App) Store() *store.Store {
	return a.config.Store
}

// Calibrate starts a calibration countdown.
func (a *App) Calibrate(ctx context.Context) error {
	return a.exec(ctx, a.session.BeginCalibration)
}

// CancelCalibration finishes a running calibration early.
func (a *App) CancelCalibration(ctx context.Context) error {
	return a.exec(ctx, a.session.CancelCalibration)
}

// StartWorkout begins a workout with plan.
func (a *App) StartWorkout(ctx context.Context, plan workout.Plan) error {
	return a.exec(ctx, func(now time.Time) (workout.TickResult, error) {
		return a.session.StartWorkout(plan, now)
	})
}

// StartWorkoutInput parses user-entered sets and reps and begins a workout.
func (a *App) StartWorkoutInput(ctx context.Context, sets, reps string) error {
	return a.exec(ctx, func(now time.Time) (workout.TickResult, error) {
		return a.session.StartWorkoutInput(sets, reps, now)
	})
}

// SetPlan changes the plan used by the next workout and saves it.
func (a *App) SetPlan(ctx context.Context, plan workout.Plan) error {
	return a.exec(ctx, func(now time.Time) (workout.TickResult, error) {
		if err := a.session.SetPlan(plan); err != nil {
			return workout.TickResult{Status: a.session.Status()}, err
		}
		if a.recorder != nil {
			a.recorder.savePlan(plan)
		}
		return workout.TickResult{Status: a.session.Status()}, nil
	})
}

// exec runs fn on the frame loop between ticks, or directly when the loop
// is not running.
func (a *App) exec(ctx context.Context, fn func(now time.Time) (workout.TickResult, error)) error {
	a.mu.RLock()
	closed, running, done := a.closed, a.running, a.loopDone
	a.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if !running {
		a.sessMu.Lock()
		defer a.sessMu.Unlock()
		return a.apply(fn)
	}

	cmd := command{run: fn, reply: make(chan error, 1)}
	select {
	case a.commands <- cmd:
	case <-done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) apply(fn func(now time.Time) (workout.TickResult, error)) error {
	result, err := fn(a.now())
	a.dispatch(result, a.lastPose())
	if err != nil {
		a.logger.Info("action rejected", "error", err)
	}
	return err
}

func (a *App) lastPose() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot.PoseDetected
}

// Close releases the camera and detector, drains the speech queue and
// closes the store and any sinks that need closing. A workout still in
// progress is recorded as abandoned.
func (a *App) Close() error {
	var errs []error
	a.closeOnce.Do(func() {
		a.mu.Lock()
		a.closed = true
		close(a.stopCh)
		for ch := range a.subscribers {
			delete(a.subscribers, ch)
			close(ch)
		}
		done := a.loopDone
		a.mu.Unlock()

		if done != nil {
			<-done
		}

		if err := a.config.Camera.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := a.config.Detector.Close(); err != nil {
			errs = append(errs, err)
		}
		if err := a.config.Speaker.Close(); err != nil {
			errs = append(errs, err)
		}
		if a.recorder != nil {
			a.sessMu.Lock()
			a.recorder.close(a.now())
			a.sessMu.Unlock()
		}
		for _, sink := range a.config.Sinks {
			if c, ok := sink.(io.Closer); ok {
				if err := c.Close(); err != nil {
					errs = append(errs, err)
				}
			}
		}
		if a.config.Store != nil {
			if err := a.config.Store.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		a.logger.Info("app closed")
	})
	return errors.Join(errs...)
}

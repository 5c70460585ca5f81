package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayusman/repcoach/internal/capture"
	"github.com/ayusman/repcoach/internal/pose"
	"github.com/ayusman/repcoach/internal/workout"
	"gocv.io/x/gocv"
)

// Run opens the camera and drives the frame loop until ctx is cancelled or
// Close is called. User actions issued while Run is active are executed
// between ticks.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.running {
		a.mu.Unlock()
		return errors.New("app is already running")
	}
	a.running = true
	a.loopDone = make(chan struct{})
	done := a.loopDone
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
		close(done)
	}()

	if err := a.config.Camera.Open(); err != nil {
		return fmt.Errorf("failed to open camera: %w", err)
	}

	ticker := time.NewTicker(a.config.TickInterval)
	defer ticker.Stop()

	a.logger.Info("frame loop started", "interval", a.config.TickInterval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("frame loop stopped")
			return nil
		case <-a.stopCh:
			a.logger.Info("frame loop stopped")
			return nil
		case cmd := <-a.commands:
			a.sessMu.Lock()
			cmd.reply <- a.apply(cmd.run)
			a.sessMu.Unlock()
		case <-ticker.C:
			a.Step()
		}
	}
}

// Step runs one tick: read a frame, detect the pose when the session needs
// it, advance the session and dispatch what it produced.
func (a *App) Step() {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	now := a.now()

	frame, err := a.config.Camera.ReadFrame()
	if err != nil {
		a.logger.Debug("frame skipped", "error", err)
		// The rest countdown runs on the wall clock, camera or not.
		if a.session.State() == workout.StateResting {
			a.dispatch(a.session.ProcessTick(workout.Observation{}, now), false)
		}
		return
	}
	defer frame.Close()

	obs := workout.Observation{Width: frame.Cols(), Height: frame.Rows()}
	if a.session.NeedsPose() {
		lm, err := a.config.Detector.Detect(frame)
		switch {
		case err != nil:
			// Treated as no pose.
			if !a.detectFailing {
				a.logger.Warn("pose detection failed", "error", err)
				a.detectFailing = true
			}
		default:
			if a.detectFailing {
				a.logger.Info("pose detection recovered")
				a.detectFailing = false
			}
			obs.Landmarks = lm
		}
	}

	result := a.session.ProcessTick(obs, now)
	a.dispatch(result, obs.Landmarks != nil)

	if a.wantsFrames(now) {
		a.renderFrame(frame, obs.Landmarks, result.Status)
	}
}

// dispatch hands speech to the speaker, events to the recorder and sinks,
// and publishes the new status.
func (a *App) dispatch(result workout.TickResult, poseDetected bool) {
	for _, text := range result.Speech {
		if !a.config.Speaker.Say(text) {
			a.logger.Debug("speech dropped", "text", text)
		}
	}

	for _, ev := range result.Events {
		a.logEvent(ev)
		if a.recorder != nil {
			a.recorder.record(ev)
		}
		for _, sink := range a.config.Sinks {
			sink.Emit(ev)
		}
	}

	if result.Status.State != "" {
		a.publish(result.Status, poseDetected)
	}
}

func (a *App) logEvent(ev workout.Event) {
	switch ev.Kind {
	case workout.EventRestTick, workout.EventStageChanged:
		a.logger.Debug("session event", "kind", ev.Kind, "set", ev.Set, "stage", ev.Stage, "remaining", ev.Remaining)
	case workout.EventRepCounted:
		a.logger.Info("rep counted", "set", ev.Set, "reps", ev.Reps, "angle", int(ev.Angle), "posture", ev.Posture)
	case workout.EventCalibrationFinished:
		a.logger.Info("calibration finished", "threshold", int(ev.Threshold), "detected", ev.Detected, "cancelled", ev.Cancelled)
	default:
		a.logger.Info("session event", "kind", ev.Kind, "set", ev.Set)
	}
}

// publish stores a new snapshot and fans it out when anything changed.
func (a *App) publish(status workout.Status, poseDetected bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.snapshot.Status == status && a.snapshot.PoseDetected == poseDetected && !a.snapshot.UpdatedAt.IsZero() {
		return
	}
	a.snapshot = Snapshot{
		Status:       status,
		PoseDetected: poseDetected,
		UpdatedAt:    a.now(),
	}

	for ch := range a.subscribers {
		select {
		case ch <- a.snapshot:
		default:
			// Replace the stale snapshot the reader has not taken yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- a.snapshot:
			default:
			}
		}
	}
}

func (a *App) renderFrame(frame *gocv.Mat, lm *pose.Landmarks, status workout.Status) {
	capture.Annotate(frame, capture.Overlay{Landmarks: lm, Status: status})
	data, err := capture.EncodeJPEG(frame)
	if err != nil {
		a.logger.Debug("frame encode failed", "error", err)
		return
	}
	a.mu.Lock()
	a.frame = data
	a.mu.Unlock()
}

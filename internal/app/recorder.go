package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/ayusman/repcoach/internal/store"
	"github.com/ayusman/repcoach/internal/workout"
)

// recorder persists session events as workout history. Storage errors
// are logged; they never interrupt coaching.
type recorder struct {
	store     *store.Store
	logger    *slog.Logger
	workoutID string
}

func newRecorder(s *store.Store, logger *slog.Logger) *recorder {
	return &recorder{store: s, logger: logger}
}

func (r *recorder) record(ev workout.Event) {
	switch ev.Kind {
	case workout.EventCalibrationFinished:
		c := &store.Calibration{
			Threshold: int(ev.Threshold),
			Detected:  ev.Detected,
			Cancelled: ev.Cancelled,
			CreatedAt: ev.At,
		}
		if err := r.store.Calibrations().Create(c); err != nil {
			r.logger.Warn("failed to save calibration", "error", err)
		}

	case workout.EventWorkoutStarted:
		r.finish("restarted", store.WorkoutAbandoned, ev.At)
		w := &store.Workout{
			TotalSets:  ev.Plan.Sets,
			RepsPerSet: ev.Plan.RepsPerSet,
			Threshold:  int(ev.Threshold),
			StartedAt:  ev.At,
		}
		if err := r.store.Workouts().Create(w); err != nil {
			r.logger.Warn("failed to save workout", "error", err)
			return
		}
		r.workoutID = w.ID

	case workout.EventSetCompleted:
		if r.workoutID == "" {
			return
		}
		rec := &store.SetRecord{
			WorkoutID:   r.workoutID,
			SetNumber:   ev.Set,
			Reps:        ev.Reps,
			CompletedAt: ev.At,
		}
		if err := r.store.Sets().Create(rec); err != nil {
			r.logger.Warn("failed to save set", "set", ev.Set, "error", err)
		}

	case workout.EventWorkoutCompleted:
		r.finish("completed", store.WorkoutCompleted, ev.At)
	}
}

// finish closes the current workout row, if any, with status.
func (r *recorder) finish(reason string, status store.WorkoutStatus, at time.Time) {
	if r.workoutID == "" {
		return
	}
	id := r.workoutID
	r.workoutID = ""
	if err := r.store.Workouts().Finish(id, status, at); err != nil {
		r.logger.Warn("failed to finish workout", "workout", id, "reason", reason, "error", err)
	}
}

// abandonStale closes out workouts left open by a previous run.
func (r *recorder) abandonStale(at time.Time) {
	n, err := r.store.Workouts().AbandonUnfinished(at)
	if err != nil {
		r.logger.Warn("failed to close stale workouts", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("marked interrupted workouts abandoned", "count", n)
	}
}

// savedPlan returns the plan saved by a previous SetPlan.
func (r *recorder) savedPlan() (workout.Plan, bool) {
	var plan workout.Plan
	err := r.store.Settings().GetJSON(store.SettingPlan, &plan)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("failed to load saved plan", "error", err)
		}
		return plan, false
	}
	if plan.Validate() != nil {
		return plan, false
	}
	return plan, true
}

func (r *recorder) savePlan(plan workout.Plan) {
	if err := r.store.Settings().SetJSON(store.SettingPlan, plan); err != nil {
		r.logger.Warn("failed to save plan", "error", err)
	}
}

// close records a workout that is still running as abandoned.
func (r *recorder) close(at time.Time) {
	r.finish("shutdown", store.WorkoutAbandoned, at)
}

package workout

import "time"

// Stage is the phase of a single squat.
type Stage string

const (
	StageUp   Stage = "up"
	StageDown Stage = "down"
)

// RepUpdate describes what one angle sample did to the counter.
type RepUpdate struct {
	Stage   Stage
	Changed bool
	Counted bool
}

// RepCounter turns a per-frame knee angle into debounced repetitions.
// A rep is counted on the DOWN -> UP transition.
type RepCounter struct {
	threshold      float64
	debounce       time.Duration
	stage          Stage
	reps           int
	lastTransition time.Time
}

// NewRepCounter returns a counter in the UP stage that has never transitioned.
func NewRepCounter(threshold float64, debounce time.Duration) *RepCounter {
	return &RepCounter{
		threshold: threshold,
		debounce:  debounce,
		stage:     StageUp,
	}
}

// Update feeds one angle sample observed at now.
func (r *RepCounter) Update(angle float64, now time.Time) RepUpdate {
	settled := r.lastTransition.IsZero() || now.Sub(r.lastTransition) > r.debounce

	switch {
	case r.stage == StageUp && angle < r.threshold && settled:
		r.stage = StageDown
		r.lastTransition = now
		return RepUpdate{Stage: r.stage, Changed: true}
	case r.stage == StageDown && angle > r.threshold && settled:
		r.stage = StageUp
		r.reps++
		r.lastTransition = now
		return RepUpdate{Stage: r.stage, Changed: true, Counted: true}
	}
	return RepUpdate{Stage: r.stage}
}

// Stage returns the current stage.
func (r *RepCounter) Stage() Stage { return r.stage }

// Reps returns the total reps counted since creation.
func (r *RepCounter) Reps() int { return r.reps }

// Threshold returns the angle that separates UP from DOWN.
func (r *RepCounter) Threshold() float64 { return r.threshold }

// Package workout implements squat rep detection, posture coaching and
// set/rest scheduling on top of per-frame pose observations.
package workout

import (
	"time"

	"github.com/ayusman/repcoach/internal/pose"
)

// coachingKey is shared by every spoken coaching prompt so that visibility,
// posture and no-pose prompts never talk over each other.
const coachingKey = "coaching"

// Settings tunes a Session.
type Settings struct {
	RestSeconds      int
	Debounce         time.Duration
	DefaultThreshold float64
	CalibrationSteps int
	MinVisibility    float64
	PostureInterval  time.Duration
	NoPoseInterval   time.Duration
	Plan             Plan
}

// DefaultSettings returns the stock coaching settings.
func DefaultSettings() Settings {
	return Settings{
		RestSeconds:      45,
		Debounce:         1200 * time.Millisecond,
		DefaultThreshold: 90,
		CalibrationSteps: 10,
		MinVisibility:    0.6,
		PostureInterval:  3 * time.Second,
		NoPoseInterval:   5 * time.Second,
		Plan:             DefaultPlan,
	}
}

// State is the session lifecycle.
type State string

const (
	StateIdle        State = "idle"
	StateCalibrating State = "calibrating"
	StateReady       State = "ready"
	StateActive      State = "active"
	StateResting     State = "resting"
	StateComplete    State = "complete"
)

// Observation is what the frame loop saw on one tick. Nil Landmarks means
// no person was detected.
type Observation struct {
	Landmarks *pose.Landmarks
	Width     int
	Height    int
}

// TickResult carries everything a tick produced for the outside world.
type TickResult struct {
	Events []Event
	Speech []string
	Status Status
}

// Session owns all coaching state. It is not safe for concurrent use;
// a single frame loop drives it.
type Session struct {
	settings Settings
	state    State
	plan     Plan

	feedback string
	angle    float64
	hasAngle bool
	sighting sighting

	limiter     *RateLimiter
	calibrator  *Calibrator
	calibration *CalibrationResult
	reps        *RepCounter
	sched       *Scheduler
	restClock   time.Time
}

type sighting int

const (
	sightingUnknown sighting = iota
	sightingOK
	sightingHidden
	sightingLost
)

// NewSession returns an idle, uncalibrated session.
func NewSession(settings Settings) *Session {
	if settings.Plan.Validate() != nil {
		settings.Plan = DefaultPlan
	}
	return &Session{
		settings: settings,
		state:    StateIdle,
		plan:     settings.Plan,
		limiter:  NewRateLimiter(),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// NeedsPose reports whether the next tick will use pose landmarks.
func (s *Session) NeedsPose() bool {
	return s.state == StateCalibrating || s.state == StateActive
}

// Calibration returns the most recent calibration, or nil.
func (s *Session) Calibration() *CalibrationResult {
	if s.calibration == nil {
		return nil
	}
	c := *s.calibration
	return &c
}

// Plan returns the plan used by the next or current workout.
func (s *Session) Plan() Plan { return s.plan }

func (s *Session) busy() bool {
	return s.state == StateCalibrating || s.state == StateActive || s.state == StateResting
}

// SetPlan replaces the plan for the next workout.
func (s *Session) SetPlan(plan Plan) error {
	if s.busy() {
		return ErrBusy
	}
	if err := plan.Validate(); err != nil {
		return err
	}
	s.plan = plan
	return nil
}

// BeginCalibration starts a calibration countdown. Any previous
// calibration is discarded.
func (s *Session) BeginCalibration(now time.Time) (TickResult, error) {
	var r TickResult
	if s.busy() {
		r.Status = s.Status()
		return r, ErrBusy
	}

	s.state = StateCalibrating
	s.calibration = nil
	s.calibrator = NewCalibrator(s.settings.CalibrationSteps, s.settings.DefaultThreshold, now)
	s.hasAngle = false
	s.feedback = MsgCalibrationLabel

	r.Speech = append(r.Speech, MsgCalibrationStarted)
	r.Events = append(r.Events, Event{Kind: EventCalibrationStarted, At: now})
	r.Status = s.Status()
	return r, nil
}

// CancelCalibration ends a running calibration early with whatever angle
// has been observed so far.
func (s *Session) CancelCalibration(now time.Time) (TickResult, error) {
	var r TickResult
	if s.state != StateCalibrating {
		r.Status = s.Status()
		return r, nil
	}
	s.calibrator.Cancel(now)
	s.finishCalibration(now, &r)
	r.Status = s.Status()
	return r, nil
}

// StartWorkoutInput parses user-entered sets and reps and starts a
// workout. Rejections come back with the spoken explanation.
func (s *Session) StartWorkoutInput(sets, reps string, now time.Time) (TickResult, error) {
	if s.busy() {
		return TickResult{Status: s.Status()}, ErrBusy
	}
	plan, err := ParsePlan(sets, reps)
	if err != nil {
		return s.reject(err), err
	}
	return s.StartWorkout(plan, now)
}

// StartWorkout begins set one of plan. It requires a calibration made
// since the last workout finished; on rejection no state changes.
func (s *Session) StartWorkout(plan Plan, now time.Time) (TickResult, error) {
	if s.busy() {
		return TickResult{Status: s.Status()}, ErrBusy
	}
	if err := plan.Validate(); err != nil {
		return s.reject(err), err
	}
	if s.state != StateReady || s.calibration == nil {
		return s.reject(ErrNotCalibrated), ErrNotCalibrated
	}

	s.plan = plan
	s.sched = NewScheduler(plan, s.settings.RestSeconds)
	s.reps = NewRepCounter(s.calibration.Threshold, s.settings.Debounce)
	s.state = StateActive
	s.feedback = MsgWorkoutStarted
	s.sighting = sightingUnknown

	var r TickResult
	r.Events = append(r.Events, Event{
		Kind:      EventWorkoutStarted,
		At:        now,
		Plan:      plan,
		Set:       1,
		Threshold: s.calibration.Threshold,
	})
	r.Status = s.Status()
	return r, nil
}

func (s *Session) reject(err error) TickResult {
	r := TickResult{Status: s.Status()}
	if msg := Feedback(err); msg != "" {
		r.Speech = append(r.Speech, msg)
	}
	return r
}

// ProcessTick advances the session by one frame observed at now.
func (s *Session) ProcessTick(obs Observation, now time.Time) TickResult {
	var r TickResult

	switch s.state {
	case StateCalibrating:
		s.calibrateTick(obs, now, &r)
	case StateActive:
		s.workoutTick(obs, now, &r)
	case StateResting:
		s.restTick(now, &r)
	}

	r.Status = s.Status()
	return r
}

func (s *Session) calibrateTick(obs Observation, now time.Time, r *TickResult) {
	if obs.Landmarks != nil {
		s.angle = obs.Landmarks.KneeAngle(obs.Width, obs.Height)
		s.hasAngle = true
		s.calibrator.Observe(s.angle)
	} else {
		s.hasAngle = false
	}
	if s.calibrator.Advance(now) {
		s.finishCalibration(now, r)
	}
}

func (s *Session) finishCalibration(now time.Time, r *TickResult) {
	result := s.calibrator.Result()
	s.calibration = &result
	s.calibrator = nil
	s.state = StateReady
	s.feedback = calibrationDoneLabel(result.Threshold)

	if result.Detected {
		r.Speech = append(r.Speech, calibrationCompleteMsg(result.Threshold))
	} else {
		r.Speech = append(r.Speech, MsgCalibrationFailed)
	}
	r.Events = append(r.Events, Event{
		Kind:      EventCalibrationFinished,
		At:        now,
		Threshold: result.Threshold,
		Detected:  result.Detected,
		Cancelled: result.Cancelled,
	})
}

func (s *Session) workoutTick(obs Observation, now time.Time, r *TickResult) {
	lm := obs.Landmarks
	if lm == nil {
		s.hasAngle = false
		s.feedback = MsgNoPose
		if s.sighting != sightingLost {
			s.sighting = sightingLost
			r.Events = append(r.Events, Event{Kind: EventPoseLost, At: now})
		}
		if s.limiter.Allow(coachingKey, s.settings.NoPoseInterval, now) {
			r.Speech = append(r.Speech, MsgNoPoseSpoken)
		}
		return
	}

	if !lm.Visible(pose.SquatLandmarks, s.settings.MinVisibility) {
		s.hasAngle = false
		s.feedback = MsgBodyHidden
		if s.sighting != sightingHidden {
			s.sighting = sightingHidden
			r.Events = append(r.Events, Event{Kind: EventBodyHidden, At: now})
		}
		if s.limiter.Allow(coachingKey, s.settings.PostureInterval, now) {
			r.Speech = append(r.Speech, MsgBodyHiddenSpoken)
		}
		return
	}
	s.sighting = sightingOK

	angle := lm.KneeAngle(obs.Width, obs.Height)
	s.angle = angle
	s.hasAngle = true

	update := s.reps.Update(angle, now)
	if update.Changed {
		r.Events = append(r.Events, Event{
			Kind:  EventStageChanged,
			At:    now,
			Stage: update.Stage,
			Angle: angle,
			Set:   s.sched.Progress().CurrentSet,
		})
	}

	posture := ClassifyPosture(angle - s.reps.Threshold())
	msg := posture.Message()
	if msg != s.feedback && s.limiter.Allow(coachingKey, s.settings.PostureInterval, now) {
		r.Speech = append(r.Speech, msg)
	}
	s.feedback = msg

	if !update.Counted {
		return
	}

	rep := s.sched.RecordRep()
	r.Events = append(r.Events, Event{
		Kind:    EventRepCounted,
		At:      now,
		Set:     rep.Set,
		Reps:    rep.Reps,
		Angle:   angle,
		Posture: posture.String(),
	})

	switch rep.Outcome {
	case OutcomeSetComplete:
		s.state = StateResting
		s.restClock = now
		s.feedback = restingLabel(s.sched.RestRemaining())
		r.Speech = append(r.Speech, setCompleteMsg(rep.Set))
		r.Events = append(r.Events, Event{
			Kind:      EventSetCompleted,
			At:        now,
			Set:       rep.Set,
			Reps:      rep.Reps,
			Remaining: s.sched.RestRemaining(),
		})
	case OutcomeWorkoutComplete:
		s.state = StateComplete
		s.hasAngle = false
		s.feedback = MsgWorkoutComplete
		r.Speech = append(r.Speech, MsgWorkoutComplete)
		r.Events = append(r.Events,
			Event{Kind: EventSetCompleted, At: now, Set: rep.Set, Reps: rep.Reps},
			Event{Kind: EventWorkoutCompleted, At: now, Plan: s.plan, Set: rep.Set},
		)
	}
}

func (s *Session) restTick(now time.Time, r *TickResult) {
	for s.state == StateResting && now.Sub(s.restClock) >= time.Second {
		s.restClock = s.restClock.Add(time.Second)
		tick := s.sched.TickRest()
		if tick.GetReady {
			r.Speech = append(r.Speech, MsgGetReady)
		}
		r.Events = append(r.Events, Event{
			Kind:      EventRestTick,
			At:        s.restClock,
			Set:       s.sched.Progress().CurrentSet,
			Remaining: tick.Remaining,
		})
		if tick.Done {
			s.state = StateActive
			s.feedback = MsgResume
			r.Events = append(r.Events, Event{
				Kind: EventRestFinished,
				At:   s.restClock,
				Set:  s.sched.Progress().CurrentSet,
			})
			return
		}
		s.feedback = restingLabel(tick.Remaining)
	}
}

// Status returns a snapshot of the session for presentation.
func (s *Session) Status() Status {
	st := Status{
		State:        s.state,
		Feedback:     s.feedback,
		Angle:        s.angle,
		HasAngle:     s.hasAngle,
		Plan:         s.plan,
		Stage:        StageUp,
		CanCalibrate: !s.busy(),
		CanStart:     s.state == StateReady,
	}
	if s.calibration != nil {
		st.Calibrated = true
		st.Threshold = s.calibration.Threshold
	}
	if s.calibrator != nil {
		st.CalibrationRemaining = s.calibrator.Remaining()
	}
	if s.reps != nil {
		st.Stage = s.reps.Stage()
	}

	switch s.state {
	case StateActive, StateResting:
		p := s.sched.Progress()
		st.CurrentSet = p.CurrentSet
		st.RepCount = p.RepCount
		st.Ratio = s.sched.Ratio()
		st.RestRemaining = s.sched.RestRemaining()
		st.Info = infoLabel(p.CurrentSet, s.plan.Sets, p.RepCount, s.plan.RepsPerSet)
	case StateComplete:
		p := s.sched.Progress()
		st.CurrentSet = p.CurrentSet
		st.RepCount = p.RepCount
		st.Ratio = s.sched.Ratio()
	case StateReady:
		st.Info = MsgPressStart
	}
	return st
}

package workout

import (
	"fmt"
	"strconv"
	"strings"
)

// Plan is the number of sets and the reps in each.
type Plan struct {
	Sets       int `json:"sets"`
	RepsPerSet int `json:"reps_per_set"`
}

// DefaultPlan is three sets of five.
var DefaultPlan = Plan{Sets: 3, RepsPerSet: 5}

// Validate rejects plans with zero or negative counts.
func (p Plan) Validate() error {
	if p.Sets <= 0 || p.RepsPerSet <= 0 {
		return ErrNonPositive
	}
	return nil
}

// ParsePlan converts user-entered text into a validated plan.
func ParsePlan(sets, reps string) (Plan, error) {
	s, err := strconv.Atoi(strings.TrimSpace(sets))
	if err != nil {
		return Plan{}, fmt.Errorf("sets %q: %w", sets, ErrInvalidNumber)
	}
	r, err := strconv.Atoi(strings.TrimSpace(reps))
	if err != nil {
		return Plan{}, fmt.Errorf("reps %q: %w", reps, ErrInvalidNumber)
	}
	p := Plan{Sets: s, RepsPerSet: r}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Phase is the scheduler state.
type Phase string

const (
	PhaseActive   Phase = "active"
	PhaseResting  Phase = "resting"
	PhaseComplete Phase = "complete"
)

// Progress is the position within a plan.
type Progress struct {
	CurrentSet int `json:"current_set"`
	RepCount   int `json:"rep_count"`
}

// RestTimer counts down the break between sets in one-second ticks.
type RestTimer struct {
	duration  int
	remaining int
	active    bool
}

// NewRestTimer returns an idle timer of the given length in seconds.
func NewRestTimer(seconds int) *RestTimer {
	return &RestTimer{duration: seconds}
}

// Start arms the timer at its full duration.
func (t *RestTimer) Start() {
	t.remaining = t.duration
	t.active = true
}

// RestTick is the outcome of one second of rest.
type RestTick struct {
	Remaining int
	GetReady  bool
	Done      bool
}

// Tick consumes one second. GetReady is set on the tick that leaves five
// seconds; Done is set on the tick that reaches zero.
func (t *RestTimer) Tick() RestTick {
	if !t.active {
		return RestTick{Done: true}
	}
	t.remaining--
	tick := RestTick{Remaining: t.remaining, GetReady: t.remaining == 5}
	if t.remaining <= 0 {
		t.remaining = 0
		t.active = false
		tick.Done = true
	}
	return tick
}

// Remaining returns the seconds left.
func (t *RestTimer) Remaining() int { return t.remaining }

// Active reports whether a rest is underway.
func (t *RestTimer) Active() bool { return t.active }

// SetOutcome reports what a counted rep did to the plan.
type SetOutcome int

const (
	OutcomeRep SetOutcome = iota
	OutcomeSetComplete
	OutcomeWorkoutComplete
)

// RepResult describes a recorded rep.
type RepResult struct {
	Outcome SetOutcome
	// Set and Reps identify the set the rep belonged to and the count
	// reached in it, before any reset for the next set.
	Set  int
	Reps int
}

// Scheduler walks a plan through ACTIVE, RESTING and COMPLETE.
type Scheduler struct {
	plan     Plan
	progress Progress
	phase    Phase
	rest     *RestTimer
}

// NewScheduler starts set one of plan in the ACTIVE phase.
func NewScheduler(plan Plan, restSeconds int) *Scheduler {
	return &Scheduler{
		plan:     plan,
		progress: Progress{CurrentSet: 1},
		phase:    PhaseActive,
		rest:     NewRestTimer(restSeconds),
	}
}

// RecordRep adds a rep to the current set and advances the plan when the
// set target is reached. Ignored unless ACTIVE.
func (s *Scheduler) RecordRep() RepResult {
	if s.phase != PhaseActive {
		return RepResult{Outcome: OutcomeRep, Set: s.progress.CurrentSet, Reps: s.progress.RepCount}
	}

	s.progress.RepCount++
	result := RepResult{Outcome: OutcomeRep, Set: s.progress.CurrentSet, Reps: s.progress.RepCount}
	if s.progress.RepCount < s.plan.RepsPerSet {
		return result
	}

	if s.progress.CurrentSet >= s.plan.Sets {
		s.phase = PhaseComplete
		result.Outcome = OutcomeWorkoutComplete
		return result
	}

	s.phase = PhaseResting
	s.rest.Start()
	s.progress.CurrentSet++
	s.progress.RepCount = 0
	result.Outcome = OutcomeSetComplete
	return result
}

// TickRest consumes one second of rest and returns to ACTIVE when it runs out.
func (s *Scheduler) TickRest() RestTick {
	if s.phase != PhaseResting {
		return RestTick{}
	}
	tick := s.rest.Tick()
	if tick.Done {
		s.phase = PhaseActive
	}
	return tick
}

func (s *Scheduler) Phase() Phase { return s.phase }

func (s *Scheduler) Plan() Plan { return s.plan }

func (s *Scheduler) Progress() Progress { return s.progress }

func (s *Scheduler) RestRemaining() int { return s.rest.Remaining() }

// Ratio is the fraction of the current set completed.
func (s *Scheduler) Ratio() float64 {
	if s.plan.RepsPerSet == 0 {
		return 0
	}
	return float64(s.progress.RepCount) / float64(s.plan.RepsPerSet)
}

package store

import (
	"errors"
	"testing"
	"time"
)

var base = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func createWorkout(t *testing.T, s *Store, started time.Time) *Workout {
	t.Helper()
	w := &Workout{TotalSets: 3, RepsPerSet: 5, Threshold: 92, StartedAt: started}
	if err := s.Workouts().Create(w); err != nil {
		t.Fatalf("failed to create workout: %v", err)
	}
	return w
}

func TestWorkoutRepository_Create(t *testing.T) {
	s := newTestStore(t)
	w := createWorkout(t, s, base)

	if w.ID == "" {
		t.Fatal("ID should be generated")
	}
	if w.Status != WorkoutInProgress {
		t.Errorf("Status = %q, want %q", w.Status, WorkoutInProgress)
	}

	got, err := s.Workouts().GetByID(w.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.TotalSets != 3 || got.RepsPerSet != 5 || got.Threshold != 92 {
		t.Errorf("got %+v", got)
	}
	if !got.StartedAt.Equal(base) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, base)
	}
	if got.EndedAt != nil {
		t.Errorf("EndedAt = %v, want nil", got.EndedAt)
	}
}

func TestWorkoutRepository_InvalidPlanRejected(t *testing.T) {
	s := newTestStore(t)
	err := s.Workouts().Create(&Workout{TotalSets: 0, RepsPerSet: 5, Threshold: 90})
	if err == nil {
		t.Error("zero sets should violate the table constraint")
	}
}

func TestWorkoutRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Workouts().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestWorkoutRepository_FinishAndTotals(t *testing.T) {
	s := newTestStore(t)
	w := createWorkout(t, s, base)

	for set := 1; set <= 3; set++ {
		rec := &SetRecord{WorkoutID: w.ID, SetNumber: set, Reps: 5, CompletedAt: base.Add(time.Duration(set) * time.Minute)}
		if err := s.Sets().Create(rec); err != nil {
			t.Fatalf("Create set %d: %v", set, err)
		}
	}

	end := base.Add(5 * time.Minute)
	if err := s.Workouts().Finish(w.ID, WorkoutCompleted, end); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	got, err := s.Workouts().GetByID(w.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != WorkoutCompleted {
		t.Errorf("Status = %q, want completed", got.Status)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
	}
	if got.CompletedSets != 3 || got.TotalReps != 15 {
		t.Errorf("totals = %d sets %d reps, want 3 and 15", got.CompletedSets, got.TotalReps)
	}

	if err := s.Workouts().Finish("missing", WorkoutCompleted, end); !errors.Is(err, ErrNotFound) {
		t.Errorf("Finish(missing) error = %v, want ErrNotFound", err)
	}
}

func TestWorkoutRepository_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	first := createWorkout(t, s, base)
	second := createWorkout(t, s, base.Add(time.Hour))
	third := createWorkout(t, s, base.Add(2*time.Hour))

	all, err := s.Workouts().List(0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d workouts, want 3", len(all))
	}
	want := []string{third.ID, second.ID, first.ID}
	for i, w := range all {
		if w.ID != want[i] {
			t.Errorf("List()[%d] = %s, want %s", i, w.ID, want[i])
		}
	}

	limited, err := s.Workouts().List(2)
	if err != nil {
		t.Fatalf("List(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("List(2) returned %d workouts", len(limited))
	}
}

func TestWorkoutRepository_DeleteCascadesSets(t *testing.T) {
	s := newTestStore(t)
	w := createWorkout(t, s, base)
	if err := s.Sets().Create(&SetRecord{WorkoutID: w.ID, SetNumber: 1, Reps: 5}); err != nil {
		t.Fatalf("Create set: %v", err)
	}

	if err := s.Workouts().Delete(w.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	sets, err := s.Sets().ListByWorkout(w.ID)
	if err != nil {
		t.Fatalf("ListByWorkout() error = %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("sets should be deleted with their workout, got %d", len(sets))
	}

	if err := s.Workouts().Delete(w.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestWorkoutRepository_AbandonUnfinished(t *testing.T) {
	s := newTestStore(t)
	open := createWorkout(t, s, base)
	done := createWorkout(t, s, base.Add(time.Minute))
	if err := s.Workouts().Finish(done.ID, WorkoutCompleted, base.Add(2*time.Minute)); err != nil {
		t.Fatalf("Finish() error = %v", err)
	}

	n, err := s.Workouts().AbandonUnfinished(base.Add(time.Hour))
	if err != nil {
		t.Fatalf("AbandonUnfinished() error = %v", err)
	}
	if n != 1 {
		t.Errorf("abandoned %d workouts, want 1", n)
	}

	got, _ := s.Workouts().GetByID(open.ID)
	if got.Status != WorkoutAbandoned {
		t.Errorf("Status = %q, want abandoned", got.Status)
	}
	got, _ = s.Workouts().GetByID(done.ID)
	if got.Status != WorkoutCompleted {
		t.Errorf("completed workout changed to %q", got.Status)
	}
}

func TestSetRepository_ListByWorkout(t *testing.T) {
	s := newTestStore(t)
	w := createWorkout(t, s, base)

	// Insert out of order
	for _, n := range []int{2, 1} {
		rec := &SetRecord{WorkoutID: w.ID, SetNumber: n, Reps: 5, CompletedAt: base}
		if err := s.Sets().Create(rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if rec.ID == 0 {
			t.Error("ID should be set after create")
		}
	}

	sets, err := s.Sets().ListByWorkout(w.ID)
	if err != nil {
		t.Fatalf("ListByWorkout() error = %v", err)
	}
	if len(sets) != 2 || sets[0].SetNumber != 1 || sets[1].SetNumber != 2 {
		t.Errorf("sets = %+v, want set 1 then set 2", sets)
	}

	dup := &SetRecord{WorkoutID: w.ID, SetNumber: 1, Reps: 5}
	if err := s.Sets().Create(dup); err == nil {
		t.Error("duplicate set number should be rejected")
	}
}

func TestSetRepository_UnknownWorkout(t *testing.T) {
	s := newTestStore(t)
	err := s.Sets().Create(&SetRecord{WorkoutID: "missing", SetNumber: 1, Reps: 5})
	if err == nil {
		t.Error("set for unknown workout should violate the foreign key")
	}
}

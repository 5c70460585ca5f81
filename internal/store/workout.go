package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// WorkoutStatus tracks whether a workout ran to completion.
type WorkoutStatus string

const (
	WorkoutInProgress WorkoutStatus = "in_progress"
	WorkoutCompleted  WorkoutStatus = "completed"
	WorkoutAbandoned  WorkoutStatus = "abandoned"
)

// Workout is one started workout and its plan.
type Workout struct {
	ID         string        `json:"id"`
	TotalSets  int           `json:"total_sets"`
	RepsPerSet int           `json:"reps_per_set"`
	Threshold  int           `json:"threshold"`
	Status     WorkoutStatus `json:"status"`
	StartedAt  time.Time     `json:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`

	// Filled by GetByID and List from workout_sets.
	CompletedSets int `json:"completed_sets"`
	TotalReps     int `json:"total_reps"`
}

// WorkoutRepository provides CRUD operations for workouts.
type WorkoutRepository struct {
	db *sql.DB
}

// Workouts returns the workout repository for this store.
func (s *Store) Workouts() *WorkoutRepository {
	return &WorkoutRepository{db: s.db}
}

const workoutColumns = `w.id, w.total_sets, w.reps_per_set, w.threshold, w.status, w.started_at, w.ended_at,
	(SELECT COUNT(*) FROM workout_sets ws WHERE ws.workout_id = w.id),
	(SELECT COALESCE(SUM(ws.reps), 0) FROM workout_sets ws WHERE ws.workout_id = w.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkout(row rowScanner) (*Workout, error) {
	w := &Workout{}
	var status string
	var ended sql.NullTime
	err := row.Scan(&w.ID, &w.TotalSets, &w.RepsPerSet, &w.Threshold, &status,
		&w.StartedAt, &ended, &w.CompletedSets, &w.TotalReps)
	if err != nil {
		return nil, err
	}
	w.Status = WorkoutStatus(status)
	if ended.Valid {
		t := ended.Time
		w.EndedAt = &t
	}
	return w, nil
}

// Create inserts a new workout. An empty ID is filled with a UUID, a zero
// StartedAt with the current time and an empty Status with in_progress.
func (r *WorkoutRepository) Create(w *Workout) error {
	if w.ID == "" {
		w.ID = uuid.New().String()
	}
	if w.StartedAt.IsZero() {
		w.StartedAt = time.Now()
	}
	if w.Status == "" {
		w.Status = WorkoutInProgress
	}

	_, err := r.db.Exec(
		`INSERT INTO workouts (id, total_sets, reps_per_set, threshold, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.TotalSets, w.RepsPerSet, w.Threshold, string(w.Status), w.StartedAt,
	)
	return err
}

// GetByID retrieves a workout by its ID.
func (r *WorkoutRepository) GetByID(id string) (*Workout, error) {
	w, err := scanWorkout(r.db.QueryRow(
		`SELECT `+workoutColumns+` FROM workouts w WHERE w.id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return w, nil
}

// List returns the most recent workouts first. A limit <= 0 returns all.
func (r *WorkoutRepository) List(limit int) ([]*Workout, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT `+workoutColumns+` FROM workouts w
		 ORDER BY w.started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workouts []*Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, err
		}
		workouts = append(workouts, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}

// Finish records the end of a workout.
func (r *WorkoutRepository) Finish(id string, status WorkoutStatus, endedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE workouts SET status = ?, ended_at = ? WHERE id = ?`,
		string(status), endedAt, id,
	)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

// AbandonUnfinished marks every in-progress workout as abandoned. Run at
// startup to close out workouts interrupted by a crash or quit.
func (r *WorkoutRepository) AbandonUnfinished(at time.Time) (int64, error) {
	result, err := r.db.Exec(
		`UPDATE workouts SET status = ?, ended_at = ? WHERE status = ?`,
		string(WorkoutAbandoned), at, string(WorkoutInProgress),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete removes a workout and its sets.
func (r *WorkoutRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM workouts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

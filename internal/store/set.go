package store

import (
	"database/sql"
	"time"
)

// SetRecord is one completed set of a workout.
type SetRecord struct {
	ID          int64     `json:"id"`
	WorkoutID   string    `json:"workout_id"`
	SetNumber   int       `json:"set_number"`
	Reps        int       `json:"reps"`
	CompletedAt time.Time `json:"completed_at"`
}

// SetRepository stores per-set results.
type SetRepository struct {
	db *sql.DB
}

// Sets returns the set repository for this store.
func (s *Store) Sets() *SetRepository {
	return &SetRepository{db: s.db}
}

// Create inserts a completed set. A zero CompletedAt uses the current time.
func (r *SetRepository) Create(rec *SetRecord) error {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO workout_sets (workout_id, set_number, reps, completed_at) VALUES (?, ?, ?, ?)`,
		rec.WorkoutID, rec.SetNumber, rec.Reps, rec.CompletedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// ListByWorkout returns the sets of a workout in set order.
func (r *SetRepository) ListByWorkout(workoutID string) ([]SetRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, workout_id, set_number, reps, completed_at
		 FROM workout_sets
		 WHERE workout_id = ?
		 ORDER BY set_number`,
		workoutID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []SetRecord
	for rows.Next() {
		var rec SetRecord
		if err := rows.Scan(&rec.ID, &rec.WorkoutID, &rec.SetNumber, &rec.Reps, &rec.CompletedAt); err != nil {
			return nil, err
		}
		sets = append(sets, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sets, nil
}

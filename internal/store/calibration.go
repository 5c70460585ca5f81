package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Calibration is the outcome of one calibration run.
type Calibration struct {
	ID        string    `json:"id"`
	Threshold int       `json:"threshold"`
	Detected  bool      `json:"detected"`
	Cancelled bool      `json:"cancelled"`
	CreatedAt time.Time `json:"created_at"`
}

// CalibrationRepository stores calibration history.
type CalibrationRepository struct {
	db *sql.DB
}

// Calibrations returns the calibration repository for this store.
func (s *Store) Calibrations() *CalibrationRepository {
	return &CalibrationRepository{db: s.db}
}

// Create inserts a calibration result.
func (r *CalibrationRepository) Create(c *Calibration) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO calibrations (id, threshold, detected, cancelled, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Threshold, c.Detected, c.Cancelled, c.CreatedAt,
	)
	return err
}

// Latest returns the most recent calibration.
func (r *CalibrationRepository) Latest() (*Calibration, error) {
	c := &Calibration{}
	err := r.db.QueryRow(
		`SELECT id, threshold, detected, cancelled, created_at
		 FROM calibrations ORDER BY created_at DESC LIMIT 1`,
	).Scan(&c.ID, &c.Threshold, &c.Detected, &c.Cancelled, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// List returns calibrations newest first. A limit <= 0 returns all.
func (r *CalibrationRepository) List(limit int) ([]*Calibration, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(
		`SELECT id, threshold, detected, cancelled, created_at
		 FROM calibrations ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Calibration
	for rows.Next() {
		c := &Calibration{}
		if err := rows.Scan(&c.ID, &c.Threshold, &c.Detected, &c.Cancelled, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

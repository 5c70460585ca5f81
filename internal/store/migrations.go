package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Workouts table - one row per started workout
		`CREATE TABLE IF NOT EXISTS workouts (
			id TEXT PRIMARY KEY,
			total_sets INTEGER NOT NULL CHECK(total_sets > 0),
			reps_per_set INTEGER NOT NULL CHECK(reps_per_set > 0),
			threshold INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'in_progress'
				CHECK(status IN ('in_progress', 'completed', 'abandoned')),
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Workout sets table - one row per finished set
		`CREATE TABLE IF NOT EXISTS workout_sets (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workout_id TEXT NOT NULL REFERENCES workouts(id) ON DELETE CASCADE,
			set_number INTEGER NOT NULL,
			reps INTEGER NOT NULL,
			completed_at DATETIME NOT NULL,
			UNIQUE(workout_id, set_number)
		)`,

		// Calibrations table - history of calibration runs
		`CREATE TABLE IF NOT EXISTS calibrations (
			id TEXT PRIMARY KEY,
			threshold INTEGER NOT NULL,
			detected INTEGER NOT NULL DEFAULT 1,
			cancelled INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_workout_sets_workout_id ON workout_sets(workout_id)`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_started_at ON workouts(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_calibrations_created_at ON calibrations(created_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Finished sets, one row per set with at least one rep
		`CREATE TABLE IF NOT EXISTS workout_sets (
			id TEXT PRIMARY KEY,
			movement TEXT NOT NULL,
			reps INTEGER NOT NULL CHECK(reps >= 0),
			duration_ms INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Per-movement rule overrides; NULL keeps the built-in value
		`CREATE TABLE IF NOT EXISTS movement_overrides (
			movement TEXT PRIMARY KEY,
			target REAL,
			secondary_target REAL,
			tolerance REAL,
			min_torso REAL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Cues bind session events to plugin actions. An empty movement matches all.
		`CREATE TABLE IF NOT EXISTS cues (
			id TEXT PRIMARY KEY,
			event TEXT NOT NULL CHECK(event IN ('rep', 'form_broken', 'set_finished')),
			movement TEXT NOT NULL DEFAULT '',
			plugin_name TEXT NOT NULL,
			action_name TEXT NOT NULL,
			config TEXT NOT NULL DEFAULT '{}',
			enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Recorded landmark sequences for offline replay
		`CREATE TABLE IF NOT EXISTS recordings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			movement TEXT NOT NULL,
			fps INTEGER NOT NULL DEFAULT 15,
			frame_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS recording_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recording_id TEXT NOT NULL REFERENCES recordings(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			data TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_workout_sets_movement ON workout_sets(movement)`,
		`CREATE INDEX IF NOT EXISTS idx_workout_sets_finished_at ON workout_sets(finished_at)`,
		`CREATE INDEX IF NOT EXISTS idx_cues_event ON cues(event)`,
		`CREATE INDEX IF NOT EXISTS idx_recording_frames_recording_id ON recording_frames(recording_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Finished game rounds
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			game TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			completed INTEGER NOT NULL DEFAULT 0,
			total INTEGER NOT NULL DEFAULT 0,
			complete INTEGER NOT NULL DEFAULT 0,
			mistakes INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,

		// Custom word bank entries, merged over the built-in words
		`CREATE TABLE IF NOT EXISTS words (
			id TEXT PRIMARY KEY,
			native TEXT NOT NULL,
			translation TEXT NOT NULL UNIQUE COLLATE NOCASE,
			image TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_results_game ON results(game)`,
		`CREATE INDEX IF NOT EXISTS idx_results_finished_at ON results(finished_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

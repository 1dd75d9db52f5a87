package db

import "fmt"

const currentVersion = 2

func (d *DB) migrate() error {
	// Create migrations table if it doesn't exist
	if _, err := d.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	// Get current version
	var version int
	err := d.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}
	if version > currentVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentVersion)
	}

	// Apply migrations
	migrations := []func(*DB) error{
		migrateV1,
		migrateV2,
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](d); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := d.Exec("INSERT INTO schema_migrations (version) VALUES (?)", i+1); err != nil {
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
	}

	return nil
}

func migrateV1(d *DB) error {
	_, err := d.Exec(`
		CREATE TABLE history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			op TEXT NOT NULL,
			category TEXT NOT NULL,
			name TEXT NOT NULL,
			path TEXT,
			success INTEGER NOT NULL,
			error TEXT
		)
	`)
	return err
}

func migrateV2(d *DB) error {
	// Advisory install details and lookups by mod
	statements := []string{
		`ALTER TABLE history ADD COLUMN version TEXT`,
		`ALTER TABLE history ADD COLUMN notes TEXT`,
		`CREATE INDEX idx_history_mod ON history(category, name)`,
	}

	for _, stmt := range statements {
		if _, err := d.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}

	return nil
}

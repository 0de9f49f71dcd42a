package sqlitecache

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open creates a SQLite connection tuned for an embedded single-writer cache.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// migrations are applied in order and recorded in schema_version. Each must be additive
// and safe to re-run so Migrate can be called against an already-migrated database.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cache_records (
    tbl           TEXT NOT NULL,
    id            TEXT NOT NULL,
    drill_plan_id TEXT NOT NULL,
    object        BLOB NOT NULL,
    updated_at    DATETIME NOT NULL,
    PRIMARY KEY (tbl, id)
);
CREATE INDEX IF NOT EXISTS idx_cache_records_plan
    ON cache_records (tbl, drill_plan_id);`,

	`CREATE TABLE IF NOT EXISTS sync_outbox (
    id            TEXT NOT NULL PRIMARY KEY,
    tbl           TEXT NOT NULL,
    entity_id     TEXT NOT NULL,
    drill_plan_id TEXT NOT NULL,
    row_status    INTEGER NOT NULL,
    object        BLOB NOT NULL,
    is_new        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sync_outbox_created_at
    ON sync_outbox (created_at);`,
}

// Migrate brings the cache schema up to date. It is idempotent: applied versions are
// tracked in schema_version and skipped on re-run.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER NOT NULL PRIMARY KEY,
    applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	if err != nil {
		return fmt.Errorf("init schema version table: %w", err)
	}

	var current sql.NullInt64
	err = db.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&current)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for i, migration := range migrations {
		version := int64(i + 1)
		if current.Valid && version <= current.Int64 {
			continue
		}

		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}

		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("record migration %d: %w", version, err)
		}
	}

	return nil
}

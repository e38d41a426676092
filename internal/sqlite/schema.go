package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema DDL for all tables. JSON-valued shoe fields are stored as TEXT.
const (
	createShoes = `CREATE TABLE shoes (
    shoe_id TEXT PRIMARY KEY,
    brand TEXT NOT NULL,
    model TEXT NOT NULL,
    nickname TEXT NOT NULL DEFAULT '',
    acquired_at TEXT NOT NULL,
    lifespan_distance REAL NOT NULL DEFAULT 0,
    image_ref TEXT NOT NULL DEFAULT '',
    is_retired INTEGER NOT NULL DEFAULT 0,
    retired_at TEXT,
    is_default_shoe INTEGER NOT NULL DEFAULT 0,
    default_run_types TEXT NOT NULL DEFAULT '[]',
    suitable_run_types TEXT NOT NULL DEFAULT '[]',
    workouts TEXT NOT NULL DEFAULT '[]',
    total_distance REAL NOT NULL DEFAULT 0,
    total_duration_ns INTEGER NOT NULL DEFAULT 0,
    last_activity_at TEXT,
    wear_ratio REAL NOT NULL DEFAULT 0,
    personal_bests TEXT NOT NULL DEFAULT '{}',
    total_runs TEXT NOT NULL DEFAULT '{}',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createActivities = `CREATE TABLE activities (
    activity_id TEXT PRIMARY KEY,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    distance REAL NOT NULL,
    source TEXT NOT NULL DEFAULT ''
);`

	createSamples = `CREATE TABLE samples (
    activity_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    start_time TEXT NOT NULL,
    end_time TEXT NOT NULL,
    distance REAL NOT NULL,
    PRIMARY KEY (activity_id, seq),
    FOREIGN KEY (activity_id) REFERENCES activities(activity_id) ON DELETE CASCADE
);`
)

// Index DDL for common queries.
const (
	idxActivitiesEnd  = `CREATE INDEX idx_activities_end ON activities(end_time);`
	idxSamplesStart   = `CREATE INDEX idx_samples_start ON samples(activity_id, start_time);`
	idxShoesCreatedAt = `CREATE INDEX idx_shoes_created ON shoes(created_at);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createShoes,
	createActivities,
	createSamples,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxActivitiesEnd,
	idxSamplesStart,
	idxShoesCreatedAt,
}

// createSchema executes every table and index statement.
func createSchema(db *sql.DB) error {
	for _, stmt := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enabling foreign keys: %w", err)
	}
	return nil
}

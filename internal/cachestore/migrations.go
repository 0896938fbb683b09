package cachestore

import "database/sql"

// schemaSQL creates both tables at their current shape. A fresh database
// gets every column from the start; an existing one is brought up to date by
// additiveColumns below. Both paths converge on the same schema, per
// spec.md §4.7 ("on startup: if the DB file is absent, create schema; else
// inspect column lists and apply additive migrations").
const schemaSQL = `
CREATE TABLE IF NOT EXISTS queries (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    query         TEXT NOT NULL UNIQUE,
    custom_params TEXT,
    config_hash   TEXT,
    last_accessed DATETIME NOT NULL,
    created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_queries_query ON queries(query);

CREATE TABLE IF NOT EXISTS dft_cache (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    query_id           INTEGER NOT NULL REFERENCES queries(id) ON DELETE CASCADE,
    metric_hash        TEXT NOT NULL,
    metric_json        TEXT NOT NULL,
    data_start         INTEGER NOT NULL,
    step               INTEGER NOT NULL,
    total_duration     INTEGER NOT NULL,
    dft_rebuild_count  INTEGER NOT NULL DEFAULT 0,
    labels_json        TEXT NOT NULL,
    created_at         DATETIME NOT NULL,
    anomaly_stats_json TEXT,
    dft_upper_json     TEXT,
    dft_lower_json     TEXT,
    upper_trend_json   TEXT,
    lower_trend_json   TEXT,
    last_accessed      DATETIME NOT NULL,
    UNIQUE(query_id, metric_hash)
);
CREATE INDEX IF NOT EXISTS idx_dft_cache_query_id ON dft_cache(query_id);
CREATE INDEX IF NOT EXISTS idx_dft_cache_metric_hash ON dft_cache(metric_hash);
`

// additiveColumn is one column that a pre-existing database file might be
// missing, checked by inspecting PRAGMA table_info and applied with ALTER
// TABLE ADD COLUMN when absent. Applying it twice is a no-op — the presence
// check makes every migration idempotent.
type additiveColumn struct {
	table  string
	column string
	ddl    string
}

var additiveColumns = []additiveColumn{
	{"queries", "custom_params", "ALTER TABLE queries ADD COLUMN custom_params TEXT"},
	{"queries", "config_hash", "ALTER TABLE queries ADD COLUMN config_hash TEXT"},
	{"dft_cache", "upper_trend_json", "ALTER TABLE dft_cache ADD COLUMN upper_trend_json TEXT"},
	{"dft_cache", "lower_trend_json", "ALTER TABLE dft_cache ADD COLUMN lower_trend_json TEXT"},
}

func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}

	for _, c := range additiveColumns {
		has, err := hasColumn(db, c.table, c.column)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := db.Exec(c.ddl); err != nil {
			return err
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(`SELECT name FROM pragma_table_info(?)`, table)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

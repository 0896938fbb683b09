// Package cachestore implements spec.md §4.7's PersistentCache: a
// SQLite-backed relational store keyed by (query, labelsFingerprint),
// holding the DFT coefficients, trend, historical anomaly stats, config
// hash, and access time for each corridor.
package cachestore

import (
	"crypto/md5"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/corridorproxy/corridor-proxy/internal/corridor"
)

const numShards = 32

// Store is the SQLite-backed implementation of corridor.CacheStore (Load,
// Save, ShouldRecreate), plus the operations spec.md §4.7 names beyond that
// narrow orchestrator interface (loadAll, exists, cleanup).
type Store struct {
	db     *sql.DB
	shards [numShards]sync.Mutex
}

// Open creates (or opens) a SQLite database at path and brings its schema up
// to date. Pass ":memory:" for an in-memory store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// CacheKey is spec.md §3's "cache key": MD5(query || fingerprint). It is
// used both as the dft_cache.metric_hash column and to pick the write
// shard, per SPEC_FULL §4's "sharded mutex on MD5(query||fingerprint)".
// Exported so callers outside this package (internal/api's stream
// subscriptions) can address the same cache key without duplicating the
// hashing scheme.
func CacheKey(query, fingerprint string) string {
	sum := md5.Sum([]byte(query + fingerprint))
	return hex.EncodeToString(sum[:])
}

func cacheKey(query, fingerprint string) string { return CacheKey(query, fingerprint) }

func (s *Store) shardFor(key string) *sync.Mutex {
	if len(key) == 0 {
		return &s.shards[0]
	}
	return &s.shards[int(key[0])%numShards]
}

// Load implements corridor.CacheStore. It also performs spec.md §4.7's
// coarse hourly last_accessed touch.
func (s *Store) Load(query, fingerprint string) (*corridor.CacheEntry, bool, error) {
	key := cacheKey(query, fingerprint)

	row := s.db.QueryRow(`
		SELECT d.data_start, d.step, d.total_duration, d.dft_rebuild_count,
		       d.labels_json, d.created_at, d.anomaly_stats_json,
		       d.dft_upper_json, d.dft_lower_json, d.upper_trend_json,
		       d.lower_trend_json, d.last_accessed, q.config_hash
		FROM dft_cache d
		JOIN queries q ON q.id = d.query_id
		WHERE q.query = ? AND d.metric_hash = ?
	`, query, key)

	entry, err := scanEntry(row, query, fingerprint)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	s.touchAccess(query, fingerprint, key)

	return entry, true, nil
}

// Save implements corridor.CacheStore: an upsert of both tables inside one
// transaction, serialized per cache key via the shard lock so the
// (query, fingerprint) write path never races itself even when
// ProcessGroups dispatches multiple goroutines.
func (s *Store) Save(query, fingerprint string, entry *corridor.CacheEntry) error {
	key := cacheKey(query, fingerprint)
	lock := s.shardFor(key)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	var queryID int64
	err = tx.QueryRow(`SELECT id FROM queries WHERE query = ?`, query).Scan(&queryID)
	switch {
	case err == sql.ErrNoRows:
		res, err := tx.Exec(`
			INSERT INTO queries(query, config_hash, last_accessed, created_at)
			VALUES(?, ?, ?, ?)
		`, query, entry.ConfigHash, now, now)
		if err != nil {
			return err
		}
		queryID, err = res.LastInsertId()
		if err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := tx.Exec(`
			UPDATE queries SET config_hash = ?, last_accessed = ? WHERE id = ?
		`, entry.ConfigHash, now, queryID); err != nil {
			return err
		}
	}

	labelsJSON, err := json.Marshal(entry.Labels)
	if err != nil {
		return err
	}
	statsJSON, err := json.Marshal(entry.HistoricalStats)
	if err != nil {
		return err
	}
	upperJSON, err := json.Marshal(entry.DFTUpper.Coeffs)
	if err != nil {
		return err
	}
	lowerJSON, err := json.Marshal(entry.DFTLower.Coeffs)
	if err != nil {
		return err
	}
	upperTrendJSON, err := json.Marshal(entry.DFTUpper.Trend)
	if err != nil {
		return err
	}
	lowerTrendJSON, err := json.Marshal(entry.DFTLower.Trend)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		INSERT INTO dft_cache(
			query_id, metric_hash, metric_json, data_start, step, total_duration,
			dft_rebuild_count, labels_json, created_at, anomaly_stats_json,
			dft_upper_json, dft_lower_json, upper_trend_json, lower_trend_json,
			last_accessed
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(query_id, metric_hash) DO UPDATE SET
			data_start         = excluded.data_start,
			step               = excluded.step,
			total_duration     = excluded.total_duration,
			dft_rebuild_count  = excluded.dft_rebuild_count,
			labels_json        = excluded.labels_json,
			anomaly_stats_json = excluded.anomaly_stats_json,
			dft_upper_json     = excluded.dft_upper_json,
			dft_lower_json     = excluded.dft_lower_json,
			upper_trend_json   = excluded.upper_trend_json,
			lower_trend_json   = excluded.lower_trend_json,
			last_accessed      = excluded.last_accessed
	`,
		queryID, key, fingerprint, entry.DataStart, entry.Step, entry.TotalDuration,
		entry.DFTRebuildCount, string(labelsJSON), entry.CreatedAt.UTC(), string(statsJSON),
		string(upperJSON), string(lowerJSON), string(upperTrendJSON), string(lowerTrendJSON),
		now,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// LoadAll returns every cached entry for a query, keyed by fingerprint.
func (s *Store) LoadAll(query string) (map[string]*corridor.CacheEntry, error) {
	rows, err := s.db.Query(`
		SELECT d.metric_json, d.data_start, d.step, d.total_duration, d.dft_rebuild_count,
		       d.labels_json, d.created_at, d.anomaly_stats_json,
		       d.dft_upper_json, d.dft_lower_json, d.upper_trend_json,
		       d.lower_trend_json, d.last_accessed, q.config_hash
		FROM dft_cache d
		JOIN queries q ON q.id = d.query_id
		WHERE q.query = ?
	`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*corridor.CacheEntry)
	for rows.Next() {
		var fingerprint string
		entry, err := scanEntryRow(rows, &fingerprint, query)
		if err != nil {
			return nil, err
		}
		out[fingerprint] = entry
	}
	return out, rows.Err()
}

// Exists reports whether a cache row exists for (query, fingerprint).
func (s *Store) Exists(query, fingerprint string) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM dft_cache d
		JOIN queries q ON q.id = d.query_id
		WHERE q.query = ? AND d.metric_hash = ?
	`, query, cacheKey(query, fingerprint)).Scan(&count)
	return count > 0, err
}

// ShouldRecreate implements spec.md §4.7's shouldRecreate. It returns false
// iff the entry exists, its config_hash matches configHash, its age is
// within maxTTL, or — the placeholder special case — the entry is a
// placeholder still within maxTTL regardless of hash equality.
func (s *Store) ShouldRecreate(query, fingerprint, configHash string, maxTTL time.Duration, now time.Time) (bool, error) {
	entry, found, err := s.Load(query, fingerprint)
	if err != nil {
		return false, err
	}
	if !found {
		return true, nil
	}

	age := now.Sub(entry.CreatedAt)
	withinTTL := age <= maxTTL

	if entry.IsPlaceholder && withinTTL {
		return false, nil
	}

	return !(entry.ConfigHash == configHash && withinTTL), nil
}

// Cleanup deletes dft_cache rows untouched for maxAgeDays and any queries
// rows left with no remaining dft_cache children.
func (s *Store) Cleanup(maxAgeDays int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM dft_cache WHERE last_accessed < ?`, cutoff); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		DELETE FROM queries WHERE id NOT IN (SELECT DISTINCT query_id FROM dft_cache)
	`); err != nil {
		return err
	}

	return tx.Commit()
}

// touchAccess refreshes last_accessed only when the current wall-clock hour
// differs from what is stored, per spec.md §4.7's "coarse hourly touch".
// Failures are silently ignored — a missed touch just means the next read
// tries again, and Load has already returned its (correct) result.
func (s *Store) touchAccess(query, fingerprint, key string) {
	var lastAccessed time.Time
	err := s.db.QueryRow(`
		SELECT d.last_accessed FROM dft_cache d
		JOIN queries q ON q.id = d.query_id
		WHERE q.query = ? AND d.metric_hash = ?
	`, query, key).Scan(&lastAccessed)
	if err != nil {
		return
	}

	now := time.Now().UTC()
	if now.Truncate(time.Hour).Equal(lastAccessed.Truncate(time.Hour)) {
		return
	}

	_, _ = s.db.Exec(`
		UPDATE dft_cache SET last_accessed = ?
		WHERE metric_hash = ? AND query_id = (SELECT id FROM queries WHERE query = ?)
	`, now, key, query)
	_, _ = s.db.Exec(`UPDATE queries SET last_accessed = ? WHERE query = ?`, now, query)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner, query, fingerprint string) (*corridor.CacheEntry, error) {
	var (
		dataStart, step, totalDuration                        int64
		rebuildCount                                           int
		labelsJSON, statsJSON, upperJSON, lowerJSON            string
		upperTrendJSON, lowerTrendJSON                         sql.NullString
		createdAt, lastAccessed                                time.Time
		configHash                                             sql.NullString
	)

	err := row.Scan(&dataStart, &step, &totalDuration, &rebuildCount,
		&labelsJSON, &createdAt, &statsJSON, &upperJSON, &lowerJSON,
		&upperTrendJSON, &lowerTrendJSON, &lastAccessed, &configHash)
	if err != nil {
		return nil, err
	}

	return buildEntry(query, fingerprint, dataStart, step, totalDuration, rebuildCount,
		labelsJSON, statsJSON, upperJSON, lowerJSON, upperTrendJSON, lowerTrendJSON,
		createdAt, lastAccessed, configHash)
}

func scanEntryRow(rows *sql.Rows, fingerprint *string, query string) (*corridor.CacheEntry, error) {
	var (
		dataStart, step, totalDuration               int64
		rebuildCount                                  int
		labelsJSON, statsJSON, upperJSON, lowerJSON   string
		upperTrendJSON, lowerTrendJSON                sql.NullString
		createdAt, lastAccessed                       time.Time
		configHash                                    sql.NullString
	)

	err := rows.Scan(fingerprint, &dataStart, &step, &totalDuration, &rebuildCount,
		&labelsJSON, &createdAt, &statsJSON, &upperJSON, &lowerJSON,
		&upperTrendJSON, &lowerTrendJSON, &lastAccessed, &configHash)
	if err != nil {
		return nil, err
	}

	return buildEntry(query, *fingerprint, dataStart, step, totalDuration, rebuildCount,
		labelsJSON, statsJSON, upperJSON, lowerJSON, upperTrendJSON, lowerTrendJSON,
		createdAt, lastAccessed, configHash)
}

func buildEntry(
	query, fingerprint string,
	dataStart, step, totalDuration int64,
	rebuildCount int,
	labelsJSON, statsJSON, upperJSON, lowerJSON string,
	upperTrendJSON, lowerTrendJSON sql.NullString,
	createdAt, lastAccessed time.Time,
	configHash sql.NullString,
) (*corridor.CacheEntry, error) {
	entry := &corridor.CacheEntry{
		Query:           query,
		Fingerprint:     fingerprint,
		DataStart:       dataStart,
		Step:            step,
		TotalDuration:   totalDuration,
		DFTRebuildCount: rebuildCount,
		CreatedAt:       createdAt,
		LastAccessed:    lastAccessed,
		ConfigHash:      configHash.String,
	}

	if err := json.Unmarshal([]byte(labelsJSON), &entry.Labels); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}
	if statsJSON != "" {
		if err := json.Unmarshal([]byte(statsJSON), &entry.HistoricalStats); err != nil {
			return nil, fmt.Errorf("decode historical stats: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(upperJSON), &entry.DFTUpper.Coeffs); err != nil {
		return nil, fmt.Errorf("decode upper coeffs: %w", err)
	}
	if err := json.Unmarshal([]byte(lowerJSON), &entry.DFTLower.Coeffs); err != nil {
		return nil, fmt.Errorf("decode lower coeffs: %w", err)
	}
	if upperTrendJSON.Valid && upperTrendJSON.String != "" {
		if err := json.Unmarshal([]byte(upperTrendJSON.String), &entry.DFTUpper.Trend); err != nil {
			return nil, fmt.Errorf("decode upper trend: %w", err)
		}
	}
	if lowerTrendJSON.Valid && lowerTrendJSON.String != "" {
		if err := json.Unmarshal([]byte(lowerTrendJSON.String), &entry.DFTLower.Trend); err != nil {
			return nil, fmt.Errorf("decode lower trend: %w", err)
		}
	}

	entry.IsPlaceholder = entry.Labels["unused_metric"] == "true"

	return entry, nil
}

// Package store archives sessions to SQLite so past runs can be listed,
// re-exported as reports and re-rendered as trees.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"timefold/internal/logging"
	"timefold/internal/types"
)

// ErrSessionNotFound is returned when no archived session has the given id.
var ErrSessionNotFound = errors.New("session not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Archive is the SQLite-backed session archive.
type Archive struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// SessionSummary is one row of ListSessions.
type SessionSummary struct {
	ID        string
	CreatedAt time.Time
	Seed      string
	Steps     int
}

// Open opens (creating if needed) the archive at path. ":memory:" is accepted.
func Open(path string) (*Archive, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Open")
	defer timer.Stop()

	logging.Store("Opening archive at path: %s", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	a := &Archive{db: db, path: path}
	if err := a.initialize(); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to initialize schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.StoreDebug("Archive schema initialized")
	return a, nil
}

func (a *Archive) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		seed TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS steps (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		scenario_json TEXT,
		created_at TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at);
	`
	if _, err := a.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create archive schema: %w", err)
	}
	return nil
}

// Path returns the database path.
func (a *Archive) Path() string {
	return a.path
}

// Close closes the database.
func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}

// RecordSeed creates the session row and stores seed as step 0.
// Recording the same session twice replaces it.
func (a *Archive) RecordSeed(id string, createdAt time.Time, seed types.HistoryEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	logging.StoreDebug("Recording seed: session=%s", id)

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ts := createdAt.UTC().Format(timeLayout)
	if _, err := tx.Exec("DELETE FROM steps WHERE session_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear steps: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO sessions (id, created_at, seed) VALUES (?, ?, ?)",
		id, ts, seed.Description,
	); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to record session %s: %v", id, err)
		return fmt.Errorf("failed to record session: %w", err)
	}
	if err := insertStep(tx, id, 0, seed, ts); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordStep stores an explored history entry at position seq.
func (a *Archive) RecordStep(id string, seq int, entry types.HistoryEntry, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	logging.StoreDebug("Recording step: session=%s seq=%d title=%q", id, seq, entry.Title)

	var exists int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE id = ?", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up session: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return insertStep(a.db, id, seq, entry, at.UTC().Format(timeLayout))
}

type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func insertStep(db execer, id string, seq int, entry types.HistoryEntry, ts string) error {
	var scenarioJSON sql.NullString
	if entry.Scenario != nil {
		data, err := json.Marshal(entry.Scenario)
		if err != nil {
			return fmt.Errorf("failed to encode scenario: %w", err)
		}
		scenarioJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.Exec(
		`INSERT OR REPLACE INTO steps (session_id, seq, title, description, scenario_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, seq, entry.Title, entry.Description, scenarioJSON, ts,
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to record step %s/%d: %v", id, seq, err)
		return fmt.Errorf("failed to record step: %w", err)
	}
	return nil
}

// ListSessions returns the most recent sessions first. limit <= 0 means 20.
func (a *Archive) ListSessions(limit int) ([]SessionSummary, error) {
	timer := logging.StartTimer(logging.CategoryStore, "ListSessions")
	defer timer.Stop()

	a.mu.RLock()
	defer a.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.Query(
		`SELECT s.id, s.created_at, s.seed, COUNT(st.seq)
		 FROM sessions s LEFT JOIN steps st ON st.session_id = s.id
		 GROUP BY s.id
		 ORDER BY s.created_at DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var ts string
		if err := rows.Scan(&s.ID, &ts, &s.Seed, &s.Steps); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.CreatedAt, err = time.Parse(timeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp for session %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LoadHistory returns the archived history spine of a session in order.
func (a *Archive) LoadHistory(id string) ([]types.HistoryEntry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	rows, err := a.db.Query(
		"SELECT title, description, scenario_json FROM steps WHERE session_id = ? ORDER BY seq",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	defer rows.Close()

	var history []types.HistoryEntry
	for rows.Next() {
		var e types.HistoryEntry
		var scenarioJSON sql.NullString
		if err := rows.Scan(&e.Title, &e.Description, &scenarioJSON); err != nil {
			return nil, fmt.Errorf("failed to scan step: %w", err)
		}
		if scenarioJSON.Valid {
			var sc types.Scenario
			if err := json.Unmarshal([]byte(scenarioJSON.String), &sc); err != nil {
				return nil, fmt.Errorf("failed to decode scenario in session %s: %w", id, err)
			}
			e.Scenario = &sc
		}
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}

	logging.StoreDebug("Loaded %d steps for session %s", len(history), id)
	return history, nil
}

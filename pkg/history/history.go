// Package history archives completed orchestrator runs to a local SQLite
// database so `seismicd history` and the control plane can inspect past
// activity without replaying a run.
//
// Grounded on internal/cookies/chrome.go's database/sql + modernc.org/sqlite
// DSN idiom (file:<path>?<options>, a lazy sql.Open + an explicit schema
// query instead of a migration framework).
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seismic-go/seismicd/pkg/seismic"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id           TEXT PRIMARY KEY,
	started_at       INTEGER NOT NULL,
	finished_at      INTEGER NOT NULL,
	providers        TEXT NOT NULL,
	downloaded_bytes INTEGER NOT NULL,
	discarded_bytes  INTEGER NOT NULL,
	report_json      TEXT NOT NULL
);
`

// Store persists Report records to a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures its schema exists. The DSN mirrors the cookies package's
// "file:<path>" pattern, without immutable=1 since this database is
// read-write.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error: cannot open history database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error: cannot initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunSummary is one row of run history, without the full report payload.
type RunSummary struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Providers       []string
	DownloadedBytes int64
	DiscardedBytes  int64
}

// SaveRun records a completed run's report alongside its start/finish
// timestamps, replacing any prior row with the same RunID.
func (s *Store) SaveRun(report *seismic.Report, startedAt, finishedAt time.Time) error {
	downloaded, discarded := report.TotalBytes()
	providers := make([]string, 0, len(report.Providers))
	for _, p := range report.Providers {
		providers = append(providers, p.Provider)
	}
	providersJSON, err := json.Marshal(providers)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, started_at, finished_at, providers, downloaded_bytes, discarded_bytes, report_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			providers = excluded.providers,
			downloaded_bytes = excluded.downloaded_bytes,
			discarded_bytes = excluded.discarded_bytes,
			report_json = excluded.report_json
	`, report.RunID, startedAt.Unix(), finishedAt.Unix(), string(providersJSON), downloaded, discarded, string(reportJSON))
	return err
}

// ListRuns returns the most recent runs, newest first, bounded by limit (a
// non-positive limit means no bound).
func (s *Store) ListRuns(limit int) ([]RunSummary, error) {
	query := `SELECT run_id, started_at, finished_at, providers, downloaded_bytes, discarded_bytes FROM runs ORDER BY started_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("error: failed to query run history: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			runID         string
			startedAt     int64
			finishedAt    int64
			providersJSON string
			downloaded    int64
			discarded     int64
		)
		if err := rows.Scan(&runID, &startedAt, &finishedAt, &providersJSON, &downloaded, &discarded); err != nil {
			return nil, fmt.Errorf("error: failed to scan run history row: %w", err)
		}
		var providers []string
		if err := json.Unmarshal([]byte(providersJSON), &providers); err != nil {
			return nil, err
		}
		out = append(out, RunSummary{
			RunID:           runID,
			StartedAt:       time.Unix(startedAt, 0).UTC(),
			FinishedAt:      time.Unix(finishedAt, 0).UTC(),
			Providers:       providers,
			DownloadedBytes: downloaded,
			DiscardedBytes:  discarded,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error: failed to iterate run history rows: %w", err)
	}
	return out, nil
}

// GetRun returns the full stored Report for a run, or sql.ErrNoRows if not
// found.
func (s *Store) GetRun(runID string) (*seismic.Report, error) {
	var reportJSON string
	err := s.db.QueryRow(`SELECT report_json FROM runs WHERE run_id = ?`, runID).Scan(&reportJSON)
	if err != nil {
		return nil, err
	}
	var report seismic.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

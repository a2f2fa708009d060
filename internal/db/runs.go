package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run is one batch invocation of a pipeline stage.
type Run struct {
	ID           string     `json:"run_id"`
	Version      string     `json:"version"`
	Stage        string     `json:"stage"`
	Started      time.Time  `json:"started"`
	Finished     *time.Time `json:"finished,omitempty"`
	FilesTotal   int        `json:"files_total"`
	FilesFailed  int        `json:"files_failed"`
	FilesSkipped int        `json:"files_skipped"`
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func fromUnixSeconds(s float64) time.Time {
	return time.Unix(0, int64(s*1e9)).UTC()
}

// StartRun records the start of a run.
func (db *DB) StartRun(r Run) error {
	_, err := db.Exec(
		`INSERT INTO runs (run_id, version, stage, started_unix) VALUES (?, ?, ?, ?)`,
		r.ID, r.Version, r.Stage, unixSeconds(r.Started),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", r.ID, err)
	}
	return nil
}

// FinishRun records the end of a run and its file counts.
func (db *DB) FinishRun(r Run) error {
	if r.Finished == nil {
		return fmt.Errorf("finish run %s: no finish time", r.ID)
	}
	res, err := db.Exec(
		`UPDATE runs SET finished_unix = ?, files_total = ?, files_failed = ?, files_skipped = ?
		 WHERE run_id = ?`,
		unixSeconds(*r.Finished), r.FilesTotal, r.FilesFailed, r.FilesSkipped, r.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: not found", r.ID)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, version, stage, started_unix, finished_unix, files_total, files_failed, files_skipped
		 FROM runs ORDER BY started_unix DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  float64
			finished sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Version, &r.Stage, &started, &finished,
			&r.FilesTotal, &r.FilesFailed, &r.FilesSkipped); err != nil {
			return nil, err
		}
		r.Started = fromUnixSeconds(started)
		if finished.Valid {
			t := fromUnixSeconds(finished.Float64)
			r.Finished = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Fingerprint returns the content fingerprint recorded for path at the
// given stage and version, and whether one exists.
func (db *DB) Fingerprint(path, stage, version string) (string, bool, error) {
	var fp string
	err := db.QueryRow(
		`SELECT fingerprint FROM ingested_files WHERE path = ? AND stage = ? AND version = ?`,
		path, stage, version,
	).Scan(&fp)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup fingerprint %s: %w", path, err)
	}
	return fp, true, nil
}

// RecordIngest stores the fingerprint of a successfully processed input.
func (db *DB) RecordIngest(path, stage, version, fingerprint, runID string, at time.Time) error {
	_, err := db.Exec(
		`INSERT INTO ingested_files (path, stage, version, fingerprint, run_id, ingested_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (path, stage, version) DO UPDATE SET
		   fingerprint = excluded.fingerprint,
		   run_id = excluded.run_id,
		   ingested_unix = excluded.ingested_unix`,
		path, stage, version, fingerprint, runID, unixSeconds(at),
	)
	if err != nil {
		return fmt.Errorf("record ingest %s: %w", path, err)
	}
	return nil
}

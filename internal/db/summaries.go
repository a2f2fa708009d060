package db

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/gaze.report/internal/merge"
)

// ReplaceVisitSummaries stores the merged visit summaries of one
// participant, replacing earlier results for the same version.
func (db *DB) ReplaceVisitSummaries(version, wid string, sums []merge.Summary) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM visit_summaries WHERE version = ? AND wid = ?`, version, wid); err != nil {
		return fmt.Errorf("clear visit summaries for %s: %w", wid, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO visit_summaries (
			version, wid, trial_index, visit, fixation_count, saccade_count, gaze_samples, summary_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range sums {
		doc, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode summary %d/%d: %w", s.TrialIndex, s.Visit, err)
		}
		samples := 0
		for _, n := range s.Gaze {
			samples += n
		}
		_, err = stmt.Exec(version, wid, s.TrialIndex, s.Visit,
			len(s.Fixations), len(s.Saccades), samples, string(doc))
		if err != nil {
			return fmt.Errorf("insert summary %d/%d of %s: %w", s.TrialIndex, s.Visit, wid, err)
		}
	}
	return tx.Commit()
}

// VisitSummaries returns the stored summaries of one participant ordered by
// trial and visit.
func (db *DB) VisitSummaries(version, wid string) ([]merge.Summary, error) {
	rows, err := db.Query(`
		SELECT summary_json FROM visit_summaries
		WHERE version = ? AND wid = ?
		ORDER BY trial_index, visit`, version, wid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []merge.Summary
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var s merge.Summary
		if err := json.Unmarshal([]byte(doc), &s); err != nil {
			return nil, fmt.Errorf("decode stored summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

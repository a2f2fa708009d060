package db

import (
	"encoding/json"
	"fmt"

	"github.com/banshee-data/gaze.report/internal/trial"
)

// ReplaceTrials stores the analysed trials of one participant, replacing any
// earlier results for the same version.
func (db *DB) ReplaceTrials(version, wid, runID string, recs []trial.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM trials WHERE version = ? AND wid = ?`, version, wid); err != nil {
		return fmt.Errorf("clear trials for %s: %w", wid, err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO trials (
			version, wid, trial_index, type, df, difficulty, difficulty_1, difficulty_2,
			accuracy, accuracy_1, rt_first_visit, rt_second_visit, rt,
			max_reward, loss, record_json, run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode trial %d: %w", r.TrialIndex, err)
		}
		_, err = stmt.Exec(
			version, wid, r.TrialIndex, r.Type, nullInt(r.DF),
			nullFloat(r.Difficulty), nullFloat(r.Difficulty1), nullFloat(r.Difficulty2),
			r.Accuracy, r.Accuracy1,
			nullFloat(r.RTFirstVisit), nullFloat(r.RTSecondVisit), nullFloat(r.RT),
			r.MaxReward, r.Loss, string(doc), runID,
		)
		if err != nil {
			return fmt.Errorf("insert trial %d of %s: %w", r.TrialIndex, wid, err)
		}
	}
	return tx.Commit()
}

// Trials returns the stored trials for version ordered by participant and
// trial index. An empty wid selects every participant.
func (db *DB) Trials(version, wid string) ([]trial.Record, error) {
	rows, err := db.Query(`
		SELECT record_json FROM trials
		WHERE version = ? AND (? = '' OR wid = ?)
		ORDER BY wid, trial_index`, version, wid, wid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trial.Record
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var r trial.Record
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode stored trial: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Participants lists the participant ids with stored trials for version.
func (db *DB) Participants(version string) ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT wid FROM trials WHERE version = ? ORDER BY wid`, version)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var wids []string
	for rows.Next() {
		var wid string
		if err := rows.Scan(&wid); err != nil {
			return nil, err
		}
		wids = append(wids, wid)
	}
	return wids, rows.Err()
}

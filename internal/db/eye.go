package db

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/banshee-data/gaze.report/internal/eyelink"
)

// eyeColumns are the eye_records columns holding eyelink.Columns, in the
// same order. Names differ where the table column would be an SQL keyword.
var eyeColumns = []string{
	"type", "trial_index", "visit", "switch_count", "event",
	"time", "time_event", "time_offset",
	"eye", "start_time", "end_time", "duration",
	"node", "x", "y", "pupil",
	"start_x", "start_y", "end_x", "end_y", "amplitude", "peak_velocity",
	"start_node", "end_node", "aligned",
}

// ReplaceEyeRecords stores the parsed records of one participant's log,
// replacing earlier results for the same version.
func (db *DB) ReplaceEyeRecords(version, pid string, recs []eyelink.Record) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM eye_records WHERE version = ? AND pid = ?`, version, pid); err != nil {
		return fmt.Errorf("clear eye records for %s: %w", pid, err)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(eyeColumns)+3), ", ")
	stmt, err := tx.Prepare(fmt.Sprintf(
		`INSERT INTO eye_records (version, pid, seq, %s) VALUES (%s)`,
		strings.Join(eyeColumns, ", "), placeholders,
	))
	if err != nil {
		return err
	}
	defer stmt.Close()

	args := make([]any, len(eyeColumns)+3)
	for seq, rec := range recs {
		args[0], args[1], args[2] = version, pid, seq
		for i, cell := range eyelink.Row(rec) {
			if cell == "" {
				args[i+3] = nil
			} else {
				args[i+3] = cell
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert eye record %d of %s: %w", seq, pid, err)
		}
	}
	return tx.Commit()
}

// EyeRecords returns the stored records of one participant in log order.
func (db *DB) EyeRecords(version, pid string) ([]eyelink.Record, error) {
	rows, err := db.Query(fmt.Sprintf(
		`SELECT %s FROM eye_records WHERE version = ? AND pid = ? ORDER BY seq`,
		strings.Join(eyeColumns, ", "),
	), version, pid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cells := make([]sql.NullString, len(eyeColumns))
	dest := make([]any, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	var out []eyelink.Record
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cells))
		for i, c := range cells {
			row[i] = c.String
		}
		rec, err := eyelink.RecordFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode stored eye record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// EyeRecordCounts returns the number of stored records per type for one
// participant.
func (db *DB) EyeRecordCounts(version, pid string) (map[eyelink.Kind]int, error) {
	rows, err := db.Query(
		`SELECT type, COUNT(*) FROM eye_records WHERE version = ? AND pid = ? GROUP BY type`,
		version, pid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[eyelink.Kind]int)
	for rows.Next() {
		var kind string
		var n int
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[eyelink.Kind(kind)] = n
	}
	return counts, rows.Err()
}

package eyelink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Columns is the fixed header of the tabular session output. Fields that a
// record variant does not carry are written as empty cells.
var Columns = []string{
	"type", "trial_index", "visit", "switch", "event",
	"time", "time_event", "offset",
	"eye", "start", "end", "duration",
	"node", "x", "y", "pupil",
	"start_x", "start_y", "end_x", "end_y", "amplitude", "peak_velocity",
	"start_node", "end_node", "aligned",
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(Columns))
	for i, c := range Columns {
		idx[c] = i
	}
	return idx
}()

func ftoa(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// Row flattens rec into a row aligned with Columns.
func Row(rec Record) []string {
	row := make([]string, len(Columns))
	set := func(col, val string) { row[columnIndex[col]] = val }

	ctx := rec.Ctx()
	set("type", string(rec.Kind()))
	set("trial_index", strconv.Itoa(ctx.TrialIndex))
	set("visit", strconv.Itoa(ctx.Visit))
	set("switch", strconv.Itoa(ctx.Switch))
	set("event", ctx.Event)

	switch r := rec.(type) {
	case Message:
		set("time", ftoa(r.TrackerTime))
		set("time_event", ftoa(r.ExperimentTime))
		set("offset", ftoa(r.Drift))
	case Fixation:
		set("eye", r.Eye)
		set("start", ftoa(r.Start))
		set("end", ftoa(r.End))
		set("duration", ftoa(r.Duration))
		set("node", strconv.Itoa(r.Node))
		set("x", ftoa(r.X))
		set("y", ftoa(r.Y))
		set("pupil", ftoa(r.Pupil))
		set("aligned", strconv.FormatBool(r.Aligned))
	case Gaze:
		set("time", ftoa(r.Time))
		set("node", strconv.Itoa(r.Node))
		set("x", ftoa(r.X))
		set("y", ftoa(r.Y))
		set("aligned", strconv.FormatBool(r.Aligned))
	case Blink:
		set("eye", r.Eye)
		set("start", ftoa(r.Start))
		set("end", ftoa(r.End))
		set("duration", ftoa(r.Duration))
		set("aligned", strconv.FormatBool(r.Aligned))
	case Saccade:
		set("eye", r.Eye)
		set("start", ftoa(r.Start))
		set("end", ftoa(r.End))
		set("duration", ftoa(r.Duration))
		set("start_x", ftoa(r.StartX))
		set("start_y", ftoa(r.StartY))
		set("end_x", ftoa(r.EndX))
		set("end_y", ftoa(r.EndY))
		set("amplitude", ftoa(r.Amplitude))
		set("peak_velocity", ftoa(r.PeakVelocity))
		set("start_node", strconv.Itoa(r.StartNode))
		set("end_node", strconv.Itoa(r.EndNode))
		set("aligned", strconv.FormatBool(r.Aligned))
	}
	return row
}

// TableWriter streams records as CSV rows.
type TableWriter struct {
	w      *csv.Writer
	header bool
	rows   int
}

// NewTableWriter returns a TableWriter writing to w. The header is written
// with the first record, or by Flush if there were none.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: csv.NewWriter(w)}
}

// Write appends one record.
func (t *TableWriter) Write(rec Record) error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	if err := t.w.Write(Row(rec)); err != nil {
		return fmt.Errorf("write %s row: %w", rec.Kind(), err)
	}
	t.rows++
	return nil
}

// Rows returns the number of records written.
func (t *TableWriter) Rows() int { return t.rows }

// Flush writes any buffered data to the underlying writer.
func (t *TableWriter) Flush() error {
	if err := t.writeHeader(); err != nil {
		return err
	}
	t.w.Flush()
	return t.w.Error()
}

func (t *TableWriter) writeHeader() error {
	if t.header {
		return nil
	}
	t.header = true
	return t.w.Write(Columns)
}

// WriteTable writes recs as CSV with a header row.
func WriteTable(w io.Writer, recs []Record) error {
	tw := NewTableWriter(w)
	for _, rec := range recs {
		if err := tw.Write(rec); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// rowReader decodes cells by column name, keeping the first error.
type rowReader struct {
	index map[string]int
	row   []string
	err   error
}

func (rr *rowReader) str(col string) string {
	i, ok := rr.index[col]
	if !ok || i >= len(rr.row) {
		return ""
	}
	return rr.row[i]
}

func (rr *rowReader) float(col string) float64 {
	s := rr.str(col)
	if s == "" || rr.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		rr.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (rr *rowReader) int(col string) int {
	s := rr.str(col)
	if s == "" || rr.err != nil {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		rr.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (rr *rowReader) bool(col string) bool {
	s := rr.str(col)
	if s == "" || rr.err != nil {
		return false
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		rr.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (rr *rowReader) record() (Record, error) {
	ctx := Context{
		TrialIndex: rr.int("trial_index"),
		Visit:      rr.int("visit"),
		Switch:     rr.int("switch"),
		Event:      rr.str("event"),
	}
	var rec Record
	switch kind := Kind(rr.str("type")); kind {
	case KindMessage:
		rec = Message{
			Context:        ctx,
			TrackerTime:    rr.float("time"),
			ExperimentTime: rr.float("time_event"),
			Drift:          rr.float("offset"),
		}
	case KindFixation:
		rec = Fixation{
			Context:  ctx,
			Eye:      rr.str("eye"),
			Start:    rr.float("start"),
			End:      rr.float("end"),
			Duration: rr.float("duration"),
			Node:     rr.int("node"),
			X:        rr.float("x"),
			Y:        rr.float("y"),
			Pupil:    rr.float("pupil"),
			Aligned:  rr.bool("aligned"),
		}
	case KindGaze:
		rec = Gaze{
			Context: ctx,
			Time:    rr.float("time"),
			Node:    rr.int("node"),
			X:       rr.float("x"),
			Y:       rr.float("y"),
			Aligned: rr.bool("aligned"),
		}
	case KindBlink:
		rec = Blink{
			Context:  ctx,
			Eye:      rr.str("eye"),
			Start:    rr.float("start"),
			End:      rr.float("end"),
			Duration: rr.float("duration"),
			Aligned:  rr.bool("aligned"),
		}
	case KindSaccade:
		rec = Saccade{
			Context:      ctx,
			Eye:          rr.str("eye"),
			Start:        rr.float("start"),
			End:          rr.float("end"),
			Duration:     rr.float("duration"),
			StartX:       rr.float("start_x"),
			StartY:       rr.float("start_y"),
			EndX:         rr.float("end_x"),
			EndY:         rr.float("end_y"),
			Amplitude:    rr.float("amplitude"),
			PeakVelocity: rr.float("peak_velocity"),
			StartNode:    rr.int("start_node"),
			EndNode:      rr.int("end_node"),
			Aligned:      rr.bool("aligned"),
		}
	default:
		return nil, fmt.Errorf("unknown record type %q", kind)
	}
	if rr.err != nil {
		return nil, rr.err
	}
	return rec, nil
}

// RecordFromRow is the inverse of Row: it decodes a row aligned with
// Columns. Empty cells read as zero values.
func RecordFromRow(row []string) (Record, error) {
	rr := &rowReader{index: columnIndex, row: row}
	return rr.record()
}

// ReadTable decodes a table written by WriteTable. Columns are matched by
// header name, so extra or reordered columns are tolerated.
func ReadTable(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	rr := &rowReader{index: make(map[string]int, len(header))}
	for i, col := range header {
		rr.index[col] = i
	}
	if _, ok := rr.index["type"]; !ok {
		return nil, fmt.Errorf("table has no type column")
	}

	var recs []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			return recs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		rr.row, rr.err = row, nil
		rec, err := rr.record()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
}

package eyelink

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteTable(t *testing.T) {
	recs := []Record{
		Message{Context: Context{TrialIndex: 1, Event: "initialize"}, TrackerTime: 1, ExperimentTime: 11, Drift: 0},
		Fixation{Context: Context{TrialIndex: 1, Visit: 1, Event: "visit"}, Eye: "R", Start: 1.5, End: 1.7, Duration: 0.2, Node: 3, X: 1, Y: 2, Pupil: 900, Aligned: true},
		Saccade{Context: Context{TrialIndex: 1}, StartNode: -1, EndNode: 4},
	}

	var buf bytes.Buffer
	if err := WriteTable(&buf, recs); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if len(rows[0]) != len(Columns) || rows[0][0] != "type" {
		t.Fatalf("bad header: %v", rows[0])
	}

	col := func(row []string, name string) string { return row[columnIndex[name]] }
	if got := col(rows[1], "time_event"); got != "11" {
		t.Errorf("message time_event = %q, want 11", got)
	}
	if got := col(rows[1], "node"); got != "" {
		t.Errorf("message node = %q, want empty", got)
	}
	if got := col(rows[2], "node"); got != "3" {
		t.Errorf("fixation node = %q, want 3", got)
	}
	if got := col(rows[2], "visit"); got != "1" {
		t.Errorf("fixation visit = %q, want 1", got)
	}
	if got := col(rows[3], "start_node"); got != "-1" {
		t.Errorf("saccade start_node = %q, want -1", got)
	}
}

func TestTableWriter_EmptyWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	tw := NewTableWriter(&buf)
	if err := tw.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	rows, _ := csv.NewReader(&buf).ReadAll()
	if len(rows) != 1 || tw.Rows() != 0 {
		t.Errorf("rows = %v, Rows() = %d", rows, tw.Rows())
	}
}

func TestReadTable_RoundTrip(t *testing.T) {
	recs := []Record{
		Message{Context: Context{TrialIndex: 1, Event: "initialize"}, TrackerTime: 1, ExperimentTime: 11},
		Fixation{Context: Context{TrialIndex: 1, Visit: 1, Event: "visit"}, Eye: "R", Start: 1.5, End: 1.7, Duration: 0.2, Node: 3, X: 1, Y: 2, Pupil: 900, Aligned: true},
		Gaze{Context: Context{TrialIndex: 1, Visit: 1, Switch: 1}, Time: 1.6, Node: -1, X: 0.5, Y: 7},
		Blink{Context: Context{TrialIndex: 2}, Start: 3, End: 3.1, Duration: 0.1},
		Saccade{Context: Context{TrialIndex: 2}, Eye: "L", StartNode: -1, EndNode: 4, Amplitude: 2.5},
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, recs); err != nil {
		t.Fatalf("WriteTable: %v", err)
	}
	got, err := ReadTable(&buf)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if diff := cmp.Diff(recs, got); diff != "" {
		t.Errorf("ReadTable mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTable_ReorderedColumns(t *testing.T) {
	in := "node,type,trial_index,visit,duration,extra\n5,Fixation,2,1,0.25,x\n"
	got, err := ReadTable(strings.NewReader(in))
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	want := []Record{Fixation{Context: Context{TrialIndex: 2, Visit: 1}, Node: 5, Duration: 0.25}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadTable mismatch (-want +got):\n%s", diff)
	}
}

func TestReadTable_Errors(t *testing.T) {
	tests := map[string]string{
		"no type column": "trial_index,visit\n1,1\n",
		"unknown type":   "type,trial_index\nPupil,1\n",
		"bad number":     "type,trial_index\nGaze,one\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := ReadTable(strings.NewReader(in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestReadTable_Empty(t *testing.T) {
	got, err := ReadTable(strings.NewReader(""))
	if err != nil || got != nil {
		t.Errorf("ReadTable(\"\") = %v, %v", got, err)
	}
}

func TestRecordFromRow(t *testing.T) {
	want := Saccade{Context: Context{TrialIndex: 3, Visit: 2, Event: "visit"}, Eye: "R", Start: 1.25, EndNode: 7, Aligned: true}
	got, err := RecordFromRow(Row(want))
	if err != nil {
		t.Fatalf("RecordFromRow: %v", err)
	}
	if diff := cmp.Diff(Record(want), got); diff != "" {
		t.Errorf("RecordFromRow mismatch (-want +got):\n%s", diff)
	}
}

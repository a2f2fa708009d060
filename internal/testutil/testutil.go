// Package testutil provides shared test helpers and fixtures.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// WriteFixture writes content to dir/name, creating parent directories, and
// returns the full path.
func WriteFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

// SampleLog is a two-trial EyeLink log: the first trial has a start visit,
// two further visits and eye events after each; the second trial is cut
// short after its first visit.
const SampleLog = `** CONVERTED FROM samples.edf
MSG	1000 {"time": 11.0, "event": "initialize"}
MSG	1100 {"time": 11.1, "event": "visit"}
1150	960.0	162.0	900.0	...
EFIX R	1120	1180	61	960.0	162.0	900
MSG	1500 {"time": 11.5, "event": "visit"}
ESACC R	1510	1540	31	960.0	162.0	755.6	222.0	2.10	180
1550	755.6	222.0	900.0	...
1552	20.0	20.0	900.0	...
EBLINK R	1600	1700	101
MSG	2000 {"time": 12.0, "event": "visit"}
MSG	3000 {"time": 13.25, "event": "drift check"}
MSG	3100 {"time": 13.35, "event": "initialize"}
MSG	3200 {"time": 13.45, "event": "visit"}
EFIX R	3210	3400	191	616.2	383.0	880
`

// SampleSession is a session file with two trials over the same
// two-layer tree; the first is played optimally, the second is not.
const SampleSession = `{
  "practice_data": [{"trial": "practice", "score": 1}],
  "trial_data": [
    {
      "trial": {"graph": [[1, 2], [3, 4], [5, 6], [], [], [], []], "rewards": [null, 1, 2, 5, 1, 3, 0], "start": 0},
      "events": [
        {"event": "initialize", "time": 11.0},
        {"event": "visit", "time": 11.1, "state": 0},
        {"event": "select", "time": 11.3, "selected": 1},
        {"event": "visit", "time": 11.5, "state": 1},
        {"event": "select", "time": 11.8, "selected": 3},
        {"event": "visit", "time": 12.0, "state": 3}
      ]
    },
    {
      "trial": {"graph": [[1, 2], [3, 4], [5, 6], [], [], [], []], "rewards": [null, 1, 2, 5, 1, 3, 0], "start": 0},
      "events": [
        {"event": "initialize", "time": 13.35},
        {"event": "visit", "time": 13.45, "state": 0},
        {"event": "select", "time": 13.6, "selected": 2},
        {"event": "visit", "time": 13.7, "state": 2},
        {"event": "visit", "time": 14.2, "state": 6}
      ]
    }
  ]
}`

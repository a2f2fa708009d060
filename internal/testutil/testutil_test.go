package testutil

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
)

func TestAssertHelpers_Passing(t *testing.T) {
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertNoError(t, nil)
	AssertError(t, errors.New("boom"))
}

func TestNewTestRequest(t *testing.T) {
	req := NewTestRequest(http.MethodDelete, "/api/trials")
	if req.Method != http.MethodDelete || req.URL.Path != "/api/trials" {
		t.Errorf("request = %s %s", req.Method, req.URL.Path)
	}
	if rec := NewTestRecorder(); rec.Code != http.StatusOK {
		t.Errorf("recorder code = %d", rec.Code)
	}
}

func TestWriteFixture(t *testing.T) {
	path := WriteFixture(t, t.TempDir(), "exp/v1/p01.json", SampleSession)
	data, err := os.ReadFile(path)
	AssertNoError(t, err)
	if !strings.Contains(string(data), "trial_data") {
		t.Errorf("fixture content = %q", data)
	}
}

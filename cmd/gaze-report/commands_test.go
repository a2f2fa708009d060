package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/db"
	"github.com/banshee-data/gaze.report/internal/monitoring"
	"github.com/banshee-data/gaze.report/internal/report"
	"github.com/banshee-data/gaze.report/internal/testutil"
)

func init() {
	monitoring.SetLogger(nil)
}

// setupTree writes one participant's session file and sample log under a
// fresh data root and a config file pointing at it.
func setupTree(t *testing.T) (root, cfgPath string) {
	t.Helper()
	t.Setenv(config.EnvVersion, "")
	t.Setenv(config.EnvDataRoot, "")
	t.Setenv(config.EnvDB, "")

	root = t.TempDir()
	testutil.WriteFixture(t, root, "data/exp/v1/p01.json", testutil.SampleSession)
	testutil.WriteFixture(t, root, "data/eyelink/p01/samples.asc", testutil.SampleLog)
	cfgPath = testutil.WriteFixture(t, root, "gaze.json",
		fmt.Sprintf(`{"data_root": %q, "workers": 1}`, filepath.Join(root, "data")))
	return root, cfgPath
}

func execute(t *testing.T, args ...string) (string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(args, &out, &errOut)
	return out.String() + errOut.String(), code
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	if root.Use != "gaze-report" {
		t.Errorf("expected Use 'gaze-report', got %q", root.Use)
	}
	want := []string{"eye", "merge", "migrate", "process", "report", "serve", "trials", "version"}
	var got []string
	for _, c := range root.Commands() {
		got = append(got, c.Name())
	}
	for _, name := range want {
		found := false
		for _, g := range got {
			if g == name {
				found = true
			}
		}
		if !found {
			t.Errorf("missing subcommand %q in %v", name, got)
		}
	}
	for _, flag := range []string{"config", "db", "env-file"} {
		if root.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing --%s", flag)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, code := execute(t, "version")
	if code != 0 || !strings.HasPrefix(out, "gaze-report ") {
		t.Errorf("version = %q (exit %d)", out, code)
	}
}

func TestProcessReportAndLedger(t *testing.T) {
	root, cfgPath := setupTree(t)
	dbPath := filepath.Join(root, "gaze.db")

	out, code := execute(t, "--config", cfgPath, "--db", dbPath, "process", "v1")
	if code != 0 {
		t.Fatalf("process exit %d:\n%s", code, out)
	}
	for _, stage := range []string{"trials", "eye", "merge"} {
		if !strings.Contains(out, stage) {
			t.Errorf("output missing %s stage:\n%s", stage, out)
		}
	}
	for _, p := range []string{
		"data/processed/v1/trial_data/p01.json",
		"data/processed/v1/practice_data/p01.json",
		"data/processed/v1/eyetracking/p01.csv",
		"data/processed/v1/merged/p01.json",
	} {
		if _, err := os.Stat(filepath.Join(root, p)); err != nil {
			t.Errorf("missing output %s: %v", p, err)
		}
	}

	out, code = execute(t, "--config", cfgPath, "--db", dbPath, "trials", "v1")
	if code != 0 || !strings.Contains(out, "1 skipped") {
		t.Errorf("second trials run should skip the unchanged file (exit %d):\n%s", code, out)
	}

	outDir := filepath.Join(root, "report")
	out, code = execute(t, "--config", cfgPath, "--db", dbPath, "report", "v1", "--out", outDir)
	if code != 0 {
		t.Fatalf("report exit %d:\n%s", code, out)
	}
	for _, name := range []string{"summary.json", "dashboard.html", "rt.png"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing report output %s: %v", name, err)
		}
	}
	b, err := os.ReadFile(filepath.Join(outDir, "summary.json"))
	testutil.AssertNoError(t, err)
	var sum report.Summary
	testutil.AssertNoError(t, json.Unmarshal(b, &sum))
	if sum.Overall.Count != 2 || sum.Participants != 1 {
		t.Errorf("summary from db = %+v", sum.Overall)
	}

	// Without a database the report reads the processed trial files.
	fileDir := filepath.Join(root, "report-files")
	out, code = execute(t, "--config", cfgPath, "report", "v1", "--out", fileDir)
	if code != 0 || !strings.Contains(out, "2 trials from 1 participants") {
		t.Errorf("file report (exit %d):\n%s", code, out)
	}
}

func TestProcess_PartialFailure(t *testing.T) {
	root, cfgPath := setupTree(t)
	testutil.WriteFixture(t, root, "data/exp/v1/p02.json", "{not json")

	out, code := execute(t, "--config", cfgPath, "trials", "v1")
	if code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if !strings.Contains(out, "FAIL") || !strings.Contains(out, "p02.json") {
		t.Errorf("failure not reported:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, "data/processed/v1/trial_data/p01.json")); err != nil {
		t.Errorf("good file not processed: %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	root, _ := setupTree(t)
	bad := testutil.WriteFixture(t, root, "bad.json", `{"workers": 0}`)
	if _, code := execute(t, "--config", bad, "trials"); code != 1 {
		t.Errorf("exit = %d, want 1", code)
	}
	if _, code := execute(t, "--config", filepath.Join(root, "gaze.yaml"), "trials"); code != 1 {
		t.Errorf("exit = %d for non-json config, want 1", code)
	}
}

func TestServe_RequiresDatabase(t *testing.T) {
	_, cfgPath := setupTree(t)
	out, code := execute(t, "--config", cfgPath, "serve")
	if code != 1 || !strings.Contains(out, "no database configured") {
		t.Errorf("serve without db (exit %d):\n%s", code, out)
	}
}

func TestMigrateCommands(t *testing.T) {
	root, cfgPath := setupTree(t)
	dbPath := filepath.Join(root, "gaze.db")

	status := func(out string) db.MigrationStatus {
		t.Helper()
		var s db.MigrationStatus
		line := strings.TrimSpace(out)
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			t.Fatalf("decode status %q: %v", line, err)
		}
		return s
	}

	out, code := execute(t, "--config", cfgPath, "--db", dbPath, "migrate", "status")
	if code != 0 {
		t.Fatalf("status exit %d: %s", code, out)
	}
	if s := status(out); !s.Pending() {
		t.Errorf("fresh database not pending: %+v", s)
	}

	out, code = execute(t, "--config", cfgPath, "--db", dbPath, "migrate", "up")
	if code != 0 {
		t.Fatalf("up exit %d: %s", code, out)
	}
	up := status(out)
	if up.Pending() || up.CurrentVersion == 0 {
		t.Errorf("after up: %+v", up)
	}

	out, code = execute(t, "--config", cfgPath, "--db", dbPath, "migrate", "down")
	if code != 0 {
		t.Fatalf("down exit %d: %s", code, out)
	}
	if s := status(out); s.CurrentVersion != up.CurrentVersion-1 {
		t.Errorf("after down: %+v", s)
	}

	if _, code := execute(t, "--config", cfgPath, "migrate", "status"); code != 1 {
		t.Errorf("migrate without db exit = %d, want 1", code)
	}
}

func TestMissingEnvFile(t *testing.T) {
	root, cfgPath := setupTree(t)
	out, code := execute(t, "--config", cfgPath, "--env-file", filepath.Join(root, "missing.env"), "trials", "v1")
	if code != 1 || !strings.Contains(out, "missing.env") {
		t.Errorf("missing env file (exit %d):\n%s", code, out)
	}
}

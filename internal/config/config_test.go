package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/gaze.report/internal/spatial"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := Empty()

	if got := cfg.GetVersion(); got != "v1" {
		t.Errorf("GetVersion() = %q, want v1", got)
	}
	if got := cfg.GetDataRoot(); got != "data" {
		t.Errorf("GetDataRoot() = %q, want data", got)
	}
	if got := cfg.GetASCEncoding(); got != "ISO-8859-1" {
		t.Errorf("GetASCEncoding() = %q", got)
	}
	if got := cfg.GetASCFilename(); got != "samples.asc" {
		t.Errorf("GetASCFilename() = %q", got)
	}
	if diff := cmp.Diff([]string{"*test*", "*txt*"}, cfg.GetSkipPatterns()); diff != "" {
		t.Errorf("GetSkipPatterns() mismatch (-want +got):\n%s", diff)
	}
	if cfg.GetWorkers() != 4 || cfg.GetMaxVisits() != 4 {
		t.Errorf("workers/max_visits = %d/%d, want 4/4", cfg.GetWorkers(), cfg.GetMaxVisits())
	}
	if cfg.GetDBPath() != "" || cfg.GetEyeCompression() != CompressionNone {
		t.Errorf("db_path/eye_compression = %q/%q", cfg.GetDBPath(), cfg.GetEyeCompression())
	}
	if len(cfg.GetNodeLayout()) != len(spatial.DefaultLayout) {
		t.Errorf("GetNodeLayout() has %d nodes", len(cfg.GetNodeLayout()))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config should validate: %v", err)
	}
}

func TestDirectories(t *testing.T) {
	cfg := &Config{DataRoot: ptrString("/srv/data"), Version: ptrString("v3")}
	tests := map[string]string{
		cfg.ExpDir():                      "/srv/data/exp/v3",
		cfg.EyelinkDir():                  "/srv/data/eyelink",
		cfg.ProcessedDir(DirTrialData):    "/srv/data/processed/v3/trial_data",
		cfg.ProcessedDir(DirPracticeData): "/srv/data/processed/v3/practice_data",
		cfg.ProcessedDir(DirMerged):       "/srv/data/processed/v3/merged",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "gaze.json", `{
  "version": "v2",
  "workers": 2,
  "eye_compression": "zstd",
  "skip_patterns": ["*pilot*"],
  "node_layout": [[0, 0], [100, 0], [0, 100]],
  "max_visits": 3
}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.GetVersion() != "v2" || cfg.GetWorkers() != 2 || cfg.GetMaxVisits() != 3 {
		t.Errorf("loaded %+v", cfg)
	}
	if cfg.GetEyeCompression() != CompressionZstd {
		t.Errorf("eye_compression = %q", cfg.GetEyeCompression())
	}
	if diff := cmp.Diff([]string{"*pilot*"}, cfg.GetSkipPatterns()); diff != "" {
		t.Errorf("skip_patterns mismatch (-want +got):\n%s", diff)
	}
	want := []spatial.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 100}}
	if diff := cmp.Diff(want, cfg.GetNodeLayout()); diff != "" {
		t.Errorf("node_layout mismatch (-want +got):\n%s", diff)
	}
	// Unset keys keep defaults.
	if cfg.GetDataRoot() != "data" {
		t.Errorf("data_root = %q, want default", cfg.GetDataRoot())
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		body    string
		wantErr string
	}{
		{"extension", "gaze.yaml", `{}`, ".json extension"},
		{"syntax", "gaze.json", `{"workers": }`, "parse config JSON"},
		{"workers", "gaze.json", `{"workers": 0}`, "workers"},
		{"max visits", "gaze.json", `{"max_visits": -1}`, "max_visits"},
		{"compression", "gaze.json", `{"eye_compression": "gzip"}`, "eye_compression"},
		{"encoding", "gaze.json", `{"asc_encoding": "klingon"}`, "asc_encoding"},
		{"pattern", "gaze.json", `{"skip_patterns": ["[a-"]}`, "skip_patterns"},
		{"layout", "gaze.json", `{"node_layout": [[1, 1], [1, 1]]}`, "node_layout"},
		{"version", "gaze.json", `{"version": ""}`, "version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_TooLarge(t *testing.T) {
	big := `{"version": "v1", "pad": "` + strings.Repeat("x", 1024*1024) + `"}`
	_, err := Load(writeConfig(t, "big.json", big))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Load error = %v, want size error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(envFile, []byte("GAZE_REPORT_DB=from-dotenv.db\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvVersion, "v9")
	t.Setenv(EnvDataRoot, "")
	// Registered for restore, then unset so the .env value applies.
	t.Setenv(EnvDB, "")
	os.Unsetenv(EnvDB)

	cfg := &Config{Version: ptrString("v1"), DataRoot: ptrString("keep")}
	if err := cfg.ApplyEnv(envFile); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.GetVersion() != "v9" {
		t.Errorf("version = %q, want v9 from environment", cfg.GetVersion())
	}
	if cfg.GetDataRoot() != "keep" {
		t.Errorf("data_root = %q, empty variable should not override", cfg.GetDataRoot())
	}
	if cfg.GetDBPath() != "from-dotenv.db" {
		t.Errorf("db_path = %q, want value from .env file", cfg.GetDBPath())
	}
}

func TestApplyEnv_MissingFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.env")
	if err := os.WriteFile(good, []byte("GAZE_REPORT_VERSION=v9\n"), 0644); err != nil {
		t.Fatal(err)
	}
	missing := filepath.Join(dir, "missing.env")
	t.Setenv(EnvVersion, "")
	os.Unsetenv(EnvVersion)
	t.Setenv(EnvDataRoot, "")
	t.Setenv(EnvDB, "")

	cfg := Empty()
	err := cfg.ApplyEnv(missing, good)
	if err == nil || !strings.Contains(err.Error(), "missing.env") {
		t.Errorf("ApplyEnv error = %v, want one naming missing.env", err)
	}
	if cfg.GetVersion() != "v9" {
		t.Errorf("version = %q, want v9 from the file after the missing one", cfg.GetVersion())
	}
}

func TestApplyEnv_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvVersion, "")
	t.Setenv(EnvDataRoot, "")
	t.Setenv(EnvDB, "")

	if err := Empty().ApplyEnv(); err != nil {
		t.Errorf("ApplyEnv without .env: %v", err)
	}
}

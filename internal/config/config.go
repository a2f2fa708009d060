package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"

	"github.com/banshee-data/gaze.report/internal/eyelink"
	"github.com/banshee-data/gaze.report/internal/spatial"
)

// Environment variables that override file settings.
const (
	EnvVersion  = "GAZE_REPORT_VERSION"
	EnvDataRoot = "GAZE_REPORT_DATA_ROOT"
	EnvDB       = "GAZE_REPORT_DB"
)

// Eye table compression modes.
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
)

// Output directory names under processed/<version>/.
const (
	DirTrialData    = "trial_data"
	DirPracticeData = "practice_data"
	DirEyetracking  = "eyetracking"
	DirMerged       = "merged"
)

// Config is the pipeline configuration. Every field is optional; the Get*
// methods supply defaults for unset fields, so partial files are safe.
type Config struct {
	Version        *string      `json:"version,omitempty"`
	DataRoot       *string      `json:"data_root,omitempty"`
	ASCEncoding    *string      `json:"asc_encoding,omitempty"`
	ASCFilename    *string      `json:"asc_filename,omitempty"`
	SkipPatterns   []string     `json:"skip_patterns,omitempty"` // doublestar globs matched against file names
	Workers        *int         `json:"workers,omitempty"`
	DBPath         *string      `json:"db_path,omitempty"`
	EyeCompression *string      `json:"eye_compression,omitempty"`
	NodeLayout     [][2]float64 `json:"node_layout,omitempty"`
	MaxVisits      *int         `json:"max_visits,omitempty"`
}

func ptrString(v string) *string { return &v }

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be under 1MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// ApplyEnv loads .env files and then applies the GAZE_REPORT_* environment
// overrides. With no files named it loads the working directory's .env if
// there is one. Every named file is loaded even when an earlier one fails,
// and the failures are returned after the overrides are applied.
func (c *Config) ApplyEnv(files ...string) error {
	var errs []error
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("load .env: %w", err))
		}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			errs = append(errs, fmt.Errorf("load env file: %w", err))
		}
	}

	if v := os.Getenv(EnvVersion); v != "" {
		c.Version = ptrString(v)
	}
	if v := os.Getenv(EnvDataRoot); v != "" {
		c.DataRoot = ptrString(v)
	}
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = ptrString(v)
	}
	return errors.Join(errs...)
}

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	if c.Version != nil && *c.Version == "" {
		return fmt.Errorf("version must not be empty")
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.MaxVisits != nil && *c.MaxVisits < 1 {
		return fmt.Errorf("max_visits must be at least 1, got %d", *c.MaxVisits)
	}
	if c.EyeCompression != nil {
		switch *c.EyeCompression {
		case CompressionNone, CompressionZstd:
		default:
			return fmt.Errorf("eye_compression must be %q or %q, got %q", CompressionNone, CompressionZstd, *c.EyeCompression)
		}
	}
	if c.ASCEncoding != nil {
		if _, err := eyelink.LookupEncoding(*c.ASCEncoding); err != nil {
			return fmt.Errorf("asc_encoding: %w", err)
		}
	}
	for _, p := range c.SkipPatterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("skip_patterns: invalid pattern %q", p)
		}
	}
	if c.NodeLayout != nil {
		if _, err := spatial.NewClassifier(c.GetNodeLayout()); err != nil {
			return fmt.Errorf("node_layout: %w", err)
		}
	}
	return nil
}

// GetVersion returns the experiment version or the default "v1".
func (c *Config) GetVersion() string {
	if c.Version == nil {
		return "v1"
	}
	return *c.Version
}

// GetDataRoot returns the data_root value or the default.
func (c *Config) GetDataRoot() string {
	if c.DataRoot == nil {
		return "data"
	}
	return *c.DataRoot
}

// GetASCEncoding returns the asc_encoding value or the default.
func (c *Config) GetASCEncoding() string {
	if c.ASCEncoding == nil {
		return eyelink.DefaultEncoding
	}
	return *c.ASCEncoding
}

// GetASCFilename returns the name of the per-participant sample log.
func (c *Config) GetASCFilename() string {
	if c.ASCFilename == nil {
		return "samples.asc"
	}
	return *c.ASCFilename
}

// GetSkipPatterns returns the skip_patterns value or the default.
func (c *Config) GetSkipPatterns() []string {
	if c.SkipPatterns == nil {
		return []string{"*test*", "*txt*"}
	}
	return c.SkipPatterns
}

// GetWorkers returns the workers value or the default.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetDBPath returns the results database path; empty disables the store.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}

// GetEyeCompression returns the eye_compression value or the default.
func (c *Config) GetEyeCompression() string {
	if c.EyeCompression == nil {
		return CompressionNone
	}
	return *c.EyeCompression
}

// GetNodeLayout returns the node_layout value or spatial.DefaultLayout.
func (c *Config) GetNodeLayout() []spatial.Point {
	if c.NodeLayout == nil {
		return spatial.DefaultLayout
	}
	pts := make([]spatial.Point, len(c.NodeLayout))
	for i, xy := range c.NodeLayout {
		pts[i] = spatial.Point{X: xy[0], Y: xy[1]}
	}
	return pts
}

// GetMaxVisits returns the number of visits summarised per trial.
func (c *Config) GetMaxVisits() int {
	if c.MaxVisits == nil {
		return 4
	}
	return *c.MaxVisits
}

// ExpDir is where session files for the configured version live.
func (c *Config) ExpDir() string {
	return filepath.Join(c.GetDataRoot(), "exp", c.GetVersion())
}

// EyelinkDir holds one directory per participant with its sample log.
func (c *Config) EyelinkDir() string {
	return filepath.Join(c.GetDataRoot(), "eyelink")
}

// ProcessedDir returns processed/<version>/<name> under the data root.
func (c *Config) ProcessedDir(name string) string {
	return filepath.Join(c.GetDataRoot(), "processed", c.GetVersion(), name)
}

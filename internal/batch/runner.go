// Package batch runs the pipeline stages over an experiment's data tree:
// session files into trial records, sample logs into eye tables, and the
// two joined into per-visit summaries. Files are processed in parallel and a
// failing file never stops the others.
package batch

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/blake3"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/db"
	"github.com/banshee-data/gaze.report/internal/eyelink"
	"github.com/banshee-data/gaze.report/internal/fsutil"
	"github.com/banshee-data/gaze.report/internal/merge"
	"github.com/banshee-data/gaze.report/internal/monitoring"
	"github.com/banshee-data/gaze.report/internal/spatial"
	"github.com/banshee-data/gaze.report/internal/timeutil"
	"github.com/banshee-data/gaze.report/internal/trial"
)

// Stage names a pipeline step.
type Stage string

const (
	StageTrials Stage = "trials"
	StageEye    Stage = "eye"
	StageMerge  Stage = "merge"
)

// Stages lists every stage in dependency order.
var Stages = []Stage{StageTrials, StageEye, StageMerge}

// ParseStage maps a stage name to a Stage.
func ParseStage(name string) (Stage, error) {
	for _, s := range Stages {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", name)
}

// Store persists results and the ingest ledger. *db.DB implements it.
type Store interface {
	StartRun(r db.Run) error
	FinishRun(r db.Run) error
	Fingerprint(path, stage, version string) (string, bool, error)
	RecordIngest(path, stage, version, fingerprint, runID string, at time.Time) error
	ReplaceTrials(version, wid, runID string, recs []trial.Record) error
	ReplaceEyeRecords(version, pid string, recs []eyelink.Record) error
	ReplaceVisitSummaries(version, wid string, sums []merge.Summary) error
}

// Runner executes stages against one configuration. It is safe to reuse
// across stages but not to run two stages at once.
type Runner struct {
	cfg        *config.Config
	fsys       fsutil.FileSystem
	store      Store
	clock      timeutil.Clock
	force      bool
	classifier *spatial.Classifier
	parser     *eyelink.Parser
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore persists results and consults the ingest ledger.
func WithStore(s Store) Option { return func(r *Runner) { r.store = s } }

// WithClock replaces the wall clock.
func WithClock(c timeutil.Clock) Option { return func(r *Runner) { r.clock = c } }

// WithForce reprocesses inputs whose fingerprint is unchanged.
func WithForce(force bool) Option { return func(r *Runner) { r.force = force } }

// NewRunner validates cfg and builds the parser it describes.
func NewRunner(cfg *config.Config, fsys fsutil.FileSystem, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := spatial.NewClassifier(cfg.GetNodeLayout())
	if err != nil {
		return nil, err
	}
	p, err := eyelink.NewParser(c, eyelink.WithEncoding(cfg.GetASCEncoding()))
	if err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:        cfg,
		fsys:       fsys,
		clock:      timeutil.RealClock{},
		classifier: c,
		parser:     p,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// FileResult is the outcome of one input.
type FileResult struct {
	Path    string `json:"path"`
	Output  string `json:"output,omitempty"`
	Records int    `json:"records"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     error  `json:"-"`
}

// Summary reports one stage run.
type Summary struct {
	RunID    string       `json:"run_id"`
	Stage    Stage        `json:"stage"`
	Version  string       `json:"version"`
	Started  time.Time    `json:"started"`
	Finished time.Time    `json:"finished"`
	Files    []FileResult `json:"files"`
}

// Failed counts inputs that produced an error.
func (s *Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		if f.Err != nil {
			n++
		}
	}
	return n
}

// Skipped counts inputs left alone because they were unchanged.
func (s *Summary) Skipped() int {
	n := 0
	for _, f := range s.Files {
		if f.Skipped {
			n++
		}
	}
	return n
}

// Err joins the per-file errors, or returns nil.
func (s *Summary) Err() error {
	var errs []error
	for _, f := range s.Files {
		if f.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Path, f.Err))
		}
	}
	return errors.Join(errs...)
}

// job is one unit of work. key identifies it in the ledger; sources are
// hashed together for its fingerprint and handed to the handler in order.
type job struct {
	key     string
	id      string
	sources []string
}

// handler processes one job. It returns the output path and record count.
type handler func(ctx context.Context, runID string, j job, data [][]byte) (string, int, error)

// Run executes one stage. The returned error covers setup failures and
// cancellation only; per-file failures are in the Summary.
func (r *Runner) Run(ctx context.Context, stage Stage) (*Summary, error) {
	var (
		jobs []job
		h    handler
		err  error
	)
	switch stage {
	case StageTrials:
		jobs, err = r.trialJobs()
		h = r.processTrials
	case StageEye:
		jobs, err = r.eyeJobs()
		h = r.processEye
	case StageMerge:
		jobs, err = r.mergeJobs()
		h = r.processMerge
	default:
		return nil, fmt.Errorf("unknown stage %q", stage)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: discover inputs: %w", stage, err)
	}
	return r.run(ctx, stage, jobs, h)
}

// Process runs every stage in order and returns their summaries. It stops
// early only on setup failure or cancellation.
func (r *Runner) Process(ctx context.Context) ([]*Summary, error) {
	var out []*Summary
	for _, stage := range Stages {
		s, err := r.Run(ctx, stage)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Runner) run(ctx context.Context, stage Stage, jobs []job, h handler) (*Summary, error) {
	logf := monitoring.Prefixed(string(stage))
	sum := &Summary{
		RunID:   uuid.NewString(),
		Stage:   stage,
		Version: r.cfg.GetVersion(),
		Started: r.clock.Now(),
		Files:   make([]FileResult, len(jobs)),
	}
	if r.store != nil {
		if err := r.store.StartRun(db.Run{ID: sum.RunID, Version: sum.Version, Stage: string(stage), Started: sum.Started}); err != nil {
			return nil, err
		}
	}
	logf("run %s: %d inputs for version %s", sum.RunID, len(jobs), sum.Version)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.GetWorkers())
	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := r.runJob(ctx, stage, sum.RunID, j, h)
			if res.Err != nil {
				logf("%s: %v", j.key, res.Err)
			}
			sum.Files[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	sum.Finished = r.clock.Now()
	if r.store != nil {
		finished := sum.Finished
		err := r.store.FinishRun(db.Run{
			ID:           sum.RunID,
			Finished:     &finished,
			FilesTotal:   len(jobs),
			FilesFailed:  sum.Failed(),
			FilesSkipped: sum.Skipped(),
		})
		if err != nil {
			return sum, err
		}
	}
	logf("run %s: %d processed, %d skipped, %d failed in %s",
		sum.RunID, len(jobs)-sum.Failed()-sum.Skipped(), sum.Skipped(), sum.Failed(),
		sum.Finished.Sub(sum.Started).Round(time.Millisecond))
	return sum, nil
}

func (r *Runner) runJob(ctx context.Context, stage Stage, runID string, j job, h handler) FileResult {
	res := FileResult{Path: j.key}
	data := make([][]byte, len(j.sources))
	for i, src := range j.sources {
		b, err := r.fsys.ReadFile(src)
		if err != nil {
			res.Err = err
			return res
		}
		data[i] = b
	}
	fp := Fingerprint(append([][]byte{r.settings(stage)}, data...)...)

	version := r.cfg.GetVersion()
	if r.store != nil && !r.force {
		prev, ok, err := r.store.Fingerprint(j.key, string(stage), version)
		if err != nil {
			res.Err = err
			return res
		}
		if ok && prev == fp {
			res.Skipped = true
			return res
		}
	}

	res.Output, res.Records, res.Err = h(ctx, runID, j, data)
	if res.Err == nil && r.store != nil {
		res.Err = r.store.RecordIngest(j.key, string(stage), version, fp, runID, r.clock.Now())
	}
	return res
}

// settings encodes the configuration values that shape a stage's outputs,
// so a change to any of them invalidates the ledger for that stage.
func (r *Runner) settings(stage Stage) []byte {
	switch stage {
	case StageEye:
		return fmt.Appendf(nil, "layout=%v encoding=%s compression=%s",
			r.classifier.Nodes(), r.cfg.GetASCEncoding(), r.cfg.GetEyeCompression())
	case StageMerge:
		return fmt.Appendf(nil, "layout=%v visits=%d", r.classifier.Nodes(), r.cfg.GetMaxVisits())
	}
	return nil
}

// Fingerprint returns the hex blake3 digest used by the ingest ledger. Each
// part is length-prefixed, so moving bytes between parts changes the digest.
func Fingerprint(data ...[]byte) string {
	hasher := blake3.New(32, nil)
	var n [8]byte
	for _, b := range data {
		binary.LittleEndian.PutUint64(n[:], uint64(len(b)))
		hasher.Write(n[:])
		hasher.Write(b)
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/eyelink"
	"github.com/banshee-data/gaze.report/internal/fsutil"
	"github.com/banshee-data/gaze.report/internal/merge"
	"github.com/banshee-data/gaze.report/internal/trial"
)

func (r *Runner) trialJobs() ([]job, error) {
	paths, err := fsutil.Glob(r.fsys, r.cfg.ExpDir(), "*.json", r.cfg.GetSkipPatterns(), false)
	if err != nil {
		return nil, err
	}
	jobs := make([]job, len(paths))
	for i, p := range paths {
		jobs[i] = job{key: p, id: trial.WIDFromPath(p), sources: []string{p}}
	}
	return jobs, nil
}

// eyeJobs finds one sample log per participant directory. A directory
// without a log still yields a job so the miss is reported.
func (r *Runner) eyeJobs() ([]job, error) {
	dirs, err := fsutil.Glob(r.fsys, r.cfg.EyelinkDir(), "*", r.cfg.GetSkipPatterns(), true)
	if err != nil {
		return nil, err
	}
	jobs := make([]job, len(dirs))
	for i, d := range dirs {
		asc := filepath.Join(d, r.cfg.GetASCFilename())
		jobs[i] = job{key: asc, id: filepath.Base(d), sources: []string{asc}}
	}
	return jobs, nil
}

// mergeJobs pairs each processed trial file with the eye table of the same
// participant, in the format the current configuration writes.
func (r *Runner) mergeJobs() ([]job, error) {
	paths, err := fsutil.Glob(r.fsys, r.cfg.ProcessedDir(config.DirTrialData), "*.json", r.cfg.GetSkipPatterns(), false)
	if err != nil {
		return nil, err
	}
	eyeDir := r.cfg.ProcessedDir(config.DirEyetracking)
	ext := r.eyeTableSuffix()
	jobs := make([]job, len(paths))
	for i, p := range paths {
		wid := trial.WIDFromPath(p)
		jobs[i] = job{key: p, id: wid, sources: []string{p, filepath.Join(eyeDir, wid+ext)}}
	}
	return jobs, nil
}

func (r *Runner) processTrials(ctx context.Context, runID string, j job, data [][]byte) (string, int, error) {
	s, err := trial.ReadSession(bytes.NewReader(data[0]), j.id)
	if err != nil {
		return "", 0, err
	}
	recs, procErr := trial.ProcessSession(s)

	if len(s.PracticeData) > 0 && !bytes.Equal(s.PracticeData, []byte("null")) {
		if _, err := r.writeFile(config.DirPracticeData, j.id, ".json", s.PracticeData); err != nil {
			return "", 0, err
		}
	}
	out, err := r.writeJSON(config.DirTrialData, j.id, recs)
	if err != nil {
		return "", 0, err
	}
	if r.store != nil {
		if err := r.store.ReplaceTrials(r.cfg.GetVersion(), j.id, runID, recs); err != nil {
			return out, len(recs), err
		}
	}
	// Trials that failed are reported but the good ones are kept.
	return out, len(recs), procErr
}

func (r *Runner) processEye(ctx context.Context, runID string, j job, data [][]byte) (string, int, error) {
	recs, err := r.parser.Parse(bytes.NewReader(data[0]))
	if err != nil {
		return "", 0, err
	}
	out, err := r.writeEyeTable(j.id, recs)
	if err != nil {
		return "", 0, err
	}
	if r.store != nil {
		if err := r.store.ReplaceEyeRecords(r.cfg.GetVersion(), j.id, recs); err != nil {
			return out, len(recs), err
		}
	}
	return out, len(recs), nil
}

func (r *Runner) processMerge(ctx context.Context, runID string, j job, data [][]byte) (string, int, error) {
	var trials []trial.Record
	if err := json.Unmarshal(data[0], &trials); err != nil {
		return "", 0, fmt.Errorf("decode trial records: %w", err)
	}
	eye, err := readEyeTable(j.sources[1], data[1])
	if err != nil {
		return "", 0, err
	}
	sums := merge.Match(trials, eye, r.cfg.GetMaxVisits(), r.classifier.Len())
	out, err := r.writeJSON(config.DirMerged, j.id, sums)
	if err != nil {
		return "", 0, err
	}
	if r.store != nil {
		if err := r.store.ReplaceVisitSummaries(r.cfg.GetVersion(), j.id, sums); err != nil {
			return out, len(sums), err
		}
	}
	return out, len(sums), nil
}

// readEyeTable decodes an eye table written by writeEyeTable.
func readEyeTable(path string, data []byte) ([]eyelink.Record, error) {
	if filepath.Ext(path) == zstdExt {
		plain, err := decompress(data)
		if err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
		data = plain
	}
	return eyelink.ReadTable(bytes.NewReader(data))
}

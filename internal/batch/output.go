package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/banshee-data/gaze.report/internal/config"
	"github.com/banshee-data/gaze.report/internal/eyelink"
	"github.com/banshee-data/gaze.report/internal/security"
)

const (
	eyeTableExt = ".csv"
	zstdExt     = ".zst"
)

// outputPath creates processed/<version>/<dir> and returns the guarded
// path for id inside it.
func (r *Runner) outputPath(dir, id, ext string) (string, error) {
	base := r.cfg.ProcessedDir(dir)
	if err := r.fsys.MkdirAll(base, 0o755); err != nil {
		return "", err
	}
	return security.OutputPath(base, id, ext)
}

func (r *Runner) writeFile(dir, id, ext string, data []byte) (string, error) {
	path, err := r.outputPath(dir, id, ext)
	if err != nil {
		return "", err
	}
	if err := r.fsys.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (r *Runner) writeJSON(dir, id string, v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode %s/%s: %w", dir, id, err)
	}
	return r.writeFile(dir, id, ".json", append(b, '\n'))
}

func (r *Runner) compressEyeTables() bool {
	return r.cfg.GetEyeCompression() == config.CompressionZstd
}

// eyeTableSuffix is the file extension of eye tables under the current
// configuration.
func (r *Runner) eyeTableSuffix() string {
	if r.compressEyeTables() {
		return eyeTableExt + zstdExt
	}
	return eyeTableExt
}

// writeEyeTable writes recs as CSV, zstd-compressed when configured.
func (r *Runner) writeEyeTable(id string, recs []eyelink.Record) (path string, err error) {
	compress := r.compressEyeTables()
	path, err = r.outputPath(config.DirEyetracking, id, r.eyeTableSuffix())
	if err != nil {
		return "", err
	}
	f, err := r.fsys.Create(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	var enc *zstd.Encoder
	if compress {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			return "", err
		}
		w = enc
	}
	bw := bufio.NewWriter(w)
	if err := eyelink.WriteTable(bw, recs); err != nil {
		return "", err
	}
	if err := bw.Flush(); err != nil {
		return "", err
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			return "", err
		}
	}
	return path, nil
}

func decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

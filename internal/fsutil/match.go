package fsutil

import (
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchAny reports whether name matches any of the doublestar patterns.
// Invalid patterns never match.
func MatchAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, name); ok {
			return true
		}
	}
	return false
}

// Glob returns the paths of the entries of dir whose names match pattern
// and none of skip, in name order. Only regular files are returned unless
// dirs is set, in which case only directories are.
func Glob(fsys FileSystem, dir, pattern string, skip []string, dirs bool) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() != dirs {
			continue
		}
		if ok, _ := doublestar.Match(pattern, e.Name()); !ok || MatchAny(skip, e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

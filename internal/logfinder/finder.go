// Package logfinder resolves a log source argument to a single access log
// file.
package logfinder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern is the glob used to pick access logs inside a directory.
// It matches access.log, access_log, ssl_access_log and rotated variants
// such as access.log.1.
const DefaultPattern = "*access*log*"

// Sentinel errors.
var (
	ErrSourceNotFound = errors.New("log source not found")
	ErrNoLogFiles     = errors.New("no access log files found")
)

// Resolve turns a source path into the log file to read.
//
// A regular file is returned as is, with symlinks resolved. A directory
// resolves to its most recently modified file matching DefaultPattern.
// Compressed rotations (.gz, .bz2, .xz, .zst) are never selected.
func Resolve(source string) (string, error) {
	if source == "" {
		return "", fmt.Errorf("%w: empty path", ErrSourceNotFound)
	}

	info, err := os.Stat(source)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, source)
		}
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(source)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", source, err)
	}

	if !info.IsDir() {
		return resolved, nil
	}
	return FindLatestLogFile(resolved)
}

// logCandidate holds a log file path and its cached modification time.
// This avoids race conditions where files are deleted between stat and sort.
type logCandidate struct {
	path    string
	modTime int64
}

// FindLatestLogFile returns the path to the most recently modified access
// log in dir. Ties are broken by name so the result is stable.
//
// Returns ErrNoLogFiles if no candidate is found.
func FindLatestLogFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, DefaultPattern))
	if err != nil {
		return "", fmt.Errorf("globbing log files: %w", err)
	}

	// Stat files once and cache results
	candidates := make([]logCandidate, 0, len(matches))
	for _, m := range matches {
		if isCompressed(m) {
			continue
		}
		info, err := os.Lstat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		candidates = append(candidates, logCandidate{
			path:    m,
			modTime: info.ModTime().UnixNano(),
		})
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("%w in %s", ErrNoLogFiles, dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime != candidates[j].modTime {
			return candidates[i].modTime > candidates[j].modTime
		}
		return candidates[i].path < candidates[j].path
	})

	return candidates[0].path, nil
}

func isCompressed(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz", ".bz2", ".xz", ".zst", ".zip":
		return true
	}
	return false
}

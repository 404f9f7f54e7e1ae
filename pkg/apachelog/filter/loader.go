package filter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/apachelog2feed/apachelog2feed-go/internal/safefile"
)

// File represents the structure of a YAML filter file.
//
// Example YAML file:
//
//	version: 1
//	mode: or
//	filters:
//	  - field: Remote-Host
//	    value: 123.123.123.123
//	  - field: User-Agent
//	    value: 'regexp:(?i)googlebot'
//	    comparison: INC
type File struct {
	// Version is the filter file format version. Currently only version 1 is supported.
	Version int `yaml:"version"`

	// Mode is "and" (default) or "or".
	Mode string `yaml:"mode"`

	// Filters is the list of predicates, tested in order.
	Filters []Entry `yaml:"filters"`
}

// Entry is a single predicate definition in a filter file.
type Entry struct {
	Field      string `yaml:"field"`
	Value      string `yaml:"value"`
	Comparison string `yaml:"comparison"`
}

const (
	// MaxFileSize is the maximum allowed size for a filter file (1MB).
	MaxFileSize = 1 * 1024 * 1024

	// MaxFilterCount is the maximum number of predicates in a filter file.
	MaxFilterCount = 1000

	// MaxRegexpLength is the maximum length of a regexp: value, in bytes.
	MaxRegexpLength = 512

	// SupportedVersion is the currently supported filter file format version.
	SupportedVersion = 1
)

// sanitizePathError removes the path from os.PathError so error messages
// don't expose file system paths.
func sanitizePathError(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s: %w", pathErr.Op, pathErr.Err)
	}
	return err
}

// Load reads and validates a filter file from the given path.
// Non-regular files (FIFOs, devices, symlinks) are rejected.
func Load(path string) (*File, error) {
	f, info, err := safefile.OpenRegular(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open filter file: %w", sanitizePathError(err))
	}
	defer f.Close()

	if info.Size() == 0 {
		return nil, errors.New("filter file is empty")
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("filter file too large: %d bytes (max %d)", info.Size(), MaxFileSize)
	}

	// Read one byte past the limit to detect a file growing after Stat
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read filter file: %w", sanitizePathError(err))
	}

	return LoadBytes(data)
}

// LoadBytes parses and validates a filter file from a byte slice.
func LoadBytes(data []byte) (*File, error) {
	if len(data) == 0 {
		return nil, errors.New("filter file is empty")
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("filter file too large: %d bytes (max %d)", len(data), MaxFileSize)
	}

	var ff File
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := ff.Validate(); err != nil {
		return nil, err
	}
	return &ff, nil
}

// Validate performs schema-level validation. It checks the version, the
// mode, the predicate count and the regexp length limit. Regular
// expressions are compiled by Set, not here.
func (ff *File) Validate() error {
	if ff.Version != SupportedVersion {
		return &ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (only version %d is supported)", ff.Version, SupportedVersion),
		}
	}

	if _, err := ParseMode(ff.Mode); err != nil {
		return &ValidationError{Field: "mode", Message: err.Error()}
	}

	if len(ff.Filters) > MaxFilterCount {
		return &ValidationError{
			Field:   "filters",
			Message: fmt.Sprintf("too many filters (%d), maximum allowed is %d", len(ff.Filters), MaxFilterCount),
		}
	}

	for i, e := range ff.Filters {
		if e.Field == "" {
			return &PredicateError{Index: i, Field: "field", Message: "field is required"}
		}
		if _, err := ParseComparison(e.Comparison); err != nil {
			return &PredicateError{Index: i, Predicate: e.Field, Field: "comparison", Message: err.Error()}
		}
		// ReDoS protection
		if expr, ok := strings.CutPrefix(e.Value, RegexpPrefix); ok && len(expr) > MaxRegexpLength {
			return &PredicateError{
				Index:     i,
				Predicate: e.Field,
				Field:     "value",
				Message:   fmt.Sprintf("regexp too long (%d bytes, max %d)", len(expr), MaxRegexpLength),
			}
		}
	}
	return nil
}

// Set builds a Set from the file's mode and predicates.
func (ff *File) Set() (*Set, error) {
	mode, err := ParseMode(ff.Mode)
	if err != nil {
		return nil, &ValidationError{Field: "mode", Message: err.Error()}
	}

	s := NewSet(mode)
	for _, e := range ff.Filters {
		err := s.Add(Predicate{Field: e.Field, Value: e.Value, Comparison: Comparison(e.Comparison)})
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

// LoadSet is a convenience function that loads a filter file and builds
// its Set in one step.
func LoadSet(path string) (*Set, error) {
	ff, err := Load(path)
	if err != nil {
		return nil, err
	}
	return ff.Set()
}

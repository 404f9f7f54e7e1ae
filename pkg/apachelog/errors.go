package apachelog

import (
	"errors"
	"fmt"
)

// ErrNoMatch is returned by Matcher.Parse when a line was not written with
// the matcher's format. Callers treat it as "skip this line".
var ErrNoMatch = errors.New("line does not match log format")

// ConfigError represents an invalid configuration value detected before any
// line is scanned (e.g., an empty format string).
type ConfigError struct {
	Field   string
	Message string
	Cause   error // Underlying error, if any
}

func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

package filter

import "fmt"

// ValidationError represents a schema-level error in a filter file
// (e.g., unsupported version, unknown mode).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// PredicateError represents a malformed predicate: a missing field name,
// an unknown comparison or an invalid regular expression.
type PredicateError struct {
	Index     int    // 0-based position in the set or file
	Predicate string // Field name of the predicate (may be empty)
	Field     string
	Message   string
	Cause     error // Underlying error (e.g., regex compile error)
}

func (e *PredicateError) Error() string {
	if e.Predicate != "" {
		return fmt.Sprintf("filter %q: %s: %s", e.Predicate, e.Field, e.Message)
	}
	return fmt.Sprintf("filter[%d]: %s: %s", e.Index, e.Field, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *PredicateError) Unwrap() error {
	return e.Cause
}

package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

// Mode specifies how a Set combines its predicates.
type Mode int

const (
	// ModeAnd requires every predicate to pass (default).
	ModeAnd Mode = iota
	// ModeOr requires at least one predicate to pass.
	ModeOr
)

// String returns "and" or "or".
func (m Mode) String() string {
	if m == ModeOr {
		return "or"
	}
	return "and"
}

// ParseMode converts "and" or "or" (any case) into a Mode.
// Empty input yields ModeAnd.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "and":
		return ModeAnd, nil
	case "or":
		return ModeOr, nil
	default:
		return ModeAnd, fmt.Errorf("unknown filter mode %q (want and, or)", s)
	}
}

// Set is an ordered list of predicates combined by a Mode.
//
// A Set is built with Add before scanning and must not be modified while
// Match is being called. Match itself is safe for concurrent use.
type Set struct {
	mode  Mode
	preds []compiled
}

// NewSet creates an empty Set.
func NewSet(mode Mode) *Set {
	return &Set{mode: mode}
}

// Add validates p and appends it to the set.
// It returns a *PredicateError carrying the predicate's index if p is malformed.
func (s *Set) Add(p Predicate) error {
	c, err := p.compile()
	if err != nil {
		var pe *PredicateError
		if errors.As(err, &pe) {
			pe.Index = len(s.preds)
			pe.Predicate = p.Field
		}
		return err
	}
	s.preds = append(s.preds, c)
	return nil
}

// AddExpr parses a predicate expression (see ParseExpr) and adds it.
func (s *Set) AddExpr(expr string) error {
	p, err := ParseExpr(expr)
	if err != nil {
		return err
	}
	return s.Add(p)
}

// Mode returns the combination mode.
func (s *Set) Mode() Mode {
	return s.mode
}

// Len returns the number of predicates.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.preds)
}

// Predicates returns the predicates in insertion order.
func (s *Set) Predicates() []Predicate {
	if s == nil {
		return nil
	}
	out := make([]Predicate, len(s.preds))
	for i, c := range s.preds {
		out[i] = c.src
	}
	return out
}

// Match reports whether rec passes the set. An empty or nil set accepts
// every record. Predicates are tested in insertion order and evaluation
// stops as soon as the result is known.
func (s *Set) Match(rec apachelog.Record) bool {
	if s == nil || len(s.preds) == 0 {
		return true
	}

	if s.mode == ModeOr {
		for _, c := range s.preds {
			if c.test(rec) {
				return true
			}
		}
		return false
	}

	for _, c := range s.preds {
		if !c.test(rec) {
			return false
		}
	}
	return true
}

// String renders the set for display, e.g. `and(Final-Status=200, Request~/admin)`.
func (s *Set) String() string {
	if s.Len() == 0 {
		return "no filter"
	}
	parts := make([]string, len(s.preds))
	for i, c := range s.preds {
		parts[i] = c.src.String()
	}
	return s.mode.String() + "(" + strings.Join(parts, ", ") + ")"
}

// ParseExpr parses a predicate expression of the form
//
//	field=value    Is
//	field!=value   IsNot
//	field~value    Includes
//	field!~value   Excludes
//
// The operator is the first '=' or '~' in the expression; everything after
// it is the value, so values may contain further operators.
func ParseExpr(expr string) (Predicate, error) {
	i := strings.IndexAny(expr, "=~")
	if i < 0 {
		return Predicate{}, &PredicateError{Field: "expression", Message: fmt.Sprintf("missing operator in %q", expr)}
	}

	field, value := expr[:i], expr[i+1:]
	negated := strings.HasSuffix(field, "!")
	if negated {
		field = field[:len(field)-1]
	}
	field = strings.TrimSpace(field)
	if field == "" {
		return Predicate{}, &PredicateError{Field: "expression", Message: fmt.Sprintf("missing field in %q", expr)}
	}

	var cmp Comparison
	switch {
	case expr[i] == '=' && !negated:
		cmp = Is
	case expr[i] == '=':
		cmp = IsNot
	case !negated:
		cmp = Includes
	default:
		cmp = Excludes
	}

	return Predicate{Field: field, Value: value, Comparison: cmp}, nil
}

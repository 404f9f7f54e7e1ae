// Package filter selects parsed log records with a chain of predicates
// combined by AND or OR.
//
// A predicate compares one record field with a value. Values starting with
// "regexp:" are matched as regular expressions instead of literals:
//
//	set := filter.NewSet(filter.ModeAnd)
//	_ = set.Add(filter.Predicate{Field: "Final-Status", Value: "200"})
//	_ = set.Add(filter.Predicate{Field: "User-Agent", Value: "regexp:(?i)googlebot"})
//	if set.Match(rec) {
//	    // keep the record
//	}
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

// RegexpPrefix marks a predicate value as a regular expression.
const RegexpPrefix = "regexp:"

// Comparison selects how a predicate compares a field with its value.
type Comparison string

const (
	// Is is true when the field equals the value, or matches it when the
	// value is a regexp.
	Is Comparison = "IS"
	// IsNot negates Is.
	IsNot Comparison = "ISNOT"
	// Includes is true when the field contains the value, or matches it
	// when the value is a regexp.
	Includes Comparison = "INC"
	// Excludes negates Includes.
	Excludes Comparison = "EXC"
)

// ParseComparison converts a comparison name into a Comparison.
// Empty input yields Is. Matching is case-insensitive and accepts the long
// forms "IS-NOT", "INCLUDES" and "NOT-INCLUDES".
func ParseComparison(s string) (Comparison, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "IS":
		return Is, nil
	case "ISNOT", "IS-NOT", "IS_NOT":
		return IsNot, nil
	case "INC", "INCLUDES", "LIKE":
		return Includes, nil
	case "EXC", "EXCLUDES", "NOT-INCLUDES", "NOTLIKE":
		return Excludes, nil
	default:
		return "", fmt.Errorf("unknown comparison %q", s)
	}
}

// Predicate is a single filter test against one record field.
type Predicate struct {
	Field      string
	Value      string
	Comparison Comparison // empty means Is
}

// String renders the predicate in expression syntax (see ParseExpr).
func (p Predicate) String() string {
	op := "="
	switch p.Comparison {
	case IsNot:
		op = "!="
	case Includes:
		op = "~"
	case Excludes:
		op = "!~"
	}
	return p.Field + op + p.Value
}

// compile validates the predicate and prepares its matcher.
func (p Predicate) compile() (compiled, error) {
	if strings.TrimSpace(p.Field) == "" {
		return compiled{}, &PredicateError{Field: "field", Message: "field is required"}
	}

	cmp, err := ParseComparison(string(p.Comparison))
	if err != nil {
		return compiled{}, &PredicateError{Field: "comparison", Message: err.Error()}
	}

	p.Comparison = cmp
	c := compiled{field: p.Field, value: p.Value, cmp: cmp, src: p}
	if expr, ok := strings.CutPrefix(p.Value, RegexpPrefix); ok {
		re, err := regexp.Compile(expr)
		if err != nil {
			return compiled{}, &PredicateError{
				Field:   "value",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
				Cause:   err,
			}
		}
		c.re = re
	}
	return c, nil
}

// Test reports whether rec satisfies the predicate. It returns a
// *PredicateError if the predicate is malformed.
func (p Predicate) Test(rec apachelog.Record) (bool, error) {
	c, err := p.compile()
	if err != nil {
		return false, err
	}
	return c.test(rec), nil
}

// compiled is a validated predicate with its regexp, if any, compiled once.
type compiled struct {
	field string
	value string
	cmp   Comparison
	re    *regexp.Regexp
	src   Predicate
}

func (c compiled) test(rec apachelog.Record) bool {
	v, ok := rec[c.field]
	if !ok {
		// A missing field fails every comparison, negated ones included.
		return false
	}

	switch c.cmp {
	case IsNot:
		return !c.is(v)
	case Includes:
		return c.includes(v)
	case Excludes:
		return !c.includes(v)
	default:
		return c.is(v)
	}
}

func (c compiled) is(v string) bool {
	if c.re != nil {
		return c.re.MatchString(v)
	}
	return v == c.value
}

func (c compiled) includes(v string) bool {
	if c.re != nil {
		return c.re.MatchString(v)
	}
	return strings.Contains(v, c.value)
}

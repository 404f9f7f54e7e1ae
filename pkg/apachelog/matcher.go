package apachelog

import (
	"fmt"
	"regexp"
	"strings"
)

// Matcher parses lines written with one CustomLog format.
//
// A Matcher is immutable after Compile and is safe for concurrent use by
// multiple goroutines.
type Matcher struct {
	format string
	tokens []Token
	names  []string
	re     *regexp.Regexp
}

// Compile builds a Matcher for the given format string.
// It returns a *ConfigError if the format is blank or yields no fields.
//
// Example:
//
//	m, err := apachelog.Compile(`%h %l %u %t "%r" %>s %b`)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(m.Names())
//	// [Remote-Host Remote-Logname Remote-User Time Request Status Bytes-Sent]
func Compile(format string) (*Matcher, error) {
	if strings.TrimSpace(format) == "" {
		return nil, &ConfigError{Field: "format", Message: "log format is empty"}
	}

	tokens := Tokenize(format)
	names := make([]string, 0, len(tokens))
	captures := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		// names and captures must stay index-aligned with the capture groups
		names = append(names, Resolve(tok.Directive))
		captures = append(captures, tok.capture())
	}

	if len(names) == 0 {
		return nil, &ConfigError{Field: "format", Message: "unable to derive any field from log format"}
	}

	re, err := regexp.Compile("^" + strings.Join(captures, " ") + "$")
	if err != nil {
		return nil, &ConfigError{Field: "format", Message: "cannot build line pattern", Cause: err}
	}
	if re.NumSubexp() != len(names) {
		return nil, &ConfigError{
			Field:   "format",
			Message: fmt.Sprintf("pattern has %d groups for %d fields", re.NumSubexp(), len(names)),
		}
	}

	return &Matcher{
		format: normalizeFormat(format),
		tokens: tokens,
		names:  names,
		re:     re,
	}, nil
}

// MustCompile is like Compile but panics if the format cannot be compiled.
// It simplifies initialization of package-level matchers.
func MustCompile(format string) *Matcher {
	m, err := Compile(format)
	if err != nil {
		panic(err)
	}
	return m
}

// Format returns the normalized format string the matcher was built from.
func (m *Matcher) Format() string {
	return m.format
}

// Names returns the field names in capture-group order. Names may repeat.
func (m *Matcher) Names() []string {
	return append([]string(nil), m.names...)
}

// Tokens returns the classified tokens of the format string.
func (m *Matcher) Tokens() []Token {
	return append([]Token(nil), m.tokens...)
}

// Pattern returns the source of the compiled line pattern.
func (m *Matcher) Pattern() string {
	return m.re.String()
}

// Parse matches a whole line and returns its fields keyed by name.
// A trailing carriage return is ignored. Lines that do not match return
// ErrNoMatch and a nil Record; partial records are never produced.
//
// When the format repeats a field name the later value wins.
func (m *Matcher) Parse(line string) (Record, error) {
	values, err := m.ParseValues(line)
	if err != nil {
		return nil, err
	}

	rec := make(Record, len(m.names))
	for i, name := range m.names {
		rec[name] = values[i]
	}
	return rec, nil
}

// ParseValues is like Parse but returns the captured values positionally,
// aligned with Names. It avoids building a map for callers that only need
// a few fields.
func (m *Matcher) ParseValues(line string) ([]string, error) {
	line = strings.TrimRight(line, "\r")

	matches := m.re.FindStringSubmatch(line)
	if matches == nil {
		return nil, ErrNoMatch
	}
	return matches[1:], nil
}

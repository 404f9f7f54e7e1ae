package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/analyzer"
)

// validFormats lists all valid watch output formats.
var validFormats = map[string]bool{
	"jsonl":  true,
	"pretty": true,
}

// jsonEntry is the JSON Lines shape of an entry.
type jsonEntry struct {
	Seq    int               `json:"seq"`
	Path   string            `json:"path,omitempty"`
	Fields map[string]string `json:"fields"`
	Raw    string            `json:"raw,omitempty"`
}

// OutputEntry writes an entry in the specified format to the writer.
func OutputEntry(format string, e analyzer.Entry, out io.Writer) error {
	switch format {
	case "jsonl":
		return OutputJSON(e, out)
	case "pretty":
		return OutputPretty(e, out)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

// OutputJSON writes an entry as one JSON object per line.
func OutputJSON(e analyzer.Entry, out io.Writer) error {
	data, err := json.Marshal(jsonEntry{
		Seq:    e.Seq,
		Path:   e.Path,
		Fields: e.Record,
		Raw:    e.Raw,
	})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// OutputPretty writes an entry in human-readable format: the request
// time, the line number and the remaining fields as key=value pairs.
func OutputPretty(e analyzer.Entry, out io.Writer) error {
	ts := "--:--:--"
	if t, ok := e.Record.Time(); ok {
		ts = t.Format("15:04:05")
	}

	rest := make(map[string]string, len(e.Record))
	for k, v := range e.Record {
		if k != "Time" {
			rest[k] = v
		}
	}

	_, err := fmt.Fprintf(out, "[%s] #%d %s\n", ts, e.Seq, formatData(rest))
	return err
}

// formatData formats a map as sorted key=value pairs.
// Values are quoted if they contain spaces, equals signs, quotes, or control characters.
func formatData(data map[string]string) string {
	if len(data) == 0 {
		return ""
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(data))
	for _, k := range keys {
		parts = append(parts, quoteIfNeeded(k)+"="+quoteIfNeeded(data[k]))
	}
	return strings.Join(parts, " ")
}

// quoteIfNeeded quotes a value if it contains special characters or control characters.
// Returns the value unchanged if no quoting is needed.
func quoteIfNeeded(v string) string {
	if v == "" {
		return `""`
	}
	if !strings.ContainsFunc(v, needsQuote) {
		return v
	}

	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range v {
		switch {
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c < 0x20 || c == 0x7F:
			fmt.Fprintf(&sb, `\x%02x`, c)
		default:
			sb.WriteRune(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// needsQuote reports whether c forces a value to be quoted: space, equals,
// quote, backslash, or any control character.
func needsQuote(c rune) bool {
	return c == ' ' || c == '=' || c == '"' || c == '\\' || c < 0x20 || c == 0x7F
}

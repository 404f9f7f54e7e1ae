package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/analyzer"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

var updateGolden = flag.Bool("update-golden", false, "update golden files")

var combinedEntry = analyzer.Entry{
	Seq: 3,
	Record: apachelog.Record{
		"Remote-Host":  "127.0.0.1",
		"Time":         "[10/Oct/2023:13:55:36 -0700]",
		"Request":      "GET /index.html HTTP/1.1",
		"Final-Status": "200",
	},
}

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"jsonl", true},
		{"pretty", true},
		{"json", false},
		{"rss", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := validFormats[tt.format]
			if got != tt.valid {
				t.Errorf("validFormats[%q] = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}

func TestOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputJSON(combinedEntry, &buf); err != nil {
		t.Fatalf("OutputJSON() error = %v", err)
	}

	var decoded struct {
		Seq    int               `json:"seq"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("OutputJSON() produced invalid JSON: %v", err)
	}
	if decoded.Seq != 3 {
		t.Errorf("decoded.Seq = %d, want 3", decoded.Seq)
	}
	if decoded.Fields["Request"] != "GET /index.html HTTP/1.1" {
		t.Errorf("decoded.Fields[Request] = %q", decoded.Fields["Request"])
	}
}

func TestOutputEntry(t *testing.T) {
	tests := []struct {
		format   string
		wantErr  bool
		contains string
	}{
		{"jsonl", false, `"Final-Status":"200"`},
		{"pretty", false, "#3 Final-Status=200"},
		{"unknown", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			err := OutputEntry(tt.format, combinedEntry, &buf)

			if (err != nil) != tt.wantErr {
				t.Errorf("OutputEntry() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Errorf("OutputEntry() = %q, want to contain %q", buf.String(), tt.contains)
			}
		})
	}
}

// TestOutputEntry_Golden tests output formats using golden files.
// Run with -update-golden to update the golden files.
func TestOutputEntry_Golden(t *testing.T) {
	noTime := analyzer.Entry{Seq: 1, Record: apachelog.Record{"Remote-Host": "::1"}}
	withRaw := analyzer.Entry{
		Seq:    7,
		Path:   "/var/log/apache2/access.log",
		Record: apachelog.Record{"Remote-Host": "::1"},
		Raw:    "::1",
	}

	tests := []struct {
		name   string
		format string
		entry  analyzer.Entry
	}{
		{"pretty_combined", "pretty", combinedEntry},
		{"pretty_no_time", "pretty", noTime},
		{"jsonl_combined", "jsonl", combinedEntry},
		{"jsonl_with_raw", "jsonl", withRaw},
	}

	// Support both flag and env var for updating golden files
	update := *updateGolden || os.Getenv("UPDATE_GOLDEN") != ""

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := OutputEntry(tt.format, tt.entry, &buf); err != nil {
				t.Fatalf("OutputEntry() error = %v", err)
			}

			golden := filepath.Join("testdata", "golden", tt.name+".golden")

			if update {
				if err := os.MkdirAll(filepath.Dir(golden), 0755); err != nil {
					t.Fatalf("failed to create golden dir: %v", err)
				}
				if err := os.WriteFile(golden, buf.Bytes(), 0644); err != nil {
					t.Fatalf("failed to write golden file: %v", err)
				}
				t.Logf("updated golden file: %s", golden)
				return
			}

			expected, err := os.ReadFile(golden)
			if err != nil {
				t.Fatalf("failed to read golden file %s: %v\nRun with -update-golden to create it", golden, err)
			}

			// Normalize line endings for cross-platform compatibility
			got := bytes.ReplaceAll(buf.Bytes(), []byte("\r\n"), []byte("\n"))
			want := bytes.ReplaceAll(expected, []byte("\r\n"), []byte("\n"))

			if !bytes.Equal(got, want) {
				t.Errorf("output mismatch for %s:\ngot:\n%s\nwant:\n%s", golden, got, want)
			}
		})
	}
}

func TestQuoteIfNeeded(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"simple", "hello", "hello"},
		{"empty", "", `""`},
		{"with_space", "GET / HTTP/1.1", `"GET / HTTP/1.1"`},
		{"with_equals", "q=1", `"q=1"`},
		{"with_quote", `say "hi"`, `"say \"hi\""`},
		{"with_backslash", `a\"b`, `"a\\\"b"`},
		{"with_newline", "line1\nline2", `"line1\nline2"`},
		{"with_tab", "col1\tcol2", `"col1\tcol2"`},
		{"with_carriage_return", "a\rb", `"a\rb"`},
		{"with_null", "a\x00b", `"a\x00b"`},
		{"with_del", "a\x7fb", `"a\x7fb"`},
		{"unicode", "テスト", "テスト"},
		{"unicode_with_space", "日本語 テスト", `"日本語 テスト"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quoteIfNeeded(tt.input)
			if got != tt.want {
				t.Errorf("quoteIfNeeded(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatData(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]string
		want  string
	}{
		{"nil", nil, ""},
		{"empty", map[string]string{}, ""},
		{"single", map[string]string{"Final-Status": "404"}, "Final-Status=404"},
		{"multiple_sorted", map[string]string{"b": "2", "a": "1", "c": "3"}, "a=1 b=2 c=3"},
		{"with_spaces", map[string]string{"Request": "GET / HTTP/1.0"}, `Request="GET / HTTP/1.0"`},
		{"key_with_space", map[string]string{"key name": "value"}, `"key name"=value`},
		{"key_with_equals", map[string]string{"key=name": "value"}, `"key=name"=value`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatData(tt.input)
			if got != tt.want {
				t.Errorf("formatData(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

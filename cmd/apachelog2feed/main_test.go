package main

import (
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testLog = `127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET /index.html HTTP/1.1" 200 1043 "-" "curl/8.0"
10.0.0.2 - bob [10/Oct/2023:13:55:37 -0700] "GET /admin HTTP/1.1" 403 12 "-" "Mozilla/5.0"
not an access log line
10.0.0.3 - - [10/Oct/2023:13:55:38 -0700] "POST /login HTTP/1.1" 500 0 "-" "Googlebot/2.1"
`

func writeTestLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "access.log")
	if err := os.WriteFile(path, []byte(testLog), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	// keep a config file in the user's home out of the test
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

type rssDoc struct {
	Channel struct {
		Title string `xml:"title"`
		Items []struct {
			Title string `xml:"title"`
		} `xml:"item"`
	} `xml:"channel"`
}

func TestFeed_Stdout(t *testing.T) {
	path := writeTestLog(t)

	stdout, stderr, err := run(t, "feed", path, "-F", "Final-Status!=200")
	if err != nil {
		t.Fatalf("feed error = %v (stderr %q)", err, stderr)
	}

	var doc rssDoc
	if err := xml.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("invalid RSS: %v\n%s", err, stdout)
	}
	if len(doc.Channel.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(doc.Channel.Items))
	}
	if !strings.Contains(doc.Channel.Title, "filtered by 1 filter") {
		t.Errorf("title = %q", doc.Channel.Title)
	}
	if !strings.Contains(stderr, "accepted=2") {
		t.Errorf("stderr = %q, want summary with accepted=2", stderr)
	}
}

func TestFeed_TargetAndLimit(t *testing.T) {
	path := writeTestLog(t)
	target := filepath.Join(t.TempDir(), "feed.xml")

	stdout, _, err := run(t, "feed", "--source", path, "--target", target, "--limit", "1", "--log-format", "json")
	if err != nil {
		t.Fatalf("feed error = %v", err)
	}
	if stdout != "" {
		t.Errorf("stdout = %q, want empty in save mode", stdout)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	var doc rssDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if len(doc.Channel.Items) != 1 {
		t.Errorf("got %d items, want 1", len(doc.Channel.Items))
	}
}

func TestFeed_ModeOrFromEnv(t *testing.T) {
	path := writeTestLog(t)
	t.Setenv("APACHELOG2FEED_MODE", "or")

	stdout, _, err := run(t, "feed", path, "-F", "Final-Status=500", "-F", "Remote-User=bob", "--feed-format", "json")
	if err != nil {
		t.Fatalf("feed error = %v", err)
	}
	if got := strings.Count(stdout, `"id":`); got < 2 {
		t.Errorf("JSON feed has %d ids, want at least 2 items:\n%s", got, stdout)
	}
}

func TestFeed_ConfigErrors(t *testing.T) {
	path := writeTestLog(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no source", []string{"feed"}, "source"},
		{"missing source", []string{"feed", filepath.Join(t.TempDir(), "nope.log")}, "source"},
		{"bad limit", []string{"feed", path, "--limit", "ten"}, "limit"},
		{"bad mode", []string{"feed", path, "--mode", "xor"}, "mode"},
		{"bad filter", []string{"feed", path, "-F", "no-operator"}, "filter"},
		{"bad feed format", []string{"feed", path, "--feed-format", "rdf"}, "feed-format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want mention of %q", err, tt.want)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want nothing written on configuration error", stdout)
			}
		})
	}
}

func TestFields(t *testing.T) {
	stdout, _, err := run(t, "fields", "common")
	if err != nil {
		t.Fatalf("fields error = %v", err)
	}

	for _, want := range []string{"Remote-Host", "Final-Status", "Bytes-Sent", "%>s", "pattern: ^"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestFields_FormatFlag(t *testing.T) {
	stdout, _, err := run(t, "fields", "--format", `%h %{X-Request-Id}i`)
	if err != nil {
		t.Fatalf("fields error = %v", err)
	}
	if !strings.Contains(stdout, "X-Request-Id") {
		t.Errorf("output missing header field:\n%s", stdout)
	}
}

func TestFields_EmptyFormat(t *testing.T) {
	if _, _, err := run(t, "fields", " "); err == nil {
		t.Error("expected error for empty format")
	}
}

func TestWatch_UnknownOutput(t *testing.T) {
	_, _, err := run(t, "watch", writeTestLog(t), "-o", "xml")
	if err == nil || !strings.Contains(err.Error(), "xml") {
		t.Errorf("error = %v, want unknown output format", err)
	}
}

func TestCompletion(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			stdout, _, err := run(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion error = %v", err)
			}
			if !strings.Contains(stdout, "apachelog2feed") {
				t.Errorf("completion script does not mention the command")
			}
		})
	}

	if _, _, err := run(t, "completion", "tcsh"); err == nil {
		t.Error("expected error for unsupported shell")
	}
}

package apachelog

import (
	"regexp"
	"testing"
)

// FuzzCompile checks that any format either fails with a ConfigError or
// yields exactly one field name per capture group.
func FuzzCompile(f *testing.F) {
	f.Add(FormatCommon)
	f.Add(FormatCombined)
	f.Add(FormatVhostCombined)
	f.Add(`\"%r\" %{%Y-%m-%d}t %400,501{User-agent}i`)
	f.Add("")
	f.Add("   \t ")
	f.Add(`"`)
	f.Add(`%{unterminated`)
	f.Add(string([]byte{0xff, 0xfe, 0xfd}))

	f.Fuzz(func(t *testing.T, format string) {
		m, err := Compile(format)
		if err != nil {
			if _, ok := err.(*ConfigError); !ok {
				t.Errorf("Compile(%q) returned %T, want *ConfigError", format, err)
			}
			return
		}

		re := regexp.MustCompile(m.Pattern())
		if re.NumSubexp() != len(m.names) {
			t.Errorf("Compile(%q): %d groups for %d names", format, re.NumSubexp(), len(m.names))
		}
	})
}

// FuzzMatcher_Parse checks that parsing never panics and that a successful
// parse only produces declared field names.
func FuzzMatcher_Parse(f *testing.F) {
	m := MustCompile(FormatCombined)

	f.Add(`127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET / HTTP/1.1" 200 1043 "-" "curl/8.0"`)
	f.Add(`127.0.0.1 - - [10/Oct/2023:13:55:36 -0700] "GET /\"x\" HTTP/1.1" 200 1043 "-" "a \"b\""`)
	f.Add("")
	f.Add("\r")
	f.Add(string(make([]byte, 2048)))
	f.Add(string([]byte{0xff, 0xfe, 0xfd}))

	declared := make(map[string]bool)
	for _, n := range m.Names() {
		declared[n] = true
	}

	f.Fuzz(func(t *testing.T, line string) {
		rec, err := m.Parse(line)
		if err != nil {
			if err != ErrNoMatch {
				t.Errorf("Parse returned unexpected error: %v", err)
			}
			if rec != nil {
				t.Error("Parse returned a record together with an error")
			}
			return
		}
		for k := range rec {
			if !declared[k] {
				t.Errorf("record has undeclared field %q", k)
			}
		}
	})
}

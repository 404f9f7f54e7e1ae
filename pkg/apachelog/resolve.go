package apachelog

import (
	"regexp"
	"slices"
)

// directive maps a CustomLog directive letter to its field name.
type directive struct {
	code string
	name string
	re   *regexp.Regexp
}

// Names suffixed with "-X" are non-CLF variants. The table order decides
// which directive wins when a token could match more than one.
var directives = newDirectiveTable([][2]string{
	{"%", ""},
	{"a", "Remote-IP"},
	{"A", "Local-IP"},
	{"B", "Bytes-Sent-X"},
	{"b", "Bytes-Sent"},
	{"c", "Connection-Status"}, // httpd 1.3
	{"C", "Cookie"},
	{"D", "Time-Taken-MS"},
	{"e", "Env-Var"},
	{"f", "Filename"},
	{"h", "Remote-Host"},
	{"H", "Request-Protocol"},
	{"i", "Request-Header"},
	{"I", "Bytes-Received"},
	{"k", "Keepalive-Requests"},
	{"l", "Remote-Logname"},
	{"L", "Log-ID"},
	{"m", "Request-Method"},
	{"n", "Note"},
	{"o", "Reply-Header"},
	{"O", "Bytes-Sent"},
	{"p", "Port"},
	{"P", "Process-Id"},
	{"q", "Query-String"},
	{"r", "Request"},
	{"R", "Handler"},
	{"s", "Status"},
	{"S", "Bytes-Transferred"},
	{"t", "Time"},
	{"T", "Time-Taken-S"},
	{"u", "Remote-User"},
	{"U", "Request-Path"},
	{"v", "Server-Name"},
	{"V", "Server-Name-X"},
	{"X", "Connection-Status"},
})

// originalByDefault lists directives that log the original request value
// unless the ">" marker asks for the final one.
var originalByDefault = []string{"s", "U", "T", "D", "r"}

func newDirectiveTable(pairs [][2]string) []directive {
	table := make([]directive, 0, len(pairs))
	for _, p := range pairs {
		// (1) status qualifier, (2) original/final marker, (3) brace argument
		re := regexp.MustCompile(`^%([!\d,]*)([<>])?(?:\{([^}]*)\})?` + regexp.QuoteMeta(p[0]) + `$`)
		table = append(table, directive{code: p[0], name: p[1], re: re})
	}
	return table
}

// Resolve returns the field name for a single format token such as "%h",
// "%>s" or "%{Referer}i". Tokens that match no directive are returned
// unchanged.
func Resolve(token string) string {
	for _, d := range directives {
		m := d.re.FindStringSubmatch(token)
		if m == nil {
			continue
		}

		qualifier, marker, arg := m[1], m[2], m[3]

		var prefix string
		switch {
		case marker == "<" && !slices.Contains(originalByDefault, d.code):
			prefix = "Original-"
		case marker == ">" && slices.Contains(originalByDefault, d.code):
			prefix = "Final-"
		}

		name := d.name
		if arg != "" {
			name = arg
		}
		if name == "" {
			// "%%" is a literal percent sign, not a field.
			return token
		}

		name = prefix + name
		if qualifier != "" {
			name += "(" + qualifier + ")"
		}
		return name
	}
	return token
}

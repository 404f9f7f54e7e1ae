// Package apachelog compiles Apache CustomLog format strings into line
// matchers and parses access-log lines into records.
//
// A format string such as
//
//	%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-Agent}i"
//
// is compiled once into a [Matcher]. The matcher owns a single anchored
// regular expression and the ordered list of field names associated with its
// capture groups:
//
//	m, err := apachelog.Compile(apachelog.FormatCombined)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rec, err := m.Parse(line)
//	if errors.Is(err, apachelog.ErrNoMatch) {
//	    // line was not written with this format, skip it
//	}
//	fmt.Println(rec["Remote-Host"], rec["Final-Status"])
//
// # Field names
//
// Directive letters are mapped to readable names ("h" is Remote-Host, "s" is
// Status, and so on). A brace argument replaces the generic name, so
// %{Referer}i yields the field "Referer". The "<" and ">" markers select the
// original or final value of a request that was internally redirected, and
// produce "Original-" and "Final-" prefixes where the marker differs from the
// directive's default. A status-code qualifier such as %400,501{User-agent}i
// is appended in parentheses. Unknown directives keep their raw token text as
// the field name.
//
// Field names are not deduplicated. When a format repeats a directive the
// matcher keeps every name positionally and the record keeps the last value.
package apachelog

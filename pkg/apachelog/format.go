package apachelog

import (
	"regexp"
	"strings"
)

// Well-known CustomLog formats from the stock httpd.conf.
const (
	FormatCommon        = `%h %l %u %t "%r" %>s %b`
	FormatCombined      = `%h %l %u %t "%r" %>s %b "%{Referer}i" "%{User-Agent}i"`
	FormatVhostCombined = `%v:%p %h %l %u %t "%r" %>s %O "%{Referer}i" "%{User-Agent}i"`
	FormatReferer       = `%{Referer}i -> %U`
	FormatAgent         = `%{User-agent}i`
)

// namedFormats maps LogFormat nicknames to their format strings.
var namedFormats = map[string]string{
	"common":         FormatCommon,
	"combined":       FormatCombined,
	"vhost_combined": FormatVhostCombined,
	"referer":        FormatReferer,
	"agent":          FormatAgent,
}

// LookupFormat returns the format string registered under a LogFormat
// nickname such as "common" or "combined".
func LookupFormat(nickname string) (string, bool) {
	f, ok := namedFormats[strings.ToLower(nickname)]
	return f, ok
}

// TokenKind classifies a format token by the kind of text it captures.
type TokenKind int

const (
	// TokenPlain captures a run of non-space characters.
	TokenPlain TokenKind = iota
	// TokenQuoted captures the text between a pair of double quotes.
	TokenQuoted
	// TokenTime captures a bracketed timestamp, brackets included.
	TokenTime
)

// String returns the name of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenQuoted:
		return "quoted"
	case TokenTime:
		return "time"
	default:
		return "plain"
	}
}

// Token is one whitespace-separated element of a format string.
type Token struct {
	// Raw is the token as written in the format string.
	Raw string
	// Directive is Raw with any surrounding quote markers removed.
	Directive string
	Kind      TokenKind
	Quoted    bool
}

// Capture sub-patterns, one per token kind.
const (
	// Request lines, referers and user agents may carry backslash-escaped quotes.
	escapedQuotedCapture = `"([^"\\]*(?:\\.[^"\\]*)*)"`
	quotedCapture        = `"([^"]*)"`
	timeCapture          = `(\[[^\]]+\])`
	plainCapture         = `(\S*)`
)

var (
	blankRun    = regexp.MustCompile(`[ \t]+`)
	timeToken   = regexp.MustCompile(`^%.*t$`)
	quoteMarker = regexp.MustCompile(`^\\?"`)
	quoteEnd    = regexp.MustCompile(`\\?"$`)
)

// normalizeFormat collapses runs of blanks and trims the ends.
func normalizeFormat(format string) string {
	return strings.Trim(blankRun.ReplaceAllString(format, " "), " ")
}

// Tokenize splits a format string into classified tokens. Both "%r" wrapped
// in plain quotes and the httpd.conf-escaped \"%r\" form are recognized as
// quoted tokens.
func Tokenize(format string) []Token {
	format = normalizeFormat(format)
	if format == "" {
		return nil
	}

	elements := strings.Split(format, " ")
	tokens := make([]Token, 0, len(elements))
	for _, el := range elements {
		tok := Token{Raw: el, Directive: el}
		switch {
		case quoteMarker.MatchString(el):
			tok.Quoted = true
			tok.Kind = TokenQuoted
			tok.Directive = quoteEnd.ReplaceAllString(quoteMarker.ReplaceAllString(el, ""), "")
		case timeToken.MatchString(el):
			tok.Kind = TokenTime
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// capture returns the capturing sub-pattern for the token.
func (t Token) capture() string {
	switch t.Kind {
	case TokenQuoted:
		if t.Directive == "%r" ||
			strings.Contains(t.Directive, "{Referer}") ||
			strings.Contains(t.Directive, "{User-Agent}") {
			return escapedQuotedCapture
		}
		return quotedCapture
	case TokenTime:
		return timeCapture
	default:
		return plainCapture
	}
}

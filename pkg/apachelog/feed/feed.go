// Package feed turns accepted log records into a syndication feed.
//
// The scan loop depends only on the narrow Sink interface. Document is the
// default Sink and renders RSS 2.0, Atom 1.0 or JSON Feed.
package feed

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Format is a syndication document format.
type Format string

const (
	RSS  Format = "rss"
	Atom Format = "atom"
	JSON Format = "json"
)

// ParseFormat converts "rss", "atom" or "json" (any case) into a Format.
// Empty input yields RSS.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", "rss2", "rss2.0":
		return RSS, nil
	case RSS, Atom, JSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown feed format %q (want rss, atom, json)", s)
	}
}

// Metadata describes the feed itself.
type Metadata struct {
	Title       string
	Link        string
	Description string
	Updated     time.Time
}

// Item is one feed entry.
type Item struct {
	Title       string
	Link        string
	Description string
	ID          string    // unique identifier, used as the RSS guid
	Date        time.Time // zero means no date
}

// Sink accumulates feed items and renders them.
type Sink interface {
	SetMetadata(meta Metadata)
	AddItem(item Item)
	// Render writes the document to w.
	Render(w io.Writer) error
	// Save writes the document to the named file.
	Save(path string) error
}

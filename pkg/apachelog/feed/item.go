package feed

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

// titleFields are joined, when present, to form an item title.
var titleFields = []string{"Remote-Host", "Remote-User", "Request"}

// NewItem builds the feed item for an accepted record. link is the item
// link supplied by configuration.
func NewItem(rec apachelog.Record, link string) Item {
	parts := make([]string, 0, len(titleFields))
	for _, f := range titleFields {
		if v, ok := rec[f]; ok {
			parts = append(parts, v)
		}
	}

	item := Item{
		Title:       strings.Join(parts, " "),
		Link:        link,
		Description: Describe(rec),
		ID:          GUID(rec),
	}
	if ts, ok := rec.Time(); ok {
		item.Date = ts
	}
	return item
}

// Describe renders a record as one "name: value" line per field, sorted
// by field name.
func Describe(rec apachelog.Record) string {
	var sb strings.Builder
	for _, k := range rec.Keys() {
		fmt.Fprintf(&sb, "%s: %s\n", k, rec[k])
	}
	return sb.String()
}

// GUID returns a stable identifier computed from the record's full content.
// Records with identical fields share a GUID.
func GUID(rec apachelog.Record) string {
	d := xxhash.New()
	for _, k := range rec.Keys() {
		// unit and record separators keep "a"+"bc" distinct from "ab"+"c"
		_, _ = d.WriteString(k)
		_, _ = d.WriteString("\x1f")
		_, _ = d.WriteString(rec[k])
		_, _ = d.WriteString("\x1e")
	}
	return fmt.Sprintf("%016x", d.Sum64())
}

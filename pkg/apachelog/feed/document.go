package feed

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gorilla/feeds"
)

// Document is a Sink backed by gorilla/feeds.
type Document struct {
	format Format
	feed   *feeds.Feed
}

// New creates an empty Document that renders in the given format.
func New(format Format) (*Document, error) {
	switch format {
	case RSS, Atom, JSON:
	default:
		return nil, fmt.Errorf("unknown feed format %q", format)
	}
	return &Document{
		format: format,
		// gorilla/feeds dereferences the feed link when rendering
		feed: &feeds.Feed{Link: &feeds.Link{}},
	}, nil
}

// Format returns the document format.
func (d *Document) Format() Format {
	return d.format
}

// Len returns the number of items added so far.
func (d *Document) Len() int {
	return len(d.feed.Items)
}

// SetMetadata implements Sink.
func (d *Document) SetMetadata(meta Metadata) {
	d.feed.Title = meta.Title
	d.feed.Link = &feeds.Link{Href: meta.Link}
	d.feed.Description = meta.Description
	d.feed.Id = meta.Link
	d.feed.Updated = meta.Updated
	d.feed.Created = meta.Updated
}

// AddItem implements Sink.
func (d *Document) AddItem(item Item) {
	d.feed.Add(&feeds.Item{
		Title:       item.Title,
		Link:        &feeds.Link{Href: item.Link},
		Description: item.Description,
		Id:          item.ID,
		Created:     item.Date,
		Updated:     item.Date,
	})
}

// Render implements Sink.
func (d *Document) Render(w io.Writer) error {
	switch d.format {
	case Atom:
		return d.feed.WriteAtom(w)
	case JSON:
		return d.feed.WriteJSON(w)
	default:
		return d.feed.WriteRss(w)
	}
}

// Save implements Sink. The file is replaced atomically so readers never
// see a partially written feed.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return fmt.Errorf("rendering feed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating feed file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing feed file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing feed file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing feed file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing feed file: %w", err)
	}
	return nil
}

// Ensure Document implements Sink.
var _ Sink = (*Document)(nil)

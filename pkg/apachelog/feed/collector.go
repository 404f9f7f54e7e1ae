package feed

import (
	"errors"
	"io"
)

// Collector is a Sink that only records what it receives. It is useful
// when the caller wants the accepted items rather than a document.
type Collector struct {
	Metadata Metadata
	Items    []Item
}

// SetMetadata implements Sink.
func (c *Collector) SetMetadata(meta Metadata) {
	c.Metadata = meta
}

// AddItem implements Sink.
func (c *Collector) AddItem(item Item) {
	c.Items = append(c.Items, item)
}

// Render implements Sink. A Collector has no document form.
func (c *Collector) Render(io.Writer) error {
	return errors.ErrUnsupported
}

// Save implements Sink. A Collector has no document form.
func (c *Collector) Save(string) error {
	return errors.ErrUnsupported
}

var _ Sink = (*Collector)(nil)

// Package analyzer runs an access-log-to-feed session: it reads a log file
// line by line, parses each line with a compiled format, keeps the records
// accepted by a filter set and hands them to a feed sink.
package analyzer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/apachelog2feed/apachelog2feed-go/internal/logfinder"
	"github.com/apachelog2feed/apachelog2feed-go/internal/safefile"
	"github.com/apachelog2feed/apachelog2feed-go/internal/tailer"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/feed"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/filter"
)

// discardLogger returns a logger that discards all output.
var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Result summarizes one scan.
type Result struct {
	Read      int  // lines read from the source
	Parsed    int  // lines matching the log format
	Skipped   int  // lines not matching the log format
	Accepted  int  // records passed to the sink
	Truncated bool // the limit stopped the scan before end of file
}

// Analyzer is a configured session. Its matcher and filter set are
// read-only after New, so Scan may be called repeatedly; each call reads
// the source from the start.
type Analyzer struct {
	cfg     config
	source  string // as given by the caller
	path    string // resolved file to read
	dir     string // non-empty when source is a directory
	link    string
	matcher *apachelog.Matcher
	filters *filter.Set
	log     *slog.Logger
}

// New validates the configuration and prepares a session for source,
// which is a log file or a directory holding access logs.
//
// All configuration problems are reported here as *ConfigError: a missing
// or unreadable source, a negative limit, a format yielding no fields, or
// a malformed filter.
func New(source string, opts ...Option) (*Analyzer, error) {
	cfg := applyOptions(opts)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	path, err := logfinder.Resolve(source)
	if err != nil {
		return nil, &ConfigError{Field: "source", Message: "cannot resolve log source", Cause: err}
	}
	if _, err := safefile.CheckReadable(path); err != nil {
		return nil, &ConfigError{Field: "source", Message: "log source is not readable", Cause: err}
	}

	var dir string
	if info, err := os.Stat(source); err == nil && info.IsDir() {
		dir = filepath.Dir(path)
	}

	matcher, err := apachelog.Compile(cfg.format)
	if err != nil {
		return nil, err
	}

	filters, err := buildFilters(cfg)
	if err != nil {
		return nil, &ConfigError{Field: "filter", Message: "invalid filter", Cause: err}
	}

	link := cfg.link
	if link == "" {
		link = fileURL(path)
	}

	log := cfg.logger
	if log == nil {
		log = discardLogger
	}

	return &Analyzer{
		cfg:     *cfg,
		source:  source,
		path:    path,
		dir:     dir,
		link:    link,
		matcher: matcher,
		filters: filters,
		log:     log,
	}, nil
}

// buildFilters assembles the filter set from the configured set,
// predicates and expressions, in that order.
func buildFilters(cfg *config) (*filter.Set, error) {
	set := cfg.set
	if set == nil {
		set = filter.NewSet(cfg.mode)
	} else if len(cfg.predicates) > 0 || len(cfg.exprs) > 0 {
		// copy so the caller's set is not modified
		merged := filter.NewSet(set.Mode())
		for _, p := range set.Predicates() {
			if err := merged.Add(p); err != nil {
				return nil, err
			}
		}
		set = merged
	}

	for _, p := range cfg.predicates {
		if err := set.Add(p); err != nil {
			return nil, err
		}
	}
	for _, expr := range cfg.exprs {
		if err := set.AddExpr(expr); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// fileURL returns a file:// URL for path.
func fileURL(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// Path returns the resolved log file.
func (a *Analyzer) Path() string {
	return a.path
}

// Matcher returns the compiled log format.
func (a *Analyzer) Matcher() *apachelog.Matcher {
	return a.matcher
}

// Filters returns the filter set.
func (a *Analyzer) Filters() *filter.Set {
	return a.filters
}

// Link returns the link used for the feed and its items.
func (a *Analyzer) Link() string {
	return a.link
}

// Metadata returns the feed metadata for this session.
func (a *Analyzer) Metadata() feed.Metadata {
	title := a.cfg.title
	if title == "" {
		n := a.filters.Len()
		switch n {
		case 0:
			title = fmt.Sprintf("Log %s filtered by no filter", a.source)
		case 1:
			title = fmt.Sprintf("Log %s filtered by 1 filter", a.source)
		default:
			title = fmt.Sprintf("Log %s filtered by %d filters", a.source, n)
		}
	}
	return feed.Metadata{
		Title:       title,
		Link:        a.link,
		Description: a.filters.String(),
		Updated:     a.cfg.now(),
	}
}

// Scan reads the source from the start and adds every accepted record to
// sink. Lines that do not match the format are skipped. The scan stops
// at end of file, when the line limit is reached, or when ctx is done,
// in which case ctx.Err() is returned with the counts so far.
func (a *Analyzer) Scan(ctx context.Context, sink feed.Sink) (Result, error) {
	var res Result
	sink.SetMetadata(a.Metadata())

	t, err := tailer.New(ctx, a.path, tailer.OneShot())
	if err != nil {
		return res, fmt.Errorf("opening %s: %w", a.path, err)
	}
	defer func() { _ = t.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		case line, ok := <-t.Lines():
			if !ok {
				// Errors is closed right after Lines
				if err, ok := <-t.Errors(); ok {
					return res, fmt.Errorf("reading %s: %w", a.path, err)
				}
				return res, ctx.Err()
			}
			if res.Read >= a.cfg.limit {
				res.Truncated = true
				a.log.Debug("line limit reached", "limit", a.cfg.limit)
				return res, nil
			}
			res.Read++

			rec, err := a.matcher.Parse(line)
			if err != nil {
				res.Skipped++
				a.log.Debug("skipping line", "line", res.Read, "error", err)
				continue
			}
			res.Parsed++

			if !a.filters.Match(rec) {
				continue
			}
			res.Accepted++
			sink.AddItem(feed.NewItem(rec, a.link))
		}
	}
}

// Run scans into a new feed document and writes it: to the configured
// output in display mode, or to the target file in save mode.
func (a *Analyzer) Run(ctx context.Context) (Result, error) {
	doc, err := feed.New(a.cfg.feedFormat)
	if err != nil {
		return Result{}, err
	}

	res, err := a.Scan(ctx, doc)
	if err != nil {
		return res, err
	}
	a.log.Debug("scan finished",
		"read", res.Read, "parsed", res.Parsed, "skipped", res.Skipped,
		"accepted", res.Accepted, "truncated", res.Truncated)

	if a.cfg.target == "" {
		if err := doc.Render(a.cfg.output); err != nil {
			return res, fmt.Errorf("rendering feed: %w", err)
		}
		return res, nil
	}
	if err := doc.Save(a.cfg.target); err != nil {
		return res, fmt.Errorf("saving feed: %w", err)
	}
	a.log.Debug("feed saved", "path", a.cfg.target)
	return res, nil
}

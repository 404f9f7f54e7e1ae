package analyzer

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/feed"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/filter"
)

// DefaultLimit is the default maximum number of lines read per scan.
const DefaultLimit = 100000

// Option configures an Analyzer using the functional options pattern.
type Option func(*config)

// config holds the session configuration.
type config struct {
	target     string
	format     string
	limit      int
	mode       filter.Mode
	predicates []filter.Predicate
	exprs      []string
	set        *filter.Set
	feedFormat feed.Format
	link       string
	title      string
	logger     *slog.Logger
	output     io.Writer
	now        func() time.Time
}

// defaultConfig returns a config with the documented defaults.
func defaultConfig() *config {
	return &config{
		format:     apachelog.FormatCombined,
		limit:      DefaultLimit,
		feedFormat: feed.RSS,
		output:     os.Stdout,
		now:        time.Now,
	}
}

// applyOptions applies functional options to a config.
func applyOptions(opts []Option) *config {
	cfg := defaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

// validate checks values that need no file system access.
func (c *config) validate() error {
	if c.limit < 0 {
		return &ConfigError{Field: "limit", Message: fmt.Sprintf("must be non-negative, got %d", c.limit)}
	}
	if c.mode != filter.ModeAnd && c.mode != filter.ModeOr {
		return &ConfigError{Field: "mode", Message: fmt.Sprintf("unknown filter mode %d", c.mode)}
	}
	if _, err := feed.New(c.feedFormat); err != nil {
		return &ConfigError{Field: "feed-format", Message: err.Error()}
	}
	if c.output == nil {
		return &ConfigError{Field: "output", Message: "writer is nil"}
	}
	return nil
}

// WithTarget saves the feed to path instead of writing it to the output.
// An empty path selects display mode (default).
func WithTarget(path string) Option {
	return func(c *config) {
		c.target = path
	}
}

// WithFormat sets the log format string or one of the named formats
// accepted by apachelog.LookupFormat. Default: combined.
func WithFormat(format string) Option {
	return func(c *config) {
		if f, ok := apachelog.LookupFormat(format); ok {
			format = f
		}
		c.format = format
	}
}

// WithLimit sets the maximum number of lines read. Once reached the scan
// stops. Default: DefaultLimit.
func WithLimit(n int) Option {
	return func(c *config) {
		c.limit = n
	}
}

// WithMode sets how filters combine. Default: filter.ModeAnd.
// Ignored when WithFilterSet is used.
func WithMode(mode filter.Mode) Option {
	return func(c *config) {
		c.mode = mode
	}
}

// WithFilters appends predicates to the filter set.
func WithFilters(preds ...filter.Predicate) Option {
	return func(c *config) {
		c.predicates = append(c.predicates, preds...)
	}
}

// WithFilterExprs appends predicates written in expression syntax
// (see filter.ParseExpr), e.g. "Final-Status=200".
func WithFilterExprs(exprs ...string) Option {
	return func(c *config) {
		c.exprs = append(c.exprs, exprs...)
	}
}

// WithFilterSet uses a prebuilt set, e.g. one loaded with filter.LoadSet.
// Predicates from WithFilters and WithFilterExprs are added after the
// set's own.
func WithFilterSet(set *filter.Set) Option {
	return func(c *config) {
		c.set = set
	}
}

// WithFeedFormat sets the output document format. Default: feed.RSS.
func WithFeedFormat(format feed.Format) Option {
	return func(c *config) {
		c.feedFormat = format
	}
}

// WithLink sets the feed and item link.
// Default: a file:// URL of the absolute source path.
func WithLink(link string) Option {
	return func(c *config) {
		c.link = link
	}
}

// WithTitle overrides the generated feed title.
func WithTitle(title string) Option {
	return func(c *config) {
		c.title = title
	}
}

// WithLogger sets a custom logger for debug output.
// If logger is nil, logging is disabled (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithOutput sets where Run writes the feed in display mode.
// Default: os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithClock sets the time source used for the feed's updated date.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.now = now
		}
	}
}

// WatchOption configures a Watcher.
type WatchOption func(*watchConfig)

// ReplayMode specifies how a Watcher handles existing log lines.
type ReplayMode int

const (
	// ReplayNone only watches for new lines (default, tail -f behavior).
	ReplayNone ReplayMode = iota
	// ReplayFromStart reads from the beginning of the file.
	ReplayFromStart
	// ReplayLastN reads the last N lines before tailing.
	ReplayLastN
)

// DefaultMaxReplayLastN is the largest N accepted by WithReplayLastN.
const DefaultMaxReplayLastN = 10000

// watchConfig holds the Watcher configuration.
type watchConfig struct {
	pollInterval       time.Duration
	replay             ReplayMode
	lastN              int
	maxReplayBytes     int
	maxReplayLineBytes int
	includeRawLine     bool
	usePolling         bool
}

func defaultWatchConfig() *watchConfig {
	return &watchConfig{
		pollInterval:       2 * time.Second,
		maxReplayBytes:     10 * 1024 * 1024,
		maxReplayLineBytes: 512 * 1024,
	}
}

func applyWatchOptions(opts []WatchOption) *watchConfig {
	cfg := defaultWatchConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	return cfg
}

func (c *watchConfig) validate() error {
	if c.replay == ReplayLastN {
		if c.lastN < 0 {
			return fmt.Errorf("replay LastN must be non-negative, got %d", c.lastN)
		}
		if c.lastN > DefaultMaxReplayLastN {
			return fmt.Errorf("replay LastN (%d) exceeds maximum of %d", c.lastN, DefaultMaxReplayLastN)
		}
	}
	if c.pollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %v", c.pollInterval)
	}
	if c.maxReplayBytes < 0 {
		return fmt.Errorf("maxReplayBytes must be non-negative, got %d", c.maxReplayBytes)
	}
	if c.maxReplayLineBytes < 0 {
		return fmt.Errorf("maxReplayLineBytes must be non-negative, got %d", c.maxReplayLineBytes)
	}
	return nil
}

// WithPollInterval sets how often a directory source is checked for a
// newer log file. Default: 2 seconds.
func WithPollInterval(interval time.Duration) WatchOption {
	return func(c *watchConfig) {
		c.pollInterval = interval
	}
}

// WithReplayFromStart reads the whole file before following it.
func WithReplayFromStart() WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayFromStart
	}
}

// WithReplayLastN reads the last n non-empty lines before following.
func WithReplayLastN(n int) WatchOption {
	return func(c *watchConfig) {
		c.replay = ReplayLastN
		c.lastN = n
	}
}

// WithMaxReplayBytes bounds the bytes read by WithReplayLastN.
// Default is 10MB. Set to 0 for unlimited.
func WithMaxReplayBytes(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayBytes = max
	}
}

// WithMaxReplayLineBytes bounds each line read by WithReplayLastN.
// Default is 512KB. Set to 0 for unlimited.
func WithMaxReplayLineBytes(max int) WatchOption {
	return func(c *watchConfig) {
		c.maxReplayLineBytes = max
	}
}

// WithIncludeRawLine includes the original line in Entry.Raw.
func WithIncludeRawLine(include bool) WatchOption {
	return func(c *watchConfig) {
		c.includeRawLine = include
	}
}

// WithPolling detects file changes by polling instead of OS notifications.
// Useful on network file systems.
func WithPolling(poll bool) WatchOption {
	return func(c *watchConfig) {
		c.usePolling = poll
	}
}

// Package config resolves the command-line configuration from flags,
// APACHELOG2FEED_* environment variables and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/apachelog2feed/apachelog2feed-go/pkg/analyzer"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/feed"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog/filter"
)

// EnvPrefix is the prefix of environment variables, e.g.
// APACHELOG2FEED_FEED_FORMAT.
const EnvPrefix = "APACHELOG2FEED"

// ConfigName is the base name of the config file searched in the home
// and working directories.
const ConfigName = ".apachelog2feed"

// Configuration keys. Flags use the same names.
const (
	KeySource      = "source"
	KeyTarget      = "target"
	KeyFormat      = "format"
	KeyLimit       = "limit"
	KeyMode        = "mode"
	KeyFilter      = "filter"
	KeyFiltersFile = "filters-file"
	KeyFeedFormat  = "feed-format"
	KeyLink        = "link"
	KeyTitle       = "title"
	KeyVerbose     = "verbose"
	KeyLogFormat   = "log-format"
	KeyLogLevel    = "log-level"
)

var keys = []string{
	KeySource, KeyTarget, KeyFormat, KeyLimit, KeyMode, KeyFilter,
	KeyFiltersFile, KeyFeedFormat, KeyLink, KeyTitle, KeyVerbose, KeyLogFormat,
	KeyLogLevel,
}

// Config is the validated configuration of one run.
type Config struct {
	Source      string
	Target      string // empty means display mode
	Format      string // expanded format string
	Limit       int
	Mode        filter.Mode
	ModeSet     bool // Mode was given explicitly
	Filters     []string
	FiltersFile string
	FeedFormat  feed.Format
	Link        string
	Title       string
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyFormat, "combined")
	v.SetDefault(KeyLimit, analyzer.DefaultLimit)
	v.SetDefault(KeyFeedFormat, string(feed.RSS))
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs that has a configuration key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, key := range keys {
		if f := fs.Lookup(key); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("binding flag %s: %w", key, err)
			}
		}
	}
	return nil
}

// ReadFile loads path, or searches for ConfigName in the home and working
// directories when path is empty. A missing searched file is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return &apachelog.ConfigError{Field: "config", Message: "cannot read config file", Cause: err}
	}
	return nil
}

// Load validates the resolved values. Every failure is an
// *apachelog.ConfigError.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Source:      strings.TrimSpace(v.GetString(KeySource)),
		Target:      v.GetString(KeyTarget),
		Filters:     v.GetStringSlice(KeyFilter),
		FiltersFile: v.GetString(KeyFiltersFile),
		Link:        v.GetString(KeyLink),
		Title:       v.GetString(KeyTitle),
	}

	if cfg.Source == "" {
		return nil, &apachelog.ConfigError{Field: KeySource, Message: "log source is required"}
	}

	format := v.GetString(KeyFormat)
	if f, ok := apachelog.LookupFormat(format); ok {
		format = f
	}
	cfg.Format = format

	rawLimit := strings.TrimSpace(v.GetString(KeyLimit))
	limit, err := strconv.Atoi(rawLimit)
	if err != nil {
		return nil, &apachelog.ConfigError{Field: KeyLimit, Message: fmt.Sprintf("not an integer: %q", rawLimit)}
	}
	if limit < 0 {
		return nil, &apachelog.ConfigError{Field: KeyLimit, Message: fmt.Sprintf("must be non-negative, got %d", limit)}
	}
	cfg.Limit = limit

	rawMode := v.GetString(KeyMode)
	cfg.Mode, err = filter.ParseMode(rawMode)
	if err != nil {
		return nil, &apachelog.ConfigError{Field: KeyMode, Message: err.Error()}
	}
	cfg.ModeSet = strings.TrimSpace(rawMode) != ""

	cfg.FeedFormat, err = feed.ParseFormat(v.GetString(KeyFeedFormat))
	if err != nil {
		return nil, &apachelog.ConfigError{Field: KeyFeedFormat, Message: err.Error()}
	}

	return cfg, nil
}

// Options converts the configuration into analyzer options. A filters
// file is loaded here; an explicit mode overrides the file's.
func (c *Config) Options(logger *slog.Logger) ([]analyzer.Option, error) {
	opts := []analyzer.Option{
		analyzer.WithTarget(c.Target),
		analyzer.WithFormat(c.Format),
		analyzer.WithLimit(c.Limit),
		analyzer.WithMode(c.Mode),
		analyzer.WithFilterExprs(c.Filters...),
		analyzer.WithFeedFormat(c.FeedFormat),
		analyzer.WithLink(c.Link),
		analyzer.WithTitle(c.Title),
		analyzer.WithLogger(logger),
	}

	if c.FiltersFile == "" {
		return opts, nil
	}

	set, err := filter.LoadSet(c.FiltersFile)
	if err != nil {
		return nil, &apachelog.ConfigError{Field: KeyFiltersFile, Message: "invalid filters file", Cause: err}
	}
	if c.ModeSet && set.Mode() != c.Mode {
		overridden := filter.NewSet(c.Mode)
		for _, p := range set.Predicates() {
			if err := overridden.Add(p); err != nil {
				return nil, err
			}
		}
		set = overridden
	}
	return append(opts, analyzer.WithFilterSet(set)), nil
}

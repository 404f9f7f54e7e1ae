package main

import (
	"github.com/spf13/pflag"

	"github.com/apachelog2feed/apachelog2feed-go/internal/config"
)

// addScanFlags adds the flags shared by feed and watch.
func addScanFlags(fs *pflag.FlagSet) {
	fs.StringP(config.KeySource, "s", "",
		"access log file, or a directory holding access logs")
	fs.StringP(config.KeyFormat, "f", "combined",
		"LogFormat string or nickname: common, combined, vhost_combined, referer, agent")
	fs.StringP(config.KeyMode, "m", "",
		"filter combination: and, or (default and)")
	fs.StringArrayP(config.KeyFilter, "F", nil,
		"filter expression: field=value, field!=value, field~value, field!~value (repeatable)")
	fs.String(config.KeyFiltersFile, "",
		"YAML file with filter definitions")
}

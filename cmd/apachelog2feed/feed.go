package main

import (
	"context"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/apachelog2feed/apachelog2feed-go/internal/config"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/analyzer"
)

func newFeedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed [source]",
		Short: "Build a feed from an access log",
		Long: `Read an access log, keep the lines accepted by the filters and write
them as a feed. Lines that do not match the log format are skipped.

The feed goes to stdout unless --target names a file.

Examples:
  # All requests, RSS on stdout
  apachelog2feed feed /var/log/apache2/access.log

  # Server errors as an Atom file
  apachelog2feed feed /var/log/apache2 -F 'Final-Status=regexp:^5' \
    --feed-format atom --target errors.xml

  # Bots or admin pages, common log format
  apachelog2feed feed access.log --format common --mode or \
    -F 'User-Agent~regexp:(?i)bot' -F 'Request~/admin'`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runFeed,
	}

	fs := cmd.Flags()
	addScanFlags(fs)
	fs.StringP(config.KeyLimit, "n", strconv.Itoa(analyzer.DefaultLimit),
		"maximum number of lines to read")
	fs.StringP(config.KeyTarget, "t", "",
		"write the feed to this file instead of stdout")
	fs.String(config.KeyFeedFormat, "rss",
		"feed format: rss, atom, json")
	fs.String(config.KeyLink, "",
		"link for the feed and its items (default: file:// URL of the log)")
	fs.String(config.KeyTitle, "",
		"feed title (default: derived from source and filters)")
	return cmd
}

func (a *app) runFeed(cmd *cobra.Command, args []string) error {
	a.setSource(args)

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	opts, err := cfg.Options(a.logger)
	if err != nil {
		return err
	}
	opts = append(opts, analyzer.WithOutput(cmd.OutOrStdout()))

	an, err := analyzer.New(cfg.Source, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := an.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("feed written",
		"source", an.Path(),
		"filters", an.Filters().String(),
		"read", res.Read,
		"skipped", res.Skipped,
		"accepted", res.Accepted,
		"truncated", res.Truncated,
	)
	if res.Truncated {
		a.logger.Warn("line limit reached, rest of the log was not read", "limit", cfg.Limit)
	}
	return nil
}

// contextOf returns the command context, or Background when the command
// runs outside Execute.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

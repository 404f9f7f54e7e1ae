package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/apachelog2feed/apachelog2feed-go/internal/config"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/analyzer"
)

// watchFlags holds the flags only watch understands.
type watchFlags struct {
	output       string
	includeRaw   bool
	replayLast   int
	poll         bool
	pollInterval time.Duration
}

func newWatchCmd(a *app) *cobra.Command {
	var wf watchFlags

	cmd := &cobra.Command{
		Use:   "watch [source]",
		Short: "Follow an access log and print matching records",
		Long: `Follow a growing access log and print every new line accepted by the
filters, like tail -F with a parser in front.

Records are printed as JSON Lines by default (one JSON object per line),
which makes it easy to process them with tools like jq. When the source is
a directory, watch switches to a newer access log as soon as one appears.

Examples:
  # Follow the live log
  apachelog2feed watch /var/log/apache2/access.log

  # Client errors only, human-readable
  apachelog2feed watch /var/log/apache2 -F 'Final-Status=regexp:^4' -o pretty

  # Replay the last 100 lines first
  apachelog2feed watch access.log --replay-last 100

  # Pipe to jq
  apachelog2feed watch access.log | jq -r '.fields.Request'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd, args, wf)
		},
	}

	fs := cmd.Flags()
	addScanFlags(fs)
	fs.StringVarP(&wf.output, "output", "o", "jsonl",
		"Output format: jsonl, pretty")
	fs.BoolVar(&wf.includeRaw, "raw", false,
		"Include raw log lines in output")
	fs.IntVar(&wf.replayLast, "replay-last", -1,
		"Replay last N lines before following (-1 = disabled, 0 = from start)")
	fs.BoolVar(&wf.poll, "poll", false,
		"Poll for changes instead of using file system notifications")
	fs.DurationVar(&wf.pollInterval, "poll-interval", 2*time.Second,
		"How often a directory source is checked for a newer log")
	return cmd
}

func (a *app) runWatch(cmd *cobra.Command, args []string, wf watchFlags) error {
	if !validFormats[wf.output] {
		return fmt.Errorf("unknown output format %q (want jsonl, pretty)", wf.output)
	}
	a.setSource(args)

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	opts, err := cfg.Options(a.logger)
	if err != nil {
		return err
	}
	an, err := analyzer.New(cfg.Source, opts...)
	if err != nil {
		return err
	}

	watchOpts := []analyzer.WatchOption{
		analyzer.WithIncludeRawLine(wf.includeRaw),
		analyzer.WithPolling(wf.poll),
		analyzer.WithPollInterval(wf.pollInterval),
	}
	switch {
	case wf.replayLast == 0:
		watchOpts = append(watchOpts, analyzer.WithReplayFromStart())
	case wf.replayLast > 0:
		watchOpts = append(watchOpts, analyzer.WithReplayLastN(wf.replayLast))
	}

	watcher, err := an.NewWatcher(watchOpts...)
	if err != nil {
		return err
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entries, errs, err := watcher.Watch(ctx)
	if err != nil {
		return err
	}
	a.logger.Debug("watching", "path", an.Path(), "filters", an.Filters().String())

	out := cmd.OutOrStdout()
	for {
		select {
		case e, ok := <-entries:
			if !ok {
				return nil
			}
			if err := OutputEntry(wf.output, e, out); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", "error", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// Command apachelog2feed converts Apache access logs into syndication
// feeds.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/apachelog2feed/apachelog2feed-go/internal/config"
	"github.com/apachelog2feed/apachelog2feed-go/internal/logging"
)

// app holds the state shared by all commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	logger  *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{
		v:      config.New(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	root := &cobra.Command{
		Use:   "apachelog2feed",
		Short: "Turn Apache access logs into RSS, Atom or JSON feeds",
		Long: `apachelog2feed parses Apache access logs written with any LogFormat,
keeps the lines matching a chain of filters and publishes them as a feed.

Every flag can also be set in $HOME/.apachelog2feed.yaml or through an
APACHELOG2FEED_* environment variable (e.g. APACHELOG2FEED_FEED_FORMAT=atom).`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "",
		"config file (default: $HOME/.apachelog2feed.yaml)")
	root.PersistentFlags().BoolP(config.KeyVerbose, "v", false,
		"enable debug logging")
	root.PersistentFlags().String(config.KeyLogFormat, "text",
		"log format: text, json")
	root.PersistentFlags().String(config.KeyLogLevel, "info",
		"log level: debug, info, warn, error")

	root.AddCommand(
		newFeedCmd(a),
		newWatchCmd(a),
		newFieldsCmd(a),
		newCompletionCmd(),
	)
	return root
}

// setup reads the config file, binds the command's flags and builds the
// logger. It runs before every subcommand.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := config.ReadFile(a.v, a.cfgFile); err != nil {
		return err
	}
	if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
		return err
	}

	level := logging.ParseLevel(a.v.GetString(config.KeyLogLevel))
	if a.v.GetBool(config.KeyVerbose) {
		level = logging.Level(true)
	}
	logger, err := logging.New(cmd.ErrOrStderr(), a.v.GetString(config.KeyLogFormat), level)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

// setSource lets a positional argument override the configured source.
func (a *app) setSource(args []string) {
	if len(args) > 0 {
		a.v.Set(config.KeySource, args[0])
	}
}

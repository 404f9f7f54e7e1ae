package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/apachelog2feed/apachelog2feed-go/internal/config"
	"github.com/apachelog2feed/apachelog2feed-go/pkg/apachelog"
)

func newFieldsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fields [format]",
		Short: "Show the field names of a log format",
		Long: `Print the field names a log format produces, in capture order, and the
pattern used to match lines. Use it to find the names to filter on.

Examples:
  apachelog2feed fields
  apachelog2feed fields common
  apachelog2feed fields '%h %{X-Forwarded-For}i %>s %D'`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runFields,
	}
	cmd.Flags().StringP(config.KeyFormat, "f", "combined",
		"LogFormat string or nickname (overridden by the argument)")
	return cmd
}

func (a *app) runFields(cmd *cobra.Command, args []string) error {
	format := a.v.GetString(config.KeyFormat)
	if len(args) > 0 {
		format = args[0]
	}
	if f, ok := apachelog.LookupFormat(format); ok {
		format = f
	}

	m, err := apachelog.Compile(format)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFIELD\tDIRECTIVE\tCAPTURE")
	tokens := m.Tokens()
	for i, name := range m.Names() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, name, tokens[i].Directive, tokens[i].Kind)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "\npattern: %s\n", m.Pattern())
	return err
}

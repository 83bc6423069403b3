package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/garyellow/chatbot-go/internal/app"
	"github.com/garyellow/chatbot-go/internal/buildinfo"
	"github.com/garyellow/chatbot-go/internal/config"
	"github.com/garyellow/chatbot-go/internal/logger"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "botctl",
		Short:         "Inspect and validate chat bot command definitions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newCommandsCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

func newCommandsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commands",
		Short: "Work with command definition files",
	}
	cmd.AddCommand(newListCmd(), newCheckCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print command definitions (embedded defaults unless --file is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := config.LoadCommands(file)
			if err != nil {
				return err
			}
			return printDefinitions(cmd.OutOrStdout(), defs)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "definition file (.yaml, .yml or .toml)")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a definition file against the known handlers and registry rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := config.LoadCommands(args[0])
			if err != nil {
				return err
			}
			tables, err := app.BuildTables(defs, app.Deps{
				Logger: logger.NewWithWriter("error", io.Discard),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d commands, %d event types OK\n",
				args[0], tables.Registry.Len(), len(tables.Events.Types()))
			return nil
		},
	}
}

func printDefinitions(w io.Writer, defs []config.CommandDefinition) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tHANDLER\tADMIN\tFLAGS\tHELP")
	for _, d := range defs {
		pattern := d.Pattern
		if d.Regex {
			pattern = "/" + pattern + "/"
		}
		admin := ""
		if d.Privileged {
			admin = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", pattern, d.Handler, admin, flagSummary(d.Flags), d.Help)
	}
	return tw.Flush()
}

func flagSummary(flags []config.FlagDefinition) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		names := append([]string{f.Name}, f.Aliases...)
		s := "-" + strings.Join(names, "/-")
		if f.Kind != "" {
			s += ":" + f.Kind
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

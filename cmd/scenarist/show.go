package main

import (
	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/scenarist/internal/report"
)

type showOptions struct {
	jsonOutput bool
}

func newShowCmd() *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <report.json>",
		Short: "Render a saved run report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output the report as JSON")

	return cmd
}

func runShow(cmd *cobra.Command, path string, opts *showOptions) error {
	if err := validateFilePath(path); err != nil {
		return newCommandError("show", "locating report", err, "Pass a report written by 'scenarist run --report'.")
	}

	rep, err := report.Load(path)
	if err != nil {
		return newCommandError("show", "loading report", err, "Pass a report written by 'scenarist run --report'.")
	}

	if opts.jsonOutput {
		return report.WriteJSON(cmd.OutOrStdout(), *rep)
	}
	return report.WriteText(cmd.OutOrStdout(), *rep, isTerminal(cmd.OutOrStdout()))
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/scenarist/internal/config"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file>...",
		Short: "Check scenario files without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args)
		},
	}

	return cmd
}

func runValidate(cmd *cobra.Command, files []string) error {
	out := cmd.OutOrStdout()
	unicode := isTerminal(out)

	invalid := 0
	for _, file := range files {
		sc, err := config.LoadScenario(file)
		if err != nil {
			invalid++
			fmt.Fprintf(out, "%s %s: %v\n", mark(false, unicode), file, err)
			continue
		}
		fmt.Fprintf(out, "%s %s: %s (%d steps)\n", mark(true, unicode), file, sc.Name, len(sc.Steps))
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d scenario file(s) invalid", invalid, len(files))
	}
	return nil
}

func mark(ok, unicode bool) string {
	switch {
	case ok && unicode:
		return "✓"
	case ok:
		return "[ok]"
	case unicode:
		return "✗"
	default:
		return "[invalid]"
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/scenarist/internal/config"
	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/engine"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
	"github.com/alexisbeaulieu97/scenarist/internal/tui"
)

const (
	outputText = "text"
	outputJSON = "json"
)

type runOptions struct {
	Files          []string
	Output         string
	ReportPath     string
	Parallel       int
	NonInteractive bool
	Executors      executorOptions
}

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>...",
		Short: "Run one or more scenarios and report the outcome",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Files = args
			if !opts.NonInteractive {
				opts.NonInteractive = !isTerminal(cmd.OutOrStdout())
			}

			if err := validateRunOptions(opts); err != nil {
				return err
			}

			return runScenarios(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", outputText, "Output format: text or json")
	cmd.Flags().StringVar(&opts.ReportPath, "report", "", "Write the JSON report to this path (a directory when several scenarios run)")
	cmd.Flags().IntVar(&opts.Parallel, "parallel", 1, "Number of scenarios to run concurrently (0 = unlimited)")
	cmd.Flags().BoolVar(&opts.NonInteractive, "non-interactive", false, "Disable the live progress view")
	bindExecutorFlags(cmd, &opts.Executors)

	return cmd
}

func runScenarios(cmd *cobra.Command, root *rootFlags, opts runOptions) error {
	scenarios, err := loadScenarios(opts.Files)
	if err != nil {
		return err
	}
	if opts.Executors.StepTimeout > 0 {
		for i := range scenarios {
			scenarios[i].Settings.StepTimeout = opts.Executors.StepTimeout
		}
	}

	interactive := !opts.NonInteractive && opts.Output == outputText

	// Info lines would tear through the progress view.
	level := "info"
	if interactive {
		level = "warn"
	}
	log, err := root.newLoggerAt(cmd.ErrOrStderr(), level)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := newRegistry(opts.Executors, log)
	baseOpts := runnerOptions(opts.Executors, log)

	var reports []*report.Report
	var runErr error
	if interactive {
		model := tui.NewModel(runTitle(scenarios), scenarios)
		reports, runErr = tui.Execute(ctx, cmd.OutOrStdout(), model, func(ctx context.Context, obs engine.Observer) ([]*report.Report, error) {
			runner := engine.NewRunner(reg, append(baseOpts, engine.WithObserver(obs))...)
			return runner.RunAll(ctx, scenarios, opts.Parallel)
		})
	} else {
		reports, runErr = engine.NewRunner(reg, baseOpts...).RunAll(ctx, scenarios, opts.Parallel)
	}

	if err := writeReports(cmd.OutOrStdout(), reports, opts, interactive); err != nil {
		return err
	}
	if opts.ReportPath != "" {
		if err := saveReports(opts.ReportPath, reports); err != nil {
			return newCommandError("run", "saving report", err, "Check that the report path is writable.")
		}
	}

	if runErr != nil {
		return runErr
	}
	return verdict(reports)
}

func loadScenarios(files []string) ([]scenario.Scenario, error) {
	scenarios := make([]scenario.Scenario, 0, len(files))
	for _, file := range files {
		sc, err := config.LoadScenario(file)
		if err != nil {
			return nil, newCommandError("run", fmt.Sprintf("loading %s", file), err, fmt.Sprintf("Run 'scenarist validate %s' for details.", file))
		}
		scenarios = append(scenarios, sc)
	}
	return scenarios, nil
}

func writeReports(w io.Writer, reports []*report.Report, opts runOptions, interactive bool) error {
	present := make([]report.Report, 0, len(reports))
	for _, rep := range reports {
		if rep != nil {
			present = append(present, *rep)
		}
	}

	switch {
	case opts.Output == outputJSON && len(reports) == 1 && len(present) == 1:
		return report.WriteJSON(w, present[0])
	case opts.Output == outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(present)
	case interactive:
		return nil
	}

	color := isTerminal(w)
	for i, rep := range present {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if err := report.WriteText(w, rep, color); err != nil {
			return err
		}
	}
	return nil
}

func saveReports(path string, reports []*report.Report) error {
	if len(reports) == 1 {
		if reports[0] == nil {
			return nil
		}
		return report.Save(path, *reports[0])
	}
	for i, rep := range reports {
		if rep == nil {
			continue
		}
		name := fmt.Sprintf("%02d-%s.json", i+1, slug(rep.ScenarioName))
		if err := report.Save(filepath.Join(path, name), *rep); err != nil {
			return err
		}
	}
	return nil
}

func verdict(reports []*report.Report) error {
	failed := 0
	for _, rep := range reports {
		if rep == nil || !rep.Success {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d scenario(s) failed: %w", failed, len(reports), errScenariosFailed)
}

func runTitle(scenarios []scenario.Scenario) string {
	if len(scenarios) == 1 {
		return scenarios[0].Name
	}
	return fmt.Sprintf("%d scenarios", len(scenarios))
}

func slug(name string) string {
	s := strings.Trim(slugPattern.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if s == "" {
		return "scenario"
	}
	return s
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

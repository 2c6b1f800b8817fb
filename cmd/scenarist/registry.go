package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/engine"
	"github.com/alexisbeaulieu97/scenarist/internal/executor"
	"github.com/alexisbeaulieu97/scenarist/internal/executors/api"
	"github.com/alexisbeaulieu97/scenarist/internal/executors/db"
	"github.com/alexisbeaulieu97/scenarist/internal/executors/web"
	"github.com/alexisbeaulieu97/scenarist/internal/logger"
)

// executorOptions configures the executors shared by run and serve.
type executorOptions struct {
	StepTimeout time.Duration
	Headless    bool
	ChromePath  string
	HTTPRetries int
	MaxResponse int64
}

func bindExecutorFlags(cmd *cobra.Command, opts *executorOptions) {
	cmd.Flags().DurationVar(&opts.StepTimeout, "step-timeout", 0, "Override the per-step timeout of every scenario (e.g. 30s)")
	cmd.Flags().BoolVar(&opts.Headless, "headless", true, "Run the browser without a visible window")
	cmd.Flags().StringVar(&opts.ChromePath, "chrome-path", "", "Path to the Chrome or Chromium executable")
	cmd.Flags().IntVar(&opts.HTTPRetries, "http-retries", 1, "Retries for API requests failing with a connection error or 5xx")
	cmd.Flags().Int64Var(&opts.MaxResponse, "max-response-bytes", api.DefaultMaxResponseBytes, "Largest API response body read per request")
}

func newRegistry(opts executorOptions, log *logger.Logger) *executor.Registry {
	apiOpts := api.DefaultOptions()
	apiOpts.RetryMax = opts.HTTPRetries
	apiOpts.MaxResponseBytes = opts.MaxResponse
	apiOpts.UserAgent = "scenarist/" + version
	apiOpts.Logger = log

	reg := executor.NewRegistry()
	reg.MustRegister(scenario.PlatformWeb, web.NewFactory(web.ChromeOptions{
		Headless: opts.Headless,
		ExecPath: opts.ChromePath,
		Logger:   log,
	}))
	reg.MustRegister(scenario.PlatformAPI, api.NewFactory(apiOpts))
	reg.MustRegister(scenario.PlatformDB, db.NewFactory())
	return reg
}

func runnerOptions(opts executorOptions, log *logger.Logger) []engine.Option {
	runnerOpts := []engine.Option{engine.WithLogger(log)}
	if opts.StepTimeout > 0 {
		runnerOpts = append(runnerOpts, engine.WithStepTimeout(opts.StepTimeout))
	}
	return runnerOpts
}

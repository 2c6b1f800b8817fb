package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/scenarist/internal/engine"
	"github.com/alexisbeaulieu97/scenarist/internal/server"
)

type serveOptions struct {
	Addr         string
	MaxBodyBytes int64
	Executors    executorOptions
}

func newServeCmd(root *rootFlags) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept scenario submissions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, root, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().Int64Var(&opts.MaxBodyBytes, "max-body-bytes", server.DefaultMaxBodyBytes, "Largest accepted submission in bytes")
	bindExecutorFlags(cmd, &opts.Executors)

	return cmd
}

func runServe(cmd *cobra.Command, root *rootFlags, opts serveOptions) error {
	log, err := root.newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := engine.NewRunner(newRegistry(opts.Executors, log), runnerOptions(opts.Executors, log)...)
	srv := server.New(runner, server.WithLogger(log), server.WithMaxBodyBytes(opts.MaxBodyBytes))
	if err := srv.ListenAndServe(ctx, opts.Addr); err != nil {
		return newCommandError("serve", "serving on "+opts.Addr, err, "Choose a free address with --addr.")
	}
	return nil
}

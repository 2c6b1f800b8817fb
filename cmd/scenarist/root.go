package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/scenarist/internal/logger"
)

const (
	logFormatConsole = "console"
	logFormatJSON    = "json"
)

type rootFlags struct {
	verbose   bool
	logFormat string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "scenarist",
		Short:         "Scenarist runs cross-platform test scenarios across web, API and database steps",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.validate()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVar(&flags.logFormat, "log-format", logFormatConsole, "Log format: console or json")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func (f *rootFlags) validate() error {
	switch f.logFormat {
	case logFormatConsole, logFormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported log format %q (expected console or json)", f.logFormat)
	}
}

func (f *rootFlags) newLogger(w io.Writer) (*logger.Logger, error) {
	return f.newLoggerAt(w, "info")
}

// newLoggerAt builds a logger at level, or at debug when --verbose is set.
func (f *rootFlags) newLoggerAt(w io.Writer, level string) (*logger.Logger, error) {
	if f.verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:         level,
		HumanReadable: f.logFormat != logFormatJSON,
		Writer:        w,
	})
}

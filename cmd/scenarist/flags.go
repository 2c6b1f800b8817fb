package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"
)

func validateRunOptions(opts runOptions) error {
	if opts.Output != outputText && opts.Output != outputJSON {
		return fmt.Errorf("unsupported output format %q (expected text or json)", opts.Output)
	}
	if opts.Parallel < 0 {
		return fmt.Errorf("--parallel must not be negative")
	}
	if opts.Executors.HTTPRetries < 0 {
		return fmt.Errorf("--http-retries must not be negative")
	}
	if opts.Executors.MaxResponse < 0 {
		return fmt.Errorf("--max-response-bytes must not be negative")
	}
	if opts.Executors.StepTimeout < 0 {
		return fmt.Errorf("--step-timeout must not be negative")
	}
	for _, file := range opts.Files {
		if err := validateFilePath(file); err != nil {
			return err
		}
	}
	return nil
}

func validateFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("scenario file is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve scenario path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("scenario file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("scenario path %s is a directory", abs)
	}

	return nil
}

func isTerminal(w io.Writer) bool {
	if file, ok := w.(*os.File); ok {
		return term.IsTerminal(int(file.Fd()))
	}
	return false
}

package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/scenarist/internal/logger"
)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for run and step events.
func WithLogger(log *logger.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.logger = log
		}
	}
}

// WithStepTimeout sets the fallback deadline for steps whose scenario does
// not configure one.
func WithStepTimeout(d time.Duration) Option {
	return func(r *Runner) { r.stepTimeout = d }
}

// WithObserver registers an observer for step progress.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator replaces the run id generator.
func WithIDGenerator(next func() string) Option {
	return func(r *Runner) {
		if next != nil {
			r.newID = next
		}
	}
}

func defaultID() string {
	return uuid.NewString()
}

// Package server accepts scenario submissions over HTTP and runs them.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/alexisbeaulieu97/scenarist/internal/config"
	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/logger"
	"github.com/alexisbeaulieu97/scenarist/internal/report"
	scenarioerrors "github.com/alexisbeaulieu97/scenarist/pkg/errors"
)

const (
	// DefaultMaxBodyBytes bounds the size of a submitted scenario document.
	DefaultMaxBodyBytes = 1 << 20

	// DefaultReadHeaderTimeout is the timeout for reading request headers.
	DefaultReadHeaderTimeout = 10 * time.Second
	// DefaultIdleTimeout is the idle timeout for keepalive connections.
	DefaultIdleTimeout = 120 * time.Second

	shutdownTimeout = 10 * time.Second
)

// Runner executes a scenario. *engine.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, sc scenario.Scenario) (*report.Report, error)
}

// Server exposes scenario execution over HTTP.
type Server struct {
	runner       Runner
	logger       *logger.Logger
	maxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log *logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// New returns a server dispatching submissions to runner.
func New(runner Runner, opts ...Option) *Server {
	s := &Server{
		runner:       runner,
		logger:       logger.Nop(),
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /scenarios/run", s.handleRun)
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithFields(map[string]any{"addr": listener.Addr().String()}).Info("server listening")
		errCh <- httpServer.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("read request body: %v", err)})
		return
	}

	sc, err := decodeScenario(body)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rep, err := s.runner.Run(r.Context(), sc)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.WithFields(map[string]any{
		"run_id":   rep.RunID,
		"scenario": rep.ScenarioName,
		"success":  rep.Success,
	}).Info("scenario submission finished")
	writeJSON(w, http.StatusOK, rep)
}

func decodeScenario(body []byte) (scenario.Scenario, error) {
	doc, err := config.Parse(body, "request")
	if err != nil {
		return scenario.Scenario{}, err
	}
	return doc.ToScenario()
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var validationErr *scenarioerrors.ValidationError
	var parseErr *scenarioerrors.ParseError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: validationErr.Message, Field: validationErr.Field})
	case errors.As(err, &parseErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: parseErr.Error()})
	default:
		s.logger.Error(err, "scenario submission failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(v)
}

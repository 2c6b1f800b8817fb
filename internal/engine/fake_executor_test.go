package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
	"github.com/alexisbeaulieu97/scenarist/internal/executor"
)

type call struct {
	Action scenario.Action
	Params map[string]any
}

// scriptedExecutor returns outputs keyed by the "id" param and records every
// call it receives.
type scriptedExecutor struct {
	platform scenario.Platform

	mu      sync.Mutex
	calls   []call
	outputs map[string]any
	fail    map[string]error
	delay   map[string]time.Duration
	panics  map[string]bool
	closed  int
}

func newScripted(platform scenario.Platform) *scriptedExecutor {
	return &scriptedExecutor{
		platform: platform,
		outputs:  map[string]any{},
		fail:     map[string]error{},
		delay:    map[string]time.Duration{},
		panics:   map[string]bool{},
	}
}

func (s *scriptedExecutor) Platform() scenario.Platform { return s.platform }

func (s *scriptedExecutor) Execute(ctx context.Context, action scenario.Action, params map[string]any) (any, error) {
	key, _ := params["id"].(string)

	s.mu.Lock()
	s.calls = append(s.calls, call{Action: action, Params: params})
	out, failErr := s.outputs[key], s.fail[key]
	delay, shouldPanic := s.delay[key], s.panics[key]
	s.mu.Unlock()

	if shouldPanic {
		panic("boom")
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if failErr != nil {
		return nil, failErr
	}
	return out, nil
}

func (s *scriptedExecutor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *scriptedExecutor) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *scriptedExecutor) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// stubbornExecutor ignores cancellation.
type stubbornExecutor struct {
	release chan struct{}
}

func (s stubbornExecutor) Platform() scenario.Platform { return scenario.PlatformWeb }

func (s stubbornExecutor) Execute(context.Context, scenario.Action, map[string]any) (any, error) {
	<-s.release
	return "late", nil
}

func registryWith(t interface{ Helper() }, execs ...executor.Executor) *executor.Registry {
	t.Helper()
	reg := executor.NewRegistry()
	for _, e := range execs {
		if err := reg.Register(e.Platform(), executor.Static(e)); err != nil {
			panic(err)
		}
	}
	return reg
}

var errBackend = errors.New("backend down")

package executor

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alexisbeaulieu97/scenarist/internal/domain/scenario"
)

// ErrNotRegistered is returned when no factory serves a platform.
type ErrNotRegistered struct {
	Platform scenario.Platform
}

func (e *ErrNotRegistered) Error() string {
	return fmt.Sprintf("no executor registered for platform %q", e.Platform)
}

// Registry maps platforms to executor factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[scenario.Platform]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[scenario.Platform]Factory)}
}

// Register adds factory for platform.
func (r *Registry) Register(platform scenario.Platform, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("executor factory for %q is nil", platform)
	}
	if !platform.IsValid() {
		return fmt.Errorf("unknown platform %q", platform)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[platform]; exists {
		return fmt.Errorf("executor for platform %q already registered", platform)
	}
	r.factories[platform] = factory
	return nil
}

// MustRegister is Register that panics on error. Use it only during program
// wiring.
func (r *Registry) MustRegister(platform scenario.Platform, factory Factory) {
	if err := r.Register(platform, factory); err != nil {
		panic(err)
	}
}

// Get returns the factory for platform.
func (r *Registry) Get(platform scenario.Platform) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.factories[platform]
	if !ok {
		return nil, &ErrNotRegistered{Platform: platform}
	}
	return factory, nil
}

// Platforms lists registered platforms in sorted order.
func (r *Registry) Platforms() []scenario.Platform {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]scenario.Platform, 0, len(r.factories))
	for platform := range r.factories {
		out = append(out, platform)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

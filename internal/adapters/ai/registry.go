package ai

import (
	"strings"
	"sync"

	"github.com/DevDizzle/profit-scout/pkg/errors"
)

// Registry stores the configured text-generation providers
type Registry struct {
	providers   map[ProviderName]Generator
	defaultName ProviderName
	mu          sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[ProviderName]Generator),
	}
}

// Register adds a provider to the registry
func (r *Registry) Register(g Generator) error {
	if g == nil {
		return errors.Wrap(errors.ErrInvalidInput, "provider is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	name := g.Name()
	if _, exists := r.providers[name]; exists {
		return errors.Wrapf(errors.ErrInvalidInput, "provider %s already registered", name)
	}

	r.providers[name] = g
	if r.defaultName == "" {
		r.defaultName = name
	}
	return nil
}

// SetDefault marks the provider used when callers do not name one
func (r *Registry) SetDefault(name ProviderName) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return errors.Wrapf(errors.ErrNotFound, "provider %s not registered", name)
	}
	r.defaultName = name
	return nil
}

// Get returns the provider by name
func (r *Registry) Get(name ProviderName) (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.providers[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "provider %s not registered", name)
	}
	return g, nil
}

// Default returns the default provider
func (r *Registry) Default() (Generator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultName == "" {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI providers configured")
	}
	return r.providers[r.defaultName], nil
}

// NormalizeProviderName makes provider lookup more forgiving
func NormalizeProviderName(name string) ProviderName {
	return ProviderName(strings.ToLower(strings.TrimSpace(name)))
}

package platform

import (
	"fmt"
	"sort"
	"sync"

	"github.com/alanyoungcy/expiryscan/internal/domain"
)

// Registry holds market sources keyed by platform name.
type Registry struct {
	adapters map[string]domain.PlatformAdapter
	mu       sync.RWMutex
}

// NewRegistry returns an empty registry. Call Register to add adapters.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]domain.PlatformAdapter)}
}

// Register adds an adapter under its own name, replacing any previous one.
func (r *Registry) Register(a domain.PlatformAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for name.
func (r *Registry) Get(name string) (domain.PlatformAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("platform: %w: %q", domain.ErrUnknownPlatform, name)
	}
	return a, nil
}

// Select returns the adapters for names in the given order. Repeated names
// are returned once. An unknown name is an error so misconfiguration
// surfaces before any network call.
func (r *Registry) Select(names []string) ([]domain.PlatformAdapter, error) {
	seen := make(map[string]bool, len(names))
	out := make([]domain.PlatformAdapter, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		a, err := r.Get(n)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// List returns all registered platform names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for n := range r.adapters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

package pass

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps pass type strings to their implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu     sync.RWMutex
	passes map[string]Pass
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{passes: make(map[string]Pass)}
}

// Register adds a pass. Panics on duplicate type to surface misconfiguration early.
func (r *Registry) Register(p Pass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.passes[p.Type()]; exists {
		panic(fmt.Sprintf("pass registry: duplicate type %q", p.Type()))
	}
	r.passes[p.Type()] = p
}

// Get returns the pass for the given type.
func (r *Registry) Get(passType string) (Pass, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.passes[passType]
	if !ok {
		return nil, fmt.Errorf("no pass registered for type %q", passType)
	}
	return p, nil
}

// Has reports whether a pass type is registered.
func (r *Registry) Has(passType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.passes[passType]
	return ok
}

// Types returns all registered pass types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.passes))
	for k := range r.passes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Package registry maps adapter names to adapter instances. The core only
// needs a name lookup at session construction time; registration happens at
// program wiring.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mxm-platform/dataio/adapter"
)

// Registry is a concurrency-safe name to adapter mapping.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]adapter.Adapter
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{adapters: make(map[string]adapter.Adapter)}
}

// Register adds an adapter under the given name. Registering a name twice
// is an error; Unregister first to replace.
func (r *Registry) Register(name string, a adapter.Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter %q is already registered", name)
	}
	r.adapters[name] = a
	return nil
}

// Resolve returns the adapter registered under name.
func (r *Registry) Resolve(name string) (adapter.Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %q", name)
	}
	return a, nil
}

// Unregister removes an adapter. Unknown names are a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.adapters, name)
}

// Names returns the registered adapter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all registered adapters.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters = make(map[string]adapter.Adapter)
}

// Describe returns a human-readable listing of registered adapters.
func (r *Registry) Describe() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.adapters) == 0 {
		return "(no adapters registered)"
	}
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, r.adapters[name].Describe())
	}
	return strings.TrimRight(b.String(), "\n")
}

// Default is the process-wide registry used when no explicit registry is
// passed to a session.
var Default = New()

// Register adds an adapter to the default registry.
func Register(name string, a adapter.Adapter) error { return Default.Register(name, a) }

// Resolve looks up an adapter in the default registry.
func Resolve(name string) (adapter.Adapter, error) { return Default.Resolve(name) }

// Unregister removes an adapter from the default registry.
func Unregister(name string) { Default.Unregister(name) }

// Names lists the default registry's adapter names in sorted order.
func Names() []string { return Default.Names() }

// Clear empties the default registry.
func Clear() { Default.Clear() }

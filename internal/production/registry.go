package production

import (
	"fmt"
	"sort"
	"sync"

	"github.com/verzog/merchant/internal/domain"
)

// Registry holds the production handlers available to catalog items,
// keyed by handler name.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under its own name. Registering the same
// name twice is a programming error and panics during startup wiring.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := h.Name()
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("production: handler %q registered twice", name))
	}
	r.handlers[name] = h
}

// Get resolves a handler by name.
func (r *Registry) Get(name string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	if !ok {
		return nil, domain.Errorf(domain.ENOTFOUND, "production.registry",
			"no production handler named %q", name)
	}
	return h, nil
}

// Names lists the registered handler names, sorted for stable admin
// display.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

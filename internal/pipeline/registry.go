package pipeline

import "fmt"

// Registry is the closed lookup table from phase name to handler. The set of
// handlers is fixed at wiring time; there is no dynamic plugin registration.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Registering a second handler for the same phase
// is a wiring bug and returns an error.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("handler is nil")
	}
	name := h.Name()
	if name == "" {
		return fmt.Errorf("handler has empty phase name")
	}
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("handler already registered for phase %s", name)
	}
	r.handlers[name] = h
	return nil
}

// Handler returns the handler for a phase name.
func (r *Registry) Handler(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

package handler

import (
	"fmt"
	"sync"
)

// Registry handler registry
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates a new handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register registers a handler
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := h.ID()
	if _, exists := r.handlers[id]; exists {
		return fmt.Errorf("handler %s already exists", id)
	}

	r.handlers[id] = h
	return nil
}

// Get gets a handler by ID
func (r *Registry) Get(id string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[id]
	return h, exists
}

// IDs returns all registered handler IDs
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	return ids
}

// Validate checks that every required handler ID is registered
func (r *Registry) Validate(required []string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range required {
		if _, exists := r.handlers[id]; !exists {
			return fmt.Errorf("no handler registered for %s", id)
		}
	}
	return nil
}

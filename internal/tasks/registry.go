package tasks

import (
	"context"
	"sync"
	"time"

	"smepay_gateway/internal/interfaces"
	"smepay_gateway/internal/services"
)

// Deps carries the shared dependencies every task handler receives.
type Deps struct {
	Orders     interfaces.OrderRepository
	Gateways   map[string]*services.Gateway
	Reconciler *services.Reconciler

	// SweepGrace is how long a pending session must sit untouched before the
	// sweep asks the provider about it.
	SweepGrace time.Duration
}

// TaskHandler is the function signature for a task handler.
// It takes context, dependencies and arguments, and returns a result map and error.
type TaskHandler func(ctx context.Context, deps *Deps, args map[string]interface{}) (map[string]interface{}, error)

// Registry stores the mapping of task names to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]TaskHandler
}

// GlobalRegistry is the default global registry
var GlobalRegistry = &Registry{
	handlers: make(map[string]TaskHandler),
}

// Register adds a handler for a task name
func (r *Registry) Register(name string, handler TaskHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Get retrieves a handler for a task name
func (r *Registry) Get(name string) (TaskHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[name]
	return handler, ok
}

// RegisterHandler is a helper to register to the global registry
func RegisterHandler(name string, handler TaskHandler) {
	GlobalRegistry.Register(name, handler)
}

// GetHandler is a helper to get from the global registry
func GetHandler(name string) (TaskHandler, bool) {
	return GlobalRegistry.Get(name)
}

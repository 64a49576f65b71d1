package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler runs one job, its payload is the json the job was dispatched with.
type Handler func(ctx context.Context, payload json.RawMessage) error

type definition struct {
	handler Handler
	policy  Policy
}

// Registry maps job kinds to their handler and policy.
type Registry struct {
	mu          sync.RWMutex
	definitions map[Kind]definition
}

func NewRegistry() *Registry {
	return &Registry{
		definitions: map[Kind]definition{},
	}
}

// Handle registers a raw handler, registering a kind twice replaces it.
func (r *Registry) Handle(kind Kind, policy Policy, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.definitions[kind] = definition{
		handler: handler,
		policy:  policy,
	}
}

// Register registers a handler taking a typed payload. A payload that does not
// decode into T fails the job permanently.
func Register[T any](r *Registry, kind Kind, policy Policy, handler func(ctx context.Context, payload T) error) {
	r.Handle(kind, policy, func(ctx context.Context, raw json.RawMessage) error {
		var payload T
		err := json.Unmarshal(raw, &payload)
		if err != nil {
			return Permanent(fmt.Errorf("decode %s payload: %w", kind, err))
		}
		return handler(ctx, payload)
	})
}

func (r *Registry) lookup(kind Kind) (definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.definitions[kind]
	return def, ok
}

// Kinds returns every registered kind.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.definitions))
	for kind := range r.definitions {
		out = append(out, kind)
	}
	return out
}

// Package dispatch exposes engine operations through a registry keyed by
// operation id. Handler sets can be reconciled (add / replace / remove) in a
// single validated step, so the operation surface can evolve without touching
// stored auction state.
package dispatch

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Handler executes one operation. Caller identity travels alongside the raw
// request payload; the concrete handler decodes the payload it expects.
type Handler interface {
	// OperationID returns the id this handler serves.
	OperationID() string

	// Execute runs the operation and returns a JSON-encodable result.
	Execute(caller string, payload json.RawMessage) (any, error)
}

// Registry manages operation handlers by id. Registration and lookup are
// thread-safe.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler. Returns an error if the id is already taken.
func (r *Registry) Register(h Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := h.OperationID()
	if _, exists := r.handlers[id]; exists {
		return fmt.Errorf("handler already registered for operation: %s", id)
	}
	r.handlers[id] = h
	return nil
}

// MustRegister adds a handler and panics if registration fails.
func (r *Registry) MustRegister(h Handler) {
	if err := r.Register(h); err != nil {
		panic(err)
	}
}

// Get returns the handler for an operation id, or nil.
func (r *Registry) Get(id string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[id]
}

// Has reports whether an operation id is served.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[id]
	return ok
}

// Operations returns all registered operation ids.
func (r *Registry) Operations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// CutAction says how a cut entry changes the operation set.
type CutAction uint8

const (
	CutAdd CutAction = iota
	CutReplace
	CutRemove
)

// Cut is one entry of a reconciliation step.
type Cut struct {
	Action  CutAction
	ID      string
	Handler Handler // nil for CutRemove
}

// Manifest is the known-good operation set a reconciliation is validated
// against before activation.
type Manifest map[string]struct{}

// NewManifest builds a manifest from operation ids.
func NewManifest(ids ...string) Manifest {
	m := make(Manifest, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

// Reconcile validates the whole cut against the current handler set and the
// manifest, then applies it atomically: either every entry activates or none
// does.
//
// Validation rules: an added id must be absent and present in the manifest; a
// replaced or removed id must currently be served; add and replace entries
// must carry a handler whose OperationID matches the entry.
func (r *Registry) Reconcile(cuts []Cut, manifest Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := make(map[string]Handler, len(r.handlers))
	for id, h := range r.handlers {
		next[id] = h
	}

	for _, c := range cuts {
		if _, known := manifest[c.ID]; !known {
			return fmt.Errorf("operation %q not in manifest", c.ID)
		}
		switch c.Action {
		case CutAdd:
			if _, exists := next[c.ID]; exists {
				return fmt.Errorf("cannot add %q: already registered", c.ID)
			}
			if c.Handler == nil || c.Handler.OperationID() != c.ID {
				return fmt.Errorf("cut for %q carries mismatched handler", c.ID)
			}
			next[c.ID] = c.Handler
		case CutReplace:
			if _, exists := next[c.ID]; !exists {
				return fmt.Errorf("cannot replace %q: not registered", c.ID)
			}
			if c.Handler == nil || c.Handler.OperationID() != c.ID {
				return fmt.Errorf("cut for %q carries mismatched handler", c.ID)
			}
			next[c.ID] = c.Handler
		case CutRemove:
			if _, exists := next[c.ID]; !exists {
				return fmt.Errorf("cannot remove %q: not registered", c.ID)
			}
			delete(next, c.ID)
		default:
			return fmt.Errorf("unknown cut action %d for %q", c.Action, c.ID)
		}
	}

	r.handlers = next
	return nil
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	ID string
	Fn func(caller string, payload json.RawMessage) (any, error)
}

func (h HandlerFunc) OperationID() string { return h.ID }

func (h HandlerFunc) Execute(caller string, payload json.RawMessage) (any, error) {
	return h.Fn(caller, payload)
}

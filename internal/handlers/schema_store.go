package handlers

import (
	"context"
	"slices"
	"sync"

	"github.com/goliatone/go-mesh/internal/nodes"
)

// SchemaHandler runs before a node of its schema is rendered.
type SchemaHandler = Func[*nodes.Node]

// SchemaStore keeps an ordered handler chain per schema key.
type SchemaStore struct {
	mu       sync.RWMutex
	order    []string
	handlers map[string][]entry[*nodes.Node]
}

func NewSchemaStore() *SchemaStore {
	return &SchemaStore{handlers: map[string][]entry[*nodes.Node]{}}
}

// Register appends handler to the chain of schema.
func (s *SchemaStore) Register(schema string, handler SchemaHandler) HandlerID {
	id := nextID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handlers[schema]; !ok {
		s.order = append(s.order, schema)
	}
	s.handlers[schema] = append(s.handlers[schema], entry[*nodes.Node]{id: id, fn: handler})
	return id
}

// Unregister removes the registration id from the chain of schema.
func (s *SchemaStore) Unregister(schema string, id HandlerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	remaining, removed := without(s.handlers[schema], id)
	if !removed {
		return false
	}
	if len(remaining) == 0 {
		delete(s.handlers, schema)
		s.order = slices.DeleteFunc(s.order, func(key string) bool { return key == schema })
		return true
	}
	s.handlers[schema] = remaining
	return true
}

// Run executes the chain of schema over node. Without handlers node is
// returned as is. The chain is snapshotted first; registrations made while
// it runs apply to later runs only.
func (s *SchemaStore) Run(ctx context.Context, schema string, node *nodes.Node) (*nodes.Node, error) {
	s.mu.RLock()
	chain := funcs(s.handlers[schema])
	s.mu.RUnlock()
	if len(chain) == 0 {
		return node, nil
	}
	return Run(ctx, node, chain...)
}

// Schemas lists the schema keys with handlers, in registration order.
func (s *SchemaStore) Schemas() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

func (s *SchemaStore) Len(schema string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handlers[schema])
}

package testutil

import (
	"context"
	"sync"

	"github.com/roach88/kiln/internal/ir"
)

type itemKey struct {
	key string
	id  ir.Identifier
}

// Items is an in-memory compiler.ItemStore.
type Items struct {
	mu     sync.Mutex
	values map[itemKey][]byte
}

// NewItems creates an empty item store.
func NewItems() *Items {
	return &Items{values: make(map[itemKey][]byte)}
}

// SaveItem implements compiler.ItemStore.
func (s *Items) SaveItem(_ context.Context, key string, id ir.Identifier, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[itemKey{key, id}] = append([]byte{}, value...)
	return nil
}

// LoadItem implements compiler.ItemStore.
func (s *Items) LoadItem(_ context.Context, key string, id ir.Identifier) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[itemKey{key, id}]
	if !ok {
		return nil, false, nil
	}
	return append([]byte{}, v...), true, nil
}

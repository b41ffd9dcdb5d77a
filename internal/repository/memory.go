package repository

import (
	"context"
	"fmt"
	"sync"
)

// MemoryClient is a process-local KV, used for local runs and tests.
type MemoryClient struct {
	mu    sync.Mutex
	items map[string]Item
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{items: make(map[string]Item)}
}

func memoryKey(scope Scope, key string) string {
	return string(scope) + "/" + key
}

func (m *MemoryClient) Get(_ context.Context, scope Scope, key string) (Item, error) {
	if !validScope(scope) {
		return Item{}, fmt.Errorf("repository: Get: unknown scope %q", scope)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[memoryKey(scope, key)]
	if !ok {
		return Item{}, nil
	}
	item.Data = append([]byte(nil), item.Data...)
	return item, nil
}

func (m *MemoryClient) Put(_ context.Context, scope Scope, key string, data []byte, expectedVersion int64) (int64, error) {
	if !validScope(scope) {
		return 0, fmt.Errorf("repository: Put: unknown scope %q", scope)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(scope, key)
	if m.items[k].Version != expectedVersion {
		return 0, fmt.Errorf("repository: Put %s: %w", k, ErrVersionConflict)
	}
	next := expectedVersion + 1
	m.items[k] = Item{Data: append([]byte(nil), data...), Version: next}
	return next, nil
}

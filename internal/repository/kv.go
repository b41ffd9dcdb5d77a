package repository

import (
	"context"
	"errors"
)

// Scope separates conversation records from user records.
type Scope string

const (
	ScopeConversation Scope = "conversation"
	ScopeUser         Scope = "user"
)

// ErrVersionConflict is returned when a record changed since it was read.
var ErrVersionConflict = errors.New("repository: version conflict")

// Item is a stored document and the version it was read at. Version 0 means
// the record does not exist yet.
type Item struct {
	Data    []byte
	Version int64
}

// KV is the key-value backend behind StateStore.
type KV interface {
	// Get returns the item for key; a missing key yields a zero Item.
	Get(ctx context.Context, scope Scope, key string) (Item, error)
	// Put stores data if the record is still at expectedVersion and returns the new version.
	Put(ctx context.Context, scope Scope, key string, data []byte, expectedVersion int64) (int64, error)
}

func validScope(scope Scope) bool {
	return scope == ScopeConversation || scope == ScopeUser
}

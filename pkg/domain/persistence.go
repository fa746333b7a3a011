package domain

import (
	"context"
	"errors"
)

// ErrDuplicateID is returned by Storage.New when the id is already used by an
// entity of another class.
var ErrDuplicateID = errors.New("id already in use")

// Storage is the uniform contract of every persistence backend. Callers must
// not depend on which backend is active, nor on the iteration order of All.
//
// An empty Class passed to All or Count matches every class.
type Storage interface {
	// All returns clones of every cached entity, optionally filtered by class.
	All(class Class) []*Entity
	// New registers e in the cache under "<Class>.<id>". Registering an
	// existing key replaces the cached entity. Nothing is persisted yet.
	New(e *Entity) error
	// Save flushes the whole cache to the durable medium.
	Save(ctx context.Context) error
	// Reload replaces the cache with the contents of the durable medium.
	Reload(ctx context.Context) error
	// Get returns a clone of the matching entity.
	Get(class Class, id string) (*Entity, bool)
	// Count returns the number of cached entities, optionally filtered by class.
	Count(class Class) int
	// Delete drops e from the cache; the medium forgets it on the next Save.
	Delete(e *Entity) bool
	// Close releases backend resources.
	Close() error
}

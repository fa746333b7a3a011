// Package memory provides the in-memory entity cache shared by every
// persistence backend. Used on its own it is an ephemeral store for tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"hbnb/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the storage interface.
var _ domain.Storage = (*Store)(nil)

// Store is an insertion-ordered cache keyed by "<Class>.<id>".
type Store struct {
	mu      sync.RWMutex
	objects map[string]*domain.Entity
	order   []string
	ids     map[string]domain.Class
}

// NewStore constructs an empty cache.
func NewStore() *Store {
	return &Store{
		objects: make(map[string]*domain.Entity),
		ids:     make(map[string]domain.Class),
	}
}

// All returns clones of the cached entities in insertion order.
func (s *Store) All(class domain.Class) []*domain.Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Entity, 0, len(s.order))
	for _, key := range s.order {
		e := s.objects[key]
		if class != "" && e.Class != class {
			continue
		}
		out = append(out, e.Clone())
	}
	return out
}

// New registers e, replacing any entity cached under the same key.
func (s *Store) New(e *domain.Entity) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if owner, ok := s.ids[e.ID]; ok && owner != e.Class {
		return fmt.Errorf("%w: %s is a %s", domain.ErrDuplicateID, e.ID, owner)
	}
	key := e.Key()
	if _, exists := s.objects[key]; !exists {
		s.order = append(s.order, key)
	}
	s.objects[key] = e.Clone()
	s.ids[e.ID] = e.Class
	return nil
}

// Get returns a clone of the cached entity.
func (s *Store) Get(class domain.Class, id string) (*domain.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.objects[domain.Key(class, id)]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

// Count returns the number of cached entities of class, or of all classes.
func (s *Store) Count(class domain.Class) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if class == "" {
		return len(s.order)
	}
	n := 0
	for _, e := range s.objects {
		if e.Class == class {
			n++
		}
	}
	return n
}

// Delete drops e from the cache. It reports whether anything was removed.
func (s *Store) Delete(e *domain.Entity) bool {
	if e == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := e.Key()
	if _, ok := s.objects[key]; !ok {
		return false
	}
	delete(s.objects, key)
	delete(s.ids, e.ID)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Save is a no-op: the cache has no durable medium.
func (s *Store) Save(context.Context) error { return nil }

// Reload is a no-op: the cache has no durable medium to reload from.
func (s *Store) Reload(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ExportState clones the cached entities in insertion order for external persistence.
func (s *Store) ExportState() []*domain.Entity {
	return s.All("")
}

// ImportState replaces the cache with the provided entities, preserving their order.
func (s *Store) ImportState(entities []*domain.Entity) error {
	objects := make(map[string]*domain.Entity, len(entities))
	ids := make(map[string]domain.Class, len(entities))
	order := make([]string, 0, len(entities))
	for _, e := range entities {
		if err := e.Validate(); err != nil {
			return err
		}
		if owner, ok := ids[e.ID]; ok && owner != e.Class {
			return fmt.Errorf("%w: %s is a %s", domain.ErrDuplicateID, e.ID, owner)
		}
		key := e.Key()
		if _, exists := objects[key]; !exists {
			order = append(order, key)
		}
		objects[key] = e.Clone()
		ids[e.ID] = e.Class
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = objects
	s.ids = ids
	s.order = order
	return nil
}

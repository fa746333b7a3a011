// Package file provides the JSON-document storage backend. The whole cache is
// serialized into one document keyed by "<Class>.<id>" and rewritten on every
// save.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hbnb/internal/blob"
	"hbnb/internal/infra/persistence/memory"
	"hbnb/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Storage = (*Store)(nil)

// DefaultKey is the document key used when none is configured.
const DefaultKey = "file.json"

// Store persists the in-memory cache as a single JSON document on a blob medium.
type Store struct {
	*memory.Store
	medium blob.Store
	key    string
	mu     sync.Mutex
	logger *zap.Logger
}

// NewStore constructs a file-backed store writing its document at key on medium.
// The cache starts empty; call Reload to hydrate it.
func NewStore(medium blob.Store, key string, logger *zap.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		Store:  memory.NewStore(),
		medium: medium,
		key:    key,
		logger: logger.With(zap.String("backend", "file"), zap.String("key", key)),
	}
}

// Key returns the configured document key.
func (s *Store) Key() string { return s.key }

// Save serializes every cached entity and rewrites the document. An empty
// cache removes the document instead.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entities := s.ExportState()
	if len(entities) == 0 {
		removed, err := s.medium.Delete(ctx, s.key)
		if err != nil {
			return fmt.Errorf("remove document: %w", err)
		}
		s.logger.Debug("cache empty", zap.Bool("removed", removed))
		return nil
	}
	data, err := encodeDocument(entities)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := s.medium.Put(ctx, s.key, data); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	s.logger.Debug("saved document", zap.Int("objects", len(entities)))
	return nil
}

// Reload replaces the cache with the document contents. A missing document
// leaves the cache untouched.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := s.medium.Get(ctx, s.key)
	if errors.Is(err, blob.ErrNotFound) {
		s.logger.Debug("no document yet")
		return nil
	}
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}
	entities, err := decodeDocument(data)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := s.ImportState(entities); err != nil {
		return fmt.Errorf("import document: %w", err)
	}
	s.logger.Debug("reloaded document", zap.Int("objects", len(entities)))
	return nil
}

// encodeDocument writes entries in cache order; encoding/json would sort the
// top-level keys of a map.
func encodeDocument(entities []*domain.Entity) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entities {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key())
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Document())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Key(), err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// decodeDocument streams the top-level object so entry order is preserved.
func decodeDocument(data []byte) ([]*domain.Entity, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected top-level object, got %v", tok)
	}
	var entities []*domain.Entity
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		class, id, err := domain.SplitKey(key)
		if err != nil {
			return nil, err
		}
		var fields map[string]domain.Value
		if err := dec.Decode(&fields); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		e, err := domain.EntityFromMap(class, fields)
		if err != nil {
			return nil, err
		}
		if e.ID != id {
			return nil, fmt.Errorf("%s: id mismatch %q", key, e.ID)
		}
		entities = append(entities, e)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entities, nil
}

// Package sqlstore provides the relational storage backend shared by the
// sqlite and postgres adapters. Each class maps to one table; the in-memory
// cache is written back in a single transaction on every save.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"hbnb/internal/entitymodel/sqlbundle"
	"hbnb/internal/infra/persistence/memory"
	"hbnb/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Storage = (*Store)(nil)

// Store mirrors the in-memory cache into per-class tables.
type Store struct {
	*memory.Store
	db      *sql.DB
	dialect Dialect
	logger  *zap.Logger

	mu      sync.Mutex
	removed map[string]*domain.Entity
}

// New wraps an open database. The cache starts empty; call Reload to apply
// the schema and hydrate it.
func New(db *sql.DB, dialect Dialect, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		Store:   memory.NewStore(),
		db:      db,
		dialect: dialect,
		logger:  logger.With(zap.String("backend", "db"), zap.String("dialect", dialect.Name)),
		removed: make(map[string]*domain.Entity),
	}
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the configured dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// New registers e in the cache. Re-registering a deleted key cancels the
// pending row deletion.
func (s *Store) New(e *domain.Entity) error {
	if err := s.Store.New(e); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.removed, e.Key())
	s.mu.Unlock()
	return nil
}

// Delete evicts e from the cache and schedules its row for deletion on the
// next save.
func (s *Store) Delete(e *domain.Entity) bool {
	if !s.Store.Delete(e) {
		return false
	}
	s.mu.Lock()
	s.removed[e.Key()] = e.Clone()
	s.mu.Unlock()
	return true
}

// Save writes every cached entity and removes deleted rows in one transaction.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entities := s.ExportState()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for key, e := range s.removed {
		if _, err := tx.ExecContext(ctx, s.dialect.deleteSQL(e.Class), e.ID); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	for _, e := range entities {
		args, err := s.dialect.encodeRow(e)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, s.dialect.upsertSQL(e.Class), args...); err != nil {
			return fmt.Errorf("upsert %s: %w", e.Key(), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	s.removed = make(map[string]*domain.Entity)
	s.logger.Debug("saved rows", zap.Int("objects", len(entities)))
	return nil
}

// Reload applies the schema and replaces the cache with the table contents.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := applyDDL(ctx, s.db, s.dialect.DDL); err != nil {
		return err
	}
	var entities []*domain.Entity
	for _, class := range domain.Classes() {
		loaded, err := s.loadClass(ctx, class)
		if err != nil {
			return err
		}
		entities = append(entities, loaded...)
	}
	if err := s.ImportState(entities); err != nil {
		return fmt.Errorf("import rows: %w", err)
	}
	s.removed = make(map[string]*domain.Entity)
	s.logger.Debug("reloaded rows", zap.Int("objects", len(entities)))
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) loadClass(ctx context.Context, class domain.Class) ([]*domain.Entity, error) {
	rows, err := s.db.QueryContext(ctx, selectSQL(class))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", Table(class), err)
	}
	defer func() { _ = rows.Close() }()
	width := len(columns(class))
	var out []*domain.Entity
	for rows.Next() {
		raw := make([]any, width)
		dest := make([]any, width)
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", Table(class), err)
		}
		e, err := decodeRow(class, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", Table(class), err)
	}
	return out, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func applyDDL(ctx context.Context, db execer, ddl string) error {
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute ddl: %w", err)
		}
	}
	return nil
}

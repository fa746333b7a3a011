// Package sqlite provides the SQLite flavour of the relational storage
// backend using the pure-Go modernc driver.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"hbnb/internal/entitymodel/sqlbundle"
	"hbnb/internal/infra/persistence/sqlstore"
	"hbnb/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Storage = (*Store)(nil)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "hbnb.db"

// Dialect describes SQLite: "?" parameters, ISO-8601 text timestamps and a
// TEXT extra column.
var Dialect = sqlstore.Dialect{
	Name:        "sqlite",
	DDL:         sqlbundle.SQLite(),
	Placeholder: sqlstore.QuestionPlaceholder,
	EncodeTime:  sqlstore.TextTime,
}

// Store is a relational store persisted to a single SQLite file.
type Store struct {
	*sqlstore.Store
	path string
}

// NewStore opens (creating when needed) the SQLite database at path.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{Store: sqlstore.New(db, Dialect, logger.With(zap.String("path", path))), path: path}, nil
}

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

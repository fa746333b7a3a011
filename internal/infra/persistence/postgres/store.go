// Package postgres provides the Postgres flavour of the relational storage
// backend, using pgx through database/sql.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"

	"hbnb/internal/entitymodel/sqlbundle"
	"hbnb/internal/infra/persistence/sqlstore"
	"hbnb/pkg/domain"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.Storage = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/hbnb?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Dialect describes Postgres: "$n" parameters, TIMESTAMP columns and a JSONB
// extra column.
var Dialect = sqlstore.Dialect{
	Name:        "postgres",
	DDL:         sqlbundle.Postgres(),
	Placeholder: sqlstore.DollarPlaceholder,
	EncodeTime:  sqlstore.NativeTime,
}

// Store is a relational store persisted to Postgres.
type Store struct {
	*sqlstore.Store
}

// NewStore opens and pings the database at dsn (falls back to DefaultDSN).
func NewStore(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{Store: sqlstore.New(db, Dialect, logger)}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

package core

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"hbnb/internal/blob"
	"hbnb/internal/config"
	"hbnb/internal/infra/persistence/file"
	"hbnb/internal/infra/persistence/postgres"
	"hbnb/internal/infra/persistence/sqlite"
	"hbnb/pkg/domain"
)

// StorageDriver identifies a concrete storage backend.
type StorageDriver string

const (
	StorageFile StorageDriver = config.StorageFile // JSON document on a blob medium
	StorageDB   StorageDriver = config.StorageDB   // relational database
)

// OpenStorage constructs the backend selected by cfg. The returned storage is
// empty; callers hydrate it with Reload.
func OpenStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (domain.Storage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch StorageDriver(cfg.Storage) {
	case StorageFile:
		root, key := documentLocation(cfg.File)
		medium, err := blob.Open(ctx, blob.Options{
			Driver: blob.Driver(cfg.File.Medium),
			Root:   root,
			S3: blob.S3Config{
				Bucket:    cfg.File.S3.Bucket,
				Region:    cfg.File.S3.Region,
				Endpoint:  cfg.File.S3.Endpoint,
				PathStyle: cfg.File.S3.PathStyle,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("open %s medium: %w", cfg.File.Medium, err)
		}
		return file.NewStore(medium, key, logger), nil
	case StorageDB:
		switch cfg.DB.Dialect {
		case config.DialectSQLite:
			return sqlite.NewStore(cfg.DB.SQLitePath, logger)
		case config.DialectPostgres:
			return postgres.NewStore(ctx, cfg.DB.PostgresDSN, logger)
		default:
			return nil, fmt.Errorf("unknown db dialect %s", cfg.DB.Dialect)
		}
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Storage)
	}
}

// BackendName labels the configured backend for logs and metrics, e.g.
// "file/fs" or "db/sqlite".
func BackendName(cfg config.Config) string {
	if StorageDriver(cfg.Storage) == StorageDB {
		return cfg.Storage + "/" + cfg.DB.Dialect
	}
	return cfg.Storage + "/" + cfg.File.Medium
}

// documentLocation splits the configured path into a filesystem root and a
// document key. Non-filesystem media use the path verbatim as the key.
func documentLocation(fc config.FileConfig) (root, key string) {
	if fc.Medium != config.MediumFS && fc.Medium != "" {
		return "", filepath.ToSlash(fc.Path)
	}
	return filepath.Dir(fc.Path), filepath.Base(fc.Path)
}

// SaveObserver receives the duration of every storage flush.
type SaveObserver interface {
	ObserveSave(backend string, d time.Duration, err error)
}

// Instrument wraps s so that every Save is reported to obs.
func Instrument(s domain.Storage, backend string, obs SaveObserver) domain.Storage {
	if obs == nil {
		return s
	}
	return &instrumentedStorage{Storage: s, backend: backend, obs: obs}
}

type instrumentedStorage struct {
	domain.Storage
	backend string
	obs     SaveObserver
}

func (s *instrumentedStorage) Save(ctx context.Context) error {
	start := time.Now()
	err := s.Storage.Save(ctx)
	s.obs.ObserveSave(s.backend, time.Since(start), err)
	return err
}

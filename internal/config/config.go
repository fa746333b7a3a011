// Package config resolves runtime settings from defaults, an optional YAML
// file and HBNB_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backend names.
const (
	StorageFile = "file"
	StorageDB   = "db"
)

// File backend media.
const (
	MediumFS     = "fs"
	MediumS3     = "s3"
	MediumMemory = "memory"
)

// Database dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// Environment variables.
const (
	EnvTypeStorage  = "HBNB_TYPE_STORAGE"
	EnvFilePath     = "HBNB_FILE_PATH"
	EnvFileMedium   = "HBNB_FILE_MEDIUM"
	EnvS3Bucket     = "HBNB_S3_BUCKET"
	EnvS3Region     = "HBNB_S3_REGION"
	EnvS3Endpoint   = "HBNB_S3_ENDPOINT"
	EnvS3PathStyle  = "HBNB_S3_PATH_STYLE"
	EnvDBDialect    = "HBNB_DB_DIALECT"
	EnvSQLitePath   = "HBNB_SQLITE_PATH"
	EnvPostgresDSN  = "HBNB_POSTGRES_DSN"
	EnvLogLevel     = "HBNB_LOG_LEVEL"
	EnvMetricsAddr  = "HBNB_METRICS_ADDR"
	defaultLogLevel = "warn"
)

// ErrInvalid reports a configuration value outside its allowed set.
var ErrInvalid = errors.New("invalid configuration")

// S3Config locates the document object for the s3 medium.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// FileConfig configures the JSON-document backend.
type FileConfig struct {
	Path   string   `yaml:"path"`
	Medium string   `yaml:"medium"`
	S3     S3Config `yaml:"s3"`
}

// DBConfig configures the relational backend.
type DBConfig struct {
	Dialect     string `yaml:"dialect"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Config is the fully resolved runtime configuration.
type Config struct {
	Storage     string     `yaml:"storage"`
	File        FileConfig `yaml:"file"`
	DB          DBConfig   `yaml:"db"`
	LogLevel    string     `yaml:"log_level"`
	MetricsAddr string     `yaml:"metrics_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageFile,
		File: FileConfig{
			Path:   "file.json",
			Medium: MediumFS,
		},
		DB: DBConfig{
			Dialect:     DialectSQLite,
			SQLitePath:  "hbnb.db",
			PostgresDSN: "postgres://localhost/hbnb?sslmode=disable",
		},
		LogLevel: defaultLogLevel,
	}
}

// Load resolves the configuration. path names an optional YAML file; an
// empty path skips it. Environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str(EnvTypeStorage, &c.Storage)
	str(EnvFilePath, &c.File.Path)
	str(EnvFileMedium, &c.File.Medium)
	str(EnvS3Bucket, &c.File.S3.Bucket)
	str(EnvS3Region, &c.File.S3.Region)
	str(EnvS3Endpoint, &c.File.S3.Endpoint)
	str(EnvDBDialect, &c.DB.Dialect)
	str(EnvSQLitePath, &c.DB.SQLitePath)
	str(EnvPostgresDSN, &c.DB.PostgresDSN)
	str(EnvLogLevel, &c.LogLevel)
	str(EnvMetricsAddr, &c.MetricsAddr)
	if v, ok := lookup(EnvS3PathStyle); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalid, EnvS3PathStyle, v)
		}
		c.File.S3.PathStyle = b
	}
	return nil
}

// Validate checks every enumerated setting.
func (c Config) Validate() error {
	switch c.Storage {
	case StorageFile:
		switch c.File.Medium {
		case MediumFS, MediumMemory:
		case MediumS3:
			if c.File.S3.Bucket == "" {
				return fmt.Errorf("%w: s3 medium requires %s", ErrInvalid, EnvS3Bucket)
			}
		default:
			return fmt.Errorf("%w: unknown file medium %q", ErrInvalid, c.File.Medium)
		}
		if c.File.Path == "" {
			return fmt.Errorf("%w: empty file path", ErrInvalid)
		}
	case StorageDB:
		switch c.DB.Dialect {
		case DialectSQLite, DialectPostgres:
		default:
			return fmt.Errorf("%w: unknown db dialect %q", ErrInvalid, c.DB.Dialect)
		}
	default:
		return fmt.Errorf("%w: unknown storage type %q", ErrInvalid, c.Storage)
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverFile     = "file"

	// DefaultTable names the table or collection holding document records
	DefaultTable = "documents"
	// DefaultSQLitePath is used when the sqlite driver is given no path
	DefaultSQLitePath = "docsync.db"
)

var (
	// ErrUnknownDriver is returned for an unsupported store.driver value
	ErrUnknownDriver = errors.New("unknown store driver")
	// ErrInvalidTable is returned for table names that are not plain identifiers
	ErrInvalidTable = errors.New("invalid table name")
	// ErrEmptyEmbedding is returned when a record without a vector is written
	ErrEmptyEmbedding = errors.New("record has no embedding")
	// ErrDimensionMismatch is returned when a vector does not fit the store
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Record is the persisted form of a document
type Record struct {
	Identity    string
	Content     string
	Embedding   []float32
	Fingerprint string
}

// Validate checks that a record can be written
func (r *Record) Validate() error {
	if r.Identity == "" {
		return errors.New("record identity is empty")
	}
	if len(r.Embedding) == 0 {
		return fmt.Errorf("%s: %w", r.Identity, ErrEmptyEmbedding)
	}
	return nil
}

// Store is the capability set the reconciler needs from a document store.
//
// Incremental stores persist each Upsert and Delete immediately and treat
// Retain and Flush as no-ops. Full-rebuild stores stage every Upsert and
// Retain and replace their contents atomically in Flush.
type Store interface {
	// EnsureSchema creates the table or collection if it does not exist
	EnsureSchema(ctx context.Context) error

	// ListAll returns every stored record
	ListAll(ctx context.Context) ([]Record, error)

	// DeriveKey maps a document identity to the store's primary key
	DeriveKey(identity string) string

	// Upsert inserts or replaces the record under key
	Upsert(ctx context.Context, key string, rec Record) error

	// Retain carries an unchanged record forward
	Retain(ctx context.Context, key string, rec Record) error

	// Delete removes the record under key; a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Flush completes the run's writes
	Flush(ctx context.Context) error

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// Describe returns a human-readable location of the store
	Describe() string

	// Close releases the store's resources
	Close() error
}

// Config selects and configures a store driver
type Config struct {
	Driver      string
	Path        string // sqlite database or JSON snapshot file
	DSN         string // postgres connection string
	Table       string
	Dimension   int  // vector size; required by postgres
	EnsureIndex bool // create an ivfflat index (postgres)
}

// New opens the store selected by cfg.Driver
func New(ctx context.Context, cfg Config) (Store, error) {
	table := cfg.Table
	if table == "" {
		table = DefaultTable
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverSQLite:
		path := cfg.Path
		if path == "" {
			path = DefaultSQLitePath
		}
		return NewSQLiteStore(path, table)
	case DriverPostgres:
		return NewPgvectorStore(ctx, PgvectorOptions{
			DSN:         cfg.DSN,
			Table:       table,
			Dimension:   cfg.Dimension,
			EnsureIndex: cfg.EnsureIndex,
		})
	case DriverFile:
		return NewFileStore(cfg.Path, table, cfg.Dimension)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
}

// SupportedDrivers lists accepted store.driver values
func SupportedDrivers() []string {
	return []string{DriverSQLite, DriverPostgres, DriverFile}
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidTableName reports whether name is a plain SQL identifier
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}

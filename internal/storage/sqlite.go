package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record doesn't exist
var ErrNotFound = errors.New("not found")

// SQLiteStore is an incremental Store backed by a single SQLite table
type SQLiteStore struct {
	db         *sql.DB
	path       string
	table      string
	tableIdent string
}

var _ Store = (*SQLiteStore)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath.
// The table itself is created by EnsureSchema.
func NewSQLiteStore(dbPath, table string) (*SQLiteStore, error) {
	if table == "" {
		table = DefaultTable
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteStore{
		db:         db,
		path:       dbPath,
		table:      table,
		tableIdent: quoteIdent(table),
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Describe returns the database path and table
func (s *SQLiteStore) Describe() string {
	return fmt.Sprintf("sqlite:%s#%s", s.path, s.table)
}

// EnsureSchema applies pending migrations to the documents table
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if err := ApplyMigrations(ctx, s.db, s.table); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

// DeriveKey uses the identity verbatim
func (s *SQLiteStore) DeriveKey(identity string) string {
	return identity
}

// ListAll returns every record ordered by identity
func (s *SQLiteStore) ListAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf(`SELECT identity, content, fingerprint, embedding FROM %s ORDER BY identity`, s.tableIdent)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record stored under key
func (s *SQLiteStore) Get(ctx context.Context, key string) (*Record, error) {
	query := fmt.Sprintf(`SELECT identity, content, fingerprint, embedding FROM %s WHERE identity = ?`, s.tableIdent)
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// rowScanner is implemented by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var blob []byte
	if err := row.Scan(&rec.Identity, &rec.Content, &rec.Fingerprint, &blob); err != nil {
		return Record{}, err
	}
	vector, err := deserializeVector(blob)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", rec.Identity, err)
	}
	rec.Embedding = vector
	return rec, nil
}

// Upsert inserts or replaces the record under key
func (s *SQLiteStore) Upsert(ctx context.Context, key string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (identity, content, fingerprint, embedding, dimension, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			content = excluded.content,
			fingerprint = excluded.fingerprint,
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			updated_at = excluded.updated_at
	`, s.tableIdent)
	_, err := s.db.ExecContext(ctx, query,
		key, rec.Content, rec.Fingerprint, serializeVector(rec.Embedding), len(rec.Embedding), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", key, err)
	}
	return nil
}

// Retain is a no-op: an unchanged row is already in place
func (s *SQLiteStore) Retain(ctx context.Context, key string, rec Record) error {
	return nil
}

// Delete removes the record under key
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE identity = ?`, s.tableIdent)
	if _, err := s.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Flush is a no-op: every write is already durable
func (s *SQLiteStore) Flush(ctx context.Context) error {
	return nil
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.tableIdent)
	if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// keyNamespace seeds the UUIDv5 keys of the pgvector store
var keyNamespace = uuid.MustParse("5c2f7f0e-2b8a-4d6e-9b1f-8d0c6a3e4f21")

// PgxPool is the subset of *pgxpool.Pool the pgvector store uses (pgxpool or pgxmock)
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PgvectorOptions configures a PgvectorStore
type PgvectorOptions struct {
	DSN         string
	Table       string
	Dimension   int
	EnsureIndex bool
}

// PgvectorStore is an incremental Store backed by a PostgreSQL table with a
// pgvector column. Rows are keyed by a UUIDv5 of the document identity.
type PgvectorStore struct {
	pool       PgxPool
	table      string
	tableIdent string
	indexIdent string
	dimension  int
	ensureIdx  bool
}

var _ Store = (*PgvectorStore)(nil)

// NewPgvectorStore connects to opts.DSN
func NewPgvectorStore(ctx context.Context, opts PgvectorOptions) (*PgvectorStore, error) {
	if opts.DSN == "" {
		return nil, errors.New("pgvector: dsn is required")
	}
	pool, err := pgxpool.New(ctx, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgvector: failed to connect to postgres: %w", err)
	}
	store, err := NewPgvectorStoreWithPool(pool, opts)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// NewPgvectorStoreWithPool builds a store over an existing pool
func NewPgvectorStoreWithPool(pool PgxPool, opts PgvectorOptions) (*PgvectorStore, error) {
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	if opts.Dimension <= 0 {
		return nil, errors.New("pgvector: dimension is required")
	}
	return &PgvectorStore{
		pool:       pool,
		table:      table,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		indexIdent: pgx.Identifier{table + "_embedding_idx"}.Sanitize(),
		dimension:  opts.Dimension,
		ensureIdx:  opts.EnsureIndex,
	}, nil
}

// Describe returns the table name; the DSN may carry credentials
func (p *PgvectorStore) Describe() string {
	return "postgres#" + p.table
}

// EnsureSchema enables the vector extension and creates the table
func (p *PgvectorStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id UUID PRIMARY KEY,
		identity TEXT NOT NULL,
		content TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		embedding vector(%d) NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`, p.tableIdent, p.dimension)
	if _, err := p.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	if p.ensureIdx {
		createIndex := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (embedding vector_cosine_ops)",
			p.indexIdent,
			p.tableIdent,
		)
		if _, err := p.pool.Exec(ctx, createIndex); err != nil {
			return fmt.Errorf("pgvector: create index: %w", err)
		}
	}
	return nil
}

// DeriveKey returns the UUIDv5 of identity
func (p *PgvectorStore) DeriveKey(identity string) string {
	return uuid.NewSHA1(keyNamespace, []byte(identity)).String()
}

// ListAll returns every row ordered by identity
func (p *PgvectorStore) ListAll(ctx context.Context) ([]Record, error) {
	query := fmt.Sprintf("SELECT identity, content, fingerprint, embedding::text FROM %s ORDER BY identity", p.tableIdent)
	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgvector: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec  Record
			text string
		)
		if err := rows.Scan(&rec.Identity, &rec.Content, &rec.Fingerprint, &text); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		var vec pgvector.Vector
		if err := vec.Scan(text); err != nil {
			return nil, fmt.Errorf("pgvector: decode embedding of %q: %w", rec.Identity, err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: list rows: %w", err)
	}
	return records, nil
}

// Upsert inserts or replaces the row under key
func (p *PgvectorStore) Upsert(ctx context.Context, key string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if len(rec.Embedding) != p.dimension {
		return fmt.Errorf("pgvector: record %q: %w (got %d want %d)",
			rec.Identity, ErrDimensionMismatch, len(rec.Embedding), p.dimension)
	}
	stmt := fmt.Sprintf(`INSERT INTO %s (id, identity, content, fingerprint, embedding, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    identity = excluded.identity,
    content = excluded.content,
    fingerprint = excluded.fingerprint,
    embedding = excluded.embedding,
    updated_at = excluded.updated_at`, p.tableIdent)
	vector := pgvector.NewVector(rec.Embedding)
	if _, err := p.pool.Exec(ctx, stmt, key, rec.Identity, rec.Content, rec.Fingerprint, vector, time.Now().UTC()); err != nil {
		return fmt.Errorf("pgvector: upsert %q: %w", rec.Identity, err)
	}
	return nil
}

// Retain is a no-op: an unchanged row is already in place
func (p *PgvectorStore) Retain(ctx context.Context, key string, rec Record) error {
	return nil
}

// Delete removes the row under key
func (p *PgvectorStore) Delete(ctx context.Context, key string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = $1", p.tableIdent)
	if _, err := p.pool.Exec(ctx, stmt, key); err != nil {
		return fmt.Errorf("pgvector: delete %q: %w", key, err)
	}
	return nil
}

// Flush is a no-op: every write is already durable
func (p *PgvectorStore) Flush(ctx context.Context) error {
	return nil
}

// Count returns the number of rows
func (p *PgvectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", p.tableIdent)).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return n, nil
}

// Close closes the pool
func (p *PgvectorStore) Close() error {
	p.pool.Close()
	return nil
}

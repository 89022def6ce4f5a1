package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *SQLiteStore {
	t.Helper()

	// Use in-memory database for testing
	store, err := NewSQLiteStore(":memory:", DefaultTable)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testRecord(identity string, vector ...float32) Record {
	if len(vector) == 0 {
		vector = []float32{0.1, 0.2, 0.3}
	}
	return Record{
		Identity:    identity,
		Content:     "content of " + identity,
		Fingerprint: "fp-" + identity,
		Embedding:   vector,
	}
}

func TestNewSQLiteStore(t *testing.T) {
	store := setupTestDB(t)

	assert.NotNil(t, store.db)
	assert.Equal(t, "sqlite::memory:#documents", store.Describe())
}

func TestNewSQLiteStore_InvalidTable(t *testing.T) {
	_, err := NewSQLiteStore(":memory:", "drop table;")
	assert.ErrorIs(t, err, ErrInvalidTable)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.EnsureSchema(ctx))

	version, err := currentVersion(ctx, store.db, DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version.String())
}

func TestSQLiteStore_UpsertAndList(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "b.md", testRecord("b.md")))
	require.NoError(t, store.Upsert(ctx, "a.md", testRecord("a.md", 1, 2, 3, 4)))

	records, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a.md", records[0].Identity)
	assert.Equal(t, []float32{1, 2, 3, 4}, records[0].Embedding)
	assert.Equal(t, "fp-a.md", records[0].Fingerprint)
	assert.Equal(t, "content of a.md", records[0].Content)
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.md", testRecord("a.md")))

	updated := testRecord("a.md", 9, 9, 9)
	updated.Fingerprint = "fp-new"
	require.NoError(t, store.Upsert(ctx, "a.md", updated))

	got, err := store.Get(ctx, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "fp-new", got.Fingerprint)
	assert.Equal(t, []float32{9, 9, 9}, got.Embedding)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_UpsertRejectsEmptyEmbedding(t *testing.T) {
	store := setupTestDB(t)

	rec := testRecord("a.md")
	rec.Embedding = nil
	err := store.Upsert(context.Background(), "a.md", rec)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestSQLiteStore_Delete(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "a.md", testRecord("a.md")))
	require.NoError(t, store.Delete(ctx, "a.md"))

	_, err := store.Get(ctx, "a.md")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "missing.md"))
}

func TestSQLiteStore_RetainAndFlushAreNoOps(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Retain(ctx, "a.md", testRecord("a.md")))
	require.NoError(t, store.Flush(ctx))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_DeriveKeyIsIdentity(t *testing.T) {
	store := setupTestDB(t)
	assert.Equal(t, "docs/a b.md", store.DeriveKey("docs/a b.md"))
}

func TestSQLiteStore_SeparateTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path, "alpha")
	require.NoError(t, err)
	require.NoError(t, first.EnsureSchema(ctx))
	require.NoError(t, first.Upsert(ctx, "a.md", testRecord("a.md")))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path, "beta")
	require.NoError(t, err)
	defer second.Close()
	require.NoError(t, second.EnsureSchema(ctx))

	n, err := second.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, DefaultTable)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.Upsert(ctx, "a.md", testRecord("a.md")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, DefaultTable)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.EnsureSchema(ctx))

	records, err := reopened.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a.md", records[0].Identity)
}

func TestRollbackMigration(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, RollbackMigration(ctx, store.db, DefaultTable))
	version, err := currentVersion(ctx, store.db, DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", version.String())

	require.NoError(t, RollbackMigration(ctx, store.db, DefaultTable))
	var name string
	err = store.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='documents'").Scan(&name)
	assert.ErrorIs(t, err, sql.ErrNoRows)

	assert.Error(t, RollbackMigration(ctx, store.db, DefaultTable))

	// Re-applying restores the schema
	require.NoError(t, ApplyMigrations(ctx, store.db, DefaultTable))
	require.NoError(t, store.Upsert(ctx, "a.md", testRecord("a.md")))
}

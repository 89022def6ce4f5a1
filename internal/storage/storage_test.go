package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	t.Run("sqlite by default", func(t *testing.T) {
		store, err := New(ctx, Config{Path: filepath.Join(dir, "a.db")})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &SQLiteStore{}, store)
	})

	t.Run("file driver", func(t *testing.T) {
		store, err := New(ctx, Config{Driver: "FILE", Path: filepath.Join(dir, "a.json")})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &FileStore{}, store)
		assert.Contains(t, store.Describe(), "#documents")
	})

	t.Run("postgres requires dsn", func(t *testing.T) {
		_, err := New(ctx, Config{Driver: DriverPostgres, Dimension: 3})
		assert.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := New(ctx, Config{Driver: "qdrant"})
		assert.ErrorIs(t, err, ErrUnknownDriver)
	})

	t.Run("invalid table", func(t *testing.T) {
		_, err := New(ctx, Config{Driver: DriverFile, Table: "x y"})
		assert.ErrorIs(t, err, ErrInvalidTable)
	})
}

func TestValidTableName(t *testing.T) {
	assert.True(t, ValidTableName("documents"))
	assert.True(t, ValidTableName("_docs2"))
	assert.False(t, ValidTableName(""))
	assert.False(t, ValidTableName("2docs"))
	assert.False(t, ValidTableName(`docs"; DROP`))
}

func TestRecordValidate(t *testing.T) {
	rec := testRecord("a.md")
	assert.NoError(t, rec.Validate())

	rec.Embedding = nil
	assert.ErrorIs(t, rec.Validate(), ErrEmptyEmbedding)

	rec = testRecord("")
	assert.Error(t, rec.Validate())
}

// Package storage persists synchronized documents and their embeddings.
//
// Three drivers implement the Store interface:
//   - sqlite: one table per store.table, vectors as little-endian float32 blobs
//   - postgres: a pgvector column, rows keyed by a UUIDv5 of the identity
//   - file: a JSON snapshot rebuilt in full on every run
//
// # Store Models
//
// SQLite and PostgreSQL are incremental: Upsert and Delete take effect
// immediately, while Retain and Flush do nothing. The file store is a
// full-rebuild store: every Upsert and Retain stages a record and Flush
// replaces the snapshot atomically (temp file plus rename).
//
// # Basic Usage
//
//	store, err := storage.New(ctx, storage.Config{Driver: "sqlite", Path: "docsync.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	if err := store.EnsureSchema(ctx); err != nil {
//	    return err
//	}
//	key := store.DeriveKey("guide/intro.md")
//	err = store.Upsert(ctx, key, storage.Record{
//	    Identity:    "guide/intro.md",
//	    Content:     content,
//	    Fingerprint: fingerprint,
//	    Embedding:   vector,
//	})
//
// # Schema
//
// The SQLite schema is versioned per table in schema_version and upgraded by
// ApplyMigrations using semantic version ordering.
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (no CGO). Building with the
// sqlite_vec tag links github.com/mattn/go-sqlite3 instead:
//
//	CGO_ENABLED=1 go build -tags sqlite_vec ./...
package storage

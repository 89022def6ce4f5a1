package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// DefaultFilePath is used when the file driver is given no path
const DefaultFilePath = "docsync.json"

// FileStore keeps one table in a JSON snapshot file.
//
// It follows the full-rebuild model: every run stages the complete table
// through Upsert and Retain, and Flush replaces the file atomically. Records
// that are neither upserted nor retained disappear on Flush.
type FileStore struct {
	mu        sync.Mutex
	path      string
	table     string
	dimension int
	staged    map[string]Record
}

var _ Store = (*FileStore)(nil)

type fileStorePayload struct {
	Dimension int               `json:"dimension"`
	Table     string            `json:"table"`
	Records   []fileStoreRecord `json:"records"`
}

type fileStoreRecord struct {
	Identity    string    `json:"identity"`
	Content     string    `json:"content"`
	Fingerprint string    `json:"fingerprint"`
	Embedding   []float32 `json:"embedding"`
}

// NewFileStore creates a store writing to path.
// A dimension of 0 is adopted from the snapshot or the first staged record.
func NewFileStore(path, table string, dimension int) (*FileStore, error) {
	if path == "" {
		path = DefaultFilePath
	}
	if table == "" {
		table = DefaultTable
	}
	if !ValidTableName(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return &FileStore{
		path:      filepath.Clean(path),
		table:     table,
		dimension: dimension,
		staged:    make(map[string]Record),
	}, nil
}

// Describe returns the snapshot path and table
func (s *FileStore) Describe() string {
	return fmt.Sprintf("file:%s#%s", s.path, s.table)
}

// EnsureSchema prepares the snapshot directory, checks an existing snapshot
// belongs to this table and starts a new run by discarding anything staged.
// No file is written until the first Flush.
func (s *FileStore) EnsureSchema(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("filestore: ensure directory %q: %w", dir, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.staged = make(map[string]Record)

	payload, err := s.load()
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if payload.Table != "" && payload.Table != s.table {
		return fmt.Errorf("filestore: %q holds table %q, not %q", s.path, payload.Table, s.table)
	}
	if payload.Dimension > 0 && s.dimension > 0 && payload.Dimension != s.dimension {
		return fmt.Errorf("filestore: %w: stored %d, configured %d", ErrDimensionMismatch, payload.Dimension, s.dimension)
	}
	if s.dimension == 0 {
		s.dimension = payload.Dimension
	}
	return nil
}

// ListAll returns the records of the last flushed snapshot
func (s *FileStore) ListAll(ctx context.Context) ([]Record, error) {
	payload, err := s.load()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(payload.Records))
	for _, rec := range payload.Records {
		records = append(records, Record{
			Identity:    rec.Identity,
			Content:     rec.Content,
			Fingerprint: rec.Fingerprint,
			Embedding:   rec.Embedding,
		})
	}
	return records, nil
}

// DeriveKey uses the identity verbatim
func (s *FileStore) DeriveKey(identity string) string {
	return identity
}

// Upsert stages rec for the next Flush
func (s *FileStore) Upsert(ctx context.Context, key string, rec Record) error {
	return s.stage(key, rec)
}

// Retain stages an unchanged record so it survives the rebuild
func (s *FileStore) Retain(ctx context.Context, key string, rec Record) error {
	return s.stage(key, rec)
}

func (s *FileStore) stage(key string, rec Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension == 0 {
		s.dimension = len(rec.Embedding)
	}
	if len(rec.Embedding) != s.dimension {
		return fmt.Errorf("filestore: record %q: %w (got %d want %d)",
			key, ErrDimensionMismatch, len(rec.Embedding), s.dimension)
	}
	rec.Embedding = append([]float32(nil), rec.Embedding...)
	s.staged[key] = rec
	return nil
}

// Delete drops key from the staged table
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.staged, key)
	return nil
}

// Flush replaces the snapshot with the staged table.
// The staged table is discarded whether or not the write succeeds.
func (s *FileStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := s.staged
	s.staged = make(map[string]Record)
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]Record, 0, len(staged))
	for _, rec := range staged {
		records = append(records, rec)
	}
	return s.persistLocked(records)
}

// Count returns the number of records in the snapshot
func (s *FileStore) Count(ctx context.Context) (int, error) {
	payload, err := s.load()
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(payload.Records), nil
}

// Close is a no-op
func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) load() (*fileStorePayload, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, fmt.Errorf("filestore: read %q: %w", s.path, err)
	}
	var payload fileStorePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("filestore: decode %q: %w", s.path, err)
	}
	return &payload, nil
}

func (s *FileStore) persistLocked(records []Record) error {
	sort.Slice(records, func(i, j int) bool {
		return records[i].Identity < records[j].Identity
	})

	payload := fileStorePayload{
		Dimension: s.dimension,
		Table:     s.table,
		Records:   make([]fileStoreRecord, 0, len(records)),
	}
	for _, rec := range records {
		payload.Records = append(payload.Records, fileStoreRecord{
			Identity:    rec.Identity,
			Content:     rec.Content,
			Fingerprint: rec.Fingerprint,
			Embedding:   rec.Embedding,
		})
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode snapshot: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("filestore: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("filestore: commit snapshot: %w", err)
	}
	return nil
}

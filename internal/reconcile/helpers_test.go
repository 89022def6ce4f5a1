package reconcile

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/storage"
)

// fakeStore is an in-memory Store counting every call.
// With fullRebuild set it behaves like a snapshot store: writes are staged
// and only become visible on Flush.
type fakeStore struct {
	mu          sync.Mutex
	fullRebuild bool
	records     map[string]storage.Record
	staged      map[string]storage.Record

	upserts  []string
	retains  []string
	deletes  []string
	flushes  int
	failOn   map[string]error // key -> error for upsert/delete
	failList error
	block    bool // writes wait for their context to end
}

func newFakeStore(records ...storage.Record) *fakeStore {
	s := &fakeStore{
		records: make(map[string]storage.Record),
		staged:  make(map[string]storage.Record),
		failOn:  make(map[string]error),
	}
	for _, rec := range records {
		s.records[rec.Identity] = rec
	}
	return s
}

func (s *fakeStore) EnsureSchema(ctx context.Context) error { return nil }

func (s *fakeStore) ListAll(ctx context.Context) ([]storage.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	out := make([]storage.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity < out[j].Identity })
	return out, nil
}

func (s *fakeStore) DeriveKey(identity string) string { return "key:" + identity }

func (s *fakeStore) identityOf(key string) string { return key[len("key:"):] }

func (s *fakeStore) Upsert(ctx context.Context, key string, rec storage.Record) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[key]; err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	s.upserts = append(s.upserts, s.identityOf(key))
	if s.fullRebuild {
		s.staged[key] = rec
	} else {
		s.records[s.identityOf(key)] = rec
	}
	return nil
}

func (s *fakeStore) Retain(ctx context.Context, key string, rec storage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fullRebuild {
		return nil
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	s.retains = append(s.retains, s.identityOf(key))
	s.staged[key] = rec
	return nil
}

func (s *fakeStore) Delete(ctx context.Context, key string) error {
	if s.block {
		<-ctx.Done()
		return ctx.Err()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failOn[key]; err != nil {
		return err
	}
	s.deletes = append(s.deletes, s.identityOf(key))
	if s.fullRebuild {
		delete(s.staged, key)
	} else {
		delete(s.records, s.identityOf(key))
	}
	return nil
}

func (s *fakeStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	if s.fullRebuild {
		s.records = make(map[string]storage.Record, len(s.staged))
		for key, rec := range s.staged {
			s.records[s.identityOf(key)] = rec
		}
		s.staged = make(map[string]storage.Record)
	}
	return nil
}

func (s *fakeStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records), nil
}

func (s *fakeStore) Describe() string { return "fake" }
func (s *fakeStore) Close() error     { return nil }

// writes counts mutating calls that reached the store
func (s *fakeStore) writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts) + len(s.retains) + len(s.deletes)
}

// countingEmbedder returns deterministic vectors and counts requests per text
type countingEmbedder struct {
	mu        sync.Mutex
	dimension int
	calls     map[string]int
	failOn    map[string]error // text -> error
	short     bool             // return vectors one element too short
	block     bool             // requests wait for their context to end
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{
		dimension: 4,
		calls:     make(map[string]int),
		failOn:    make(map[string]error),
	}
}

var errQuota = errors.New("quota exceeded")

func (e *countingEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	e.mu.Lock()
	e.calls[req.Text]++
	err := e.failOn[req.Text]
	block := e.block
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n := e.dimension
	if e.short {
		n--
	}
	vector := make([]float32, n)
	for i := range vector {
		vector[i] = float32(len(req.Text) + i)
	}
	return &embedder.Embedding{Vector: vector, Dimension: n, Provider: "counting", Model: "test"}, nil
}

func (e *countingEmbedder) Dimension() int   { return e.dimension }
func (e *countingEmbedder) Provider() string { return "counting" }
func (e *countingEmbedder) Model() string    { return "test" }
func (e *countingEmbedder) Close() error     { return nil }

func (e *countingEmbedder) total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, c := range e.calls {
		n += c
	}
	return n
}

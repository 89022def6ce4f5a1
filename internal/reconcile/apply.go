package reconcile

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/docsync/internal/storage"
	"github.com/dshills/docsync/pkg/types"
)

// Default bounds for store calls
const (
	DefaultStoreConcurrency = 4
	DefaultStoreTimeout     = 30 * time.Second
)

// ApplyConfig bounds store calls
type ApplyConfig struct {
	Concurrency int           // Maximum in-flight store calls (default: 4)
	Timeout     time.Duration // Per-call timeout (default: 30s)
}

// Applied counts the mutations that took effect
type Applied struct {
	New       int
	Updated   int
	Unchanged int
	Deleted   int
}

// Store operations, as named in StoreError.Op
const (
	opUpsert = "upsert"
	opRetain = "retain"
	opDelete = "delete"
)

// storeTask is one store call; kind is empty for calls that count as nothing
type storeTask struct {
	kind     types.ChangeKind
	identity string
	op       string
	record   storage.Record
}

// Apply performs the store mutations for a classification and its resolved
// embeddings, then flushes the store once.
//
// Documents without a resolved vector (skipped failures) are not written: a
// New document stays absent and an Updated document keeps its prior record.
// Mutations that succeeded before a failure are not rolled back.
func Apply(ctx context.Context, store storage.Store, cls *Classification, res *Resolution,
	snapshot map[string]storage.Record, config ApplyConfig) (*Applied, error) {

	if config.Concurrency <= 0 {
		config.Concurrency = DefaultStoreConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultStoreTimeout
	}

	tasks := planTasks(cls, res, snapshot)
	done := make([]bool, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(config.Concurrency)

	for i := range tasks {
		task := tasks[i]
		g.Go(func() error {
			if err := runTask(gctx, store, task, config.Timeout); err != nil {
				return &StoreError{Op: task.op, Identity: task.identity, Err: err}
			}
			done[i] = true
			return nil
		})
	}

	waitErr := g.Wait()

	applied := &Applied{}
	for i, task := range tasks {
		if !done[i] {
			continue
		}
		switch task.kind {
		case types.ChangeNew:
			applied.New++
		case types.ChangeUpdated:
			applied.Updated++
		case types.ChangeUnchanged:
			applied.Unchanged++
		case types.ChangeDeleted:
			applied.Deleted++
		}
	}
	if waitErr != nil {
		return applied, waitErr
	}

	flushCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if err := store.Flush(flushCtx); err != nil {
		return applied, &StoreError{Op: "flush", Err: err}
	}
	return applied, nil
}

func planTasks(cls *Classification, res *Resolution, snapshot map[string]storage.Record) []storeTask {
	tasks := make([]storeTask, 0, len(cls.New)+len(cls.Updated)+len(cls.Unchanged)+len(cls.Deleted))

	for _, doc := range cls.New {
		vector, ok := res.Vectors[doc.Identity]
		if !ok {
			continue
		}
		tasks = append(tasks, storeTask{kind: types.ChangeNew, identity: doc.Identity, op: opUpsert, record: toRecord(doc, vector)})
	}

	for _, doc := range cls.Updated {
		vector, ok := res.Vectors[doc.Identity]
		if !ok {
			// The prior record still has to survive a full rebuild
			tasks = append(tasks, storeTask{identity: doc.Identity, op: opRetain, record: snapshot[doc.Identity]})
			continue
		}
		tasks = append(tasks, storeTask{kind: types.ChangeUpdated, identity: doc.Identity, op: opUpsert, record: toRecord(doc, vector)})
	}

	for _, doc := range cls.Unchanged {
		tasks = append(tasks, storeTask{kind: types.ChangeUnchanged, identity: doc.Identity, op: opRetain, record: cls.Carried[doc.Identity]})
	}

	for _, identity := range cls.Deleted {
		tasks = append(tasks, storeTask{kind: types.ChangeDeleted, identity: identity, op: opDelete})
	}

	return tasks
}

func runTask(ctx context.Context, store storage.Store, task storeTask, timeout time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	key := store.DeriveKey(task.identity)
	switch task.op {
	case opUpsert:
		return store.Upsert(callCtx, key, task.record)
	case opRetain:
		return store.Retain(callCtx, key, task.record)
	default:
		return store.Delete(callCtx, key)
	}
}

func toRecord(doc types.Document, vector []float32) storage.Record {
	return storage.Record{
		Identity:    doc.Identity,
		Content:     doc.Content,
		Embedding:   vector,
		Fingerprint: doc.Fingerprint,
	}
}

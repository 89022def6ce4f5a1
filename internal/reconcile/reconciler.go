package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/docsync/internal/embedder"
	"github.com/dshills/docsync/internal/logger"
	"github.com/dshills/docsync/internal/scanner"
	"github.com/dshills/docsync/internal/storage"
	"github.com/dshills/docsync/pkg/types"
)

// Config contains configuration for a reconciliation run
type Config struct {
	Source  string
	Scanner scanner.Config
	Embed   ResolverConfig
	Store   ApplyConfig
}

// Reconciler coordinates the sync pipeline: scan -> classify -> embed -> apply
type Reconciler struct {
	store    storage.Store
	embedder embedder.Embedder
	config   Config
}

// New creates a new Reconciler instance
func New(store storage.Store, emb embedder.Embedder, config Config) *Reconciler {
	return &Reconciler{
		store:    store,
		embedder: emb,
		config:   config,
	}
}

// Run synchronizes the store with the source directory.
//
// All classification and embedding happens against a single snapshot taken
// before the first mutation. A returned error means the run was aborted; the
// report is only returned for completed runs.
func (r *Reconciler) Run(ctx context.Context) (*Report, error) {
	return r.RunSource(ctx, r.config.Source)
}

// RunSource is Run against an explicit source directory
func (r *Reconciler) RunSource(ctx context.Context, source string) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := logger.FromContext(ctx).With("run_id", runID)
	ctx = logger.ContextWithLogger(ctx, log)

	scan, err := scanner.New(source, &r.config.Scanner)
	if err != nil {
		return nil, err
	}

	report := &Report{
		RunID:  runID,
		Source: source,
		Store:  r.store.Describe(),
	}

	if err := r.withTimeout(ctx, r.store.EnsureSchema); err != nil {
		return nil, &StoreError{Op: "ensure_schema", Err: err}
	}

	docs, err := scan.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", source, err)
	}
	for _, doc := range docs {
		if doc.Truncated {
			report.Truncated = append(report.Truncated, doc.Identity)
		}
	}

	var records []storage.Record
	err = r.withTimeout(ctx, func(ctx context.Context) error {
		var listErr error
		records, listErr = r.store.ListAll(ctx)
		return listErr
	})
	if err != nil {
		return nil, &StoreError{Op: "list", Err: err}
	}
	snapshot := IndexSnapshot(records)
	report.Before = len(snapshot)

	if len(docs) == 0 {
		log.Info("No documents found, nothing to do", "source", source)
		report.Status = StatusNothingToDo
		report.Duration = time.Since(start)
		report.finalize()
		return report, nil
	}

	cls := Detect(snapshot, docs)
	logClassification(log, cls)

	resolver := NewResolver(r.embedder, r.config.Embed)
	res, err := resolver.Resolve(ctx, cls.Pending())
	if err != nil {
		return nil, err
	}
	report.Skipped = res.Failed

	applied, err := Apply(ctx, r.store, cls, res, snapshot, r.config.Store)
	if err != nil {
		log.Error("Sync aborted", "error", err,
			"new", applied.New, "updated", applied.Updated, "deleted", applied.Deleted)
		return nil, err
	}

	report.New = applied.New
	report.Updated = applied.Updated
	report.Unchanged = len(cls.Unchanged)
	report.Deleted = applied.Deleted
	report.Duration = time.Since(start)
	report.finalize()

	r.checkCount(ctx, log, report.After)

	log.Info("Sync complete",
		"status", report.Status,
		"new", report.New,
		"updated", report.Updated,
		"unchanged", report.Unchanged,
		"deleted", report.Deleted,
		"failed", report.Failed,
		"truncated", len(report.Truncated),
		"duration", report.Duration)
	return report, nil
}

func (r *Reconciler) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	timeout := r.config.Store.Timeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(callCtx)
}

// checkCount warns when the store disagrees with the computed total,
// which happens when another process writes the same store
func (r *Reconciler) checkCount(ctx context.Context, log logger.Logger, expected int) {
	var count int
	err := r.withTimeout(ctx, func(ctx context.Context) error {
		var countErr error
		count, countErr = r.store.Count(ctx)
		return countErr
	})
	if err != nil {
		log.Debug("Could not count records", "error", err)
		return
	}
	if count != expected {
		log.Warn("Store record count differs from expected total", "expected", expected, "actual", count)
	}
}

func logClassification(log logger.Logger, cls *Classification) {
	for _, doc := range cls.New {
		log.Info("Document classified", "identity", doc.Identity, "change", types.ChangeNew)
	}
	for _, doc := range cls.Updated {
		log.Info("Document classified", "identity", doc.Identity, "change", types.ChangeUpdated)
	}
	for _, doc := range cls.Unchanged {
		log.Debug("Document classified", "identity", doc.Identity, "change", types.ChangeUnchanged)
	}
	for _, identity := range cls.Deleted {
		log.Info("Document classified", "identity", identity, "change", types.ChangeDeleted)
	}
}

// Source returns the configured source directory
func (r *Reconciler) Source() string {
	return r.config.Source
}

// Store returns the store being synchronized
func (r *Reconciler) Store() storage.Store {
	return r.store
}

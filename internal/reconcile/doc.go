// Package reconcile keeps a document store synchronized with a directory.
//
// A run has two phases. The classification phase scans the source, loads one
// snapshot of the store and resolves embeddings for every New or Updated
// document; nothing is written. The mutation phase then upserts, retains and
// deletes records and flushes the store once.
//
//	r := reconcile.New(store, emb, reconcile.Config{Source: "./docs"})
//	report, err := r.Run(ctx)
//	if err != nil {
//	    return err // *ProviderError, *StoreError or a scan error
//	}
//	os.Exit(report.ExitCode())
//
// # Failure Policy
//
// With FailFast (the default) a failed embedding aborts the run before the
// store is touched. With SkipFailed the document is left as it was in the
// store and the run ends degraded.
//
// # Concurrency
//
// Embedding requests and store calls each run on a bounded errgroup. Every
// task records its own outcome and counters are merged after the group
// finishes.
package reconcile

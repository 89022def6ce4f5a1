package reconcile

import (
	"sort"

	"github.com/dshills/docsync/internal/storage"
	"github.com/dshills/docsync/pkg/types"
)

// Classification is the comparison of one scan against a store snapshot
type Classification struct {
	New       []types.Document
	Updated   []types.Document
	Unchanged []types.Document

	// Deleted holds snapshot identities missing from the scan, sorted
	Deleted []string

	// Carried holds the prior records of Unchanged documents
	Carried map[string]storage.Record
}

// Pending returns the documents that need an embedding
func (c *Classification) Pending() []types.Document {
	docs := make([]types.Document, 0, len(c.New)+len(c.Updated))
	docs = append(docs, c.New...)
	return append(docs, c.Updated...)
}

// IndexSnapshot keys records by identity
func IndexSnapshot(records []storage.Record) map[string]storage.Record {
	snapshot := make(map[string]storage.Record, len(records))
	for _, rec := range records {
		snapshot[rec.Identity] = rec
	}
	return snapshot
}

// Detect classifies current against snapshot.
// Fingerprint equality is the only change signal; other record fields are ignored.
func Detect(snapshot map[string]storage.Record, current []types.Document) *Classification {
	cls := &Classification{
		Carried: make(map[string]storage.Record),
	}

	seen := make(map[string]struct{}, len(current))
	for _, doc := range current {
		seen[doc.Identity] = struct{}{}

		fingerprint := doc.Fingerprint
		if fingerprint == "" {
			fingerprint = types.Fingerprint(doc.Content)
			doc.Fingerprint = fingerprint
		}

		prior, ok := snapshot[doc.Identity]
		switch {
		case !ok:
			cls.New = append(cls.New, doc)
		case prior.Fingerprint != fingerprint:
			cls.Updated = append(cls.Updated, doc)
		default:
			cls.Unchanged = append(cls.Unchanged, doc)
			cls.Carried[doc.Identity] = prior
		}
	}

	for identity := range snapshot {
		if _, ok := seen[identity]; !ok {
			cls.Deleted = append(cls.Deleted, identity)
		}
	}
	sort.Strings(cls.Deleted)

	return cls
}

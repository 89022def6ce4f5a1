package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/docsync/internal/storage"
	"github.com/dshills/docsync/pkg/types"
)

// benchCorpus returns a snapshot of n records and a scan where a tenth of the
// documents changed, a tenth are new and a tenth were removed
func benchCorpus(n int) (map[string]storage.Record, []types.Document) {
	records := make([]storage.Record, 0, n)
	docs := make([]types.Document, 0, n)
	for i := 0; i < n; i++ {
		identity := fmt.Sprintf("docs/%05d.md", i)
		content := fmt.Sprintf("document %d body", i)
		switch i % 10 {
		case 0:
			records = append(records, storedRecord(identity, content))
			docs = append(docs, doc(identity, content+" edited"))
		case 1:
			docs = append(docs, doc(identity, content))
		case 2:
			records = append(records, storedRecord(identity, content))
		default:
			records = append(records, storedRecord(identity, content))
			docs = append(docs, doc(identity, content))
		}
	}
	return IndexSnapshot(records), docs
}

func BenchmarkDetect(b *testing.B) {
	for _, n := range []int{100, 1000, 10000} {
		snapshot, docs := benchCorpus(n)
		b.Run(fmt.Sprintf("docs=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				cls := Detect(snapshot, docs)
				if len(cls.New) == 0 {
					b.Fatal("expected new documents")
				}
			}
		})
	}
}

func BenchmarkResolve(b *testing.B) {
	_, docs := benchCorpus(1000)
	emb := newCountingEmbedder()
	resolver := NewResolver(emb, ResolverConfig{Concurrency: 8})
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := resolver.Resolve(ctx, docs); err != nil {
			b.Fatalf("Resolve() error = %v", err)
		}
	}
}

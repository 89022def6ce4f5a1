// Package searcher ranks synchronized documents by semantic similarity.
//
// A query is embedded with the same provider used for syncing and compared
// against every stored record by cosine similarity:
//
//	s := searcher.NewSearcher(store, emb)
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "how do I configure the store?",
//	    Limit: 5,
//	})
//	for _, r := range resp.Results {
//	    fmt.Printf("%d. %s (%.3f)\n", r.Rank, r.Identity, r.RelevanceScore)
//	}
//
// Records whose vector length differs from the query's are skipped. Responses
// can be cached per query with a TTL; call InvalidateCache after a sync.
package searcher

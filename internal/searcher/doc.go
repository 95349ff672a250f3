// Package searcher ranks a tenant's chunks against a query.
//
// The query is embedded with the configured embedder and every chunk whose
// procedure belongs to the tenant is ranked by cosine distance, closest
// first, ties broken by chunk id. Chunks of other tenants never take part
// in the ranking.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb, logger)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    TenantID: 7,
//	    Query:    "cấp giấy phép xây dựng",
//	    TopK:     10,
//	})
//
//	for _, m := range resp.Matches {
//	    fmt.Printf("%s %.3f %s\n", citation.ChunkID(m.Chunk.ID), m.Distance, m.Procedure.Name)
//	}
//
// SearchText does the same and renders the matches as citation text:
//
//	text, err := s.SearchText(ctx, searcher.SearchRequest{TenantID: 7, Query: q})
//
// # Caching
//
// Responses can be cached per request with UseCache. Cached entries are not
// refreshed by writes; callers that write procedures must call
// InvalidateCache for the tenant.
package searcher

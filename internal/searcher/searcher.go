package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/citation"
	"github.com/mrtinhnguyen/govsense-tthc/internal/embedder"
	"github.com/mrtinhnguyen/govsense-tthc/internal/metrics"
	"github.com/mrtinhnguyen/govsense-tthc/internal/storage"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

const (
	// DefaultTopK is used when a request does not set TopK
	DefaultTopK = 10

	// MaxTopK caps TopK
	MaxTopK = 100

	// DefaultCacheSize is the number of cached responses kept
	DefaultCacheSize = 1000

	// DefaultCacheTTL is used when a cached request does not set CacheTTL
	DefaultCacheTTL = 5 * time.Minute
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	TenantID int64
	Query    string
	TopK     int
	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains the ranked matches and metadata
type SearchResponse struct {
	Matches  []types.Match
	Duration time.Duration
	CacheHit bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	tenantID  int64
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher retrieves ranked chunk matches for a tenant
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	logger   *zap.Logger
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, emb embedder.Embedder, logger *zap.Logger) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](DefaultCacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Searcher{
		storage:  store,
		embedder: emb,
		logger:   logger.Named("searcher"),
		cache:    cache,
	}
}

// Search embeds the query and returns the TopK closest chunks of the tenant,
// each with its owning procedure
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (resp *SearchResponse, err error) {
	startTime := time.Now()
	defer func() {
		hits := 0
		if resp != nil {
			hits = len(resp.Matches)
		}
		metrics.RecordSearch(startTime, hits, err)
	}()

	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	if req.UseCache {
		if cached, ok := s.checkCache(req); ok {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
	}

	vector, err := embedder.Embed(ctx, s.embedder, req.Query)
	if err != nil {
		return nil, types.Dependency("embed query", err)
	}

	ranked, err := s.storage.SearchChunks(ctx, req.TenantID, vector, req.TopK)
	if err != nil {
		return nil, types.Dependency("search chunks", err)
	}

	matches, err := s.fetchOwners(ctx, req.TenantID, ranked)
	if err != nil {
		return nil, err
	}

	resp = &SearchResponse{
		Matches:  matches,
		Duration: time.Since(startTime),
	}

	if req.UseCache && len(resp.Matches) > 0 {
		s.storeInCache(req, resp)
	}

	s.logger.Debug("search completed",
		zap.Int64("tenant_id", req.TenantID),
		zap.Int("top_k", req.TopK),
		zap.Int("matches", len(matches)),
		zap.Duration("took", resp.Duration))

	return resp, nil
}

// SearchText runs Search and renders the matches as citation text
func (s *Searcher) SearchText(ctx context.Context, req SearchRequest) (string, error) {
	resp, err := s.Search(ctx, req)
	if err != nil {
		return "", err
	}
	return citation.Format(resp.Matches)
}

// fetchOwners attaches the owning procedure to every ranked chunk, keeping
// rank order. Ranking and this lookup are separate reads, so every chunk is
// looked up by its id: a chunk replaced or deleted in between is dropped
// instead of being cited next to the newer procedure. Each procedure is
// kept once.
func (s *Searcher) fetchOwners(ctx context.Context, tenantID int64, ranked []storage.VectorResult) ([]types.Match, error) {
	owners := make(map[int64]*types.Procedure)
	matches := make([]types.Match, 0, len(ranked))

	for _, r := range ranked {
		p, err := s.storage.GetProcedureByChunkInTenant(ctx, tenantID, r.ChunkID)
		switch {
		case errors.Is(err, types.ErrNotFound):
			continue
		case err != nil:
			return nil, types.Dependency("load procedure", err)
		}
		if first, seen := owners[p.ID]; seen {
			p = first
		} else {
			owners[p.ID] = p
		}

		matches = append(matches, types.Match{
			Chunk:     r.ToChunk(),
			Procedure: p,
			Distance:  r.Distance,
		})
	}
	return matches, nil
}

// validateRequest ensures search request is valid
func validateRequest(req *SearchRequest) error {
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return types.Invalid("query cannot be empty")
	}
	if req.TenantID <= 0 {
		return types.Invalid("search_space_id must be positive")
	}

	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	if req.TopK > MaxTopK {
		req.TopK = MaxTopK
	}

	if req.CacheTTL <= 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	return nil
}

// checkCache looks up a cached response
func (s *Searcher) checkCache(req SearchRequest) (*SearchResponse, bool) {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil, false
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil, false
	}

	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response, true
}

// storeInCache saves a copy of response
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		tenantID:  req.TenantID,
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response of a tenant
func (s *Searcher) InvalidateCache(tenantID int64) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	for _, key := range s.cache.Keys() {
		if entry, ok := s.cache.Peek(key); ok && entry.tenantID == tenantID {
			s.cache.Remove(key)
		}
	}
}

// CacheLen reports the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

// copySearchResponse copies the matches and their procedures so callers
// cannot modify a cached entry
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		Duration: src.Duration,
		CacheHit: src.CacheHit,
		Matches:  make([]types.Match, len(src.Matches)),
	}

	procs := make(map[*types.Procedure]*types.Procedure)
	for i, m := range src.Matches {
		dst.Matches[i] = m
		if m.Procedure == nil {
			continue
		}
		cp, ok := procs[m.Procedure]
		if !ok {
			c := *m.Procedure
			cp = &c
			procs[m.Procedure] = cp
		}
		dst.Matches[i].Procedure = cp
	}

	return dst
}

// computeQueryHash keys a request by tenant, size and query text
func computeQueryHash(req SearchRequest) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%s", req.TenantID, req.TopK, req.Query)))
}

package storage

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

func TestSerializeVector(t *testing.T) {
	vec := []float32{0, 1.5, -2.25, float32(math.Pi)}
	blob := SerializeVector(vec)
	assert.Len(t, blob, 16)
	assert.Equal(t, vec, DeserializeVector(blob))
	assert.Empty(t, DeserializeVector(nil))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 0},
		{"scaled", []float32{1, 2, 3}, []float32{2, 4, 6}, 0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, 2},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 1},
		{"length mismatch", []float32{1}, []float32{1, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineDistance(tt.a, tt.b), 1e-6)
		})
	}
}

// seedSearch stores one procedure per tenant entry with a single chunk vector each
func seedSearch(t *testing.T, s *SQLiteStorage, tenantID int64, name string, vectors ...[]float32) []types.Chunk {
	t.Helper()
	ctx := context.Background()
	p := newProcedure(tenantID, name, "")
	require.NoError(t, s.CreateProcedure(ctx, p))

	chunks := make([]types.Chunk, len(vectors))
	for i, v := range vectors {
		chunks[i] = types.Chunk{Position: i, Content: name + " fragment", Embedding: v}
	}
	stored, err := s.ReplaceChunks(ctx, p.ID, chunks, EmbeddingSource{Provider: "mock"})
	require.NoError(t, err)
	return stored
}

func TestSearchChunks(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	far := seedSearch(t, s, 1, "far", []float32{0, 1, 0})
	near := seedSearch(t, s, 1, "near", []float32{1, 0.1, 0})
	mid := seedSearch(t, s, 1, "mid", []float32{1, 1, 0})
	// Closest vector overall, but another tenant
	seedSearch(t, s, 2, "foreign", []float32{1, 0, 0})

	query := []float32{1, 0, 0}

	t.Run("ranked by distance within tenant", func(t *testing.T) {
		results, err := s.SearchChunks(ctx, 1, query, 10)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, near[0].ID, results[0].ChunkID)
		assert.Equal(t, mid[0].ID, results[1].ChunkID)
		assert.Equal(t, far[0].ID, results[2].ChunkID)
		assert.Equal(t, "near fragment", results[0].Content)
		assert.LessOrEqual(t, results[0].Distance, results[1].Distance)
		assert.InDelta(t, 1.0, results[2].Distance, 1e-6)
	})

	t.Run("limit applies after tenant filter", func(t *testing.T) {
		results, err := s.SearchChunks(ctx, 1, query, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, near[0].ID, results[0].ChunkID)
	})

	t.Run("other tenant only sees its own", func(t *testing.T) {
		results, err := s.SearchChunks(ctx, 2, query, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "foreign fragment", results[0].Content)
	})

	t.Run("empty tenant", func(t *testing.T) {
		results, err := s.SearchChunks(ctx, 99, query, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		results, err := s.SearchChunks(ctx, 1, query, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestSearchChunksTieBreak(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	same := []float32{0.5, 0.5, 0}
	first := seedSearch(t, s, 1, "first", same)
	second := seedSearch(t, s, 1, "second", same)

	for i := 0; i < 3; i++ {
		results, err := s.SearchChunks(ctx, 1, []float32{1, 0, 0}, 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, first[0].ID, results[0].ChunkID)
		assert.Equal(t, second[0].ID, results[1].ChunkID)
	}
}

func TestSearchChunksInTx(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	seedSearch(t, s, 1, "a", []float32{1, 0, 0})

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()

	results, err := tx.SearchChunks(ctx, 1, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSortCandidates(t *testing.T) {
	c := []candidate{
		{chunkID: 5, distance: 0.2},
		{chunkID: 3, distance: 0.1},
		{chunkID: 1, distance: 0.2},
	}
	sortCandidates(c)
	assert.Equal(t, []int64{3, 1, 5}, []int64{c[0].chunkID, c[1].chunkID, c[2].chunkID})
}

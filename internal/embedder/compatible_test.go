package embedder

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocEmbedder struct {
	dim   int
	calls int
	err   error
}

func (f *fakeDocEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dim)
		vec[0] = float32(len([]rune(text)))
		out[i] = vec
	}
	return out, nil
}

func (f *fakeDocEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func TestCompatibleProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("embeds and caches", func(t *testing.T) {
		fake := &fakeDocEmbedder{dim: 8}
		p := newCompatibleProvider(fake, Config{Model: "bge-m3", Dimension: 8}, NewCache(10))

		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"ab", "abcd"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 2)
		assert.Equal(t, float32(2), resp.Embeddings[0].Vector[0])
		assert.Equal(t, float32(4), resp.Embeddings[1].Vector[0])
		assert.Equal(t, "bge-m3", resp.Model)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "ab"})
		require.NoError(t, err)
		assert.Equal(t, 1, fake.calls)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		p := newCompatibleProvider(&fakeDocEmbedder{dim: 4}, Config{Model: "m", Dimension: 8}, nil)
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("client failure", func(t *testing.T) {
		fake := &fakeDocEmbedder{dim: 4, err: errors.New("connection refused")}
		p := newCompatibleProvider(fake, Config{Model: "m", Dimension: 4}, nil)
		p.retry = fastRetry()

		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Equal(t, 3, fake.calls)
	})

	t.Run("constructor requires base url and model", func(t *testing.T) {
		_, err := NewCompatibleProvider(Config{Model: "m"}, nil)
		assert.ErrorIs(t, err, ErrNoProviderEnabled)

		_, err = NewCompatibleProvider(Config{BaseURL: "http://localhost:8080/v1"}, nil)
		assert.ErrorIs(t, err, ErrUnsupportedModel)
	})
}

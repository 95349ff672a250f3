package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiItem struct {
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// embeddingServer answers /embeddings with one vector per input whose
// first component is the input's position.
func embeddingServer(t *testing.T, dim int, reverse bool, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&body)) {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}

		items := make([]apiItem, len(body.Input))
		for i := range body.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i)
			items[i] = apiItem{Embedding: vec, Index: i}
		}
		if reverse {
			for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
				items[i], items[j] = items[j], items[i]
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": items, "model": body.Model})
	}))
}

func fastRetry() RetryConfig {
	return RetryConfig{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func TestHTTPProvider_GenerateBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("restores input order", func(t *testing.T) {
		var calls int32
		srv := embeddingServer(t, 4, true, &calls)
		defer srv.Close()

		p, err := NewJinaProvider(Config{APIKey: "test-key", BaseURL: srv.URL, Dimension: 4}, nil)
		require.NoError(t, err)

		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
		require.NoError(t, err)
		require.Len(t, resp.Embeddings, 3)
		for i, emb := range resp.Embeddings {
			assert.Equal(t, float32(i), emb.Vector[0])
			assert.Equal(t, ProviderJina, emb.Provider)
			assert.Equal(t, DefaultJinaModel, emb.Model)
		}
	})

	t.Run("cache skips the api", func(t *testing.T) {
		var calls int32
		srv := embeddingServer(t, 4, false, &calls)
		defer srv.Close()

		p, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: srv.URL, Dimension: 4}, NewCache(10))
		require.NoError(t, err)

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "giấy phép"})
		require.NoError(t, err)
		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "giấy phép"})
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

		// Only the uncached text goes out.
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"giấy phép", "khai sinh"}})
		require.NoError(t, err)
		assert.Len(t, resp.Embeddings, 2)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		var calls int32
		srv := embeddingServer(t, 3, false, &calls)
		defer srv.Close()

		p, err := NewJinaProvider(Config{APIKey: "test-key", BaseURL: srv.URL, Dimension: 4}, nil)
		require.NoError(t, err)
		p.retry = fastRetry()

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("batch too large", func(t *testing.T) {
		p, err := NewJinaProvider(Config{APIKey: "test-key"}, nil)
		require.NoError(t, err)

		texts := make([]string, MaxBatchSize+1)
		for i := range texts {
			texts[i] = "t"
		}
		_, err = p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: texts})
		assert.ErrorIs(t, err, ErrBatchTooLarge)
	})
}

func TestHTTPProvider_Retry(t *testing.T) {
	ctx := context.Background()

	t.Run("server error is retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if atomic.AddInt32(&calls, 1) == 1 {
				http.Error(w, "overloaded", http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []apiItem{{Embedding: []float32{1, 0}, Index: 0}},
			})
		}))
		defer srv.Close()

		p, err := NewJinaProvider(Config{APIKey: "test-key", BaseURL: srv.URL, Dimension: 2}, nil)
		require.NoError(t, err)
		p.retry = fastRetry()

		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0}, emb.Vector)
		assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	})

	t.Run("unauthorized is not retried", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "bad key", http.StatusUnauthorized)
		}))
		defer srv.Close()

		p, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
		require.NoError(t, err)
		p.retry = fastRetry()

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProviderFailed)
		assert.Contains(t, err.Error(), "401")
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("rate limit is retried until exhausted", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			http.Error(w, "slow down", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		p, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
		require.NoError(t, err)
		p.retry = fastRetry()

		_, err = p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "x"})
		require.Error(t, err)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})
}

func TestRetryWithBackoff(t *testing.T) {
	ctx := context.Background()

	t.Run("succeeds after transient failures", func(t *testing.T) {
		attempts := 0
		got, err := retryWithBackoff(ctx, fastRetry(), func() (string, error) {
			attempts++
			if attempts < 3 {
				return "", errors.New("transient")
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, attempts)
	})

	t.Run("permanent error stops immediately", func(t *testing.T) {
		attempts := 0
		sentinel := errors.New("bad request")
		_, err := retryWithBackoff(ctx, fastRetry(), func() (int, error) {
			attempts++
			return 0, permanent(sentinel)
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, attempts)
	})

	t.Run("zero retries still runs once", func(t *testing.T) {
		attempts := 0
		_, _ = retryWithBackoff(ctx, RetryConfig{}, func() (int, error) {
			attempts++
			return 0, errors.New("fail")
		})
		assert.Equal(t, 1, attempts)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := retryWithBackoff(cctx, fastRetry(), func() (int, error) {
			return 0, errors.New("fail")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

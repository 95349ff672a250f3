package embedder

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// CompatibleProvider embeds through any OpenAI-compatible endpoint
// (vLLM, Ollama, LM Studio, text-embeddings-inference) using langchaingo.
type CompatibleProvider struct {
	client    embeddings.Embedder
	model     string
	dimension int
	cache     *Cache
	retry     RetryConfig
}

// NewCompatibleProvider creates an embedder for cfg.BaseURL. An empty API
// key is sent as "none", which local servers accept.
func NewCompatibleProvider(cfg Config, cache *Cache) (*CompatibleProvider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: compatible provider requires a base url", ErrNoProviderEnabled)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: compatible provider requires a model", ErrUnsupportedModel)
	}

	token := cfg.APIKey
	if token == "" {
		token = "none"
	}

	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(token),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	client, err := embeddings.NewEmbedder(llm,
		embeddings.WithStripNewLines(false),
		embeddings.WithBatchSize(DefaultBatchSize),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}

	return newCompatibleProvider(client, cfg, cache), nil
}

func newCompatibleProvider(client embeddings.Embedder, cfg Config, cache *Cache) *CompatibleProvider {
	dim := cfg.Dimension
	if dim <= 0 {
		dim = OpenAIDimension
	}
	return &CompatibleProvider{
		client:    client,
		model:     cfg.Model,
		dimension: dim,
		cache:     cache,
		retry:     DefaultRetryConfig(),
	}
}

func (c *CompatibleProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	resp, err := c.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (c *CompatibleProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	out, missing := splitCached(c.cache, req.Texts)
	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for i, idx := range missing {
			texts[i] = req.Texts[idx]
		}

		vectors, err := retryWithBackoff(ctx, c.retry, func() ([][]float32, error) {
			return c.client.EmbedDocuments(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, ProviderCompatible, err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(vectors), len(texts))
		}

		for i, idx := range missing {
			if len(vectors[i]) != c.dimension {
				return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vectors[i]), c.dimension)
			}
			emb := &Embedding{
				Vector:    vectors[i],
				Dimension: len(vectors[i]),
				Provider:  ProviderCompatible,
				Model:     c.model,
				Hash:      ComputeHash(req.Texts[idx]),
			}
			c.cache.Set(emb.Hash, emb)
			out[idx] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   ProviderCompatible,
		Model:      c.model,
	}, nil
}

func (c *CompatibleProvider) Dimension() int {
	return c.dimension
}

func (c *CompatibleProvider) Provider() string {
	return ProviderCompatible
}

func (c *CompatibleProvider) Model() string {
	return c.model
}

func (c *CompatibleProvider) Close() error {
	return nil
}

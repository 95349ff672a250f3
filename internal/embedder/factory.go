package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	Dimension int
	CacheSize int
	Timeout   time.Duration
}

// New creates an embedder with explicit configuration. An empty provider
// selects the local embedder.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	var (
		emb Embedder
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderJina:
		emb, err = asEmbedder(NewJinaProvider(cfg, cache))
	case ProviderOpenAI:
		emb, err = asEmbedder(NewOpenAIProvider(cfg, cache))
	case ProviderCompatible:
		emb, err = asEmbedder(NewCompatibleProvider(cfg, cache))
	case ProviderLocal, "":
		dim := cfg.Dimension
		if dim <= 0 {
			dim = LocalDimension
		}
		emb, err = asEmbedder(NewLocalProviderWithDimension(dim, cache))
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return emb, nil
}

// asEmbedder keeps a failed constructor from leaking a typed nil interface.
func asEmbedder[T Embedder](e T, err error) (Embedder, error) {
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SupportedProviders lists the provider names accepted by New
func SupportedProviders() []string {
	return []string{ProviderJina, ProviderOpenAI, ProviderCompatible, ProviderLocal}
}

// Package embedder generates vector embeddings for procedure text and search queries.
//
// Providers:
//   - jina, openai: hosted /embeddings JSON APIs with retry and backoff
//   - compatible: any OpenAI-compatible server, through langchaingo
//   - local: feature-hashed bag-of-words vectors, no network
//
// All providers share an optional LRU Cache keyed by the SHA-256 of the text.
//
//	emb, err := embedder.New(embedder.Config{Provider: "local", CacheSize: 1000})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	vec, err := embedder.Embed(ctx, emb, "Cấp giấy phép xây dựng")
package embedder

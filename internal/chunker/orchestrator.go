package chunker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrtinhnguyen/govsense-tthc/internal/embedder"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

const (
	// DefaultBatchSize is the number of fragments sent per embedder call
	DefaultBatchSize = embedder.DefaultBatchSize

	// DefaultConcurrency bounds in-flight embedder calls per rebuild
	DefaultConcurrency = 4
)

// Options tunes an Orchestrator
type Options struct {
	BatchSize   int
	Concurrency int
	Logger      *zap.Logger
}

// Orchestrator derives the full chunk set and the document embedding of a
// canonical text. Every call recomputes everything; nothing is reused from a
// previous generation.
type Orchestrator struct {
	splitter    Splitter
	embedder    embedder.Embedder
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// ChunkSet is a freshly computed chunk generation. Chunks have no ids yet.
type ChunkSet struct {
	Embedding []float32
	Chunks    []types.Chunk
	Provider  string
	Model     string
}

// NewOrchestrator creates an orchestrator over a splitter and an embedder
func NewOrchestrator(s Splitter, e embedder.Embedder, opts Options) *Orchestrator {
	if opts.BatchSize <= 0 || opts.BatchSize > embedder.MaxBatchSize {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Orchestrator{
		splitter:    s,
		embedder:    e,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
	}
}

// Rebuild splits text and embeds the whole text and every fragment. Fragment
// batches run concurrently; the returned chunks keep fragment order. Any
// embedder failure fails the rebuild.
func (o *Orchestrator) Rebuild(ctx context.Context, text string) (*ChunkSet, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyContent
	}

	start := time.Now()
	fragments, err := o.splitter.Split(text)
	if err != nil {
		return nil, types.Dependency("split text", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	var whole []float32
	g.Go(func() error {
		v, err := embedder.Embed(gctx, o.embedder, text)
		if err != nil {
			return fmt.Errorf("document: %w", err)
		}
		whole = v
		return nil
	})

	vectors := make([][]float32, len(fragments))
	for lo := 0; lo < len(fragments); lo += o.batchSize {
		hi := min(lo+o.batchSize, len(fragments))
		g.Go(func() error {
			resp, err := o.embedder.GenerateBatch(gctx, embedder.BatchEmbeddingRequest{Texts: fragments[lo:hi]})
			if err != nil {
				return fmt.Errorf("fragments %d-%d: %w", lo, hi-1, err)
			}
			if len(resp.Embeddings) != hi-lo {
				return fmt.Errorf("fragments %d-%d: got %d embeddings", lo, hi-1, len(resp.Embeddings))
			}
			for i, emb := range resp.Embeddings {
				vectors[lo+i] = emb.Vector
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, types.Dependency("embed", err)
	}

	chunks := make([]types.Chunk, len(fragments))
	for i, f := range fragments {
		chunks[i] = types.Chunk{Position: i, Content: f, Embedding: vectors[i]}
	}

	o.logger.Debug("chunk set rebuilt",
		zap.Int("fragments", len(chunks)),
		zap.Int("text_runes", len([]rune(text))),
		zap.Duration("took", time.Since(start)))

	return &ChunkSet{
		Embedding: whole,
		Chunks:    chunks,
		Provider:  o.embedder.Provider(),
		Model:     o.embedder.Model(),
	}, nil
}

package chunker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mrtinhnguyen/govsense-tthc/internal/embedder"
	"github.com/mrtinhnguyen/govsense-tthc/internal/testutil"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

type fixedSplitter struct {
	fragments []string
	err       error
}

func (f fixedSplitter) Split(string) ([]string, error) {
	return f.fragments, f.err
}

func TestOrchestratorRebuild(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps fragment order across batches", func(t *testing.T) {
		fragments := make([]string, 23)
		for i := range fragments {
			fragments[i] = fmt.Sprintf("fragment %02d", i)
		}
		mock := testutil.NewMockEmbedder(8)
		orch := NewOrchestrator(fixedSplitter{fragments: fragments}, mock, Options{
			BatchSize:   4,
			Concurrency: 3,
			Logger:      zaptest.NewLogger(t),
		})

		set, err := orch.Rebuild(ctx, "whole text")
		require.NoError(t, err)
		require.Len(t, set.Chunks, len(fragments))

		for i, c := range set.Chunks {
			assert.Equal(t, i, c.Position)
			assert.Equal(t, fragments[i], c.Content)
			want, err := embedder.Embed(ctx, mock, fragments[i])
			require.NoError(t, err)
			assert.Equal(t, want, c.Embedding)
		}

		whole, _ := embedder.Embed(ctx, mock, "whole text")
		assert.Equal(t, whole, set.Embedding)
		assert.Equal(t, "mock", set.Provider)
		assert.Equal(t, "mock-v1", set.Model)
	})

	t.Run("real splitter", func(t *testing.T) {
		orch := NewOrchestrator(NewRecursiveSplitter(DefaultSplitterConfig()), testutil.NewMockEmbedder(4), Options{})
		set, err := orch.Rebuild(ctx, "Tên thủ tục hành chính: Thủ tục A")
		require.NoError(t, err)
		require.Len(t, set.Chunks, 1)
		assert.Equal(t, "Tên thủ tục hành chính: Thủ tục A", set.Chunks[0].Content)
		assert.Len(t, set.Embedding, 4)
	})

	t.Run("embed failure fails the rebuild", func(t *testing.T) {
		mock := testutil.NewMockEmbedder(4)
		mock.FailOn("b")
		orch := NewOrchestrator(fixedSplitter{fragments: []string{"a", "b", "c"}}, mock, Options{BatchSize: 1})

		set, err := orch.Rebuild(ctx, "abc")
		assert.Nil(t, set)
		assert.ErrorIs(t, err, types.ErrDependency)
		assert.ErrorIs(t, err, testutil.ErrInjected)
	})

	t.Run("splitter failure", func(t *testing.T) {
		boom := errors.New("boom")
		orch := NewOrchestrator(fixedSplitter{err: boom}, testutil.NewMockEmbedder(4), Options{})
		_, err := orch.Rebuild(ctx, "abc")
		assert.ErrorIs(t, err, types.ErrDependency)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("empty text", func(t *testing.T) {
		orch := NewOrchestrator(fixedSplitter{}, testutil.NewMockEmbedder(4), Options{})
		_, err := orch.Rebuild(ctx, "   ")
		assert.ErrorIs(t, err, types.ErrEmptyContent)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		orch := NewOrchestrator(fixedSplitter{fragments: []string{"a"}}, testutil.NewMockEmbedder(4), Options{})
		_, err := orch.Rebuild(cctx, "a")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

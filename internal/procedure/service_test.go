package procedure

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrtinhnguyen/govsense-tthc/internal/chunker"
	"github.com/mrtinhnguyen/govsense-tthc/internal/citation"
	"github.com/mrtinhnguyen/govsense-tthc/internal/content"
	"github.com/mrtinhnguyen/govsense-tthc/internal/logging"
	"github.com/mrtinhnguyen/govsense-tthc/internal/storage"
	"github.com/mrtinhnguyen/govsense-tthc/internal/testutil"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

type fixture struct {
	svc      *Service
	store    *storage.SQLiteStorage
	emb      *testutil.MockEmbedder
	splitter chunker.Splitter
}

func setup(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	emb := testutil.NewMockEmbedder(8)
	splitter := chunker.NewRecursiveSplitter(chunker.SplitterConfig{ChunkSize: 40, ChunkOverlap: 0})
	logger, _ := logging.NewTestLogger()
	orch := chunker.NewOrchestrator(splitter, emb, chunker.Options{BatchSize: 2, Logger: logger})

	return &fixture{
		svc:      NewService(store, orch, logger),
		store:    store,
		emb:      emb,
		splitter: splitter,
	}
}

func sampleFields() types.Fields {
	return types.Fields{
		Name:               "Cấp giấy phép xây dựng nhà ở riêng lẻ",
		Code:               "1.009972",
		ImplementingAgency: "Ủy ban nhân dân cấp huyện",
		Deadline:           "15 ngày làm việc",
		Fee:                "75.000 đồng",
	}
}

func chunkIDs(p *types.Procedure) map[int64]bool {
	ids := make(map[int64]bool, len(p.Chunks))
	for _, c := range p.Chunks {
		ids[c.ID] = true
	}
	return ids
}

func assertDerived(t *testing.T, f *fixture, p *types.Procedure) {
	t.Helper()
	assert.Equal(t, content.Canonicalize(p.Fields), p.Content)
	assert.Equal(t, content.Hash(p.Content), p.ContentHash)

	fragments, err := f.splitter.Split(p.Content)
	require.NoError(t, err)
	require.Len(t, p.Chunks, len(fragments))
	for i, c := range p.Chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, fragments[i], c.Content)
		assert.Len(t, c.Embedding, 8)
	}
}

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	creator := uuid.New()

	p, err := f.svc.Create(ctx, CreateInput{
		TenantID:        1,
		Fields:          sampleFields(),
		FormAttachments: []types.FormAttachment{{Name: "Mẫu đơn"}},
		CreatedBy:       &creator,
	})
	require.NoError(t, err)
	assert.Greater(t, p.ID, int64(0))
	assert.Len(t, p.Embedding, 8)
	assert.Greater(t, len(p.Chunks), 1, "small chunk size should split the text")

	got, err := f.svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assertDerived(t, f, got)
	assert.Equal(t, &creator, got.CreatedBy)
	assert.Equal(t, []types.FormAttachment{{Name: "Mẫu đơn"}}, got.FormAttachments)
}

func TestCreateNormalizesFields(t *testing.T) {
	f := setup(t)

	p, err := f.svc.Create(context.Background(), CreateInput{
		TenantID: 1,
		Fields:   types.Fields{Name: "  Thủ tục A ", Code: " X1 "},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tên thủ tục hành chính: Thủ tục A\nMã thủ tục: X1", p.Content)
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: types.Fields{Code: "X1"}})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{TenantID: 0, Fields: types.Fields{Name: "A"}})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: types.Fields{Name: "A\nMã thủ tục: X1"}})
	assert.ErrorIs(t, err, types.ErrValidation)

	assert.Zero(t, f.emb.Calls(), "invalid input must not reach the embedder")
}

func TestCreateEmbedderFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.emb.FailAll(true)

	_, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	assert.ErrorIs(t, err, types.ErrDependency)

	n, err := f.store.CountProcedures(ctx, 1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateDoesNotDeduplicate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.ContentHash, b.ContentHash)
}

func TestUpdateReplacesEveryChunk(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)
	before := chunkIDs(p)
	oldHash := p.ContentHash

	updated, err := f.svc.Update(ctx, 1, p.ID, UpdateInput{
		Patch: types.Patch{types.FieldFee: "Miễn phí", types.FieldCode: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Miễn phí", updated.Fee)
	assert.Empty(t, updated.Code)
	assert.Equal(t, sampleFields().Name, updated.Name, "fields outside the patch are kept")
	assert.NotEqual(t, oldHash, updated.ContentHash)

	got, err := f.svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assertDerived(t, f, got)
	for id := range chunkIDs(got) {
		assert.False(t, before[id], "chunk id %d survived the update", id)
	}

	for id := range before {
		_, err := f.svc.ResolveCitation(ctx, citation.ChunkID(id))
		assert.ErrorIs(t, err, types.ErrNotFound)
	}
}

func TestUpdateFailureKeepsPreviousState(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)

	f.emb.FailAll(true)
	_, err = f.svc.Update(ctx, 1, p.ID, UpdateInput{Patch: types.Patch{types.FieldFee: "0"}})
	assert.ErrorIs(t, err, types.ErrDependency)
	f.emb.FailAll(false)

	got, err := f.svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ContentHash, got.ContentHash)
	assert.Equal(t, chunkIDs(p), chunkIDs(got))
}

func TestUpdateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, 1, p.ID, UpdateInput{Patch: types.Patch{types.FieldName: " "}})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.svc.Update(ctx, 1, p.ID, UpdateInput{Patch: types.Patch{types.FieldCode: strings.Repeat("x", 101)}})
	assert.ErrorIs(t, err, types.ErrValidation)

	_, err = f.svc.Update(ctx, 2, p.ID, UpdateInput{Patch: types.Patch{types.FieldFee: "0"}})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpdateAttachments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{
		TenantID:        1,
		Fields:          sampleFields(),
		FormAttachments: []types.FormAttachment{{Name: "a"}},
	})
	require.NoError(t, err)

	got, err := f.svc.Update(ctx, 1, p.ID, UpdateInput{Patch: types.Patch{types.FieldFee: "1"}})
	require.NoError(t, err)
	assert.Equal(t, []types.FormAttachment{{Name: "a"}}, got.FormAttachments)

	got, err = f.svc.Update(ctx, 1, p.ID, UpdateInput{FormAttachments: []types.FormAttachment{}})
	require.NoError(t, err)
	assert.Empty(t, got.FormAttachments)
}

func TestDeleteCascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, 2, p.ID), types.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, 1, p.ID))
	assert.ErrorIs(t, f.svc.Delete(ctx, 1, p.ID), types.ErrNotFound)

	_, err = f.svc.Get(ctx, 1, p.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	chunks, err := f.store.ListChunks(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestTenantScoping(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)
	cited := citation.ChunkID(p.Chunks[0].ID)

	_, err = f.svc.Get(ctx, 2, p.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	owner, err := f.svc.ResolveCitation(ctx, cited)
	require.NoError(t, err)
	assert.Equal(t, p.ID, owner.ID)
	assert.Equal(t, int64(1), owner.TenantID)
	assert.Len(t, owner.Chunks, len(p.Chunks))

	_, err = f.svc.ResolveCitationInTenant(ctx, 2, cited)
	assert.ErrorIs(t, err, types.ErrNotFound)

	owner, err = f.svc.ResolveCitationInTenant(ctx, 1, cited)
	require.NoError(t, err)
	assert.Equal(t, p.ID, owner.ID)
}

func TestResolveCitationInvalid(t *testing.T) {
	f := setup(t)

	_, err := f.svc.ResolveCitation(context.Background(), "doc-12")
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.ErrorIs(t, err, types.ErrInvalidChunkID)

	_, err = f.svc.ResolveCitation(context.Background(), "tthc-999")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, name := range []string{"Đăng ký kết hôn", "Cấp bản sao", "Đăng ký khai sinh"} {
		_, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: types.Fields{Name: name}})
		require.NoError(t, err)
	}
	_, err := f.svc.Create(ctx, CreateInput{TenantID: 2, Fields: types.Fields{Name: "Đăng ký tạm trú"}})
	require.NoError(t, err)

	page, err := f.svc.List(ctx, 1, types.ListFilter{Name: "đăng ký", PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.PageSize)

	page, err = f.svc.List(ctx, 1, types.ListFilter{Name: "undefined"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, types.DefaultPageSize, page.PageSize)

	_, err = f.svc.List(ctx, 1, types.ListFilter{PageSize: 500})
	assert.ErrorIs(t, err, types.ErrValidation)
}

func TestStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, CreateInput{TenantID: 1, Fields: sampleFields()})
	require.NoError(t, err)

	st, err := f.svc.Status(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, st.ProceduresCount)
	assert.Equal(t, len(p.Chunks), st.ChunksCount)
}

package procedure

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/chunker"
	"github.com/mrtinhnguyen/govsense-tthc/internal/citation"
	"github.com/mrtinhnguyen/govsense-tthc/internal/content"
	"github.com/mrtinhnguyen/govsense-tthc/internal/metrics"
	"github.com/mrtinhnguyen/govsense-tthc/internal/storage"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// Rebuilder computes the chunk set of a canonical text
type Rebuilder interface {
	Rebuild(ctx context.Context, text string) (*chunker.ChunkSet, error)
}

// Service coordinates procedure writes with their derived data
type Service struct {
	store     storage.Storage
	rebuilder Rebuilder
	logger    *zap.Logger
}

// NewService creates a procedure service
func NewService(store storage.Storage, rebuilder Rebuilder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		rebuilder: rebuilder,
		logger:    logger.Named("procedure"),
	}
}

// CreateInput holds the caller-supplied part of a new procedure
type CreateInput struct {
	TenantID        int64
	Fields          types.Fields
	FormAttachments []types.FormAttachment
	CreatedBy       *uuid.UUID
}

// UpdateInput holds a partial update. Only fields present in Patch change;
// a nil FormAttachments keeps the stored attachments.
type UpdateInput struct {
	Patch           types.Patch
	FormAttachments []types.FormAttachment
}

// Draft is a procedure whose derived data is computed but not yet stored
type Draft struct {
	Procedure *types.Procedure
	Set       *chunker.ChunkSet
}

// Prepare validates in and computes content, hash, embedding and chunks.
// It performs no storage I/O.
func (s *Service) Prepare(ctx context.Context, in CreateInput) (*Draft, error) {
	if err := validTenant(in.TenantID); err != nil {
		return nil, err
	}
	p := &types.Procedure{
		TenantID:        in.TenantID,
		Fields:          in.Fields.Normalize(),
		FormAttachments: in.FormAttachments,
		CreatedBy:       in.CreatedBy,
	}
	return s.derive(ctx, p)
}

// derive validates p's fields and recomputes everything derived from them
func (s *Service) derive(ctx context.Context, p *types.Procedure) (*Draft, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := content.CheckLines(p.Fields); err != nil {
		return nil, err
	}

	id := content.Of(p.Fields)
	set, err := s.rebuilder.Rebuild(ctx, id.Text)
	if err != nil {
		return nil, err
	}

	p.Content = id.Text
	p.ContentHash = id.Hash
	p.Embedding = set.Embedding
	return &Draft{Procedure: p, Set: set}, nil
}

// Insert stores a prepared draft and its chunks through st, which is
// normally a transaction. The draft's procedure receives its id and chunks.
func Insert(ctx context.Context, st storage.Storage, d *Draft) (*types.Procedure, error) {
	if err := st.CreateProcedure(ctx, d.Procedure); err != nil {
		return nil, err
	}
	chunks, err := st.ReplaceChunks(ctx, d.Procedure.ID, d.Set.Chunks, source(d.Set))
	if err != nil {
		return nil, err
	}
	d.Procedure.Chunks = chunks
	return d.Procedure, nil
}

func source(set *chunker.ChunkSet) storage.EmbeddingSource {
	return storage.EmbeddingSource{Provider: set.Provider, Model: set.Model}
}

// Create stores a new procedure. Create does not deduplicate by content.
func (s *Service) Create(ctx context.Context, in CreateInput) (p *types.Procedure, err error) {
	defer func() { metrics.RecordWrite("create", err) }()

	draft, err := s.Prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "create procedure", func(tx storage.Tx) error {
		p, err = Insert(ctx, tx, draft)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("procedure created",
		zap.Int64("tenant_id", p.TenantID),
		zap.Int64("procedure_id", p.ID),
		zap.Int("chunks", len(p.Chunks)))
	return p, nil
}

// Update applies in to the stored procedure and replaces its whole chunk set
func (s *Service) Update(ctx context.Context, tenantID, id int64, in UpdateInput) (p *types.Procedure, err error) {
	defer func() { metrics.RecordWrite("update", err) }()

	if err := validTenant(tenantID); err != nil {
		return nil, err
	}
	current, err := s.store.GetProcedure(ctx, tenantID, id)
	if err != nil {
		return nil, storeErr("load procedure", err)
	}

	current.Fields = current.Fields.Apply(in.Patch)
	if in.FormAttachments != nil {
		current.FormAttachments = in.FormAttachments
	}

	draft, err := s.derive(ctx, current)
	if err != nil {
		return nil, err
	}

	err = s.inTx(ctx, "update procedure", func(tx storage.Tx) error {
		if err := tx.UpdateProcedure(ctx, draft.Procedure); err != nil {
			return err
		}
		chunks, err := tx.ReplaceChunks(ctx, draft.Procedure.ID, draft.Set.Chunks, source(draft.Set))
		if err != nil {
			return err
		}
		draft.Procedure.Chunks = chunks
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("procedure updated",
		zap.Int64("tenant_id", tenantID),
		zap.Int64("procedure_id", id),
		zap.Int("chunks", len(draft.Procedure.Chunks)))
	return draft.Procedure, nil
}

// Delete removes a procedure and, by cascade, its chunks
func (s *Service) Delete(ctx context.Context, tenantID, id int64) (err error) {
	defer func() { metrics.RecordWrite("delete", err) }()

	if err := validTenant(tenantID); err != nil {
		return err
	}
	if err := s.store.DeleteProcedure(ctx, tenantID, id); err != nil {
		return storeErr("delete procedure", err)
	}
	s.logger.Info("procedure deleted", zap.Int64("tenant_id", tenantID), zap.Int64("procedure_id", id))
	return nil
}

// Get returns a procedure of tenantID with its chunks in position order
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*types.Procedure, error) {
	if err := validTenant(tenantID); err != nil {
		return nil, err
	}
	p, err := s.store.GetProcedure(ctx, tenantID, id)
	if err != nil {
		return nil, storeErr("load procedure", err)
	}
	return s.withChunks(ctx, p)
}

// List returns one page of a tenant's procedures ordered by name
func (s *Service) List(ctx context.Context, tenantID int64, filter types.ListFilter) (*types.Page, error) {
	if err := validTenant(tenantID); err != nil {
		return nil, err
	}
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	items, total, err := s.store.ListProcedures(ctx, tenantID, filter)
	if err != nil {
		return nil, storeErr("list procedures", err)
	}
	return &types.Page{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// ResolveCitation returns the procedure owning the cited chunk, with its
// chunks. The returned TenantID lets the caller authorize the read.
func (s *Service) ResolveCitation(ctx context.Context, citationID string) (*types.Procedure, error) {
	chunkID, err := citation.ParseChunkID(citationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}
	p, err := s.store.GetProcedureByChunk(ctx, chunkID)
	if err != nil {
		return nil, storeErr("resolve citation", err)
	}
	return s.withChunks(ctx, p)
}

// ResolveCitationInTenant is ResolveCitation restricted to one tenant; a
// chunk owned by another tenant is reported as not found.
func (s *Service) ResolveCitationInTenant(ctx context.Context, tenantID int64, citationID string) (*types.Procedure, error) {
	if err := validTenant(tenantID); err != nil {
		return nil, err
	}
	chunkID, err := citation.ParseChunkID(citationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrValidation, err)
	}
	p, err := s.store.GetProcedureByChunkInTenant(ctx, tenantID, chunkID)
	if err != nil {
		return nil, storeErr("resolve citation", err)
	}
	return s.withChunks(ctx, p)
}

// Status reports index statistics for a tenant
func (s *Service) Status(ctx context.Context, tenantID int64) (*types.Status, error) {
	if err := validTenant(tenantID); err != nil {
		return nil, err
	}
	st, err := s.store.GetStatus(ctx, tenantID)
	if err != nil {
		return nil, storeErr("status", err)
	}
	return st, nil
}

func (s *Service) withChunks(ctx context.Context, p *types.Procedure) (*types.Procedure, error) {
	chunks, err := s.store.ListChunks(ctx, p.ID)
	if err != nil {
		return nil, storeErr("load chunks", err)
	}
	p.Chunks = chunks
	return p, nil
}

// inTx runs fn in a transaction, committing only when fn succeeds
func (s *Service) inTx(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return types.Dependency(op, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return storeErr(op, err)
	}
	if err := tx.Commit(); err != nil {
		return types.Dependency(op, err)
	}
	return nil
}

// storeErr keeps caller-facing errors intact and marks the rest as
// dependency failures
func storeErr(op string, err error) error {
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrDependency):
		return err
	default:
		return types.Dependency(op, err)
	}
}

func validTenant(tenantID int64) error {
	if tenantID <= 0 {
		return types.Invalid("search_space_id must be positive")
	}
	return nil
}

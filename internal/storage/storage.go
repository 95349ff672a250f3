package storage

import (
	"context"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// Storage defines the interface for persisting and querying procedures and their chunks
type Storage interface {
	// Procedure operations
	CreateProcedure(ctx context.Context, p *types.Procedure) error
	UpdateProcedure(ctx context.Context, p *types.Procedure) error
	GetProcedure(ctx context.Context, tenantID, id int64) (*types.Procedure, error)
	DeleteProcedure(ctx context.Context, tenantID, id int64) error
	ListProcedures(ctx context.Context, tenantID int64, filter types.ListFilter) ([]*types.Procedure, int, error)
	CountProcedures(ctx context.Context, tenantID int64) (int, error)
	ListContentHashes(ctx context.Context, tenantID int64) (map[string]struct{}, error)

	// Chunk operations
	ReplaceChunks(ctx context.Context, procedureID int64, chunks []types.Chunk, src EmbeddingSource) ([]types.Chunk, error)
	ListChunks(ctx context.Context, procedureID int64) ([]types.Chunk, error)
	GetProcedureByChunk(ctx context.Context, chunkID int64) (*types.Procedure, error)
	GetProcedureByChunkInTenant(ctx context.Context, tenantID, chunkID int64) (*types.Procedure, error)

	// Search operations
	SearchChunks(ctx context.Context, tenantID int64, vector []float32, limit int) ([]VectorResult, error)

	// Status operations
	GetStatus(ctx context.Context, tenantID int64) (*types.Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	// Savepoint opens a nested rollback point inside the transaction
	Savepoint(ctx context.Context, name string) (Savepoint, error)
	Storage // Embed Storage interface for transaction operations
}

// Savepoint is a named rollback point inside a Tx
type Savepoint interface {
	Release() error
	RollbackTo() error
}

// EmbeddingSource records which model produced stored vectors
type EmbeddingSource struct {
	Provider string
	Model    string
}

// VectorResult is one ranked chunk from SearchChunks
type VectorResult struct {
	ChunkID     int64
	ProcedureID int64
	Position    int
	Content     string
	Distance    float64 // cosine distance, ascending is better
}

// ToChunk converts the result to a types.Chunk without embedding
func (r VectorResult) ToChunk() types.Chunk {
	return types.Chunk{
		ID:          r.ChunkID,
		ProcedureID: r.ProcedureID,
		Position:    r.Position,
		Content:     r.Content,
	}
}

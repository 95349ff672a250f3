package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// cosineDistanceFunc is the SQL function the cgo build registers for ranking
const cosineDistanceFunc = "cosine_distance"

// searchChunks ranks a tenant's chunks by cosine distance to vector, closest
// first, ties broken by chunk id. The tenant filter is part of the ranking
// query so other tenants' chunks never compete for the limit.
func searchChunks(ctx context.Context, q querier, tenantID int64, vector []float32, limit int) ([]VectorResult, error) {
	if limit <= 0 || len(vector) == 0 {
		return []VectorResult{}, nil
	}

	// Rank in SQL when the driver has the distance function
	if VectorExtensionAvailable {
		return searchChunksOptimized(ctx, q, tenantID, vector, limit)
	}
	// Fall back to Go-based computation for purego builds
	return searchChunksFallback(ctx, q, tenantID, vector, limit)
}

// searchChunksOptimized ranks in SQL with the registered distance function
func searchChunksOptimized(ctx context.Context, q querier, tenantID int64, vector []float32, limit int) ([]VectorResult, error) {
	query := `
		SELECT
			c.id, c.procedure_id, c.position, c.content,
			cosine_distance(c.embedding, ?) AS distance
		FROM procedure_chunks c
		INNER JOIN procedures p ON p.id = c.procedure_id
		WHERE p.tenant_id = ? AND c.dimension = ?
		ORDER BY distance ASC, c.id ASC
		LIMIT ?
	`
	rows, err := q.QueryContext(ctx, query, serializeVector(vector), tenantID, len(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ChunkID, &r.ProcedureID, &r.Position, &r.Content, &r.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchChunksFallback computes cosine distance in Go for purego builds,
// then loads the content of the winners only
func searchChunksFallback(ctx context.Context, q querier, tenantID int64, vector []float32, limit int) ([]VectorResult, error) {
	query := `
		SELECT c.id, c.procedure_id, c.position, c.embedding
		FROM procedure_chunks c
		INNER JOIN procedures p ON p.id = c.procedure_id
		WHERE p.tenant_id = ?
	`
	rows, err := q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}

	candidates, err := computeDistances(rows, vector)
	_ = rows.Close()
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	return hydrateCandidates(ctx, q, candidates)
}

// candidate represents a chunk with its distance to the query
type candidate struct {
	chunkID     int64
	procedureID int64
	position    int
	distance    float64
}

// computeDistances scans id/vector rows and computes cosine distance
func computeDistances(rows *sql.Rows, queryVector []float32) ([]candidate, error) {
	candidates := make([]candidate, 0, 256)

	for rows.Next() {
		var c candidate
		var blob []byte
		if err := rows.Scan(&c.chunkID, &c.procedureID, &c.position, &blob); err != nil {
			return nil, err
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}

		c.distance = 1 - cosineSimilarity(queryVector, vector)
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// sortCandidates orders by distance ascending, then chunk id ascending
func sortCandidates(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].chunkID < candidates[j].chunkID
	})
}

// hydrateCandidates loads chunk content for ranked candidates, keeping their order
func hydrateCandidates(ctx context.Context, q querier, candidates []candidate) ([]VectorResult, error) {
	if len(candidates) == 0 {
		return []VectorResult{}, nil
	}

	placeholders := make([]string, len(candidates))
	args := make([]interface{}, len(candidates))
	for i, c := range candidates {
		placeholders[i] = "?"
		args[i] = c.chunkID
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, content FROM procedure_chunks WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunk content: %w", err)
	}
	defer func() { _ = rows.Close() }()

	content := make(map[int64]string, len(candidates))
	for rows.Next() {
		var id int64
		var text string
		if err := rows.Scan(&id, &text); err != nil {
			return nil, err
		}
		content[id] = text
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	results := make([]VectorResult, 0, len(candidates))
	for _, c := range candidates {
		text, ok := content[c.chunkID]
		if !ok {
			continue // deleted between the two queries
		}
		results = append(results, VectorResult{
			ChunkID:     c.chunkID,
			ProcedureID: c.procedureID,
			Position:    c.position,
			Content:     text,
			Distance:    c.distance,
		})
	}
	return results, nil
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// SerializeVector is an exported helper for testing
func SerializeVector(vector []float32) []byte {
	return serializeVector(vector)
}

// DeserializeVector is an exported helper for testing
func DeserializeVector(blob []byte) []float32 {
	return deserializeVector(blob)
}

// CosineDistance returns 1 - cosine similarity; zero vectors are at distance 1
func CosineDistance(a, b []float32) float64 {
	return 1 - cosineSimilarity(a, b)
}

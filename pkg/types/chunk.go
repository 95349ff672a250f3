package types

import "errors"

// Chunk is one embeddable fragment of a procedure's canonical text.
// IDs are never reused once a chunk set is replaced.
type Chunk struct {
	ID          int64     `json:"id"`
	ProcedureID int64     `json:"procedure_id"`
	Position    int       `json:"position"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
}

// Validate checks a chunk before it is persisted
func (c *Chunk) Validate() error {
	if c.Content == "" {
		return ErrEmptyContent
	}
	if len(c.Embedding) == 0 {
		return errors.New("chunk embedding is required")
	}
	if c.Position < 0 {
		return errors.New("chunk position must be >= 0")
	}
	return nil
}

// Match is one ranked retrieval hit.
type Match struct {
	Chunk     Chunk
	Procedure *Procedure
	Distance  float64 // cosine distance, lower is closer
}

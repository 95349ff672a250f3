// Package testutil holds fakes shared by package tests.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"sync"

	"github.com/mrtinhnguyen/govsense-tthc/internal/embedder"
)

// ErrInjected is returned by MockEmbedder when a failure is injected.
var ErrInjected = errors.New("injected embedder failure")

// MockEmbedder generates deterministic vectors from the text digest.
// Individual texts can be pinned to fixed vectors and failures can be
// injected to exercise error paths.
type MockEmbedder struct {
	dimension int

	mu        sync.Mutex
	overrides map[string][]float32
	failOn    map[string]bool
	failAll   bool
	calls     int
	texts     int
}

// NewMockEmbedder creates a mock producing dim-sized unit vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		dimension: dim,
		overrides: make(map[string][]float32),
		failOn:    make(map[string]bool),
	}
}

// SetVector pins the vector returned for text.
func (m *MockEmbedder) SetVector(text string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[text] = append([]float32(nil), vec...)
}

// FailOn makes any request containing text fail.
func (m *MockEmbedder) FailOn(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn[text] = true
}

// FailAll makes every request fail until reset with FailAll(false).
func (m *MockEmbedder) FailAll(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failAll = fail
}

// Calls reports how many Generate calls were made.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts reports how many texts were embedded in total.
func (m *MockEmbedder) Texts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.texts
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	if err := embedder.ValidateRequest(req); err != nil {
		return nil, err
	}
	resp, err := m.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: []string{req.Text}})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

func (m *MockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	if err := embedder.ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	out := make([]*embedder.Embedding, len(req.Texts))
	for i, text := range req.Texts {
		if m.failAll || m.failOn[text] {
			return nil, ErrInjected
		}
		vec, ok := m.overrides[text]
		if !ok {
			vec = digestVector(text, m.dimension)
		}
		out[i] = &embedder.Embedding{
			Vector:    append([]float32(nil), vec...),
			Dimension: len(vec),
			Provider:  m.Provider(),
			Model:     m.Model(),
			Hash:      embedder.ComputeHash(text),
		}
	}
	m.texts += len(req.Texts)

	return &embedder.BatchEmbeddingResponse{Embeddings: out, Provider: m.Provider(), Model: m.Model()}, nil
}

func (m *MockEmbedder) Dimension() int  { return m.dimension }
func (m *MockEmbedder) Provider() string { return "mock" }
func (m *MockEmbedder) Model() string    { return "mock-v1" }
func (m *MockEmbedder) Close() error     { return nil }

func digestVector(text string, dim int) []float32 {
	hash := sha256.Sum256([]byte(text))
	vector := make([]float32, dim)
	var sum float64
	for i := 0; i < dim; i++ {
		idx := (i * 4) % 32
		val := binary.BigEndian.Uint32(hash[idx : idx+4])
		vector[i] = (float32(val)/float32(1<<32))*2 - 1
		sum += float64(vector[i] * vector[i])
	}
	if sum > 0 {
		n := float32(math.Sqrt(sum))
		for i := range vector {
			vector[i] /= n
		}
	}
	return vector
}

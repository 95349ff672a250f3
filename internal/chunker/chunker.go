package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the target fragment length in runes
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of runes shared by neighbouring fragments
	DefaultChunkOverlap = 100
)

// Splitter turns canonical text into ordered fragments
type Splitter interface {
	Split(text string) ([]string, error)
}

// SplitterConfig sizes the recursive splitter
type SplitterConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

// RecursiveSplitter splits on paragraph, line, then word boundaries until
// fragments fit the chunk size.
type RecursiveSplitter struct {
	splitter textsplitter.RecursiveCharacter
}

// DefaultSplitterConfig returns the default fragment size and overlap
func DefaultSplitterConfig() SplitterConfig {
	return SplitterConfig{ChunkSize: DefaultChunkSize, ChunkOverlap: DefaultChunkOverlap}
}

// NewRecursiveSplitter creates a splitter. A non-positive size selects the
// default; an overlap that is negative or not smaller than the size is clamped.
func NewRecursiveSplitter(cfg SplitterConfig) *RecursiveSplitter {
	size := cfg.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 10
	}

	return &RecursiveSplitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
		),
	}
}

// Split returns the fragments of text in order. Blank fragments are dropped;
// non-blank text always yields at least one fragment.
func (s *RecursiveSplitter) Split(text string) ([]string, error) {
	parts, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, err
	}

	fragments := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		fragments = append(fragments, p)
	}

	if len(fragments) == 0 && strings.TrimSpace(text) != "" {
		fragments = append(fragments, text)
	}
	return fragments, nil
}

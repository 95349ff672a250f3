// Package chunker splits a procedure's canonical text into fragments and
// embeds them.
//
// The splitter is langchaingo's recursive character splitter: it tries
// paragraph, line, then word boundaries until fragments fit ChunkSize runes,
// with ChunkOverlap runes repeated between neighbours.
//
// # Rebuild
//
//	orch := chunker.NewOrchestrator(
//	    chunker.NewRecursiveSplitter(chunker.DefaultSplitterConfig()),
//	    emb,
//	    chunker.Options{Concurrency: 4},
//	)
//	set, err := orch.Rebuild(ctx, canonicalText)
//
// A rebuild always produces a complete new generation: the document embedding
// and every fragment with its vector, in fragment order. Callers replace the
// stored chunk set with it as a whole.
package chunker

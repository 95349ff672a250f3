// Package types provides shared type definitions for the procedure search service.
//
// # Core Types
//
// Fields is the closed set of descriptive attributes of an administrative
// procedure. Only Name is required:
//
//	f := types.Fields{Name: "Thủ tục A", Code: "X1"}
//	if err := f.Validate(); err != nil {
//	    return err
//	}
//
// Procedure adds tenant ownership, the canonical text derived from Fields,
// its content hash, and audit data. Chunk is one embedded fragment of that
// canonical text; a procedure's chunks are always replaced as a whole.
//
// # Errors
//
// Every component reports failures through the sentinel errors in this
// package so callers can branch with errors.Is:
//
//	if errors.Is(err, types.ErrNotFound) {
//	    // 404
//	}
//
// Import rows that fail are reported as RowError values, formatted as
// "row <n>: <message>".
package types

// Package procedure implements the write and read paths for procedures.
//
// Every write recomputes the canonical text, the content hash, the document
// embedding and the whole chunk set from the current fields, then stores the
// row and its chunks in one transaction. Reads are always scoped to a tenant,
// except for ResolveCitation, which returns the owner's tenant so the caller
// can authorize.
package procedure

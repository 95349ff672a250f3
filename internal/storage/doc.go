// Package storage provides SQLite-based persistence for procedures and their
// embedded chunks.
//
// # Database Schema
//
// Tables:
//   - procedures: field columns, canonical content, content hash, full-text embedding
//   - procedure_chunks: ordered fragments with embeddings; ids are AUTOINCREMENT
//     and never reissued
//   - schema_version: applied migrations (semver)
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("govsense.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	results, err := db.SearchChunks(ctx, tenantID, queryVector, 10)
//
// # Transactions
//
// A procedure row and its chunk set are written in one transaction. Savepoints
// let a batch undo one item without aborting the rest:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	sp, err := tx.Savepoint(ctx, "row_1")
//	if err != nil {
//	    return err
//	}
//	if err := tx.CreateProcedure(ctx, p); err != nil {
//	    _ = sp.RollbackTo()
//	} else {
//	    _ = sp.Release()
//	}
//	return tx.Commit()
//
// While a transaction is open every statement must go through it: the pool
// holds a single connection.
//
// # Vector Search
//
// Built with the sqlite_vec tag (mattn/go-sqlite3, CGO) the ranking runs in
// SQL through cosine_distance, a function the driver registers on every
// connection. The default purego build (modernc.org/sqlite) ranks in Go. Both order by cosine distance ascending, then chunk id.
package storage

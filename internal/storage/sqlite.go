package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist in the tenant
	ErrNotFound = types.ErrNotFound
	// ErrNestedTx is returned by BeginTx on a transaction; use Savepoint instead
	ErrNestedTx = errors.New("nested transactions not supported")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, driverDSN(dbPath))
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single connection: SQLite has one writer, and PRAGMAs and :memory:
	// databases are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Chunk rows cascade on procedure delete
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction. While it is open every other call on
// s blocks, so callers must do all work for the transaction through it.
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

var savepointName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqliteSavepoint is a SAVEPOINT inside an open transaction
type sqliteSavepoint struct {
	ctx  context.Context
	tx   *sql.Tx
	name string
	done bool
}

// Savepoint opens a named SAVEPOINT. Names are identifiers, not parameters,
// so they are restricted to [A-Za-z0-9_].
func (t *sqliteTx) Savepoint(ctx context.Context, name string) (Savepoint, error) {
	if !savepointName.MatchString(name) {
		return nil, fmt.Errorf("invalid savepoint name %q", name)
	}
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}
	return &sqliteSavepoint{ctx: ctx, tx: t.tx, name: name}, nil
}

// Release keeps the work done since the savepoint
func (sp *sqliteSavepoint) Release() error {
	if sp.done {
		return nil
	}
	sp.done = true
	if _, err := sp.tx.ExecContext(sp.ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", sp.name, err)
	}
	return nil
}

// RollbackTo undoes the work done since the savepoint and removes it
func (sp *sqliteSavepoint) RollbackTo() error {
	if sp.done {
		return nil
	}
	sp.done = true
	if _, err := sp.tx.ExecContext(sp.ctx, "ROLLBACK TO SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("failed to roll back to savepoint %s: %w", sp.name, err)
	}
	// ROLLBACK TO leaves the savepoint on the stack
	if _, err := sp.tx.ExecContext(sp.ctx, "RELEASE SAVEPOINT "+sp.name); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", sp.name, err)
	}
	return nil
}

// Procedure operations

var procedureColumns = []string{
	"id", "tenant_id", "name", "code", "deadline", "location", "method",
	"legal_basis", "fee", "result", "subjects", "implementing_agency",
	"form_attachments", "content", "content_hash", "embedding",
	"created_by", "created_at", "updated_at",
}

// selectProcedure renders the procedure column list, optionally qualified by a table alias
func selectProcedure(alias string) string {
	if alias == "" {
		return strings.Join(procedureColumns, ", ")
	}
	cols := make([]string, len(procedureColumns))
	for i, c := range procedureColumns {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProcedure(row rowScanner) (*types.Procedure, error) {
	var (
		p           types.Procedure
		attachments string
		embedding   []byte
		createdBy   sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.TenantID, &p.Name, &p.Code, &p.Deadline, &p.Location, &p.Method,
		&p.LegalBasis, &p.Fee, &p.Result, &p.Subjects, &p.ImplementingAgency,
		&attachments, &p.Content, &p.ContentHash, &embedding,
		&createdBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if attachments != "" && attachments != "[]" {
		if err := json.Unmarshal([]byte(attachments), &p.FormAttachments); err != nil {
			return nil, fmt.Errorf("failed to decode form attachments of procedure %d: %w", p.ID, err)
		}
	}
	if len(embedding) > 0 {
		p.Embedding = deserializeVector(embedding)
	}
	if createdBy.Valid && createdBy.String != "" {
		id, err := uuid.Parse(createdBy.String)
		if err != nil {
			return nil, fmt.Errorf("invalid created_by on procedure %d: %w", p.ID, err)
		}
		p.CreatedBy = &id
	}
	return &p, nil
}

func encodeAttachments(a []types.FormAttachment) (string, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("failed to encode form attachments: %w", err)
	}
	return string(b), nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func nullableVector(v []float32) interface{} {
	if len(v) == 0 {
		return nil
	}
	return serializeVector(v)
}

// createProcedureWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) createProcedureWithQuerier(ctx context.Context, q querier, p *types.Procedure) error {
	attachments, err := encodeAttachments(p.FormAttachments)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO procedures (
			tenant_id, name, code, deadline, location, method, legal_basis, fee,
			result, subjects, implementing_agency, name_folded, code_folded,
			form_attachments, content, content_hash, embedding, created_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		p.TenantID, p.Name, p.Code, p.Deadline, p.Location, p.Method, p.LegalBasis, p.Fee,
		p.Result, p.Subjects, p.ImplementingAgency, strings.ToLower(p.Name), strings.ToLower(p.Code),
		attachments, p.Content, p.ContentHash, nullableVector(p.Embedding), nullableUUID(p.CreatedBy),
		now, now)
	if err != nil {
		return fmt.Errorf("failed to create procedure: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateProcedure(ctx context.Context, p *types.Procedure) error {
	return s.createProcedureWithQuerier(ctx, s.querier(), p)
}

// updateProcedureWithQuerier rewrites the fields and derived data of an existing procedure
func (s *SQLiteStorage) updateProcedureWithQuerier(ctx context.Context, q querier, p *types.Procedure) error {
	attachments, err := encodeAttachments(p.FormAttachments)
	if err != nil {
		return err
	}

	query := `
		UPDATE procedures
		SET name = ?, code = ?, deadline = ?, location = ?, method = ?, legal_basis = ?,
		    fee = ?, result = ?, subjects = ?, implementing_agency = ?,
		    name_folded = ?, code_folded = ?, form_attachments = ?,
		    content = ?, content_hash = ?, embedding = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`
	now := time.Now().UTC()
	result, err := q.ExecContext(ctx, query,
		p.Name, p.Code, p.Deadline, p.Location, p.Method, p.LegalBasis,
		p.Fee, p.Result, p.Subjects, p.ImplementingAgency,
		strings.ToLower(p.Name), strings.ToLower(p.Code), attachments,
		p.Content, p.ContentHash, nullableVector(p.Embedding), now,
		p.ID, p.TenantID)
	if err != nil {
		return fmt.Errorf("failed to update procedure: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	p.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateProcedure(ctx context.Context, p *types.Procedure) error {
	return s.updateProcedureWithQuerier(ctx, s.querier(), p)
}

// getProcedureWithQuerier loads a procedure owned by tenantID
func (s *SQLiteStorage) getProcedureWithQuerier(ctx context.Context, q querier, tenantID, id int64) (*types.Procedure, error) {
	query := `SELECT ` + selectProcedure("") + ` FROM procedures WHERE id = ? AND tenant_id = ?`
	p, err := scanProcedure(q.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStorage) GetProcedure(ctx context.Context, tenantID, id int64) (*types.Procedure, error) {
	return s.getProcedureWithQuerier(ctx, s.querier(), tenantID, id)
}

// deleteProcedureWithQuerier removes a procedure; its chunks go with it via ON DELETE CASCADE
func (s *SQLiteStorage) deleteProcedureWithQuerier(ctx context.Context, q querier, tenantID, id int64) error {
	result, err := q.ExecContext(ctx, `DELETE FROM procedures WHERE id = ? AND tenant_id = ?`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete procedure: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteProcedure(ctx context.Context, tenantID, id int64) error {
	return s.deleteProcedureWithQuerier(ctx, s.querier(), tenantID, id)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// listFilterClause builds the WHERE clause shared by the page and total queries
func listFilterClause(tenantID int64, filter types.ListFilter) (string, []interface{}) {
	where := "tenant_id = ?"
	args := []interface{}{tenantID}
	if filter.Name != "" {
		where += ` AND name_folded LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Name))+"%")
	}
	if filter.Code != "" {
		where += ` AND code_folded LIKE ? ESCAPE '\'`
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Code))+"%")
	}
	return where, args
}

// listProceduresWithQuerier returns one page ordered by name and the total match count.
// The filter is expected to be normalized already.
func (s *SQLiteStorage) listProceduresWithQuerier(ctx context.Context, q querier, tenantID int64, filter types.ListFilter) ([]*types.Procedure, int, error) {
	where, args := listFilterClause(tenantID, filter)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM procedures WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count procedures: %w", err)
	}

	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = types.DefaultPageSize
	}
	query := `SELECT ` + selectProcedure("") + ` FROM procedures WHERE ` + where +
		` ORDER BY name, id LIMIT ? OFFSET ?`
	args = append(args, pageSize, filter.Page*pageSize)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list procedures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items := make([]*types.Procedure, 0, pageSize)
	for rows.Next() {
		p, err := scanProcedure(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (s *SQLiteStorage) ListProcedures(ctx context.Context, tenantID int64, filter types.ListFilter) ([]*types.Procedure, int, error) {
	return s.listProceduresWithQuerier(ctx, s.querier(), tenantID, filter)
}

func (s *SQLiteStorage) countProceduresWithQuerier(ctx context.Context, q querier, tenantID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM procedures WHERE tenant_id = ?`, tenantID).Scan(&n)
	return n, err
}

func (s *SQLiteStorage) CountProcedures(ctx context.Context, tenantID int64) (int, error) {
	return s.countProceduresWithQuerier(ctx, s.querier(), tenantID)
}

// listContentHashesWithQuerier returns the set of content hashes stored for a tenant
func (s *SQLiteStorage) listContentHashesWithQuerier(ctx context.Context, q querier, tenantID int64) (map[string]struct{}, error) {
	rows, err := q.QueryContext(ctx, `SELECT DISTINCT content_hash FROM procedures WHERE tenant_id = ?`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	hashes := make(map[string]struct{})
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes[h] = struct{}{}
	}
	return hashes, rows.Err()
}

func (s *SQLiteStorage) ListContentHashes(ctx context.Context, tenantID int64) (map[string]struct{}, error) {
	return s.listContentHashesWithQuerier(ctx, s.querier(), tenantID)
}

// Chunk operations

// replaceChunksWithQuerier deletes every chunk of the procedure and inserts the
// new set. Returned chunks carry their fresh ids.
func (s *SQLiteStorage) replaceChunksWithQuerier(ctx context.Context, q querier, procedureID int64, chunks []types.Chunk, src EmbeddingSource) ([]types.Chunk, error) {
	for i := range chunks {
		if err := chunks[i].Validate(); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM procedure_chunks WHERE procedure_id = ?`, procedureID); err != nil {
		return nil, fmt.Errorf("failed to delete chunks: %w", err)
	}

	query := `
		INSERT INTO procedure_chunks (procedure_id, position, content, embedding, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	now := time.Now().UTC()
	out := make([]types.Chunk, len(chunks))
	for i, c := range chunks {
		c.ProcedureID = procedureID
		err := q.QueryRowContext(ctx, query,
			procedureID, c.Position, c.Content, serializeVector(c.Embedding),
			len(c.Embedding), src.Provider, src.Model, now).Scan(&c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}

func (s *SQLiteStorage) ReplaceChunks(ctx context.Context, procedureID int64, chunks []types.Chunk, src EmbeddingSource) ([]types.Chunk, error) {
	return s.replaceChunksWithQuerier(ctx, s.querier(), procedureID, chunks, src)
}

// listChunksWithQuerier returns chunks in position order
func (s *SQLiteStorage) listChunksWithQuerier(ctx context.Context, q querier, procedureID int64) ([]types.Chunk, error) {
	query := `
		SELECT id, procedure_id, position, content, embedding
		FROM procedure_chunks
		WHERE procedure_id = ?
		ORDER BY position, id
	`
	rows, err := q.QueryContext(ctx, query, procedureID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	chunks := make([]types.Chunk, 0)
	for rows.Next() {
		var c types.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.ProcedureID, &c.Position, &c.Content, &blob); err != nil {
			return nil, err
		}
		c.Embedding = deserializeVector(blob)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunks(ctx context.Context, procedureID int64) ([]types.Chunk, error) {
	return s.listChunksWithQuerier(ctx, s.querier(), procedureID)
}

// getProcedureByChunkWithQuerier finds the owner of a chunk. A tenantID of zero
// or less skips the tenant check.
func (s *SQLiteStorage) getProcedureByChunkWithQuerier(ctx context.Context, q querier, tenantID, chunkID int64) (*types.Procedure, error) {
	query := `
		SELECT ` + selectProcedure("p") + `
		FROM procedure_chunks c
		INNER JOIN procedures p ON p.id = c.procedure_id
		WHERE c.id = ?
	`
	args := []interface{}{chunkID}
	if tenantID > 0 {
		query += " AND p.tenant_id = ?"
		args = append(args, tenantID)
	}

	p, err := scanProcedure(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStorage) GetProcedureByChunk(ctx context.Context, chunkID int64) (*types.Procedure, error) {
	return s.getProcedureByChunkWithQuerier(ctx, s.querier(), 0, chunkID)
}

func (s *SQLiteStorage) GetProcedureByChunkInTenant(ctx context.Context, tenantID, chunkID int64) (*types.Procedure, error) {
	if tenantID <= 0 {
		return nil, ErrNotFound
	}
	return s.getProcedureByChunkWithQuerier(ctx, s.querier(), tenantID, chunkID)
}

// Search operations

func (s *SQLiteStorage) SearchChunks(ctx context.Context, tenantID int64, vector []float32, limit int) ([]VectorResult, error) {
	return searchChunks(ctx, s.querier(), tenantID, vector, limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, tenantID int64) (*types.Status, error) {
	status := &types.Status{TenantID: tenantID, BuildMode: BuildMode}

	var err error
	status.ProceduresCount, err = s.countProceduresWithQuerier(ctx, q, tenantID)
	if err != nil {
		return nil, err
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM procedure_chunks c
		INNER JOIN procedures p ON c.procedure_id = p.id
		WHERE p.tenant_id = ?
	`, tenantID).Scan(&status.ChunksCount)
	if err != nil {
		return nil, err
	}

	// Database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, tenantID int64) (*types.Status, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), tenantID)
}

// Transaction implementations run every statement on the transaction.
// Going through the pool would block on the single connection the tx holds.

func (t *sqliteTx) CreateProcedure(ctx context.Context, p *types.Procedure) error {
	return t.storage.createProcedureWithQuerier(ctx, t.querier(), p)
}

func (t *sqliteTx) UpdateProcedure(ctx context.Context, p *types.Procedure) error {
	return t.storage.updateProcedureWithQuerier(ctx, t.querier(), p)
}

func (t *sqliteTx) GetProcedure(ctx context.Context, tenantID, id int64) (*types.Procedure, error) {
	return t.storage.getProcedureWithQuerier(ctx, t.querier(), tenantID, id)
}

func (t *sqliteTx) DeleteProcedure(ctx context.Context, tenantID, id int64) error {
	return t.storage.deleteProcedureWithQuerier(ctx, t.querier(), tenantID, id)
}

func (t *sqliteTx) ListProcedures(ctx context.Context, tenantID int64, filter types.ListFilter) ([]*types.Procedure, int, error) {
	return t.storage.listProceduresWithQuerier(ctx, t.querier(), tenantID, filter)
}

func (t *sqliteTx) CountProcedures(ctx context.Context, tenantID int64) (int, error) {
	return t.storage.countProceduresWithQuerier(ctx, t.querier(), tenantID)
}

func (t *sqliteTx) ListContentHashes(ctx context.Context, tenantID int64) (map[string]struct{}, error) {
	return t.storage.listContentHashesWithQuerier(ctx, t.querier(), tenantID)
}

func (t *sqliteTx) ReplaceChunks(ctx context.Context, procedureID int64, chunks []types.Chunk, src EmbeddingSource) ([]types.Chunk, error) {
	return t.storage.replaceChunksWithQuerier(ctx, t.querier(), procedureID, chunks, src)
}

func (t *sqliteTx) ListChunks(ctx context.Context, procedureID int64) ([]types.Chunk, error) {
	return t.storage.listChunksWithQuerier(ctx, t.querier(), procedureID)
}

func (t *sqliteTx) GetProcedureByChunk(ctx context.Context, chunkID int64) (*types.Procedure, error) {
	return t.storage.getProcedureByChunkWithQuerier(ctx, t.querier(), 0, chunkID)
}

func (t *sqliteTx) GetProcedureByChunkInTenant(ctx context.Context, tenantID, chunkID int64) (*types.Procedure, error) {
	if tenantID <= 0 {
		return nil, ErrNotFound
	}
	return t.storage.getProcedureByChunkWithQuerier(ctx, t.querier(), tenantID, chunkID)
}

func (t *sqliteTx) SearchChunks(ctx context.Context, tenantID int64, vector []float32, limit int) ([]VectorResult, error) {
	return searchChunks(ctx, t.querier(), tenantID, vector, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context, tenantID int64) (*types.Status, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), tenantID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, ErrNestedTx
}

package importer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/content"
	"github.com/mrtinhnguyen/govsense-tthc/internal/metrics"
	"github.com/mrtinhnguyen/govsense-tthc/internal/procedure"
	"github.com/mrtinhnguyen/govsense-tthc/internal/storage"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// Preparer computes the derived data of a new procedure
type Preparer interface {
	Prepare(ctx context.Context, in procedure.CreateInput) (*procedure.Draft, error)
}

// Options carries per-import settings
type Options struct {
	CreatedBy *uuid.UUID
}

// Reconciler creates procedures from imported rows, skipping content that
// the tenant already has
type Reconciler struct {
	store    storage.Storage
	preparer Preparer
	parser   *Parser
	locks    *Locks
	logger   *zap.Logger
}

// NewReconciler creates a reconciler. Imports of one tenant are serialized
// through locks; pass a shared *Locks when several reconcilers use the same
// database.
func NewReconciler(store storage.Storage, preparer Preparer, locks *Locks, logger *zap.Logger) *Reconciler {
	if locks == nil {
		locks = &Locks{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		store:    store,
		preparer: preparer,
		parser:   NewParser(logger),
		locks:    locks,
		logger:   logger.Named("importer"),
	}
}

// ImportFile parses a CSV upload and reconciles its rows
func (r *Reconciler) ImportFile(ctx context.Context, tenantID int64, name string, data []byte, opts Options) (*types.ImportResult, error) {
	rows, err := r.parser.ParseFile(name, data)
	if err != nil {
		return nil, err
	}
	return r.Reconcile(ctx, tenantID, rows, opts)
}

// pendingRow is a prepared row waiting for the insert transaction
type pendingRow struct {
	n     int
	hash  string
	draft *procedure.Draft
}

// Reconcile creates a procedure for every row whose content hash is new to
// the tenant, in input order. Rows are numbered from 1 in errors.
//
// Rows are embedded before the transaction opens, so the store stays usable
// by other requests while the embedder runs. The inserts then share one
// transaction with a savepoint per row: a failing row is rolled back and
// recorded, and the batch commits once at the end. Cancellation stops the
// batch and rolls it back.
func (r *Reconciler) Reconcile(ctx context.Context, tenantID int64, rows []map[string]string, opts Options) (*types.ImportResult, error) {
	if tenantID <= 0 {
		return nil, types.Invalid("search_space_id must be positive")
	}
	if len(rows) == 0 {
		return nil, types.Invalid("no data rows or no recognized headers")
	}

	release, ok := r.locks.TryAcquire(tenantID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrImportInProgress, tenantID)
	}
	defer release()

	start := time.Now()
	seen, err := r.store.ListContentHashes(ctx, tenantID)
	if err != nil {
		return nil, types.Dependency("load content hashes", err)
	}

	result := &types.ImportResult{Errors: []string{}}
	var failed []*types.RowError
	pending := make([]pendingRow, 0, len(rows))
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("import cancelled at row %d: %w", i+1, err)
		}

		fields := types.FieldsFromMap(row)
		hash := content.Of(fields).Hash
		if _, dup := seen[hash]; dup {
			result.Skipped++
			continue
		}

		draft, err := r.preparer.Prepare(ctx, procedure.CreateInput{
			TenantID:  tenantID,
			Fields:    fields,
			CreatedBy: opts.CreatedBy,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("import cancelled at row %d: %w", i+1, ctxErr)
			}
			failed = append(failed, r.rowFailed(tenantID, i+1, err))
			continue
		}

		seen[hash] = struct{}{}
		pending = append(pending, pendingRow{n: i + 1, hash: hash, draft: draft})
	}

	if len(pending) > 0 {
		n, skipped, insertFailed, err := r.insertAll(ctx, tenantID, pending)
		if err != nil {
			return nil, err
		}
		result.Created = n
		result.Skipped += skipped
		failed = append(failed, insertFailed...)
	}

	slices.SortFunc(failed, func(a, b *types.RowError) int { return a.Row - b.Row })
	for _, f := range failed {
		result.Errors = append(result.Errors, f.Error())
	}

	metrics.RecordImport(result.Created, result.Skipped, len(result.Errors))
	r.logger.Info("import finished",
		zap.Int64("tenant_id", tenantID),
		zap.Int("rows", len(rows)),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("took", time.Since(start)))

	return result, nil
}

// insertAll stores prepared rows in one transaction. Hashes are checked
// again inside it because single creates are not serialized with imports.
func (r *Reconciler) insertAll(ctx context.Context, tenantID int64, pending []pendingRow) (created, skipped int, failed []*types.RowError, err error) {
	tx, err := r.store.BeginTx(ctx)
	if err != nil {
		return 0, 0, nil, types.Dependency("begin import", err)
	}
	defer func() { _ = tx.Rollback() }()

	stored, err := tx.ListContentHashes(ctx, tenantID)
	if err != nil {
		return 0, 0, nil, types.Dependency("load content hashes", err)
	}

	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return 0, 0, nil, fmt.Errorf("import cancelled at row %d: %w", row.n, err)
		}
		if _, dup := stored[row.hash]; dup {
			skipped++
			continue
		}

		if err := r.insertRow(ctx, tx, row); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, 0, nil, fmt.Errorf("import cancelled at row %d: %w", row.n, ctxErr)
			}
			failed = append(failed, r.rowFailed(tenantID, row.n, err))
			continue
		}
		stored[row.hash] = struct{}{}
		created++
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, nil, types.Dependency("commit import", err)
	}
	return created, skipped, failed, nil
}

func (r *Reconciler) rowFailed(tenantID int64, n int, err error) *types.RowError {
	r.logger.Warn("import row failed",
		zap.Int64("tenant_id", tenantID),
		zap.Int("row", n),
		zap.Error(err))
	return &types.RowError{Row: n, Err: err}
}

// insertRow inserts one prepared row inside its own savepoint
func (r *Reconciler) insertRow(ctx context.Context, tx storage.Tx, row pendingRow) (err error) {
	sp, err := tx.Savepoint(ctx, fmt.Sprintf("import_row_%d", row.n))
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, sp.RollbackTo())
			return
		}
		err = sp.Release()
	}()

	_, err = procedure.Insert(ctx, tx, row.draft)
	return err
}

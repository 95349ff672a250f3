// Package app wires storage, embedder and the procedure components from a
// configuration. The MCP server and the CLI commands share it.
package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/chunker"
	"github.com/mrtinhnguyen/govsense-tthc/internal/config"
	"github.com/mrtinhnguyen/govsense-tthc/internal/embedder"
	"github.com/mrtinhnguyen/govsense-tthc/internal/importer"
	"github.com/mrtinhnguyen/govsense-tthc/internal/procedure"
	"github.com/mrtinhnguyen/govsense-tthc/internal/searcher"
	"github.com/mrtinhnguyen/govsense-tthc/internal/storage"
)

// App holds the wired components. Close releases the store and embedder.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	Store      storage.Storage
	Embedder   embedder.Embedder
	Procedures *procedure.Service
	Searcher   *searcher.Searcher
	Importer   *importer.Reconciler

	// ImportLocks serializes imports per tenant
	ImportLocks *importer.Locks
}

// New opens the database named by cfg and builds every component
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if cfg.Storage.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	logger.Info("components initialized",
		zap.String("database", cfg.Storage.Path),
		zap.String("build_mode", storage.BuildMode),
		zap.Bool("vector_extension", storage.VectorExtensionAvailable),
		zap.String("embedder", emb.Provider()),
		zap.String("model", emb.Model()))

	return Wire(cfg, store, emb, logger), nil
}

// Wire builds the components over an open store and embedder
func Wire(cfg *config.Config, store storage.Storage, emb embedder.Embedder, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	orch := chunker.NewOrchestrator(
		chunker.NewRecursiveSplitter(cfg.SplitterConfig()),
		emb,
		chunker.Options{
			BatchSize:   cfg.Chunker.BatchSize,
			Concurrency: cfg.Chunker.Concurrency,
			Logger:      logger.Named("chunker"),
		})
	procs := procedure.NewService(store, orch, logger)
	locks := &importer.Locks{}

	return &App{
		Config:      cfg,
		Logger:      logger,
		Store:       store,
		Embedder:    emb,
		Procedures:  procs,
		Searcher:    searcher.NewSearcher(store, emb, logger),
		Importer:    importer.NewReconciler(store, procs, locks, logger),
		ImportLocks: locks,
	}
}

// SearchRequest applies the configured search defaults to a query
func (a *App) SearchRequest(tenantID int64, query string, topK int) searcher.SearchRequest {
	if topK <= 0 {
		topK = a.Config.Search.TopK
	}
	return searcher.SearchRequest{
		TenantID: tenantID,
		Query:    query,
		TopK:     topK,
		UseCache: a.Config.Search.CacheEnabled,
		CacheTTL: a.Config.Search.CacheTTL,
	}
}

// Close releases the embedder and the store
func (a *App) Close() error {
	return errors.Join(a.Embedder.Close(), a.Store.Close())
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mrtinhnguyen/govsense-tthc/internal/importer"
	"github.com/mrtinhnguyen/govsense-tthc/internal/mcp"
	"github.com/mrtinhnguyen/govsense-tthc/internal/metrics"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

func newServeCmd(opts *options) *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Long: `Run the MCP server on stdin/stdout. Logs go to stderr.

Examples:
  # Serve with the default local embedder
  govsense serve

  # Also expose Prometheus metrics
  govsense serve --metrics-addr 127.0.0.1:9464`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			if metricsAddr == "" {
				metricsAddr = a.Config.Metrics.Addr
			}

			srv, err := mcp.NewServer(a)
			if err != nil {
				return err
			}

			// Closing stdin ends the session and takes the metrics endpoint down with it
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				defer cancel()
				return srv.Serve(ctx)
			})
			if metricsAddr != "" {
				g.Go(func() error { return metrics.Serve(ctx, metricsAddr, a.Logger) })
			}
			err = g.Wait()
			a.Logger.Info("server stopped", zap.Error(err))
			return err
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	var (
		tenantID int64
		file     string
		user     string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk import procedures from a CSV file",
		Long: `Import procedures from a CSV file into a search space. Rows whose content
already exists in the search space are skipped; failing rows are reported
and do not stop the import.

Examples:
  govsense import --tenant 1 --file tthc.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var createdBy *uuid.UUID
			if user != "" {
				id, err := uuid.Parse(user)
				if err != nil {
					return fmt.Errorf("invalid --user: %w", err)
				}
				createdBy = &id
			}

			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			data, err := readLimited(file, a.Config.Import.MaxFileSize)
			if err != nil {
				return err
			}

			result, err := a.Importer.ImportFile(cmd.Context(), tenantID, filepath.Base(file), data, importer.Options{CreatedBy: createdBy})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "search space ID")
	cmd.Flags().StringVar(&file, "file", "", "CSV file to import")
	cmd.Flags().StringVar(&user, "user", "", "UUID recorded as creator of new procedures")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		tenantID int64
		topK     int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a search space and print cited documents",
		Long: `Search a search space and print the matches as cited documents, the same
text the search_procedures MCP tool returns.

Examples:
  govsense search --tenant 1 "đăng ký thường trú"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			text, err := a.Searcher.SearchText(cmd.Context(), a.SearchRequest(tenantID, strings.Join(args, " "), topK))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "search space ID")
	cmd.Flags().IntVar(&topK, "top-k", 0, "number of chunks to rank (default search.top_k)")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

func newResolveCmd(opts *options) *cobra.Command {
	var tenantID int64

	cmd := &cobra.Command{
		Use:   "resolve <citation-id>",
		Short: "Print the procedure a citation ID points to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			var p *types.Procedure
			if tenantID > 0 {
				p, err = a.Procedures.ResolveCitationInTenant(cmd.Context(), tenantID, args[0])
			} else {
				p, err = a.Procedures.ResolveCitation(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), p)
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "restrict resolution to this search space")
	return cmd
}

func newStatusCmd(opts *options) *cobra.Command {
	var tenantID int64

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print procedure and chunk counts of a search space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts)
			if err != nil {
				return err
			}
			defer closeApp(a)

			st, err := a.Procedures.Status(cmd.Context(), tenantID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "search space ID")
	_ = cmd.MarkFlagRequired("tenant")
	return cmd
}

// readLimited reads path, refusing files larger than limit bytes
func readLimited(path string, limit int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if limit > 0 && info.Size() > limit {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, info.Size(), limit)
	}
	return os.ReadFile(path)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

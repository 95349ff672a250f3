package mcp

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/app"
)

const (
	// ServerName is the MCP server name
	ServerName = "govsense-tthc"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server exposes the procedure components as MCP tools
type Server struct {
	mcp    *server.MCPServer
	app    *app.App
	logger *zap.Logger
}

// NewServer creates a new MCP server over a wired application. The caller
// keeps ownership of a and closes it after Serve returns.
func NewServer(a *app.App) (*Server, error) {
	if a == nil {
		return nil, errors.New("app is required")
	}
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		app:    a,
		logger: logger.Named("mcp"),
	}
	s.registerTools()
	return s, nil
}

// Serve speaks MCP on stdin/stdout until ctx is cancelled. Logs go to
// stderr since stdout carries the protocol.
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("MCP server listening on stdio", zap.String("version", ServerVersion))
	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.addTool(searchProceduresTool(), s.handleSearchProcedures)
	s.addTool(resolveCitationTool(), s.handleResolveCitation)
	s.addTool(getProcedureTool(), s.handleGetProcedure)
	s.addTool(listProceduresTool(), s.handleListProcedures)
	s.addTool(createProcedureTool(), s.handleCreateProcedure)
	s.addTool(updateProcedureTool(), s.handleUpdateProcedure)
	s.addTool(deleteProcedureTool(), s.handleDeleteProcedure)
	s.addTool(importProceduresTool(), s.handleImportProcedures)
	s.addTool(getStatusTool(), s.handleGetStatus)
}

// addTool registers handler with call logging
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	name := tool.Name
	s.mcp.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logCall(name, request.Params.Arguments)
		start := time.Now()

		result, err := handler(ctx, request)
		if err != nil {
			s.logger.Warn("tool failed",
				zap.String("tool", name),
				zap.Duration("took", time.Since(start)),
				zap.Error(err))
			return nil, err
		}
		s.logger.Debug("tool finished", zap.String("tool", name), zap.Duration("took", time.Since(start)))
		return result, nil
	})
}

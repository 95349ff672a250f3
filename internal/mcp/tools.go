package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/mrtinhnguyen/govsense-tthc/internal/importer"
	"github.com/mrtinhnguyen/govsense-tthc/internal/procedure"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound         = -32001 // Procedure or citation does not exist in the search space
	ErrorCodeImportInProgress = -32002 // Another import is already running for the search space
	ErrorCodeFileTooLarge     = -32003 // Import file exceeds the configured limit
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleSearchProcedures handles the search_procedures tool invocation
func (s *Server) handleSearchProcedures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	tenantID, err := requireTenant(args)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", 0)
	if topK < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be positive", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	text, err := s.app.Searcher.SearchText(ctx, s.app.SearchRequest(tenantID, query, topK))
	if err != nil {
		return nil, toolError("search", err)
	}
	return mcp.NewToolResultText(text), nil
}

// handleResolveCitation handles the resolve_citation tool invocation
func (s *Server) handleResolveCitation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	citationID := citationArg(args)
	if citationID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "citation_id parameter is required", map[string]interface{}{
			"param":  "citation_id",
			"reason": "missing or empty",
		})
	}

	var (
		p   *types.Procedure
		err error
	)
	if _, present := args["search_space_id"]; present {
		tenantID, terr := requireTenant(args)
		if terr != nil {
			return nil, terr
		}
		p, err = s.app.Procedures.ResolveCitationInTenant(ctx, tenantID, citationID)
	} else {
		p, err = s.app.Procedures.ResolveCitation(ctx, citationID)
	}
	if err != nil {
		return nil, toolError("resolve citation", err)
	}
	return mcp.NewToolResultText(formatJSON(p)), nil
}

func (s *Server) handleGetProcedure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, id, err := requireTenantAndID(args)
	if err != nil {
		return nil, err
	}

	p, err := s.app.Procedures.Get(ctx, tenantID, id)
	if err != nil {
		return nil, toolError("get procedure", err)
	}
	return mcp.NewToolResultText(formatJSON(p)), nil
}

func (s *Server) handleListProcedures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, err := requireTenant(args)
	if err != nil {
		return nil, err
	}

	page, err := s.app.Procedures.List(ctx, tenantID, types.ListFilter{
		Name:     getStringDefault(args, "name", ""),
		Code:     getStringDefault(args, "code", ""),
		Page:     getIntDefault(args, "page", 0),
		PageSize: getIntDefault(args, "page_size", 0),
	})
	if err != nil {
		return nil, toolError("list procedures", err)
	}
	return mcp.NewToolResultText(formatJSON(page)), nil
}

func (s *Server) handleCreateProcedure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, err := requireTenant(args)
	if err != nil {
		return nil, err
	}

	raw, err := fieldsArg(args)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "fields parameter is required", map[string]interface{}{
			"param":  "fields",
			"reason": "missing",
		})
	}
	attachments, err := attachmentsArg(args)
	if err != nil {
		return nil, err
	}
	createdBy, err := createdByArg(args)
	if err != nil {
		return nil, err
	}

	p, err := s.app.Procedures.Create(ctx, procedure.CreateInput{
		TenantID:        tenantID,
		Fields:          types.FieldsFromMap(raw),
		FormAttachments: attachments,
		CreatedBy:       createdBy,
	})
	if err != nil {
		return nil, toolError("create procedure", err)
	}
	s.app.Searcher.InvalidateCache(tenantID)
	return mcp.NewToolResultText(formatJSON(p)), nil
}

func (s *Server) handleUpdateProcedure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, id, err := requireTenantAndID(args)
	if err != nil {
		return nil, err
	}

	raw, err := fieldsArg(args)
	if err != nil {
		return nil, err
	}
	patch, err := types.PatchFromMap(raw)
	if err != nil {
		return nil, toolError("update procedure", err)
	}
	attachments, err := attachmentsArg(args)
	if err != nil {
		return nil, err
	}

	p, err := s.app.Procedures.Update(ctx, tenantID, id, procedure.UpdateInput{
		Patch:           patch,
		FormAttachments: attachments,
	})
	if err != nil {
		return nil, toolError("update procedure", err)
	}
	s.app.Searcher.InvalidateCache(tenantID)
	return mcp.NewToolResultText(formatJSON(p)), nil
}

func (s *Server) handleDeleteProcedure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, id, err := requireTenantAndID(args)
	if err != nil {
		return nil, err
	}

	if err := s.app.Procedures.Delete(ctx, tenantID, id); err != nil {
		return nil, toolError("delete procedure", err)
	}
	s.app.Searcher.InvalidateCache(tenantID)

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted":         true,
		"id":              id,
		"search_space_id": tenantID,
	})), nil
}

// handleImportProcedures handles the import_procedures tool invocation
func (s *Server) handleImportProcedures(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, err := requireTenant(args)
	if err != nil {
		return nil, err
	}

	path := getStringDefault(args, "file_path", "")
	if path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "file_path parameter is required", map[string]interface{}{
			"param":  "file_path",
			"reason": "missing or empty",
		})
	}
	createdBy, err := createdByArg(args)
	if err != nil {
		return nil, err
	}

	data, err := s.readImportFile(path)
	if err != nil {
		return nil, err
	}

	result, err := s.app.Importer.ImportFile(ctx, tenantID, filepath.Base(path), data, importer.Options{CreatedBy: createdBy})
	if err != nil {
		return nil, toolError("import", err)
	}
	if result.Created > 0 {
		s.app.Searcher.InvalidateCache(tenantID)
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// readImportFile loads an import file, enforcing the configured size limit
func (s *Server) readImportFile(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid file_path", map[string]interface{}{
			"param":  "file_path",
			"reason": ErrPathNotAbsolute.Error(),
		})
	}

	info, err := os.Stat(path)
	if err != nil {
		reason := ErrPathNotReadable
		if os.IsNotExist(err) {
			reason = ErrPathNotFound
		}
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid file_path", map[string]interface{}{
			"param":  "file_path",
			"reason": reason.Error(),
		})
	}
	if info.IsDir() {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid file_path", map[string]interface{}{
			"param":  "file_path",
			"reason": ErrIsDirectory.Error(),
		})
	}

	limit := s.app.Config.Import.MaxFileSize
	if limit > 0 && info.Size() > limit {
		return nil, newMCPError(ErrorCodeFileTooLarge, "import file too large", map[string]interface{}{
			"size":  info.Size(),
			"limit": limit,
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid file_path", map[string]interface{}{
			"param":  "file_path",
			"reason": ErrPathNotReadable.Error(),
		})
	}
	return data, nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	tenantID, err := requireTenant(args)
	if err != nil {
		return nil, err
	}

	status, err := s.app.Procedures.Status(ctx, tenantID)
	if err != nil {
		return nil, toolError("status", err)
	}

	response := map[string]interface{}{
		"search_space_id": status.TenantID,
		"statistics": map[string]interface{}{
			"procedures_count": status.ProceduresCount,
			"chunks_count":     status.ChunksCount,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": true,
			"build_mode":          status.BuildMode,
			"embedder":            s.app.Embedder.Provider(),
			"model":               s.app.Embedder.Model(),
			"dimension":           s.app.Embedder.Dimension(),
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolError maps a component error onto an MCP error code
func toolError(op string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, types.ErrValidation):
		code = ErrorCodeInvalidParams
	case errors.Is(err, types.ErrNotFound):
		code = ErrorCodeNotFound
	case errors.Is(err, types.ErrImportInProgress):
		code = ErrorCodeImportInProgress
	}
	return newMCPError(code, op+" failed", map[string]interface{}{
		"error": err.Error(),
	})
}

// requireTenant reads a positive search_space_id
func requireTenant(args map[string]interface{}) (int64, error) {
	id, ok := getInt64(args, "search_space_id")
	if !ok || id <= 0 {
		return 0, newMCPError(ErrorCodeInvalidParams, "search_space_id parameter is required", map[string]interface{}{
			"param":  "search_space_id",
			"reason": "missing or not a positive integer",
		})
	}
	return id, nil
}

func requireTenantAndID(args map[string]interface{}) (int64, int64, error) {
	tenantID, err := requireTenant(args)
	if err != nil {
		return 0, 0, err
	}
	id, ok := getInt64(args, "id")
	if !ok || id <= 0 {
		return 0, 0, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or not a positive integer",
		})
	}
	return tenantID, id, nil
}

// citationArg accepts the citation as a string or a bare JSON number
func citationArg(args map[string]interface{}) string {
	switch v := args["citation_id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == math.Trunc(v) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprint(v)
	}
	return ""
}

// fieldsArg reads the fields object. Nil means the argument was absent.
func fieldsArg(args map[string]interface{}) (map[string]string, error) {
	v, present := args["fields"]
	if !present || v == nil {
		return nil, nil
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "fields must be an object", map[string]interface{}{
			"param": "fields",
		})
	}
	out := make(map[string]string, len(obj))
	for k, val := range obj {
		str, ok := val.(string)
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, "field values must be strings", map[string]interface{}{
				"param": "fields." + k,
			})
		}
		out[k] = str
	}
	return out, nil
}

// attachmentsArg decodes form_attachments. Nil means the argument was absent.
func attachmentsArg(args map[string]interface{}) ([]types.FormAttachment, error) {
	v, present := args["form_attachments"]
	if !present || v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid form_attachments", map[string]interface{}{
			"param":  "form_attachments",
			"reason": err.Error(),
		})
	}
	var out []types.FormAttachment
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid form_attachments", map[string]interface{}{
			"param":  "form_attachments",
			"reason": err.Error(),
		})
	}
	if out == nil {
		out = []types.FormAttachment{}
	}
	return out, nil
}

func createdByArg(args map[string]interface{}) (*uuid.UUID, error) {
	raw := getStringDefault(args, "created_by", "")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "created_by must be a UUID", map[string]interface{}{
			"param":  "created_by",
			"reason": err.Error(),
		})
	}
	return &id, nil
}

// formatJSON formats a value as indented JSON
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getInt64 extracts an integral parameter; fractional numbers are rejected
func getInt64(args map[string]interface{}, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// logCall records a tool invocation at debug level
func (s *Server) logCall(name string, args interface{}) {
	s.logger.Debug("tool called", zap.String("tool", name), zap.Any("arguments", args))
}

// Validation helpers

var (
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrIsDirectory     = errors.New("path is a directory")
)

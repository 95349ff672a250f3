package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mrtinhnguyen/govsense-tthc/internal/searcher"
	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

func tenantProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Search space (tenant) that owns the procedures",
		"minimum":     1,
	}
}

func idProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Procedure ID",
		"minimum":     1,
	}
}

// fieldsProperty describes the closed set of procedure fields
func fieldsProperty(description string) map[string]interface{} {
	props := make(map[string]interface{}, len(types.AllFields))
	for _, f := range types.AllFields {
		props[string(f)] = map[string]interface{}{"type": "string"}
	}
	return map[string]interface{}{
		"type":                 "object",
		"description":          description,
		"properties":           props,
		"additionalProperties": false,
	}
}

func attachmentsProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"description": "Downloadable forms attached to the procedure",
		"items": map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"name": map[string]interface{}{"type": "string"},
				"url":  map[string]interface{}{"type": "string"},
			},
			"required": []string{"name"},
		},
	}
}

func createdByProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "UUID of the user recorded as creator",
		"format":      "uuid",
	}
}

// searchProceduresTool returns the tool definition for search_procedures
func searchProceduresTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_procedures",
		Description: "Semantic search over a search space's administrative procedures. Returns cited documents for grounding answers.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id": tenantProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query, usually Vietnamese",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of chunks to rank",
					"default":     searcher.DefaultTopK,
					"minimum":     1,
					"maximum":     searcher.MaxTopK,
				},
			},
			Required: []string{"search_space_id", "query"},
		},
	}
}

// resolveCitationTool returns the tool definition for resolve_citation
func resolveCitationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_citation",
		Description: "Resolve a chunk citation ID from search_procedures output to its procedure",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"citation_id": map[string]interface{}{
					"type":        "string",
					"description": "Chunk citation ID from a search result, such as tthc-42",
				},
				"search_space_id": tenantProperty(),
			},
			Required: []string{"citation_id"},
		},
	}
}

func getProcedureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_procedure",
		Description: "Fetch one procedure with its chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id": tenantProperty(),
				"id":              idProperty(),
			},
			Required: []string{"search_space_id", "id"},
		},
	}
}

func listProceduresTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_procedures",
		Description: "List a search space's procedures, optionally filtered by name or code",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id": tenantProperty(),
				"name": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the name",
				},
				"code": map[string]interface{}{
					"type":        "string",
					"description": "Case-insensitive substring of the code",
				},
				"page": map[string]interface{}{
					"type":    "integer",
					"default": 0,
					"minimum": 0,
				},
				"page_size": map[string]interface{}{
					"type":    "integer",
					"default": types.DefaultPageSize,
					"minimum": 1,
					"maximum": types.MaxPageSize,
				},
			},
			Required: []string{"search_space_id"},
		},
	}
}

func createProcedureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "create_procedure",
		Description: "Create a procedure and index it for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id":  tenantProperty(),
				"fields":           fieldsProperty("Procedure fields; name is required"),
				"form_attachments": attachmentsProperty(),
				"created_by":       createdByProperty(),
			},
			Required: []string{"search_space_id", "fields"},
		},
	}
}

func updateProcedureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "update_procedure",
		Description: "Change some fields of a procedure and rebuild its search index",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id":  tenantProperty(),
				"id":               idProperty(),
				"fields":           fieldsProperty("Fields to change; omitted fields keep their value"),
				"form_attachments": attachmentsProperty(),
			},
			Required: []string{"search_space_id", "id"},
		},
	}
}

func deleteProcedureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_procedure",
		Description: "Delete a procedure and its chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id": tenantProperty(),
				"id":              idProperty(),
			},
			Required: []string{"search_space_id", "id"},
		},
	}
}

func importProceduresTool() mcp.Tool {
	return mcp.Tool{
		Name:        "import_procedures",
		Description: "Bulk import procedures from a CSV file. Rows whose content already exists are skipped.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id": tenantProperty(),
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a .csv file",
				},
				"created_by": createdByProperty(),
			},
			Required: []string{"search_space_id", "file_path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report procedure and chunk counts for a search space",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"search_space_id": tenantProperty(),
			},
			Required: []string{"search_space_id"},
		},
	}
}

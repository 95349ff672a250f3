// Package mcp implements the Model Context Protocol (MCP) server for govsense.
//
// The server exposes the procedure store of every search space (tenant) to
// MCP clients:
//   - search_procedures: Semantic search returning cited documents
//   - resolve_citation: Map a citation ID back to its procedure
//   - get_procedure, list_procedures: Read procedures
//   - create_procedure, update_procedure, delete_procedure: Write procedures
//   - import_procedures: Bulk import a CSV file
//   - get_status: Counts and health for a search space
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs are written to stderr; stdout carries only protocol messages.
//
// # Tool: search_procedures
//
//	Request:
//	{
//	  "name": "search_procedures",
//	  "arguments": {
//	    "search_space_id": 1,
//	    "query": "đăng ký thường trú",
//	    "top_k": 10
//	  }
//	}
//
// The result is text. Each distinct procedure becomes one <document> element
// listing its matched chunks in rank order; the id attribute of a chunk is
// its citation ID. When nothing matches the text is a fixed "no results" line.
//
// # Tool: resolve_citation
//
//	Request:
//	{
//	  "name": "resolve_citation",
//	  "arguments": {"citation_id": "tthc-42", "search_space_id": 1}
//	}
//
// search_space_id is optional. Without it the owning search space is
// reported in the response and the client decides whether the caller may
// see it; with it, chunks of other search spaces are reported as not found.
//
// # Tool: import_procedures
//
//	Request:
//	{
//	  "name": "import_procedures",
//	  "arguments": {"search_space_id": 1, "file_path": "/data/tthc.csv"}
//	}
//
//	Response:
//	{
//	  "created": 12,
//	  "updated": 0,
//	  "skipped": 3,
//	  "errors": ["row 7: validation failed: name is required"]
//	}
//
// Headers may be English keys or the Vietnamese column names used by public
// procedure exports. Rows whose content already exists in the search space
// are skipped.
//
// # Error Handling
//
// Tool errors carry a JSON-RPC code:
//   - -32602: Invalid params (missing arguments, validation failures)
//   - -32603: Internal error (database, embedding provider)
//   - -32001: Procedure or citation not found in the search space
//   - -32002: Import already running for the search space
//   - -32003: Import file larger than import.max_file_size
//   - -32004: Empty search query
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "govsense": {
//	      "command": "/usr/local/bin/govsense",
//	      "args": ["serve"],
//	      "env": {
//	        "GOVSENSE_EMBEDDER_PROVIDER": "jina",
//	        "JINA_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp

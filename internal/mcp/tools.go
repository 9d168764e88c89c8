package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/search"
)

// Tool names.
const (
	ToolSymbol = "apigraph_symbol"
	ToolCursor = "apigraph_cursor"
	ToolSearch = "apigraph_search"
	ToolStatus = "apigraph_status"
)

const defaultSearchLimit = 15

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// SymbolRequest is the argument schema of apigraph_symbol.
type SymbolRequest struct {
	USR string `json:"usr"`
}

// CursorRequest is the argument schema of apigraph_cursor.
type CursorRequest struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// SearchRequest is the argument schema of apigraph_search.
type SearchRequest struct {
	Query string `json:"query"`
	Kind  string `json:"kind,omitempty"`
	Path  string `json:"path,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// SearchResponse is returned by apigraph_search.
type SearchResponse struct {
	Query   string           `json:"query"`
	Results []*search.Result `json:"results"`
	Total   int              `json:"total"`
	TookMs  int64            `json:"took_ms"`
}

// StatusResponse is returned by apigraph_status.
type StatusResponse struct {
	Language string          `json:"language"`
	Target   string          `json:"target,omitempty"`
	MainFile string          `json:"main_file"`
	Reloads  MetricsSnapshot `json:"reloads"`
}

// AddSymbolTool registers apigraph_symbol.
func AddSymbolTool(ms *server.MCPServer, s *Server) {
	tool := mcp.NewTool(
		ToolSymbol,
		mcp.WithDescription(`Return the symbol graph for one symbol by USR.

The document holds the symbol, the containers it is nested in and the
types its declaration refers to, plus the relationships between them.
Find USRs with apigraph_search.`),
		mcp.WithString("usr",
			mcp.Required(),
			mcp.Description("Unified symbol resolution identifier, e.g. c:objc(cs)Foo")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	ms.AddTool(tool, createSymbolHandler(s))
}

func createSymbolHandler(s *Server) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args SymbolRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.USR == "" {
			return mcp.NewToolResultError("usr parameter is required"), nil
		}

		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.index == nil {
			return mcp.NewToolResultError("server is closed"), nil
		}
		doc, ok := s.lib.SymbolGraphForUSR(args.USR, s.handle)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("no symbol with USR %q", args.USR)), nil
		}
		return mcp.NewToolResultText(doc), nil
	}
}

// AddCursorTool registers apigraph_cursor.
func AddCursorTool(ms *server.MCPServer, s *Server) {
	tool := mcp.NewTool(
		ToolCursor,
		mcp.WithDescription(`Return the symbol graph for the declaration at a source location.

The location may name a declaration or a use of one (a type in a
signature); uses resolve to the declaration they refer to. Lines and
columns are 1-based.`),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Source file, absolute or relative to the project root")),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("1-based line")),
		mcp.WithNumber("column",
			mcp.Required(),
			mcp.Description("1-based column")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	ms.AddTool(tool, createCursorHandler(s))
}

func createCursorHandler(s *Server) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args CursorRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.File == "" {
			return mcp.NewToolResultError("file parameter is required"), nil
		}
		if args.Line < 1 || args.Column < 1 {
			return mcp.NewToolResultError("line and column must be positive"), nil
		}

		file := args.File
		if !filepath.IsAbs(file) && s.config.Root != "" {
			file = filepath.Join(s.config.Root, file)
		}

		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.unit == nil {
			return mcp.NewToolResultError("server is closed"), nil
		}
		c := s.unit.CursorAt(file, args.Line, args.Column)
		if c.Kind == decl.CursorInvalid || c.Kind == decl.CursorNoDeclFound {
			return mcp.NewToolResultError(fmt.Sprintf("no declaration at %s:%d:%d", args.File, args.Line, args.Column)), nil
		}
		doc, ok := s.lib.SymbolGraphForCursor(c)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("declaration at %s:%d:%d is not part of the API", args.File, args.Line, args.Column)), nil
		}
		return mcp.NewToolResultText(doc), nil
	}
}

// AddSearchTool registers apigraph_search.
func AddSearchTool(ms *server.MCPServer, s *Server) {
	tool := mcp.NewTool(
		ToolSearch,
		mcp.WithDescription(`Find symbols by name or documentation.

A bare word matches symbol names exactly or by prefix, and doc comments.
Anything else is a bleve query string over the fields name, kind, path,
declaration, doc and parent:
- name:paint AND kind:method
- doc:"thread safe"
- +parent:Canvas -kind:init

Results carry the USR to pass to apigraph_symbol.`),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Name, prefix or bleve query string")),
		mcp.WithString("kind",
			mcp.Description("Only return records of this kind, e.g. func, objc.class, method")),
		mcp.WithString("path",
			mcp.Description("Only return records declared in files matching this wildcard")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results to return (1-100, default: 15)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	ms.AddTool(tool, createSearchHandler(s))
}

func createSearchHandler(s *Server) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		startTime := time.Now()

		var args SearchRequest
		if err := bindArguments(request, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.Query == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}
		if args.Limit == 0 {
			args.Limit = defaultSearchLimit
		}

		s.mu.RLock()
		defer s.mu.RUnlock()
		if s.index == nil {
			return mcp.NewToolResultError("server is closed"), nil
		}
		results, err := s.index.Search(ctx, args.Query, &search.Options{
			Limit: args.Limit,
			Kind:  args.Kind,
			Path:  args.Path,
		})
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}

		response := &SearchResponse{
			Query:   args.Query,
			Results: results,
			Total:   len(results),
			TookMs:  time.Since(startTime).Milliseconds(),
		}
		return jsonResult(response)
	}
}

// AddStatusTool registers apigraph_status.
func AddStatusTool(ms *server.MCPServer, s *Server) {
	tool := mcp.NewTool(
		ToolStatus,
		mcp.WithDescription("Describe the served API set and its reload history."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)
	ms.AddTool(tool, createStatusHandler(s))
}

func createStatusHandler(s *Server) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.mu.RLock()
		unit := s.unit
		s.mu.RUnlock()
		if unit == nil {
			return mcp.NewToolResultError("server is closed"), nil
		}
		return jsonResult(&StatusResponse{
			Language: string(unit.Language),
			Target:   unit.Target,
			MainFile: unit.MainFile,
			Reloads:  s.metrics.Snapshot(),
		})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

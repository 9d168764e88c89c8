package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/frontend/dump"
	"github.com/mvp-joe/apigraph/internal/serializer"
	"github.com/mvp-joe/apigraph/internal/session"
)

// Test Plan for the MCP server:
// - NewServer requires a library and rejects unusable units
// - apigraph_symbol renders known USRs and reports unknown ones as tool errors
// - apigraph_cursor resolves references to their declaration and validates arguments
// - apigraph_search finds records by name, honours kind filters and string-typed limits
// - apigraph_status reports the unit and reload history
// - Reload swaps the served API set and keeps the old one on failure
// - Close makes tools report a closed server

func loadFoo(t *testing.T) *decl.Unit {
	t.Helper()
	u, err := dump.New().ParseFile(context.Background(), filepath.Join("..", "..", "testdata", "code", "dump", "Foo.yaml"))
	require.NoError(t, err)
	return u
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	lib, err := session.NewLibrary()
	require.NoError(t, err)
	t.Cleanup(func() { lib.Close() })

	s, err := NewServer(context.Background(), lib, loadFoo(t), Config{Version: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func call(t *testing.T, handler toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok, "should be text content")
	return tc.Text
}

func TestNewServer_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewServer(context.Background(), nil, loadFoo(t), Config{})
	assert.Error(t, err)

	lib, err := session.NewLibrary()
	require.NoError(t, err)
	defer lib.Close()

	_, err = NewServer(context.Background(), lib, nil, Config{})
	assert.ErrorContains(t, err, "invalid arguments")
}

func TestSymbolTool(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	handler := createSymbolHandler(s)

	tests := []struct {
		name  string
		args  map[string]any
		check func(t *testing.T, result *mcp.CallToolResult)
	}{
		{
			name: "known usr",
			args: map[string]any{"usr": "c:objc(cs)Foo"},
			check: func(t *testing.T, result *mcp.CallToolResult) {
				assert.False(t, result.IsError)
				var doc serializer.SingleSymbol
				require.NoError(t, json.Unmarshal([]byte(text(t, result)), &doc))
				require.Len(t, doc.Symbols, 1)
				assert.Equal(t, "c:objc(cs)Foo", doc.Symbols[0].Identifier.Precise)
			},
		},
		{
			name: "unknown usr",
			args: map[string]any{"usr": "c:@F@nope"},
			check: func(t *testing.T, result *mcp.CallToolResult) {
				assert.True(t, result.IsError)
				assert.Contains(t, text(t, result), "c:@F@nope")
			},
		},
		{
			name: "missing usr",
			args: map[string]any{},
			check: func(t *testing.T, result *mcp.CallToolResult) {
				assert.True(t, result.IsError)
				assert.Contains(t, text(t, result), "usr parameter is required")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, call(t, handler, tt.args))
		})
	}
}

func TestCursorTool(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	handler := createCursorHandler(s)

	tests := []struct {
		name    string
		args    map[string]any
		wantErr string
		wantUSR string
	}{
		{name: "reference resolves to declaration", args: map[string]any{"file": "Foo.h", "line": 13, "column": 2}, wantUSR: "c:objc(cs)Foo"},
		{name: "string typed numbers", args: map[string]any{"file": "Foo.h", "line": "13", "column": "6"}, wantUSR: "c:@F@MakeFoo"},
		{name: "nothing there", args: map[string]any{"file": "Foo.h", "line": 99, "column": 1}, wantErr: "no declaration at Foo.h:99:1"},
		{name: "missing file", args: map[string]any{"line": 1, "column": 1}, wantErr: "file parameter is required"},
		{name: "non-positive line", args: map[string]any{"file": "Foo.h", "line": 0, "column": 1}, wantErr: "must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			result := call(t, handler, tt.args)
			if tt.wantErr != "" {
				assert.True(t, result.IsError)
				assert.Contains(t, text(t, result), tt.wantErr)
				return
			}
			require.False(t, result.IsError, text(t, result))
			var doc serializer.SingleSymbol
			require.NoError(t, json.Unmarshal([]byte(text(t, result)), &doc))
			require.NotEmpty(t, doc.Symbols)
			assert.Equal(t, tt.wantUSR, doc.Symbols[0].Identifier.Precise)
		})
	}
}

func TestSearchTool(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	handler := createSearchHandler(s)

	search := func(t *testing.T, args map[string]any) *SearchResponse {
		t.Helper()
		result := call(t, handler, args)
		require.False(t, result.IsError, text(t, result))
		var resp SearchResponse
		require.NoError(t, json.Unmarshal([]byte(text(t, result)), &resp))
		return &resp
	}

	t.Run("by name", func(t *testing.T) {
		t.Parallel()
		resp := search(t, map[string]any{"query": "MakeFoo"})
		require.NotEmpty(t, resp.Results)
		assert.Equal(t, "c:@F@MakeFoo", resp.Results[0].USR)
		assert.Equal(t, resp.Total, len(resp.Results))
	})

	t.Run("kind filter", func(t *testing.T) {
		t.Parallel()
		resp := search(t, map[string]any{"query": "Foo", "kind": "objc.class"})
		require.NotEmpty(t, resp.Results)
		for _, r := range resp.Results {
			assert.Equal(t, "objc.class", r.Kind)
		}
	})

	t.Run("string limit", func(t *testing.T) {
		t.Parallel()
		resp := search(t, map[string]any{"query": "kind:objc.method", "limit": "1"})
		assert.Len(t, resp.Results, 1)
	})

	t.Run("missing query", func(t *testing.T) {
		t.Parallel()
		result := call(t, handler, map[string]any{})
		assert.True(t, result.IsError)
	})
}

func TestStatusTool(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	result := call(t, createStatusHandler(s), nil)
	require.False(t, result.IsError)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &resp))
	assert.Equal(t, "objective-c", resp.Language)
	assert.Equal(t, int64(1), resp.Reloads.TotalReloads)
	assert.Positive(t, resp.Reloads.RecordCount)
}

func TestReload(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	before := s.Metrics().RecordCount

	u := decl.NewUnit("", decl.LangC, "only.h")
	u.Add(&decl.Decl{Kind: decl.KindFunction, Name: "only", Linkage: decl.LinkageExternal, Loc: decl.Location{File: "only.h", Line: 1, Column: 6}})
	require.NoError(t, s.Reload(context.Background(), u))

	m := s.Metrics()
	assert.Equal(t, int64(2), m.TotalReloads)
	assert.Equal(t, 1, m.RecordCount)

	result := call(t, createSymbolHandler(s), map[string]any{"usr": "c:@F@only"})
	assert.False(t, result.IsError)
	result = call(t, createSymbolHandler(s), map[string]any{"usr": "c:objc(cs)Foo"})
	assert.True(t, result.IsError)

	// A failed reload keeps serving the previous set
	assert.Error(t, s.Reload(context.Background(), nil))
	m = s.Metrics()
	assert.Equal(t, int64(1), m.FailedReloads)
	assert.Equal(t, 1, m.RecordCount)
	assert.NotEqual(t, before, m.RecordCount)
	result = call(t, createSymbolHandler(s), map[string]any{"usr": "c:@F@only"})
	assert.False(t, result.IsError)
}

func TestClose(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	result := call(t, createSymbolHandler(s), map[string]any{"usr": "c:objc(cs)Foo"})
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "closed")
}

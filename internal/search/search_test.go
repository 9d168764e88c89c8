package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/comment"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/fragments"
)

// Test Plan for search:
// - New indexes top-level records and members
// - Bare words match names exactly, by prefix and in documentation
// - Query string syntax targets fields
// - Kind and path filters narrow results
// - Limits are clamped to the default
// - Rebuild swaps the indexed records
// - Cancelled contexts are rejected

func sampleAPI() *apiset.APISet {
	api := apiset.New("x86_64-unknown-linux-gnu", decl.LangC, "widget.h")

	widget := api.Upsert(&apiset.Record{
		USR:         "c:@S@Widget",
		Name:        "Widget",
		Kind:        apiset.KindStruct,
		Location:    decl.Location{File: "include/widget.h", Line: 4, Column: 8},
		Comment:     comment.Format("/// A drawable widget."),
		Declaration: fragments.New().Append("struct", fragments.KindKeyword).AppendSpace().Append("Widget", fragments.KindIdentifier),
	})
	api.AddMember(widget, &apiset.Record{
		USR:      "c:@S@Widget@FI@width",
		Name:     "width",
		Kind:     apiset.KindStructField,
		Location: decl.Location{File: "include/widget.h", Line: 5, Column: 9},
	})
	api.Upsert(&apiset.Record{
		USR:      "c:@F@make_widget",
		Name:     "make_widget",
		Kind:     apiset.KindGlobalFunction,
		Location: decl.Location{File: "include/widget.h", Line: 10, Column: 16},
		Comment:  comment.Format("/// Builds a widget.\n/// Deprecated: use widget_new."),
	})
	api.Upsert(&apiset.Record{
		USR:      "c:@F@render",
		Name:     "render",
		Kind:     apiset.KindGlobalFunction,
		Location: decl.Location{File: "src/render.h", Line: 2, Column: 6},
	})
	return api
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(context.Background(), sampleAPI())
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func usrs(results []*Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.USR)
	}
	return out
}

func TestNew_IndexesMembers(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)
	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(4), count)
}

func TestSearch(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)

	tests := []struct {
		name  string
		query string
		opts  *Options
		check func(t *testing.T, results []*Result)
	}{
		{
			name:  "exact name ranks first",
			query: "Widget",
			check: func(t *testing.T, results []*Result) {
				require.NotEmpty(t, results)
				assert.Equal(t, "c:@S@Widget", results[0].USR)
				assert.Equal(t, "Widget", results[0].Name)
				assert.Equal(t, "struct", results[0].Kind)
				assert.Equal(t, "include/widget.h", results[0].Path)
				assert.Equal(t, "struct Widget", results[0].Declaration)
			},
		},
		{
			name:  "name prefix",
			query: "rend",
			check: func(t *testing.T, results []*Result) {
				assert.Equal(t, []string{"c:@F@render"}, usrs(results))
			},
		},
		{
			name:  "documentation with highlights",
			query: "drawable",
			check: func(t *testing.T, results []*Result) {
				require.Len(t, results, 1)
				assert.Equal(t, "c:@S@Widget", results[0].USR)
				require.NotEmpty(t, results[0].Highlights)
				assert.Contains(t, results[0].Highlights[0], "drawable")
			},
		},
		{
			name:  "members are searchable",
			query: "width",
			check: func(t *testing.T, results []*Result) {
				assert.Contains(t, usrs(results), "c:@S@Widget@FI@width")
			},
		},
		{
			name:  "query string syntax",
			query: "doc:deprecated",
			check: func(t *testing.T, results []*Result) {
				assert.Equal(t, []string{"c:@F@make_widget"}, usrs(results))
			},
		},
		{
			name:  "kind filter",
			query: "",
			opts:  &Options{Kind: "func"},
			check: func(t *testing.T, results []*Result) {
				assert.ElementsMatch(t, []string{"c:@F@make_widget", "c:@F@render"}, usrs(results))
			},
		},
		{
			name:  "path filter",
			query: "",
			opts:  &Options{Path: "src/*"},
			check: func(t *testing.T, results []*Result) {
				assert.Equal(t, []string{"c:@F@render"}, usrs(results))
			},
		},
		{
			name:  "limit",
			query: "",
			opts:  &Options{Limit: 2},
			check: func(t *testing.T, results []*Result) {
				assert.Len(t, results, 2)
			},
		},
		{
			name:  "out of range limit uses default",
			query: "",
			opts:  &Options{Limit: 1000},
			check: func(t *testing.T, results []*Result) {
				assert.Len(t, results, 4)
			},
		},
		{
			name:  "no match",
			query: "nonexistent",
			check: func(t *testing.T, results []*Result) {
				assert.Empty(t, results)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			results, err := idx.Search(context.Background(), tt.query, tt.opts)
			require.NoError(t, err)
			tt.check(t, results)
		})
	}
}

func TestRebuild(t *testing.T) {
	t.Parallel()

	idx := newIndex(t)

	api := apiset.New("", decl.LangGo, "shapes.go")
	api.Upsert(&apiset.Record{USR: "go:shapes.Rect", Name: "Rect", Kind: apiset.KindStruct})
	require.NoError(t, idx.Rebuild(context.Background(), api))

	count, err := idx.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	results, err := idx.Search(context.Background(), "Rect", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"go:shapes.Rect"}, usrs(results))

	results, err = idx.Search(context.Background(), "Widget", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, sampleAPI())
	assert.ErrorIs(t, err, context.Canceled)

	idx := newIndex(t)
	_, err = idx.Search(ctx, "Widget", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

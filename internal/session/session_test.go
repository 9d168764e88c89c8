package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/serializer"
)

// Test Plan for Library:
// - CreateAPISet rejects a nil handle pointer and unusable units
// - Handles are unique and resolve to their registry until disposed
// - SymbolGraphForUSR renders known USRs, memoizes them, and forgets them on dispose
// - Double dispose and unknown handles are tolerated
// - SymbolGraphForCursor follows reference cursors to the referenced declaration
// - Close releases every registry and rejects new ones

type canvasUnit struct {
	unit  *decl.Unit
	brush *decl.Decl
	paint *decl.Decl
}

// newCanvasUnit models:
//
//	package art;
//	public class Brush { public void stroke() {} }
//	public class Canvas { public void paint(Brush b) {} }
func newCanvasUnit() *canvasUnit {
	loc := func(line, col int) decl.Location {
		return decl.Location{File: "Canvas.java", Line: line, Column: col}
	}
	c := &canvasUnit{unit: decl.NewUnit("jvm", decl.LangJava, "Canvas.java")}
	b := decl.NewBuilder(c.unit)

	b.Push(&decl.Decl{Kind: decl.KindNamespace, Name: "art", Language: decl.LangJava, Loc: loc(1, 9)})
	c.brush = b.Push(&decl.Decl{
		Kind:       decl.KindCXXRecord,
		Name:       "Brush",
		Tag:        decl.TagClass,
		Linkage:    decl.LinkageExternal,
		Attributes: []string{"public"},
		Loc:        loc(3, 14),
		RawComment: "/** Applies paint. */",
	})
	b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "stroke", Linkage: decl.LinkageExternal, Loc: loc(4, 17)})
	b.Pop()

	b.Push(&decl.Decl{Kind: decl.KindCXXRecord, Name: "Canvas", Tag: decl.TagClass, Linkage: decl.LinkageExternal, Loc: loc(8, 14)})
	c.paint = b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "paint", Linkage: decl.LinkageExternal, Loc: loc(9, 17)})
	c.paint.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "b", Type: decl.Ref(c.brush), Loc: loc(9, 29)})
	b.Pop()
	b.Pop()

	c.unit.AddReference(loc(9, 23), len("Brush"), c.brush)
	return c
}

func newTestLibrary(t *testing.T, opts ...Option) *Library {
	t.Helper()
	l, err := NewLibrary(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func decodeSingle(t *testing.T, doc string) serializer.SingleSymbol {
	t.Helper()
	var out serializer.SingleSymbol
	require.NoError(t, json.Unmarshal([]byte(doc), &out))
	return out
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "invalid arguments", InvalidArguments.String())
	assert.Equal(t, "failure", Failure.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestCreateAPISet(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		unit  func() *decl.Unit
		nilOK bool
		want  Status
	}{
		{
			name: "usable unit",
			unit: func() *decl.Unit { return newCanvasUnit().unit },
			want: Success,
		},
		{
			name:  "nil handle pointer",
			unit:  func() *decl.Unit { return newCanvasUnit().unit },
			nilOK: true,
			want:  InvalidArguments,
		},
		{
			name: "nil unit",
			unit: func() *decl.Unit { return nil },
			want: InvalidArguments,
		},
		{
			name: "unit with parse failures",
			unit: func() *decl.Unit {
				u := newCanvasUnit().unit
				u.Fail(assert.AnError)
				return u
			},
			want: InvalidArguments,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := newTestLibrary(t)

			var h Handle
			out := &h
			if tt.nilOK {
				out = nil
			}
			assert.Equal(t, tt.want, l.CreateAPISet(tt.unit(), out))
			if tt.want != Success {
				assert.Empty(t, h)
				assert.Empty(t, l.Handles())
				return
			}
			assert.NotEmpty(t, h)
			api, ok := l.APISet(h)
			require.True(t, ok)
			assert.Equal(t, 2, api.Len())
		})
	}
}

func TestCreateAPISet_UniqueHandles(t *testing.T) {
	t.Parallel()

	l := newTestLibrary(t)
	var a, b Handle
	require.Equal(t, Success, l.CreateAPISet(newCanvasUnit().unit, &a))
	require.Equal(t, Success, l.CreateAPISet(newCanvasUnit().unit, &b))
	assert.NotEqual(t, a, b)
	assert.Len(t, l.Handles(), 2)

	apiA, _ := l.APISet(a)
	apiB, _ := l.APISet(b)
	assert.NotSame(t, apiA, apiB)
}

func TestSymbolGraphForUSR(t *testing.T) {
	t.Parallel()

	l := newTestLibrary(t)
	var h Handle
	require.Equal(t, Success, l.CreateAPISet(newCanvasUnit().unit, &h))

	doc, ok := l.SymbolGraphForUSR("c:@N@art@S@Brush", h)
	require.True(t, ok)
	single := decodeSingle(t, doc)
	require.Len(t, single.Symbols, 1)
	assert.Equal(t, "c:@N@art@S@Brush", single.Symbols[0].Identifier.Precise)
	assert.Equal(t, []string{"Brush"}, single.Symbols[0].PathComponents)

	member, ok := l.SymbolGraphForUSR("c:@N@art@S@Canvas@F@paint#$@N@art@S@Brush#", h)
	require.True(t, ok)
	single = decodeSingle(t, member)
	assert.Equal(t, []string{"Canvas", "paint"}, single.Symbols[0].PathComponents)
	var related []string
	for _, r := range single.RelatedSymbols {
		related = append(related, r.USR)
	}
	assert.Contains(t, related, "c:@N@art@S@Canvas")

	_, ok = l.SymbolGraphForUSR("c:@N@art@S@Missing", h)
	assert.False(t, ok)
	_, ok = l.SymbolGraphForUSR("c:@N@art@S@Brush", Handle("not-a-handle"))
	assert.False(t, ok)
}

func TestSymbolGraphForUSR_Memoized(t *testing.T) {
	t.Parallel()

	l := newTestLibrary(t)
	var h Handle
	require.Equal(t, Success, l.CreateAPISet(newCanvasUnit().unit, &h))

	first, ok := l.SymbolGraphForUSR("c:@N@art@S@Brush", h)
	require.True(t, ok)
	cached, ok := l.memo.Get(memoKey(h, "c:@N@art@S@Brush"))
	require.True(t, ok)
	assert.Equal(t, first, cached)

	second, ok := l.SymbolGraphForUSR("c:@N@art@S@Brush", h)
	require.True(t, ok)
	assert.Equal(t, first, second)

	l.DisposeAPISet(h)
	_, ok = l.memo.Get(memoKey(h, "c:@N@art@S@Brush"))
	assert.False(t, ok, "dispose drops memoized documents")
	_, ok = l.SymbolGraphForUSR("c:@N@art@S@Brush", h)
	assert.False(t, ok)
}

func TestDisposeAPISet(t *testing.T) {
	t.Parallel()

	l := newTestLibrary(t)
	var h Handle
	require.Equal(t, Success, l.CreateAPISet(newCanvasUnit().unit, &h))
	api, ok := l.APISet(h)
	require.True(t, ok)

	l.DisposeAPISet(h)
	assert.True(t, api.Released())
	_, ok = l.APISet(h)
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		l.DisposeAPISet(h)
		l.DisposeAPISet(Handle("never-created"))
	})
}

func TestSymbolGraphForCursor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		cursor func(c *canvasUnit) decl.Cursor
		check  func(t *testing.T, doc serializer.SingleSymbol)
	}{
		{
			name: "reference to a class",
			cursor: func(c *canvasUnit) decl.Cursor {
				return c.unit.CursorAt("Canvas.java", 9, 25)
			},
			check: func(t *testing.T, doc serializer.SingleSymbol) {
				require.Len(t, doc.Symbols, 1)
				sym := doc.Symbols[0]
				assert.Equal(t, "c:@N@art@S@Brush", sym.Identifier.Precise)
				assert.Equal(t, "Brush", sym.Names.Title)
				require.NotNil(t, sym.DocComment)
				require.Len(t, sym.DocComment.Lines, 1)
				assert.Equal(t, "Applies paint.", sym.DocComment.Lines[0].Text)
			},
		},
		{
			name: "method declaration",
			cursor: func(c *canvasUnit) decl.Cursor {
				return decl.DeclCursor(c.unit, c.paint)
			},
			check: func(t *testing.T, doc serializer.SingleSymbol) {
				require.Len(t, doc.Symbols, 1)
				assert.Equal(t, "c:@N@art@S@Canvas@F@paint#$@N@art@S@Brush#", doc.Symbols[0].Identifier.Precise)
				var related []string
				for _, r := range doc.RelatedSymbols {
					related = append(related, r.USR)
				}
				assert.Contains(t, related, "c:@N@art@S@Canvas")
				assert.Contains(t, related, "c:@N@art@S@Brush")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			l := newTestLibrary(t)
			doc, ok := l.SymbolGraphForCursor(tt.cursor(newCanvasUnit()))
			require.True(t, ok)
			tt.check(t, decodeSingle(t, doc))
		})
	}

	t.Run("no declaration under cursor", func(t *testing.T) {
		t.Parallel()
		l := newTestLibrary(t)
		doc, ok := l.SymbolGraphForCursor(newCanvasUnit().unit.CursorAt("Canvas.java", 2, 1))
		assert.False(t, ok)
		assert.Empty(t, doc)
	})
}

func TestLibrary_Close(t *testing.T) {
	t.Parallel()

	l, err := NewLibrary(WithMemoCapacity(0))
	require.NoError(t, err)

	var h Handle
	require.Equal(t, Success, l.CreateAPISet(newCanvasUnit().unit, &h))
	api, _ := l.APISet(h)

	require.NoError(t, l.Close())
	assert.True(t, api.Released())
	assert.Empty(t, l.Handles())

	var other Handle
	assert.Equal(t, Failure, l.CreateAPISet(newCanvasUnit().unit, &other))
	assert.Empty(t, other)
	assert.ErrorIs(t, l.Close(), ErrClosed)
}

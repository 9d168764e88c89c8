package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/usr"
)

// Test Plan for the extraction engine:
// - Every concrete kind has a rule in the dispatch table
// - Dispatching the same declaration twice leaves the registry unchanged
// - The container walker records the immediate recordable container and stops there
// - Implementation/interface pairs produce one coherent record from either side
// - Category implementations merge with their category the same way
// - Excluded declarations produce no record and no members, from any entry point,
//   however deeply the declaration is nested below the excluded container
// - Whole-program extraction keeps public members and drops private ones
// - Overloaded methods and constructors are distinct members
// - System header records are flagged, not dropped
// - Skips are logged at debug level

func newVisitor(u *decl.Unit, opts ...Option) *Visitor {
	return New(apiset.New(u.Target, u.Language, u.MainFile), opts...)
}

// snapshot captures registry state as USR -> member USRs.
func snapshot(api *apiset.APISet) map[string][]string {
	out := make(map[string][]string)
	api.Walk(func(r *apiset.Record) {
		members := make([]string, 0, len(r.Members))
		for _, m := range r.Members {
			members = append(members, m.USR)
		}
		out[r.USR] = members
	})
	return out
}

func TestRules_CoverEveryKind(t *testing.T) {
	t.Parallel()

	for k := decl.Kind(0); k < decl.NumKinds; k++ {
		assert.NotNil(t, rules[k], "no rule for %s", k)
	}
}

func TestDispatch_NeverPanics(t *testing.T) {
	t.Parallel()

	unnamed := newVisitor(decl.NewUnit("", decl.LangC, "empty.c"))
	named := newVisitor(decl.NewUnit("", decl.LangC, "empty.c"))
	for k := decl.Kind(0); k < decl.NumKinds; k++ {
		assert.NotPanics(t, func() { unnamed.Dispatch(&decl.Decl{Kind: k}) }, "kind %s", k)
		assert.NotPanics(t, func() { named.WalkUp(&decl.Decl{Kind: k, Name: "x"}) }, "kind %s", k)
	}
	assert.NotPanics(t, func() { unnamed.Dispatch(nil) })
	assert.NotPanics(t, func() { unnamed.WalkUp(nil) })
	assert.NotPanics(t, func() { unnamed.Dispatch(&decl.Decl{Kind: decl.NumKinds + 3}) })
	assert.Equal(t, 0, unnamed.API().Count(), "unnamed declarations are never recorded")
}

func TestDispatch_Idempotent(t *testing.T) {
	t.Parallel()

	objc := newObjCFixture()
	c := newCFixture(3)
	java := newJavaFixture()

	tests := []struct {
		name string
		unit *decl.Unit
		d    *decl.Decl
	}{
		{name: "objc interface", unit: objc.unit, d: objc.iface},
		{name: "objc implementation", unit: objc.unit, d: objc.impl},
		{name: "objc category implementation", unit: objc.unit, d: objc.catImpl},
		{name: "objc member", unit: objc.unit, d: objc.bar},
		{name: "c struct", unit: c.unit, d: c.widget},
		{name: "c function", unit: c.unit, d: c.build},
		{name: "nested field", unit: c.unit, d: c.x},
		{name: "java class", unit: java.unit, d: java.canvas},
		{name: "java method", unit: java.unit, d: java.stroke},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v := newVisitor(tt.unit)
			v.WalkUp(tt.d)
			first := snapshot(v.API())
			firstLen := v.API().Len()

			v.WalkUp(tt.d)
			v.Dispatch(tt.d)
			assert.Equal(t, first, snapshot(v.API()))
			assert.Equal(t, firstLen, v.API().Len())
		})
	}
}

func TestWalkUp_RecordsImmediateContainer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup func() (*decl.Unit, *decl.Decl)
		check func(*testing.T, *apiset.APISet)
	}{
		{
			name: "objc method in implementation",
			setup: func() (*decl.Unit, *decl.Decl) {
				f := newObjCFixture()
				return f.unit, f.bar
			},
			check: func(t *testing.T, api *apiset.APISet) {
				r, ok := api.Find("c:objc(cs)Foo")
				require.True(t, ok)
				assert.Contains(t, r.MemberNames(), "bar")
				_, ok = api.Find("c:objc(cs)Foo(im)bar")
				assert.True(t, ok)
			},
		},
		{
			name: "java method",
			setup: func() (*decl.Unit, *decl.Decl) {
				f := newJavaFixture()
				return f.unit, f.stroke
			},
			check: func(t *testing.T, api *apiset.APISet) {
				_, ok := api.Find("c:@N@art@S@Brush")
				assert.True(t, ok)
				assert.Equal(t, 1, api.Len())
			},
		},
		{
			name: "nested field stops at first container",
			setup: func() (*decl.Unit, *decl.Decl) {
				f := newCFixture(0)
				return f.unit, f.x
			},
			check: func(t *testing.T, api *apiset.APISet) {
				inner, ok := api.Find("c:@S@Outer@S@Inner")
				require.True(t, ok)
				assert.Equal(t, []string{"x"}, inner.MemberNames())
				assert.Equal(t, "c:@S@Outer", inner.Parent.USR)

				_, ok = api.Find("c:@S@Outer")
				assert.False(t, ok, "walk must stop at the first recordable container")
			},
		},
		{
			name: "top-level function has no container",
			setup: func() (*decl.Unit, *decl.Decl) {
				f := newCFixture(0)
				return f.unit, f.build
			},
			check: func(t *testing.T, api *apiset.APISet) {
				assert.Equal(t, 1, api.Len())
				_, ok := api.Find("c:@F@make_widget")
				assert.True(t, ok)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u, d := tt.setup()
			v := newVisitor(u)
			v.WalkUp(d)
			tt.check(t, v.API())
		})
	}
}

func TestDispatch_ObjCImplementationMerge(t *testing.T) {
	t.Parallel()

	t.Run("implementation only", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		v := newVisitor(f.unit)
		v.Dispatch(f.impl)

		r, ok := v.API().Find("c:objc(cs)Foo")
		require.True(t, ok)
		assert.Equal(t, "Foo", r.Name)
		assert.Equal(t, apiset.KindObjCInterface, r.Kind)
		assert.Equal(t, "Docs", r.Comment.String())
		assert.Equal(t, "@interface Foo : NSObject", r.Declaration.String())
		assert.Equal(t, "Foo", r.SubHeading.String())
		assert.Equal(t, apiset.SymbolReference{Name: "NSObject", USR: "c:objc(cs)NSObject"}, r.SuperClass)

		assert.ElementsMatch(t, []string{"bar", "value", "_value"}, r.MemberNames())
		_, ok = r.Member("c:objc(cs)Foo(im)value")
		assert.False(t, ok, "synthesized accessors are not members")
		prop, ok := r.Member("c:objc(cs)Foo(py)value")
		require.True(t, ok)
		assert.Equal(t, apiset.KindObjCProperty, prop.Kind)
		assert.Equal(t, apiset.SymbolReference{Name: "Foo", USR: "c:objc(cs)Foo"}, prop.Parent)

		_, ok = v.API().Find("c:objc(cs)NSObject")
		assert.False(t, ok, "superclass is referenced, not recorded")
	})

	t.Run("interface after implementation", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		v := newVisitor(f.unit)
		v.Dispatch(f.impl)
		v.Dispatch(f.iface)

		assert.Equal(t, 1, v.API().Len())
		r, ok := v.API().Find("c:objc(cs)Foo")
		require.True(t, ok)
		assert.Equal(t, "Foo", r.Name)
		assert.Equal(t, "Docs", r.Comment.String())
		assert.ElementsMatch(t, []string{"bar", "value", "_value", "baz"}, r.MemberNames())
	})

	t.Run("interface before implementation", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		v := newVisitor(f.unit)
		v.Dispatch(f.iface)
		v.Dispatch(f.impl)

		r, ok := v.API().Find("c:objc(cs)Foo")
		require.True(t, ok)
		assert.Equal(t, "Docs", r.Comment.String())
		assert.ElementsMatch(t, []string{"baz", "bar", "value", "_value"}, r.MemberNames())
	})

	t.Run("implementation comment wins", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		f.impl.RawComment = "// Private notes."
		v := newVisitor(f.unit)
		v.Dispatch(f.iface)
		v.Dispatch(f.impl)

		r, ok := v.API().Find("c:objc(cs)Foo")
		require.True(t, ok)
		assert.Equal(t, "Private notes.", r.Comment.String())
	})

	t.Run("comment from interface redeclaration", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		fwd := &decl.Decl{Kind: decl.KindObjCInterface, Name: "Foo", RawComment: "/// Forward docs"}
		f.unit.Add(fwd)
		f.iface.RawComment = ""
		f.iface.Redeclare(fwd)

		v := newVisitor(f.unit)
		v.Dispatch(f.impl)
		r, ok := v.API().Find("c:objc(cs)Foo")
		require.True(t, ok)
		assert.Equal(t, "Forward docs", r.Comment.String())
	})

	t.Run("availability and linkage come from the implementation", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		f.iface.Availability = []decl.Availability{{Domain: "macos", Introduced: "10.0"}}
		f.iface.Linkage = decl.LinkageModule
		f.impl.Availability = []decl.Availability{{Domain: "macos", Introduced: "14.0"}}
		f.impl.Linkage = decl.LinkageExternal

		v := newVisitor(f.unit)
		v.Dispatch(f.impl)
		r, ok := v.API().Find("c:objc(cs)Foo")
		require.True(t, ok)
		assert.Equal(t, f.impl.Availability, r.Availability)
		assert.Equal(t, decl.LinkageExternal, r.Linkage)
	})

	t.Run("implementation without interface", func(t *testing.T) {
		t.Parallel()
		v := newVisitor(decl.NewUnit("", decl.LangObjC, "x.m"))
		v.Dispatch(&decl.Decl{Kind: decl.KindObjCImplementation, Name: "Orphan"})
		assert.Equal(t, 0, v.API().Len())
	})
}

func TestDispatch_ObjCCategoryImplementationMerge(t *testing.T) {
	t.Parallel()

	f := newObjCFixture()
	v := newVisitor(f.unit)
	v.Dispatch(f.catImpl)
	v.Dispatch(f.cat)

	r, ok := v.API().Find("c:objc(cy)Foo@Extras")
	require.True(t, ok)
	assert.Equal(t, "Extras", r.Name)
	assert.Equal(t, apiset.KindObjCCategory, r.Kind)
	assert.Equal(t, "Extra behaviour.", r.Comment.String())
	assert.Equal(t, "@interface Foo (Extras)", r.Declaration.String())
	assert.Equal(t, "c:objc(cs)Foo", r.Interface.USR)
	assert.Equal(t, []string{"extra"}, r.MemberNames())
	assert.Equal(t, 1, v.API().Len())
}

func TestExclusion_Monotonic(t *testing.T) {
	t.Parallel()

	rejectFoo := WithPredicate(func(d *decl.Decl) bool {
		return DefaultPredicate(d) && d.Name != "Foo"
	})

	check := func(t *testing.T, api *apiset.APISet) {
		t.Helper()
		if api == nil {
			return
		}
		_, ok := api.Find("c:objc(cs)Foo")
		assert.False(t, ok)
		api.Walk(func(r *apiset.Record) {
			assert.NotEqual(t, "c:objc(cs)Foo", r.Parent.USR, "member %s recorded under excluded container", r.USR)
		})
	}

	t.Run("whole program", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		api := Extract(f.unit, rejectFoo)
		require.NotNil(t, api)
		check(t, api)
		_, ok := api.Find("c:objc(cy)Foo@Extras")
		assert.True(t, ok, "unrelated containers are unaffected")
	})

	t.Run("walk from each member", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		for _, d := range []*decl.Decl{f.bar, f.baz, f.prop, f.ivar, f.impl, f.iface} {
			v := newVisitor(f.unit, rejectFoo)
			v.WalkUp(d)
			check(t, v.API())
		}
	})

	t.Run("single symbol", func(t *testing.T) {
		t.Parallel()
		f := newObjCFixture()
		for _, d := range []*decl.Decl{f.bar, f.impl, f.iface} {
			api, _, ok := Reconstruct(decl.DeclCursor(f.unit, d), rejectFoo)
			assert.False(t, ok)
			check(t, api)
		}
	})

	t.Run("nested type inside excluded container", func(t *testing.T) {
		t.Parallel()
		f := newCFixture(0)
		api := Extract(f.unit, WithPredicate(func(d *decl.Decl) bool {
			return DefaultPredicate(d) && d.Name != "Outer"
		}))
		_, ok := api.Find("c:@S@Outer@S@Inner")
		assert.False(t, ok)
	})

	t.Run("types nested below an excluded container", func(t *testing.T) {
		t.Parallel()

		// class Outer { private class Hidden { class Deep { class Deeper { void run() } } } }
		u := decl.NewUnit("jvm", decl.LangJava, "Outer.java")
		b := decl.NewBuilder(u)
		class := func(name string, vis decl.Visibility) *decl.Decl {
			return b.Push(&decl.Decl{Kind: decl.KindCXXRecord, Name: name, Tag: decl.TagClass, Linkage: decl.LinkageExternal, Visibility: vis})
		}
		class("Outer", decl.VisibilityDefault)
		class("Hidden", decl.VisibilityHidden)
		deep := class("Deep", decl.VisibilityDefault)
		deeper := class("Deeper", decl.VisibilityDefault)
		run := b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "run", Linkage: decl.LinkageExternal})
		b.Pop()
		b.Pop()
		b.Pop()
		b.Pop()

		noOrphans := func(t *testing.T, api *apiset.APISet) {
			t.Helper()
			api.Walk(func(r *apiset.Record) {
				if r.Parent.Empty() {
					return
				}
				_, ok := api.Find(r.Parent.USR)
				assert.True(t, ok, "%s points at missing parent %s", r.USR, r.Parent.USR)
			})
		}

		api := Extract(u)
		require.NotNil(t, api)
		_, ok := api.Find("c:@S@Outer")
		assert.True(t, ok)
		assert.Equal(t, 1, api.Count())
		noOrphans(t, api)

		for _, d := range []*decl.Decl{deep, deeper, run} {
			v := newVisitor(u)
			v.WalkUp(d)
			assert.Zero(t, v.API().Count(), "walk from %s", d.Name)
		}
	})
}

func TestExtract_ScenarioPublicAndPrivateMethods(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("jvm", decl.LangJava, "Widget.java")
	b := decl.NewBuilder(u)
	b.Push(&decl.Decl{Kind: decl.KindCXXRecord, Name: "Widget", Tag: decl.TagClass, Linkage: decl.LinkageExternal})
	b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "draw", Linkage: decl.LinkageExternal})
	b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "layout", Visibility: decl.VisibilityHidden})
	b.Pop()

	api := Extract(u)
	require.NotNil(t, api)
	require.Equal(t, 1, api.Len())
	assert.Equal(t, 2, api.Count())

	class := api.TopLevel()[0]
	assert.Equal(t, apiset.KindClass, class.Kind)
	assert.Equal(t, []string{"draw"}, class.MemberNames())
	assert.Equal(t, apiset.KindInstanceMethod, class.Members[0].Kind)
}

func TestExtract_Overloads(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("jvm", decl.LangJava, "Painter.java")
	b := decl.NewBuilder(u)
	b.Push(&decl.Decl{Kind: decl.KindNamespace, Name: "art"})
	b.Push(&decl.Decl{Kind: decl.KindCXXRecord, Name: "Painter", Tag: decl.TagClass, Linkage: decl.LinkageExternal})
	method := func(kind decl.Kind, name string, params ...string) *decl.Decl {
		d := b.Add(&decl.Decl{Kind: kind, Name: name, Linkage: decl.LinkageExternal})
		if kind == decl.KindCXXMethod {
			d.Type = decl.Spelled("void", nil)
		}
		for i, p := range params {
			d.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: fmt.Sprintf("a%d", i), Type: decl.Spelled(p, nil)})
		}
		return d
	}
	method(decl.KindCXXConstructor, "Painter")
	method(decl.KindCXXConstructor, "Painter", "int")
	method(decl.KindCXXMethod, "draw", "int")
	drawString := method(decl.KindCXXMethod, "draw", "String")
	b.Pop()
	b.Pop()

	api := Extract(u)
	require.NotNil(t, api)
	painter, ok := api.Find("c:@N@art@S@Painter")
	require.True(t, ok)
	require.Len(t, painter.Members, 4)
	assert.Equal(t, []string{"Painter", "Painter", "draw", "draw"}, painter.MemberNames())

	var usrs []string
	for _, m := range painter.Members {
		usrs = append(usrs, m.USR)
	}
	assert.Equal(t, []string{
		"c:@N@art@S@Painter@F@Painter#",
		"c:@N@art@S@Painter@F@Painter#I#",
		"c:@N@art@S@Painter@F@draw#I#",
		"c:@N@art@S@Painter@F@draw#$@S@String#",
	}, usrs)

	_, id, ok := Reconstruct(decl.DeclCursor(u, drawString))
	require.True(t, ok)
	assert.Equal(t, "c:@N@art@S@Painter@F@draw#$@S@String#", id)
}

func TestExtract_WholeUnit(t *testing.T) {
	t.Parallel()

	f := newCFixture(2)
	api := Extract(f.unit)
	require.NotNil(t, api)

	var names []string
	for _, r := range api.TopLevel() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"Widget", "Gadget", "make_widget", "Outer", "Inner", "unrelated_0", "unrelated_1"}, names)

	fn, ok := api.Find("c:@F@make_widget")
	require.True(t, ok)
	assert.Equal(t, apiset.KindGlobalFunction, fn.Kind)
	assert.Equal(t, "Builds a widget.", fn.Comment.String())

	_, ok = api.Find("c:widget.c@F@helper")
	assert.False(t, ok, "internal linkage is not API")

	outer, ok := api.Find("c:@S@Outer")
	require.True(t, ok)
	assert.Empty(t, outer.Members, "nested types are records of their own")

	assert.Nil(t, Extract(nil))
	broken := decl.NewUnit("", decl.LangC, "broken.c")
	broken.Fail(assert.AnError)
	assert.Nil(t, Extract(broken))
}

func TestExtract_SystemHeaders(t *testing.T) {
	t.Parallel()

	f := newObjCFixture()
	api := Extract(f.unit, WithSystemHeaders(func(path string) bool {
		return strings.HasPrefix(path, "/usr/include/")
	}))

	root, ok := api.Find("c:objc(cs)NSObject")
	require.True(t, ok)
	assert.True(t, root.IsFromSystemHeader)

	foo, ok := api.Find("c:objc(cs)Foo")
	require.True(t, ok)
	assert.False(t, foo.IsFromSystemHeader)
}

func TestExtract_LogsSkips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := newCFixture(0)
	Extract(f.unit, WithLogger(logger))

	out := buf.String()
	assert.Contains(t, out, "skipping declaration")
	assert.Contains(t, out, "name=helper")
	assert.Contains(t, out, "linkage internal")
}

func TestExtract_GeneratedUSRsResolve(t *testing.T) {
	t.Parallel()

	f := newJavaFixture()
	api := Extract(f.unit)
	require.NotNil(t, api)

	for _, d := range []*decl.Decl{f.brush, f.stroke, f.canvas, f.paint} {
		id, err := usr.Generate(d)
		require.NoError(t, err)
		_, ok := api.Find(id)
		assert.True(t, ok, "missing %s", id)
	}
	id, err := usr.Generate(f.secret)
	require.NoError(t, err)
	_, ok := api.Find(id)
	assert.False(t, ok)
}

package usr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// Test Plan for USR generation:
// - C entities are scoped by their containers (struct, union, enum, namespace)
// - Internal-linkage functions and variables are prefixed with their file name
// - Objective-C members resolve through the class, whether written in the
//   interface, the implementation or a category
// - Functions and methods that can be overloaded encode their parameter types;
//   C and extern "C" functions do not
// - Redeclarations share the canonical declaration's USR
// - Unnamed declarations and kinds without identity fail with ErrNoUSR

func TestGenerate_CFamily(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("", decl.LangCXX, "/src/widget.h")
	b := decl.NewBuilder(u)

	widget := b.Push(&decl.Decl{Kind: decl.KindRecord, Name: "Widget", Tag: decl.TagStruct})
	width := b.Add(&decl.Decl{Kind: decl.KindField, Name: "width"})
	b.Pop()
	value := b.Push(&decl.Decl{Kind: decl.KindRecord, Name: "Value", Tag: decl.TagUnion})
	b.Pop()
	color := b.Push(&decl.Decl{Kind: decl.KindEnum, Name: "Color"})
	red := b.Add(&decl.Decl{Kind: decl.KindEnumConstant, Name: "RED"})
	b.Pop()
	makeFn := b.Add(&decl.Decl{Kind: decl.KindFunction, Name: "make_widget", Linkage: decl.LinkageExternal})
	helper := b.Add(&decl.Decl{Kind: decl.KindFunction, Name: "helper", Linkage: decl.LinkageInternal,
		Loc: decl.Location{File: "/src/widget.c", Line: 3, Column: 13}})
	counter := b.Add(&decl.Decl{Kind: decl.KindVar, Name: "counter", Linkage: decl.LinkageInternal,
		Loc: decl.Location{File: "/src/widget.c", Line: 1, Column: 12}})
	global := b.Add(&decl.Decl{Kind: decl.KindVar, Name: "global", Linkage: decl.LinkageExternal})
	typedef := b.Add(&decl.Decl{Kind: decl.KindTypedef, Name: "WidgetRef"})

	ns := b.Push(&decl.Decl{Kind: decl.KindNamespace, Name: "gfx"})
	shape := b.Push(&decl.Decl{Kind: decl.KindCXXRecord, Name: "Shape", Tag: decl.TagClass})
	area := b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "area"})
	create := b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "create", ClassMember: true})
	dtor := b.Add(&decl.Decl{Kind: decl.KindCXXDestructor, Name: "~Shape"})
	scaleInt := b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "scale"})
	scaleInt.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "by", Type: decl.Spelled("int", nil)})
	scaleShape := b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "scale"})
	scaleShape.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "like", Type: decl.Spelled("const Shape &", shape)})
	ctor := b.Add(&decl.Decl{Kind: decl.KindCXXConstructor, Name: "Shape"})
	ctor.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "name", Type: decl.Spelled("const char *", nil)})
	ctor.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "sides", Type: decl.Spelled("unsigned int", nil)})
	b.Pop()
	b.Pop()

	b.Push(&decl.Decl{Kind: decl.KindLinkageSpec})
	cFn := b.Add(&decl.Decl{Kind: decl.KindFunction, Name: "c_entry", Linkage: decl.LinkageExternal})
	cFn.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "n", Type: decl.Spelled("int", nil)})
	b.Pop()
	logf := b.Add(&decl.Decl{Kind: decl.KindFunction, Name: "logf", Linkage: decl.LinkageExternal, Variadic: true})
	logf.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "fmt", Type: decl.Spelled("const char *", nil)})

	tests := []struct {
		d    *decl.Decl
		want string
	}{
		{widget, "c:@S@Widget"},
		{width, "c:@S@Widget@FI@width"},
		{value, "c:@U@Value"},
		{color, "c:@E@Color"},
		{red, "c:@E@Color@RED"},
		{makeFn, "c:@F@make_widget#"},
		{helper, "c:widget.c@F@helper#"},
		{counter, "c:widget.c@counter"},
		{global, "c:@global"},
		{typedef, "c:@T@WidgetRef"},
		{ns, "c:@N@gfx"},
		{shape, "c:@N@gfx@S@Shape"},
		{area, "c:@N@gfx@S@Shape@F@area#"},
		{create, "c:@N@gfx@S@Shape@F@create#S"},
		{dtor, "c:@N@gfx@S@Shape@F@~Shape#"},
		{scaleInt, "c:@N@gfx@S@Shape@F@scale#I#"},
		{scaleShape, "c:@N@gfx@S@Shape@F@scale#&1$@N@gfx@S@Shape#"},
		{ctor, "c:@N@gfx@S@Shape@F@Shape#*1C#i#"},
		{cFn, "c:@F@c_entry"},
		{logf, "c:@F@logf#*1C#."},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := Generate(tt.d)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_ObjC(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("", decl.LangObjC, "Foo.h")
	b := decl.NewBuilder(u)

	iface := b.Push(&decl.Decl{Kind: decl.KindObjCInterface, Name: "Foo"})
	resize := b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "resize:"})
	shared := b.Add(&decl.Decl{Kind: decl.KindObjCProperty, Name: "shared", ClassMember: true})
	count := b.Add(&decl.Decl{Kind: decl.KindObjCProperty, Name: "count"})
	ivar := b.Add(&decl.Decl{Kind: decl.KindObjCIvar, Name: "_count"})
	b.Pop()

	impl := b.Push(&decl.Decl{Kind: decl.KindObjCImplementation, Name: "Foo", Interface: iface})
	draw := b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "draw"})
	factory := b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "make", ClassMember: true})
	b.Pop()

	cat := b.Push(&decl.Decl{Kind: decl.KindObjCCategory, Name: "Extras", Interface: iface})
	extra := b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "extra"})
	b.Pop()

	proto := b.Push(&decl.Decl{Kind: decl.KindObjCProtocol, Name: "Drawable"})
	render := b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "render"})
	b.Pop()

	tests := []struct {
		d    *decl.Decl
		want string
	}{
		{iface, "c:objc(cs)Foo"},
		{resize, "c:objc(cs)Foo(im)resize:"},
		{shared, "c:objc(cs)Foo(cpy)shared"},
		{count, "c:objc(cs)Foo(py)count"},
		{ivar, "c:objc(cs)Foo@_count"},
		{impl, "c:objc(cs)Foo"},
		{draw, "c:objc(cs)Foo(im)draw"},
		{factory, "c:objc(cs)Foo(cm)make"},
		{cat, "c:objc(cy)Foo@Extras"},
		{extra, "c:objc(cs)Foo(im)extra"},
		{proto, "c:objc(pl)Drawable"},
		{render, "c:objc(pl)Drawable(im)render"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, MustGenerate(tt.d))
		})
	}
}

func TestGenerate_Overloads(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("jvm", decl.LangJava, "Painter.java")
	b := decl.NewBuilder(u)
	b.Push(&decl.Decl{Kind: decl.KindNamespace, Name: "art"})
	painter := b.Push(&decl.Decl{Kind: decl.KindCXXRecord, Name: "Painter", Tag: decl.TagClass})

	method := func(kind decl.Kind, name string, params ...*decl.TypeRef) *decl.Decl {
		d := b.Add(&decl.Decl{Kind: kind, Name: name})
		for _, p := range params {
			d.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "p", Type: p})
		}
		return d
	}
	tests := []struct {
		d    *decl.Decl
		want string
	}{
		{method(decl.KindCXXMethod, "draw"), "c:@N@art@S@Painter@F@draw#"},
		{method(decl.KindCXXMethod, "draw", decl.Spelled("int", nil)), "c:@N@art@S@Painter@F@draw#I#"},
		{method(decl.KindCXXMethod, "draw", decl.Spelled("String", nil)), "c:@N@art@S@Painter@F@draw#$@S@String#"},
		{method(decl.KindCXXMethod, "draw", decl.Spelled("char", nil)), "c:@N@art@S@Painter@F@draw#q#"},
		{method(decl.KindCXXMethod, "draw", decl.Spelled("byte", nil)), "c:@N@art@S@Painter@F@draw#C#"},
		{method(decl.KindCXXMethod, "draw", decl.Spelled("List<String>", nil)), "c:@N@art@S@Painter@F@draw#$@S@List#"},
		{method(decl.KindCXXMethod, "draw", decl.Spelled("int[]", nil), decl.Ref(painter)), "c:@N@art@S@Painter@F@draw#[I#$@N@art@S@Painter#"},
		{method(decl.KindCXXConstructor, "Painter"), "c:@N@art@S@Painter@F@Painter#"},
		{method(decl.KindCXXConstructor, "Painter", decl.Spelled("double", nil)), "c:@N@art@S@Painter@F@Painter#d#"},
	}

	seen := make(map[string]bool)
	for _, tt := range tests {
		got, err := Generate(tt.d)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.False(t, seen[got], "duplicate identity %s", got)
		seen[got] = true
	}
}

func TestGenerate_Redeclaration(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("", decl.LangC, "a.h")
	proto := u.Add(&decl.Decl{Kind: decl.KindFunction, Name: "f", Linkage: decl.LinkageExternal})
	def := u.Add(&decl.Decl{Kind: decl.KindFunction, Name: "f", Linkage: decl.LinkageExternal, IsDefinition: true})
	def.Redeclare(proto)

	assert.Equal(t, MustGenerate(proto), MustGenerate(def))
}

func TestGenerate_NoUSR(t *testing.T) {
	t.Parallel()

	u := decl.NewUnit("", decl.LangC, "a.h")
	unnamed := u.Add(&decl.Decl{Kind: decl.KindRecord, Tag: decl.TagStruct})
	fn := u.Add(&decl.Decl{Kind: decl.KindFunction, Name: "f"})
	param := fn.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "x"})
	orphanMethod := &decl.Decl{Kind: decl.KindObjCMethod, Name: "m"}
	orphanCategory := &decl.Decl{Kind: decl.KindObjCCategory, Name: "C"}

	for _, d := range []*decl.Decl{nil, unnamed, param, orphanMethod, orphanCategory} {
		_, err := Generate(d)
		assert.ErrorIs(t, err, ErrNoUSR, "%s", d)
		assert.Empty(t, MustGenerate(d))
	}
}

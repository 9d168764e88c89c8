package extract

import (
	"fmt"

	"github.com/mvp-joe/apigraph/internal/decl"
)

func at(file string, line, col int) decl.Location {
	return decl.Location{File: file, Line: line, Column: col}
}

// objcFixture is a class split into an interface and an implementation, plus
// a category and its implementation.
type objcFixture struct {
	unit    *decl.Unit
	root    *decl.Decl // NSObject
	iface   *decl.Decl // @interface Foo : NSObject
	baz     *decl.Decl // -baz, declared in the interface
	impl    *decl.Decl // @implementation Foo
	bar     *decl.Decl // -bar, declared only in the implementation
	getter  *decl.Decl // synthesized -value
	prop    *decl.Decl // @property int value
	ivar    *decl.Decl // _value
	cat     *decl.Decl // @interface Foo (Extras)
	catImpl *decl.Decl // @implementation Foo (Extras)
	extra   *decl.Decl // -extra, defined in the category implementation
}

func newObjCFixture() *objcFixture {
	f := &objcFixture{unit: decl.NewUnit("arm64-apple-macosx14.0", decl.LangObjC, "Foo.m")}
	b := decl.NewBuilder(f.unit)

	f.root = b.Add(&decl.Decl{Kind: decl.KindObjCInterface, Name: "NSObject", Loc: at("/usr/include/objc/NSObject.h", 10, 12)})

	f.iface = b.Push(&decl.Decl{
		Kind:       decl.KindObjCInterface,
		Name:       "Foo",
		Loc:        at("Foo.h", 3, 12),
		RawComment: "/// Docs",
		Bases:      []*decl.TypeRef{decl.Ref(f.root)},
	})
	f.baz = b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "baz", Loc: at("Foo.h", 4, 1)})
	b.Pop()

	f.impl = b.Push(&decl.Decl{
		Kind:      decl.KindObjCImplementation,
		Name:      "Foo",
		Loc:       at("Foo.m", 5, 17),
		Interface: f.iface,
	})
	f.bar = b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "bar", Loc: at("Foo.m", 7, 1)})
	f.getter = b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "value", Loc: at("Foo.m", 8, 1), Synthesized: true})
	f.prop = b.Add(&decl.Decl{Kind: decl.KindObjCProperty, Name: "value", Loc: at("Foo.m", 8, 1), Type: decl.Spelled("int", nil)})
	f.ivar = b.Add(&decl.Decl{Kind: decl.KindObjCIvar, Name: "_value", Loc: at("Foo.m", 6, 9), Type: decl.Spelled("int", nil)})
	b.Pop()

	f.cat = b.Push(&decl.Decl{
		Kind:       decl.KindObjCCategory,
		Name:       "Extras",
		Loc:        at("Foo+Extras.h", 2, 12),
		RawComment: "/** Extra behaviour. */",
		Interface:  f.iface,
	})
	b.Pop()
	f.catImpl = b.Push(&decl.Decl{
		Kind:     decl.KindObjCCategoryImpl,
		Name:     "Extras",
		Loc:      at("Foo+Extras.m", 2, 17),
		Category: f.cat,
	})
	f.extra = b.Add(&decl.Decl{Kind: decl.KindObjCMethod, Name: "extra", Loc: at("Foo+Extras.m", 3, 1)})
	b.Pop()
	return f
}

// cFixture is a C unit with two structs, a function referencing both, and a
// pile of unrelated declarations.
type cFixture struct {
	unit   *decl.Unit
	widget *decl.Decl
	gadget *decl.Decl
	build  *decl.Decl
	param  *decl.Decl
	outer  *decl.Decl
	inner  *decl.Decl
	x      *decl.Decl
	local  *decl.Decl
	helper *decl.Decl
}

func newCFixture(unrelated int) *cFixture {
	f := &cFixture{unit: decl.NewUnit("x86_64-unknown-linux-gnu", decl.LangC, "widget.c")}
	b := decl.NewBuilder(f.unit)

	f.widget = b.Push(&decl.Decl{Kind: decl.KindRecord, Name: "Widget", Tag: decl.TagStruct, Loc: at("widget.h", 1, 8)})
	b.Add(&decl.Decl{Kind: decl.KindField, Name: "id", Type: decl.Spelled("int", nil), Loc: at("widget.h", 2, 7)})
	b.Pop()

	f.gadget = b.Push(&decl.Decl{Kind: decl.KindRecord, Name: "Gadget", Tag: decl.TagStruct, Loc: at("widget.h", 5, 8)})
	b.Add(&decl.Decl{Kind: decl.KindField, Name: "size", Type: decl.Spelled("long", nil), Loc: at("widget.h", 6, 8)})
	b.Pop()

	f.build = b.Push(&decl.Decl{
		Kind:       decl.KindFunction,
		Name:       "make_widget",
		Linkage:    decl.LinkageExternal,
		Loc:        at("widget.h", 9, 9),
		Type:       decl.Spelled("struct Widget *", f.widget),
		RawComment: "// Builds a widget.",
	})
	b.Pop()
	f.param = f.build.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "g", Type: decl.Spelled("struct Gadget *", f.gadget)})
	f.local = f.build.AddChild(&decl.Decl{Kind: decl.KindVar, Name: "tmp", Linkage: decl.LinkageNone})

	f.outer = b.Push(&decl.Decl{Kind: decl.KindRecord, Name: "Outer", Tag: decl.TagStruct, Loc: at("widget.h", 12, 8)})
	f.inner = b.Push(&decl.Decl{Kind: decl.KindRecord, Name: "Inner", Tag: decl.TagStruct, Loc: at("widget.h", 13, 10)})
	f.x = b.Add(&decl.Decl{Kind: decl.KindField, Name: "x", Type: decl.Spelled("int", nil), Loc: at("widget.h", 14, 9)})
	b.Pop()
	b.Pop()

	f.helper = b.Add(&decl.Decl{Kind: decl.KindFunction, Name: "helper", Linkage: decl.LinkageInternal, Loc: at("widget.c", 20, 13)})

	for i := 0; i < unrelated; i++ {
		b.Add(&decl.Decl{
			Kind:    decl.KindFunction,
			Name:    fmt.Sprintf("unrelated_%d", i),
			Linkage: decl.LinkageExternal,
			Loc:     at("other.c", i+1, 6),
		})
	}
	return f
}

// javaFixture is a class with a public and a private method, and a second
// class whose method takes the first as a parameter.
type javaFixture struct {
	unit   *decl.Unit
	pkg    *decl.Decl
	brush  *decl.Decl
	stroke *decl.Decl
	secret *decl.Decl
	canvas *decl.Decl
	paint  *decl.Decl
}

func newJavaFixture() *javaFixture {
	f := &javaFixture{unit: decl.NewUnit("jvm", decl.LangJava, "Canvas.java")}
	b := decl.NewBuilder(f.unit)

	f.pkg = b.Push(&decl.Decl{Kind: decl.KindNamespace, Name: "art", Language: decl.LangJava, Loc: at("Canvas.java", 1, 9)})

	f.brush = b.Push(&decl.Decl{
		Kind:       decl.KindCXXRecord,
		Name:       "Brush",
		Tag:        decl.TagClass,
		Linkage:    decl.LinkageExternal,
		Attributes: []string{"public"},
		Loc:        at("Canvas.java", 3, 14),
	})
	f.stroke = b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "stroke", Linkage: decl.LinkageExternal, Attributes: []string{"public"}, Loc: at("Canvas.java", 4, 17)})
	f.secret = b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "mix", Visibility: decl.VisibilityHidden, Attributes: []string{"private"}, Loc: at("Canvas.java", 5, 18)})
	b.Pop()

	f.canvas = b.Push(&decl.Decl{
		Kind:       decl.KindCXXRecord,
		Name:       "Canvas",
		Tag:        decl.TagClass,
		Linkage:    decl.LinkageExternal,
		Attributes: []string{"public"},
		Loc:        at("Canvas.java", 8, 14),
	})
	f.paint = b.Add(&decl.Decl{Kind: decl.KindCXXMethod, Name: "paint", Linkage: decl.LinkageExternal, Attributes: []string{"public"}, Loc: at("Canvas.java", 9, 17)})
	f.paint.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: "b", Type: decl.Ref(f.brush), Loc: at("Canvas.java", 9, 29)})
	b.Pop()
	b.Pop()

	f.unit.AddReference(at("Canvas.java", 9, 23), len("Brush"), f.brush)
	return f
}

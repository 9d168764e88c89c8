package fragments

import (
	"strings"

	"github.com/mvp-joe/apigraph/internal/decl"
)

func forC(d *decl.Decl) *Fragments {
	f := New()
	switch d.Kind {
	case decl.KindFunction, decl.KindCXXMethod:
		if d.Linkage == decl.LinkageInternal || (d.Kind == decl.KindCXXMethod && d.ClassMember) {
			f.Append("static", KindKeyword).AppendSpace()
		}
		if d.Type != nil {
			appendType(f, d.Type)
		} else {
			f.Append("void", KindTypeIdentifier)
		}
		f.AppendSpace().Append(d.Name, KindIdentifier)
		appendCParams(f, d)
		f.AppendSemicolon()

	case decl.KindCXXConstructor:
		f.Append(d.Name, KindIdentifier)
		appendCParams(f, d)
		f.AppendSemicolon()

	case decl.KindCXXDestructor:
		f.Append("~"+strings.TrimPrefix(d.Name, "~"), KindIdentifier).Append("()", KindText).AppendSemicolon()

	case decl.KindVar:
		if d.Linkage == decl.LinkageInternal {
			f.Append("static", KindKeyword).AppendSpace()
		}
		appendType(f, d.Type)
		f.AppendSpace().Append(d.Name, KindIdentifier).AppendSemicolon()

	case decl.KindField, decl.KindObjCIvar:
		appendType(f, d.Type)
		f.AppendSpace().Append(d.Name, KindIdentifier).AppendSemicolon()

	case decl.KindEnum:
		f.Append("enum", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		if d.Type != nil {
			f.Append(" : ", KindText)
			appendType(f, d.Type)
		}
		f.AppendSemicolon()

	case decl.KindEnumConstant:
		f.Append(d.Name, KindIdentifier)
		if d.Value != "" {
			f.Append(" = ", KindText).Append(d.Value, KindNumber)
		}

	case decl.KindRecord, decl.KindCXXRecord:
		tag := d.Tag.String()
		if tag == "" {
			tag = "struct"
		}
		f.Append(tag, KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		if len(d.Bases) > 0 {
			f.Append(" : ", KindText)
			appendList(f, d.Bases, ", ")
		}
		f.AppendSemicolon()

	case decl.KindTypedef:
		f.Append("typedef", KindKeyword).AppendSpace()
		appendType(f, d.Type)
		f.AppendSpace().Append(d.Name, KindIdentifier).AppendSemicolon()

	case decl.KindTypeAlias:
		f.Append("using", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier).Append(" = ", KindText)
		appendType(f, d.Type)
		f.AppendSemicolon()

	case decl.KindObjCInterface:
		f.Append("@interface", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		if super := d.SuperClass(); super != nil {
			f.Append(" : ", KindText)
			refTo(f, super)
		}
		appendProtocols(f, d.Protocols)

	case decl.KindObjCImplementation:
		name := d.Name
		if iface := d.ClassInterface(); iface != nil {
			name = iface.Name
		}
		f.Append("@implementation", KindKeyword).AppendSpace().Append(name, KindIdentifier)

	case decl.KindObjCProtocol:
		f.Append("@protocol", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		appendProtocols(f, d.Protocols)

	case decl.KindObjCCategory, decl.KindObjCCategoryImpl:
		keyword := "@interface"
		if d.Kind == decl.KindObjCCategoryImpl {
			keyword = "@implementation"
		}
		f.Append(keyword, KindKeyword).AppendSpace()
		declRef(f, d.ClassInterface())
		f.Append(" (", KindText).Append(d.Name, KindIdentifier).Append(")", KindText)
		appendProtocols(f, d.Protocols)

	case decl.KindObjCMethod:
		if d.ClassMember {
			f.Append("+ (", KindText)
		} else {
			f.Append("- (", KindText)
		}
		if d.Type != nil {
			appendType(f, d.Type)
		} else {
			f.Append("void", KindTypeIdentifier)
		}
		f.Append(") ", KindText)
		appendSelector(f, d)
		f.AppendSemicolon()

	case decl.KindObjCProperty:
		f.Append("@property", KindKeyword).AppendSpace()
		if len(d.Attributes) > 0 {
			f.Append("(", KindText)
			for i, a := range d.Attributes {
				if i > 0 {
					f.Append(", ", KindText)
				}
				f.Append(a, KindKeyword)
			}
			f.Append(") ", KindText)
		}
		appendType(f, d.Type)
		f.AppendSpace().Append(d.Name, KindIdentifier).AppendSemicolon()

	case decl.KindNamespace:
		f.Append("namespace", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)

	default:
		f.Append(d.Name, KindIdentifier)
	}
	return f
}

func appendCParams(f *Fragments, d *decl.Decl) {
	f.Append("(", KindText)
	if len(d.Params) == 0 && !d.Variadic && d.Language == decl.LangC {
		f.Append("void", KindTypeIdentifier)
	}
	for i, p := range d.Params {
		if i > 0 {
			f.Append(", ", KindText)
		}
		appendType(f, p.Type)
		if p.Name != "" {
			f.AppendSpace().Append(p.Name, KindInternalParam)
		}
	}
	if d.Variadic {
		if len(d.Params) > 0 {
			f.Append(", ", KindText)
		}
		f.Append("...", KindText)
	}
	f.Append(")", KindText)
}

func appendSelector(f *Fragments, d *decl.Decl) {
	if len(d.Params) == 0 {
		f.Append(d.Name, KindIdentifier)
		return
	}
	pieces := strings.Split(strings.TrimSuffix(d.Name, ":"), ":")
	for i, p := range d.Params {
		if i > 0 {
			f.AppendSpace()
		}
		piece := ""
		if i < len(pieces) {
			piece = pieces[i]
		}
		f.Append(piece+":", KindIdentifier).Append("(", KindText)
		appendType(f, p.Type)
		f.Append(")", KindText).Append(p.Name, KindInternalParam)
	}
}

func appendProtocols(f *Fragments, protocols []*decl.TypeRef) {
	if len(protocols) == 0 {
		return
	}
	f.Append(" <", KindText)
	appendList(f, protocols, ", ")
	f.Append(">", KindText)
}

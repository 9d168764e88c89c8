package fragments

import (
	"github.com/mvp-joe/apigraph/internal/decl"
)

func forJava(d *decl.Decl) *Fragments {
	f := New()
	appendKeywords(f, d.Attributes)

	switch d.Kind {
	case decl.KindCXXRecord, decl.KindRecord:
		tag := d.Tag.String()
		if tag == "" {
			tag = "class"
		}
		f.Append(tag, KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		if len(d.Bases) > 0 {
			f.AppendSpace().Append("extends", KindKeyword).AppendSpace()
			appendList(f, d.Bases, ", ")
		}
		if len(d.Protocols) > 0 {
			keyword := "implements"
			if d.Tag == decl.TagInterface {
				keyword = "extends"
			}
			f.AppendSpace().Append(keyword, KindKeyword).AppendSpace()
			appendList(f, d.Protocols, ", ")
		}

	case decl.KindEnum:
		f.Append("enum", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		if len(d.Protocols) > 0 {
			f.AppendSpace().Append("implements", KindKeyword).AppendSpace()
			appendList(f, d.Protocols, ", ")
		}

	case decl.KindEnumConstant:
		f.Append(d.Name, KindIdentifier)

	case decl.KindCXXMethod, decl.KindFunction:
		if d.Type != nil {
			appendType(f, d.Type)
		} else {
			f.Append("void", KindTypeIdentifier)
		}
		f.AppendSpace().Append(d.Name, KindIdentifier)
		appendJavaParams(f, d)
		f.AppendSemicolon()

	case decl.KindCXXConstructor:
		f.Append(d.Name, KindIdentifier)
		appendJavaParams(f, d)
		f.AppendSemicolon()

	case decl.KindField, decl.KindVar:
		appendType(f, d.Type)
		f.AppendSpace().Append(d.Name, KindIdentifier).AppendSemicolon()

	case decl.KindNamespace:
		f.Append("package", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier).AppendSemicolon()

	default:
		f.Append(d.Name, KindIdentifier)
	}
	return f
}

func appendJavaParams(f *Fragments, d *decl.Decl) {
	f.Append("(", KindText)
	for i, p := range d.Params {
		if i > 0 {
			f.Append(", ", KindText)
		}
		appendType(f, p.Type)
		if p.Name != "" {
			f.AppendSpace().Append(p.Name, KindInternalParam)
		}
	}
	f.Append(")", KindText)
}

package fragments

import (
	"github.com/mvp-joe/apigraph/internal/decl"
)

func forGo(d *decl.Decl) *Fragments {
	f := New()
	switch d.Kind {
	case decl.KindFunction:
		f.Append("func", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		appendGoSignature(f, d)

	case decl.KindCXXMethod:
		parent := d.SemanticParent()
		if parent != nil && parent.Tag == decl.TagInterface {
			f.Append(d.Name, KindIdentifier)
			appendGoSignature(f, d)
			break
		}
		f.Append("func", KindKeyword).Append(" (", KindText)
		if r := d.Receiver; r != nil {
			if r.Name != "" {
				f.Append(r.Name, KindInternalParam).AppendSpace()
			}
			appendType(f, r.Type)
		}
		f.Append(") ", KindText).Append(d.Name, KindIdentifier)
		appendGoSignature(f, d)

	case decl.KindVar:
		keyword := "var"
		if d.Const {
			keyword = "const"
		}
		f.Append(keyword, KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)
		if d.Type != nil {
			f.AppendSpace()
			appendType(f, d.Type)
		}
		if d.Const && d.Value != "" {
			f.Append(" = ", KindText).Append(d.Value, KindNumber)
		}

	case decl.KindField:
		if d.Name != "" {
			f.Append(d.Name, KindIdentifier).AppendSpace()
		}
		appendType(f, d.Type)

	case decl.KindCXXRecord, decl.KindRecord:
		tag := "struct"
		if d.Tag == decl.TagInterface {
			tag = "interface"
		}
		f.Append("type", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier).
			AppendSpace().Append(tag, KindKeyword)

	case decl.KindTypeAlias, decl.KindTypedef:
		f.Append("type", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier).AppendSpace()
		appendType(f, d.Type)

	case decl.KindNamespace:
		f.Append("package", KindKeyword).AppendSpace().Append(d.Name, KindIdentifier)

	default:
		f.Append(d.Name, KindIdentifier)
	}
	return f
}

func appendGoSignature(f *Fragments, d *decl.Decl) {
	f.Append("(", KindText)
	for i, p := range d.Params {
		if i > 0 {
			f.Append(", ", KindText)
		}
		if p.Name != "" {
			f.Append(p.Name, KindInternalParam).AppendSpace()
		}
		if d.Variadic && i == len(d.Params)-1 {
			f.Append("...", KindText)
		}
		appendType(f, p.Type)
	}
	f.Append(")", KindText)
	if d.Type != nil {
		f.AppendSpace()
		appendType(f, d.Type)
	}
}

package fragments

import (
	"strings"
	"unicode"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/usr"
)

var typeKeywords = map[string]bool{
	"const": true, "volatile": true, "restrict": true, "struct": true, "union": true,
	"enum": true, "unsigned": true, "signed": true, "static": true, "extern": true,
	"final": true, "func": true, "map": true, "chan": true, "interface": true,
	"__kindof": true, "nullable": true, "nonnull": true, "_Nullable": true, "_Nonnull": true,
}

// ForDecl renders the declaration's signature.
func ForDecl(d *decl.Decl) *Fragments {
	if d == nil {
		return New()
	}
	switch d.Language {
	case decl.LangGo:
		return forGo(d)
	case decl.LangJava:
		return forJava(d)
	}
	return forC(d)
}

// SubHeading renders the short label shown in navigation.
func SubHeading(d *decl.Decl) *Fragments {
	f := New()
	if d == nil {
		return f
	}
	switch d.Kind {
	case decl.KindObjCMethod:
		if d.ClassMember {
			f.Append("+ ", KindText)
		} else {
			f.Append("- ", KindText)
		}
	case decl.KindObjCImplementation:
		if iface := d.ClassInterface(); iface != nil {
			return f.Append(iface.Name, KindIdentifier)
		}
	}
	return f.Append(d.Name, KindIdentifier)
}

// ForType renders a spelled type, marking the identifier that names a known
// declaration as a typeIdentifier with a back-reference.
func ForType(t *decl.TypeRef) *Fragments {
	f := New()
	appendType(f, t)
	return f
}

func appendType(f *Fragments, t *decl.TypeRef) {
	if t == nil {
		return
	}
	spelling := strings.TrimSpace(t.Spelling)
	if spelling == "" {
		spelling = t.Name
	}
	if t.Name == "" || t.Decl == nil {
		appendTypeWords(f, spelling)
		return
	}
	i := indexWord(spelling, t.Name)
	if i < 0 {
		appendTypeWords(f, spelling)
		return
	}
	appendTypeWords(f, spelling[:i])
	f.AppendRef(t.Name, KindTypeIdentifier, usr.MustGenerate(t.Decl), t.Decl)
	appendTypeWords(f, spelling[i+len(t.Name):])
}

// appendTypeWords classifies the words of an unresolved type spelling.
func appendTypeWords(f *Fragments, s string) {
	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		w := word.String()
		word.Reset()
		if typeKeywords[w] {
			f.Append(w, KindKeyword)
		} else {
			f.Append(w, KindTypeIdentifier)
		}
	}
	for _, r := range s {
		if isWordRune(r) {
			word.WriteRune(r)
			continue
		}
		flush()
		f.Append(string(r), KindText)
	}
	flush()
}

func isWordRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// indexWord finds name in s at identifier boundaries.
func indexWord(s, name string) int {
	from := 0
	for {
		i := strings.Index(s[from:], name)
		if i < 0 {
			return -1
		}
		i += from
		end := i + len(name)
		before := i == 0 || !isIdentRune(rune(s[i-1]))
		after := end == len(s) || !isIdentRune(rune(s[end]))
		if before && after {
			return i
		}
		from = i + 1
	}
}

func isIdentRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func refTo(f *Fragments, t *decl.TypeRef) {
	if t == nil {
		return
	}
	name := t.Name
	if name == "" {
		name = t.Spelling
	}
	f.AppendRef(name, KindTypeIdentifier, usr.MustGenerate(t.Decl), t.Decl)
}

func declRef(f *Fragments, d *decl.Decl) {
	if d == nil {
		return
	}
	f.AppendRef(d.Name, KindTypeIdentifier, usr.MustGenerate(d), d)
}

func appendList(f *Fragments, refs []*decl.TypeRef, sep string) {
	for i, r := range refs {
		if i > 0 {
			f.Append(sep, KindText)
		}
		refTo(f, r)
	}
}

func appendKeywords(f *Fragments, words []string) {
	for _, w := range words {
		f.Append(w, KindKeyword).AppendSpace()
	}
}

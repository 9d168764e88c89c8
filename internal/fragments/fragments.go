// Package fragments renders declarations as ordered, classified tokens.
//
// A fragment that names another declaration (a type in a signature, a
// superclass) carries a back-reference to that declaration and its USR, so
// consumers can pull referenced symbols into a graph.
package fragments

import (
	"strings"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// Kind classifies a fragment.
type Kind string

const (
	KindNone             Kind = "none"
	KindKeyword          Kind = "keyword"
	KindAttribute        Kind = "attribute"
	KindNumber           Kind = "number"
	KindString           Kind = "string"
	KindIdentifier       Kind = "identifier"
	KindTypeIdentifier   Kind = "typeIdentifier"
	KindGenericParameter Kind = "genericParameter"
	KindExternalParam    Kind = "externalParam"
	KindInternalParam    Kind = "internalParam"
	KindText             Kind = "text"
)

// Fragment is one token of a rendered declaration.
type Fragment struct {
	Spelling          string
	Kind              Kind
	PreciseIdentifier string
	Decl              *decl.Decl
}

// Fragments is an ordered list of fragments.
type Fragments struct {
	items []Fragment
}

// New returns an empty fragment list.
func New() *Fragments {
	return &Fragments{}
}

// Append adds a fragment. Adjacent text fragments are merged.
func (f *Fragments) Append(spelling string, kind Kind) *Fragments {
	return f.AppendRef(spelling, kind, "", nil)
}

// AppendRef adds a fragment that refers to another declaration.
func (f *Fragments) AppendRef(spelling string, kind Kind, usr string, d *decl.Decl) *Fragments {
	if spelling == "" {
		return f
	}
	if kind == KindText && len(f.items) > 0 {
		last := &f.items[len(f.items)-1]
		if last.Kind == KindText {
			last.Spelling += spelling
			return f
		}
	}
	f.items = append(f.items, Fragment{Spelling: spelling, Kind: kind, PreciseIdentifier: usr, Decl: d})
	return f
}

// AppendSpace adds a single space unless the list already ends in whitespace.
func (f *Fragments) AppendSpace() *Fragments {
	if len(f.items) > 0 {
		last := f.items[len(f.items)-1]
		if last.Kind == KindText && strings.HasSuffix(last.Spelling, " ") {
			return f
		}
	}
	return f.Append(" ", KindText)
}

// AppendSemicolon terminates a C-family declaration.
func (f *Fragments) AppendSemicolon() *Fragments {
	return f.Append(";", KindText)
}

// AppendAll appends every fragment of other.
func (f *Fragments) AppendAll(other *Fragments) *Fragments {
	if other == nil {
		return f
	}
	for _, it := range other.items {
		f.AppendRef(it.Spelling, it.Kind, it.PreciseIdentifier, it.Decl)
	}
	return f
}

// Items returns the fragments in order.
func (f *Fragments) Items() []Fragment {
	if f == nil {
		return nil
	}
	return f.items
}

// Len returns the number of fragments.
func (f *Fragments) Len() int {
	if f == nil {
		return 0
	}
	return len(f.items)
}

// String concatenates the spellings.
func (f *Fragments) String() string {
	if f == nil {
		return ""
	}
	var b strings.Builder
	for _, it := range f.items {
		b.WriteString(it.Spelling)
	}
	return b.String()
}

// Referenced returns the distinct declarations referenced by the fragments,
// in first-seen order.
func (f *Fragments) Referenced() []*decl.Decl {
	seen := make(map[*decl.Decl]bool)
	var out []*decl.Decl
	for _, it := range f.Items() {
		if it.Decl == nil || seen[it.Decl] {
			continue
		}
		seen[it.Decl] = true
		out = append(out, it.Decl)
	}
	return out
}

package extract

import (
	"github.com/mvp-joe/apigraph/internal/decl"
)

// Predicate decides whether a declaration belongs to the API surface.
type Predicate func(d *decl.Decl) bool

// Rejection returns why the default policy excludes d from the API surface,
// or "" when d is part of it.
func Rejection(d *decl.Decl) string {
	switch {
	case d == nil:
		return "nil declaration"
	case d.Name == "":
		return "unnamed"
	case d.Implicit:
		return "implicit"
	case d.InFunctionBody():
		return "declared in a function body"
	case d.Visibility == decl.VisibilityHidden:
		return "hidden visibility"
	case d.IsUnavailable():
		return "unavailable"
	case hasLinkage(d) && !d.Linkage.IsExternallyVisible():
		return "linkage " + d.Linkage.String()
	}
	return ""
}

// DefaultPredicate accepts named, explicitly written declarations with
// external linkage and default visibility that are not local to a function
// and are not unconditionally unavailable.
func DefaultPredicate(d *decl.Decl) bool {
	return Rejection(d) == ""
}

// PermissivePredicate accepts every named, explicitly written declaration
// outside function bodies, including private ones.
func PermissivePredicate(d *decl.Decl) bool {
	return d != nil && d.Name != "" && !d.Implicit && !d.InFunctionBody()
}

// hasLinkage reports whether linkage is meaningful for d. Members, tags and
// typedefs have no linkage of their own.
func hasLinkage(d *decl.Decl) bool {
	switch d.Kind {
	case decl.KindFunction, decl.KindVar:
		p := d.SemanticParent()
		return p == nil || p.Kind.IsFileContext()
	}
	return false
}

// Package extract builds symbol records from a declaration tree.
//
// Every declaration is classified by its most-derived kind and handed to the
// rule registered for that kind in a fixed table. The container walker layers
// ancestry on top of dispatch: after a declaration is dispatched, the first
// enclosing tag or Objective-C container is dispatched too, so a record's
// immediate structural parent is always present in the registry.
//
// Extraction never fails. Declarations rejected by the predicate, or that
// have no stable identity, are skipped and logged at debug level.
package extract

import (
	"log/slog"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/decl"
)

// Visitor runs extraction rules against one registry.
type Visitor struct {
	api          *apiset.APISet
	predicate    Predicate
	explain      func(*decl.Decl) string
	systemHeader func(path string) bool
	logger       *slog.Logger
}

// Option configures a Visitor.
type Option func(*Visitor)

// WithPredicate replaces DefaultPredicate.
func WithPredicate(p Predicate) Option {
	return func(v *Visitor) {
		if p != nil {
			v.predicate = p
			v.explain = nil
		}
	}
}

// WithSystemHeaders marks records declared in files matching isSystem as
// coming from system headers.
func WithSystemHeaders(isSystem func(path string) bool) Option {
	return func(v *Visitor) {
		v.systemHeader = isSystem
	}
}

// WithLogger sets the logger used for skip diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(v *Visitor) {
		if l != nil {
			v.logger = l
		}
	}
}

// New returns a visitor that records into api.
func New(api *apiset.APISet, opts ...Option) *Visitor {
	v := &Visitor{
		api:       api,
		predicate: DefaultPredicate,
		explain:   Rejection,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// API returns the registry the visitor records into.
func (v *Visitor) API() *apiset.APISet {
	return v.api
}

// Dispatch runs the rule for d's kind. It never walks containers.
func (v *Visitor) Dispatch(d *decl.Decl) {
	if d == nil || !d.Kind.Valid() {
		return
	}
	rules[d.Kind](v, d)
}

// WalkUp dispatches d, then dispatches the first enclosing tag or
// Objective-C container and stops there. Outer ancestors are recorded when
// they are dispatched on their own.
func (v *Visitor) WalkUp(d *decl.Decl) {
	if d == nil {
		return
	}
	v.Dispatch(d)
	for p := d.SemanticParent(); p != nil; p = p.SemanticParent() {
		if p.Kind.IsRecordableContainer() {
			v.Dispatch(p)
			return
		}
	}
}

// TraverseUnit walks every declaration of u that can contribute a record:
// top-level declarations, the contents of namespaces and linkage specs, and
// types nested inside other types. Function bodies are never entered.
func (v *Visitor) TraverseUnit(u *decl.Unit) {
	if !u.Usable() {
		return
	}
	v.traverse(u.Decls())
}

func (v *Visitor) traverse(decls []*decl.Decl) {
	for _, d := range decls {
		v.WalkUp(d)
		switch {
		case d.Kind.IsFileContext():
			v.traverse(d.Children)
		case d.Kind.IsRecordableContainer() && v.predicate(d):
			v.traverse(nestedTypes(d))
		}
	}
}

func nestedTypes(d *decl.Decl) []*decl.Decl {
	var out []*decl.Decl
	for _, c := range d.Children {
		if c.Kind.IsTag() || c.Kind == decl.KindTypedef || c.Kind == decl.KindTypeAlias {
			out = append(out, c)
		}
	}
	return out
}

// Extract runs whole-program extraction over u and returns the populated
// registry. It returns nil when u is not usable.
func Extract(u *decl.Unit, opts ...Option) *apiset.APISet {
	if !u.Usable() {
		return nil
	}
	api := apiset.New(u.Target, u.Language, u.MainFile)
	New(api, opts...).TraverseUnit(u)
	return api
}

// include applies the predicate to d and to every recordable container
// enclosing it, so nothing is recorded below an excluded container.
func (v *Visitor) include(d *decl.Decl) bool {
	if !v.accept(d) {
		return false
	}
	for p := d.SemanticParent(); p != nil; p = p.SemanticParent() {
		if p.Kind.IsRecordableContainer() && !v.predicate(p) {
			v.skip(d, "container "+p.Name+" rejected by predicate")
			return false
		}
	}
	return true
}

// accept applies the predicate to d alone.
func (v *Visitor) accept(d *decl.Decl) bool {
	if v.predicate(d) {
		return true
	}
	reason := "rejected by predicate"
	if v.explain != nil {
		if r := v.explain(d); r != "" {
			reason = r
		}
	}
	v.skip(d, reason)
	return false
}

func (v *Visitor) skip(d *decl.Decl, reason string) {
	v.logger.Debug("skipping declaration",
		"kind", d.Kind.String(),
		"name", d.Name,
		"location", d.Loc.String(),
		"reason", reason)
}

func (v *Visitor) inSystemHeader(d *decl.Decl) bool {
	return v.systemHeader != nil && d.Loc.File != "" && v.systemHeader(d.Loc.File)
}

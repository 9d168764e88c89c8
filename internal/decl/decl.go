package decl

import "fmt"

// Location is a presumed source location.
type Location struct {
	File   string `json:"file" yaml:"file"`
	Line   int    `json:"line" yaml:"line"`     // 1-indexed
	Column int    `json:"column" yaml:"column"` // 1-indexed
}

// Valid reports whether the location points into a file.
func (l Location) Valid() bool {
	return l.File != "" && l.Line > 0
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Availability describes one platform availability attribute.
// Domain "*" applies to every platform.
type Availability struct {
	Domain      string `json:"domain" yaml:"domain"`
	Introduced  string `json:"introduced,omitempty" yaml:"introduced"`
	Deprecated  string `json:"deprecated,omitempty" yaml:"deprecated"`
	Obsoleted   string `json:"obsoleted,omitempty" yaml:"obsoleted"`
	Unavailable bool   `json:"unavailable,omitempty" yaml:"unavailable"`
	Message     string `json:"message,omitempty" yaml:"message"`
}

// IsUnconditionallyUnavailable reports whether the attribute removes the
// declaration on every platform.
func (a Availability) IsUnconditionallyUnavailable() bool {
	return a.Domain == "*" && a.Unavailable
}

// IsUnconditionallyDeprecated reports whether the attribute deprecates the
// declaration on every platform.
func (a Availability) IsUnconditionallyDeprecated() bool {
	return a.Domain == "*" && !a.Unavailable
}

// TypeRef is a spelled type, optionally resolved to the declaration it names.
// Name is the identifier inside Spelling that denotes Decl (e.g. "Foo" in "const Foo *").
type TypeRef struct {
	Spelling string
	Name     string
	Decl     *Decl
}

// Decl is a node of the declaration tree. Declarations are produced by a
// front end and never mutated by extraction.
type Decl struct {
	Kind     Kind
	Name     string
	Language Language
	Loc      Location

	Linkage      Linkage
	Visibility   Visibility
	Availability []Availability
	RawComment   string
	Implicit     bool
	IsDefinition bool

	// Type is the declared type of a variable, field, parameter or property,
	// the result type of a function or method, and the underlying type of a typedef.
	Type   *TypeRef
	Params []*Decl
	// Receiver is the receiver parameter of a method declared outside its type.
	Receiver *Decl

	// Bases holds the superclass first, followed by any further base classes.
	Bases     []*TypeRef
	Protocols []*TypeRef

	// Interface links an Objective-C implementation or category to the class
	// interface it belongs to. Category links a category implementation to its category.
	Interface *Decl
	Category  *Decl

	Tag         TagKind
	ClassMember bool // class method / static member
	Synthesized bool // implicitly synthesized accessor
	Variadic    bool
	Const       bool
	Attributes  []string
	Value       string

	Children []*Decl

	lexical  *Decl
	semantic *Decl
	owned    []*Decl // declared elsewhere, owned here
	previous *Decl
	redecls  []*Decl
}

// LexicalParent returns the declaration this node is written inside.
func (d *Decl) LexicalParent() *Decl {
	if d == nil {
		return nil
	}
	return d.lexical
}

// SemanticParent returns the declaration that owns this node. It differs from
// the lexical parent for out-of-line definitions (e.g. a method defined at
// file scope that belongs to a class).
func (d *Decl) SemanticParent() *Decl {
	if d == nil {
		return nil
	}
	if d.semantic != nil {
		return d.semantic
	}
	return d.lexical
}

// SetSemanticParent overrides the owning declaration. d becomes one of p's
// members even though it is written elsewhere.
func (d *Decl) SetSemanticParent(p *Decl) {
	if d.semantic == p {
		return
	}
	if d.semantic != nil {
		d.semantic.owned = remove(d.semantic.owned, d)
	}
	d.semantic = p
	if p != nil && d.lexical != p {
		p.owned = append(p.owned, d)
	}
}

// Members returns the declarations d owns: lexical children whose semantic
// parent is d, followed by declarations written elsewhere but owned by d.
func (d *Decl) Members() []*Decl {
	out := make([]*Decl, 0, len(d.Children)+len(d.owned))
	for _, c := range d.Children {
		if c.SemanticParent() == d {
			out = append(out, c)
		}
	}
	return append(out, d.owned...)
}

func remove(list []*Decl, d *Decl) []*Decl {
	for i, x := range list {
		if x == d {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

// AddChild appends c to d's lexical children and makes d its lexical parent.
// The child inherits d's language when it has none.
func (d *Decl) AddChild(c *Decl) *Decl {
	c.lexical = d
	if c.Language == "" {
		c.Language = d.Language
	}
	d.Children = append(d.Children, c)
	return c
}

// AddParam appends a parameter to a function-like declaration.
func (d *Decl) AddParam(p *Decl) *Decl {
	p.lexical = d
	if p.Language == "" {
		p.Language = d.Language
	}
	d.Params = append(d.Params, p)
	return p
}

// Redeclare marks d as a redeclaration of prev.
func (d *Decl) Redeclare(prev *Decl) {
	d.previous = prev
	canon := prev.Canonical()
	if len(canon.redecls) == 0 {
		canon.redecls = append(canon.redecls, canon)
	}
	canon.redecls = append(canon.redecls, d)
}

// Previous returns the previous declaration of the same entity, if any.
func (d *Decl) Previous() *Decl {
	return d.previous
}

// Canonical returns the first declaration of the entity.
func (d *Decl) Canonical() *Decl {
	if d == nil {
		return nil
	}
	c := d
	for c.previous != nil {
		c = c.previous
	}
	return c
}

// Redecls returns every declaration of the entity, canonical first.
func (d *Decl) Redecls() []*Decl {
	canon := d.Canonical()
	if len(canon.redecls) == 0 {
		return []*Decl{canon}
	}
	return canon.redecls
}

// RawCommentForAnyRedecl returns d's comment, or the first comment found on
// another declaration of the same entity.
func (d *Decl) RawCommentForAnyRedecl() string {
	if d == nil {
		return ""
	}
	if d.RawComment != "" {
		return d.RawComment
	}
	for _, r := range d.Redecls() {
		if r.RawComment != "" {
			return r.RawComment
		}
	}
	return ""
}

// InFunctionBody reports whether d is declared inside a function, method or block.
func (d *Decl) InFunctionBody() bool {
	for p := d.SemanticParent(); p != nil; p = p.SemanticParent() {
		if p.Kind.IsFunctionLike() {
			return true
		}
	}
	return false
}

// IsUnavailable reports whether any availability attribute removes d everywhere.
func (d *Decl) IsUnavailable() bool {
	for _, a := range d.Availability {
		if a.IsUnconditionallyUnavailable() {
			return true
		}
	}
	return false
}

// ClassInterface returns the class interface of an implementation, category or
// category implementation.
func (d *Decl) ClassInterface() *Decl {
	switch d.Kind {
	case KindObjCInterface:
		return d
	case KindObjCCategoryImpl:
		if d.Interface == nil && d.Category != nil {
			return d.Category.Interface
		}
	}
	return d.Interface
}

// SuperClass returns the first base, if any.
func (d *Decl) SuperClass() *TypeRef {
	if len(d.Bases) == 0 {
		return nil
	}
	return d.Bases[0]
}

// Methods returns the methods owned by d, excluding synthesized accessors.
func (d *Decl) Methods() []*Decl {
	return d.childrenWhere(func(c *Decl) bool {
		switch c.Kind {
		case KindObjCMethod, KindCXXMethod, KindCXXConstructor, KindCXXDestructor:
			return !c.Synthesized
		}
		return false
	})
}

// Properties returns the properties declared directly in d.
func (d *Decl) Properties() []*Decl {
	return d.childrenOfKind(KindObjCProperty)
}

// Ivars returns the instance variables declared directly in d.
func (d *Decl) Ivars() []*Decl {
	return d.childrenOfKind(KindObjCIvar)
}

// Fields returns the fields declared directly in d.
func (d *Decl) Fields() []*Decl {
	return d.childrenOfKind(KindField)
}

// EnumConstants returns the enumerators declared directly in d.
func (d *Decl) EnumConstants() []*Decl {
	return d.childrenOfKind(KindEnumConstant)
}

func (d *Decl) childrenOfKind(k Kind) []*Decl {
	return d.childrenWhere(func(c *Decl) bool { return c.Kind == k })
}

func (d *Decl) childrenWhere(keep func(*Decl) bool) []*Decl {
	var out []*Decl
	for _, c := range d.Members() {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func (d *Decl) String() string {
	if d == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q at %s", d.Kind, d.Name, d.Loc)
}

// Walk visits decls and their children depth-first. Returning false from fn
// skips the node's children.
func Walk(decls []*Decl, fn func(*Decl) bool) {
	for _, d := range decls {
		if d == nil {
			continue
		}
		if !fn(d) {
			continue
		}
		Walk(d.Params, fn)
		Walk(d.Children, fn)
	}
}

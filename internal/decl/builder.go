package decl

// Builder assembles a declaration tree under a unit. Front ends and tests use
// it so that parent links and languages are always set consistently.
type Builder struct {
	unit  *Unit
	stack []*Decl
}

// NewBuilder returns a builder appending to u's top level.
func NewBuilder(u *Unit) *Builder {
	return &Builder{unit: u}
}

// Unit returns the unit being built.
func (b *Builder) Unit() *Unit {
	return b.unit
}

// Current returns the innermost open scope, or the translation unit.
func (b *Builder) Current() *Decl {
	if len(b.stack) == 0 {
		return b.unit.Root()
	}
	return b.stack[len(b.stack)-1]
}

// Add appends d to the current scope.
func (b *Builder) Add(d *Decl) *Decl {
	return b.Current().AddChild(d)
}

// Push appends d to the current scope and makes it the current scope.
func (b *Builder) Push(d *Decl) *Decl {
	b.Add(d)
	b.stack = append(b.stack, d)
	return d
}

// Pop closes the current scope.
func (b *Builder) Pop() {
	if len(b.stack) > 0 {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

// Ref builds a type reference whose spelling is the name itself.
func Ref(d *Decl) *TypeRef {
	if d == nil {
		return nil
	}
	return &TypeRef{Spelling: d.Name, Name: d.Name, Decl: d}
}

// Spelled builds a type reference to d with a custom spelling (e.g. "Foo *").
func Spelled(spelling string, d *Decl) *TypeRef {
	t := &TypeRef{Spelling: spelling}
	if d != nil {
		t.Name = d.Name
		t.Decl = d
	}
	return t
}

package decl

// Reference is a use site of a declaration (e.g. a type name inside a signature).
type Reference struct {
	Loc    Location
	Length int
	Decl   *Decl
}

// Unit is a parsed translation unit: the root of a declaration tree plus the
// facts the whole session shares (target triple, language, main file).
type Unit struct {
	Target   string
	Language Language
	MainFile string

	root     *Decl
	refs     []Reference
	failures []error
}

// NewUnit creates an empty translation unit.
func NewUnit(target string, lang Language, mainFile string) *Unit {
	return &Unit{
		Target:   target,
		Language: lang,
		MainFile: mainFile,
		root:     &Decl{Kind: KindTranslationUnit, Name: mainFile, Language: lang},
	}
}

// Root returns the translation unit declaration.
func (u *Unit) Root() *Decl {
	return u.root
}

// Add appends a top-level declaration.
func (u *Unit) Add(d *Decl) *Decl {
	return u.root.AddChild(d)
}

// Decls returns the top-level declarations.
func (u *Unit) Decls() []*Decl {
	if u == nil || u.root == nil {
		return nil
	}
	return u.root.Children
}

// AddReference records a use site of d.
func (u *Unit) AddReference(loc Location, length int, d *Decl) {
	u.refs = append(u.refs, Reference{Loc: loc, Length: length, Decl: d})
}

// References returns every recorded use site.
func (u *Unit) References() []Reference {
	return u.refs
}

// Fail marks the unit unusable.
func (u *Unit) Fail(err error) {
	u.failures = append(u.failures, err)
}

// Failures returns the errors that made the unit unusable.
func (u *Unit) Failures() []error {
	return u.failures
}

// Usable reports whether the unit can be extracted.
func (u *Unit) Usable() bool {
	return u != nil && u.root != nil && len(u.failures) == 0
}

// CursorAt returns the innermost cursor at a location: a reference cursor when a
// recorded use site covers the column, a declaration cursor when a declaration's
// name starts there, and a NoDeclFound cursor otherwise.
func (u *Unit) CursorAt(file string, line, column int) Cursor {
	if !u.Usable() {
		return Cursor{Kind: CursorInvalid}
	}
	for _, r := range u.refs {
		if r.Loc.File == file && r.Loc.Line == line &&
			column >= r.Loc.Column && column < r.Loc.Column+max(r.Length, 1) {
			return Cursor{Kind: CursorReference, Decl: r.Decl, Unit: u}
		}
	}

	var found *Decl
	Walk(u.Decls(), func(d *Decl) bool {
		if d.Loc.File == file && d.Loc.Line == line &&
			column >= d.Loc.Column && column < d.Loc.Column+max(len(d.Name), 1) {
			found = d
		}
		return true
	})
	if found != nil {
		return Cursor{Kind: CursorDeclaration, Decl: found, Unit: u}
	}
	return Cursor{Kind: CursorNoDeclFound, Unit: u}
}

// Merge appends the declarations and references of other units into u.
// The first unit's metadata wins.
func (u *Unit) Merge(others ...*Unit) {
	for _, o := range others {
		if o == nil {
			continue
		}
		for _, d := range o.Decls() {
			u.root.AddChild(d)
		}
		u.refs = append(u.refs, o.refs...)
		u.failures = append(u.failures, o.failures...)
	}
}

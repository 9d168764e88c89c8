package decl

// CursorKind classifies what a cursor points at.
type CursorKind int

const (
	CursorInvalid CursorKind = iota
	CursorDeclaration
	CursorReference
	CursorExpression
	CursorNoDeclFound
)

// IsDeclaration reports whether the kind denotes a declaration.
func (k CursorKind) IsDeclaration() bool {
	return k == CursorDeclaration
}

// Cursor is an opaque pointer into a translation unit: a declaration, a
// reference to one, or something that denotes no declaration at all.
type Cursor struct {
	Kind CursorKind
	Decl *Decl
	Unit *Unit
}

// DeclCursor returns a declaration cursor for d.
func DeclCursor(u *Unit, d *Decl) Cursor {
	return Cursor{Kind: CursorDeclaration, Decl: d, Unit: u}
}

// RefCursor returns a reference cursor naming d.
func RefCursor(u *Unit, d *Decl) Cursor {
	return Cursor{Kind: CursorReference, Decl: d, Unit: u}
}

// Referenced resolves the cursor to the declaration it refers to. Declaration
// cursors resolve to themselves; cursors that denote nothing resolve to an
// invalid cursor.
func (c Cursor) Referenced() Cursor {
	switch c.Kind {
	case CursorDeclaration:
		return c
	case CursorReference, CursorExpression:
		if c.Decl == nil {
			return Cursor{Kind: CursorInvalid, Unit: c.Unit}
		}
		return Cursor{Kind: CursorDeclaration, Decl: c.Decl, Unit: c.Unit}
	}
	return Cursor{Kind: CursorInvalid, Unit: c.Unit}
}

// Package golang builds declaration trees from Go source with go/parser.
//
// A package maps to a namespace. Structs and interfaces become class-like
// records, other named types become type aliases, and methods are owned by
// their receiver type even though they are written at package scope.
// Unexported identifiers get hidden visibility so the default predicate
// leaves them out of the API.
package golang

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// Parser parses Go files.
type Parser struct {
	target string
}

// New creates a Go front end recording target on every unit.
func New(target string) *Parser {
	return &Parser{target: target}
}

// Language returns decl.LangGo.
func (p *Parser) Language() decl.Language {
	return decl.LangGo
}

// ParseFile parses a single Go file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*decl.Unit, error) {
	return p.ParseFiles(ctx, []string{path})
}

// ParseFiles parses files that may belong to one or more packages. Files of
// the same package share a namespace, so methods declared in one file attach
// to types declared in another.
func (p *Parser) ParseFiles(ctx context.Context, paths []string) (*decl.Unit, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no Go files")
	}

	fset := token.NewFileSet()
	files := make([]*ast.File, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		files = append(files, f)
	}

	u := decl.NewUnit(p.target, decl.LangGo, paths[0])
	b := &builder{
		fset:     fset,
		unit:     u,
		packages: make(map[string]*pkgScope),
	}
	for _, f := range files {
		b.declareTypes(f)
	}
	for _, f := range files {
		b.populate(f)
	}
	return u, nil
}

// pkgScope is one package: its namespace and the named types declared in it.
type pkgScope struct {
	ns    *decl.Decl
	types map[string]*decl.Decl
}

type builder struct {
	fset     *token.FileSet
	unit     *decl.Unit
	packages map[string]*pkgScope
	// specs remembers the declaration created for each type spec in the first pass.
	specs map[*ast.TypeSpec]*decl.Decl
}

func (b *builder) scope(f *ast.File) *pkgScope {
	dir := filepath.Dir(b.fset.Position(f.Package).Filename)
	key := dir + "\x00" + f.Name.Name
	if s, ok := b.packages[key]; ok {
		return s
	}
	s := &pkgScope{
		ns: b.unit.Add(&decl.Decl{
			Kind:     decl.KindNamespace,
			Name:     f.Name.Name,
			Language: decl.LangGo,
			Loc:      b.loc(f.Name.Pos()),
		}),
		types: make(map[string]*decl.Decl),
	}
	b.packages[key] = s
	return s
}

// declareTypes creates every named type first so that references resolve
// independent of declaration order.
func (b *builder) declareTypes(f *ast.File) {
	s := b.scope(f)
	if b.specs == nil {
		b.specs = make(map[*ast.TypeSpec]*decl.Decl)
	}
	for _, d := range f.Decls {
		gen, ok := d.(*ast.GenDecl)
		if !ok || gen.Tok != token.TYPE {
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && len(gen.Specs) == 1 {
				doc = gen.Doc
			}
			td := &decl.Decl{
				Name:         ts.Name.Name,
				Loc:          b.loc(ts.Name.Pos()),
				IsDefinition: true,
			}
			switch ts.Type.(type) {
			case *ast.StructType:
				td.Kind = decl.KindCXXRecord
				td.Tag = decl.TagStruct
			case *ast.InterfaceType:
				td.Kind = decl.KindCXXRecord
				td.Tag = decl.TagInterface
			default:
				td.Kind = decl.KindTypeAlias
			}
			applyVisibility(td, ts.Name.Name)
			applyDoc(td, doc)
			s.ns.AddChild(td)
			s.types[td.Name] = td
			b.specs[ts] = td
		}
	}
}

func (b *builder) populate(f *ast.File) {
	s := b.scope(f)
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *ast.GenDecl:
			switch d.Tok {
			case token.TYPE:
				for _, spec := range d.Specs {
					b.fillType(s, spec.(*ast.TypeSpec))
				}
			case token.VAR, token.CONST:
				for _, spec := range d.Specs {
					b.addValues(s, d, spec.(*ast.ValueSpec))
				}
			}
		case *ast.FuncDecl:
			b.addFunc(s, d)
		}
	}
}

func (b *builder) fillType(s *pkgScope, ts *ast.TypeSpec) {
	td := b.specs[ts]
	if td == nil {
		return
	}
	switch t := ts.Type.(type) {
	case *ast.StructType:
		for _, field := range t.Fields.List {
			b.addFields(s, td, field)
		}
	case *ast.InterfaceType:
		for _, m := range t.Methods.List {
			if len(m.Names) == 0 {
				// Embedded interface.
				if ref := b.typeRef(s, m.Type); ref != nil {
					td.Protocols = append(td.Protocols, ref)
				}
				continue
			}
			ft, ok := m.Type.(*ast.FuncType)
			if !ok {
				continue
			}
			for _, name := range m.Names {
				md := &decl.Decl{
					Kind:    decl.KindCXXMethod,
					Name:    name.Name,
					Loc:     b.loc(name.Pos()),
					Linkage: decl.LinkageExternal,
				}
				applyVisibility(md, name.Name)
				applyDoc(md, m.Doc)
				td.AddChild(md)
				b.signature(s, md, ft)
			}
		}
	default:
		td.Type = b.typeRef(s, ts.Type)
	}
}

func (b *builder) addFields(s *pkgScope, owner *decl.Decl, field *ast.Field) {
	ref := b.typeRef(s, field.Type)
	if len(field.Names) == 0 {
		// Embedded field: named after its type.
		name := embeddedName(field.Type)
		if name == "" {
			return
		}
		fd := &decl.Decl{Kind: decl.KindField, Name: name, Type: ref, Loc: b.loc(field.Type.Pos())}
		applyVisibility(fd, name)
		applyDoc(fd, field.Doc)
		owner.AddChild(fd)
		return
	}
	for _, name := range field.Names {
		fd := &decl.Decl{Kind: decl.KindField, Name: name.Name, Type: ref, Loc: b.loc(name.Pos())}
		applyVisibility(fd, name.Name)
		applyDoc(fd, field.Doc)
		owner.AddChild(fd)
	}
}

func (b *builder) addValues(s *pkgScope, gen *ast.GenDecl, spec *ast.ValueSpec) {
	doc := spec.Doc
	if doc == nil && len(gen.Specs) == 1 {
		doc = gen.Doc
	}
	var ref *decl.TypeRef
	if spec.Type != nil {
		ref = b.typeRef(s, spec.Type)
	}
	for i, name := range spec.Names {
		if name.Name == "_" {
			continue
		}
		vd := &decl.Decl{
			Kind:         decl.KindVar,
			Name:         name.Name,
			Loc:          b.loc(name.Pos()),
			Type:         ref,
			Const:        gen.Tok == token.CONST,
			IsDefinition: true,
		}
		if vd.Const && i < len(spec.Values) {
			if lit, ok := spec.Values[i].(*ast.BasicLit); ok {
				vd.Value = lit.Value
			}
		}
		applyVisibility(vd, name.Name)
		applyDoc(vd, doc)
		s.ns.AddChild(vd)
	}
}

func (b *builder) addFunc(s *pkgScope, fn *ast.FuncDecl) {
	fd := &decl.Decl{
		Kind:         decl.KindFunction,
		Name:         fn.Name.Name,
		Loc:          b.loc(fn.Name.Pos()),
		IsDefinition: fn.Body != nil,
	}
	applyVisibility(fd, fn.Name.Name)
	applyDoc(fd, fn.Doc)

	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		s.ns.AddChild(fd)
		b.signature(s, fd, fn.Type)
		return
	}

	fd.Kind = decl.KindCXXMethod
	recv := fn.Recv.List[0]
	s.ns.AddChild(fd)
	receiver := &decl.Decl{Kind: decl.KindParmVar, Type: b.typeRef(s, recv.Type)}
	if len(recv.Names) > 0 && recv.Names[0].Name != "_" {
		receiver.Name = recv.Names[0].Name
	}
	fd.Receiver = receiver

	owner := s.types[receiverTypeName(recv.Type)]
	if owner == nil {
		slog.Debug("method receiver type not found", "method", fn.Name.Name, "location", fd.Loc.String())
	} else {
		fd.SetSemanticParent(owner)
	}
	b.signature(s, fd, fn.Type)
}

// signature fills parameters and the result type.
func (b *builder) signature(s *pkgScope, fd *decl.Decl, ft *ast.FuncType) {
	if ft.Params != nil {
		for _, field := range ft.Params.List {
			typ := field.Type
			if ell, ok := typ.(*ast.Ellipsis); ok {
				fd.Variadic = true
				typ = ell.Elt
			}
			ref := b.typeRef(s, typ)
			if len(field.Names) == 0 {
				fd.AddParam(&decl.Decl{Kind: decl.KindParmVar, Type: ref, Loc: b.loc(field.Pos())})
				continue
			}
			for _, name := range field.Names {
				fd.AddParam(&decl.Decl{Kind: decl.KindParmVar, Name: name.Name, Type: ref, Loc: b.loc(name.Pos())})
			}
		}
	}
	if ft.Results == nil || len(ft.Results.List) == 0 {
		return
	}
	if len(ft.Results.List) == 1 && len(ft.Results.List[0].Names) == 0 {
		fd.Type = b.typeRef(s, ft.Results.List[0].Type)
		return
	}

	var parts []string
	var resolved *decl.TypeRef
	for _, field := range ft.Results.List {
		ref := b.typeRef(s, field.Type)
		if resolved == nil && ref.Decl != nil {
			resolved = ref
		}
		n := max(len(field.Names), 1)
		for i := 0; i < n; i++ {
			if len(field.Names) > 0 {
				parts = append(parts, field.Names[i].Name+" "+ref.Spelling)
			} else {
				parts = append(parts, ref.Spelling)
			}
		}
	}
	spelling := "(" + strings.Join(parts, ", ") + ")"
	if resolved != nil {
		fd.Type = decl.Spelled(spelling, resolved.Decl)
	} else {
		fd.Type = decl.Spelled(spelling, nil)
	}
}

// typeRef spells expr and resolves the first package-local type it names.
// Every use of a local type is recorded as a reference on the unit.
func (b *builder) typeRef(s *pkgScope, expr ast.Expr) *decl.TypeRef {
	ref := &decl.TypeRef{Spelling: types.ExprString(expr)}
	ast.Inspect(expr, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.SelectorExpr:
			// Qualified identifiers name other packages.
			return false
		case *ast.Ident:
			td, ok := s.types[n.Name]
			if !ok {
				return true
			}
			b.unit.AddReference(b.loc(n.Pos()), len(n.Name), td)
			if ref.Decl == nil {
				ref.Name = n.Name
				ref.Decl = td
			}
		}
		return true
	})
	return ref
}

func (b *builder) loc(pos token.Pos) decl.Location {
	p := b.fset.Position(pos)
	return decl.Location{File: p.Filename, Line: p.Line, Column: p.Column}
}

func receiverTypeName(expr ast.Expr) string {
	for {
		switch t := expr.(type) {
		case *ast.StarExpr:
			expr = t.X
		case *ast.IndexExpr:
			expr = t.X
		case *ast.IndexListExpr:
			expr = t.X
		case *ast.ParenExpr:
			expr = t.X
		case *ast.Ident:
			return t.Name
		default:
			return ""
		}
	}
}

func embeddedName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.StarExpr:
		return embeddedName(t.X)
	case *ast.SelectorExpr:
		return t.Sel.Name
	case *ast.IndexExpr:
		return embeddedName(t.X)
	case *ast.IndexListExpr:
		return embeddedName(t.X)
	case *ast.Ident:
		return t.Name
	}
	return ""
}

// applyVisibility maps Go's export rule onto linkage and visibility.
func applyVisibility(d *decl.Decl, name string) {
	if token.IsExported(name) {
		d.Linkage = decl.LinkageExternal
		return
	}
	d.Linkage = decl.LinkageInternal
	d.Visibility = decl.VisibilityHidden
}

// applyDoc attaches the comment group and turns a "Deprecated:" paragraph
// into an availability entry.
func applyDoc(d *decl.Decl, doc *ast.CommentGroup) {
	if doc == nil {
		return
	}
	lines := make([]string, len(doc.List))
	for i, c := range doc.List {
		lines[i] = c.Text
	}
	d.RawComment = strings.Join(lines, "\n")

	if msg, ok := deprecation(doc.Text()); ok {
		d.Availability = append(d.Availability, decl.Availability{Domain: "*", Message: msg})
	}
}

func deprecation(text string) (string, bool) {
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if rest, ok := strings.CutPrefix(para, "Deprecated:"); ok {
			return strings.Join(strings.Fields(rest), " "), true
		}
	}
	return "", false
}

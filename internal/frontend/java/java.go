// Package java builds declaration trees from Java source with tree-sitter.
//
// A package declaration becomes a namespace holding the file's types.
// Classes and interfaces map to class-like records, enums to enums; methods,
// constructors and fields are their members. Private members are hidden.
package java

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsjava "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// Parser parses Java files.
type Parser struct {
	target   string
	language *sitter.Language
}

// New creates a Java front end recording target on every unit.
func New(target string) *Parser {
	if target == "" {
		target = "jvm"
	}
	return &Parser{
		target:   target,
		language: sitter.NewLanguage(tsjava.Language()),
	}
}

// Language returns decl.LangJava.
func (p *Parser) Language() decl.Language {
	return decl.LangJava
}

// ParseFile reads and parses a Java file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*decl.Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(ctx, path, source)
}

// Parse builds a unit from source.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*decl.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse java file: %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		slog.Warn("syntax errors in java file", "path", path)
	}

	u := decl.NewUnit(p.target, decl.LangJava, path)
	w := &walker{
		path:   path,
		source: source,
		unit:   u,
		types:  make(map[string]*decl.Decl),
	}
	w.members(root, u.Root())
	w.resolve()
	return u, nil
}

type pendingRef struct {
	ref  *decl.TypeRef
	name string
	loc  decl.Location
	head bool // the outermost type name; type arguments are only use sites
}

type walker struct {
	path    string
	source  []byte
	unit    *decl.Unit
	types   map[string]*decl.Decl
	pending []pendingRef
}

// members adds the declarations among node's children to parent. A package
// declaration opens a namespace for the rest of the file.
func (w *walker) members(node *sitter.Node, parent *decl.Decl) {
	var comment string
	commentEnd := -2

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		kind := child.Kind()
		row := int(child.StartPosition().Row)

		if kind == "block_comment" || kind == "line_comment" {
			if row != commentEnd+1 || kind == "block_comment" {
				comment = ""
			}
			if comment != "" {
				comment += "\n"
			}
			comment += w.text(child)
			commentEnd = int(child.EndPosition().Row)
			continue
		}

		doc := ""
		if comment != "" && row == commentEnd+1 {
			doc = comment
		}
		comment = ""
		commentEnd = -2

		switch kind {
		case "package_declaration":
			parent = w.pkg(child, parent)
		case "class_declaration", "record_declaration":
			w.class(child, parent, doc, decl.TagClass)
		case "interface_declaration":
			w.class(child, parent, doc, decl.TagInterface)
		case "enum_declaration":
			w.enum(child, parent, doc)
		case "method_declaration":
			w.method(child, parent, doc, decl.KindCXXMethod)
		case "constructor_declaration", "compact_constructor_declaration":
			w.method(child, parent, doc, decl.KindCXXConstructor)
		case "field_declaration", "constant_declaration":
			w.field(child, parent, doc)
		case "enum_constant":
			w.enumConstant(child, parent, doc)
		case "enum_body_declarations":
			w.members(child, parent)
		}
	}
}

func (w *walker) pkg(node *sitter.Node, parent *decl.Decl) *decl.Decl {
	nameNode := findChildByType(node, "scoped_identifier")
	if nameNode == nil {
		nameNode = findChildByType(node, "identifier")
	}
	if nameNode == nil {
		return parent
	}
	return parent.AddChild(&decl.Decl{
		Kind: decl.KindNamespace,
		Name: w.text(nameNode),
		Loc:  w.loc(nameNode),
	})
}

func (w *walker) class(node *sitter.Node, parent *decl.Decl, doc string, tag decl.TagKind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	d := &decl.Decl{
		Kind:         decl.KindCXXRecord,
		Name:         w.text(nameNode),
		Tag:          tag,
		Loc:          w.loc(nameNode),
		RawComment:   doc,
		IsDefinition: true,
		Linkage:      decl.LinkageExternal,
	}
	w.modifiers(node, d, doc)
	if tag == decl.TagInterface {
		d.Attributes = removeAttr(d.Attributes, "abstract")
	}

	if super := node.ChildByFieldName("superclass"); super != nil {
		for _, t := range w.typeNodes(super) {
			d.Bases = append(d.Bases, w.typeRef(t))
		}
	}
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		d.Protocols = append(d.Protocols, w.typeList(ifaces)...)
	}
	if ext := findChildByType(node, "extends_interfaces"); ext != nil {
		d.Protocols = append(d.Protocols, w.typeList(ext)...)
	}

	parent.AddChild(d)
	if _, seen := w.types[d.Name]; !seen {
		w.types[d.Name] = d
	}

	if node.Kind() == "record_declaration" {
		w.recordComponents(node.ChildByFieldName("parameters"), d)
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.members(body, d)
	}
}

func (w *walker) enum(node *sitter.Node, parent *decl.Decl, doc string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	d := &decl.Decl{
		Kind:         decl.KindEnum,
		Name:         w.text(nameNode),
		Tag:          decl.TagEnum,
		Loc:          w.loc(nameNode),
		RawComment:   doc,
		IsDefinition: true,
		Linkage:      decl.LinkageExternal,
	}
	w.modifiers(node, d, doc)
	if ifaces := node.ChildByFieldName("interfaces"); ifaces != nil {
		d.Protocols = w.typeList(ifaces)
	}
	parent.AddChild(d)
	if _, seen := w.types[d.Name]; !seen {
		w.types[d.Name] = d
	}
	if body := node.ChildByFieldName("body"); body != nil {
		w.members(body, d)
	}
}

func (w *walker) enumConstant(node *sitter.Node, parent *decl.Decl, doc string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	d := &decl.Decl{
		Kind:       decl.KindEnumConstant,
		Name:       w.text(nameNode),
		Loc:        w.loc(nameNode),
		RawComment: doc,
	}
	w.modifiers(node, d, doc)
	parent.AddChild(d)
}

func (w *walker) method(node *sitter.Node, parent *decl.Decl, doc string, kind decl.Kind) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	d := &decl.Decl{
		Kind:         kind,
		Name:         w.text(nameNode),
		Loc:          w.loc(nameNode),
		RawComment:   doc,
		IsDefinition: node.ChildByFieldName("body") != nil,
		Linkage:      decl.LinkageExternal,
	}
	w.modifiers(node, d, doc)
	if t := node.ChildByFieldName("type"); t != nil {
		d.Type = w.typeRef(t)
	}
	parent.AddChild(d)

	params := node.ChildByFieldName("parameters")
	if params == nil {
		return
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(uint(i))
		switch p.Kind() {
		case "formal_parameter":
			w.param(d, p.ChildByFieldName("type"), p.ChildByFieldName("name"))
		case "spread_parameter":
			d.Variadic = true
			var typeNode, nameNode *sitter.Node
			for j := 0; j < int(p.ChildCount()); j++ {
				c := p.Child(uint(j))
				switch c.Kind() {
				case "variable_declarator":
					nameNode = c.ChildByFieldName("name")
				case "modifiers", "...":
				default:
					if typeNode == nil {
						typeNode = c
					}
				}
			}
			w.param(d, typeNode, nameNode)
		}
	}
}

func (w *walker) param(fn *decl.Decl, typeNode, nameNode *sitter.Node) {
	p := &decl.Decl{Kind: decl.KindParmVar}
	if typeNode != nil {
		p.Type = w.typeRef(typeNode)
		p.Loc = w.loc(typeNode)
	}
	if nameNode != nil {
		p.Name = w.text(nameNode)
		p.Loc = w.loc(nameNode)
	}
	fn.AddParam(p)
}

func (w *walker) field(node *sitter.Node, parent *decl.Decl, doc string) {
	typeNode := node.ChildByFieldName("type")
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		if c.Kind() != "variable_declarator" {
			continue
		}
		nameNode := c.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		d := &decl.Decl{
			Kind:       decl.KindField,
			Name:       w.text(nameNode),
			Loc:        w.loc(nameNode),
			RawComment: doc,
			Linkage:    decl.LinkageExternal,
		}
		w.modifiers(node, d, doc)
		if typeNode != nil {
			d.Type = w.typeRef(typeNode)
		}
		if parent.Tag == decl.TagInterface {
			// Interface fields are implicitly constants.
			d.ClassMember = true
			d.Const = true
		}
		if v := c.ChildByFieldName("value"); v != nil && d.Const {
			d.Value = w.text(v)
		}
		parent.AddChild(d)
	}
}

func (w *walker) recordComponents(params *sitter.Node, record *decl.Decl) {
	if params == nil {
		return
	}
	for i := 0; i < int(params.ChildCount()); i++ {
		p := params.Child(uint(i))
		if p.Kind() != "formal_parameter" {
			continue
		}
		nameNode := p.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		record.AddChild(&decl.Decl{
			Kind:    decl.KindField,
			Name:    w.text(nameNode),
			Loc:     w.loc(nameNode),
			Type:    w.typeRef(p.ChildByFieldName("type")),
			Linkage: decl.LinkageExternal,
			Const:   true,
		})
	}
}

// modifiers copies keyword modifiers into d.Attributes and maps private to
// hidden visibility, static to class membership, and @Deprecated or a
// @deprecated Javadoc tag to an availability entry.
func (w *walker) modifiers(node *sitter.Node, d *decl.Decl, doc string) {
	deprecated := false
	if mods := findChildByType(node, "modifiers"); mods != nil {
		for i := 0; i < int(mods.ChildCount()); i++ {
			m := mods.Child(uint(i))
			switch m.Kind() {
			case "marker_annotation", "annotation":
				if name := w.text(m.ChildByFieldName("name")); name == "Deprecated" || name == "java.lang.Deprecated" {
					deprecated = true
				}
			case "line_comment", "block_comment":
			default:
				word := w.text(m)
				d.Attributes = append(d.Attributes, word)
				switch word {
				case "private":
					d.Visibility = decl.VisibilityHidden
				case "protected":
					d.Visibility = decl.VisibilityProtected
				case "static":
					d.ClassMember = true
				case "final":
					if d.Kind == decl.KindField {
						d.Const = true
					}
				}
			}
		}
	}

	msg, tagged := javadocDeprecation(doc)
	if deprecated || tagged {
		d.Availability = append(d.Availability, decl.Availability{Domain: "*", Message: msg})
	}
}

// javadocDeprecation finds a @deprecated block tag.
func javadocDeprecation(doc string) (string, bool) {
	i := strings.Index(doc, "@deprecated")
	if i < 0 {
		return "", false
	}
	rest := doc[i+len("@deprecated"):]
	if j := strings.Index(rest, "\n"); j >= 0 {
		rest = rest[:j]
	}
	rest = strings.TrimSuffix(strings.TrimSpace(rest), "*/")
	return strings.TrimSpace(rest), true
}

func (w *walker) typeList(node *sitter.Node) []*decl.TypeRef {
	var out []*decl.TypeRef
	for _, t := range w.typeNodes(node) {
		out = append(out, w.typeRef(t))
	}
	return out
}

// typeNodes returns the type children of a superclass or interface clause,
// looking through an enclosing type_list.
func (w *walker) typeNodes(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		switch c.Kind() {
		case "type_list":
			out = append(out, w.typeNodes(c)...)
		case "type_identifier", "generic_type", "scoped_type_identifier":
			out = append(out, c)
		}
	}
	return out
}

// typeRef spells a type and queues resolution of every simple type name in
// it against the classes of the file. Only the outermost name binds the
// reference: Comparable<Brush> does not name Brush.
func (w *walker) typeRef(node *sitter.Node) *decl.TypeRef {
	if node == nil {
		return nil
	}
	ref := &decl.TypeRef{Spelling: w.text(node)}
	head := true
	walkTree(node, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "scoped_type_identifier":
			// Qualified names refer to other packages.
			head = false
			return false
		case "type_identifier":
			w.pending = append(w.pending, pendingRef{ref: ref, name: w.text(n), loc: w.loc(n), head: head})
			head = false
		}
		return true
	})
	return ref
}

func (w *walker) resolve() {
	for _, p := range w.pending {
		d, ok := w.types[p.name]
		if !ok {
			continue
		}
		if p.head {
			p.ref.Name = p.name
			p.ref.Decl = d
		}
		w.unit.AddReference(p.loc, len(p.name), d)
	}
	w.pending = nil
}

func (w *walker) text(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	return string(w.source[node.StartByte():node.EndByte()])
}

func (w *walker) loc(node *sitter.Node) decl.Location {
	pos := node.StartPosition()
	return decl.Location{File: w.path, Line: int(pos.Row) + 1, Column: int(pos.Column) + 1}
}

func walkTree(node *sitter.Node, visit func(*sitter.Node) bool) {
	if node == nil || !visit(node) {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visit)
	}
}

func findChildByType(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

func removeAttr(attrs []string, attr string) []string {
	out := attrs[:0]
	for _, a := range attrs {
		if a != attr {
			out = append(out, a)
		}
	}
	return out
}

// Package cfamily builds declaration trees from C source with tree-sitter.
package cfamily

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tsc "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// Parser parses C source and header files.
type Parser struct {
	target   string
	language *sitter.Language
}

// New creates a C front end recording target on every unit.
func New(target string) *Parser {
	return &Parser{
		target:   target,
		language: sitter.NewLanguage(tsc.Language()),
	}
}

// Language returns decl.LangC.
func (p *Parser) Language() decl.Language {
	return decl.LangC
}

// ParseFile reads and parses a C file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*decl.Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return p.Parse(ctx, path, source)
}

// Parse builds a unit from source. Syntax errors are tolerated: tree-sitter
// recovers and the well-formed declarations are still produced.
func (p *Parser) Parse(ctx context.Context, path string, source []byte) (*decl.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("failed to parse c file: %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		slog.Warn("syntax errors in c file", "path", path)
	}

	u := decl.NewUnit(p.target, decl.LangC, path)
	w := &walker{
		path:      path,
		source:    source,
		unit:      u,
		tags:      make(map[string]*decl.Decl),
		typedefs:  make(map[string]*decl.Decl),
		functions: make(map[string]*decl.Decl),
	}
	w.scope(root, u.Root())
	w.resolve()
	return u, nil
}

// pendingRef is a type name whose declaration may appear later in the file.
type pendingRef struct {
	ref *decl.TypeRef
	key string // "struct Foo" for tags, the bare name for typedefs
	loc decl.Location
}

type walker struct {
	path   string
	source []byte
	unit   *decl.Unit

	tags      map[string]*decl.Decl
	typedefs  map[string]*decl.Decl
	functions map[string]*decl.Decl
	pending   []pendingRef
}

// scope adds the declarations among node's children to parent. A comment
// immediately preceding a declaration becomes its documentation.
func (w *walker) scope(node *sitter.Node, parent *decl.Decl) {
	var comment []string
	lastCommentRow := -2

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		row := int(child.StartPosition().Row)

		if child.Kind() == "comment" {
			if row != lastCommentRow+1 {
				comment = nil
			}
			comment = append(comment, w.text(child))
			lastCommentRow = int(child.EndPosition().Row)
			continue
		}

		doc := ""
		if len(comment) > 0 && row == lastCommentRow+1 {
			doc = strings.Join(comment, "\n")
		}
		comment = nil
		lastCommentRow = -2

		switch child.Kind() {
		case "preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif", "linkage_specification", "declaration_list":
			w.scope(child, parent)
		case "function_definition":
			w.function(child, parent, doc, true)
		case "declaration":
			w.declaration(child, parent, doc)
		case "type_definition":
			w.typedef(child, parent, doc)
		case "struct_specifier", "union_specifier", "enum_specifier":
			w.tag(child, parent, doc)
		case "field_declaration":
			w.field(child, parent, doc)
		case "enumerator":
			w.enumerator(child, parent, doc)
		}
	}
}

// tag defines a struct, union or enum. Forward declarations produce nothing.
func (w *walker) tag(node *sitter.Node, parent *decl.Decl, doc string) *decl.Decl {
	return w.namedTag(node, parent, doc, "")
}

func (w *walker) namedTag(node *sitter.Node, parent *decl.Decl, doc, fallback string) *decl.Decl {
	body := node.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	nameNode := node.ChildByFieldName("name")
	name := w.text(nameNode)
	loc := w.loc(node)
	if nameNode != nil {
		loc = w.loc(nameNode)
	}
	if name == "" {
		name = fallback
	}

	d := &decl.Decl{
		Kind:         decl.KindRecord,
		Name:         name,
		Loc:          loc,
		RawComment:   doc,
		IsDefinition: true,
		Linkage:      decl.LinkageExternal,
	}
	switch node.Kind() {
	case "struct_specifier":
		d.Tag = decl.TagStruct
	case "union_specifier":
		d.Tag = decl.TagUnion
	case "enum_specifier":
		d.Kind = decl.KindEnum
		d.Tag = decl.TagEnum
		if underlying := node.ChildByFieldName("underlying_type"); underlying != nil {
			d.Type = &decl.TypeRef{Spelling: w.text(underlying)}
		}
	}
	parent.AddChild(d)
	if name != "" {
		key := d.Tag.String() + " " + name
		if _, seen := w.tags[key]; !seen {
			w.tags[key] = d
		}
	}
	w.scope(body, d)
	return d
}

func (w *walker) field(node *sitter.Node, parent *decl.Decl, doc string) {
	typeNode := node.ChildByFieldName("type")
	w.nestedTag(typeNode, parent)
	quals := w.qualifiers(node)

	for _, dn := range w.declarators(node, typeNode) {
		info := w.unwrap(dn)
		if info.name == nil {
			continue
		}
		parent.AddChild(&decl.Decl{
			Kind:       decl.KindField,
			Name:       w.text(info.name),
			Loc:        w.loc(info.name),
			Type:       w.typeRef(typeNode, quals, info),
			RawComment: doc,
		})
	}
}

func (w *walker) enumerator(node *sitter.Node, parent *decl.Decl, doc string) {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	parent.AddChild(&decl.Decl{
		Kind:       decl.KindEnumConstant,
		Name:       w.text(nameNode),
		Loc:        w.loc(nameNode),
		Value:      w.text(node.ChildByFieldName("value")),
		RawComment: doc,
	})
}

// nestedTag defines a tag written inline in a type position, as in
// "struct Outer { struct Inner { int x; } in; };".
func (w *walker) nestedTag(typeNode *sitter.Node, parent *decl.Decl) {
	if typeNode == nil {
		return
	}
	switch typeNode.Kind() {
	case "struct_specifier", "union_specifier", "enum_specifier":
		w.tag(typeNode, parent, "")
	}
}

func (w *walker) function(node *sitter.Node, parent *decl.Decl, doc string, definition bool) {
	typeNode := node.ChildByFieldName("type")
	info := w.unwrap(node.ChildByFieldName("declarator"))
	if info.name == nil || !info.isFunction {
		return
	}
	w.addFunction(node, parent, doc, definition, typeNode, info)
}

func (w *walker) addFunction(node *sitter.Node, parent *decl.Decl, doc string, definition bool, typeNode *sitter.Node, info declarator) {
	name := w.text(info.name)
	d := &decl.Decl{
		Kind:         decl.KindFunction,
		Name:         name,
		Loc:          w.loc(info.name),
		RawComment:   doc,
		IsDefinition: definition,
		Linkage:      w.linkage(node),
		Type:         w.typeRef(typeNode, w.qualifiers(node), declarator{pointers: info.pointers}),
	}
	if w.hasSpecifier(node, "inline") {
		d.Attributes = append(d.Attributes, "inline")
	}
	parent.AddChild(d)
	w.params(d, info.function.ChildByFieldName("parameters"))

	if prev, ok := w.functions[name]; ok {
		d.Redeclare(prev)
	} else {
		w.functions[name] = d
	}
}

func (w *walker) params(fn *decl.Decl, list *sitter.Node) {
	if list == nil {
		return
	}
	for i := 0; i < int(list.ChildCount()); i++ {
		p := list.Child(uint(i))
		switch p.Kind() {
		case "variadic_parameter":
			fn.Variadic = true
		case "parameter_declaration":
			typeNode := p.ChildByFieldName("type")
			info := w.unwrap(p.ChildByFieldName("declarator"))
			if info.name == nil && info.pointers == 0 && w.text(typeNode) == "void" {
				continue
			}
			param := &decl.Decl{
				Kind: decl.KindParmVar,
				Type: w.typeRef(typeNode, w.qualifiers(p), info),
				Loc:  w.loc(p),
			}
			if info.name != nil {
				param.Name = w.text(info.name)
				param.Loc = w.loc(info.name)
			}
			fn.AddParam(param)
		}
	}
}

// declaration handles prototypes, global variables and tag definitions
// written together with a variable ("struct S { ... } s;").
func (w *walker) declaration(node *sitter.Node, parent *decl.Decl, doc string) {
	typeNode := node.ChildByFieldName("type")
	defined := false
	if typeNode != nil {
		switch typeNode.Kind() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			defined = w.tag(typeNode, parent, doc) != nil
		}
	}

	quals := w.qualifiers(node)
	for _, dn := range w.declarators(node, typeNode) {
		info := w.unwrap(dn)
		if info.name == nil {
			continue
		}
		if info.isFunction {
			w.addFunction(node, parent, doc, false, typeNode, info)
			continue
		}
		v := &decl.Decl{
			Kind:         decl.KindVar,
			Name:         w.text(info.name),
			Loc:          w.loc(info.name),
			Linkage:      w.linkage(node),
			IsDefinition: !w.hasSpecifier(node, "extern"),
			Type:         w.typeRef(typeNode, quals, info),
			Const:        strings.Contains(quals, "const"),
		}
		if !defined {
			v.RawComment = doc
		}
		if value := dn.ChildByFieldName("value"); value != nil && dn.Kind() == "init_declarator" {
			v.Value = w.text(value)
		}
		parent.AddChild(v)
	}
}

// typedef defines one type alias per declarator. An anonymous tag defined in
// the typedef takes the typedef's name instead.
func (w *walker) typedef(node *sitter.Node, parent *decl.Decl, doc string) {
	typeNode := node.ChildByFieldName("type")
	declarators := w.declarators(node, typeNode)

	if typeNode != nil && typeNode.ChildByFieldName("name") == nil && typeNode.ChildByFieldName("body") != nil {
		switch typeNode.Kind() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			if len(declarators) > 0 {
				if info := w.unwrap(declarators[0]); info.name != nil && info.pointers == 0 {
					name := w.text(info.name)
					if d := w.namedTag(typeNode, parent, doc, name); d != nil {
						w.typedefs[name] = d
					}
					return
				}
			}
		}
	}
	if typeNode != nil {
		switch typeNode.Kind() {
		case "struct_specifier", "union_specifier", "enum_specifier":
			w.tag(typeNode, parent, "")
		}
	}

	quals := w.qualifiers(node)
	for _, dn := range declarators {
		info := w.unwrap(dn)
		if info.name == nil {
			continue
		}
		name := w.text(info.name)
		d := &decl.Decl{
			Kind:       decl.KindTypedef,
			Name:       name,
			Loc:        w.loc(info.name),
			RawComment: doc,
			Type:       w.typeRef(typeNode, quals, info),
		}
		if info.function != nil {
			d.Type = &decl.TypeRef{Spelling: w.text(node.ChildByFieldName("type")) + " " + w.text(dn)}
			d.Type.Spelling = strings.Replace(d.Type.Spelling, name, "", 1)
		}
		parent.AddChild(d)
		if _, seen := w.typedefs[name]; !seen {
			w.typedefs[name] = d
		}
	}
}

// declarator is a declarator unwrapped down to its identifier.
type declarator struct {
	name       *sitter.Node
	pointers   int
	arrays     []string
	function   *sitter.Node // outermost function declarator
	isFunction bool         // the identifier is declared as a function
}

func (w *walker) unwrap(n *sitter.Node) declarator {
	var info declarator
	innermost := ""
	for n != nil {
		switch n.Kind() {
		case "identifier", "field_identifier", "type_identifier", "primitive_type":
			info.name = n
			info.isFunction = innermost == "function_declarator"
			return info
		case "pointer_declarator", "abstract_pointer_declarator":
			info.pointers++
			innermost = n.Kind()
			n = n.ChildByFieldName("declarator")
		case "function_declarator", "abstract_function_declarator":
			if info.function == nil {
				info.function = n
			}
			innermost = "function_declarator"
			n = n.ChildByFieldName("declarator")
		case "array_declarator", "abstract_array_declarator":
			info.arrays = append(info.arrays, "["+w.text(n.ChildByFieldName("size"))+"]")
			innermost = n.Kind()
			n = n.ChildByFieldName("declarator")
		case "init_declarator":
			n = n.ChildByFieldName("declarator")
		case "parenthesized_declarator", "abstract_parenthesized_declarator", "attributed_declarator":
			n = w.firstNamed(n)
		default:
			return info
		}
	}
	return info
}

// declarators returns the declarator children of a declaration, skipping its
// type specifier.
func (w *walker) declarators(node, typeNode *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		if typeNode != nil && c.StartByte() == typeNode.StartByte() && c.EndByte() == typeNode.EndByte() {
			continue
		}
		switch c.Kind() {
		case "identifier", "field_identifier", "type_identifier",
			"init_declarator", "pointer_declarator", "function_declarator",
			"array_declarator", "parenthesized_declarator", "attributed_declarator":
			out = append(out, c)
		}
	}
	return out
}

func (w *walker) firstNamed(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(uint(i))
		switch c.Kind() {
		case "(", ")", "attribute_specifier", "ms_call_modifier":
			continue
		}
		return c
	}
	return nil
}

// typeRef spells a declared type and queues resolution of the type name it
// mentions.
func (w *walker) typeRef(typeNode *sitter.Node, quals string, info declarator) *decl.TypeRef {
	if typeNode == nil {
		return nil
	}
	base := w.text(typeNode)
	if typeNode.ChildByFieldName("body") != nil {
		// Inline tag definition: refer to it by keyword and name only.
		base = strings.TrimSuffix(typeNode.Kind(), "_specifier") + " " + w.text(typeNode.ChildByFieldName("name"))
	}
	spelling := strings.TrimSpace(quals + " " + base)
	if info.pointers > 0 {
		spelling += " " + strings.Repeat("*", info.pointers)
	}
	spelling += strings.Join(info.arrays, "")

	ref := &decl.TypeRef{Spelling: spelling}
	switch typeNode.Kind() {
	case "type_identifier":
		w.pending = append(w.pending, pendingRef{ref: ref, key: base, loc: w.loc(typeNode)})
	case "struct_specifier", "union_specifier", "enum_specifier":
		if nameNode := typeNode.ChildByFieldName("name"); nameNode != nil {
			key := strings.TrimSuffix(typeNode.Kind(), "_specifier") + " " + w.text(nameNode)
			w.pending = append(w.pending, pendingRef{ref: ref, key: key, loc: w.loc(nameNode)})
		}
	}
	return ref
}

// resolve binds queued type names to the tags and typedefs of the file and
// records each use site.
func (w *walker) resolve() {
	for _, p := range w.pending {
		d, ok := w.tags[p.key]
		if !ok {
			d, ok = w.typedefs[p.key]
		}
		if !ok {
			continue
		}
		name := p.key
		if i := strings.IndexByte(name, ' '); i >= 0 {
			name = name[i+1:]
		}
		p.ref.Name = name
		p.ref.Decl = d
		w.unit.AddReference(p.loc, len(name), d)
	}
	w.pending = nil
}

// qualifiers collects the type qualifiers written next to the type specifier.
func (w *walker) qualifiers(node *sitter.Node) string {
	var quals []string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		if c.Kind() == "type_qualifier" {
			quals = append(quals, w.text(c))
		}
	}
	return strings.Join(quals, " ")
}

func (w *walker) hasSpecifier(node *sitter.Node, specifier string) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(uint(i))
		if c.Kind() == "storage_class_specifier" && w.text(c) == specifier {
			return true
		}
	}
	return false
}

func (w *walker) linkage(node *sitter.Node) decl.Linkage {
	if w.hasSpecifier(node, "static") {
		return decl.LinkageInternal
	}
	return decl.LinkageExternal
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

// Package dump loads declaration trees from YAML dumps.
//
// A dump describes any declaration kind, including Objective-C interface and
// implementation pairs, categories and protocols that the source front ends
// do not produce. Declarations may carry an id; other declarations link to
// them with ref fields:
//
//	target: arm64-apple-macosx14.0
//	language: objective-c
//	main_file: Foo.m
//	decls:
//	  - id: foo
//	    kind: ObjCInterface
//	    name: Foo
//	    loc: {file: Foo.h, line: 3, column: 12}
//	  - kind: ObjCImplementation
//	    name: Foo
//	    interface: foo
//	references:
//	  - {loc: {file: Foo.m, line: 9, column: 4}, length: 3, ref: foo}
package dump

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mvp-joe/apigraph/internal/decl"
)

var (
	// ErrUnknownKind is returned for a kind name that is not a declaration kind.
	ErrUnknownKind = errors.New("unknown declaration kind")
	// ErrDanglingRef is returned when a ref names no declaration id.
	ErrDanglingRef = errors.New("dangling declaration ref")
	// ErrDuplicateID is returned when two declarations share an id.
	ErrDuplicateID = errors.New("duplicate declaration id")
)

// File is the document layout of a dump.
type File struct {
	Target     string      `yaml:"target"`
	Language   string      `yaml:"language"`
	MainFile   string      `yaml:"main_file"`
	Decls      []*Node     `yaml:"decls"`
	References []Reference `yaml:"references,omitempty"`
}

// Node is one declaration.
type Node struct {
	ID           string              `yaml:"id,omitempty"`
	Kind         string              `yaml:"kind"`
	Name         string              `yaml:"name,omitempty"`
	Language     string              `yaml:"language,omitempty"`
	Loc          decl.Location       `yaml:"loc,omitempty"`
	Linkage      string              `yaml:"linkage,omitempty"`
	Visibility   string              `yaml:"visibility,omitempty"`
	Availability []decl.Availability `yaml:"availability,omitempty"`
	Comment      string              `yaml:"comment,omitempty"`
	Implicit     bool                `yaml:"implicit,omitempty"`
	Definition   bool                `yaml:"definition,omitempty"`
	Type         *Type               `yaml:"type,omitempty"`
	Params       []*Node             `yaml:"params,omitempty"`
	Receiver     *Node               `yaml:"receiver,omitempty"`
	Bases        []*Type             `yaml:"bases,omitempty"`
	Protocols    []*Type             `yaml:"protocols,omitempty"`
	Interface    string              `yaml:"interface,omitempty"`
	Category     string              `yaml:"category,omitempty"`
	Parent       string              `yaml:"semantic_parent,omitempty"`
	Redeclares   string              `yaml:"redeclares,omitempty"`
	Tag          string              `yaml:"tag,omitempty"`
	ClassMember  bool                `yaml:"class_member,omitempty"`
	Synthesized  bool                `yaml:"synthesized,omitempty"`
	Variadic     bool                `yaml:"variadic,omitempty"`
	Const        bool                `yaml:"const,omitempty"`
	Attributes   []string            `yaml:"attributes,omitempty"`
	Value        string              `yaml:"value,omitempty"`
	Children     []*Node             `yaml:"children,omitempty"`
}

// Type is a spelled type, optionally linked to a declaration id. When only
// ref is given the spelling is the referenced declaration's name.
type Type struct {
	Spelling string `yaml:"spelling,omitempty"`
	Ref      string `yaml:"ref,omitempty"`
}

// Reference is a use site of a declaration.
type Reference struct {
	Loc    decl.Location `yaml:"loc"`
	Length int           `yaml:"length"`
	Ref    string        `yaml:"ref"`
}

// Parser loads dumps from disk.
type Parser struct{}

// New creates a dump front end.
func New() *Parser {
	return &Parser{}
}

// Language returns the language dumps default to.
func (p *Parser) Language() decl.Language {
	return decl.LangObjC
}

// ParseFile reads and decodes a dump.
func (p *Parser) ParseFile(ctx context.Context, path string) (*decl.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	u, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if u.MainFile == "" {
		u.MainFile = path
	}
	return u, nil
}

// Decode builds a unit from YAML.
func Decode(data []byte) (*decl.Unit, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode dump: %w", err)
	}
	return f.Unit()
}

// Unit builds the declaration tree. Refs may point forward.
func (f *File) Unit() (*decl.Unit, error) {
	lang := decl.Language(f.Language)
	if lang == "" {
		lang = decl.LangObjC
	}
	u := decl.NewUnit(f.Target, lang, f.MainFile)

	l := &linker{ids: make(map[string]*decl.Decl)}
	for _, n := range f.Decls {
		d, err := l.build(n)
		if err != nil {
			return nil, err
		}
		u.Add(d)
	}
	if err := l.link(); err != nil {
		return nil, err
	}

	for _, r := range f.References {
		d, ok := l.ids[r.Ref]
		if !ok {
			return nil, fmt.Errorf("%w: reference to %q", ErrDanglingRef, r.Ref)
		}
		u.AddReference(r.Loc, r.Length, d)
	}
	return u, nil
}

// linker builds declarations and resolves ref fields once every id is known.
type linker struct {
	ids   map[string]*decl.Decl
	fixes []func() error
}

func (l *linker) build(n *Node) (*decl.Decl, error) {
	kind, ok := decl.ParseKind(n.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, n.Kind)
	}
	d := &decl.Decl{
		Kind:         kind,
		Name:         n.Name,
		Language:     decl.Language(n.Language),
		Loc:          n.Loc,
		Linkage:      linkage(n.Linkage),
		Visibility:   decl.ParseVisibility(n.Visibility),
		Availability: n.Availability,
		RawComment:   n.Comment,
		Implicit:     n.Implicit,
		IsDefinition: n.Definition,
		Tag:          decl.ParseTagKind(n.Tag),
		ClassMember:  n.ClassMember,
		Synthesized:  n.Synthesized,
		Variadic:     n.Variadic,
		Const:        n.Const,
		Attributes:   n.Attributes,
		Value:        n.Value,
	}
	if n.ID != "" {
		if _, dup := l.ids[n.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, n.ID)
		}
		l.ids[n.ID] = d
	}

	d.Type = l.typeRef(n.Type)
	for _, t := range n.Bases {
		d.Bases = append(d.Bases, l.typeRef(t))
	}
	for _, t := range n.Protocols {
		d.Protocols = append(d.Protocols, l.typeRef(t))
	}

	for _, c := range n.Children {
		cd, err := l.build(c)
		if err != nil {
			return nil, err
		}
		d.AddChild(cd)
	}
	for _, p := range n.Params {
		pd, err := l.build(p)
		if err != nil {
			return nil, err
		}
		d.AddParam(pd)
	}
	if n.Receiver != nil {
		rd, err := l.build(n.Receiver)
		if err != nil {
			return nil, err
		}
		d.Receiver = rd
	}

	l.defer_(n.Interface, func(target *decl.Decl) { d.Interface = target })
	l.defer_(n.Category, func(target *decl.Decl) { d.Category = target })
	l.defer_(n.Parent, d.SetSemanticParent)
	l.defer_(n.Redeclares, d.Redeclare)
	return d, nil
}

// linkage defaults to external so hand-written dumps need not spell it out.
func linkage(s string) decl.Linkage {
	if s == "" {
		return decl.LinkageExternal
	}
	return decl.ParseLinkage(s)
}

// defer_ queues assignment of the declaration named by id.
func (l *linker) defer_(id string, set func(*decl.Decl)) {
	if id == "" {
		return
	}
	l.fixes = append(l.fixes, func() error {
		target, ok := l.ids[id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrDanglingRef, id)
		}
		set(target)
		return nil
	})
}

func (l *linker) typeRef(t *Type) *decl.TypeRef {
	if t == nil {
		return nil
	}
	ref := &decl.TypeRef{Spelling: t.Spelling}
	l.defer_(t.Ref, func(target *decl.Decl) {
		ref.Decl = target
		ref.Name = target.Name
		if ref.Spelling == "" {
			ref.Spelling = target.Name
		}
	})
	return ref
}

func (l *linker) link() error {
	var errs []error
	for _, fix := range l.fixes {
		if err := fix(); err != nil {
			errs = append(errs, err)
		}
	}
	l.fixes = nil
	return errors.Join(errs...)
}

// Package usr generates unified symbol resolution strings: deterministic,
// cross-reference identities for declarations.
//
// Identities are computed from the canonical declaration, so every
// redeclaration of an entity maps to the same string. An Objective-C
// implementation shares its class interface's identity, and methods,
// properties and ivars declared in either resolve through the class.
package usr

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// Prefix is the scheme shared by every generated identity.
const Prefix = "c:"

// ErrNoUSR indicates the declaration has no stable identity (unnamed, or a
// kind that is never referenced across units).
var ErrNoUSR = errors.New("declaration has no USR")

// Generate returns the USR of d's canonical declaration.
func Generate(d *decl.Decl) (string, error) {
	if d == nil {
		return "", fmt.Errorf("%w: nil declaration", ErrNoUSR)
	}
	d = d.Canonical()

	var b strings.Builder
	b.WriteString(Prefix)
	if err := write(&b, d); err != nil {
		return "", err
	}
	return b.String(), nil
}

// MustGenerate is Generate for callers that have already filtered out
// declarations without identity. It returns "" on failure.
func MustGenerate(d *decl.Decl) string {
	s, err := Generate(d)
	if err != nil {
		return ""
	}
	return s
}

func write(b *strings.Builder, d *decl.Decl) error {
	switch d.Kind {
	case decl.KindObjCInterface, decl.KindObjCImplementation:
		iface := d.ClassInterface()
		name := d.Name
		if iface != nil {
			name = iface.Name
		}
		if name == "" {
			return noUSR(d)
		}
		b.WriteString("objc(cs)" + name)
		return nil

	case decl.KindObjCCategory, decl.KindObjCCategoryImpl:
		iface := d.ClassInterface()
		if iface == nil || d.Name == "" {
			return noUSR(d)
		}
		b.WriteString("objc(cy)" + iface.Name + "@" + d.Name)
		return nil

	case decl.KindObjCProtocol:
		if d.Name == "" {
			return noUSR(d)
		}
		b.WriteString("objc(pl)" + d.Name)
		return nil

	case decl.KindObjCMethod, decl.KindObjCProperty, decl.KindObjCIvar:
		return writeObjCMember(b, d)
	}

	if d.Name == "" {
		return noUSR(d)
	}

	switch d.Kind {
	case decl.KindFunction:
		writeFilePrefix(b, d)
		writeContext(b, d.SemanticParent())
		b.WriteString("@F@" + d.Name)
		if overloadable(d) {
			writeSignature(b, d)
		}
	case decl.KindVar:
		writeFilePrefix(b, d)
		writeContext(b, d.SemanticParent())
		b.WriteString("@" + d.Name)
	case decl.KindField:
		writeContext(b, d.SemanticParent())
		b.WriteString("@FI@" + d.Name)
	case decl.KindEnumConstant:
		writeContext(b, d.SemanticParent())
		b.WriteString("@" + d.Name)
	case decl.KindEnum, decl.KindRecord, decl.KindCXXRecord, decl.KindNamespace:
		writeContext(b, d)
	case decl.KindTypedef, decl.KindTypeAlias:
		writeContext(b, d.SemanticParent())
		b.WriteString("@T@" + d.Name)
	case decl.KindCXXMethod, decl.KindCXXConstructor:
		writeContext(b, d.SemanticParent())
		b.WriteString("@F@" + d.Name)
		writeSignature(b, d)
		if d.ClassMember {
			b.WriteString("S")
		}
	case decl.KindCXXDestructor:
		writeContext(b, d.SemanticParent())
		b.WriteString("@F@~" + strings.TrimPrefix(d.Name, "~") + "#")
	default:
		return noUSR(d)
	}
	return nil
}

func writeObjCMember(b *strings.Builder, d *decl.Decl) error {
	if d.Name == "" {
		return noUSR(d)
	}
	container := d.SemanticParent()
	if container == nil {
		return noUSR(d)
	}

	// Members of classes, implementations and categories resolve through the
	// class so that a selector declared in one and defined in another match.
	switch container.Kind {
	case decl.KindObjCInterface, decl.KindObjCImplementation,
		decl.KindObjCCategory, decl.KindObjCCategoryImpl:
		iface := container.ClassInterface()
		if iface == nil {
			return noUSR(d)
		}
		b.WriteString("objc(cs)" + iface.Name)
	case decl.KindObjCProtocol:
		b.WriteString("objc(pl)" + container.Name)
	default:
		return noUSR(d)
	}

	switch d.Kind {
	case decl.KindObjCMethod:
		if d.ClassMember {
			b.WriteString("(cm)" + d.Name)
		} else {
			b.WriteString("(im)" + d.Name)
		}
	case decl.KindObjCProperty:
		if d.ClassMember {
			b.WriteString("(cpy)" + d.Name)
		} else {
			b.WriteString("(py)" + d.Name)
		}
	case decl.KindObjCIvar:
		b.WriteString("@" + d.Name)
	}
	return nil
}

// writeContext writes the scope path of d including d itself. Scopes that
// contribute nothing (translation unit, linkage specs) are skipped.
func writeContext(b *strings.Builder, d *decl.Decl) {
	if d == nil {
		return
	}
	writeContext(b, d.SemanticParent())

	switch d.Kind {
	case decl.KindNamespace:
		b.WriteString("@N@" + d.Name)
	case decl.KindRecord, decl.KindCXXRecord:
		if d.Tag == decl.TagUnion {
			b.WriteString("@U@" + d.Name)
		} else {
			b.WriteString("@S@" + d.Name)
		}
	case decl.KindEnum:
		b.WriteString("@E@" + d.Name)
	case decl.KindObjCInterface, decl.KindObjCImplementation:
		if iface := d.ClassInterface(); iface != nil {
			b.WriteString("objc(cs)" + iface.Name)
		}
	case decl.KindObjCProtocol:
		b.WriteString("objc(pl)" + d.Name)
	}
}

// overloadable reports whether a free function is mangled with its
// parameter types. C functions and those declared extern "C" are not.
func overloadable(d *decl.Decl) bool {
	if d.Language != decl.LangCXX && d.Language != decl.LangObjCXX {
		return false
	}
	for p := d.LexicalParent(); p != nil; p = p.LexicalParent() {
		if p.Kind == decl.KindLinkageSpec {
			return false
		}
	}
	return true
}

// writeSignature writes "#" followed by one "<type>#" per parameter, so
// that overloads of one name get distinct identities.
func writeSignature(b *strings.Builder, d *decl.Decl) {
	b.WriteString("#")
	for _, p := range d.Params {
		writeType(b, p.Type, d.Language)
		b.WriteString("#")
	}
	if d.Variadic {
		b.WriteString(".")
	}
}

var builtinTypes = map[string]string{
	"void":               "v",
	"bool":               "b",
	"_Bool":              "b",
	"boolean":            "b",
	"char":               "C",
	"signed char":        "C",
	"byte":               "C",
	"unsigned char":      "c",
	"short":              "S",
	"unsigned short":     "s",
	"int":                "I",
	"signed":             "I",
	"unsigned":           "i",
	"unsigned int":       "i",
	"long":               "L",
	"unsigned long":      "l",
	"long long":          "K",
	"unsigned long long": "k",
	"float":              "f",
	"double":             "d",
	"long double":        "D",
	"wchar_t":            "W",
	"char16_t":           "q",
	"char32_t":           "w",
}

// writeType encodes a parameter type: "1" for const, "*" per pointer, "&"
// per reference, "[" per array level, then a builtin code or "$" followed by
// the named type's identity. Java generics are erased first.
func writeType(b *strings.Builder, t *decl.TypeRef, lang decl.Language) {
	if t == nil {
		b.WriteString("?")
		return
	}

	s := strings.TrimSpace(eraseTypeArgs(t.Spelling))
	var mods strings.Builder
	for done := false; !done; s = strings.TrimSpace(s) {
		switch {
		case strings.HasSuffix(s, "*"):
			mods.WriteString("*")
			s = s[:len(s)-1]
		case strings.HasSuffix(s, "&"):
			mods.WriteString("&")
			s = s[:len(s)-1]
		case strings.HasSuffix(s, "[]"):
			mods.WriteString("[")
			s = s[:len(s)-2]
		case strings.HasSuffix(s, "..."):
			mods.WriteString("[")
			s = s[:len(s)-3]
		case strings.HasPrefix(s, "*"):
			mods.WriteString("*")
			s = s[1:]
		case strings.HasPrefix(s, "[]"):
			mods.WriteString("[")
			s = s[2:]
		default:
			done = true
		}
	}

	var words []string
	qualified := false
	for _, w := range strings.Fields(s) {
		switch w {
		case "const", "volatile", "final":
			qualified = true
		case "struct", "union", "enum", "class":
		default:
			words = append(words, w)
		}
	}
	base := strings.Join(words, " ")

	b.WriteString(mods.String())
	if qualified {
		b.WriteString("1")
	}
	if base == "char" && lang == decl.LangJava {
		b.WriteString("q")
		return
	}
	if code, ok := builtinTypes[base]; ok {
		b.WriteString(code)
		return
	}
	if t.Decl != nil {
		if id, err := Generate(t.Decl); err == nil {
			b.WriteString("$" + strings.TrimPrefix(id, Prefix))
			return
		}
	}
	b.WriteString("$@S@" + base)
}

// eraseTypeArgs drops every <...> group from a type spelling.
func eraseTypeArgs(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch {
		case r == '<':
			depth++
		case r == '>' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// writeFilePrefix scopes internal-linkage entities to their file.
func writeFilePrefix(b *strings.Builder, d *decl.Decl) {
	if d.Linkage != decl.LinkageInternal || d.Loc.File == "" {
		return
	}
	b.WriteString(filepath.Base(d.Loc.File))
}

func noUSR(d *decl.Decl) error {
	return fmt.Errorf("%w: %s", ErrNoUSR, d)
}

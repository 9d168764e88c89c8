package decl

import "fmt"

// Kind is the most-derived kind of a declaration node.
// The set is closed: every value below NumKinds is a concrete, instantiable kind.
type Kind int

const (
	KindTranslationUnit Kind = iota
	KindNamespace
	KindLinkageSpec
	KindFunction
	KindVar
	KindParmVar
	KindField
	KindEnumConstant
	KindEnum
	KindRecord
	KindCXXRecord
	KindCXXMethod
	KindCXXConstructor
	KindCXXDestructor
	KindTypedef
	KindTypeAlias
	KindObjCInterface
	KindObjCImplementation
	KindObjCProtocol
	KindObjCCategory
	KindObjCCategoryImpl
	KindObjCMethod
	KindObjCProperty
	KindObjCIvar
	KindObjCPropertyImpl
	KindUsing
	KindUsingDirective
	KindStaticAssert
	KindLabel
	KindBlock
	KindImport
	KindFileScopeAsm
	KindFriend
	KindAccessSpec
	KindEmpty

	// NumKinds is the number of concrete declaration kinds.
	NumKinds
)

var kindNames = [NumKinds]string{
	KindTranslationUnit:    "TranslationUnit",
	KindNamespace:          "Namespace",
	KindLinkageSpec:        "LinkageSpec",
	KindFunction:           "Function",
	KindVar:                "Var",
	KindParmVar:            "ParmVar",
	KindField:              "Field",
	KindEnumConstant:       "EnumConstant",
	KindEnum:               "Enum",
	KindRecord:             "Record",
	KindCXXRecord:          "CXXRecord",
	KindCXXMethod:          "CXXMethod",
	KindCXXConstructor:     "CXXConstructor",
	KindCXXDestructor:      "CXXDestructor",
	KindTypedef:            "Typedef",
	KindTypeAlias:          "TypeAlias",
	KindObjCInterface:      "ObjCInterface",
	KindObjCImplementation: "ObjCImplementation",
	KindObjCProtocol:       "ObjCProtocol",
	KindObjCCategory:       "ObjCCategory",
	KindObjCCategoryImpl:   "ObjCCategoryImpl",
	KindObjCMethod:         "ObjCMethod",
	KindObjCProperty:       "ObjCProperty",
	KindObjCIvar:           "ObjCIvar",
	KindObjCPropertyImpl:   "ObjCPropertyImpl",
	KindUsing:              "Using",
	KindUsingDirective:     "UsingDirective",
	KindStaticAssert:       "StaticAssert",
	KindLabel:              "Label",
	KindBlock:              "Block",
	KindImport:             "Import",
	KindFileScopeAsm:       "FileScopeAsm",
	KindFriend:             "Friend",
	KindAccessSpec:         "AccessSpec",
	KindEmpty:              "Empty",
}

var nameToKind map[string]Kind

func init() {
	nameToKind = make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		nameToKind[name] = Kind(k)
	}
}

// String returns the kind's name.
func (k Kind) String() string {
	if k.Valid() {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Valid reports whether k is one of the concrete kinds.
func (k Kind) Valid() bool {
	return k >= 0 && k < NumKinds
}

// ParseKind converts a kind name (as returned by String) to a Kind.
func ParseKind(name string) (Kind, bool) {
	k, ok := nameToKind[name]
	return k, ok
}

// IsObjCContainer reports whether k is a class-like Objective-C container
// (interface, implementation, protocol, category or category implementation).
func (k Kind) IsObjCContainer() bool {
	switch k {
	case KindObjCInterface, KindObjCImplementation, KindObjCProtocol,
		KindObjCCategory, KindObjCCategoryImpl:
		return true
	}
	return false
}

// IsTag reports whether k is a tag type (struct, union, class or enum).
func (k Kind) IsTag() bool {
	switch k {
	case KindEnum, KindRecord, KindCXXRecord:
		return true
	}
	return false
}

// IsRecordableContainer reports whether a declaration of kind k owns member
// records in the registry.
func (k Kind) IsRecordableContainer() bool {
	return k.IsObjCContainer() || k.IsTag()
}

// IsFunctionLike reports whether k has a body whose declarations are local.
func (k Kind) IsFunctionLike() bool {
	switch k {
	case KindFunction, KindCXXMethod, KindCXXConstructor, KindCXXDestructor,
		KindObjCMethod, KindBlock:
		return true
	}
	return false
}

// IsFileContext reports whether declarations directly inside k are at file
// scope (translation unit, namespace, linkage specification).
func (k Kind) IsFileContext() bool {
	switch k {
	case KindTranslationUnit, KindNamespace, KindLinkageSpec:
		return true
	}
	return false
}

// TagKind distinguishes the flavours of tag declarations.
type TagKind int

const (
	TagNone TagKind = iota
	TagStruct
	TagUnion
	TagClass
	TagInterface
	TagEnum
)

var tagNames = map[TagKind]string{
	TagNone:      "",
	TagStruct:    "struct",
	TagUnion:     "union",
	TagClass:     "class",
	TagInterface: "interface",
	TagEnum:      "enum",
}

func (t TagKind) String() string {
	return tagNames[t]
}

// ParseTagKind converts a tag keyword to a TagKind. Unknown keywords map to TagNone.
func ParseTagKind(s string) TagKind {
	for t, name := range tagNames {
		if name == s && s != "" {
			return t
		}
	}
	return TagNone
}

// Linkage is the linkage computed by the front end.
type Linkage int

const (
	LinkageNone Linkage = iota
	LinkageInternal
	LinkageUniqueExternal
	LinkageModule
	LinkageExternal
)

var linkageNames = map[Linkage]string{
	LinkageNone:           "none",
	LinkageInternal:       "internal",
	LinkageUniqueExternal: "unique-external",
	LinkageModule:         "module",
	LinkageExternal:       "external",
}

func (l Linkage) String() string {
	return linkageNames[l]
}

// ParseLinkage converts a linkage name to a Linkage. Unknown names map to LinkageNone.
func ParseLinkage(s string) Linkage {
	for l, name := range linkageNames {
		if name == s {
			return l
		}
	}
	return LinkageNone
}

// IsExternallyVisible reports whether the linkage is visible outside its unit.
func (l Linkage) IsExternallyVisible() bool {
	return l == LinkageExternal || l == LinkageModule
}

// Visibility is the symbol visibility attached to a declaration.
type Visibility int

const (
	VisibilityDefault Visibility = iota
	VisibilityProtected
	VisibilityHidden
)

var visibilityNames = map[Visibility]string{
	VisibilityDefault:   "default",
	VisibilityProtected: "protected",
	VisibilityHidden:    "hidden",
}

func (v Visibility) String() string {
	return visibilityNames[v]
}

// ParseVisibility converts a visibility name. Unknown names map to VisibilityDefault.
func ParseVisibility(s string) Visibility {
	for v, name := range visibilityNames {
		if name == s {
			return v
		}
	}
	return VisibilityDefault
}

// Language is the source language of a unit or declaration.
type Language string

const (
	LangC      Language = "c"
	LangObjC   Language = "objective-c"
	LangCXX    Language = "c++"
	LangGo     Language = "go"
	LangJava   Language = "java"
	LangObjCXX Language = "objective-c++"
)

// IsCFamily reports whether the language uses C declaration syntax.
func (l Language) IsCFamily() bool {
	switch l {
	case LangC, LangObjC, LangCXX, LangObjCXX, "":
		return true
	}
	return false
}

package apiset

import (
	"github.com/mvp-joe/apigraph/internal/comment"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/fragments"
)

// RecordKind classifies an extracted symbol record.
type RecordKind string

const (
	KindGlobalFunction  RecordKind = "func"
	KindGlobalVariable  RecordKind = "var"
	KindEnum            RecordKind = "enum"
	KindEnumConstant    RecordKind = "enum.case"
	KindStruct          RecordKind = "struct"
	KindUnion           RecordKind = "union"
	KindStructField     RecordKind = "property"
	KindClass           RecordKind = "class"
	KindInterface       RecordKind = "interface"
	KindInstanceMethod  RecordKind = "method"
	KindClassMethod     RecordKind = "type.method"
	KindConstructor     RecordKind = "init"
	KindDestructor      RecordKind = "deinit"
	KindTypedef         RecordKind = "typealias"
	KindObjCInterface   RecordKind = "objc.class"
	KindObjCCategory    RecordKind = "objc.category"
	KindObjCProtocol    RecordKind = "objc.protocol"
	KindObjCInstMethod  RecordKind = "objc.method"
	KindObjCClassMethod RecordKind = "objc.type.method"
	KindObjCProperty    RecordKind = "objc.property"
	KindObjCClassProp   RecordKind = "objc.type.property"
	KindObjCIvar        RecordKind = "objc.ivar"
)

var displayNames = map[RecordKind]string{
	KindGlobalFunction:  "Function",
	KindGlobalVariable:  "Global Variable",
	KindEnum:            "Enumeration",
	KindEnumConstant:    "Enumeration Case",
	KindStruct:          "Structure",
	KindUnion:           "Union",
	KindStructField:     "Instance Property",
	KindClass:           "Class",
	KindInterface:       "Interface",
	KindInstanceMethod:  "Instance Method",
	KindClassMethod:     "Type Method",
	KindConstructor:     "Constructor",
	KindDestructor:      "Destructor",
	KindTypedef:         "Type Alias",
	KindObjCInterface:   "Class",
	KindObjCCategory:    "Class Extension",
	KindObjCProtocol:    "Protocol",
	KindObjCInstMethod:  "Instance Method",
	KindObjCClassMethod: "Type Method",
	KindObjCProperty:    "Instance Property",
	KindObjCClassProp:   "Type Property",
	KindObjCIvar:        "Instance Variable",
}

// DisplayName returns the human readable kind name.
func (k RecordKind) DisplayName() string {
	if n, ok := displayNames[k]; ok {
		return n
	}
	return string(k)
}

// SymbolReference names another symbol by USR, keeping its name as a fallback
// when the target is not in the registry.
type SymbolReference struct {
	Name string
	USR  string
}

// Empty reports whether the reference is unset.
func (r SymbolReference) Empty() bool {
	return r.Name == "" && r.USR == ""
}

// Record is the extracted description of one API entity.
type Record struct {
	USR  string
	Name string
	Kind RecordKind

	Location           decl.Location
	IsFromSystemHeader bool

	Availability []decl.Availability
	Linkage      decl.Linkage
	Comment      comment.DocComment

	Declaration *fragments.Fragments
	SubHeading  *fragments.Fragments

	// Parent is the container owning a member record.
	Parent SymbolReference
	// SuperClass is set for class-like records.
	SuperClass SymbolReference
	Protocols  []SymbolReference
	// Interface is the class a category extends.
	Interface SymbolReference
	// Underlying is the aliased type of a typedef.
	Underlying SymbolReference

	Members []*Record
}

// Member returns the member record with the given USR.
func (r *Record) Member(usr string) (*Record, bool) {
	for _, m := range r.Members {
		if m.USR == usr {
			return m, true
		}
	}
	return nil, false
}

// MemberNames returns the names of the record's members in order.
func (r *Record) MemberNames() []string {
	names := make([]string, len(r.Members))
	for i, m := range r.Members {
		names[i] = m.Name
	}
	return names
}

// merge fills facts missing from r with those of other. Facts already present
// are kept, so merging is order-independent for disjoint facts and idempotent.
func (r *Record) merge(other *Record) {
	if r.Name == "" {
		r.Name = other.Name
	}
	if r.Kind == "" {
		r.Kind = other.Kind
	}
	if !r.Location.Valid() {
		r.Location = other.Location
	}
	if len(r.Availability) == 0 {
		r.Availability = other.Availability
	}
	if r.Linkage == decl.LinkageNone {
		r.Linkage = other.Linkage
	}
	if r.Comment.Empty() {
		r.Comment = other.Comment
	}
	if r.Declaration.Len() == 0 {
		r.Declaration = other.Declaration
	}
	if r.SubHeading.Len() == 0 {
		r.SubHeading = other.SubHeading
	}
	if r.SuperClass.Empty() {
		r.SuperClass = other.SuperClass
	}
	if r.Interface.Empty() {
		r.Interface = other.Interface
	}
	if r.Underlying.Empty() {
		r.Underlying = other.Underlying
	}
	for _, p := range other.Protocols {
		if !hasReference(r.Protocols, p) {
			r.Protocols = append(r.Protocols, p)
		}
	}
	r.IsFromSystemHeader = r.IsFromSystemHeader && other.IsFromSystemHeader
}

func hasReference(refs []SymbolReference, ref SymbolReference) bool {
	for _, r := range refs {
		if r.USR == ref.USR && r.Name == ref.Name {
			return true
		}
	}
	return false
}

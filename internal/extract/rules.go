package extract

import (
	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/comment"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/fragments"
	"github.com/mvp-joe/apigraph/internal/usr"
)

// rule records d into the visitor's registry. Rules never dispatch or walk
// other declarations; related declarations are only referenced.
type rule func(v *Visitor, d *decl.Decl)

// rules maps every concrete kind to its extraction rule. Member kinds are
// recorded through their container and have no rule of their own.
var rules = [decl.NumKinds]rule{
	decl.KindTranslationUnit:    skipKind,
	decl.KindNamespace:          skipKind,
	decl.KindLinkageSpec:        skipKind,
	decl.KindFunction:           recordFunction,
	decl.KindVar:                recordVariable,
	decl.KindParmVar:            skipKind,
	decl.KindField:              memberKind,
	decl.KindEnumConstant:       memberKind,
	decl.KindEnum:               recordEnum,
	decl.KindRecord:             recordStruct,
	decl.KindCXXRecord:          recordClass,
	decl.KindCXXMethod:          memberKind,
	decl.KindCXXConstructor:     memberKind,
	decl.KindCXXDestructor:      memberKind,
	decl.KindTypedef:            recordTypedef,
	decl.KindTypeAlias:          recordTypedef,
	decl.KindObjCInterface:      recordObjCInterface,
	decl.KindObjCImplementation: recordObjCImplementation,
	decl.KindObjCProtocol:       recordObjCProtocol,
	decl.KindObjCCategory:       recordObjCCategory,
	decl.KindObjCCategoryImpl:   recordObjCCategoryImpl,
	decl.KindObjCMethod:         memberKind,
	decl.KindObjCProperty:       memberKind,
	decl.KindObjCIvar:           memberKind,
	decl.KindObjCPropertyImpl:   skipKind,
	decl.KindUsing:              skipKind,
	decl.KindUsingDirective:     skipKind,
	decl.KindStaticAssert:       skipKind,
	decl.KindLabel:              skipKind,
	decl.KindBlock:              skipKind,
	decl.KindImport:             skipKind,
	decl.KindFileScopeAsm:       skipKind,
	decl.KindFriend:             skipKind,
	decl.KindAccessSpec:         skipKind,
	decl.KindEmpty:              skipKind,
}

func skipKind(*Visitor, *decl.Decl) {}

func memberKind(*Visitor, *decl.Decl) {}

func recordFunction(v *Visitor, d *decl.Decl) {
	if !atFileScope(d) {
		return
	}
	if r := v.newRecord(d, apiset.KindGlobalFunction); r != nil {
		v.api.Upsert(r)
	}
}

func recordVariable(v *Visitor, d *decl.Decl) {
	if !atFileScope(d) {
		return
	}
	if r := v.newRecord(d, apiset.KindGlobalVariable); r != nil {
		v.api.Upsert(r)
	}
}

func recordEnum(v *Visitor, d *decl.Decl) {
	r := v.newRecord(d, apiset.KindEnum)
	if r == nil {
		return
	}
	r = v.upsertType(d, r)
	v.addMembers(r, d.EnumConstants(), func(*decl.Decl) apiset.RecordKind {
		return apiset.KindEnumConstant
	})
}

func recordStruct(v *Visitor, d *decl.Decl) {
	kind := apiset.KindStruct
	if d.Tag == decl.TagUnion {
		kind = apiset.KindUnion
	}
	r := v.newRecord(d, kind)
	if r == nil {
		return
	}
	r = v.upsertType(d, r)
	v.addMembers(r, d.Fields(), fieldKind)
}

func recordClass(v *Visitor, d *decl.Decl) {
	kind := apiset.KindClass
	switch d.Tag {
	case decl.TagStruct:
		kind = apiset.KindStruct
	case decl.TagUnion:
		kind = apiset.KindUnion
	case decl.TagInterface:
		kind = apiset.KindInterface
	}
	r := v.newRecord(d, kind)
	if r == nil {
		return
	}
	r.SuperClass = typeReference(d.SuperClass())
	r.Protocols = typeReferences(d.Protocols)
	r = v.upsertType(d, r)
	v.addMembers(r, d.Fields(), fieldKind)
	v.addMembers(r, d.Methods(), methodKind)
}

func recordTypedef(v *Visitor, d *decl.Decl) {
	if !atFileScope(d) && !d.SemanticParent().Kind.IsRecordableContainer() {
		return
	}
	r := v.newRecord(d, apiset.KindTypedef)
	if r == nil {
		return
	}
	r.Underlying = typeReference(d.Type)
	v.upsertType(d, r)
}

func recordObjCInterface(v *Visitor, d *decl.Decl) {
	r := v.newRecord(d, apiset.KindObjCInterface)
	if r == nil {
		return
	}
	r.SuperClass = typeReference(d.SuperClass())
	r.Protocols = typeReferences(d.Protocols)
	r = v.api.Upsert(r)
	v.addObjCMembers(r, d)
}

func recordObjCProtocol(v *Visitor, d *decl.Decl) {
	r := v.newRecord(d, apiset.KindObjCProtocol)
	if r == nil {
		return
	}
	r.Protocols = typeReferences(d.Protocols)
	r = v.api.Upsert(r)
	v.addMembers(r, d.Methods(), methodKind)
	v.addMembers(r, d.Properties(), propertyKind)
}

func recordObjCCategory(v *Visitor, d *decl.Decl) {
	r := v.newRecord(d, apiset.KindObjCCategory)
	if r == nil {
		return
	}
	r.Interface = declReference(d.ClassInterface())
	r.Protocols = typeReferences(d.Protocols)
	r = v.api.Upsert(r)
	v.addObjCMembers(r, d)
}

// recordObjCImplementation records an @implementation under its own USR
// (shared with the class interface) while presenting the interface: the name
// and signature come from the interface, the comment from the implementation
// falling back to the interface, and the members from the implementation.
func recordObjCImplementation(v *Visitor, d *decl.Decl) {
	iface := d.ClassInterface()
	if iface == nil {
		v.skip(d, "implementation without class interface")
		return
	}
	r := v.newSplitRecord(d, iface, apiset.KindObjCInterface)
	if r == nil {
		return
	}
	r.SuperClass = typeReference(iface.SuperClass())
	upsertSplit(v, d, r)
}

// recordObjCCategoryImpl applies the implementation rule to a category
// implementation and its category.
func recordObjCCategoryImpl(v *Visitor, d *decl.Decl) {
	category := d.Category
	if category == nil {
		v.skip(d, "category implementation without category")
		return
	}
	r := v.newSplitRecord(d, category, apiset.KindObjCCategory)
	if r == nil {
		return
	}
	r.Interface = declReference(d.ClassInterface())
	upsertSplit(v, d, r)
}

// upsertSplit registers an implementation record. A comment written on the
// implementation itself replaces whatever the interface contributed.
func upsertSplit(v *Visitor, d *decl.Decl, r *apiset.Record) {
	own := r.Comment
	r = v.api.Upsert(r)
	if d.RawComment != "" {
		r.Comment = own
	}
	v.addObjCMembers(r, d)
}

// newRecord builds the record for d, or returns nil when d is excluded or
// has no identity.
func (v *Visitor) newRecord(d *decl.Decl, kind apiset.RecordKind) *apiset.Record {
	if !v.include(d) {
		return nil
	}
	id, err := usr.Generate(d)
	if err != nil {
		v.skip(d, err.Error())
		return nil
	}
	return &apiset.Record{
		USR:                id,
		Name:               d.Name,
		Kind:               kind,
		Location:           d.Loc,
		IsFromSystemHeader: v.inSystemHeader(d),
		Availability:       d.Availability,
		Linkage:            d.Linkage,
		Comment:            comment.Format(d.RawCommentForAnyRedecl()),
		Declaration:        fragments.ForDecl(d),
		SubHeading:         fragments.SubHeading(d),
	}
}

// newSplitRecord builds the record of an implementation d whose public
// contract is declared by iface.
func (v *Visitor) newSplitRecord(d, iface *decl.Decl, kind apiset.RecordKind) *apiset.Record {
	if !v.include(d) {
		return nil
	}
	id, err := usr.Generate(d)
	if err != nil {
		v.skip(d, err.Error())
		return nil
	}
	raw := d.RawComment
	if raw == "" {
		raw = iface.RawCommentForAnyRedecl()
	}
	return &apiset.Record{
		USR:                id,
		Name:               iface.Name,
		Kind:               kind,
		Location:           d.Loc,
		IsFromSystemHeader: v.inSystemHeader(d),
		Availability:       d.Availability,
		Linkage:            d.Linkage,
		Comment:            comment.Format(raw),
		Declaration:        fragments.ForDecl(iface),
		SubHeading:         fragments.SubHeading(d),
	}
}

// upsertType registers a tag or typedef record. Types nested in another
// recordable container point back at it.
func (v *Visitor) upsertType(d *decl.Decl, r *apiset.Record) *apiset.Record {
	if p := d.SemanticParent(); p != nil && p.Kind.IsRecordableContainer() {
		r.Parent = declReference(p)
	}
	return v.api.Upsert(r)
}

func (v *Visitor) addObjCMembers(r *apiset.Record, d *decl.Decl) {
	v.addMembers(r, d.Methods(), methodKind)
	v.addMembers(r, d.Properties(), propertyKind)
	v.addMembers(r, d.Ivars(), func(*decl.Decl) apiset.RecordKind {
		return apiset.KindObjCIvar
	})
}

func (v *Visitor) addMembers(parent *apiset.Record, members []*decl.Decl, kindOf func(*decl.Decl) apiset.RecordKind) {
	for _, m := range members {
		if !v.accept(m) {
			continue
		}
		id, err := usr.Generate(m)
		if err != nil {
			v.skip(m, err.Error())
			continue
		}
		v.api.AddMember(parent, &apiset.Record{
			USR:                id,
			Name:               m.Name,
			Kind:               kindOf(m),
			Location:           m.Loc,
			IsFromSystemHeader: v.inSystemHeader(m),
			Availability:       m.Availability,
			Linkage:            m.Linkage,
			Comment:            comment.Format(m.RawCommentForAnyRedecl()),
			Declaration:        fragments.ForDecl(m),
			SubHeading:         fragments.SubHeading(m),
		})
	}
}

func fieldKind(*decl.Decl) apiset.RecordKind {
	return apiset.KindStructField
}

func methodKind(m *decl.Decl) apiset.RecordKind {
	switch m.Kind {
	case decl.KindCXXConstructor:
		return apiset.KindConstructor
	case decl.KindCXXDestructor:
		return apiset.KindDestructor
	case decl.KindObjCMethod:
		if m.ClassMember {
			return apiset.KindObjCClassMethod
		}
		return apiset.KindObjCInstMethod
	}
	if m.ClassMember {
		return apiset.KindClassMethod
	}
	return apiset.KindInstanceMethod
}

func propertyKind(m *decl.Decl) apiset.RecordKind {
	if m.ClassMember {
		return apiset.KindObjCClassProp
	}
	return apiset.KindObjCProperty
}

func atFileScope(d *decl.Decl) bool {
	p := d.SemanticParent()
	return p == nil || p.Kind.IsFileContext()
}

func declReference(d *decl.Decl) apiset.SymbolReference {
	if d == nil {
		return apiset.SymbolReference{}
	}
	return apiset.SymbolReference{Name: d.Name, USR: usr.MustGenerate(d)}
}

func typeReference(t *decl.TypeRef) apiset.SymbolReference {
	if t == nil {
		return apiset.SymbolReference{}
	}
	name := t.Name
	if name == "" {
		name = t.Spelling
	}
	ref := apiset.SymbolReference{Name: name}
	if t.Decl != nil {
		ref.USR = usr.MustGenerate(t.Decl)
		if ref.Name == "" {
			ref.Name = t.Decl.Name
		}
	}
	return ref
}

func typeReferences(ts []*decl.TypeRef) []apiset.SymbolReference {
	var out []apiset.SymbolReference
	for _, t := range ts {
		if ref := typeReference(t); !ref.Empty() {
			out = append(out, ref)
		}
	}
	return out
}

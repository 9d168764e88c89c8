package serializer

import (
	"github.com/mvp-joe/apigraph/internal/apiset"
)

// SerializeSingleSymbol renders the record with the given USR together with
// the symbols that give it context: its containers and the registry records
// its declaration refers to. It reports false when usr is not in api.
func SerializeSingleSymbol(usr string, api *apiset.APISet, opts ...Option) (*SingleSymbol, bool) {
	if api == nil || api.Released() {
		return nil, false
	}
	r, ok := api.Find(usr)
	if !ok {
		return nil, false
	}
	s, err := newSerializer(api, opts...)
	if err != nil {
		return nil, false
	}

	doc := &SingleSymbol{
		Symbols:        []Symbol{s.symbol(r)},
		RelatedSymbols: []RelatedSymbol{},
		Relationships:  []Relationship{},
	}

	seen := map[string]bool{r.USR: true}
	for _, a := range s.ancestors(r) {
		seen[a.USR] = true
		doc.RelatedSymbols = append(doc.RelatedSymbols, s.related(a))
	}
	for _, f := range r.Declaration.Items() {
		id := f.PreciseIdentifier
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if ref, ok := api.Find(id); ok {
			doc.RelatedSymbols = append(doc.RelatedSymbols, s.related(ref))
		}
	}

	for _, other := range api.All() {
		for _, rel := range relationships(other) {
			if rel.Source == usr || rel.Target == usr {
				doc.Relationships = append(doc.Relationships, rel)
			}
		}
	}
	return doc, true
}

func (s *serializer) related(r *apiset.Record) RelatedSymbol {
	return RelatedSymbol{
		USR:                 r.USR,
		Name:                r.Name,
		Kind:                kindIdentifier(s.language(), r.Kind),
		AccessLevel:         accessPublic,
		FromSystemHeader:    r.IsFromSystemHeader,
		SubHeading:          convertFragments(r.SubHeading),
		DeclarationLanguage: s.language(),
		ModuleName:          s.moduleName(),
	}
}

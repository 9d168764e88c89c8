package extract

import (
	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/usr"
)

// Reconstruct builds a registry holding just enough records to describe the
// declaration c refers to: the declaration itself, its immediate recordable
// container, and every declaration its rendered signature references (each
// with its own immediate container). It returns the registry and the USR of
// the anchor record.
//
// ok is false when c does not denote a declaration, the declaration has no
// USR, or no record was produced for it (e.g. the predicate excluded it).
// The work done is bounded by the size of one signature, not of the program.
func Reconstruct(c decl.Cursor, opts ...Option) (api *apiset.APISet, id string, ok bool) {
	ref := c.Referenced()
	if !ref.Kind.IsDeclaration() || ref.Decl == nil || ref.Unit == nil {
		return nil, "", false
	}

	d := ref.Decl.Canonical()
	if d == nil {
		d = ref.Decl
	}
	id, err := usr.Generate(d)
	if err != nil {
		return nil, "", false
	}

	u := ref.Unit
	api = apiset.New(u.Target, u.Language, u.MainFile)
	v := New(api, opts...)
	v.WalkUp(d)

	r, found := api.Find(id)
	if !found {
		return nil, "", false
	}
	for _, referenced := range r.Declaration.Referenced() {
		v.WalkUp(referenced)
	}
	return api, id, true
}

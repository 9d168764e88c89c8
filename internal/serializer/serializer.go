// Package serializer renders an API registry as a symbol graph document.
//
// Containment (members and nested types) is modelled as a directed acyclic
// graph keyed by USR. It gives every symbol its path components and fixes a
// deterministic output order: containers first, then registry order.
package serializer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/dominikbraun/graph"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/fragments"
)

const accessPublic = "public"

// Option configures serialization.
type Option func(*options)

type options struct {
	moduleName    string
	includeSystem bool
}

// WithModuleName overrides the module name derived from the main file.
func WithModuleName(name string) Option {
	return func(o *options) {
		o.moduleName = name
	}
}

// WithSystemSymbols keeps records declared in system headers in whole-graph
// output.
func WithSystemSymbols() Option {
	return func(o *options) {
		o.includeSystem = true
	}
}

type serializer struct {
	api   *apiset.APISet
	opts  options
	g     graph.Graph[string, *apiset.Record]
	rank  map[string]int
	preds map[string]map[string]graph.Edge[string]
}

func newSerializer(api *apiset.APISet, opts ...Option) (*serializer, error) {
	s := &serializer{
		api:  api,
		g:    graph.New(func(r *apiset.Record) string { return r.USR }, graph.Directed(), graph.PreventCycles()),
		rank: make(map[string]int),
	}
	for _, opt := range opts {
		opt(&s.opts)
	}

	api.Walk(func(r *apiset.Record) {
		if _, seen := s.rank[r.USR]; seen {
			return
		}
		s.rank[r.USR] = len(s.rank)
		if err := s.g.AddVertex(r); err != nil && !errors.Is(err, graph.ErrVertexAlreadyExists) {
			slog.Warn("failed to add symbol", "usr", r.USR, "error", err)
		}
	})

	api.Walk(func(r *apiset.Record) {
		if r.Parent.USR == "" {
			return
		}
		if _, ok := s.rank[r.Parent.USR]; !ok {
			return
		}
		err := s.g.AddEdge(r.Parent.USR, r.USR)
		switch {
		case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			slog.Warn("ignoring cyclic containment", "parent", r.Parent.USR, "member", r.USR)
		default:
			slog.Warn("failed to link member", "parent", r.Parent.USR, "member", r.USR, "error", err)
		}
	})

	preds, err := s.g.PredecessorMap()
	if err != nil {
		return nil, fmt.Errorf("failed to compute containment: %w", err)
	}
	s.preds = preds
	return s, nil
}

// Serialize renders the whole registry. Records declared in system headers
// are left out unless WithSystemSymbols is given.
func Serialize(api *apiset.APISet, opts ...Option) (*Graph, error) {
	if api == nil || api.Released() {
		return nil, errors.New("serialize: no api set")
	}
	s, err := newSerializer(api, opts...)
	if err != nil {
		return nil, err
	}

	order, err := graph.StableTopologicalSort(s.g, func(a, b string) bool {
		return s.rank[a] < s.rank[b]
	})
	if err != nil {
		return nil, fmt.Errorf("failed to order symbols: %w", err)
	}

	out := &Graph{
		Metadata:      Metadata{FormatVersion: FormatVersion, Generator: Generator},
		Module:        Module{Name: s.moduleName(), Platform: ParsePlatform(api.Target)},
		Symbols:       []Symbol{},
		Relationships: []Relationship{},
	}
	for _, id := range order {
		r, err := s.g.Vertex(id)
		if err != nil {
			continue
		}
		if r.IsFromSystemHeader && !s.opts.includeSystem {
			continue
		}
		out.Symbols = append(out.Symbols, s.symbol(r))
		out.Relationships = append(out.Relationships, relationships(r)...)
	}
	return out, nil
}

// Marshal encodes a document as JSON.
func Marshal(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

func (s *serializer) moduleName() string {
	if s.opts.moduleName != "" {
		return s.opts.moduleName
	}
	base := filepath.Base(s.api.MainFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *serializer) language() string {
	if s.api.Language == "" {
		return string(decl.LangC)
	}
	return string(s.api.Language)
}

func (s *serializer) symbol(r *apiset.Record) Symbol {
	lang := s.language()
	sym := Symbol{
		Identifier: Identifier{Precise: r.USR, InterfaceLanguage: lang},
		Kind: SymbolKind{
			Identifier:  kindIdentifier(lang, r.Kind),
			DisplayName: r.Kind.DisplayName(),
		},
		Names: Names{
			Title:      r.Name,
			Navigator:  []Fragment{{Kind: string(fragments.KindIdentifier), Spelling: r.Name}},
			SubHeading: convertFragments(r.SubHeading),
		},
		PathComponents:       s.pathComponents(r),
		DeclarationFragments: convertFragments(r.Declaration),
		Availability:         convertAvailability(r.Availability),
		AccessLevel:          accessPublic,
	}
	if !r.Comment.Empty() {
		sym.DocComment = &DocComment{Lines: r.Comment}
	}
	if r.Location.Valid() {
		sym.Location = &Location{
			URI: fileURI(r.Location.File),
			Position: Position{
				Line:      max(r.Location.Line-1, 0),
				Character: max(r.Location.Column-1, 0),
			},
		}
	}
	return sym
}

// kindIdentifier qualifies a record kind with the interface language, as in
// "c.func" or "objective-c.method".
func kindIdentifier(lang string, kind apiset.RecordKind) string {
	return lang + "." + strings.TrimPrefix(string(kind), "objc.")
}

// parent returns the container of usr within the registry, if any.
func (s *serializer) parent(usr string) (*apiset.Record, bool) {
	best := ""
	for p := range s.preds[usr] {
		if best == "" || s.rank[p] < s.rank[best] {
			best = p
		}
	}
	if best == "" {
		return nil, false
	}
	r, err := s.g.Vertex(best)
	return r, err == nil
}

// ancestors returns the containers of r, innermost first.
func (s *serializer) ancestors(r *apiset.Record) []*apiset.Record {
	var out []*apiset.Record
	seen := map[string]bool{r.USR: true}
	for cur := r; ; {
		p, ok := s.parent(cur.USR)
		if !ok || seen[p.USR] {
			return out
		}
		seen[p.USR] = true
		out = append(out, p)
		cur = p
	}
}

func (s *serializer) pathComponents(r *apiset.Record) []string {
	chain := s.ancestors(r)
	outermost := r
	if len(chain) > 0 {
		outermost = chain[len(chain)-1]
	}

	var path []string
	// A container missing from the registry still contributes its name.
	if ref := outermost.Parent; !ref.Empty() {
		if _, ok := s.rank[ref.USR]; !ok && ref.Name != "" {
			path = append(path, ref.Name)
		}
	}
	for i := len(chain) - 1; i >= 0; i-- {
		path = append(path, chain[i].Name)
	}
	return append(path, r.Name)
}

func relationships(r *apiset.Record) []Relationship {
	var out []Relationship
	if !r.Parent.Empty() {
		out = append(out, relationship(RelMemberOf, r.USR, r.Parent))
	}
	if !r.SuperClass.Empty() {
		out = append(out, relationship(RelInheritsFrom, r.USR, r.SuperClass))
	}
	for _, p := range r.Protocols {
		out = append(out, relationship(RelConformsTo, r.USR, p))
	}
	if r.Kind == apiset.KindObjCCategory && !r.Interface.Empty() {
		out = append(out, relationship(RelExtensionTo, r.USR, r.Interface))
	}
	return out
}

func relationship(kind, source string, target apiset.SymbolReference) Relationship {
	return Relationship{Kind: kind, Source: source, Target: target.USR, TargetFallback: target.Name}
}

func convertFragments(f *fragments.Fragments) []Fragment {
	items := f.Items()
	if len(items) == 0 {
		return nil
	}
	out := make([]Fragment, len(items))
	for i, it := range items {
		out[i] = Fragment{Kind: string(it.Kind), Spelling: it.Spelling, PreciseIdentifier: it.PreciseIdentifier}
	}
	return out
}

func convertAvailability(list []decl.Availability) []Availability {
	var out []Availability
	for _, a := range list {
		out = append(out, Availability{
			Domain:                       a.Domain,
			Introduced:                   parseVersion(a.Introduced),
			Deprecated:                   parseVersion(a.Deprecated),
			Obsoleted:                    parseVersion(a.Obsoleted),
			IsUnconditionallyDeprecated:  a.IsUnconditionallyDeprecated(),
			IsUnconditionallyUnavailable: a.IsUnconditionallyUnavailable(),
			Message:                      a.Message,
		})
	}
	return out
}

// parseVersion accepts partial versions such as "10.15".
func parseVersion(s string) *SemanticVersion {
	if s == "" {
		return nil
	}
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil
	}
	return &SemanticVersion{Major: v.Major(), Minor: v.Minor(), Patch: v.Patch()}
}

func fileURI(path string) string {
	return "file://" + filepath.ToSlash(path)
}

// ParsePlatform splits a target triple (arch-vendor-os[-environment]) into a
// platform description. The OS component may carry a minimum version, as in
// "macosx14.0".
func ParsePlatform(triple string) Platform {
	parts := strings.Split(triple, "-")
	var p Platform
	if len(parts) > 0 {
		p.Architecture = parts[0]
	}
	if len(parts) > 1 {
		p.Vendor = parts[1]
	}
	if len(parts) > 2 {
		name := strings.TrimRightFunc(parts[2], func(r rune) bool {
			return r == '.' || (r >= '0' && r <= '9')
		})
		p.OperatingSystem.Name = name
		p.OperatingSystem.MinimumVersion = parseVersion(strings.TrimPrefix(parts[2], name))
	}
	if len(parts) > 3 {
		p.Environment = parts[3]
	}
	return p
}

// Package apiset holds the per-session registry of extracted symbol records.
package apiset

import (
	"errors"

	"github.com/mvp-joe/apigraph/internal/decl"
)

// ErrReleased is returned when a released registry is released again.
var ErrReleased = errors.New("api set already released")

// APISet is the registry of symbol records for one extraction session.
// Target, Language and MainFile identify the session and are never mutated.
// Records are keyed by USR: at most one record exists per USR, and re-adding
// a USR updates the existing record in place.
type APISet struct {
	Target   string
	Language decl.Language
	MainFile string

	records  map[string]*Record // top-level records
	order    []string           // top-level insertion order
	index    map[string]*Record // every record, members included
	released bool
}

// New creates an empty registry.
func New(target string, lang decl.Language, mainFile string) *APISet {
	return &APISet{
		Target:   target,
		Language: lang,
		MainFile: mainFile,
		records:  make(map[string]*Record),
		index:    make(map[string]*Record),
	}
}

// Upsert inserts a top-level record, or merges it into the record already
// registered under the same USR. The registered record is returned.
func (a *APISet) Upsert(r *Record) *Record {
	if existing, ok := a.records[r.USR]; ok {
		existing.merge(r)
		return existing
	}
	a.records[r.USR] = r
	a.order = append(a.order, r.USR)
	a.index[r.USR] = r
	return r
}

// AddMember adds m to parent's members, or merges it into the member already
// present under the same USR. The registered member is returned.
func (a *APISet) AddMember(parent, m *Record) *Record {
	m.Parent = SymbolReference{Name: parent.Name, USR: parent.USR}
	if existing, ok := parent.Member(m.USR); ok {
		existing.merge(m)
		return existing
	}
	parent.Members = append(parent.Members, m)
	a.index[m.USR] = m
	return m
}

// Find returns the record with the given USR, members included.
func (a *APISet) Find(usr string) (*Record, bool) {
	r, ok := a.index[usr]
	return r, ok
}

// TopLevel returns the top-level records in insertion order.
func (a *APISet) TopLevel() []*Record {
	out := make([]*Record, 0, len(a.order))
	for _, usr := range a.order {
		out = append(out, a.records[usr])
	}
	return out
}

// Len returns the number of top-level records.
func (a *APISet) Len() int {
	return len(a.records)
}

// Count returns the number of records, members included.
func (a *APISet) Count() int {
	return len(a.index)
}

// Walk visits every record depth-first, parents before members.
func (a *APISet) Walk(fn func(*Record)) {
	var visit func(r *Record)
	visit = func(r *Record) {
		fn(r)
		for _, m := range r.Members {
			visit(m)
		}
	}
	for _, r := range a.TopLevel() {
		visit(r)
	}
}

// All returns every record depth-first, members included.
func (a *APISet) All() []*Record {
	out := make([]*Record, 0, len(a.index))
	a.Walk(func(r *Record) { out = append(out, r) })
	return out
}

// Release drops every record. A registry may be released exactly once.
func (a *APISet) Release() error {
	if a.released {
		return ErrReleased
	}
	a.released = true
	a.records = nil
	a.order = nil
	a.index = nil
	return nil
}

// Released reports whether Release has been called.
func (a *APISet) Released() bool {
	return a.released
}

// Package frontend turns source files into declaration trees.
//
// Each language lives in its own sub-package; this package picks one by file
// extension and combines per-file units into the single translation unit that
// extraction consumes.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/frontend/cfamily"
	"github.com/mvp-joe/apigraph/internal/frontend/dump"
	"github.com/mvp-joe/apigraph/internal/frontend/golang"
	"github.com/mvp-joe/apigraph/internal/frontend/java"
	"github.com/mvp-joe/apigraph/internal/usr"
)

// ErrUnsupported is returned for files no front end understands.
var ErrUnsupported = errors.New("unsupported source file")

// Frontend parses one source file into a translation unit.
type Frontend interface {
	Language() decl.Language
	ParseFile(ctx context.Context, path string) (*decl.Unit, error)
}

// PackageFrontend is implemented by front ends whose languages spread one
// scope over several files (a Go package). ParseFiles sees every file at once
// so cross-file references resolve.
type PackageFrontend interface {
	Frontend
	ParseFiles(ctx context.Context, paths []string) (*decl.Unit, error)
}

// Options configure front end construction.
type Options struct {
	// Target is the target triple recorded on every unit.
	Target string
}

// ForPath selects a front end by file extension.
func ForPath(path string, opts Options) (Frontend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return golang.New(opts.Target), nil
	case ".c", ".h":
		return cfamily.New(opts.Target), nil
	case ".java":
		return java.New(opts.Target), nil
	case ".yaml", ".yml":
		return dump.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
}

// Supported reports whether some front end handles path.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go", ".c", ".h", ".java", ".yaml", ".yml":
		return true
	}
	return false
}

// ParseAll parses every path and merges the results. Files sharing a
// package-aware front end are parsed together. progress, when non-nil, is
// called once per file after it has been handled.
func ParseAll(ctx context.Context, paths []string, opts Options, progress func(path string)) (*decl.Unit, error) {
	if len(paths) == 0 {
		return nil, errors.New("no source files")
	}

	var units []*decl.Unit
	grouped := make(map[decl.Language][]string)
	var groupOrder []decl.Language
	packaged := make(map[decl.Language]PackageFrontend)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fe, err := ForPath(path, opts)
		if err != nil {
			return nil, err
		}
		if pf, ok := fe.(PackageFrontend); ok {
			lang := fe.Language()
			if _, seen := packaged[lang]; !seen {
				packaged[lang] = pf
				groupOrder = append(groupOrder, lang)
			}
			grouped[lang] = append(grouped[lang], path)
			continue
		}
		u, err := fe.ParseFile(ctx, path)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
		if progress != nil {
			progress(path)
		}
	}

	for _, lang := range groupOrder {
		u, err := packaged[lang].ParseFiles(ctx, grouped[lang])
		if err != nil {
			return nil, err
		}
		units = append(units, u)
		if progress != nil {
			for _, path := range grouped[lang] {
				progress(path)
			}
		}
	}
	return Merge(units...), nil
}

// Merge combines units into the first one. Top-level declarations of the
// same entity in different files (a prototype in a header and its definition
// in a source file) are linked as redeclarations. It returns nil when no
// unit is given.
func Merge(units ...*decl.Unit) *decl.Unit {
	var live []*decl.Unit
	for _, u := range units {
		if u != nil {
			live = append(live, u)
		}
	}
	if len(live) == 0 {
		return nil
	}

	first := make(map[string]*decl.Decl)
	for _, u := range live {
		for _, d := range u.Decls() {
			linkRedeclaration(first, d)
		}
	}

	out := live[0]
	out.Merge(live[1:]...)
	return out
}

func linkRedeclaration(first map[string]*decl.Decl, d *decl.Decl) {
	switch d.Kind {
	case decl.KindFunction, decl.KindVar, decl.KindRecord, decl.KindEnum, decl.KindTypedef:
	default:
		return
	}
	if d.Linkage == decl.LinkageInternal || d.Previous() != nil {
		return
	}
	id, err := usr.Generate(d)
	if err != nil {
		return
	}
	prev, ok := first[id]
	if !ok {
		first[id] = d
		return
	}
	if prev == d {
		return
	}
	slog.Debug("linking redeclaration", "usr", id, "first", prev.Loc.String(), "redecl", d.Loc.String())
	d.Redeclare(prev)
}

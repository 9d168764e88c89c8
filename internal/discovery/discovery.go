// Package discovery finds the source files to extract from and recognises
// system header locations.
package discovery

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// stateDir is apigraph's own working directory inside a project. It is never
// scanned.
const stateDir = ".apigraph"

// pattern holds a compiled glob plus, for "**/" patterns, a variant that
// matches at the root.
type pattern struct {
	source string
	glob   glob.Glob
	root   glob.Glob
}

func compile(patterns []string) ([]pattern, error) {
	out := make([]pattern, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, err
		}
		cp := pattern{source: p, glob: g}
		// "**/*.h" should match both "widget.h" and "include/widget.h".
		if rest, ok := strings.CutPrefix(p, "**/"); ok {
			if rg, err := glob.Compile(rest, '/'); err == nil {
				cp.root = rg
			}
		}
		out = append(out, cp)
	}
	return out, nil
}

func matchAny(path string, patterns []pattern) bool {
	for _, p := range patterns {
		if p.glob.Match(path) {
			return true
		}
		if p.root != nil && !strings.Contains(path, "/") && p.root.Match(path) {
			return true
		}
	}
	return false
}

// FileDiscovery walks a project tree selecting files by include and ignore globs.
// Patterns are matched against slash-separated paths relative to the root.
type FileDiscovery struct {
	rootDir string
	include []pattern
	ignore  []pattern
}

// New creates a file discovery instance.
func New(rootDir string, include, ignore []string) (*FileDiscovery, error) {
	inc, err := compile(include)
	if err != nil {
		return nil, err
	}
	ign, err := compile(ignore)
	if err != nil {
		return nil, err
	}
	return &FileDiscovery{rootDir: rootDir, include: inc, ignore: ign}, nil
}

// Root returns the directory discovery walks.
func (fd *FileDiscovery) Root() string {
	return fd.rootDir
}

// Discover returns every included, non-ignored file under the root, sorted.
// Ignored directories are not descended into.
func (fd *FileDiscovery) Discover(ctx context.Context) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(fd.rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if fd.IgnoredDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if fd.Ignored(rel) {
			return nil
		}
		if matchAny(rel, fd.include) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Matches reports whether a root-relative path would be discovered.
func (fd *FileDiscovery) Matches(rel string) bool {
	rel = filepath.ToSlash(rel)
	return !fd.Ignored(rel) && matchAny(rel, fd.include)
}

// Ignored reports whether a root-relative file path matches an ignore pattern
// or lies in an ignored directory.
func (fd *FileDiscovery) Ignored(rel string) bool {
	if matchAny(rel, fd.ignore) {
		return true
	}
	for dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." && dir != "/"; dir = filepath.ToSlash(filepath.Dir(dir)) {
		if fd.IgnoredDir(dir) {
			return true
		}
	}
	return false
}

// IgnoredDir reports whether a root-relative directory is skipped. A
// pattern "node_modules" also matches as "node_modules/**".
func (fd *FileDiscovery) IgnoredDir(rel string) bool {
	if rel == stateDir || strings.HasPrefix(rel, stateDir+"/") {
		return true
	}
	return matchAny(rel, fd.ignore) || matchAny(rel+"/**", fd.ignore)
}

// SystemHeaderMatcher decides whether a declaration's file is a system header.
type SystemHeaderMatcher struct {
	patterns []pattern
}

// NewSystemHeaderMatcher compiles system header location globs. Paths are
// matched as given, so patterns for absolute locations should be absolute.
func NewSystemHeaderMatcher(patterns []string) (*SystemHeaderMatcher, error) {
	compiled, err := compile(patterns)
	if err != nil {
		return nil, err
	}
	return &SystemHeaderMatcher{patterns: compiled}, nil
}

// Match reports whether path lies in a system header location.
func (m *SystemHeaderMatcher) Match(path string) bool {
	if m == nil || path == "" {
		return false
	}
	return matchAny(filepath.ToSlash(path), m.patterns)
}

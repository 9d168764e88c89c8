package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/config"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/discovery"
	"github.com/mvp-joe/apigraph/internal/extract"
	"github.com/mvp-joe/apigraph/internal/frontend"
	"github.com/mvp-joe/apigraph/internal/session"
)

// errNoSources is returned when discovery finds nothing to extract.
var errNoSources = errors.New("no source files found")

// project is a configured project root.
type project struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
}

// loadProject opens the project selected by the global flags.
func loadProject() (*project, error) {
	return openProject(rootDir, cfgFile)
}

// openProject resolves root (the working directory when empty) and loads its
// configuration, from cfgPath when given.
func openProject(root, cfgPath string) (*project, error) {
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}

	loader := config.NewLoader(root)
	if cfgPath != "" {
		loader = config.NewFileLoader(cfgPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &project{root: root, cfg: cfg, logger: slog.Default()}, nil
}

// path resolves a configured path against the project root.
func (p *project) path(configured string) string {
	if filepath.IsAbs(configured) {
		return configured
	}
	return filepath.Join(p.root, configured)
}

func (p *project) discovery() (*discovery.FileDiscovery, error) {
	fd, err := discovery.New(p.root, p.cfg.Paths.Include, p.cfg.Paths.Ignore)
	if err != nil {
		return nil, fmt.Errorf("failed to compile path patterns: %w", err)
	}
	return fd, nil
}

func (p *project) extractOptions() ([]extract.Option, error) {
	matcher, err := discovery.NewSystemHeaderMatcher(p.cfg.Extract.SystemHeaders)
	if err != nil {
		return nil, fmt.Errorf("failed to compile system header patterns: %w", err)
	}
	opts := []extract.Option{
		extract.WithSystemHeaders(matcher.Match),
		extract.WithLogger(p.logger),
	}
	if p.cfg.Extract.IncludePrivate {
		opts = append(opts, extract.WithPredicate(extract.PermissivePredicate))
	}
	return opts, nil
}

// newLibrary creates a session library configured for the project.
func (p *project) newLibrary() (*session.Library, error) {
	opts, err := p.extractOptions()
	if err != nil {
		return nil, err
	}
	return session.NewLibrary(
		session.WithExtractOptions(opts...),
		session.WithMemoCapacity(p.cfg.Cache.MemoCapacity),
		session.WithLogger(p.logger),
	)
}

// sources discovers the files to extract, restricted to the configured
// language when one is set.
func (p *project) sources(ctx context.Context) ([]string, error) {
	fd, err := p.discovery()
	if err != nil {
		return nil, err
	}
	files, err := fd.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	if lang := decl.Language(p.cfg.Extract.Language); lang != "" {
		kept := files[:0]
		for _, f := range files {
			if fileLanguageMatches(f, lang) {
				kept = append(kept, f)
			}
		}
		files = kept
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w under %s", errNoSources, p.root)
	}
	return files, nil
}

// fileLanguageMatches reports whether the front end for path serves lang.
// Every C-family language is served by the C-family front ends.
func fileLanguageMatches(path string, lang decl.Language) bool {
	fe, err := frontend.ForPath(path, frontend.Options{})
	if err != nil {
		return false
	}
	got := fe.Language()
	if lang.IsCFamily() {
		return got.IsCFamily()
	}
	return got == lang
}

// parse discovers and parses the project into one unit.
func (p *project) parse(ctx context.Context, progress *progressReporter) (*decl.Unit, error) {
	files, err := p.sources(ctx)
	if err != nil {
		return nil, err
	}
	progress.OnDiscoveryComplete(len(files))
	progress.OnParseStart(len(files))

	unit, err := frontend.ParseAll(ctx, files, frontend.Options{Target: p.cfg.Extract.Target}, progress.OnFileParsed)
	progress.OnParseComplete()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sources: %w", err)
	}
	if lang := p.cfg.Extract.Language; lang != "" {
		unit.Language = decl.Language(lang)
	}
	for _, f := range unit.Failures() {
		p.logger.Warn("parse failure", "error", f)
	}
	return unit, nil
}

// extract parses the project and extracts its API. The caller releases the set.
func (p *project) extract(ctx context.Context, progress *progressReporter) (*decl.Unit, *apiset.APISet, error) {
	unit, err := p.parse(ctx, progress)
	if err != nil {
		return nil, nil, err
	}
	opts, err := p.extractOptions()
	if err != nil {
		return nil, nil, err
	}
	api := extract.Extract(unit, opts...)
	if api == nil {
		return nil, nil, errors.New("translation unit is not usable")
	}
	return unit, api, nil
}

// relative shortens paths under the project root for display.
func (p *project) relative(path string) string {
	if rel, err := filepath.Rel(p.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

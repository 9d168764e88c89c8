package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/output"
	"github.com/mvp-joe/apigraph/internal/serializer"
	"github.com/mvp-joe/apigraph/internal/storage"
	"github.com/mvp-joe/apigraph/internal/watch"
)

var (
	extractQuiet  bool
	extractWatch  bool
	extractDB     bool
	extractModule string
	extractSystem bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract the project's API into a symbol graph",
	Long: `Extract discovers the project's source files, parses them, selects the
declarations that form the public API and writes one symbol graph per module
to the output directory (.apigraph/symbols by default).

Examples:
  # Extract the current directory
  apigraph extract

  # Also store records in the SQLite database
  apigraph extract --db

  # Re-extract whenever a source file changes
  apigraph extract --watch
`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().BoolVarP(&extractQuiet, "quiet", "q", false, "Disable progress bars and non-error output")
	extractCmd.Flags().BoolVarP(&extractWatch, "watch", "w", false, "Watch for source changes and re-extract")
	extractCmd.Flags().BoolVar(&extractDB, "db", false, "Also write records to the configured database")
	extractCmd.Flags().StringVar(&extractModule, "module", "", "Module name (default is the main file's base name)")
	extractCmd.Flags().BoolVar(&extractSystem, "system", false, "Include symbols declared in system headers")
}

// extractOptions are the per-run settings of executeExtract.
type extractOptions struct {
	module string
	system bool
	db     bool
}

func (o extractOptions) serializerOptions() []serializer.Option {
	var opts []serializer.Option
	if o.module != "" {
		opts = append(opts, serializer.WithModuleName(o.module))
	}
	if o.system {
		opts = append(opts, serializer.WithSystemSymbols())
	}
	return opts
}

// extractStats summarises one extraction.
type extractStats struct {
	Records   int
	Symbols   int
	Module    string
	GraphPath string
	DBPath    string
	Removed   []string
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	p, err := loadProject()
	if err != nil {
		return err
	}
	opts := extractOptions{module: extractModule, system: extractSystem, db: extractDB}
	out := cmd.OutOrStdout()

	progress := newProgressReporter(out, extractQuiet)
	stats, err := executeExtract(ctx, p, opts, progress)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("extraction cancelled")
		}
		return err
	}
	progress.OnComplete(stats)

	if !extractWatch {
		return nil
	}
	return watchAndExtract(ctx, p, opts, out)
}

// executeExtract runs one extraction and writes its outputs.
func executeExtract(ctx context.Context, p *project, opts extractOptions, progress *progressReporter) (*extractStats, error) {
	unit, api, err := p.extract(ctx, progress)
	if err != nil {
		return nil, err
	}
	defer api.Release()

	g, err := serializer.Serialize(api, opts.serializerOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize symbol graph: %w", err)
	}

	w, err := output.NewWriter(p.path(p.cfg.Output.Dir), p.cfg.Output.Pretty)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	graphPath, err := w.WriteGraph(g)
	if err != nil {
		return nil, err
	}
	graphFile := filepath.Base(graphPath)
	manifest := &output.Manifest{
		Module:   g.Module.Name,
		Target:   unit.Target,
		Language: string(unit.Language),
		Symbols:  len(g.Symbols),
		Files:    map[string]string{graphFile: g.Module.Name},
	}
	if err := w.WriteManifest(manifest); err != nil {
		return nil, err
	}
	removed, err := w.RemoveStale(manifest.Files)
	if err != nil {
		return nil, err
	}

	stats := &extractStats{
		Records:   api.Count(),
		Symbols:   len(g.Symbols),
		Module:    g.Module.Name,
		GraphPath: graphPath,
		Removed:   removed,
	}
	if opts.db {
		dbPath, err := p.writeDatabase(api, g)
		if err != nil {
			return nil, err
		}
		stats.DBPath = dbPath
	}
	return stats, nil
}

// writeDatabase stores api and its rendered graph in the configured database.
func (p *project) writeDatabase(api *apiset.APISet, g *serializer.Graph) (string, error) {
	dbPath := p.path(p.cfg.Storage.DBPath)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return "", err
	}
	defer db.Close()

	w := storage.NewWriter(db)
	if err := w.WriteAPISet(api); err != nil {
		return "", err
	}
	doc, err := serializer.Marshal(g, false)
	if err != nil {
		return "", fmt.Errorf("failed to encode symbol graph: %w", err)
	}
	if err := w.PutDocument(g.Module.Name, string(doc)); err != nil {
		return "", err
	}
	return dbPath, nil
}

// watchAndExtract re-extracts on every batch of source changes until ctx ends.
func watchAndExtract(ctx context.Context, p *project, opts extractOptions, out io.Writer) error {
	fd, err := p.discovery()
	if err != nil {
		return err
	}
	w, err := watch.New(fd, watch.WithLogger(p.logger))
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Stop()

	err = w.Start(ctx, func(files []string) {
		p.logger.Info("sources changed, re-extracting", "files", len(files))
		stats, err := executeExtract(ctx, p, opts, nil)
		if err != nil {
			p.logger.Error("extraction failed", "error", err)
			return
		}
		p.logger.Info("extraction complete", "symbols", stats.Symbols, "graph", stats.GraphPath)
	})
	if err != nil {
		return err
	}

	if !extractQuiet {
		fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
	}
	<-ctx.Done()
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/apigraph/internal/serializer"
)

var (
	exportDB     string
	exportModule string
	exportSystem bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Store the project's API in a SQLite database",
	Long: `Export extracts the project and replaces the contents of a SQLite database
with its records, members, declaration fragments and relationships. The
rendered symbol graph is stored alongside under the module name.

Examples:
  apigraph export
  apigraph export --db /tmp/api.db
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		if exportDB != "" {
			p.cfg.Storage.DBPath = exportDB
		}
		opts := extractOptions{module: exportModule, system: exportSystem}
		return executeExport(cmd.Context(), p, opts, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportDB, "db", "", "Database path (default is storage.db_path)")
	exportCmd.Flags().StringVar(&exportModule, "module", "", "Module name (default is the main file's base name)")
	exportCmd.Flags().BoolVar(&exportSystem, "system", false, "Include symbols declared in system headers in the stored graph")
}

func executeExport(ctx context.Context, p *project, opts extractOptions, out io.Writer) error {
	_, api, err := p.extract(ctx, nil)
	if err != nil {
		return err
	}
	defer api.Release()

	g, err := serializer.Serialize(api, opts.serializerOptions()...)
	if err != nil {
		return fmt.Errorf("failed to serialize symbol graph: %w", err)
	}
	dbPath, err := p.writeDatabase(api, g)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Exported %s records (%s symbols) of %s to %s\n",
		formatNumber(api.Count()), formatNumber(len(g.Symbols)), g.Module.Name, dbPath)
	return nil
}

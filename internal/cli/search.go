package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/apigraph/internal/search"
	"github.com/mvp-joe/apigraph/internal/storage"
)

var (
	searchKind  string
	searchPath  string
	searchLimit int
	searchDB    bool
	searchJSON  bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find API symbols by name or documentation",
	Long: `Search extracts the project and looks symbols up in a full-text index.
A bare word matches names exactly or by prefix, and doc comments; anything
else is a bleve query string over name, kind, path, declaration, doc and
parent.

With --db the query is a name prefix looked up in the database written by
'apigraph extract --db' or 'apigraph export', without re-extracting.

Examples:
  apigraph search Widget
  apigraph search 'name:paint AND kind:method'
  apigraph search --db make_
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		opts := &search.Options{Kind: searchKind, Path: searchPath, Limit: searchLimit}
		if searchDB {
			return executeStoredSearch(p, args[0], searchLimit, searchJSON, cmd.OutOrStdout())
		}
		return executeSearch(cmd.Context(), p, args[0], opts, searchJSON, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVar(&searchKind, "kind", "", "Only match records of this kind (e.g. func, objc.class)")
	searchCmd.Flags().StringVar(&searchPath, "path", "", "Only match records declared in files matching this wildcard")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 15, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchDB, "db", false, "Look up a name prefix in the database instead")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
}

func executeSearch(ctx context.Context, p *project, query string, opts *search.Options, asJSON bool, out io.Writer) error {
	_, api, err := p.extract(ctx, nil)
	if err != nil {
		return err
	}
	defer api.Release()

	index, err := search.New(ctx, api)
	if err != nil {
		return err
	}
	defer index.Close()

	results, err := index.Search(ctx, query, opts)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(out).Encode(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(out, "%-12s %-32s %s\n", r.Kind, r.Name, r.USR)
		if r.Path != "" {
			fmt.Fprintf(out, "%12s %s\n", "", p.relative(r.Path))
		}
	}
	return nil
}

// storedMatch is the JSON form of a database search result.
type storedMatch struct {
	USR         string `json:"usr"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Parent      string `json:"parent,omitempty"`
	Path        string `json:"path,omitempty"`
	Line        int    `json:"line,omitempty"`
	Declaration string `json:"declaration"`
}

func executeStoredSearch(p *project, prefix string, limit int, asJSON bool, out io.Writer) error {
	dbPath := p.path(p.cfg.Storage.DBPath)
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("no database at %s (run 'apigraph extract --db' first): %w", dbPath, err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := storage.NewReader(db).SearchByName(prefix, limit)
	if err != nil {
		return err
	}

	matches := make([]storedMatch, 0, len(records))
	for _, r := range records {
		matches = append(matches, storedMatch{
			USR:         r.USR,
			Name:        r.Name,
			Kind:        r.Kind,
			Parent:      r.ParentUSR,
			Path:        r.Location.File,
			Line:        r.Location.Line,
			Declaration: r.DeclarationText(),
		})
	}
	if asJSON {
		return json.NewEncoder(out).Encode(matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(out, "No matches")
		return nil
	}
	for _, m := range matches {
		fmt.Fprintf(out, "%-12s %-32s %s\n", m.Kind, m.Name, m.USR)
		if m.Declaration != "" {
			fmt.Fprintf(out, "%12s %s\n", "", m.Declaration)
		}
	}
	return nil
}

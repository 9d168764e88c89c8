package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/output"
	"github.com/mvp-joe/apigraph/internal/serializer"
	"github.com/mvp-joe/apigraph/internal/session"
)

var (
	symbolUSR    string
	symbolWrite  bool
	errNotFound  = errors.New("symbol not found")
	errNoDecl    = errors.New("no declaration at location")
	errBadCursor = errors.New("location must be file:line:column")
)

// symbolCmd represents the symbol command
var symbolCmd = &cobra.Command{
	Use:   "symbol --usr <usr>",
	Short: "Print the symbol graph for one symbol",
	Long: `Symbol extracts the project and prints the single-symbol graph for a USR:
the symbol, its containers and the types its declaration refers to.

Example:
  apigraph symbol --usr 'c:objc(cs)Foo'
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		return executeSymbol(cmd.Context(), p, symbolUSR, symbolWrite, cmd.OutOrStdout())
	},
}

// cursorCmd represents the cursor command
var cursorCmd = &cobra.Command{
	Use:   "cursor <file:line:column>",
	Short: "Print the symbol graph for the declaration at a location",
	Long: `Cursor prints the single-symbol graph for the declaration at a source
location. A location inside a use of a declaration (a type named in a
signature) resolves to that declaration. Lines and columns are 1-based.

Example:
  apigraph cursor include/widget.h:24:16
`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		return executeCursor(cmd.Context(), p, args[0], cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(symbolCmd)
	rootCmd.AddCommand(cursorCmd)
	symbolCmd.Flags().StringVar(&symbolUSR, "usr", "", "USR of the symbol")
	symbolCmd.Flags().BoolVar(&symbolWrite, "write", false, "Also write the document under <output dir>/symbols")
	symbolCmd.MarkFlagRequired("usr")
}

// openSession parses the project and registers it with a new library.
func openSession(ctx context.Context, p *project) (*session.Library, *decl.Unit, session.Handle, error) {
	unit, err := p.parse(ctx, nil)
	if err != nil {
		return nil, nil, "", err
	}
	lib, err := p.newLibrary()
	if err != nil {
		return nil, nil, "", err
	}
	var h session.Handle
	if status := lib.CreateAPISet(unit, &h); status != session.Success {
		lib.Close()
		return nil, nil, "", fmt.Errorf("failed to create api set: %s", status)
	}
	return lib, unit, h, nil
}

func executeSymbol(ctx context.Context, p *project, usr string, write bool, out io.Writer) error {
	if usr == "" {
		return fmt.Errorf("%w: empty USR", errNotFound)
	}
	lib, _, h, err := openSession(ctx, p)
	if err != nil {
		return err
	}
	defer lib.Close()

	doc, ok := lib.SymbolGraphForUSR(usr, h)
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, usr)
	}
	if write {
		if err := p.writeSymbol(lib, usr, h); err != nil {
			return err
		}
	}
	return printDocument(out, doc, p.cfg.Output.Pretty)
}

func executeCursor(ctx context.Context, p *project, location string, out io.Writer) error {
	file, line, col, err := parseLocation(location)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(p.root, file)
	}

	lib, unit, _, err := openSession(ctx, p)
	if err != nil {
		return err
	}
	defer lib.Close()

	c := unit.CursorAt(file, line, col)
	if c.Kind == decl.CursorInvalid || c.Kind == decl.CursorNoDeclFound {
		return fmt.Errorf("%w: %s", errNoDecl, location)
	}
	doc, ok := lib.SymbolGraphForCursor(c)
	if !ok {
		return fmt.Errorf("%w: declaration at %s is not part of the API", errNotFound, location)
	}
	return printDocument(out, doc, p.cfg.Output.Pretty)
}

// parseLocation splits "file:line:column". The file may itself contain colons.
func parseLocation(s string) (string, int, int, error) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", errBadCursor, s)
	}
	j := strings.LastIndex(s[:i], ":")
	if j <= 0 {
		return "", 0, 0, fmt.Errorf("%w: %q", errBadCursor, s)
	}
	line, err := strconv.Atoi(s[j+1 : i])
	if err != nil || line < 1 {
		return "", 0, 0, fmt.Errorf("%w: bad line in %q", errBadCursor, s)
	}
	col, err := strconv.Atoi(s[i+1:])
	if err != nil || col < 1 {
		return "", 0, 0, fmt.Errorf("%w: bad column in %q", errBadCursor, s)
	}
	return s[:j], line, col, nil
}

// printDocument writes a JSON document, indented when pretty.
func printDocument(out io.Writer, doc string, pretty bool) error {
	if pretty {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(doc), "", "  "); err == nil {
			doc = buf.String()
		}
	}
	_, err := fmt.Fprintln(out, doc)
	return err
}

// writeSymbol stores the single-symbol document for usr in the output directory.
func (p *project) writeSymbol(lib *session.Library, usr string, h session.Handle) error {
	api, ok := lib.APISet(h)
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, usr)
	}
	doc, ok := serializer.SerializeSingleSymbol(usr, api)
	if !ok {
		return fmt.Errorf("%w: %s", errNotFound, usr)
	}
	w, err := output.NewWriter(p.path(p.cfg.Output.Dir), p.cfg.Output.Pretty)
	if err != nil {
		return err
	}
	defer w.Close()

	path, err := w.WriteSymbol(usr, doc)
	if err != nil {
		return err
	}
	p.logger.Info("wrote symbol graph", "usr", usr, "path", path)
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/apigraph/internal/mcp"
	"github.com/mvp-joe/apigraph/internal/watch"
)

var mcpWatch bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for API lookups",
	Long: `Start a Model Context Protocol server on stdio that lets coding
assistants query the project's API.

Tools:
  apigraph_symbol  symbol graph for a USR
  apigraph_cursor  symbol graph for the declaration at file:line:column
  apigraph_search  find symbols by name or documentation
  apigraph_status  describe the served API

Example:
  apigraph mcp --watch`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVarP(&mcpWatch, "watch", "w", false, "Reload the API when source files change")
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	// stdout carries the protocol; everything else goes to stderr
	logger := newLogger(os.Stderr, verbose)

	p, err := loadProject()
	if err != nil {
		return err
	}
	p.logger = logger

	unit, err := p.parse(ctx, nil)
	if err != nil {
		return err
	}
	lib, err := p.newLibrary()
	if err != nil {
		return err
	}
	defer lib.Close()

	srv, err := mcp.NewServer(ctx, lib, unit, mcp.Config{Root: p.root, Version: Version, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer srv.Close()

	if mcpWatch {
		fd, err := p.discovery()
		if err != nil {
			return err
		}
		w, err := watch.New(fd, watch.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer w.Stop()
		err = w.Start(ctx, func(files []string) {
			unit, err := p.parse(ctx, nil)
			if err != nil {
				logger.Error("reload failed", "error", err)
				return
			}
			if err := srv.Reload(ctx, unit); err != nil {
				logger.Error("reload failed", "error", err)
			}
		})
		if err != nil {
			return err
		}
	}

	return srv.Serve(ctx)
}

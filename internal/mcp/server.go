// Package mcp serves symbol graphs to coding assistants over the Model
// Context Protocol.
//
// The server owns one extracted API set. Tools look symbols up by USR, by
// source location and by name; Reload swaps in a fresh extraction without
// interrupting clients.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/search"
	"github.com/mvp-joe/apigraph/internal/session"
)

// ServerName identifies the server to MCP clients.
const ServerName = "apigraph"

// Config configures a Server.
type Config struct {
	// Root resolves relative file paths given to the cursor tool.
	Root    string
	Version string
	Logger  *slog.Logger
}

// Server manages the MCP server lifecycle.
type Server struct {
	lib     *session.Library
	config  Config
	mcp     *server.MCPServer
	metrics *ReloadMetrics
	logger  *slog.Logger

	mu     sync.RWMutex
	unit   *decl.Unit
	handle session.Handle
	index  *search.Index
}

// NewServer extracts unit into lib and registers the apigraph tools.
func NewServer(ctx context.Context, lib *session.Library, unit *decl.Unit, cfg Config) (*Server, error) {
	if lib == nil {
		return nil, errors.New("session library is required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		lib:     lib,
		config:  cfg,
		metrics: &ReloadMetrics{},
		logger:  logger,
	}
	if err := s.Reload(ctx, unit); err != nil {
		return nil, err
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		cfg.Version,
		server.WithToolCapabilities(true),
	)
	AddSymbolTool(s.mcp, s)
	AddCursorTool(s.mcp, s)
	AddSearchTool(s.mcp, s)
	AddStatusTool(s.mcp, s)
	return s, nil
}

// Reload extracts unit and replaces the served API set. On failure the
// previous API set stays in place.
func (s *Server) Reload(ctx context.Context, unit *decl.Unit) error {
	start := time.Now()
	records, err := s.reload(ctx, unit)
	s.metrics.RecordReload(time.Since(start), err, records)
	if err != nil {
		return err
	}
	s.logger.Info("loaded api set", "records", records, "took", time.Since(start))
	return nil
}

func (s *Server) reload(ctx context.Context, unit *decl.Unit) (int, error) {
	var h session.Handle
	if status := s.lib.CreateAPISet(unit, &h); status != session.Success {
		return 0, fmt.Errorf("failed to create api set: %s", status)
	}
	api, ok := s.lib.APISet(h)
	if !ok {
		return 0, errors.New("api set disappeared after creation")
	}
	index, err := search.New(ctx, api)
	if err != nil {
		s.lib.DisposeAPISet(h)
		return 0, err
	}
	records := api.Count()

	s.mu.Lock()
	oldHandle, oldIndex := s.handle, s.index
	s.unit, s.handle, s.index = unit, h, index
	s.mu.Unlock()

	if oldIndex != nil {
		oldIndex.Close()
		s.lib.DisposeAPISet(oldHandle)
	}
	return records, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-sigCh:
		s.logger.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the served API set and its index. The library stays open.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.lib.DisposeAPISet(s.handle)
	s.index, s.unit, s.handle = nil, nil, ""
	return err
}

// Metrics returns reload statistics.
func (s *Server) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

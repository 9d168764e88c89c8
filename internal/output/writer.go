// Package output writes rendered symbol graphs to an output directory.
//
// Files are written to a temporary directory and renamed into place, so a
// reader never sees a partial document. A writer holds an exclusive lock on
// the directory for its lifetime so concurrent extractions do not interleave.
package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/mvp-joe/apigraph/internal/serializer"
)

// ManifestName is the file describing the last extraction in a directory.
const ManifestName = "apigraph-output.json"

// ManifestVersion is written into every manifest.
const ManifestVersion = "1.0.0"

const (
	graphSuffix = ".symbols.json"
	lockName    = ".lock"
	tempDirName = ".tmp"
)

// ErrLocked is returned when another process holds the output directory.
var ErrLocked = errors.New("output directory is locked by another process")

// Manifest records what the last extraction wrote.
type Manifest struct {
	Version     string            `json:"version"`
	Module      string            `json:"module"`
	Target      string            `json:"target,omitempty"`
	Language    string            `json:"language"`
	Symbols     int               `json:"symbols"`
	Files       map[string]string `json:"files"` // graph file → module name
	GeneratedAt time.Time         `json:"generated_at"`
}

// Writer handles atomic writing of symbol graph files.
type Writer struct {
	outputDir string
	tempDir   string
	lock      *flock.Flock
	pretty    bool
}

// NewWriter locks outputDir, creating it if needed, and clears stale
// temporary files. Returns ErrLocked if another writer holds the directory.
func NewWriter(outputDir string, pretty bool) (*Writer, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	lock := flock.New(filepath.Join(outputDir, lockName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, outputDir)
	}

	tempDir := filepath.Join(outputDir, tempDirName)
	if err := os.RemoveAll(tempDir); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to clean temp directory: %w", err)
	}
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	return &Writer{
		outputDir: outputDir,
		tempDir:   tempDir,
		lock:      lock,
		pretty:    pretty,
	}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.outputDir
}

// GraphFileName returns the file a module's graph is written to.
func GraphFileName(module string) string {
	name := sanitize(module)
	if name == "" {
		name = "module"
	}
	return name + graphSuffix
}

// WriteGraph writes a whole-module symbol graph and returns its path.
func (w *Writer) WriteGraph(g *serializer.Graph) (string, error) {
	if g == nil {
		return "", errors.New("cannot write a nil symbol graph")
	}
	filename := GraphFileName(g.Module.Name)
	if err := w.writeJSON(filename, g); err != nil {
		return "", err
	}
	return filepath.Join(w.outputDir, filename), nil
}

// WriteSymbol writes a single-symbol document under symbols/ and returns its path.
func (w *Writer) WriteSymbol(usr string, doc *serializer.SingleSymbol) (string, error) {
	if doc == nil {
		return "", errors.New("cannot write a nil symbol document")
	}
	if err := os.MkdirAll(filepath.Join(w.outputDir, "symbols"), 0755); err != nil {
		return "", fmt.Errorf("failed to create symbols directory: %w", err)
	}
	filename := filepath.Join("symbols", sanitize(usr)+".json")
	if err := w.writeJSON(filename, doc); err != nil {
		return "", err
	}
	return filepath.Join(w.outputDir, filename), nil
}

// WriteManifest writes the manifest for the files just produced.
func (w *Writer) WriteManifest(m *Manifest) error {
	if m.Version == "" {
		m.Version = ManifestVersion
	}
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now().UTC()
	}
	return w.writeJSON(ManifestName, m)
}

// RemoveStale deletes graph files in the directory that keep is not listing,
// which happens when a module is renamed between extractions.
func (w *Writer) RemoveStale(keep map[string]string) ([]string, error) {
	entries, err := os.ReadDir(w.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read output directory: %w", err)
	}
	var removed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, graphSuffix) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(w.outputDir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove stale graph %s: %w", name, err)
		}
		removed = append(removed, name)
	}
	sort.Strings(removed)
	return removed, nil
}

// Close removes the temp directory and releases the lock.
func (w *Writer) Close() error {
	rmErr := os.RemoveAll(w.tempDir)
	if err := w.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return rmErr
}

func (w *Writer) writeJSON(filename string, v any) error {
	data, err := serializer.Marshal(v, w.pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filename, err)
	}

	// Write to temp file
	tempPath := filepath.Join(w.tempDir, filepath.Base(filename))
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Rename to final location (atomic operation)
	finalPath := filepath.Join(w.outputDir, filename)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ReadManifest reads the manifest in dir. A missing or unreadable manifest
// yields nil without error.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		// Graceful degradation: a corrupt manifest is rewritten on the next extraction
		return nil, nil
	}
	return &m, nil
}

// sanitize maps a module name or USR onto a portable file name.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), ".")
}

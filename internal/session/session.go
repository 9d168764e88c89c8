// Package session exposes the extraction engine through opaque handles.
//
// A Library owns every registry it creates. Callers receive a Handle from
// CreateAPISet, query symbol graphs against it, and give it back with
// DisposeAPISet. Cursor queries need no handle: they reconstruct a small
// registry on demand and discard it once the document is rendered.
package session

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/maypok86/otter"

	"github.com/mvp-joe/apigraph/internal/apiset"
	"github.com/mvp-joe/apigraph/internal/decl"
	"github.com/mvp-joe/apigraph/internal/extract"
	"github.com/mvp-joe/apigraph/internal/serializer"
)

// Status is the outcome of a handle-creating operation.
type Status int

const (
	Success Status = iota
	InvalidArguments
	Failure
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case InvalidArguments:
		return "invalid arguments"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Handle identifies a registry owned by a Library.
type Handle string

// DefaultMemoCapacity bounds the number of memoized symbol documents.
const DefaultMemoCapacity = 1024

// ErrClosed is returned by operations on a closed Library.
var ErrClosed = errors.New("session: library closed")

// Option configures a Library.
type Option func(*Library)

// WithExtractOptions passes options to every extraction the library runs.
func WithExtractOptions(opts ...extract.Option) Option {
	return func(l *Library) {
		l.extractOpts = append(l.extractOpts, opts...)
	}
}

// WithSerializerOptions passes options to every document the library renders.
func WithSerializerOptions(opts ...serializer.Option) Option {
	return func(l *Library) {
		l.serializerOpts = append(l.serializerOpts, opts...)
	}
}

// WithMemoCapacity sets how many symbol documents are memoized. Values below
// one fall back to DefaultMemoCapacity.
func WithMemoCapacity(n int) Option {
	return func(l *Library) {
		l.memoCapacity = n
	}
}

// WithLogger sets the logger used for handle lifecycle messages.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// Library is safe for concurrent use.
type Library struct {
	mu     sync.RWMutex
	sets   map[Handle]*apiset.APISet
	closed bool

	memo         otter.Cache[string, string]
	memoCapacity int

	extractOpts    []extract.Option
	serializerOpts []serializer.Option
	logger         *slog.Logger
}

// NewLibrary creates an empty library.
func NewLibrary(opts ...Option) (*Library, error) {
	l := &Library{
		sets:         make(map[Handle]*apiset.APISet),
		memoCapacity: DefaultMemoCapacity,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.memoCapacity < 1 {
		l.memoCapacity = DefaultMemoCapacity
	}

	memo, err := otter.MustBuilder[string, string](l.memoCapacity).Build()
	if err != nil {
		return nil, err
	}
	l.memo = memo
	return l, nil
}

// CreateAPISet extracts the whole unit into a new registry and stores its
// handle in out. It reports InvalidArguments when out is nil or the unit
// could not be parsed, and Failure when the library is closed.
func (l *Library) CreateAPISet(u *decl.Unit, out *Handle) Status {
	if out == nil || u == nil || !u.Usable() {
		return InvalidArguments
	}
	api := extract.Extract(u, l.extractOpts...)
	if api == nil {
		return InvalidArguments
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		_ = api.Release()
		return Failure
	}

	h := Handle(uuid.New().String())
	l.sets[h] = api
	*out = h
	l.logger.Debug("created api set", "handle", string(h), "records", api.Count(), "main_file", u.MainFile)
	return Success
}

// DisposeAPISet releases the registry behind h. Disposing an unknown or
// already disposed handle is logged and otherwise ignored.
func (l *Library) DisposeAPISet(h Handle) {
	l.mu.Lock()
	api, ok := l.sets[h]
	if ok {
		delete(l.sets, h)
		prefix := memoKey(h, "")
		l.memo.DeleteByFunc(func(key, _ string) bool {
			return strings.HasPrefix(key, prefix)
		})
	}
	l.mu.Unlock()

	if !ok {
		l.logger.Warn("dispose of unknown api set", "handle", string(h))
		return
	}
	if err := api.Release(); err != nil {
		l.logger.Warn("failed to release api set", "handle", string(h), "error", err)
	}
}

// APISet returns the registry behind h.
func (l *Library) APISet(h Handle) (*apiset.APISet, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	api, ok := l.sets[h]
	return api, ok
}

// Handles lists the live handles in lexical order.
func (l *Library) Handles() []Handle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Handle, 0, len(l.sets))
	for h := range l.sets {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SymbolGraphForUSR renders the single-symbol document for usr from the
// registry behind h. It reports false when the handle is unknown or the
// registry holds no record with that USR.
func (l *Library) SymbolGraphForUSR(usr string, h Handle) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	api, ok := l.sets[h]
	if !ok {
		l.logger.Debug("symbol graph for unknown api set", "handle", string(h), "usr", usr)
		return "", false
	}
	key := memoKey(h, usr)
	if doc, ok := l.memo.Get(key); ok {
		return doc, true
	}
	doc, ok := l.render(usr, api)
	if !ok {
		return "", false
	}
	l.memo.Set(key, doc)
	return doc, true
}

// SymbolGraphForCursor renders the single-symbol document for the
// declaration under c. Only the declaration, its immediate container and the
// types its signature references are extracted.
func (l *Library) SymbolGraphForCursor(c decl.Cursor) (string, bool) {
	api, id, ok := extract.Reconstruct(c, l.extractOpts...)
	if !ok {
		return "", false
	}
	defer func() { _ = api.Release() }()
	return l.render(id, api)
}

func memoKey(h Handle, usr string) string {
	return string(h) + "\x00" + usr
}

func (l *Library) render(usr string, api *apiset.APISet) (string, bool) {
	doc, ok := serializer.SerializeSingleSymbol(usr, api, l.serializerOpts...)
	if !ok {
		return "", false
	}
	data, err := serializer.Marshal(doc, false)
	if err != nil {
		l.logger.Warn("failed to encode symbol graph", "usr", usr, "error", err)
		return "", false
	}
	return string(data), true
}

// Close disposes every live registry. The library rejects new registries
// afterwards; closing twice returns ErrClosed.
func (l *Library) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	sets := l.sets
	l.sets = make(map[Handle]*apiset.APISet)
	l.mu.Unlock()

	for h, api := range sets {
		if err := api.Release(); err != nil {
			l.logger.Warn("failed to release api set", "handle", string(h), "error", err)
		}
	}
	l.memo.Close()
	return nil
}

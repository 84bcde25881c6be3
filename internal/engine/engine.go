package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/history"
	"github.com/roach88/strata/internal/pipeline"
	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/reader"
	"github.com/roach88/strata/internal/registry"
	"github.com/roach88/strata/internal/temporal"
)

// Engine is the caller-facing surface of the revisioning layer.
type Engine struct {
	store     *docstore.Store
	registry  *registry.Registry
	history   *history.Aggregator
	reader    *reader.Reader
	pipeline  *pipeline.Pipeline
	clock     temporal.Clock
	ownsStore bool
}

// Option customizes engine construction.
type Option func(*Engine)

// WithClock substitutes the wall clock, used by tests to make currency
// classification deterministic.
func WithClock(c temporal.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// New builds an engine over an already-open store and registers the
// write pipeline on its put path.
func New(store *docstore.Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: temporal.SystemClock{},
	}
	for _, opt := range opts {
		opt(e)
	}

	e.registry = registry.New(store)
	e.history = history.New(store)
	e.reader = reader.New(store, e.history)
	e.pipeline = pipeline.New(store, e.registry, e.history, e.clock)
	store.Register(e.pipeline)

	return e
}

// Open opens (or creates) the store at path and builds an engine that
// owns it: Close closes the store.
func Open(path string, opts ...Option) (*Engine, error) {
	store, err := docstore.Open(path)
	if err != nil {
		return nil, err
	}
	e := New(store, opts...)
	e.ownsStore = true
	return e, nil
}

// Close releases the engine's store if the engine owns it.
func (e *Engine) Close() error {
	if !e.ownsStore {
		return nil
	}
	return e.store.Close()
}

// Store exposes the underlying document store for non-temporal
// pass-through operations.
func (e *Engine) Store() *docstore.Store {
	return e.store
}

// ConfigureVersioning sets the versioning toggle for a document type.
// An empty typeTag sets the default entry.
func (e *Engine) ConfigureVersioning(ctx context.Context, typeTag string, enabled bool) error {
	return e.registry.Configure(ctx, typeTag, enabled)
}

// WriteResult reports how a write was classified.
type WriteResult struct {
	// Identity is the stable identity written to.
	Identity string

	// Revision is the assigned revision number; zero for a
	// non-versioned passthrough write.
	Revision int64

	// TemporalKey addresses the immutable revision copy; empty for a
	// non-versioned passthrough write.
	TemporalKey string

	// Current reports whether this write became the current revision.
	Current bool

	// ETag is the concurrency token of the document persisted at the
	// stable identity by this call. Meaningful only when Current.
	ETag string
}

// writeConfig holds per-write options.
type writeConfig struct {
	etag string
}

// WriteOption customizes a single Write call.
type WriteOption func(*writeConfig)

// WithToken makes the write conditional on the stable identity still
// carrying the given concurrency token. A stale token fails with
// docstore.ErrConflict, propagated unchanged for the caller to retry.
func WithToken(etag string) WriteOption {
	return func(c *writeConfig) { c.etag = etag }
}

// Write is the sanctioned entry point for versioned writes: it targets
// the stable identity, never a temporal key. The write pipeline
// classifies it, persists the immutable revision copy, and compensates
// the current slot as needed.
//
// For document types without versioning enabled this is a plain store
// put.
func (e *Engine) Write(ctx context.Context, identity, typeTag string, body map[string]any, effectiveStart time.Time, opts ...WriteOption) (*WriteResult, error) {
	var cfg writeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	doc := &docstore.Document{
		Key:     identity,
		TypeTag: typeTag,
		Body:    body,
		Meta: temporal.Metadata{
			Status:         temporal.StatusNew,
			EffectiveStart: effectiveStart,
		},
		ETag: cfg.etag,
	}

	stored, err := e.store.Put(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("write %q: %w", identity, err)
	}

	res := &WriteResult{
		Identity: identity,
		Revision: stored.Meta.Revision,
		Current:  stored.Meta.Status == temporal.StatusCurrent,
		ETag:     stored.ETag,
	}
	if res.Revision > 0 {
		res.TemporalKey = temporal.EncodeKey(identity, res.Revision)
	}
	return res, nil
}

// Get reads the document currently stored at the stable identity.
// Returns (nil, nil) when no current document exists.
func (e *Engine) Get(ctx context.Context, identity string) (*docstore.Document, error) {
	return e.store.Get(ctx, identity)
}

// Delete removes the document at the stable identity. Pass-through for
// non-versioned documents; revision copies are untouched.
func (e *Engine) Delete(ctx context.Context, identity, etag string) error {
	return e.store.Delete(ctx, identity, etag)
}

// ReadAsOf returns the revision of identity effective at asOf,
// rehydrated under the stable identity. Returns (nil, nil) when no
// revision is effective at that instant.
func (e *Engine) ReadAsOf(ctx context.Context, identity string, asOf time.Time) (*docstore.Document, error) {
	return e.reader.Load(ctx, identity, asOf)
}

// ReadRevision returns one specific revision by number, rehydrated.
func (e *Engine) ReadRevision(ctx context.Context, identity string, revision int64) (*docstore.Document, error) {
	return e.reader.LoadRevision(ctx, identity, revision)
}

// ReadRevisions returns a page of revisions ordered by revision number
// ascending, starting at revision start (0 or 1 means the beginning).
func (e *Engine) ReadRevisions(ctx context.Context, identity string, start int64, pageSize int) ([]*docstore.Document, error) {
	return e.reader.Revisions(ctx, identity, start, pageSize)
}

// ReadHistory returns the identity's history index, or nil when it has
// no revisions.
func (e *Engine) ReadHistory(ctx context.Context, identity string) (*history.Index, error) {
	return e.history.Get(ctx, identity)
}

// Query runs a filtered document query. Versioned types implicitly see
// only current revisions unless the spec carries the include-all
// customization.
func (e *Engine) Query(ctx context.Context, spec *query.Spec) ([]*docstore.Document, error) {
	if spec == nil {
		return nil, fmt.Errorf("query: nil spec")
	}

	versioned, err := e.registry.Enabled(ctx, spec.TypeTag)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", spec.TypeTag, err)
	}

	spec = query.PrepareVisibility(spec, versioned)
	sql, args, err := query.Compile(spec)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", spec.TypeTag, err)
	}

	return e.store.QueryDocuments(ctx, sql, args...)
}

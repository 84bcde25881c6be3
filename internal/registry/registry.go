// Package registry holds the per-type versioning toggles consulted on
// every write. Resolution order: exact type entry, else the default
// entry, else disabled.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/temporal"
)

// TypeTag marks configuration documents in the store.
const TypeTag = "strata.config"

// DefaultEntry is the type-tag wildcard for the default toggle.
const DefaultEntry = "*"

// Registry resolves whether versioning is enabled for a document type.
//
// Toggles persist as configuration documents so they survive restarts
// and are visible to other processes; an in-memory cache keeps the hot
// write path at O(1). Configuration writes are rare administrative
// actions and invalidate the cache entry they touch.
type Registry struct {
	store *docstore.Store

	mu    sync.RWMutex
	cache map[string]bool // type tag -> enabled; includes DefaultEntry
}

// New creates a registry over the given store.
func New(store *docstore.Store) *Registry {
	return &Registry{
		store: store,
		cache: make(map[string]bool),
	}
}

// Enabled reports whether versioning applies to the given type tag.
func (r *Registry) Enabled(ctx context.Context, typeTag string) (bool, error) {
	if typeTag != "" {
		if enabled, ok, err := r.lookup(ctx, typeTag); err != nil {
			return false, err
		} else if ok {
			return enabled, nil
		}
	}

	if enabled, ok, err := r.lookup(ctx, DefaultEntry); err != nil {
		return false, err
	} else if ok {
		return enabled, nil
	}

	return false, nil
}

// Configure sets the toggle for a type tag. An empty typeTag sets the
// default entry.
func (r *Registry) Configure(ctx context.Context, typeTag string, enabled bool) error {
	if typeTag == "" {
		typeTag = DefaultEntry
	}

	doc, err := r.store.Get(ctx, configKey(typeTag))
	if err != nil {
		return fmt.Errorf("configure versioning %q: %w", typeTag, err)
	}

	update := &docstore.Document{
		Key:     configKey(typeTag),
		TypeTag: TypeTag,
		Body:    map[string]any{"type": typeTag, "enabled": enabled},
	}
	if doc != nil {
		update.ETag = doc.ETag
	}

	if _, err := r.store.Put(ctx, update, docstore.WithoutInterceptors()); err != nil {
		return fmt.Errorf("configure versioning %q: %w", typeTag, err)
	}

	r.mu.Lock()
	r.cache[typeTag] = enabled
	r.mu.Unlock()

	return nil
}

// lookup checks the cache, falling back to the stored configuration
// document. A found document populates the cache.
func (r *Registry) lookup(ctx context.Context, typeTag string) (enabled, found bool, err error) {
	r.mu.RLock()
	enabled, found = r.cache[typeTag]
	r.mu.RUnlock()
	if found {
		return enabled, true, nil
	}

	doc, err := r.store.Get(ctx, configKey(typeTag))
	if err != nil {
		return false, false, fmt.Errorf("versioning config %q: %w", typeTag, err)
	}
	if doc == nil {
		return false, false, nil
	}

	enabled, _ = doc.Body["enabled"].(bool)

	r.mu.Lock()
	r.cache[typeTag] = enabled
	r.mu.Unlock()

	return enabled, true, nil
}

func configKey(typeTag string) string {
	return temporal.ConfigKeyPrefix + typeTag
}

// Package reader resolves time-scoped reads: "document X as of time T"
// maps to the one physical revision whose effective interval contains
// T, rehydrated under the stable identity so callers never observe
// revision suffixes.
package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/history"
	"github.com/roach88/strata/internal/temporal"
)

// Reader performs effective-time resolution over the history index.
type Reader struct {
	store   *docstore.Store
	history *history.Aggregator
}

// New creates a reader.
func New(store *docstore.Store, hist *history.Aggregator) *Reader {
	return &Reader{store: store, history: hist}
}

// Resolve returns the temporal key of the revision effective at asOf,
// or "" when no revision covers that instant. An empty result with a
// nil error means "no data effective at that time", which is distinct
// from a missing identity only in that a missing identity has no
// history at all.
//
// Histories produced by out-of-order inserts may contain overlapping
// open-ended intervals (neighbors are deliberately not trimmed on
// backdated writes). Among covering revisions, the one with the
// greatest EffectiveStart wins, revision number as tiebreaker.
func (r *Reader) Resolve(ctx context.Context, identity string, asOf time.Time) (string, error) {
	if err := temporal.ValidateInstant(asOf); err != nil {
		return "", fmt.Errorf("resolve %q: %w", identity, err)
	}
	asOf = asOf.UTC()

	ix, err := r.history.Get(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", identity, err)
	}
	if ix == nil {
		return "", nil
	}

	var best *history.Entry
	for i := range ix.Entries {
		e := &ix.Entries[i]
		covers := !asOf.Before(e.EffectiveStart) && asOf.Before(e.EffectiveUntil)
		if !covers {
			continue
		}
		if best == nil ||
			e.EffectiveStart.After(best.EffectiveStart) ||
			(e.EffectiveStart.Equal(best.EffectiveStart) && e.Revision > best.Revision) {
			best = e
		}
	}
	if best == nil {
		return "", nil
	}
	return best.Key, nil
}

// Load resolves asOf and loads the matching revision, rehydrated with
// the stable identity substituted for the temporal key. Returns
// (nil, nil) when nothing is effective at asOf.
func (r *Reader) Load(ctx context.Context, identity string, asOf time.Time) (*docstore.Document, error) {
	key, err := r.Resolve(ctx, identity, asOf)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, nil
	}

	doc, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load %q as of %v: %w", identity, asOf, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("load %q as of %v: indexed revision %q missing from store", identity, asOf, key)
	}

	return rehydrate(doc, identity), nil
}

// LoadRevision loads one specific revision by number, rehydrated.
// Returns (nil, nil) when the revision does not exist.
func (r *Reader) LoadRevision(ctx context.Context, identity string, revision int64) (*docstore.Document, error) {
	doc, err := r.store.Get(ctx, temporal.EncodeKey(identity, revision))
	if err != nil {
		return nil, fmt.Errorf("load revision %d of %q: %w", revision, identity, err)
	}
	if doc == nil {
		return nil, nil
	}
	return rehydrate(doc, identity), nil
}

// Revisions returns a page of an identity's revisions ordered by
// revision number ascending, each rehydrated. start is the first
// revision number to include (0 means from the beginning).
func (r *Reader) Revisions(ctx context.Context, identity string, start int64, pageSize int) ([]*docstore.Document, error) {
	if err := temporal.ValidateIdentity(identity); err != nil {
		return nil, err
	}

	skip := 0
	if start > 1 {
		skip = int(start - 1)
	}

	docs, err := r.store.ScanPrefix(ctx, identity+temporal.Separator, skip, pageSize)
	if err != nil {
		return nil, fmt.Errorf("revisions of %q: %w", identity, err)
	}

	out := make([]*docstore.Document, 0, len(docs))
	for _, doc := range docs {
		out = append(out, rehydrate(doc, identity))
	}
	return out, nil
}

// rehydrate substitutes the stable identity for the temporal key in
// the user-visible identity field. The returned copy is detached.
func rehydrate(doc *docstore.Document, identity string) *docstore.Document {
	out := doc.Clone()
	out.Key = identity
	return out
}

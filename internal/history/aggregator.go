package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/temporal"
)

// maxRetries bounds the CAS retry loop on index updates. Contention on
// one identity's index is short-lived (a single row), so a small bound
// suffices; exhausting it surfaces the conflict to the caller.
const maxRetries = 8

// Aggregator maintains the per-identity history index documents.
//
// Index updates are read-modify-write under the store's etag CAS, with
// retry on conflict: two concurrent writers to the same identity each
// produce a revision and each must successfully record its entry.
// Wholesale last-writer-wins on the index document would lose entries.
type Aggregator struct {
	store *docstore.Store
}

// New creates an aggregator over the given store.
func New(store *docstore.Store) *Aggregator {
	return &Aggregator{store: store}
}

// Get returns the history index for an identity, or nil when the
// identity has no revisions. The returned index is a detached copy and
// is never fed back into the write path.
func (a *Aggregator) Get(ctx context.Context, identity string) (*Index, error) {
	doc, err := a.store.Get(ctx, temporal.HistoryKey(identity))
	if err != nil {
		return nil, fmt.Errorf("history get %q: %w", identity, err)
	}
	if doc == nil {
		return nil, nil
	}

	ix, err := fromBody(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("history get %q: %w", identity, err)
	}
	return ix, nil
}

// NextRevision returns the revision number the next write to this
// identity will receive. Allocation only becomes final when the
// matching Append succeeds; racing writers are resolved by the
// create-only revision put and the CAS append.
func (a *Aggregator) NextRevision(ctx context.Context, identity string) (int64, error) {
	ix, err := a.Get(ctx, identity)
	if err != nil {
		return 0, err
	}
	return ix.NextRevision(), nil
}

// Append records one revision entry, creating the index on first use.
// Read-modify-write with retry on CAS conflict; re-appending an entry
// that is already present (a retried operation) is a no-op.
func (a *Aggregator) Append(ctx context.Context, identity string, entry Entry) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		doc, err := a.store.Get(ctx, temporal.HistoryKey(identity))
		if err != nil {
			return fmt.Errorf("history append %q: %w", identity, err)
		}

		ix := &Index{Identity: identity}
		etag := ""
		if doc != nil {
			if ix, err = fromBody(doc.Body); err != nil {
				return fmt.Errorf("history append %q: %w", identity, err)
			}
			etag = doc.ETag
		}

		if existing := ix.Entry(entry.Revision); existing != nil {
			if existing.Key != entry.Key {
				return fmt.Errorf("history append %q: revision %d already recorded with key %q", identity, entry.Revision, existing.Key)
			}
			return nil
		}

		ix.Entries = append(ix.Entries, entry)
		sort.Slice(ix.Entries, func(i, j int) bool {
			return ix.Entries[i].Revision < ix.Entries[j].Revision
		})
		if err := ix.validate(); err != nil {
			return fmt.Errorf("history append: %w", err)
		}

		err = a.put(ctx, ix, etag)
		if docstore.IsConflict(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("history append %q: %w", identity, err)
		}
		return nil
	}

	return fmt.Errorf("history append %q: %w after %d attempts", identity, docstore.ErrConflict, maxRetries)
}

// Close sets the EffectiveUntil of one recorded entry, used when a new
// current revision supersedes the previous one. Retries on conflict;
// setting the same bound twice is a no-op.
func (a *Aggregator) Close(ctx context.Context, identity string, revision int64, until time.Time) error {
	for attempt := 0; attempt < maxRetries; attempt++ {
		doc, err := a.store.Get(ctx, temporal.HistoryKey(identity))
		if err != nil {
			return fmt.Errorf("history close %q: %w", identity, err)
		}
		if doc == nil {
			return fmt.Errorf("history close %q: no index", identity)
		}

		ix, err := fromBody(doc.Body)
		if err != nil {
			return fmt.Errorf("history close %q: %w", identity, err)
		}

		target := ix.Entry(revision)
		if target == nil {
			return fmt.Errorf("history close %q: revision %d not recorded", identity, revision)
		}
		if target.EffectiveUntil.Equal(until) {
			return nil
		}
		target.EffectiveUntil = until

		err = a.put(ctx, ix, doc.ETag)
		if docstore.IsConflict(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("history close %q: %w", identity, err)
		}
		return nil
	}

	return fmt.Errorf("history close %q: %w after %d attempts", identity, docstore.ErrConflict, maxRetries)
}

// put persists the index document. Always bypasses interceptors:
// index documents are bookkeeping, never classified as revisions.
func (a *Aggregator) put(ctx context.Context, ix *Index, etag string) error {
	doc := &docstore.Document{
		Key:     temporal.HistoryKey(ix.Identity),
		TypeTag: TypeTag,
		Body:    ix.toBody(),
		ETag:    etag,
	}

	opts := []docstore.PutOption{docstore.WithoutInterceptors()}
	if etag == "" {
		// First entry: the index must not already exist, otherwise a
		// concurrent writer created it and we must re-read.
		opts = append(opts, docstore.WithCreateOnly())
	}

	_, err := a.store.Put(ctx, doc, opts...)
	return err
}

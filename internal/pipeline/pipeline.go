package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/history"
	"github.com/roach88/strata/internal/registry"
	"github.com/roach88/strata/internal/temporal"
)

// maxAllocRetries bounds the revision-allocation loop. Each retry means
// a concurrent writer claimed the candidate revision number first.
const maxAllocRetries = 8

// Pipeline is the write-path interceptor applying temporal versioning.
type Pipeline struct {
	store    *docstore.Store
	registry *registry.Registry
	history  *history.Aggregator
	clock    temporal.Clock
}

// New creates the pipeline. Callers register it on the store's put path.
func New(store *docstore.Store, reg *registry.Registry, hist *history.Aggregator, clock temporal.Clock) *Pipeline {
	return &Pipeline{store: store, registry: reg, history: hist, clock: clock}
}

// Name implements docstore.Interceptor.
func (p *Pipeline) Name() string { return "temporal-versioning" }

// opState is the per-operation scratch state for one write, owned
// solely by that write's execution.
type opState struct {
	identity       string
	now            time.Time
	effectiveStart time.Time
	isCurrent      bool
	revision       int64
	temporalKey    string

	// priorCurrent is the document stored at the stable identity
	// before a non-current write, restored verbatim in phase 3.
	priorCurrent *docstore.Document

	// superseded is the document stored at the stable identity before
	// a current write, closed out in phase 3.
	superseded *docstore.Document

	// mustClearCurrent is set when a non-current write found no prior
	// document: there must be no current pointer afterwards.
	mustClearCurrent bool
}

// BeforePut runs phases 1 and 2. A returned error vetoes the write
// before the underlying persist; the returned opState carries what
// phase 3 needs.
func (p *Pipeline) BeforePut(ctx context.Context, op *docstore.PutOperation) (any, error) {
	doc := op.Doc

	// History and configuration documents are bookkeeping, never
	// classified, even if a caller writes them without bypass.
	if temporal.IsReservedKey(doc.Key) {
		return nil, nil
	}

	enabled, err := p.registry.Enabled(ctx, doc.TypeTag)
	if err != nil {
		return nil, fmt.Errorf("versioning toggle for %q: %w", doc.Key, err)
	}
	if !enabled {
		return nil, nil
	}

	// Phase 1 - admission.
	if temporal.IsTemporalKey(doc.Key) {
		existing, err := p.store.Get(ctx, doc.Key)
		if err != nil {
			return nil, fmt.Errorf("admission check for %q: %w", doc.Key, err)
		}
		if existing != nil {
			return nil, temporal.NewVeto(temporal.VetoImmutableRevision, doc.Key,
				"revisions are immutable once persisted")
		}
		return nil, temporal.NewVeto(temporal.VetoRevisionKeyReused, doc.Key,
			"key encodes a revision suffix; write to the stable identity instead")
	}
	if err := temporal.ValidateIdentity(doc.Key); err != nil {
		return nil, err
	}
	if doc.Meta.Status != temporal.StatusNew {
		return nil, temporal.NewVeto(temporal.VetoInvalidStatus, doc.Key,
			fmt.Sprintf("incoming status %q, want %q", doc.Meta.Status, temporal.StatusNew))
	}
	if doc.Meta.EffectiveStart.IsZero() {
		return nil, temporal.NewVeto(temporal.VetoMissingEffectiveStart, doc.Key,
			"effective start is required on every versioned write")
	}

	// Phase 2 - classification and revision persist.
	// now is captured once and reused for every comparison in this write.
	st := &opState{
		identity:       doc.Key,
		now:            p.clock.Now().UTC(),
		effectiveStart: doc.Meta.EffectiveStart.UTC(),
	}
	doc.Meta.EffectiveStart = st.effectiveStart
	doc.Meta.EffectiveUntil = temporal.MaxEffective

	// Read the document at the stable identity before this write lands.
	prior, err := p.store.Get(ctx, doc.Key)
	if err != nil {
		return nil, fmt.Errorf("read prior current for %q: %w", doc.Key, err)
	}

	// A stale caller token cannot win the final CAS anyway; failing
	// here keeps the doomed write from persisting a revision copy and
	// history entry first.
	if doc.ETag != "" && (prior == nil || prior.ETag != doc.ETag) {
		return nil, fmt.Errorf("token check for %q: %w", doc.Key, docstore.ErrConflict)
	}

	// A write is current when it is effective by now and not behind an
	// existing current revision: future-dated writes and backdated
	// corrections are both historical.
	st.isCurrent = !st.effectiveStart.After(st.now) &&
		(prior == nil || !st.effectiveStart.Before(prior.Meta.EffectiveStart))

	switch {
	case st.isCurrent:
		st.superseded = prior
	case prior != nil:
		st.priorCurrent = prior
	default:
		st.mustClearCurrent = true
	}

	if err := p.persistRevision(ctx, doc, st); err != nil {
		return nil, err
	}

	doc.Meta.Revision = st.revision
	if st.isCurrent {
		doc.Meta.Status = temporal.StatusCurrent
	} else {
		doc.Meta.Status = temporal.StatusHistorical
	}

	return st, nil
}

// persistRevision allocates the next revision number, persists the
// immutable revision copy at its temporal key, and records it in the
// history index.
//
// Allocation is gapless: the candidate number comes from the history
// index length, and the create-only put on the temporal key arbitrates
// races - the loser re-reads and takes the next number.
func (p *Pipeline) persistRevision(ctx context.Context, doc *docstore.Document, st *opState) error {
	status := temporal.StatusHistorical
	if st.isCurrent {
		status = temporal.StatusCurrent
	}

	for attempt := 0; attempt < maxAllocRetries; attempt++ {
		revision, err := p.history.NextRevision(ctx, doc.Key)
		if err != nil {
			return fmt.Errorf("allocate revision for %q: %w", doc.Key, err)
		}
		temporalKey := temporal.EncodeKey(doc.Key, revision)

		revCopy := doc.Clone()
		revCopy.Key = temporalKey
		revCopy.ETag = ""
		revCopy.Meta.Status = status
		revCopy.Meta.Revision = revision

		_, err = p.store.Put(ctx, revCopy, docstore.WithoutInterceptors(), docstore.WithCreateOnly())
		if docstore.IsConflict(err) {
			continue
		}
		if err != nil {
			return fmt.Errorf("persist revision %q: %w", temporalKey, err)
		}

		// The revision is durable from here on. An indexing failure is
		// surfaced, never swallowed: the revision must not be dropped
		// silently.
		entry := history.Entry{
			Revision:       revision,
			Key:            temporalKey,
			EffectiveStart: doc.Meta.EffectiveStart,
			EffectiveUntil: doc.Meta.EffectiveUntil,
		}
		if err := p.history.Append(ctx, doc.Key, entry); err != nil {
			return fmt.Errorf("index revision %q: %w", temporalKey, err)
		}

		st.revision = revision
		st.temporalKey = temporalKey
		return nil
	}

	return fmt.Errorf("allocate revision for %q: %w after %d attempts", doc.Key, docstore.ErrConflict, maxAllocRetries)
}

// AfterPut runs phase 3 after the underlying persist completed. Every
// branch is idempotent and safe to retry: the revision write and the
// compensation write are not covered by one atomic transaction.
func (p *Pipeline) AfterPut(ctx context.Context, op *docstore.PutOperation, state any) error {
	st, ok := state.(*opState)
	if !ok || st == nil {
		return nil
	}

	switch {
	case st.priorCurrent != nil:
		// The write was not current: put the prior current document
		// back verbatim. Unconditional, so a retry lands identically.
		restored := st.priorCurrent.Clone()
		restored.ETag = ""
		if _, err := p.store.Put(ctx, restored, docstore.WithoutInterceptors()); err != nil {
			return fmt.Errorf("restore prior current %q: %w", st.identity, err)
		}

	case st.mustClearCurrent:
		// Nothing was current before and this write is not current
		// either: no current pointer may remain.
		if err := p.store.Delete(ctx, st.identity, ""); err != nil {
			return fmt.Errorf("clear current slot %q: %w", st.identity, err)
		}

	default:
		// The write is the new current revision; the stable identity
		// already holds it. Close out the revision it superseded.
		if st.superseded != nil && st.superseded.Meta.Revision > 0 {
			if err := p.closeSuperseded(ctx, st); err != nil {
				return err
			}
		}
	}

	return nil
}

// closeSuperseded bounds the superseded revision's effective interval
// at the new revision's start, in both its stored copy and its history
// entry. Re-applying the same bound is a no-op.
func (p *Pipeline) closeSuperseded(ctx context.Context, st *opState) error {
	prevKey := temporal.EncodeKey(st.identity, st.superseded.Meta.Revision)

	prev, err := p.store.Get(ctx, prevKey)
	if err != nil {
		return fmt.Errorf("close superseded %q: %w", prevKey, err)
	}
	if prev != nil && !prev.Meta.EffectiveUntil.Equal(st.effectiveStart) {
		prev.Meta.Status = temporal.StatusHistorical
		prev.Meta.EffectiveUntil = st.effectiveStart
		if _, err := p.store.Put(ctx, prev, docstore.WithoutInterceptors()); err != nil {
			return fmt.Errorf("close superseded %q: %w", prevKey, err)
		}
	}

	if err := p.history.Close(ctx, st.identity, st.superseded.Meta.Revision, st.effectiveStart); err != nil {
		return fmt.Errorf("close superseded %q: %w", prevKey, err)
	}

	return nil
}

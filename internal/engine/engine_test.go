package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/strata/internal/docstore"
	"github.com/roach88/strata/internal/query"
	"github.com/roach88/strata/internal/temporal"
	"github.com/roach88/strata/internal/testutil"
)

var base = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T) (*Engine, *testutil.FixedClock) {
	t.Helper()

	store, err := docstore.Open(filepath.Join(t.TempDir(), "strata.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clock := testutil.NewFixedClock(base)
	return New(store, WithClock(clock)), clock
}

func enableVersioning(t *testing.T, e *Engine, typeTag string) {
	t.Helper()
	require.NoError(t, e.ConfigureVersioning(context.Background(), typeTag, true))
}

func TestWrite_PassthroughWhenVersioningDisabled(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	res, err := e.Write(ctx, "log-1", "logs", map[string]any{"msg": "hello"}, base)
	require.NoError(t, err)
	assert.Zero(t, res.Revision)
	assert.Empty(t, res.TemporalKey)
	assert.False(t, res.Current)

	doc, err := e.Get(ctx, "log-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "hello", doc.Body["msg"])

	hist, err := e.ReadHistory(ctx, "log-1")
	require.NoError(t, err)
	assert.Nil(t, hist, "passthrough writes must not grow a history")
}

func TestWrite_FirstVersionedWriteBecomesCurrent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	res, err := e.Write(ctx, "order-1", "orders", map[string]any{"total": "10"}, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Revision)
	assert.Equal(t, "order-1::1", res.TemporalKey)
	assert.True(t, res.Current)
	assert.NotEmpty(t, res.ETag)

	doc, err := e.Get(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, temporal.StatusCurrent, doc.Meta.Status)
	assert.Equal(t, int64(1), doc.Meta.Revision)
	assert.True(t, temporal.IsOpenEnded(doc.Meta.EffectiveUntil))
}

func TestWrite_SupersedeClosesPriorRevision(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	t1 := base.Add(-2 * time.Hour)
	t2 := base.Add(-time.Hour)

	_, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "draft"}, t1)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	res, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "final"}, t2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Revision)
	assert.True(t, res.Current)

	// The live document is the second write.
	doc, err := e.Get(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "final", doc.Body["state"])
	assert.Equal(t, int64(2), doc.Meta.Revision)

	// Revision 1 is closed out at revision 2's start.
	rev1, err := e.ReadRevision(ctx, "order-1", 1)
	require.NoError(t, err)
	require.NotNil(t, rev1)
	assert.Equal(t, temporal.StatusHistorical, rev1.Meta.Status)
	assert.True(t, rev1.Meta.EffectiveUntil.Equal(t2))

	// The history index mirrors the closed interval.
	hist, err := e.ReadHistory(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, hist)
	require.Len(t, hist.Entries, 2)
	assert.True(t, hist.Entries[0].EffectiveUntil.Equal(t2))
	assert.True(t, temporal.IsOpenEnded(hist.Entries[1].EffectiveUntil))
}

func TestWrite_FutureDatedLeavesCurrentUntouched(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	_, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "live"}, base.Add(-time.Hour))
	require.NoError(t, err)
	current, err := e.Get(ctx, "order-1")
	require.NoError(t, err)

	future := base.Add(24 * time.Hour)
	res, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "planned"}, future)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Revision)
	assert.False(t, res.Current)

	// The stable identity still holds the prior current, verbatim.
	doc, err := e.Get(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "live", doc.Body["state"])
	assert.Equal(t, current.Meta.Revision, doc.Meta.Revision)

	// The future revision exists as a historical copy.
	rev2, err := e.ReadRevision(ctx, "order-1", 2)
	require.NoError(t, err)
	require.NotNil(t, rev2)
	assert.Equal(t, temporal.StatusHistorical, rev2.Meta.Status)

	// Once the clock passes its start, as-of reads resolve to it.
	clock.Set(future.Add(time.Minute))
	asOf, err := e.ReadAsOf(ctx, "order-1", future.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, asOf)
	assert.Equal(t, "planned", asOf.Body["state"])
}

func TestWrite_BackdatedRestoresCurrent(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	t1 := base.Add(-time.Hour)
	_, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "live"}, t1)
	require.NoError(t, err)

	// A correction dated before the current revision's start is
	// historical; the live document must come back unchanged.
	clock.Advance(time.Minute)
	backdated := base.Add(-3 * time.Hour)
	res, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "corrected"}, backdated)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Revision)
	assert.False(t, res.Current)

	doc, err := e.Get(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "live", doc.Body["state"])
	assert.Equal(t, int64(1), doc.Meta.Revision)
	assert.Equal(t, temporal.StatusCurrent, doc.Meta.Status)

	// As-of reads inside the backdated interval see the correction.
	asOf, err := e.ReadAsOf(ctx, "order-1", base.Add(-2*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, asOf)
	assert.Equal(t, "corrected", asOf.Body["state"])
	assert.Equal(t, "order-1", asOf.Key, "rehydrated reads must not expose temporal keys")

	// At or after t1 the later-starting revision still wins.
	asOf, err = e.ReadAsOf(ctx, "order-1", t1)
	require.NoError(t, err)
	require.NotNil(t, asOf)
	assert.Equal(t, "live", asOf.Body["state"])
}

func TestWrite_FutureDatedFirstWriteLeavesNoCurrent(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	res, err := e.Write(ctx, "order-9", "orders", map[string]any{"state": "planned"}, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Revision)
	assert.False(t, res.Current)

	doc, err := e.Get(ctx, "order-9")
	require.NoError(t, err)
	assert.Nil(t, doc, "no revision is effective yet, so nothing may be current")

	rev, err := e.ReadRevision(ctx, "order-9", 1)
	require.NoError(t, err)
	require.NotNil(t, rev)
	assert.Equal(t, "planned", rev.Body["state"])
}

func TestWrite_VetoOnTemporalKey(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	// Unoccupied temporal key: rejected as a reserved shape.
	_, err := e.Write(ctx, "order-1::1", "orders", map[string]any{}, base)
	require.Error(t, err)
	assert.True(t, temporal.IsVeto(err, temporal.VetoRevisionKeyReused))

	// Occupied temporal key: rejected as immutable.
	_, err = e.Write(ctx, "order-1", "orders", map[string]any{"v": "a"}, base.Add(-time.Hour))
	require.NoError(t, err)
	_, err = e.Write(ctx, "order-1::1", "orders", map[string]any{"v": "b"}, base)
	require.Error(t, err)
	assert.True(t, temporal.IsVeto(err, temporal.VetoImmutableRevision))
}

func TestWrite_ReservedStemIdentityRejected(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	// "history" as an identity would persist its revision copy at
	// "history::1", exactly where identity "1" keeps its index document.
	_, err := e.Write(ctx, "history", "orders", map[string]any{}, base.Add(-time.Hour))
	require.Error(t, err)
	assert.ErrorIs(t, err, temporal.ErrInvalidIdentity)

	// The neighboring identity must be completely unaffected.
	res, err := e.Write(ctx, "1", "orders", map[string]any{"v": "a"}, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Revision)

	hist, err := e.ReadHistory(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, hist)
	assert.Len(t, hist.Entries, 1)
}

func TestWrite_VetoOnMissingEffectiveStart(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	_, err := e.Write(ctx, "order-1", "orders", map[string]any{}, time.Time{})
	require.Error(t, err)
	assert.True(t, temporal.IsVeto(err, temporal.VetoMissingEffectiveStart))

	// A vetoed write leaves no trace.
	hist, err := e.ReadHistory(ctx, "order-1")
	require.NoError(t, err)
	assert.Nil(t, hist)
}

func TestWrite_StaleTokenConflicts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	res, err := e.Write(ctx, "order-1", "orders", map[string]any{"n": "1"}, base.Add(-time.Hour))
	require.NoError(t, err)

	_, err = e.Write(ctx, "order-1", "orders", map[string]any{"n": "2"}, base.Add(-time.Minute), WithToken(res.ETag))
	require.NoError(t, err)

	_, err = e.Write(ctx, "order-1", "orders", map[string]any{"n": "3"}, base.Add(-time.Second), WithToken(res.ETag))
	require.Error(t, err)
	assert.True(t, docstore.IsConflict(err))

	// The conflicted write must not leave a phantom revision behind:
	// neither a revision copy nor a history entry.
	hist, err := e.ReadHistory(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, hist)
	assert.Len(t, hist.Entries, 2)

	rev3, err := e.ReadRevision(ctx, "order-1", 3)
	require.NoError(t, err)
	assert.Nil(t, rev3)
}

func TestReadHistory_GaplessNumbering(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	for i := 0; i < 4; i++ {
		clock.Advance(time.Minute)
		_, err := e.Write(ctx, "order-1", "orders", map[string]any{"i": int64(i)}, clock.Now().Add(-time.Second))
		require.NoError(t, err)
	}

	hist, err := e.ReadHistory(ctx, "order-1")
	require.NoError(t, err)
	require.NotNil(t, hist)
	require.Len(t, hist.Entries, 4)
	for i, entry := range hist.Entries {
		assert.Equal(t, int64(i+1), entry.Revision)
		assert.Equal(t, temporal.EncodeKey("order-1", int64(i+1)), entry.Key)
	}
}

func TestReadRevisions_Paging(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	for i := 0; i < 5; i++ {
		clock.Advance(time.Minute)
		_, err := e.Write(ctx, "order-1", "orders", map[string]any{"i": int64(i)}, clock.Now().Add(-time.Second))
		require.NoError(t, err)
	}

	page, err := e.ReadRevisions(ctx, "order-1", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(2), page[0].Meta.Revision)
	assert.Equal(t, int64(3), page[1].Meta.Revision)
	assert.Equal(t, "order-1", page[0].Key)

	rest, err := e.ReadRevisions(ctx, "order-1", 4, 10)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	assert.Equal(t, int64(5), rest[1].Meta.Revision)
}

func TestReadAsOf_RejectsZeroInstant(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.ReadAsOf(context.Background(), "order-1", time.Time{})
	require.Error(t, err)
	assert.ErrorIs(t, err, temporal.ErrInvalidEffectiveDate)
}

func TestReadAsOf_AbsentIdentity(t *testing.T) {
	e, _ := newTestEngine(t)

	doc, err := e.ReadAsOf(context.Background(), "no-such", base)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestQuery_CurrentOnlyVersusIncludeAll(t *testing.T) {
	e, clock := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	_, err := e.Write(ctx, "order-1", "orders", map[string]any{"region": "emea"}, base.Add(-2*time.Hour))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, err = e.Write(ctx, "order-1", "orders", map[string]any{"region": "emea"}, base.Add(-time.Hour))
	require.NoError(t, err)

	// Default visibility: one live document, no revision copies.
	docs, err := e.Query(ctx, query.New("orders"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "order-1", docs[0].Key)
	assert.Equal(t, int64(2), docs[0].Meta.Revision)

	// Opt-out visibility: the live copy plus both revision copies.
	docs, err = e.Query(ctx, query.New("orders").IncludeAllEffectiveTime())
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestQuery_PredicateOnBodyField(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	_, err := e.Write(ctx, "order-1", "orders", map[string]any{"region": "emea"}, base.Add(-time.Hour))
	require.NoError(t, err)
	_, err = e.Write(ctx, "order-2", "orders", map[string]any{"region": "apac"}, base.Add(-time.Hour))
	require.NoError(t, err)

	docs, err := e.Query(ctx, query.New("orders").Where(query.Equals{Field: "region", Value: "apac"}))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "order-2", docs[0].Key)
}

func TestQuery_NonVersionedType(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Write(ctx, "log-1", "logs", map[string]any{"level": "info"}, base)
	require.NoError(t, err)
	_, err = e.Write(ctx, "log-2", "logs", map[string]any{"level": "warn"}, base)
	require.NoError(t, err)

	docs, err := e.Query(ctx, query.New("logs"))
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestDelete_RevisionCopiesSurvive(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	enableVersioning(t, e, "orders")

	_, err := e.Write(ctx, "order-1", "orders", map[string]any{"state": "live"}, base.Add(-time.Hour))
	require.NoError(t, err)

	require.NoError(t, e.Delete(ctx, "order-1", ""))

	doc, err := e.Get(ctx, "order-1")
	require.NoError(t, err)
	assert.Nil(t, doc)

	rev, err := e.ReadRevision(ctx, "order-1", 1)
	require.NoError(t, err)
	assert.NotNil(t, rev, "deleting the current pointer must not erase history")
}

func TestConfigureVersioning_DefaultEntry(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.ConfigureVersioning(ctx, "", true))

	res, err := e.Write(ctx, "order-1", "orders", map[string]any{}, base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Revision, "default entry enables versioning for unlisted types")

	require.NoError(t, e.ConfigureVersioning(ctx, "logs", false))
	res, err = e.Write(ctx, "log-1", "logs", map[string]any{}, base)
	require.NoError(t, err)
	assert.Zero(t, res.Revision, "a type entry overrides the default")
}

// Package history maintains one compact index document per stable
// identity, summarizing all of its revisions and their effective
// intervals. The index supports "list history" without scanning
// revision keys, and its length allocates revision numbers.
package history

import (
	"fmt"
	"time"

	"github.com/roach88/strata/internal/temporal"
)

// TypeTag marks history index documents in the store.
const TypeTag = "strata.history"

// Entry summarizes one revision: its temporal key and effective interval.
type Entry struct {
	Revision       int64     `json:"revision"`
	Key            string    `json:"key"`
	EffectiveStart time.Time `json:"effective_start"`
	EffectiveUntil time.Time `json:"effective_until"`
}

// Index is the per-identity revision summary. Entries are ordered by
// revision number ascending and numbered gaplessly 1..N.
//
// Indexes returned by the aggregator are detached copies: mutating one
// never writes back to the store.
type Index struct {
	Identity string  `json:"identity"`
	Entries  []Entry `json:"entries"`
}

// NextRevision returns the revision number the next write receives.
func (ix *Index) NextRevision() int64 {
	if ix == nil {
		return 1
	}
	return int64(len(ix.Entries)) + 1
}

// Entry returns the entry for a revision number, or nil.
func (ix *Index) Entry(revision int64) *Entry {
	if ix == nil {
		return nil
	}
	for i := range ix.Entries {
		if ix.Entries[i].Revision == revision {
			return &ix.Entries[i]
		}
	}
	return nil
}

// toBody converts the index to a document body.
func (ix *Index) toBody() map[string]any {
	entries := make([]any, len(ix.Entries))
	for i, e := range ix.Entries {
		entries[i] = map[string]any{
			"revision":        e.Revision,
			"key":             e.Key,
			"effective_start": e.EffectiveStart.UTC().Format(time.RFC3339Nano),
			"effective_until": e.EffectiveUntil.UTC().Format(time.RFC3339Nano),
		}
	}
	return map[string]any{
		"identity": ix.Identity,
		"entries":  entries,
	}
}

// fromBody parses a stored document body back into an index.
func fromBody(body map[string]any) (*Index, error) {
	ix := &Index{}

	identity, _ := body["identity"].(string)
	if identity == "" {
		return nil, fmt.Errorf("history index: missing identity")
	}
	ix.Identity = identity

	rawEntries, _ := body["entries"].([]any)
	ix.Entries = make([]Entry, 0, len(rawEntries))
	for i, raw := range rawEntries {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("history index %q: entry %d is %T, want object", identity, i, raw)
		}
		entry, err := entryFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("history index %q: entry %d: %w", identity, i, err)
		}
		ix.Entries = append(ix.Entries, entry)
	}

	return ix, nil
}

func entryFromMap(m map[string]any) (Entry, error) {
	var e Entry

	revision, err := asInt64(m["revision"])
	if err != nil {
		return e, fmt.Errorf("revision: %w", err)
	}
	e.Revision = revision

	e.Key, _ = m["key"].(string)
	if e.Key == "" {
		return e, fmt.Errorf("missing key")
	}

	e.EffectiveStart, err = asTime(m["effective_start"])
	if err != nil {
		return e, fmt.Errorf("effective_start: %w", err)
	}

	e.EffectiveUntil, err = asTime(m["effective_until"])
	if err != nil {
		return e, fmt.Errorf("effective_until: %w", err)
	}

	return e, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case interface{ Int64() (int64, error) }: // json.Number
		return n.Int64()
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected number type %T", v)
	}
}

func asTime(v any) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected timestamp type %T", v)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// validate checks the gapless-numbering invariant before persisting.
func (ix *Index) validate() error {
	for i, e := range ix.Entries {
		if e.Revision != int64(i)+1 {
			return fmt.Errorf("history index %q: entry %d has revision %d, want %d (gapless)", ix.Identity, i, e.Revision, i+1)
		}
		if e.Key != temporal.EncodeKey(ix.Identity, e.Revision) {
			return fmt.Errorf("history index %q: entry %d key %q does not match identity", ix.Identity, i, e.Key)
		}
	}
	return nil
}

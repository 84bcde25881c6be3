package temporal

import "time"

// Status classifies one revision of a versioned document.
type Status string

const (
	// StatusNew marks an incoming write that the pipeline has not yet
	// classified. Every sanctioned write arrives with this status.
	StatusNew Status = "new"

	// StatusCurrent marks the live revision, stored under the stable
	// identity (and mirrored at its own temporal key).
	StatusCurrent Status = "current"

	// StatusHistorical marks a revision stored only under its temporal
	// key: superseded, backdated, or not yet effective.
	StatusHistorical Status = "historical"
)

// Valid reports whether s is one of the defined status values.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusCurrent, StatusHistorical:
		return true
	}
	return false
}

// MaxEffective is the open-ended sentinel for EffectiveUntil.
// The live revision of every identity carries this value.
var MaxEffective = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)

// IsOpenEnded reports whether t is the open-ended sentinel.
func IsOpenEnded(t time.Time) bool {
	return t.Equal(MaxEffective)
}

// Metadata holds the per-revision temporal attributes attached to a
// document's envelope.
//
// Ownership: the write pipeline exclusively owns transitions of Status
// and EffectiveUntil. Callers set EffectiveStart and the body only.
type Metadata struct {
	// Status is the revision's classification.
	Status Status `json:"status"`

	// EffectiveStart is when this revision begins to represent the
	// truth. Required on every incoming write.
	EffectiveStart time.Time `json:"effective_start"`

	// EffectiveUntil is when this revision stops representing the
	// truth. System-assigned; MaxEffective while open-ended.
	EffectiveUntil time.Time `json:"effective_until"`

	// Revision is the 1-based, per-identity revision number.
	// Zero until the pipeline assigns it.
	Revision int64 `json:"revision"`
}

// Covers reports whether asOf falls within [EffectiveStart, EffectiveUntil).
func (m Metadata) Covers(asOf time.Time) bool {
	return !asOf.Before(m.EffectiveStart) && asOf.Before(m.EffectiveUntil)
}

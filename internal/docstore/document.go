package docstore

import (
	"fmt"
	"time"

	"github.com/roach88/strata/internal/temporal"
)

// timeLayout is the storage representation for timestamps: RFC 3339
// with nanoseconds, always UTC. The zero value is stored as "".
const timeLayout = time.RFC3339Nano

// Document is one stored document: key, type tag, body, and the
// temporal metadata envelope.
type Document struct {
	// Key is the storage key: a stable identity, a temporal key, or a
	// reserved (history/config) key.
	Key string

	// TypeTag names the document type, used for versioning toggles and
	// query scoping.
	TypeTag string

	// Body is the document content. Persisted as canonical JSON text.
	Body map[string]any

	// Meta is the temporal metadata envelope.
	Meta temporal.Metadata

	// ETag is the optimistic concurrency token. Assigned by the store
	// on every successful put; a put carrying a stale token fails with
	// ErrConflict.
	ETag string
}

// Clone returns a deep-enough copy of the document for compensation:
// the body map is copied one level deep, which covers restore-verbatim
// because stored bodies are never mutated in place.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.Body != nil {
		out.Body = make(map[string]any, len(d.Body))
		for k, v := range d.Body {
			out.Body[k] = v
		}
	}
	return &out
}

// encodeTime formats a timestamp for storage.
func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// decodeTime parses a stored timestamp. "" decodes to the zero value.
func decodeTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

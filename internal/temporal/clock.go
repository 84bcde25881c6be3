package temporal

import "time"

// Clock supplies the wall-clock instant used for currency decisions.
//
// The write pipeline captures one instant per write and reuses it for
// every comparison in that write. Tests substitute a fixed clock to
// make currency classification deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock in UTC.
//
// Thread-safety: SystemClock is stateless and safe for concurrent use.
type SystemClock struct{}

// Now returns the current UTC instant.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// ValidateInstant checks that t is an unambiguous absolute instant.
// Zero-value timestamps are rejected with ErrInvalidEffectiveDate.
//
// Callers parse external input with offset-qualified formats (RFC 3339),
// so any non-zero time.Time reaching this layer is already absolute; it
// is normalized to UTC by the caller before storage.
func ValidateInstant(t time.Time) error {
	if t.IsZero() {
		return ErrInvalidEffectiveDate
	}
	return nil
}

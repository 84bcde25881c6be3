package docstore

import "errors"

// ErrConflict indicates an optimistic concurrency failure: the put or
// delete carried a token that no longer matches the stored document,
// or a create-only put found the key occupied.
//
// The revisioning layer propagates this error unchanged to callers for
// retry; it never auto-retries a caller's write.
var ErrConflict = errors.New("concurrency conflict")

// IsConflict returns true if err is a concurrency conflict.
// Uses errors.Is to handle wrapped errors.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

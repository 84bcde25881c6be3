// Package pipeline implements the revisioning write pipeline: the
// veto/mutate/compensate state machine invoked on every write to a
// versioned document.
//
// The underlying store only exposes a linear before/after write hook,
// not an atomic "redirect this write elsewhere" hook. Correctness
// therefore requires letting the write land and compensating after:
// every write to a stable identity is either a true update of the
// current document or a no-op-with-side-revision, and always produces
// a permanent, independently addressable revision.
//
// The three phases run per write as one saga:
//
//  1. Admission (veto): versioning toggle, key shape, status, and
//     effective-start checks. Vetoes are side-effect-free.
//  2. Classification and revision persist: capture now() once, decide
//     currency, snapshot the prior current document, allocate the next
//     revision number, persist the immutable revision copy, record it
//     in the history index.
//  3. Compensation (after the underlying persist): restore the prior
//     current document verbatim, or clear the slot when nothing was
//     current, or close out the superseded revision.
//
// Per-operation scratch state (the captured now, the prior current
// snapshot, the clear flag) lives in an opState value threaded by the
// store from the before-hook to the after-hook of that one put. It is
// never shared: concurrent writers to different identities cannot
// corrupt each other's compensation state.
package pipeline

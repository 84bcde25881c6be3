// Package docstore provides the SQLite-backed document store that the
// strata revisioning layer rides on.
//
// The store implements the minimal collaborator surface the pipeline
// requires:
//   - Atomic single-key put/get/delete with optimistic concurrency
//     (etag tokens; a stale token fails with ErrConflict)
//   - Prefix-range scans with deterministic ordering
//   - An interceptor hook surface: a before-put veto/mutate hook and an
//     after-put hook, with a per-call bypass mode so compensating
//     writes do not recurse through classification
//
// Bodies are stored as canonical JSON text: object keys sorted, strings
// NFC-normalized, no HTML escaping. Logically identical bodies always
// serialize to identical text.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
package docstore

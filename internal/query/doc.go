// Package query builds and compiles document queries with the default
// current-only visibility contract.
//
// Queries against versioned collections implicitly exclude every
// document that is not the current revision. Opting out is a two-step
// protocol rather than a plain flag: the caller tags the spec with a
// marker customization at build time, and the visibility filter
// recognizes and strips the marker exactly once before dispatch while
// suppressing the current-only predicate. This composes with the
// store's generic customization surface without a dedicated API.
package query

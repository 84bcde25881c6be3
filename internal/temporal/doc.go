// Package temporal provides the foundational types for the strata
// revisioning layer.
//
// This package contains type definitions, key encoding, and the error
// taxonomy only. All other internal packages import temporal; temporal
// imports nothing internal. This ensures it remains the foundational
// layer with no circular dependencies.
//
// Key design constraints:
//   - A stable identity is never suffixed; a temporal key is always
//     identity + Separator + revision number (1-based).
//   - The separator sequence is forbidden inside stable identities,
//     so every key is unambiguously one or the other.
//   - All timestamps are UTC instants. Zero-value timestamps are
//     rejected at the boundary, never stored.
package temporal

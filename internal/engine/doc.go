// Package engine wires the strata components into the caller-facing
// surface: configure versioning, write, time-scoped reads, revision
// listing, history, and filtered queries.
//
// The engine owns no temporal logic of its own. It registers the write
// pipeline on the store's put path, routes reads through the
// effective-time reader, and applies the visibility filter to queries.
// All work happens synchronously within the triggering call; there is
// no background goroutine, timer, or async task.
package engine

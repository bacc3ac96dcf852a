// Package graph provides the immutable graph model consumed by the
// execution engine: node specifications keyed by id and their outgoing
// edges.
//
// A Model is built once from a validated config.Model and is read-only for
// the duration of a run. Structural edits belong to the authoring layer and
// must produce a new snapshot; nothing in this package mutates after Build
// returns. That discipline is what lets many concurrent paths read the
// graph without locks.
package graph

// Package engine drives the traversal of a flow graph. A run starts as a
// single path at a chosen root node; each path executes its node's script in
// the sandbox, consults the decision oracle for the outgoing edges to follow,
// and forks one child path per chosen successor. Paths are independent
// goroutines joined by the run's reference count; the run finishes when every
// path has reached a terminal reason and no decision task is outstanding.
package engine

// Package oracle defines the decision oracle consulted after every node
// execution: given the node's output and its candidate successors, the
// oracle chooses which outgoing edges the traversal follows. The vendor
// protocol is deliberately hidden behind the Oracle interface; the engine
// only sees validated decisions.
package oracle

import "context"

// Candidate describes one node reachable from the current node.
type Candidate struct {
	ID          string
	Label       string
	Type        string
	Description string
	// Condition is the authored hint on the edge leading to this candidate,
	// if any.
	Condition string
}

// Request carries everything the oracle needs for one decision.
type Request struct {
	NodeID        string
	NodeLabel     string
	OutputSummary string
	Guidance      string
	Candidates    []Candidate
}

// Decision is a validated oracle response. ChosenIDs only ever contains ids
// from the request's candidate set; anything else the oracle named is moved
// to Unknown for the caller to log. An empty ChosenIDs is a valid terminal
// decision, not a failure.
type Decision struct {
	ChosenIDs []string
	Unknown   []string
	Raw       string
}

// Oracle chooses a node's successors. Decide must honor context
// cancellation; a cancelled call may race with an in-flight response, in
// which case the caller discards the result.
type Oracle interface {
	Decide(ctx context.Context, req *Request) (*Decision, error)
}

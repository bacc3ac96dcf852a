package engine

import "fmt"

// TerminalReason classifies why a path stopped. Every path ends with exactly
// one reason; the completion report enumerates all of them.
type TerminalReason int

const (
	// ReasonCompleted means the path ran out of work normally: a node with
	// no outgoing edges, or an oracle decision selecting nothing.
	ReasonCompleted TerminalReason = iota
	// ReasonMaxDepth means the path exceeded the run's depth limit.
	ReasonMaxDepth
	// ReasonCycle means the path re-entered a node already in its own
	// visited set.
	ReasonCycle
	// ReasonError means the oracle call for this path failed. Sibling paths
	// are unaffected.
	ReasonError
	// ReasonCancelled means the run was stopped before this path could
	// proceed past its current node.
	ReasonCancelled
)

var reasonNames = map[TerminalReason]string{
	ReasonCompleted: "completed",
	ReasonMaxDepth:  "max_depth",
	ReasonCycle:     "cycle",
	ReasonError:     "error",
	ReasonCancelled: "cancelled",
}

func (r TerminalReason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(r))
}

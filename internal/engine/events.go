package engine

import "github.com/vk/flowgridgo/internal/pathid"

// EventKind labels a progress event.
type EventKind int

const (
	// EventNodeEntered fires when a path begins executing a node's script.
	EventNodeEntered EventKind = iota
	// EventNodeOutput fires when a node's output payload is ready.
	EventNodeOutput
	// EventBranchForked fires when a path spawns child paths.
	EventBranchForked
	// EventPathTerminated fires when a path reaches a terminal reason.
	EventPathTerminated
)

var eventKindNames = map[EventKind]string{
	EventNodeEntered:    "node_entered",
	EventNodeOutput:     "node_output",
	EventBranchForked:   "branch_forked",
	EventPathTerminated: "path_terminated",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is a purely informational progress notification. Observers must not
// block; correctness never depends on anyone consuming events.
type Event struct {
	Kind   EventKind
	PathID pathid.Address
	NodeID string
	Depth  int

	// OutputSummary is set on EventNodeOutput.
	OutputSummary string
	// Children holds the forked path ids on EventBranchForked.
	Children []pathid.Address
	// Reason is set on EventPathTerminated.
	Reason TerminalReason
}

// Observer receives progress events. It may be called from many path
// goroutines concurrently.
type Observer func(Event)

package graph

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/payload"
)

// NodeType is the closed set of node kinds a flow may contain. Keeping the
// set closed lets every dispatch site switch exhaustively instead of
// branching on free-form strings.
type NodeType int

const (
	// Source nodes start a flow; their script typically builds the first
	// real payload from the node's seed data.
	Source NodeType = iota
	// Process nodes transform the payload they receive.
	Process
	// Router nodes exist to steer the traversal; their output is primarily
	// consumed by the decision oracle.
	Router
	// Sink nodes absorb a payload. They usually have no outgoing edges.
	Sink
)

var nodeTypeNames = map[NodeType]string{
	Source:  "source",
	Process: "process",
	Router:  "router",
	Sink:    "sink",
}

// String returns the type's configuration tag.
func (t NodeType) String() string {
	if name, ok := nodeTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// ParseNodeType maps a configuration tag to its NodeType. Unknown tags are
// an error; there is no default type at this layer.
func ParseNodeType(tag string) (NodeType, error) {
	for t, name := range nodeTypeNames {
		if name == tag {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q (expected one of source, process, router, sink)", tag)
}

// Describe returns the human phrasing of the type used when presenting a
// node as a decision candidate.
func (t NodeType) Describe() string {
	switch t {
	case Source:
		return "entry point"
	case Process:
		return "data transformation step"
	case Router:
		return "routing decision point"
	case Sink:
		return "terminal consumer"
	default:
		panic(fmt.Sprintf("unhandled node type %d", int(t)))
	}
}

// NodeSpec is the immutable description of one node.
type NodeSpec struct {
	ID       string
	Label    string
	Type     NodeType
	Script   string
	Guidance string
	Seed     *payload.Payload
}

// EdgeSpec is the immutable description of one directed edge.
type EdgeSpec struct {
	ID        string
	Source    string
	Target    string
	Condition string
}

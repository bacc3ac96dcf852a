package engine

import (
	"github.com/vk/flowgridgo/internal/pathid"
	"github.com/vk/flowgridgo/internal/payload"
)

// path is the traversal state of one branch. Each path is owned exclusively
// by its goroutine; forking hands children copies, never shared state.
type path struct {
	id      pathid.Address
	nodeID  string
	depth   int
	visited map[string]bool
	payload *payload.Payload
}

func newRootPath(nodeID string, seed *payload.Payload) *path {
	if seed == nil {
		seed = payload.Empty()
	}
	return &path{
		id:      pathid.Root(),
		nodeID:  nodeID,
		depth:   0,
		visited: make(map[string]bool),
		payload: seed,
	}
}

// fork creates the n-th child of this path at the given node. The visited
// set is copied so sibling branches can revisit each other's nodes, and the
// payload is cloned so no two paths share mutable data.
func (p *path) fork(n int, nodeID string, output *payload.Payload) *path {
	visited := make(map[string]bool, len(p.visited))
	for id := range p.visited {
		visited[id] = true
	}
	return &path{
		id:      p.id.Child(n),
		nodeID:  nodeID,
		depth:   p.depth + 1,
		visited: visited,
		payload: output.Clone(),
	}
}

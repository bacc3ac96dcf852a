package graph

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/payload"
)

// Model is the immutable graph snapshot used by a run.
type Model struct {
	nodes    map[string]*NodeSpec
	outgoing map[string][]*EdgeSpec
	order    []string
}

// Build validates a flow definition and produces the graph model. It rejects
// duplicate node ids, edges referencing unknown nodes, duplicate edges and
// unknown node types. Self-loops are allowed: the per-path visited set
// terminates them at runtime, and a sibling branch may legitimately return
// to a node it has not itself visited.
func Build(cfg *config.Model) (*Model, error) {
	if cfg == nil || len(cfg.Nodes) == 0 {
		return nil, fmt.Errorf("flow definition contains no nodes")
	}

	m := &Model{
		nodes:    make(map[string]*NodeSpec, len(cfg.Nodes)),
		outgoing: make(map[string][]*EdgeSpec),
	}

	for _, n := range cfg.Nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("node with empty name")
		}
		if _, exists := m.nodes[n.Name]; exists {
			return nil, fmt.Errorf("duplicate node id %q", n.Name)
		}
		nodeType, err := ParseNodeType(n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %q: %w", n.Name, err)
		}

		spec := &NodeSpec{
			ID:       n.Name,
			Label:    n.Label,
			Type:     nodeType,
			Script:   n.Script,
			Guidance: n.Guidance,
			Seed:     seedPayload(n.Seed),
		}
		if spec.Label == "" {
			spec.Label = spec.ID
		}
		m.nodes[spec.ID] = spec
		m.order = append(m.order, spec.ID)
	}

	seenEdges := make(map[string]struct{}, len(cfg.Edges))
	for _, e := range cfg.Edges {
		if _, ok := m.nodes[e.Source]; !ok {
			return nil, fmt.Errorf("edge references unknown source node %q", e.Source)
		}
		if _, ok := m.nodes[e.Target]; !ok {
			return nil, fmt.Errorf("edge %q -> %q references unknown target node", e.Source, e.Target)
		}
		id := fmt.Sprintf("%s->%s", e.Source, e.Target)
		if _, dup := seenEdges[id]; dup {
			return nil, fmt.Errorf("duplicate edge %q", id)
		}
		seenEdges[id] = struct{}{}

		m.outgoing[e.Source] = append(m.outgoing[e.Source], &EdgeSpec{
			ID:        id,
			Source:    e.Source,
			Target:    e.Target,
			Condition: e.Condition,
		})
	}

	return m, nil
}

// seedPayload converts a config seed into the node's initial payload.
func seedPayload(s *config.Seed) *payload.Payload {
	if s == nil {
		return nil
	}
	p := payload.Empty()
	p.Text = s.Text
	p.ImageRef = s.ImageRef
	p.AudioRef = s.AudioRef
	p.VideoRef = s.VideoRef
	p.URL = s.URL
	for k, v := range s.Values {
		p.Values[k] = v
	}
	return p
}

// Node returns the spec for the given id.
func (m *Model) Node(id string) (*NodeSpec, error) {
	spec, ok := m.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %q", id)
	}
	return spec, nil
}

// Outgoing returns the outgoing edges of the given node, in definition
// order. The returned slice must not be mutated.
func (m *Model) Outgoing(id string) []*EdgeSpec {
	return m.outgoing[id]
}

// NodeIDs returns all node ids in definition order.
func (m *Model) NodeIDs() []string {
	return m.order
}

// Len returns the number of nodes in the model.
func (m *Model) Len() int {
	return len(m.nodes)
}

package hcl

import (
	"fmt"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/schema"
)

// translateNode converts the HCL-specific node schema into the agnostic model.
func translateNode(n *schema.Node) (*config.Node, error) {
	node := &config.Node{
		Type:     n.Type,
		Name:     n.Name,
		Label:    n.Label,
		Script:   n.Script,
		Guidance: n.Guidance,
	}
	if node.Label == "" {
		node.Label = n.Name
	}

	if n.Seed != nil {
		seed := &config.Seed{
			Text:     n.Seed.Text,
			ImageRef: n.Seed.Image,
			AudioRef: n.Seed.Audio,
			VideoRef: n.Seed.Video,
			URL:      n.Seed.URL,
		}
		if n.Seed.Values != nil {
			native, err := ctyValueToInterface(*n.Seed.Values)
			if err != nil {
				return nil, fmt.Errorf("node %q: invalid data values: %w", n.Name, err)
			}
			vals, ok := native.(map[string]any)
			if !ok && native != nil {
				return nil, fmt.Errorf("node %q: data values must be an object", n.Name)
			}
			seed.Values = vals
		}
		node.Seed = seed
	}

	return node, nil
}

// translateEdge converts the HCL-specific edge schema into the agnostic model.
func translateEdge(e *schema.Edge) *config.Edge {
	return &config.Edge{
		Source:    e.Source,
		Target:    e.Target,
		Condition: e.Condition,
	}
}

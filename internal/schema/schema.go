// Package schema declares the HCL block structures of a flow definition
// file. These types are decode targets only; the hcl package translates
// them into the format-agnostic config model.
package schema

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Flow represents the optional top-level `flow` block carrying run defaults.
type Flow struct {
	MaxDepth      *int    `hcl:"max_depth,optional"`
	Model         *string `hcl:"model,optional"`
	ScriptTimeout *int    `hcl:"script_timeout,optional"`
}

// Seed represents the `data` block within a node: the node's initial payload.
type Seed struct {
	Text   string     `hcl:"text,optional"`
	Values *cty.Value `hcl:"values,optional"`
	Image  string     `hcl:"image,optional"`
	Audio  string     `hcl:"audio,optional"`
	Video  string     `hcl:"video,optional"`
	URL    string     `hcl:"url,optional"`
}

// Node represents a `node` block from a flow file.
type Node struct {
	Type     string `hcl:"node_type,label"`
	Name     string `hcl:"instance_name,label"`
	Label    string `hcl:"label,optional"`
	Script   string `hcl:"script,optional"`
	Guidance string `hcl:"guidance,optional"`
	Seed     *Seed  `hcl:"data,block"`
}

// Edge represents an `edge` block connecting two nodes.
type Edge struct {
	Source    string `hcl:"source,label"`
	Target    string `hcl:"target,label"`
	Condition string `hcl:"condition,optional"`
}

// Root represents the top-level structure of a flow definition file.
type Root struct {
	Flow  *Flow    `hcl:"flow,block"`
	Nodes []*Node  `hcl:"node,block"`
	Edges []*Edge  `hcl:"edge,block"`
	Body  hcl.Body `hcl:",remain"`
}

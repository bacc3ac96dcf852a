package config

// Model is the unified, format-agnostic representation of a flow definition:
// the nodes and edges of the graph plus run-level defaults.
type Model struct {
	Nodes    []*Node
	Edges    []*Edge
	Defaults *Defaults
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	// Type is the raw node type tag, e.g. "process". Validated against the
	// closed node-type set when the graph model is built.
	Type string
	// Name is the unique, human-chosen node identifier from the definition.
	Name string
	// Label is the display label; defaults to Name when empty.
	Label string
	// Script is the node's sandboxed script source. May be empty.
	Script string
	// Guidance is free text steering the decision oracle at this node.
	Guidance string
	// Seed is the node's initial payload, used when a run starts here.
	Seed *Seed
}

// Seed is the format-agnostic representation of a node's `data` block.
type Seed struct {
	Text     string
	Values   map[string]any
	ImageRef string
	AudioRef string
	VideoRef string
	URL      string
}

// Edge is the format-agnostic representation of an `edge` block.
type Edge struct {
	Source    string
	Target    string
	Condition string
}

// Defaults holds run-level settings from the `flow` block. Zero values mean
// "not set"; effective defaults are applied by Model.Normalize.
type Defaults struct {
	// MaxDepth bounds how many hops a single path may take.
	MaxDepth int
	// Model is the decision oracle's model name.
	Model string
	// ScriptTimeoutSeconds bounds a single sandboxed script execution.
	ScriptTimeoutSeconds int
}

// Effective defaults applied by Normalize.
const (
	DefaultMaxDepth             = 25
	DefaultModel                = "gpt-4o-mini"
	DefaultScriptTimeoutSeconds = 10
)

// Normalize fills unset defaults in place and returns the model.
func (m *Model) Normalize() *Model {
	if m.Defaults == nil {
		m.Defaults = &Defaults{}
	}
	if m.Defaults.MaxDepth <= 0 {
		m.Defaults.MaxDepth = DefaultMaxDepth
	}
	if m.Defaults.Model == "" {
		m.Defaults.Model = DefaultModel
	}
	if m.Defaults.ScriptTimeoutSeconds <= 0 {
		m.Defaults.ScriptTimeoutSeconds = DefaultScriptTimeoutSeconds
	}
	return m
}

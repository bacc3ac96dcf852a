package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// FlowPath is a single .hcl file or a directory of .hcl files.
	FlowPath string
	// StartNode is the node id the run begins at. Empty means the first
	// source node in definition order.
	StartNode string

	// MaxDepth, when positive, overrides the flow's depth limit.
	MaxDepth int
	// Model, when set, overrides the flow's oracle model name.
	Model string
	// APIKey authenticates the oracle client.
	APIKey string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.FlowPath == "" {
		return nil, errors.New("FlowPath is a required configuration field and cannot be empty")
	}

	return &cfg, nil
}

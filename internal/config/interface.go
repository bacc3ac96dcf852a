package config

import "context"

// Loader is the interface for a format-specific flow definition loader.
type Loader interface {
	// Load reads a flow definition from the given paths and translates it
	// into the format-agnostic model. Later files merge into earlier ones.
	Load(ctx context.Context, paths ...string) (*Model, error)
}

package payload

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Resolver turns a payload's media references into usable absolute paths or
// URLs. It is created once per run from the flow file's directory and is
// read-only thereafter.
type Resolver struct {
	baseDir string
}

// NewResolver creates a resolver rooted at the given directory. An empty
// base directory disables relative reference resolution.
func NewResolver(baseDir string) *Resolver {
	return &Resolver{baseDir: baseDir}
}

// Resolve returns an absolute path or URL for the given reference.
// URLs pass through unchanged, absolute paths are cleaned, and relative
// paths are joined to the resolver's base directory.
func (r *Resolver) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty media reference")
	}

	if u, err := url.Parse(ref); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return ref, nil
	}

	if strings.HasPrefix(ref, "file://") {
		ref = strings.TrimPrefix(ref, "file://")
	}

	if filepath.IsAbs(ref) {
		return filepath.Clean(ref), nil
	}

	if r.baseDir == "" {
		return "", fmt.Errorf("cannot resolve relative reference %q: no base directory", ref)
	}
	return filepath.Join(r.baseDir, ref), nil
}

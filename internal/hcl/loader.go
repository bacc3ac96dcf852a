package hcl

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/fsutil"
	"github.com/vk/flowgridgo/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL flow definition loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load orchestrates the entire flow definition loading process. Each path may
// be a single .hcl file or a directory searched recursively.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{}

	files, err := l.findAllFlowFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl flow files found in %v", paths)
	}
	logger.Debug("Discovered flow files.", "count", len(files))

	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse flow file %s: %w", file, diags)
		}

		var root schema.Root
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode flow file %s: %w", file, diags)
		}

		if root.Flow != nil {
			if err := mergeDefaults(model, root.Flow); err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
		}
		for _, n := range root.Nodes {
			node, err := translateNode(n)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			model.Nodes = append(model.Nodes, node)
		}
		for _, e := range root.Edges {
			model.Edges = append(model.Edges, translateEdge(e))
		}
	}

	model.Normalize()
	logger.Debug("Flow definition loading complete.",
		"nodes", len(model.Nodes), "edges", len(model.Edges))
	return model, nil
}

// findAllFlowFiles walks all given paths and returns a flat, de-duplicated
// list of all .hcl files found.
func (l *Loader) findAllFlowFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		var found []string
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
		} else {
			found = []string{path}
		}

		for _, f := range found {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			allFiles = append(allFiles, f)
		}
	}

	return allFiles, nil
}

// mergeDefaults folds a `flow` block into the model. Conflicting values from
// a second flow block are an error rather than a silent override.
func mergeDefaults(model *config.Model, f *schema.Flow) error {
	if model.Defaults == nil {
		model.Defaults = &config.Defaults{}
	}
	d := model.Defaults

	if f.MaxDepth != nil {
		if d.MaxDepth != 0 && d.MaxDepth != *f.MaxDepth {
			return fmt.Errorf("conflicting max_depth values across flow blocks")
		}
		if *f.MaxDepth <= 0 {
			return fmt.Errorf("max_depth must be positive, got %d", *f.MaxDepth)
		}
		d.MaxDepth = *f.MaxDepth
	}
	if f.Model != nil {
		if d.Model != "" && d.Model != *f.Model {
			return fmt.Errorf("conflicting model values across flow blocks")
		}
		d.Model = *f.Model
	}
	if f.ScriptTimeout != nil {
		if d.ScriptTimeoutSeconds != 0 && d.ScriptTimeoutSeconds != *f.ScriptTimeout {
			return fmt.Errorf("conflicting script_timeout values across flow blocks")
		}
		if *f.ScriptTimeout <= 0 {
			return fmt.Errorf("script_timeout must be positive, got %d", *f.ScriptTimeout)
		}
		d.ScriptTimeoutSeconds = *f.ScriptTimeout
	}
	return nil
}

package hcl

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func writeFlowFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoader_FullFlowFile(t *testing.T) {
	flow := `
		flow {
			max_depth      = 5
			model          = "gpt-4o"
			script_timeout = 3
		}

		node "source" "start" {
			label    = "Start"
			guidance = "always continue"

			data {
				text   = "seed text"
				values = { temperature = 21.5, ok = true }
				image  = "media/start.png"
			}
		}

		node "process" "work" {
			script = <<-EOT
				func Process(input map[string]any) (map[string]any, error) {
					return map[string]any{"text": "done"}, nil
				}
			EOT
		}

		edge "start" "work" {
			condition = "temperature above freezing"
		}
	`
	dir := t.TempDir()
	writeFlowFile(t, dir, "main.hcl", flow)

	model, err := NewLoader().Load(testContext(t), dir)
	require.NoError(t, err)

	require.Len(t, model.Nodes, 2)
	require.Len(t, model.Edges, 1)

	start := model.Nodes[0]
	assert.Equal(t, "source", start.Type)
	assert.Equal(t, "start", start.Name)
	assert.Equal(t, "Start", start.Label)
	assert.Equal(t, "always continue", start.Guidance)
	require.NotNil(t, start.Seed)
	assert.Equal(t, "seed text", start.Seed.Text)
	assert.Equal(t, "media/start.png", start.Seed.ImageRef)
	assert.Equal(t, 21.5, start.Seed.Values["temperature"])
	assert.Equal(t, true, start.Seed.Values["ok"])

	work := model.Nodes[1]
	assert.Equal(t, "work", work.Label, "label defaults to name")
	assert.Contains(t, work.Script, "func Process")

	edge := model.Edges[0]
	assert.Equal(t, "start", edge.Source)
	assert.Equal(t, "work", edge.Target)
	assert.Equal(t, "temperature above freezing", edge.Condition)

	assert.Equal(t, 5, model.Defaults.MaxDepth)
	assert.Equal(t, "gpt-4o", model.Defaults.Model)
	assert.Equal(t, 3, model.Defaults.ScriptTimeoutSeconds)
}

func TestLoader_DefaultsAppliedWhenFlowBlockAbsent(t *testing.T) {
	dir := t.TempDir()
	writeFlowFile(t, dir, "main.hcl", `node "process" "only" {}`)

	model, err := NewLoader().Load(testContext(t), dir)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultMaxDepth, model.Defaults.MaxDepth)
	assert.Equal(t, config.DefaultModel, model.Defaults.Model)
	assert.Equal(t, config.DefaultScriptTimeoutSeconds, model.Defaults.ScriptTimeoutSeconds)
}

func TestLoader_MergesMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	writeFlowFile(t, dir, "a.hcl", `node "process" "a" {}`)
	writeFlowFile(t, dir, "b.hcl", `
		node "process" "b" {}
		edge "a" "b" {}
	`)

	model, err := NewLoader().Load(testContext(t), dir)
	require.NoError(t, err)
	assert.Len(t, model.Nodes, 2)
	assert.Len(t, model.Edges, 1)
}

func TestLoader_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "syntax error", content: `node "process" {`},
		{name: "missing label", content: `node "process" {}`},
		{name: "negative max_depth", content: `flow { max_depth = -1 }`},
		{name: "zero script_timeout", content: `flow { script_timeout = 0 }`},
		{name: "non-object values", content: `node "process" "a" { data { values = ["x"] } }`},
		{
			name: "conflicting defaults",
			content: `
				flow { max_depth = 2 }
				flow { max_depth = 3 }
			`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFlowFile(t, dir, "main.hcl", tc.content)
			_, err := NewLoader().Load(testContext(t), dir)
			require.Error(t, err)
		})
	}
}

func TestLoader_NoFilesFound(t *testing.T) {
	_, err := NewLoader().Load(testContext(t), t.TempDir())
	require.Error(t, err)
}

func TestLoader_MissingPath(t *testing.T) {
	_, err := NewLoader().Load(testContext(t), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

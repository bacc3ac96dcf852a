package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/hostfn"
	"github.com/vk/flowgridgo/internal/oracle"
	"github.com/vk/flowgridgo/internal/payload"
	"github.com/vk/flowgridgo/internal/sandbox"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	flow    *config.Model
	graph   *graph.Model
	sandbox *sandbox.Executor
	oracle  oracle.Oracle
}

// NewApp is the constructor for the main application. It loads the flow
// definition, builds the immutable graph model, and prepares the sandbox.
// The oracle may be nil, in which case Run builds the production client from
// the app configuration.
func NewApp(outW io.Writer, appConfig *Config, loader config.Loader, o oracle.Oracle) *App {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	// Load the flow definition into the format-agnostic model first.
	flow, err := loader.Load(ctx, appConfig.FlowPath)
	if err != nil {
		// A failure to load config is a fatal startup error.
		panic(fmt.Errorf("failed to load flow definition: %w", err))
	}
	logger.Debug("Flow definition loaded into unified model.",
		"nodes", len(flow.Nodes), "edges", len(flow.Edges))

	// Command-line overrides win over the flow's own defaults.
	if appConfig.MaxDepth > 0 {
		flow.Defaults.MaxDepth = appConfig.MaxDepth
	}
	if appConfig.Model != "" {
		flow.Defaults.Model = appConfig.Model
	}

	g, err := graph.Build(flow)
	if err != nil {
		panic(fmt.Errorf("failed to build graph model: %w", err))
	}
	logger.Debug("Graph model built.", "node_count", g.Len())

	// Media references in payloads resolve relative to the flow file's
	// directory.
	resolver := payload.NewResolver(filepath.Dir(appConfig.FlowPath))
	host := hostfn.New()
	hostfn.RegisterCore(host, logger, resolver)
	logger.Debug("Host functions registered for the sandbox.", "names", host.Names())

	return &App{
		outW:    outW,
		logger:  logger,
		config:  appConfig,
		flow:    flow,
		graph:   g,
		sandbox: sandbox.New(host),
		oracle:  o,
	}
}

// Graph returns the built graph model. This is primarily for testing.
func (a *App) Graph() *graph.Model {
	return a.graph
}

// Flow returns the loaded flow model. This is primarily for testing.
func (a *App) Flow() *config.Model {
	return a.flow
}

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/engine"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/oracle"
)

// Run executes one traversal of the loaded flow and prints the completion
// report. Cancelling the context stops the run gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.HealthcheckPort > 0 {
		a.startHealthcheckServer(a.config.HealthcheckPort)
	}

	o := a.oracle
	if o == nil {
		client, err := oracle.NewClient(oracle.ClientConfig{
			APIKey: a.config.APIKey,
			Model:  a.flow.Defaults.Model,
		})
		if err != nil {
			return fmt.Errorf("oracle unavailable: %w", err)
		}
		a.logger.Debug("Oracle client configured.", "client", client)
		o = client
	}

	startNode, err := a.resolveStartNode()
	if err != nil {
		return err
	}

	eng := engine.New(a.graph, a.sandbox, o)
	a.logger.Info("🚀 Starting flow traversal.", "start", startNode)

	run, err := eng.Start(ctx, startNode, engine.Config{
		MaxDepth:      a.flow.Defaults.MaxDepth,
		ScriptTimeout: time.Duration(a.flow.Defaults.ScriptTimeoutSeconds) * time.Second,
		Observer:      a.observeProgress,
	})
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}

	// A cancelled context cascades into the run; waiting on a fresh context
	// lets the paths finish winding down before the report is printed.
	report, err := run.Wait(context.Background())
	if err != nil {
		return err
	}
	a.logger.Info("🏁 Traversal finished.", "paths", len(report.Paths))

	fmt.Fprint(a.outW, report.Summary())

	if report.Failed() {
		return fmt.Errorf("%d path(s) terminated with an error", report.Count(engine.ReasonError))
	}
	return nil
}

// resolveStartNode picks the configured start node, or falls back to the
// first source node in definition order.
func (a *App) resolveStartNode() (string, error) {
	if a.config.StartNode != "" {
		if _, err := a.graph.Node(a.config.StartNode); err != nil {
			return "", fmt.Errorf("start node: %w", err)
		}
		return a.config.StartNode, nil
	}

	for _, id := range a.graph.NodeIDs() {
		node, err := a.graph.Node(id)
		if err != nil {
			return "", err
		}
		if node.Type == graph.Source {
			return id, nil
		}
	}
	return "", fmt.Errorf("no start node given and the flow has no source node")
}

// observeProgress forwards engine progress events to the logger.
func (a *App) observeProgress(e engine.Event) {
	switch e.Kind {
	case engine.EventNodeEntered:
		a.logger.Debug("Node entered.", "path", e.PathID.String(), "node", e.NodeID, "depth", e.Depth)
	case engine.EventNodeOutput:
		a.logger.Debug("Node output produced.", "path", e.PathID.String(), "node", e.NodeID, "summary", e.OutputSummary)
	case engine.EventBranchForked:
		a.logger.Info("Branch forked.", "path", e.PathID.String(), "node", e.NodeID, "children", len(e.Children))
	case engine.EventPathTerminated:
		a.logger.Info("Path terminated.", "path", e.PathID.String(), "node", e.NodeID, "reason", e.Reason.String())
	}
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/oracle"
	"github.com/vk/flowgridgo/internal/pathid"
	"github.com/vk/flowgridgo/internal/payload"
	"github.com/vk/flowgridgo/internal/sandbox"
)

// Engine orchestrates runs over an immutable graph. It is safe to start
// several runs from one Engine; each Run owns all of its own state.
type Engine struct {
	graph   *graph.Model
	sandbox *sandbox.Executor
	oracle  oracle.Oracle
}

func New(g *graph.Model, sb *sandbox.Executor, o oracle.Oracle) *Engine {
	return &Engine{graph: g, sandbox: sb, oracle: o}
}

// Config carries the per-run settings.
type Config struct {
	// MaxDepth is the deepest hop a path may take; a path entering a node
	// beyond it terminates with ReasonMaxDepth. Zero means the default.
	MaxDepth int
	// ScriptTimeout bounds one sandboxed script step. Zero means the
	// default.
	ScriptTimeout time.Duration
	// Observer, if set, receives progress events.
	Observer Observer
}

func (c *Config) applyDefaults() {
	if c.MaxDepth <= 0 {
		c.MaxDepth = config.DefaultMaxDepth
	}
	if c.ScriptTimeout <= 0 {
		c.ScriptTimeout = time.Duration(config.DefaultScriptTimeoutSeconds) * time.Second
	}
}

// ConfigurationError means a run could not start at all. No path is ever
// spawned when Start returns it.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("run configuration error: %s", e.Reason)
}

// Start validates the run configuration, spawns the root path, and returns
// immediately. The returned Run tracks completion; use Wait or Done.
func (e *Engine) Start(ctx context.Context, rootID string, cfg Config) (*Run, error) {
	logger := ctxlog.FromContext(ctx)
	cfg.applyDefaults()

	if e.graph == nil {
		return nil, &ConfigurationError{Reason: "no graph loaded"}
	}
	if e.oracle == nil {
		return nil, &ConfigurationError{Reason: "no decision oracle configured"}
	}
	if e.sandbox == nil {
		return nil, &ConfigurationError{Reason: "no sandbox executor configured"}
	}
	root, err := e.graph.Node(rootID)
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("start node: %v", err)}
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &Run{
		ID:     uuid.New(),
		engine: e,
		cfg:    cfg,
		ctx:    runCtx,
		cancel: cancel,
		tasks:  NewTaskRegistry(),
		done:   make(chan struct{}),
	}

	logger.Info("Starting run.", "runID", r.ID, "root", rootID, "maxDepth", cfg.MaxDepth)

	r.wg.Add(1)
	go r.runPath(newRootPath(root.ID, root.Seed))

	go func() {
		r.wg.Wait()
		// Every path released its task on the way out; a leftover here
		// means a Release was skipped somewhere.
		if live := r.tasks.Live(); live != 0 {
			logger.Error("Run finished with unreleased decision tasks.", "runID", r.ID, "live", live)
		}
		close(r.done)
	}()

	return r, nil
}

// runPath drives one path through the per-node state machine until it
// terminates or forks. Children are spawned as independent goroutines; the
// run's reference count joins them all.
func (r *Run) runPath(p *path) {
	defer r.wg.Done()

	logger := ctxlog.FromContext(r.ctx).With(
		"runID", r.ID, "path", p.id.String(), "node", p.nodeID, "depth", p.depth)

	if p.visited[p.nodeID] {
		logger.Debug("Node already visited on this path.")
		r.terminate(p, ReasonCycle, nil)
		return
	}
	if p.depth > r.cfg.MaxDepth {
		logger.Debug("Depth limit exceeded.", "maxDepth", r.cfg.MaxDepth)
		r.terminate(p, ReasonMaxDepth, nil)
		return
	}
	if r.ctx.Err() != nil {
		r.terminate(p, ReasonCancelled, nil)
		return
	}

	node, err := r.engine.graph.Node(p.nodeID)
	if err != nil {
		r.terminate(p, ReasonError, err)
		return
	}

	p.visited[p.nodeID] = true
	r.emit(Event{Kind: EventNodeEntered, PathID: p.id, NodeID: p.nodeID, Depth: p.depth})

	output := r.executeScript(logger, p, node)

	// A stop request during the script discards the result and ends the
	// path; the decision phase never starts on a cancelled run.
	if r.ctx.Err() != nil {
		r.terminate(p, ReasonCancelled, nil)
		return
	}

	summary := output.Summary()
	r.emit(Event{Kind: EventNodeOutput, PathID: p.id, NodeID: p.nodeID, Depth: p.depth, OutputSummary: summary})

	edges := r.engine.graph.Outgoing(p.nodeID)
	if len(edges) == 0 {
		logger.Debug("Node has no outgoing edges.")
		r.terminate(p, ReasonCompleted, nil)
		return
	}

	chosen, reason, err := r.decide(logger, p, node, summary, edges)
	if reason != reasonPending {
		r.terminate(p, reason, err)
		return
	}

	if len(chosen) == 0 {
		logger.Debug("Oracle selected no successor.")
		r.terminate(p, ReasonCompleted, nil)
		return
	}

	children := make([]*path, 0, len(chosen))
	ids := make([]pathid.Address, 0, len(chosen))
	for i, id := range chosen {
		child := p.fork(i, id, output)
		children = append(children, child)
		ids = append(ids, child.id)
	}

	r.emit(Event{Kind: EventBranchForked, PathID: p.id, NodeID: p.nodeID, Depth: p.depth, Children: ids})
	logger.Debug("Forking children.", "count", len(children))

	// The parent's traversal responsibility ends at the fork point; it is
	// not recorded as a terminated path.
	for _, child := range children {
		r.wg.Add(1)
		go r.runPath(child)
	}
}

// executeScript runs the node's script step and always yields an output
// payload. A script failure becomes an error-tagged payload so traversal
// continues to the decision phase.
func (r *Run) executeScript(logger *slog.Logger, p *path, node *graph.NodeSpec) *payload.Payload {
	r.scriptExecs.Add(1)

	if strings.TrimSpace(node.Script) == "" {
		return defaultOutput(node.Type, p.payload)
	}

	scriptCtx, cancel := context.WithTimeout(r.ctx, r.cfg.ScriptTimeout)
	defer cancel()

	out, err := r.engine.sandbox.Execute(scriptCtx, node.Script, p.payload)
	if err != nil {
		kind := "script"
		if scriptErr, ok := sandbox.AsScriptError(err); ok {
			kind = string(scriptErr.Kind)
		}
		logger.Warn("Node script failed, continuing with error-tagged payload.", "kind", kind, "error", err)
		return payload.ErrorTagged(kind, err.Error())
	}
	return out
}

// defaultOutput is the output of a node with no script. Pass-through nodes
// forward their input; a sink consumes it.
func defaultOutput(t graph.NodeType, input *payload.Payload) *payload.Payload {
	switch t {
	case graph.Source, graph.Process, graph.Router:
		return input.Clone()
	case graph.Sink:
		return payload.Empty()
	default:
		panic(fmt.Sprintf("unhandled node type %d", int(t)))
	}
}

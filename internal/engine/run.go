package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/flowgridgo/internal/ctxlog"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/oracle"
)

// reasonPending marks "the path is not terminating here" in decide's return.
const reasonPending TerminalReason = -1

// Run is one live execution of the graph. All of its state is owned by the
// engine's path goroutines; callers interact only through Stop, Wait and
// Done.
type Run struct {
	ID uuid.UUID

	engine *Engine
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	tasks  *TaskRegistry

	wg   sync.WaitGroup
	done chan struct{}

	mu      sync.Mutex
	results []PathResult

	scriptExecs atomic.Int64
	oracleCalls atomic.Int64
	warnings    atomic.Int64

	stopOnce sync.Once
}

// Stop requests graceful cancellation: no new script executions or oracle
// calls start, every live decision task is cancelled, and in-flight results
// are discarded. Stop returns immediately; use Wait to observe completion.
func (r *Run) Stop() {
	r.stopOnce.Do(func() {
		ctxlog.FromContext(r.ctx).Info("Stopping run.", "runID", r.ID)
		r.cancel()
		r.tasks.CancelAll()
	})
}

// Done is closed once every path has terminated.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run finishes and returns its completion report. The
// context bounds only the wait itself, not the run.
func (r *Run) Wait(ctx context.Context) (*Report, error) {
	select {
	case <-r.done:
		return r.Report(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Report returns a snapshot of the run's results so far. It may be called at
// any time; the report is complete once Done is closed.
func (r *Run) Report() *Report {
	r.mu.Lock()
	paths := make([]PathResult, len(r.results))
	copy(paths, r.results)
	r.mu.Unlock()

	sortResults(paths)
	return &Report{
		RunID:            r.ID,
		Paths:            paths,
		ScriptExecutions: int(r.scriptExecs.Load()),
		OracleCalls:      int(r.oracleCalls.Load()),
		Warnings:         int(r.warnings.Load()),
	}
}

// decide registers a decision task and consults the oracle. It returns the
// validated chosen ids, or a terminal reason when the path must stop here
// (cancellation or oracle failure).
func (r *Run) decide(
	logger *slog.Logger,
	p *path,
	node *graph.NodeSpec,
	summary string,
	edges []*graph.EdgeSpec,
) ([]string, TerminalReason, error) {
	task, err := r.tasks.Register(r.ctx, p.id, p.nodeID)
	if err != nil {
		return nil, ReasonError, err
	}
	defer r.tasks.Release(task.Handle)

	candidates := make([]oracle.Candidate, 0, len(edges))
	for _, edge := range edges {
		target, err := r.engine.graph.Node(edge.Target)
		if err != nil {
			return nil, ReasonError, err
		}
		candidates = append(candidates, oracle.Candidate{
			ID:          target.ID,
			Label:       target.Label,
			Type:        target.Type.String(),
			Description: candidateDescription(target),
			Condition:   edge.Condition,
		})
	}

	req := &oracle.Request{
		NodeID:        node.ID,
		NodeLabel:     node.Label,
		OutputSummary: summary,
		Guidance:      node.Guidance,
		Candidates:    candidates,
	}

	r.oracleCalls.Add(1)
	logger.Debug("Awaiting oracle decision.", "task", task.Handle, "candidates", len(candidates))

	type decideResult struct {
		decision *oracle.Decision
		err      error
	}
	resultChan := make(chan decideResult, 1)
	go func() {
		decision, err := r.engine.oracle.Decide(task.Context(), req)
		resultChan <- decideResult{decision: decision, err: err}
	}()

	var res decideResult
	select {
	case res = <-resultChan:
	case <-task.Context().Done():
		// The task was cancelled; a late result, if any, is discarded.
		logger.Debug("Decision task cancelled while awaiting oracle.", "task", task.Handle)
		return nil, ReasonCancelled, nil
	}

	// A stop request that raced with the response also discards it.
	if r.ctx.Err() != nil {
		return nil, ReasonCancelled, nil
	}

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			return nil, ReasonCancelled, nil
		}
		logger.Error("Oracle decision failed.", "error", res.err)
		return nil, ReasonError, res.err
	}

	for _, id := range res.decision.Unknown {
		r.warnings.Add(1)
		logger.Warn("Oracle chose an id outside the candidate set, ignoring.", "chosen", id)
	}

	return res.decision.ChosenIDs, reasonPending, nil
}

// candidateDescriptionLimit bounds how much of a candidate's script the
// oracle sees.
const candidateDescriptionLimit = 100

// candidateDescription describes a candidate node for the oracle. The
// node's own script text is the most informative description of what
// following the edge would do; nodes without a script fall back to their
// type's phrasing.
func candidateDescription(n *graph.NodeSpec) string {
	script := strings.TrimSpace(n.Script)
	if script == "" {
		return n.Type.Describe()
	}
	if len(script) > candidateDescriptionLimit {
		return script[:candidateDescriptionLimit] + "..."
	}
	return script
}

// terminate records a path's terminal reason.
func (r *Run) terminate(p *path, reason TerminalReason, err error) {
	r.mu.Lock()
	r.results = append(r.results, PathResult{
		PathID: p.id,
		NodeID: p.nodeID,
		Depth:  p.depth,
		Reason: reason,
		Err:    err,
	})
	r.mu.Unlock()

	r.emit(Event{Kind: EventPathTerminated, PathID: p.id, NodeID: p.nodeID, Depth: p.depth, Reason: reason})
}

func (r *Run) emit(e Event) {
	if r.cfg.Observer != nil {
		r.cfg.Observer(e)
	}
}

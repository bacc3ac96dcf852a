package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vk/flowgridgo/internal/config"
	"github.com/vk/flowgridgo/internal/graph"
	"github.com/vk/flowgridgo/internal/hostfn"
	"github.com/vk/flowgridgo/internal/oracle"
	"github.com/vk/flowgridgo/internal/sandbox"
	"github.com/vk/flowgridgo/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func buildTestGraph(t *testing.T, nodes []*config.Node, edges []*config.Edge) *graph.Model {
	t.Helper()
	m, err := graph.Build(&config.Model{Nodes: nodes, Edges: edges})
	require.NoError(t, err)
	return m
}

// eventRecorder captures progress events from many path goroutines.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) outputSummary(nodeID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Kind == EventNodeOutput && e.NodeID == nodeID {
			return e.OutputSummary, true
		}
	}
	return "", false
}

func (r *eventRecorder) count(kind EventKind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func newTestEngine(g *graph.Model, o oracle.Oracle) *Engine {
	return New(g, sandbox.New(hostfn.New()), o)
}

func runToCompletion(t *testing.T, e *Engine, root string, cfg Config) *Report {
	t.Helper()
	ctx, _ := testutil.LoggingContext(t)

	run, err := e.Start(ctx, root, cfg)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report, err := run.Wait(waitCtx)
	require.NoError(t, err)
	return report
}

func TestStart_ConfigurationFailures(t *testing.T) {
	g := buildTestGraph(t, []*config.Node{{Type: "sink", Name: "a"}}, nil)
	ctx, _ := testutil.LoggingContext(t)

	t.Run("no oracle", func(t *testing.T) {
		e := New(g, sandbox.New(hostfn.New()), nil)
		_, err := e.Start(ctx, "a", Config{})

		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Contains(t, cfgErr.Reason, "oracle")
	})

	t.Run("unknown root node", func(t *testing.T) {
		e := newTestEngine(g, &testutil.ScriptedOracle{})
		_, err := e.Start(ctx, "missing", Config{})

		var cfgErr *ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})
}

func TestRun_RootWithoutEdgesCompletes(t *testing.T) {
	g := buildTestGraph(t, []*config.Node{{Type: "sink", Name: "a"}}, nil)
	scripted := &testutil.ScriptedOracle{}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{})

	require.Len(t, report.Paths, 1)
	assert.Equal(t, ReasonCompleted, report.Paths[0].Reason)
	assert.Equal(t, "a", report.Paths[0].NodeID)
	assert.Equal(t, 0, report.Paths[0].Depth)
	assert.Equal(t, 1, report.ScriptExecutions)
	assert.Equal(t, 0, report.OracleCalls)
	assert.Equal(t, 0, scripted.CallCount())
}

func TestRun_FanOut(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "sink", Name: "b"},
			{Type: "sink", Name: "c"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
		},
	)
	scripted := &testutil.ScriptedOracle{Responses: map[string][]string{"a": {"b", "c"}}}
	recorder := &eventRecorder{}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{Observer: recorder.observe})

	assert.Equal(t, 3, report.ScriptExecutions)
	assert.Equal(t, 1, report.OracleCalls)
	require.Len(t, report.Paths, 2)
	for _, p := range report.Paths {
		assert.Equal(t, ReasonCompleted, p.Reason)
		assert.Equal(t, 1, p.Depth)
	}
	assert.Equal(t, 1, recorder.count(EventBranchForked))
	// The forking parent hands over at the fork; only its children
	// terminate.
	assert.Equal(t, 2, recorder.count(EventPathTerminated))
}

func TestRun_CandidateDescriptions(t *testing.T) {
	longScript := "func Process(input map[string]interface{}) map[string]interface{} {\n" +
		strings.Repeat("\tinput[\"step\"] = \"enrich\"\n", 8) +
		"\treturn input\n}"
	require.Greater(t, len(longScript), 100)

	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "process", Name: "b", Script: longScript},
			{Type: "sink", Name: "c"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
		},
	)
	scripted := &testutil.ScriptedOracle{}

	runToCompletion(t, newTestEngine(g, scripted), "a", Config{})

	req := scripted.Request("a")
	require.NotNil(t, req)
	byID := make(map[string]oracle.Candidate, len(req.Candidates))
	for _, c := range req.Candidates {
		byID[c.ID] = c
	}

	// A scripted candidate is described by its own script, cut to a preview.
	require.Contains(t, byID, "b")
	assert.Equal(t, longScript[:100]+"...", byID["b"].Description)

	// A script-less candidate falls back to the phrasing of its type.
	require.Contains(t, byID, "c")
	assert.Equal(t, "terminal consumer", byID["c"].Description)
}

func TestRun_InvalidOracleIDsAreFiltered(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "sink", Name: "b"},
			{Type: "sink", Name: "c"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
		},
	)
	scripted := &testutil.ScriptedOracle{Responses: map[string][]string{"a": {"ghost"}}}

	e := newTestEngine(g, scripted)
	ctx, logs := testutil.LoggingContext(t)
	run, err := e.Start(ctx, "a", Config{})
	require.NoError(t, err)
	report, err := run.Wait(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.OracleCalls)
	assert.Equal(t, 1, report.Warnings)
	require.Len(t, report.Paths, 1)
	assert.Equal(t, ReasonCompleted, report.Paths[0].Reason)
	assert.Equal(t, "a", report.Paths[0].NodeID)
	assert.Contains(t, logs.String(), "outside the candidate set")
}

func TestRun_ScriptFailureContinuesToDecision(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "process", Name: "a", Script: "this is not valid code"},
			{Type: "sink", Name: "b"},
		},
		[]*config.Edge{{Source: "a", Target: "b"}},
	)
	scripted := &testutil.ScriptedOracle{Responses: map[string][]string{"a": {"b"}}}
	recorder := &eventRecorder{}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{Observer: recorder.observe})

	// The failure became data and the oracle was still consulted.
	assert.Equal(t, 1, scripted.CallCount())
	summary, ok := recorder.outputSummary("a")
	require.True(t, ok)
	assert.Contains(t, summary, "error")

	require.Len(t, report.Paths, 1)
	assert.Equal(t, ReasonCompleted, report.Paths[0].Reason)
	assert.Equal(t, "b", report.Paths[0].NodeID)
}

func TestRun_ScriptTransformsPayload(t *testing.T) {
	script := `
import "strings"

func Process(input map[string]any) (map[string]any, error) {
	text, _ := input["text"].(string)
	return map[string]any{"text": strings.ToUpper(text)}, nil
}
`
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "process", Name: "a", Script: script, Seed: &config.Seed{Text: "hello"}},
		},
		nil,
	)
	recorder := &eventRecorder{}

	report := runToCompletion(t, newTestEngine(g, &testutil.ScriptedOracle{}), "a",
		Config{Observer: recorder.observe})

	require.Len(t, report.Paths, 1)
	summary, ok := recorder.outputSummary("a")
	require.True(t, ok)
	assert.Contains(t, summary, "HELLO")
}

func TestRun_CycleDetection(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "router", Name: "a"},
			{Type: "router", Name: "b"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "a"},
		},
	)
	scripted := &testutil.ScriptedOracle{Responses: map[string][]string{
		"a": {"b"},
		"b": {"a"},
	}}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{})

	require.Len(t, report.Paths, 1)
	assert.Equal(t, ReasonCycle, report.Paths[0].Reason)
	assert.Equal(t, "a", report.Paths[0].NodeID)
	assert.Equal(t, 2, report.Paths[0].Depth)
	// The revisited node's script never ran again.
	assert.Equal(t, 2, report.ScriptExecutions)
}

func TestRun_VisitedSetIsPathLocal(t *testing.T) {
	// Both branches converge on d; each path must be allowed to visit it.
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "process", Name: "b"},
			{Type: "process", Name: "c"},
			{Type: "sink", Name: "d"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "d"},
			{Source: "c", Target: "d"},
		},
	)
	scripted := &testutil.ScriptedOracle{Responses: map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
		"c": {"d"},
	}}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{})

	require.Len(t, report.Paths, 2)
	for _, p := range report.Paths {
		assert.Equal(t, ReasonCompleted, p.Reason)
		assert.Equal(t, "d", p.NodeID)
		assert.Equal(t, 2, p.Depth)
	}
}

func TestRun_MaxDepth(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "process", Name: "b"},
			{Type: "sink", Name: "c"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "b", Target: "c"},
		},
	)
	scripted := &testutil.ScriptedOracle{Responses: map[string][]string{
		"a": {"b"},
		"b": {"c"},
	}}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{MaxDepth: 1})

	require.Len(t, report.Paths, 1)
	assert.Equal(t, ReasonMaxDepth, report.Paths[0].Reason)
	assert.Equal(t, "c", report.Paths[0].NodeID)
	assert.Equal(t, 2, report.Paths[0].Depth)
	// The over-budget node performed no script step and no oracle call.
	assert.Equal(t, 2, report.ScriptExecutions)
	assert.Equal(t, 2, report.OracleCalls)
}

func TestRun_OracleErrorIsPathLocal(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "router", Name: "b"},
			{Type: "sink", Name: "c"},
			{Type: "sink", Name: "d"},
		},
		[]*config.Edge{
			{Source: "a", Target: "b"},
			{Source: "a", Target: "c"},
			{Source: "b", Target: "d"},
		},
	)
	oracleErr := &oracle.ConnectionError{Err: errors.New("connection refused")}
	scripted := &testutil.ScriptedOracle{
		Responses: map[string][]string{"a": {"b", "c"}},
		Errs:      map[string]error{"b": oracleErr},
	}

	report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{})

	require.Len(t, report.Paths, 2)
	assert.Equal(t, 1, report.Count(ReasonError))
	assert.Equal(t, 1, report.Count(ReasonCompleted))
	assert.True(t, report.Failed())
	for _, p := range report.Paths {
		if p.Reason == ReasonError {
			assert.Equal(t, "b", p.NodeID)
			assert.ErrorIs(t, p.Err, oracleErr)
		}
	}
}

func TestRun_StopCancelsAwaitingDecision(t *testing.T) {
	g := buildTestGraph(t,
		[]*config.Node{
			{Type: "source", Name: "a"},
			{Type: "sink", Name: "b"},
		},
		[]*config.Edge{{Source: "a", Target: "b"}},
	)
	scripted := &testutil.ScriptedOracle{
		Responses: map[string][]string{"a": {"b"}},
		Gate:      make(chan struct{}),
	}

	ctx, _ := testutil.LoggingContext(t)
	run, err := newTestEngine(g, scripted).Start(ctx, "a", Config{})
	require.NoError(t, err)

	// Wait until the path is parked on the oracle, then stop the run.
	require.Eventually(t, func() bool { return scripted.CallCount() == 1 },
		5*time.Second, 5*time.Millisecond)
	run.Stop()

	waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	report, err := run.Wait(waitCtx)
	require.NoError(t, err)

	require.Len(t, report.Paths, 1)
	assert.Equal(t, ReasonCancelled, report.Paths[0].Reason)
	// No new work started after the stop request, and the cancelled
	// path released its decision task on the way out.
	assert.Equal(t, 1, report.ScriptExecutions)
	assert.Equal(t, 1, report.OracleCalls)
	assert.Equal(t, 0, run.tasks.Live())
}

func TestRun_StopIsIdempotent(t *testing.T) {
	g := buildTestGraph(t, []*config.Node{{Type: "sink", Name: "a"}}, nil)

	ctx, _ := testutil.LoggingContext(t)
	run, err := newTestEngine(g, &testutil.ScriptedOracle{}).Start(ctx, "a", Config{})
	require.NoError(t, err)

	run.Stop()
	run.Stop()

	waited, err := run.Wait(context.Background())
	require.NoError(t, err)

	// After Done, a direct snapshot matches what Wait returned.
	assert.Equal(t, waited, run.Report())
}

func TestRun_DeterministicReports(t *testing.T) {
	nodes := []*config.Node{
		{Type: "source", Name: "a"},
		{Type: "process", Name: "b"},
		{Type: "sink", Name: "c"},
		{Type: "sink", Name: "d"},
	}
	edges := []*config.Edge{
		{Source: "a", Target: "b"},
		{Source: "a", Target: "c"},
		{Source: "b", Target: "d"},
	}
	responses := map[string][]string{
		"a": {"b", "c"},
		"b": {"d"},
	}

	type outcome struct {
		pathID string
		reason TerminalReason
	}
	collect := func() []outcome {
		g := buildTestGraph(t, nodes, edges)
		scripted := &testutil.ScriptedOracle{Responses: responses}
		report := runToCompletion(t, newTestEngine(g, scripted), "a", Config{})

		outcomes := make([]outcome, 0, len(report.Paths))
		for _, p := range report.Paths {
			outcomes = append(outcomes, outcome{pathID: p.PathID.String(), reason: p.Reason})
		}
		return outcomes
	}

	first := collect()
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, collect())
	}
}

package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/vk/flowgridgo/internal/oracle"
)

// ScriptedOracle is a deterministic in-process oracle for tests. Responses
// maps a node id to the ids the oracle "chooses" there; like the production
// client, chosen ids outside the candidate set are moved to Unknown. Nodes
// without an entry get no successor.
type ScriptedOracle struct {
	// Responses maps node id to the chosen successor ids.
	Responses map[string][]string
	// Errs maps node id to an error returned instead of a decision.
	Errs map[string]error
	// Gate, when non-nil, blocks every Decide call until the channel is
	// closed or the context is cancelled.
	Gate chan struct{}

	mu       sync.Mutex
	calls    []string
	requests map[string]*oracle.Request
}

func (o *ScriptedOracle) Decide(ctx context.Context, req *oracle.Request) (*oracle.Decision, error) {
	o.mu.Lock()
	o.calls = append(o.calls, req.NodeID)
	if o.requests == nil {
		o.requests = make(map[string]*oracle.Request)
	}
	o.requests[req.NodeID] = req
	o.mu.Unlock()

	if o.Gate != nil {
		select {
		case <-o.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := o.Errs[req.NodeID]; ok {
		return nil, err
	}

	valid := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		valid[c.ID] = true
	}

	d := &oracle.Decision{Raw: strings.Join(o.Responses[req.NodeID], ", ")}
	for _, id := range o.Responses[req.NodeID] {
		if valid[id] {
			d.ChosenIDs = append(d.ChosenIDs, id)
		} else {
			d.Unknown = append(d.Unknown, id)
		}
	}
	return d, nil
}

// Request returns the last request Decide received for the given node id,
// or nil if the node was never consulted.
func (o *ScriptedOracle) Request(nodeID string) *oracle.Request {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.requests[nodeID]
}

// Calls returns the node ids Decide was invoked for, in call order.
func (o *ScriptedOracle) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	calls := make([]string, len(o.calls))
	copy(calls, o.calls)
	return calls
}

// CallCount returns how many decisions were requested.
func (o *ScriptedOracle) CallCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}

package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/flowgridgo/internal/pathid"
)

// PathResult is the terminal record of one path. Paths that forked children
// hand their traversal responsibility over at the fork point and do not
// appear here; only terminated paths do.
type PathResult struct {
	PathID pathid.Address
	NodeID string
	Depth  int
	Reason TerminalReason
	// Err is set when Reason is ReasonError.
	Err error
}

// Report is the completion summary of a finished run.
type Report struct {
	RunID uuid.UUID
	Paths []PathResult

	// ScriptExecutions counts node script steps, including empty-script
	// defaults and failed scripts.
	ScriptExecutions int
	// OracleCalls counts decision consultations issued.
	OracleCalls int
	// Warnings counts oracle-chosen ids that were filtered out for not
	// being in the candidate set.
	Warnings int
}

// Count reports how many paths terminated with the given reason.
func (r *Report) Count(reason TerminalReason) int {
	n := 0
	for _, p := range r.Paths {
		if p.Reason == reason {
			n++
		}
	}
	return n
}

// Failed reports whether any path terminated with an error.
func (r *Report) Failed() bool {
	return r.Count(ReasonError) > 0
}

// Summary renders a human-readable completion report, one line per path in
// deterministic path id order.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s finished: %d path(s), %d script execution(s), %d oracle call(s)\n",
		r.RunID, len(r.Paths), r.ScriptExecutions, r.OracleCalls)
	for _, p := range r.Paths {
		fmt.Fprintf(&b, "  path %-12s node=%s depth=%d reason=%s", p.PathID, p.NodeID, p.Depth, p.Reason)
		if p.Err != nil {
			fmt.Fprintf(&b, " error=%v", p.Err)
		}
		b.WriteString("\n")
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&b, "  %d oracle response id(s) outside the candidate set were ignored\n", r.Warnings)
	}
	return b.String()
}

func sortResults(results []PathResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].PathID.String() < results[j].PathID.String()
	})
}

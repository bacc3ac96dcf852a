package oracle

import (
	"fmt"
	"strings"
)

// systemPrompt frames every decision call. The response contract (ids or
// NONE) is stated here and repeated in the task section of the user prompt.
const systemPrompt = "You are a flow controller deciding the next step in a process graph. " +
	"Respond ONLY with the chosen node id(s) separated by commas, or NONE."

// noneSentinel is the response token meaning "no further step".
const noneSentinel = "NONE"

// buildTransitionPrompt constructs the user prompt for a transition decision.
func buildTransitionPrompt(req *Request) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Current state: just finished executing node '%s'.\n", req.NodeLabel)
	fmt.Fprintf(&b, "Output data summary from '%s':\n---\n%s\n---\n\n", req.NodeLabel, req.OutputSummary)

	b.WriteString("Potential next nodes (choose by id):\n")
	for _, c := range req.Candidates {
		fmt.Fprintf(&b, "- id: %s, label: %s, type: %s, description: %s", c.ID, c.Label, c.Type, c.Description)
		if c.Condition != "" {
			fmt.Fprintf(&b, ", condition: %s", c.Condition)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nDecision guidance:\n")
	if req.Guidance != "" {
		fmt.Fprintf(&b, "%s\n", req.Guidance)
	} else {
		b.WriteString("Choose the node id(s) that represent the most logical continuation " +
			"of the process based on node types, descriptions, and the data produced.\n")
	}

	b.WriteString("\nTask: based only on the information above, which node id(s) should be executed next? " +
		"Respond ONLY with the chosen node id(s), separated by commas if multiple. " +
		"If no node should be executed, respond with the exact word " + noneSentinel + ".")

	return b.String()
}

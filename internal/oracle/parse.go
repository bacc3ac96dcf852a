package oracle

import "strings"

// parseDecision interprets an oracle's raw text response against the
// request's candidate set. Ids outside the set are collected in Unknown and
// never fatal; an empty response or the NONE sentinel is a valid "no next
// step" decision.
func parseDecision(raw string, candidates []Candidate) *Decision {
	d := &Decision{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.EqualFold(trimmed, noneSentinel) {
		return d
	}

	valid := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		valid[c.ID] = true
	}

	seen := make(map[string]bool)
	for _, item := range strings.Split(trimmed, ",") {
		id := strings.Trim(strings.TrimSpace(item), `"'`)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		if valid[id] {
			d.ChosenIDs = append(d.ChosenIDs, id)
		} else {
			d.Unknown = append(d.Unknown, id)
		}
	}

	return d
}

package validation

import (
	"sort"

	"github.com/calveg/twine/pkg/schema"
)

// validateDAG performs graph analysis on the upstream wiring:
// cycle detection via Kahn's algorithm. Invalid upstream references are
// skipped here; the semantic pass already reported them.
func validateDAG(def *schema.PipelineDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodeIDs := make(map[string]bool, len(def.Nodes))
	for _, n := range def.Nodes {
		nodeIDs[n.ID] = true
	}

	downstream := make(map[string][]string, len(def.Nodes))
	inDegree := make(map[string]int, len(def.Nodes))
	for _, n := range def.Nodes {
		if n.Upstream == "" || n.Upstream == n.ID || !nodeIDs[n.Upstream] {
			continue
		}
		downstream[n.Upstream] = append(downstream[n.Upstream], n.ID)
		inDegree[n.ID]++
	}

	queue := make([]string, 0, len(def.Nodes))
	for id := range nodeIDs {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, dep := range downstream[id] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if visited != len(nodeIDs) {
		// Everything left with a positive in-degree sits on a cycle.
		var cyclic []string
		for id, deg := range inDegree {
			if deg > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		for _, id := range cyclic {
			result.AddError("nodes", schema.ErrCodeCycleDetected,
				"node "+id+" is part of a cycle")
		}
	}

	return result
}

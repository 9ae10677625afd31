package engine

import (
	"fmt"

	"github.com/calveg/twine/pkg/schema"
)

// DAG is the in-memory directed acyclic graph representation of a pipeline.
// Built from a PipelineDefinition, used by the Evaluator to determine
// evaluation order and by Sessions to find the downstream cone of an edit.
type DAG struct {
	Nodes      map[string]*schema.NodeDefinition // node ID → definition
	Downstream map[string][]string               // node ID → nodes fed by it
	Sorted     []string                          // topological order
	Roots      []string                          // nodes with no upstream
	Levels     [][]string                        // evaluation levels by depth
}

// validNodeTypes is the set of recognized node types.
var validNodeTypes = map[schema.NodeType]bool{
	schema.NodeTypeInput:     true,
	schema.NodeTypeTransform: true,
}

// ParseDAG parses a PipelineDefinition into an evaluable DAG.
// It validates the definition, builds adjacency lists, performs topological
// sorting using Kahn's algorithm, detects cycles, and computes evaluation
// levels.
func ParseDAG(def *schema.PipelineDefinition) (*DAG, error) {
	if def == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "pipeline definition is nil")
	}

	if len(def.Nodes) == 0 {
		return nil, schema.NewError(schema.ErrCodeValidation, "pipeline has no nodes")
	}

	dag := &DAG{
		Nodes:      make(map[string]*schema.NodeDefinition, len(def.Nodes)),
		Downstream: make(map[string][]string, len(def.Nodes)),
	}

	// First pass: register all nodes and check for duplicates.
	for i := range def.Nodes {
		node := &def.Nodes[i]

		if node.ID == "" {
			return nil, schema.NewError(schema.ErrCodeValidation, fmt.Sprintf("node at index %d has empty ID", i))
		}

		if _, exists := dag.Nodes[node.ID]; exists {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "duplicate node ID: %s", node.ID)
		}

		// Default node type to transform when empty.
		if node.Type == "" {
			node.Type = schema.NodeTypeTransform
		}

		if !validNodeTypes[node.Type] {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "node %s has unknown type: %s", node.ID, node.Type)
		}

		dag.Nodes[node.ID] = node
	}

	// Second pass: validate type-specific constraints.
	for _, node := range dag.Nodes {
		if err := validateNodeConfig(node); err != nil {
			return nil, err
		}
	}

	// Third pass: build adjacency lists and validate upstream wiring.
	for id, node := range dag.Nodes {
		if node.Upstream == "" {
			continue
		}
		if _, exists := dag.Nodes[node.Upstream]; !exists {
			return nil, schema.NewErrorf(schema.ErrCodeValidation, "node %s references non-existent upstream: %s", id, node.Upstream)
		}
		if node.Upstream == id {
			return nil, schema.NewErrorf(schema.ErrCodeCycleDetected, "node %s is its own upstream", id)
		}
		dag.Downstream[node.Upstream] = append(dag.Downstream[node.Upstream], id)
	}

	// Kahn's algorithm: topological sort + cycle detection. Each node has
	// at most one upstream, so in-degree is 0 or 1.
	inDegree := make(map[string]int, len(dag.Nodes))
	for id, node := range dag.Nodes {
		if node.Upstream != "" {
			inDegree[id] = 1
		}
	}

	// Queue nodes with in-degree 0 (roots).
	queue := make([]string, 0)
	for id := range dag.Nodes {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	// Sort roots for deterministic ordering.
	sortStrings(queue)
	dag.Roots = make([]string, len(queue))
	copy(dag.Roots, queue)

	sorted := make([]string, 0, len(dag.Nodes))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, node)

		dependents := make([]string, len(dag.Downstream[node]))
		copy(dependents, dag.Downstream[node])
		sortStrings(dependents)

		for _, dep := range dependents {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(sorted) != len(dag.Nodes) {
		return nil, schema.NewError(schema.ErrCodeCycleDetected, "pipeline contains a cycle")
	}

	dag.Sorted = sorted
	dag.Levels = computeLevels(dag)

	return dag, nil
}

// Cone returns the IDs of the given node and everything downstream of it,
// in topological order. Used by sessions to recompute only the part of the
// pipeline affected by an edit.
func (dag *DAG) Cone(id string) []string {
	affected := map[string]bool{id: true}
	// Sorted order guarantees upstreams are visited before dependents.
	cone := make([]string, 0, 1)
	for _, nodeID := range dag.Sorted {
		if !affected[nodeID] {
			continue
		}
		cone = append(cone, nodeID)
		for _, dep := range dag.Downstream[nodeID] {
			affected[dep] = true
		}
	}
	return cone
}

// computeLevels groups nodes into evaluation levels by topological depth.
// Nodes at the same level have all upstreams satisfied by previous levels.
func computeLevels(dag *DAG) [][]string {
	depth := make(map[string]int, len(dag.Nodes))

	for _, id := range dag.Sorted {
		d := 0
		if up := dag.Nodes[id].Upstream; up != "" {
			d = depth[up] + 1
		}
		depth[id] = d
	}

	maxLevel := 0
	for _, d := range depth {
		if d > maxLevel {
			maxLevel = d
		}
	}

	levels := make([][]string, maxLevel+1)
	for _, id := range dag.Sorted {
		d := depth[id]
		levels[d] = append(levels[d], id)
	}

	return levels
}

// validateNodeConfig checks type-specific constraints on a node definition.
func validateNodeConfig(node *schema.NodeDefinition) error {
	switch node.Type {
	case schema.NodeTypeInput:
		if node.Upstream != "" {
			return schema.NewErrorf(schema.ErrCodeValidation, "input node %s cannot have an upstream", node.ID)
		}
		if node.Transform != nil {
			return schema.NewErrorf(schema.ErrCodeValidation, "input node %s cannot have a transform", node.ID)
		}

	case schema.NodeTypeTransform:
		if node.Transform == nil {
			return schema.NewErrorf(schema.ErrCodeValidation, "transform node %s has no transform", node.ID)
		}
		if err := node.Transform.Validate(); err != nil {
			return schema.NewErrorf(schema.ErrCodeValidation, "transform node %s: %v", node.ID, err)
		}
	}

	return nil
}

// sortStrings sorts a slice of strings in-place using insertion sort.
// Used for small slices to avoid importing sort package.
func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		key := s[i]
		j := i - 1
		for j >= 0 && s[j] > key {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = key
	}
}

package validation

import (
	"fmt"
	"regexp"

	"github.com/calveg/twine/pkg/schema"
	"github.com/calveg/twine/pkg/transform"
)

// validateSemantic performs semantic analysis on the pipeline definition.
// Checks: node IDs unique, upstream refs valid, node-type constraints,
// transformer parameters sane. Issues beyond what JSON Schema can express.
func validateSemantic(def *schema.PipelineDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	nodeIDs := make(map[string]bool, len(def.Nodes))
	for i, n := range def.Nodes {
		if nodeIDs[n.ID] {
			result.AddError(fmt.Sprintf("nodes[%d].id", i), schema.ErrCodeValidation,
				fmt.Sprintf("duplicate node id %q", n.ID))
		}
		nodeIDs[n.ID] = true
	}

	for i := range def.Nodes {
		validateNodeSemantic(&def.Nodes[i], fmt.Sprintf("nodes[%d]", i), nodeIDs, result)
	}

	return result
}

// validateNodeSemantic checks a single node definition.
func validateNodeSemantic(node *schema.NodeDefinition, path string, nodeIDs map[string]bool, result *schema.ValidationResult) {
	// Upstream references.
	if node.Upstream != "" {
		if !nodeIDs[node.Upstream] {
			result.AddError(path+".upstream", schema.ErrCodeValidation,
				fmt.Sprintf("references non-existent node %q", node.Upstream))
		}
		if node.Upstream == node.ID {
			result.AddError(path+".upstream", schema.ErrCodeCycleDetected,
				fmt.Sprintf("node %q is its own upstream", node.ID))
		}
	}

	switch node.Kind() {
	case schema.NodeTypeInput:
		if node.Upstream != "" {
			result.AddError(path+".upstream", schema.ErrCodeValidation,
				"input nodes cannot have an upstream")
		}
		if node.Transform != nil {
			result.AddError(path+".transform", schema.ErrCodeValidation,
				"input nodes cannot have a transform")
		}

	case schema.NodeTypeTransform:
		if node.Transform == nil {
			result.AddError(path+".transform", schema.ErrCodeValidation,
				"transform nodes require a transform")
			return
		}
		validateTransformSemantic(node.Transform, path+".transform", result)
		if node.Upstream == "" {
			result.AddWarning(path+".upstream", schema.ErrCodeValidation,
				fmt.Sprintf("node %q has no upstream and will evaluate against empty text", node.ID))
		}
	}
}

// validateTransformSemantic checks transformer parameters. Invalid regex
// patterns are warnings, not errors: the engine resolves them to Error
// values at evaluation time, so the definition itself is still loadable.
func validateTransformSemantic(t *transform.Transformer, path string, result *schema.ValidationResult) {
	if err := t.Validate(); err != nil {
		result.AddError(path, schema.ErrCodeValidation, err.Error())
		return
	}

	switch t.Op {
	case transform.OpFind, transform.OpReplace:
		if _, err := regexp.Compile(t.Pattern); err != nil {
			result.AddWarning(path+".pattern", schema.ErrCodeValidation,
				fmt.Sprintf("pattern does not compile: %v", err))
		}
	case transform.OpSlice:
		if t.From > t.To {
			result.AddWarning(path, schema.ErrCodeValidation,
				"from exceeds to; slice will evaluate to an error")
		}
	}
}

package engine

import (
	"context"

	"github.com/calveg/twine/pkg/schema"
	"github.com/calveg/twine/pkg/transform"
	"github.com/calveg/twine/pkg/value"
)

// Session holds a parsed pipeline with its current outputs and recomputes
// incrementally as nodes are edited. An edit re-evaluates only the edited
// node and its downstream cone.
//
// Sessions are not safe for concurrent use; each caller owns one.
type Session struct {
	dag     *DAG
	outputs map[string]value.Value
}

// NewSession parses the definition and fully evaluates it once.
func NewSession(def *schema.PipelineDefinition) (*Session, error) {
	dag, err := ParseDAG(def)
	if err != nil {
		return nil, err
	}
	return &Session{
		dag:     dag,
		outputs: evaluate(context.Background(), dag, discardLogger()),
	}, nil
}

// SetText updates the literal text of an input node and recomputes its cone.
func (s *Session) SetText(nodeID, text string) error {
	node, ok := s.dag.Nodes[nodeID]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", nodeID)
	}
	if node.Kind() != schema.NodeTypeInput {
		return schema.NewErrorf(schema.ErrCodeValidation, "node %q is not an input node", nodeID)
	}
	node.Text = text
	s.recompute(nodeID)
	return nil
}

// SetTransformer replaces the transformer of a transform node and recomputes
// its cone.
func (s *Session) SetTransformer(nodeID string, t transform.Transformer) error {
	node, ok := s.dag.Nodes[nodeID]
	if !ok {
		return schema.NewErrorf(schema.ErrCodeNotFound, "node %q not found", nodeID)
	}
	if node.Kind() != schema.NodeTypeTransform {
		return schema.NewErrorf(schema.ErrCodeValidation, "node %q is not a transform node", nodeID)
	}
	if err := t.Validate(); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation, "node %q: %v", nodeID, err).WithNode(nodeID)
	}
	node.Transform = &t
	s.recompute(nodeID)
	return nil
}

// Output returns the current output of one node.
func (s *Session) Output(nodeID string) (value.Value, bool) {
	v, ok := s.outputs[nodeID]
	return v, ok
}

// Outputs returns a copy of the current outputs of all nodes.
func (s *Session) Outputs() map[string]value.Value {
	out := make(map[string]value.Value, len(s.outputs))
	for id, v := range s.outputs {
		out[id] = v
	}
	return out
}

// MaxStrLen returns the derived string-length bound of a node's upstream
// output, used by callers to clamp range controls (slice bounds). Returns 0
// for unconnected or unknown nodes.
func (s *Session) MaxStrLen(nodeID string) int {
	node, ok := s.dag.Nodes[nodeID]
	if !ok || node.Upstream == "" {
		return 0
	}
	up, ok := s.outputs[node.Upstream]
	if !ok {
		return 0
	}
	return up.MaxStrLen()
}

// recompute re-evaluates the edited node and everything downstream of it,
// in topological order.
func (s *Session) recompute(nodeID string) {
	for _, id := range s.dag.Cone(nodeID) {
		s.outputs[id] = evaluateNode(context.Background(), s.dag, id, s.outputs, discardLogger())
	}
}

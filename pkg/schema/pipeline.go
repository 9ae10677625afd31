package schema

import "github.com/calveg/twine/pkg/transform"

// PipelineDefinition is the JSON-serializable pipeline format: a set of
// wired nodes forming a DAG. Input nodes carry literal text; transform nodes
// carry one transformer and at most one upstream node.
type PipelineDefinition struct {
	Name     string           `json:"name,omitempty"`
	Nodes    []NodeDefinition `json:"nodes"`
	Metadata map[string]any   `json:"metadata,omitempty"`
}

// NodeDefinition describes a single node in a pipeline.
type NodeDefinition struct {
	ID        string                 `json:"id"`
	Type      NodeType               `json:"type,omitempty"`      // input | transform (default: transform)
	Text      string                 `json:"text,omitempty"`      // input nodes: the literal text
	Transform *transform.Transformer `json:"transform,omitempty"` // transform nodes: the operation
	Upstream  string                 `json:"upstream,omitempty"`  // transform nodes: source node ID, empty when unconnected
}

// NodeType enumerates the kinds of nodes in a pipeline.
type NodeType string

const (
	NodeTypeInput     NodeType = "input"
	NodeTypeTransform NodeType = "transform"
)

// Kind returns the node type, defaulting empty to transform.
func (n *NodeDefinition) Kind() NodeType {
	if n.Type == "" {
		return NodeTypeTransform
	}
	return n.Type
}

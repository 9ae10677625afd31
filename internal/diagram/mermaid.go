// Package diagram renders pipeline definitions as Mermaid flowcharts.
package diagram

import (
	"fmt"
	"strings"

	"github.com/calveg/twine/pkg/schema"
)

// Model is the intermediate representation handed to the renderer.
type Model struct {
	Title string
	Nodes []Node
	Edges []Edge
}

// Node represents a single pipeline node in the diagram.
type Node struct {
	ID    string
	Label string
	Kind  schema.NodeType
}

// Edge represents upstream wiring between two nodes.
type Edge struct {
	From string
	To   string
}

// BuildModel converts a pipeline definition into a diagram model.
// Nodes appear in definition order; edges follow the upstream wiring.
func BuildModel(def *schema.PipelineDefinition) *Model {
	model := &Model{Title: def.Name}

	for _, n := range def.Nodes {
		node := Node{ID: n.ID, Kind: n.Kind()}
		switch n.Kind() {
		case schema.NodeTypeInput:
			node.Label = "Input"
		case schema.NodeTypeTransform:
			if n.Transform != nil {
				node.Label = n.Transform.Label()
			} else {
				node.Label = "Transform"
			}
		}
		model.Nodes = append(model.Nodes, node)

		if n.Upstream != "" {
			model.Edges = append(model.Edges, Edge{From: n.Upstream, To: n.ID})
		}
	}

	return model
}

// RenderMermaid renders a Model as a Mermaid flowchart string.
func RenderMermaid(model *Model) string {
	var b strings.Builder

	b.WriteString("graph TD\n")

	if model.Title != "" {
		b.WriteString(fmt.Sprintf("    %%%% %s\n", model.Title))
	}

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		b.WriteString(fmt.Sprintf("    %s --> %s\n",
			mermaidSafeID(edge.From), mermaidSafeID(edge.To)))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the appropriate shape:
// stadiums for input nodes, rectangles for transforms.
func mermaidNodeDef(node Node) string {
	id := mermaidSafeID(node.ID)
	label := fmt.Sprintf("%s: %s", node.ID, node.Label)

	if node.Kind == schema.NodeTypeInput {
		return fmt.Sprintf("%s([%q])", id, label)
	}
	return fmt.Sprintf("%s[%q]", id, label)
}

// mermaidSafeID converts a node ID to a Mermaid-safe identifier.
// Replaces dots, dashes, and spaces with underscores.
func mermaidSafeID(id string) string {
	r := strings.NewReplacer(".", "_", "-", "_", " ", "_")
	return r.Replace(id)
}

package store

import (
	"encoding/json"
	"time"

	"github.com/calveg/twine/pkg/schema"
)

// Pipeline is a persisted named pipeline definition.
type Pipeline struct {
	Name       string                    `json:"name"`
	Definition schema.PipelineDefinition `json:"definition"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// Run is the persisted record of one pipeline evaluation.
// Outputs maps node IDs to their serialized output values.
type Run struct {
	ID           string                     `json:"id"`
	PipelineName string                     `json:"pipeline_name,omitempty"`
	Outputs      map[string]json.RawMessage `json:"outputs"`
	CreatedAt    time.Time                  `json:"created_at"`
}

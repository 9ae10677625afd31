// Package validation checks pipeline definitions before they reach the
// engine: structural validation via JSON Schema, a semantic pass over node
// wiring and transformer parameters, and graph analysis.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/calveg/twine/pkg/schema"
)

// pipelineSchemaJSON is the JSON Schema for PipelineDefinition validation.
// Embedded as a constant to avoid filesystem dependencies.
const pipelineSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://twine.dev/schemas/pipeline.json",
  "type": "object",
  "required": ["nodes"],
  "properties": {
    "name": { "type": "string" },
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/node" }
    },
    "metadata": {
      "type": "object"
    }
  },
  "additionalProperties": false,
  "$defs": {
    "node": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {
          "type": "string",
          "minLength": 1
        },
        "type": {
          "type": "string",
          "enum": ["input", "transform"]
        },
        "text": { "type": "string" },
        "transform": { "$ref": "#/$defs/transform" },
        "upstream": { "type": "string" }
      },
      "additionalProperties": false
    },
    "transform": {
      "type": "object",
      "required": ["op"],
      "properties": {
        "op": {
          "type": "string",
          "enum": ["split", "join", "find", "replace", "slice", "encode", "decode", "uppercase", "lowercase"]
        },
        "pattern": { "type": "string" },
        "separator": { "type": "string" },
        "replacer": { "type": "string" },
        "from": {
          "type": "integer",
          "minimum": 0
        },
        "to": {
          "type": "integer",
          "minimum": 0
        },
        "encoding": {
          "type": "string",
          "enum": ["base64", "base64url", "url"]
        }
      },
      "additionalProperties": false
    }
  }
}`

// JSONSchemaValidator validates pipeline documents against the pipeline
// JSON Schema (Draft 2020-12). It is safe for concurrent use.
type JSONSchemaValidator struct {
	pipelineSchema *jsonschema.Schema
}

// NewJSONSchemaValidator creates a JSONSchemaValidator with the pipeline schema pre-compiled.
func NewJSONSchemaValidator() (*JSONSchemaValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	schemaDoc, err := jsonschema.UnmarshalJSON(strings.NewReader(pipelineSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal pipeline schema: %w", err)
	}
	if err := c.AddResource("https://twine.dev/schemas/pipeline.json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add pipeline schema resource: %w", err)
	}

	compiled, err := c.Compile("https://twine.dev/schemas/pipeline.json")
	if err != nil {
		return nil, fmt.Errorf("compile pipeline schema: %w", err)
	}

	return &JSONSchemaValidator{pipelineSchema: compiled}, nil
}

// ValidateDefinition validates a PipelineDefinition against the pipeline JSON Schema.
func (v *JSONSchemaValidator) ValidateDefinition(def *schema.PipelineDefinition) error {
	if def == nil {
		return schema.NewError(schema.ErrCodeValidation, "pipeline definition is nil")
	}

	doc, err := toJSONValue(def)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize pipeline definition").WithCause(err)
	}

	if err := v.pipelineSchema.Validate(doc); err != nil {
		return toTwineError(err)
	}

	return nil
}

// ValidateDocument validates raw JSON bytes before they are unmarshalled,
// used at the CLI/MCP boundary where documents arrive from outside.
func (v *JSONSchemaValidator) ValidateDocument(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "invalid JSON").WithCause(err)
	}
	if err := v.pipelineSchema.Validate(doc); err != nil {
		return toTwineError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toTwineError converts a jsonschema.ValidationError into a TwineError
// with the leaf violations collected for readable reporting.
func toTwineError(err error) *schema.TwineError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}

	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}

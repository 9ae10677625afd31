package validation

import "github.com/calveg/twine/pkg/schema"

// Validator checks pipeline definitions for correctness before evaluation.
type Validator interface {
	Validate(def *schema.PipelineDefinition) *schema.ValidationResult
	ValidateDefinition(def *schema.PipelineDefinition) error
}

// PipelineValidator orchestrates the three-stage validation pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (node wiring, transformer parameters)
// 3. DAG (cycles)
type PipelineValidator struct {
	jsonSchema *JSONSchemaValidator
}

// NewPipelineValidator creates a PipelineValidator.
func NewPipelineValidator() (*PipelineValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &PipelineValidator{jsonSchema: jsv}, nil
}

// Validate runs the full 3-stage pipeline and returns an aggregated result.
// Structural errors short-circuit: semantic and DAG stages are skipped.
func (pv *PipelineValidator) Validate(def *schema.PipelineDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	if def == nil {
		result.AddError("/", schema.ErrCodeValidation, "pipeline definition is nil")
		return result
	}

	// Stage 1: Structural (JSON Schema).
	if err := pv.jsonSchema.ValidateDefinition(def); err != nil {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}

	// Stage 2: Semantic.
	result.Merge(validateSemantic(def))

	// Stage 3: DAG (skip if semantic errors; graph may be ill-formed).
	if result.Valid() {
		result.Merge(validateDAG(def))
	}

	return result
}

// ValidateDefinition satisfies the Validator interface.
func (pv *PipelineValidator) ValidateDefinition(def *schema.PipelineDefinition) error {
	return pv.Validate(def).ToError()
}

// ValidateDocument delegates raw-document checking to the JSON Schema stage.
func (pv *PipelineValidator) ValidateDocument(raw []byte) error {
	return pv.jsonSchema.ValidateDocument(raw)
}

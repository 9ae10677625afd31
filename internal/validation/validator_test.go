package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calveg/twine/pkg/schema"
	"github.com/calveg/twine/pkg/transform"
)

func newValidator(t *testing.T) *PipelineValidator {
	t.Helper()
	pv, err := NewPipelineValidator()
	require.NoError(t, err)
	return pv
}

func validDefinition() *schema.PipelineDefinition {
	split := transform.Split(" ")
	join := transform.Join("-")
	return &schema.PipelineDefinition{
		Name: "demo",
		Nodes: []schema.NodeDefinition{
			{ID: "src", Type: schema.NodeTypeInput, Text: "Sample Text"},
			{ID: "words", Type: schema.NodeTypeTransform, Transform: &split, Upstream: "src"},
			{ID: "joined", Type: schema.NodeTypeTransform, Transform: &join, Upstream: "words"},
		},
	}
}

func TestValidate_ValidDefinition(t *testing.T) {
	pv := newValidator(t)

	result := pv.Validate(validDefinition())
	assert.True(t, result.Valid(), "errors: %+v", result.Errors)
	assert.Empty(t, result.Warnings)
	assert.NoError(t, pv.ValidateDefinition(validDefinition()))
}

func TestValidate_NilDefinition(t *testing.T) {
	pv := newValidator(t)
	assert.False(t, pv.Validate(nil).Valid())
}

func TestValidate_StructuralFailures(t *testing.T) {
	pv := newValidator(t)

	// No nodes.
	result := pv.Validate(&schema.PipelineDefinition{})
	assert.False(t, result.Valid())

	// Unknown node type.
	result = pv.Validate(&schema.PipelineDefinition{
		Nodes: []schema.NodeDefinition{{ID: "a", Type: "output"}},
	})
	assert.False(t, result.Valid())
}

func TestValidate_SemanticFailures(t *testing.T) {
	upper := transform.Uppercase()
	bad := transform.Transformer{Op: "frobnicate"}

	cases := []struct {
		name string
		def  *schema.PipelineDefinition
	}{
		{"duplicate node id", &schema.PipelineDefinition{
			Nodes: []schema.NodeDefinition{
				{ID: "a", Type: schema.NodeTypeInput},
				{ID: "a", Type: schema.NodeTypeInput},
			},
		}},
		{"missing upstream ref", &schema.PipelineDefinition{
			Nodes: []schema.NodeDefinition{
				{ID: "a", Transform: &upper, Upstream: "ghost"},
			},
		}},
		{"input with upstream", &schema.PipelineDefinition{
			Nodes: []schema.NodeDefinition{
				{ID: "src", Type: schema.NodeTypeInput},
				{ID: "bad", Type: schema.NodeTypeInput, Upstream: "src"},
			},
		}},
		{"transform without transformer", &schema.PipelineDefinition{
			Nodes: []schema.NodeDefinition{{ID: "a", Type: schema.NodeTypeTransform}},
		}},
		{"unknown op", &schema.PipelineDefinition{
			Nodes: []schema.NodeDefinition{{ID: "a", Transform: &bad}},
		}},
	}

	pv := newValidator(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, pv.Validate(tc.def).Valid())
		})
	}
}

func TestValidate_CycleDetected(t *testing.T) {
	upper := transform.Uppercase()
	lower := transform.Lowercase()
	def := &schema.PipelineDefinition{
		Nodes: []schema.NodeDefinition{
			{ID: "a", Transform: &upper, Upstream: "b"},
			{ID: "b", Transform: &lower, Upstream: "a"},
		},
	}

	result := newValidator(t).Validate(def)
	require.False(t, result.Valid())
	assert.Equal(t, schema.ErrCodeCycleDetected, result.Errors[0].Code)
	assert.Len(t, result.Errors, 2, "both cycle members reported")
}

func TestValidate_Warnings(t *testing.T) {
	find := transform.Find("(")
	slice := transform.Slice(9, 3)
	def := &schema.PipelineDefinition{
		Nodes: []schema.NodeDefinition{
			{ID: "src", Type: schema.NodeTypeInput, Text: "x"},
			{ID: "f", Transform: &find, Upstream: "src"},
			{ID: "s", Transform: &slice, Upstream: "src"},
			{ID: "floating", Transform: &find},
		},
	}

	result := newValidator(t).Validate(def)
	assert.True(t, result.Valid(), "warnings must not fail validation")
	// Bad regex (x2: f and floating), inverted slice bounds, missing upstream.
	assert.Len(t, result.Warnings, 4)
}

func TestValidateDocument(t *testing.T) {
	pv := newValidator(t)

	valid := []byte(`{"nodes":[{"id":"src","type":"input","text":"hi"}]}`)
	assert.NoError(t, pv.ValidateDocument(valid))

	invalid := []byte(`{"nodes":[{"id":"x","transform":{"op":"warp"}}]}`)
	assert.Error(t, pv.ValidateDocument(invalid))

	notJSON := []byte(`{`)
	assert.Error(t, pv.ValidateDocument(notJSON))
}

package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calveg/twine/internal/engine"
	"github.com/calveg/twine/internal/store"
	"github.com/calveg/twine/internal/validation"
	"github.com/calveg/twine/pkg/schema"
)

// --- Mock Store ---

type mockStore struct {
	pipelines map[string]*store.Pipeline
	runs      []*store.Run
}

func newMockStore() *mockStore {
	return &mockStore{pipelines: make(map[string]*store.Pipeline)}
}

func (m *mockStore) SavePipeline(_ context.Context, p *store.Pipeline) error {
	m.pipelines[p.Name] = p
	return nil
}

func (m *mockStore) GetPipeline(_ context.Context, name string) (*store.Pipeline, error) {
	p, ok := m.pipelines[name]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "pipeline %q not found", name)
	}
	return p, nil
}

func (m *mockStore) ListPipelines(_ context.Context) ([]*store.Pipeline, error) {
	out := make([]*store.Pipeline, 0, len(m.pipelines))
	for _, p := range m.pipelines {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockStore) DeletePipeline(_ context.Context, name string) error {
	delete(m.pipelines, name)
	return nil
}

func (m *mockStore) CreateRun(_ context.Context, r *store.Run) error {
	m.runs = append(m.runs, r)
	return nil
}

func (m *mockStore) GetRun(_ context.Context, id string) (*store.Run, error) {
	for _, r := range m.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, schema.NewErrorf(schema.ErrCodeNotFound, "run %q not found", id)
}

func (m *mockStore) ListRuns(_ context.Context, filter store.RunFilter) ([]*store.Run, error) {
	result := make([]*store.Run, 0)
	for _, r := range m.runs {
		if filter.PipelineName != "" && r.PipelineName != filter.PipelineName {
			continue
		}
		result = append(result, r)
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (m *mockStore) Close() error { return nil }

// --- Helpers ---

func newTestServer(t *testing.T, ms store.Store) *TwineServer {
	t.Helper()
	pv, err := validation.NewPipelineValidator()
	require.NoError(t, err)
	return NewTwineServer(TwineServerDeps{
		Evaluator: engine.NewEvaluator(ms, nil),
		Store:     ms,
		Validator: pv,
	})
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	require.False(t, result.IsError)
	require.NotEmpty(t, result.Content)
	text := mcp.GetTextFromContent(result.Content[0])
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func chainDefinitionMap() map[string]any {
	return map[string]any{
		"name": "chain",
		"nodes": []any{
			map[string]any{"id": "src", "type": "input", "text": "Sample Text"},
			map[string]any{"id": "words", "transform": map[string]any{"op": "split", "pattern": " "}, "upstream": "src"},
			map[string]any{"id": "joined", "transform": map[string]any{"op": "join", "separator": "-"}, "upstream": "words"},
		},
	}
}

// --- Tests ---

func TestApplyTool(t *testing.T) {
	s := newTestServer(t, newMockStore())

	req := buildRequest("twine.apply", map[string]any{
		"transform": map[string]any{"op": "split", "pattern": " "},
		"text":      "Sample Text",
	})

	result, err := s.handleApply(context.Background(), req)
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, map[string]any{
		"list": []any{
			map[string]any{"text": "Sample"},
			map[string]any{"text": "Text"},
		},
	}, out["output"])
}

func TestApplyTool_StructuredValue(t *testing.T) {
	s := newTestServer(t, newMockStore())

	req := buildRequest("twine.apply", map[string]any{
		"transform": map[string]any{"op": "join", "separator": " "},
		"value": map[string]any{
			"list": []any{
				map[string]any{"list": []any{map[string]any{"text": "a"}, map[string]any{"text": "b"}}},
				map[string]any{"text": "c"},
			},
		},
	})

	result, err := s.handleApply(context.Background(), req)
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, map[string]any{"text": "a b c"}, out["output"])
}

func TestApplyTool_Errors(t *testing.T) {
	s := newTestServer(t, newMockStore())

	// Missing transform.
	result, err := s.handleApply(context.Background(), buildRequest("twine.apply", map[string]any{"text": "x"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	// Unknown op.
	result, err = s.handleApply(context.Background(), buildRequest("twine.apply", map[string]any{
		"transform": map[string]any{"op": "frobnicate"},
		"text":      "x",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	// text and value together.
	result, err = s.handleApply(context.Background(), buildRequest("twine.apply", map[string]any{
		"transform": map[string]any{"op": "uppercase"},
		"text":      "x",
		"value":     map[string]any{"text": "y"},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRunTool_InlineDefinition(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)

	req := buildRequest("twine.run", map[string]any{"definition": chainDefinitionMap()})

	result, err := s.handleRun(context.Background(), req)
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.NotEmpty(t, out["run_id"])
	outputs := out["outputs"].(map[string]any)
	assert.Equal(t, map[string]any{"text": "Sample-Text"}, outputs["joined"])

	// Run was persisted through the evaluator's store.
	assert.Len(t, ms.runs, 1)
}

func TestRunTool_SavedPipeline(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)

	saveResult, err := s.handleSave(context.Background(), buildRequest("twine.save", map[string]any{
		"name":       "chain",
		"definition": chainDefinitionMap(),
	}))
	require.NoError(t, err)
	assert.False(t, saveResult.IsError)

	result, err := s.handleRun(context.Background(), buildRequest("twine.run", map[string]any{
		"pipeline": "chain",
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	outputs := out["outputs"].(map[string]any)
	assert.Equal(t, map[string]any{"text": "Sample-Text"}, outputs["joined"])
}

func TestRunTool_Errors(t *testing.T) {
	s := newTestServer(t, newMockStore())

	// Neither pipeline nor definition.
	result, err := s.handleRun(context.Background(), buildRequest("twine.run", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	// Unknown saved pipeline.
	result, err = s.handleRun(context.Background(), buildRequest("twine.run", map[string]any{
		"pipeline": "ghost",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	// Invalid definition (cycle).
	result, err = s.handleRun(context.Background(), buildRequest("twine.run", map[string]any{
		"definition": map[string]any{
			"nodes": []any{
				map[string]any{"id": "a", "transform": map[string]any{"op": "uppercase"}, "upstream": "b"},
				map[string]any{"id": "b", "transform": map[string]any{"op": "lowercase"}, "upstream": "a"},
			},
		},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSaveTool_RejectsInvalidDefinition(t *testing.T) {
	s := newTestServer(t, newMockStore())

	result, err := s.handleSave(context.Background(), buildRequest("twine.save", map[string]any{
		"name":       "bad",
		"definition": map[string]any{"nodes": []any{}},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetTool(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)

	_, err := s.handleSave(context.Background(), buildRequest("twine.save", map[string]any{
		"name":       "chain",
		"definition": chainDefinitionMap(),
	}))
	require.NoError(t, err)

	result, err := s.handleGet(context.Background(), buildRequest("twine.get", map[string]any{
		"name": "chain",
	}))
	require.NoError(t, err)

	out := resultJSON(t, result)
	assert.Equal(t, "chain", out["name"])

	result, err = s.handleGet(context.Background(), buildRequest("twine.get", map[string]any{
		"name": "ghost",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestQueryTool(t *testing.T) {
	ms := newMockStore()
	s := newTestServer(t, ms)

	_, err := s.handleSave(context.Background(), buildRequest("twine.save", map[string]any{
		"name":       "chain",
		"definition": chainDefinitionMap(),
	}))
	require.NoError(t, err)

	_, err = s.handleRun(context.Background(), buildRequest("twine.run", map[string]any{
		"pipeline": "chain",
	}))
	require.NoError(t, err)

	result, err := s.handleQuery(context.Background(), buildRequest("twine.query", map[string]any{
		"resource": "pipelines",
	}))
	require.NoError(t, err)
	out := resultJSON(t, result)
	assert.Len(t, out["pipelines"], 1)

	result, err = s.handleQuery(context.Background(), buildRequest("twine.query", map[string]any{
		"resource": "runs",
		"filter":   map[string]any{"pipeline": "chain", "limit": float64(10)},
	}))
	require.NoError(t, err)
	out = resultJSON(t, result)
	assert.Len(t, out["runs"], 1)

	result, err = s.handleQuery(context.Background(), buildRequest("twine.query", map[string]any{
		"resource": "bogus",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestServerConstruction(t *testing.T) {
	s := newTestServer(t, newMockStore())
	assert.NotNil(t, s.MCPServer())
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/calveg/twine/internal/store"
	"github.com/calveg/twine/pkg/schema"
	"github.com/calveg/twine/pkg/transform"
	"github.com/calveg/twine/pkg/value"
)

// handleApply applies one transformation to one value.
func (s *TwineServer) handleApply(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	trRaw := mcp.ParseStringMap(req, "transform", nil)
	if trRaw == nil {
		return mcp.NewToolResultError("transform is required"), nil
	}

	var tr transform.Transformer
	if err := remarshal(trRaw, &tr); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid transform: %v", err)), nil
	}
	if err := tr.Validate(); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid transform: %v", err)), nil
	}

	in, err := parseInputValue(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := transform.Apply(tr, in)
	outRaw, err := value.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal output: %v", err)), nil
	}

	return marshalResult(map[string]any{"output": json.RawMessage(outRaw)})
}

// handleRun evaluates a pipeline, either saved by name or given inline.
func (s *TwineServer) handleRun(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("pipeline", "")
	defRaw := mcp.ParseStringMap(req, "definition", nil)

	var def schema.PipelineDefinition
	switch {
	case name != "" && defRaw != nil:
		return mcp.NewToolResultError("pipeline and definition are mutually exclusive"), nil
	case name != "":
		if s.store == nil {
			return mcp.NewToolResultError("no store configured; saved pipelines are unavailable"), nil
		}
		saved, err := s.store.GetPipeline(ctx, name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("pipeline lookup failed: %v", err)), nil
		}
		def = saved.Definition
	case defRaw != nil:
		if err := remarshal(defRaw, &def); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
		}
	default:
		return mcp.NewToolResultError("one of pipeline or definition is required"), nil
	}

	if err := s.validator.ValidateDefinition(&def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}

	run, err := s.evaluator.Run(ctx, &def)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("evaluation failed: %v", err)), nil
	}

	outputs := make(map[string]json.RawMessage, len(run.Outputs))
	for id, v := range run.Outputs {
		raw, marshalErr := value.Marshal(v)
		if marshalErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("marshal output %s: %v", id, marshalErr)), nil
		}
		outputs[id] = raw
	}

	return marshalResult(map[string]any{
		"run_id":  run.ID,
		"outputs": outputs,
	})
}

// handleSave validates and persists a named pipeline definition.
func (s *TwineServer) handleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	if s.store == nil {
		return mcp.NewToolResultError("no store configured; saved pipelines are unavailable"), nil
	}

	defRaw := mcp.ParseStringMap(req, "definition", nil)
	if defRaw == nil {
		return mcp.NewToolResultError("definition is required"), nil
	}

	var def schema.PipelineDefinition
	if err := remarshal(defRaw, &def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}
	if def.Name == "" {
		def.Name = name
	}

	if err := s.validator.ValidateDefinition(&def); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid definition: %v", err)), nil
	}

	now := time.Now().UTC()
	if err := s.store.SavePipeline(ctx, &store.Pipeline{
		Name:       name,
		Definition: def,
		CreatedAt:  now,
		UpdatedAt:  now,
	}); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
	}

	return marshalResult(map[string]any{"name": name, "nodes": len(def.Nodes)})
}

// handleGet fetches a saved pipeline definition.
func (s *TwineServer) handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError("name is required"), nil
	}
	if s.store == nil {
		return mcp.NewToolResultError("no store configured; saved pipelines are unavailable"), nil
	}

	p, getErr := s.store.GetPipeline(ctx, name)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("pipeline lookup failed: %v", getErr)), nil
	}

	return marshalResult(p)
}

// handleQuery lists saved pipelines or past runs.
func (s *TwineServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}
	if s.store == nil {
		return mcp.NewToolResultError("no store configured; saved pipelines are unavailable"), nil
	}

	filter := mcp.ParseStringMap(req, "filter", nil)

	switch resource {
	case "pipelines":
		pipelines, listErr := s.store.ListPipelines(ctx)
		if listErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", listErr)), nil
		}
		return marshalResult(map[string]any{"pipelines": pipelines})

	case "runs":
		rf := store.RunFilter{Limit: extractInt(filter, "limit", 50)}
		if name, ok := filter["pipeline"].(string); ok {
			rf.PipelineName = name
		}
		runs, listErr := s.store.ListRuns(ctx, rf)
		if listErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", listErr)), nil
		}
		return marshalResult(map[string]any{"runs": runs})

	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource type: %s", resource)), nil
	}
}

// --- helpers ---

// parseInputValue resolves the apply input: a text string, a structured
// value envelope, or empty text when neither is given.
func parseInputValue(req mcp.CallToolRequest) (value.Value, error) {
	text := req.GetString("text", "")
	valRaw := mcp.ParseStringMap(req, "value", nil)

	if text != "" && valRaw != nil {
		return nil, fmt.Errorf("text and value are mutually exclusive")
	}
	if valRaw != nil {
		data, err := json.Marshal(valRaw)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %v", err)
		}
		v, err := value.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("invalid value: %v", err)
		}
		return v, nil
	}
	return value.Text(text), nil
}

// remarshal converts a loosely-typed map (as parsed from tool params) into
// a concrete struct via a JSON round-trip.
func remarshal(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

func extractInt(filter map[string]any, key string, def int) int {
	if filter == nil {
		return def
	}
	switch v := filter[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}

// Package engine parses pipeline definitions into DAGs and evaluates them.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calveg/twine/internal/logging"
	"github.com/calveg/twine/internal/store"
	"github.com/calveg/twine/pkg/schema"
	"github.com/calveg/twine/pkg/transform"
	"github.com/calveg/twine/pkg/value"
)

// Run is the result of one pipeline evaluation: the output value of every
// node, keyed by node ID.
type Run struct {
	ID           string                 `json:"id"`
	PipelineName string                 `json:"pipeline_name,omitempty"`
	Outputs      map[string]value.Value `json:"-"`
	StartedAt    time.Time              `json:"started_at"`
	FinishedAt   time.Time              `json:"finished_at"`
}

// Evaluator runs pipelines to completion. The store is optional; when
// present, every run is persisted.
type Evaluator struct {
	store  store.Store
	logger *slog.Logger
}

// NewEvaluator creates an Evaluator. Both arguments may be nil.
func NewEvaluator(st store.Store, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{store: st, logger: logger}
}

// Run parses the definition and evaluates every node in topological order.
// Transform failures do not abort the run: they surface as Error values in
// the outputs and flow downstream like any other value.
func (e *Evaluator) Run(ctx context.Context, def *schema.PipelineDefinition) (*Run, error) {
	dag, err := ParseDAG(def)
	if err != nil {
		return nil, err
	}

	run := &Run{
		ID:           uuid.New().String(),
		PipelineName: def.Name,
		StartedAt:    time.Now().UTC(),
	}
	ctx = logging.WithRunID(logging.WithPipelineID(ctx, def.Name), run.ID)

	run.Outputs = evaluate(ctx, dag, e.logger)
	run.FinishedAt = time.Now().UTC()

	logging.LogWith(ctx, e.logger).Info("pipeline evaluated",
		slog.Int("nodes", len(run.Outputs)),
		slog.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)))

	if e.store != nil {
		if err := e.persist(ctx, run); err != nil {
			return nil, err
		}
	}

	return run, nil
}

// evaluate walks the DAG in topological order and computes every node's
// output. Input nodes yield their literal text; transform nodes apply their
// transformer to the upstream output, or to empty text when unconnected.
func evaluate(ctx context.Context, dag *DAG, logger *slog.Logger) map[string]value.Value {
	outputs := make(map[string]value.Value, len(dag.Sorted))
	for _, id := range dag.Sorted {
		outputs[id] = evaluateNode(ctx, dag, id, outputs, logger)
	}
	return outputs
}

func evaluateNode(ctx context.Context, dag *DAG, id string, outputs map[string]value.Value, logger *slog.Logger) value.Value {
	node := dag.Nodes[id]

	if node.Kind() == schema.NodeTypeInput {
		return value.Text(node.Text)
	}

	in := value.Value(value.Text(""))
	if node.Upstream != "" {
		in = outputs[node.Upstream]
	}

	out := transform.Apply(*node.Transform, in)
	if out.Kind() == value.KindError {
		logging.LogWith(logging.WithNodeID(ctx, id), logger).Debug("node resolved to error",
			slog.String("op", node.Transform.Label()),
			slog.String("message", out.String()))
	}
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// persist serializes the run outputs and writes the run record.
func (e *Evaluator) persist(ctx context.Context, run *Run) error {
	encoded := make(map[string]json.RawMessage, len(run.Outputs))
	for id, v := range run.Outputs {
		raw, err := value.Marshal(v)
		if err != nil {
			return schema.NewError(schema.ErrCodeStore, "marshal node output").WithNode(id).WithCause(err)
		}
		encoded[id] = raw
	}
	return e.store.CreateRun(ctx, &store.Run{
		ID:           run.ID,
		PipelineName: run.PipelineName,
		Outputs:      encoded,
		CreatedAt:    run.StartedAt,
	})
}

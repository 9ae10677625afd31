// Package store persists pipeline definitions and run records.
package store

import "context"

// Store defines the persistence layer contract.
// All implementations must be safe for concurrent use.
type Store interface {
	// Pipelines (named definitions)
	SavePipeline(ctx context.Context, p *Pipeline) error
	GetPipeline(ctx context.Context, name string) (*Pipeline, error)
	ListPipelines(ctx context.Context) ([]*Pipeline, error)
	DeletePipeline(ctx context.Context, name string) error

	// Runs (evaluation records)
	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)

	Close() error
}

// RunFilter narrows ListRuns results.
type RunFilter struct {
	PipelineName string
	Limit        int
}

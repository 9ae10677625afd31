package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	// Initially empty.
	assert.Equal(t, "", PipelineID(ctx))
	assert.Equal(t, "", NodeID(ctx))
	assert.Equal(t, "", RunID(ctx))

	// Set values.
	ctx = WithPipelineID(ctx, "demo")
	ctx = WithNodeID(ctx, "words")
	ctx = WithRunID(ctx, "run-42")

	// Round-trip.
	assert.Equal(t, "demo", PipelineID(ctx))
	assert.Equal(t, "words", NodeID(ctx))
	assert.Equal(t, "run-42", RunID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := context.Background()
	ctx = WithPipelineID(ctx, "demo")
	ctx = WithNodeID(ctx, "words")
	ctx = WithRunID(ctx, "run-7")

	enriched := LogWith(ctx, logger)
	enriched.Info("test message")

	output := buf.String()
	assert.Contains(t, output, "pipeline_id=demo")
	assert.Contains(t, output, "node_id=words")
	assert.Contains(t, output, "run_id=run-7")
	assert.Contains(t, output, "test message")
}

func TestLogWithMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Only set pipeline ID; node and run should not appear.
	ctx := WithPipelineID(context.Background(), "only")

	enriched := LogWith(ctx, logger)
	enriched.Info("partial context")

	output := buf.String()
	assert.Contains(t, output, "pipeline_id=only")
	assert.NotContains(t, output, "node_id")
	assert.NotContains(t, output, "run_id")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewCorrelationHandler(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	logger := slog.New(handler)

	ctx := WithRunID(WithPipelineID(context.Background(), "demo"), "run-1")
	logger.InfoContext(ctx, "evaluated")

	output := buf.String()
	assert.Contains(t, output, "pipeline_id=demo")
	assert.Contains(t, output, "run_id=run-1")
	assert.NotContains(t, output, "node_id")
}

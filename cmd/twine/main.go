package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/calveg/twine/internal/diagram"
	"github.com/calveg/twine/internal/engine"
	"github.com/calveg/twine/internal/logging"
	"github.com/calveg/twine/internal/store"
	"github.com/calveg/twine/internal/validation"
	twinemcp "github.com/calveg/twine/pkg/mcp"
	"github.com/calveg/twine/pkg/schema"
	"github.com/calveg/twine/pkg/transform"
	"github.com/calveg/twine/pkg/value"
)

const usage = `twine - text transformation pipeline engine

Usage:
  twine run [-f file] [name]    Evaluate a pipeline and print node outputs
  twine apply -t <json> [text]  Apply a single transformer to text (or stdin)
  twine diagram -f file         Render a pipeline definition as Mermaid
  twine serve                   Start the MCP server on stdio
  twine version                 Print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cfg := loadConfig()

	switch os.Args[1] {
	case "run":
		runPipeline(cfg, os.Args[2:])
	case "apply":
		runApply(os.Args[2:])
	case "diagram":
		runDiagram(os.Args[2:])
	case "serve":
		runServe(cfg)
	case "version":
		printVersion()
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(1)
	}
}

func newLogger(cfg Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(logging.NewCorrelationHandler(inner))
}

func runPipeline(cfg Config, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	file := fs.String("f", "", "path to a pipeline definition JSON file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logger := newLogger(cfg)

	var def *schema.PipelineDefinition
	switch {
	case *file != "":
		loaded, err := loadDefinition(*file)
		if err != nil {
			fatal(err)
		}
		def = loaded
	case fs.NArg() == 1:
		st := openStore(cfg)
		defer st.Close()
		p, err := st.GetPipeline(context.Background(), fs.Arg(0))
		if err != nil {
			fatal(err)
		}
		def = &p.Definition
	default:
		fatal(fmt.Errorf("run requires -f <file> or a saved pipeline name"))
	}

	validator, err := validation.NewPipelineValidator()
	if err != nil {
		fatal(err)
	}
	if err := validator.ValidateDefinition(def); err != nil {
		fatal(err)
	}

	evaluator := engine.NewEvaluator(nil, logger)
	run, err := evaluator.Run(context.Background(), def)
	if err != nil {
		fatal(err)
	}

	outputs := make(map[string]json.RawMessage, len(run.Outputs))
	for id, v := range run.Outputs {
		raw, marshalErr := value.Marshal(v)
		if marshalErr != nil {
			fatal(marshalErr)
		}
		outputs[id] = raw
	}
	printJSON(outputs)
}

func runApply(args []string) {
	fs := flag.NewFlagSet("apply", flag.ExitOnError)
	trJSON := fs.String("t", "", "transformer as JSON, e.g. '{\"op\":\"split\",\"pattern\":\" \"}'")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *trJSON == "" {
		fatal(fmt.Errorf("apply requires -t <transformer json>"))
	}

	var tr transform.Transformer
	if err := json.Unmarshal([]byte(*trJSON), &tr); err != nil {
		fatal(fmt.Errorf("invalid transformer: %w", err))
	}
	if err := tr.Validate(); err != nil {
		fatal(err)
	}

	var text string
	if fs.NArg() > 0 {
		text = fs.Arg(0)
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fatal(err)
		}
		text = string(data)
	}

	out := transform.Apply(tr, value.Text(text))
	raw, err := value.Marshal(out)
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(raw))
}

func runDiagram(args []string) {
	fs := flag.NewFlagSet("diagram", flag.ExitOnError)
	file := fs.String("f", "", "path to a pipeline definition JSON file")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *file == "" {
		fatal(fmt.Errorf("diagram requires -f <file>"))
	}

	def, err := loadDefinition(*file)
	if err != nil {
		fatal(err)
	}
	fmt.Print(diagram.RenderMermaid(diagram.BuildModel(def)))
}

func runServe(cfg Config) {
	logger := newLogger(cfg)

	st := openStore(cfg)
	defer st.Close()

	validator, err := validation.NewPipelineValidator()
	if err != nil {
		fatal(err)
	}

	srv := twinemcp.NewTwineServer(twinemcp.TwineServerDeps{
		Evaluator: engine.NewEvaluator(st, logger),
		Store:     st,
		Validator: validator,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting MCP server", "db_path", cfg.DBPath)
	if err := srv.Serve(ctx); err != nil {
		fatal(err)
	}
}

func openStore(cfg Config) *store.LibSQLStore {
	st, err := store.NewLibSQLStore(cfg.DBPath)
	if err != nil {
		fatal(err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		st.Close()
		fatal(err)
	}
	return st
}

func loadDefinition(path string) (*schema.PipelineDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var def schema.PipelineDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &def, nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal(err)
	}
	fmt.Println(string(data))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

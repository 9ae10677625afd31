package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/calveg/twine/pkg/schema"
)

// LibSQLStore implements the Store interface using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path and returns a Store.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Pipelines ---

func (s *LibSQLStore) SavePipeline(ctx context.Context, p *Pipeline) error {
	def, err := json.Marshal(p.Definition)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "marshal definition").WithCause(err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pipelines (name, definition, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET definition=excluded.definition, updated_at=excluded.updated_at`,
		p.Name, string(def), timeOrNow(p.CreatedAt), time.Now().UTC(),
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "save pipeline").WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetPipeline(ctx context.Context, name string) (*Pipeline, error) {
	p := &Pipeline{}
	var def string
	err := s.db.QueryRowContext(ctx,
		`SELECT name, definition, created_at, updated_at FROM pipelines WHERE name = ?`, name,
	).Scan(&p.Name, &def, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("pipeline", name)
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "get pipeline").WithCause(err)
	}
	if err := json.Unmarshal([]byte(def), &p.Definition); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "unmarshal definition").WithCause(err)
	}
	return p, nil
}

func (s *LibSQLStore) ListPipelines(ctx context.Context) ([]*Pipeline, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, definition, created_at, updated_at FROM pipelines ORDER BY name`,
	)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list pipelines").WithCause(err)
	}
	defer rows.Close()

	var out []*Pipeline
	for rows.Next() {
		p := &Pipeline{}
		var def string
		if err := rows.Scan(&p.Name, &def, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "scan pipeline").WithCause(err)
		}
		if err := json.Unmarshal([]byte(def), &p.Definition); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "unmarshal definition").WithCause(err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) DeletePipeline(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pipelines WHERE name = ?`, name)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "delete pipeline").WithCause(err)
	}
	return checkRowsAffected(res, "pipeline", name)
}

// --- Runs ---

func (s *LibSQLStore) CreateRun(ctx context.Context, r *Run) error {
	outputs, err := json.Marshal(r.Outputs)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "marshal outputs").WithCause(err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, pipeline_name, outputs, created_at) VALUES (?, ?, ?, ?)`,
		r.ID, nullStr(r.PipelineName), string(outputs), timeOrNow(r.CreatedAt),
	)
	if err != nil {
		return schema.NewError(schema.ErrCodeStore, "create run").WithCause(err)
	}
	return nil
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r := &Run{}
	var name sql.NullString
	var outputs string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, pipeline_name, outputs, created_at FROM runs WHERE id = ?`, id,
	).Scan(&r.ID, &name, &outputs, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "get run").WithCause(err)
	}
	r.PipelineName = name.String
	if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "unmarshal outputs").WithCause(err)
	}
	return r, nil
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT id, pipeline_name, outputs, created_at FROM runs`
	args := []any{}
	if filter.PipelineName != "" {
		query += ` WHERE pipeline_name = ?`
		args = append(args, filter.PipelineName)
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeStore, "list runs").WithCause(err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r := &Run{}
		var name sql.NullString
		var outputs string
		if err := rows.Scan(&r.ID, &name, &outputs, &r.CreatedAt); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "scan run").WithCause(err)
		}
		r.PipelineName = name.String
		if err := json.Unmarshal([]byte(outputs), &r.Outputs); err != nil {
			return nil, schema.NewError(schema.ErrCodeStore, "unmarshal outputs").WithCause(err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// --- helpers ---

func storeNotFound(resource, id string) *schema.TwineError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func checkRowsAffected(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storeNotFound(resource, id)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

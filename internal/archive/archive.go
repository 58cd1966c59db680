// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive keeps a local SQLite history of answered queries for the
// CLI. The pipeline never reads it; each saved response is a finished
// artifact.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/answer-engine/pkg/types"
)

// ErrNotFound is returned by Get when no run matches.
var ErrNotFound = errors.New("run not found")

const defaultListLimit = 20

// timeLayout has fixed width so started_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Archive is the run-history database.
type Archive struct {
	db *sql.DB
}

// Run summarizes one archived response.
type Run struct {
	RequestID string          `json:"request_id" yaml:"request_id"`
	Query     string          `json:"query" yaml:"query"`
	StartedAt time.Time       `json:"started_at" yaml:"started_at"`
	Duration  time.Duration   `json:"duration" yaml:"duration"`
	QueryType types.QueryType `json:"query_type" yaml:"query_type"`
	Succeeded int             `json:"succeeded" yaml:"succeeded"`
	Total     int             `json:"total" yaml:"total"`
	Degraded  bool            `json:"degraded" yaml:"degraded"`
}

// Open opens or creates the database at path and its schema.
func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	a := &Archive{db: db}
	if err := a.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return a, nil
}

// Close releases the database connection.
func (a *Archive) Close() error {
	return a.db.Close()
}

func (a *Archive) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			request_id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			started_at TEXT NOT NULL,
			duration_ms INTEGER,
			query_type TEXT,
			degraded INTEGER,
			response TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS provider_outcomes (
			request_id TEXT NOT NULL REFERENCES runs(request_id) ON DELETE CASCADE,
			provider TEXT NOT NULL,
			status TEXT NOT NULL,
			item_count INTEGER,
			duration_ms INTEGER,
			error_detail TEXT,
			PRIMARY KEY (request_id, provider)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_status ON provider_outcomes(status)`,
	}
	for _, stmt := range statements {
		if _, err := a.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores resp and its per-provider outcomes. Saving the same request
// id again replaces the earlier record.
func (a *Archive) Save(ctx context.Context, resp *types.PipelineResponse) error {
	if resp == nil || resp.RequestID == "" {
		return fmt.Errorf("archive: response has no request id")
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshaling response: %w", err)
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM provider_outcomes WHERE request_id = ?`, resp.RequestID); err != nil {
		return fmt.Errorf("deleting old outcomes: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (request_id, query, started_at, duration_ms, query_type, degraded, response)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(request_id) DO UPDATE SET
			query=excluded.query, started_at=excluded.started_at, duration_ms=excluded.duration_ms,
			query_type=excluded.query_type, degraded=excluded.degraded, response=excluded.response`,
		resp.RequestID, resp.Query, resp.StartedAt.UTC().Format(timeLayout),
		resp.Duration.Milliseconds(), string(resp.Classification.QueryType),
		resp.Classification.Degraded, string(body),
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO provider_outcomes (request_id, provider, status, item_count, duration_ms, error_detail)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for name, pr := range resp.ProviderResults {
		_, err := stmt.ExecContext(ctx,
			resp.RequestID, string(name), string(pr.Status),
			len(pr.Items), pr.Duration.Milliseconds(), pr.ErrorDetail,
		)
		if err != nil {
			return fmt.Errorf("inserting outcome %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// List returns the most recent runs first. A non-empty contains filters on
// the query text. limit <= 0 means 20.
func (a *Archive) List(ctx context.Context, limit int, contains string) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT r.request_id, r.query, r.started_at, r.duration_ms, r.query_type, r.degraded,
			COALESCE(SUM(CASE WHEN o.status = 'success' THEN 1 ELSE 0 END), 0),
			COUNT(o.provider)
		 FROM runs r
		 LEFT JOIN provider_outcomes o ON o.request_id = r.request_id
		 WHERE (? = '' OR instr(r.query, ?) > 0)
		 GROUP BY r.request_id
		 ORDER BY r.started_at DESC
		 LIMIT ?`,
		contains, contains, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  string
			durationMS int64
			queryType  string
		)
		if err := rows.Scan(&r.RequestID, &r.Query, &startedAt, &durationMS, &queryType, &r.Degraded, &r.Succeeded, &r.Total); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		r.QueryType = types.QueryType(queryType)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get loads the full response for a request id or a unique prefix of one.
func (a *Archive) Get(ctx context.Context, id string) (*types.PipelineResponse, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	rows, err := a.db.QueryContext(ctx,
		`SELECT response FROM runs WHERE request_id = ? OR substr(request_id, 1, length(?)) = ? LIMIT 2`, id, id, id)
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	defer rows.Close()

	var bodies []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		bodies = append(bodies, body)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(bodies) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("request id prefix %q is ambiguous", id)
	}

	var resp types.PipelineResponse
	if err := json.Unmarshal([]byte(bodies[0]), &resp); err != nil {
		return nil, fmt.Errorf("decoding stored response: %w", err)
	}
	return &resp, nil
}

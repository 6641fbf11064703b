package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is fixed width so that created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Index is a sqlite catalogue of saved runs.
type Index struct {
	db *sql.DB
}

// OpenIndex creates or opens the index at path. Safe to call repeatedly.
func OpenIndex(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect index: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Index{db: db}, nil
}

func (x *Index) Close() error {
	if x == nil || x.db == nil {
		return nil
	}
	return x.db.Close()
}

// Put inserts or replaces the row for meta.
func (x *Index) Put(ctx context.Context, meta RunMetadata) error {
	metrics, err := json.Marshal(meta.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	scrammed := 0
	if meta.Scrammed {
		scrammed = 1
	}
	_, err = x.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, scenario, preset, created_at, dt, duration, steps, scrammed, scram_reason, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Scenario, meta.Preset, meta.Timestamp.UTC().Format(timeLayout),
		meta.Dt, meta.Duration, meta.Steps, scrammed, meta.ScramReason, string(metrics),
	)
	if err != nil {
		return fmt.Errorf("index run %s: %w", meta.ID, err)
	}
	return nil
}

// List returns indexed runs, oldest first. An empty scenario matches all.
func (x *Index) List(ctx context.Context, scenario string) ([]RunMetadata, error) {
	rows, err := x.db.QueryContext(ctx, `
		SELECT id, scenario, preset, created_at, dt, duration, steps, scrammed, scram_reason, metrics
		FROM runs
		WHERE ? = '' OR scenario = ?
		ORDER BY created_at, id`, scenario, scenario)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunMetadata{}
	for rows.Next() {
		var (
			meta             RunMetadata
			created, metrics string
			scrammed         int
		)
		if err := rows.Scan(&meta.ID, &meta.Scenario, &meta.Preset, &created, &meta.Dt, &meta.Duration,
			&meta.Steps, &scrammed, &meta.ScramReason, &metrics); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if meta.Timestamp, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("run %s timestamp: %w", meta.ID, err)
		}
		if err := json.Unmarshal([]byte(metrics), &meta.Metrics); err != nil {
			return nil, fmt.Errorf("run %s metrics: %w", meta.ID, err)
		}
		meta.Scrammed = scrammed != 0
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (x *Index) Delete(ctx context.Context, id string) error {
	if _, err := x.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}

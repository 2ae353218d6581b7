// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store archives completed reconciliation runs in a SQLite
// database so the viewer and later invocations can read them back.
// The archive is append-mostly: runs are saved whole inside one
// transaction and read back by id, by recency, or as filtered chain
// lists.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docket-scan/internal/docket"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// Store persists runs in a single SQLite file.
type Store struct {
	db *sql.DB
}

// RunSummary is one row of the run history listing. Stats is decoded
// from the stored JSON so callers see the same counters the run ended
// with.
type RunSummary struct {
	ID           string       `json:"id"`
	RulesVersion string       `json:"rules_version"`
	StartedAt    time.Time    `json:"started_at"`
	DurationMS   int64        `json:"duration_ms"`
	Stats        docket.Stats `json:"stats"`
}

// ChainFilter narrows a chain listing. Empty fields match everything.
type ChainFilter struct {
	Confidence string
	Favorable  string
	Status     string
}

// Open opens or creates the archive at path and runs migrations.
// Creates the parent directory if it does not exist.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableCount == 0 {
		if _, err := s.db.Exec(schema1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion1); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read schema version: %w", err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		v = schemaVersion1
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", v); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}
	if v != schemaVersion1 {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun writes the run, its chains and its residuals in one
// transaction. Saving the same run id twice is an error.
func (s *Store) SaveRun(ctx context.Context, run *docket.Run) error {
	if run == nil {
		return errors.New("run is nil")
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := sq.Insert("runs").
		Columns("id", "rules_version", "started_at", "duration_ms", "stats").
		Values(run.ID, run.RulesVersion, run.StartedAt.UTC().Format(time.RFC3339Nano), run.DurationMS, string(stats)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i := range run.Cases {
		c := &run.Cases[i]
		payload, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal chain %s: %w", c.Chain.ID, err)
		}
		query, args, err := sq.Insert("chains").
			Columns("run_id", "id", "confidence", "favorable", "status", "payload").
			Values(run.ID, c.Chain.ID, c.Outcome.Confidence.String(), c.Outcome.FinalFavorable.String(), c.Outcome.Status, string(payload)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build chain insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert chain %s: %w", c.Chain.ID, err)
		}
	}

	for i := range run.Residuals {
		r := &run.Residuals[i]
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal residual %s: %w", r.Record.RawNumber, err)
		}
		query, args, err := sq.Insert("residuals").
			Columns("run_id", "raw_number", "tier", "reason", "payload").
			Values(run.ID, r.Record.RawNumber, r.Record.Tier.String(), r.Reason, string(payload)).
			ToSql()
		if err != nil {
			return fmt.Errorf("build residual insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert residual: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save tx: %w", err)
	}
	return nil
}

// LoadRun reads a full run back by id, or nil if not found.
func (s *Store) LoadRun(ctx context.Context, id string) (*docket.Run, error) {
	query, args, err := sq.Select("rules_version", "started_at", "duration_ms", "stats").
		From("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build run select: %w", err)
	}

	var rulesVersion, startedAt, statsJSON string
	var durationMS int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&rulesVersion, &startedAt, &durationMS, &statsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	run := &docket.Run{
		ID:           id,
		RulesVersion: rulesVersion,
		DurationMS:   durationMS,
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if err := json.Unmarshal([]byte(statsJSON), &run.Stats); err != nil {
		return nil, fmt.Errorf("unmarshal stats: %w", err)
	}

	if run.Cases, err = s.Chains(ctx, id, ChainFilter{}); err != nil {
		return nil, err
	}
	if run.Residuals, err = s.Residuals(ctx, id); err != nil {
		return nil, err
	}
	return run, nil
}

// LatestRunID returns the id of the most recently started run, or ""
// when the archive is empty.
func (s *Store) LatestRunID(ctx context.Context) (string, error) {
	query, args, err := sq.Select("id").From("runs").
		OrderBy("started_at DESC").Limit(1).ToSql()
	if err != nil {
		return "", fmt.Errorf("build latest select: %w", err)
	}
	var id string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get latest run: %w", err)
	}
	return id, nil
}

// ListRuns returns the run history, most recent first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	query, args, err := sq.Select("id", "rules_version", "started_at", "duration_ms", "stats").
		From("runs").OrderBy("started_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var sum RunSummary
		var startedAt, statsJSON string
		if err := rows.Scan(&sum.ID, &sum.RulesVersion, &startedAt, &sum.DurationMS, &statsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if sum.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if err := json.Unmarshal([]byte(statsJSON), &sum.Stats); err != nil {
			return nil, fmt.Errorf("unmarshal stats: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Chains returns the chains of a run in chain id order, narrowed by
// the filter. The returned cases are decoded from the stored payloads.
func (s *Store) Chains(ctx context.Context, runID string, f ChainFilter) ([]docket.ReconciledCase, error) {
	q := sq.Select("payload").From("chains").
		Where(sq.Eq{"run_id": runID}).OrderBy("id")
	if f.Confidence != "" {
		q = q.Where(sq.Eq{"confidence": f.Confidence})
	}
	if f.Favorable != "" {
		q = q.Where(sq.Eq{"favorable": f.Favorable})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": f.Status})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chains select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()

	var out []docket.ReconciledCase
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		var c docket.ReconciledCase
		if err := json.Unmarshal([]byte(payload), &c); err != nil {
			return nil, fmt.Errorf("unmarshal chain: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	return out, nil
}

// Chain returns one chain of a run by chain id, or nil if not found.
func (s *Store) Chain(ctx context.Context, runID, chainID string) (*docket.ReconciledCase, error) {
	query, args, err := sq.Select("payload").From("chains").
		Where(sq.Eq{"run_id": runID, "id": chainID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chain select: %w", err)
	}
	var payload string
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chain: %w", err)
	}
	var c docket.ReconciledCase
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("unmarshal chain: %w", err)
	}
	return &c, nil
}

// Residuals returns the residual records of a run ordered by raw
// number, then tier.
func (s *Store) Residuals(ctx context.Context, runID string) ([]docket.Residual, error) {
	query, args, err := sq.Select("payload").From("residuals").
		Where(sq.Eq{"run_id": runID}).OrderBy("raw_number", "tier").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build residuals select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list residuals: %w", err)
	}
	defer rows.Close()

	var out []docket.Residual
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan residual: %w", err)
		}
		var r docket.Residual
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("unmarshal residual: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list residuals: %w", err)
	}
	return out, nil
}

// DeleteRun removes a run and, through the cascade, its chains and
// residuals. Deleting a missing run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	query, args, err := sq.Delete("runs").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build run delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

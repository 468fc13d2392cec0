// Package ledger records pipeline runs in PostgreSQL so past runs and their
// artifacts can be listed.
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/internal/pipeline"
	apperrors "github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/star-distance-matrix/pkg/postgres"
)

// Schema creates the ledger tables.
const Schema = `
CREATE TABLE IF NOT EXISTS star_matrix_runs (
    run_id      UUID PRIMARY KEY,
    source      TEXT NOT NULL,
    status      TEXT NOT NULL,
    total       INTEGER NOT NULL,
    valid       INTEGER NOT NULL,
    rejected    INTEGER NOT NULL,
    degraded    INTEGER NOT NULL,
    dimension   INTEGER NOT NULL,
    chunk_size  INTEGER NOT NULL,
    summary     JSONB NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS star_matrix_artifacts (
    run_id UUID NOT NULL REFERENCES star_matrix_runs(run_id) ON DELETE CASCADE,
    kind   TEXT NOT NULL,
    path   TEXT NOT NULL,
    error  TEXT,
    PRIMARY KEY (run_id, kind)
);
CREATE INDEX IF NOT EXISTS star_matrix_runs_finished_idx ON star_matrix_runs (finished_at DESC);
`

// Store persists run summaries.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a Store over an open client.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "ledger"),
	}
}

// EnsureSchema creates the tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating ledger schema: %w", err)
	}
	return nil
}

// Deliver saves summary; it lets the Store act as a pipeline sink.
func (s *Store) Deliver(ctx context.Context, summary pipeline.Summary) error {
	return s.SaveRun(ctx, summary)
}

// SaveRun inserts the run and its artifacts in one transaction.
func (s *Store) SaveRun(ctx context.Context, summary pipeline.Summary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}

	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO star_matrix_runs
			    (run_id, source, status, total, valid, rejected, degraded, dimension, chunk_size, summary, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			summary.RunID, summary.Source, summary.Status,
			summary.Total, summary.Valid, summary.Rejected, summary.Degraded,
			summary.Dimension, summary.ChunkSize, data,
			summary.StartedAt, summary.FinishedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}
		for _, a := range summary.Artifacts {
			var errText sql.NullString
			if a.Failed() {
				errText = sql.NullString{String: a.Error, Valid: true}
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO star_matrix_artifacts (run_id, kind, path, error) VALUES ($1, $2, $3, $4)`,
				summary.RunID, a.Kind, a.Path, errText,
			); err != nil {
				return fmt.Errorf("inserting artifact %s: %w", a.Kind, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving run %s: %w", summary.RunID, err)
	}

	s.logger.Info("run recorded",
		"run_id", summary.RunID,
		"status", summary.Status,
		"dimension", summary.Dimension,
	)
	return nil
}

// LatestRun returns the most recently finished run. It returns an error
// wrapping ErrNotFound when the ledger is empty.
func (s *Store) LatestRun(ctx context.Context) (*pipeline.Summary, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT summary FROM star_matrix_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.New(apperrors.ErrNotFound, 0, "no runs recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest run: %w", err)
	}

	var summary pipeline.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshaling run: %w", err)
	}
	return &summary, nil
}

// ListRuns returns up to limit runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]pipeline.Summary, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT summary FROM star_matrix_runs ORDER BY finished_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []pipeline.Summary
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		var summary pipeline.Summary
		if err := json.Unmarshal(data, &summary); err != nil {
			s.logger.Warn("skipping corrupt run", "error", err)
			continue
		}
		runs = append(runs, summary)
	}
	return runs, rows.Err()
}

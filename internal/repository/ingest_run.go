package repository

import (
	"context"
	"database/sql"
	"fmt"

	"boundary-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type IngestRunRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewIngestRunRepository(sqlDB *sql.DB, logger zerolog.Logger) *IngestRunRepository {
	return &IngestRunRepository{db: sqlDB, logger: logger}
}

// Insert records one ingest run, generating an id when absent.
func (r *IngestRunRepository) Insert(ctx context.Context, run *domain.IngestRun) error {
	id := run.ID
	if id == "" {
		var err error
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		run.ID = id
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, source, deliveries, boundaries, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, run.Source, run.Deliveries, run.Boundaries, run.Skipped, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert ingest run: %w", err)
	}
	return nil
}

// Latest returns the most recent ingest run, or nil when none have run.
func (r *IngestRunRepository) Latest(ctx context.Context) (*domain.IngestRun, error) {
	var run domain.IngestRun
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, deliveries, boundaries, skipped, started_at, finished_at
		FROM ingest_runs
		ORDER BY finished_at DESC
		LIMIT 1`).Scan(
		&run.ID, &run.Source, &run.Deliveries, &run.Boundaries, &run.Skipped, &run.StartedAt, &run.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest ingest run: %w", err)
	}
	return &run, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"

	"boundary-tracker/internal/constants"
	"boundary-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type DeliveryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewDeliveryRepository(sqlDB *sql.DB, logger zerolog.Logger) *DeliveryRepository {
	return &DeliveryRepository{db: sqlDB, logger: logger}
}

// ReplaceAll swaps the stored raw dataset for the given one in a single
// transaction. An ingest is all-or-nothing; a failed run leaves the
// previous dataset in place.
func (r *DeliveryRepository) ReplaceAll(ctx context.Context, deliveries []domain.Delivery) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM deliveries`); err != nil {
		return fmt.Errorf("failed to clear deliveries: %w", err)
	}

	// Plain INSERT: a duplicate (match, innings, over, ball) means the
	// dataset violates the delivery ordering invariant, and silently
	// collapsing it would desync the stored rows from the run counts.
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO deliveries
			(match_id, innings, over, ball, season, runs_bat, extras, extra_type, is_wicket, valid_ball, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare delivery insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < len(deliveries); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(deliveries) {
			end = len(deliveries)
		}
		for _, d := range deliveries[i:end] {
			_, err := stmt.ExecContext(ctx,
				d.MatchID, d.Innings, d.Over, d.Ball, d.Season,
				d.RunsBat, d.Extras, d.ExtraType, d.IsWicket, d.ValidBall,
				d.CreatedAt, d.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert delivery %s/%d/%d.%d: %w", d.MatchID, d.Innings, d.Over, d.Ball, err)
			}
		}
	}

	r.logger.Debug().Int("deliveries", len(deliveries)).Msg("raw dataset stored")
	return tx.Commit()
}

// GetAll returns every stored delivery, ordered for the aggregator's scan.
func (r *DeliveryRepository) GetAll(ctx context.Context) ([]domain.Delivery, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT match_id, innings, over, ball, season, runs_bat, extras, extra_type, is_wicket, valid_ball, created_at, updated_at
		FROM deliveries
		ORDER BY match_id, innings, over, ball`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	var out []domain.Delivery
	for rows.Next() {
		var d domain.Delivery
		if err := rows.Scan(
			&d.MatchID, &d.Innings, &d.Over, &d.Ball, &d.Season,
			&d.RunsBat, &d.Extras, &d.ExtraType, &d.IsWicket, &d.ValidBall,
			&d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *DeliveryRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return count, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"boundary-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type AggregateRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewAggregateRepository(sqlDB *sql.DB, logger zerolog.Logger) *AggregateRepository {
	return &AggregateRepository{db: sqlDB, logger: logger}
}

// Replace swaps the aggregate table and the season totals atomically.
func (r *AggregateRepository) Replace(ctx context.Context, aggRows []domain.AggregateRow, totals []domain.SeasonTotal) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM boundary_outcomes`); err != nil {
		return fmt.Errorf("failed to clear boundary outcomes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM season_totals`); err != nil {
		return fmt.Errorf("failed to clear season totals: %w", err)
	}

	for _, row := range aggRows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO boundary_outcomes (season, boundary_type, outcome, count, percentage)
			VALUES (?, ?, ?, ?, ?)`,
			row.Season, row.BoundaryType, string(row.Outcome), row.Count, row.Percentage,
		)
		if err != nil {
			return fmt.Errorf("failed to insert outcome row %d/%d/%s: %w", row.Season, row.BoundaryType, row.Outcome, err)
		}
	}

	for _, t := range totals {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO season_totals (season, fours, sixes)
			VALUES (?, ?, ?)`,
			t.Season, t.Fours, t.Sixes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert season total %d: %w", t.Season, err)
		}
	}

	r.logger.Debug().Int("rows", len(aggRows)).Int("seasons", len(totals)).Msg("aggregate stored")
	return tx.Commit()
}

// GetDistribution returns the next-ball outcome rows for one season and
// boundary type, in the declared outcome order.
func (r *AggregateRepository) GetDistribution(ctx context.Context, season, boundaryType int) ([]domain.AggregateRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT season, boundary_type, outcome, count, percentage
		FROM boundary_outcomes
		WHERE season = ? AND boundary_type = ?`,
		season, boundaryType)
	if err != nil {
		return nil, fmt.Errorf("failed to query distribution: %w", err)
	}
	defer rows.Close()

	out, err := scanAggregateRows(rows)
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return domain.OutcomeRank(out[i].Outcome) < domain.OutcomeRank(out[j].Outcome)
	})
	return out, nil
}

// GetAllRows returns the full aggregate table in its stable order.
func (r *AggregateRepository) GetAllRows(ctx context.Context) ([]domain.AggregateRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT season, boundary_type, outcome, count, percentage
		FROM boundary_outcomes
		ORDER BY season, boundary_type`)
	if err != nil {
		return nil, fmt.Errorf("failed to query aggregate rows: %w", err)
	}
	defer rows.Close()

	out, err := scanAggregateRows(rows)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		if out[i].BoundaryType != out[j].BoundaryType {
			return out[i].BoundaryType < out[j].BoundaryType
		}
		return domain.OutcomeRank(out[i].Outcome) < domain.OutcomeRank(out[j].Outcome)
	})
	return out, nil
}

func scanAggregateRows(rows *sql.Rows) ([]domain.AggregateRow, error) {
	var out []domain.AggregateRow
	for rows.Next() {
		var row domain.AggregateRow
		var outcome string
		if err := rows.Scan(&row.Season, &row.BoundaryType, &outcome, &row.Count, &row.Percentage); err != nil {
			return nil, fmt.Errorf("failed to scan aggregate row: %w", err)
		}
		row.Outcome = domain.Outcome(outcome)
		out = append(out, row)
	}
	return out, rows.Err()
}

// GetSeasons lists the seasons present in the aggregate, ascending.
func (r *AggregateRepository) GetSeasons(ctx context.Context) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT season FROM season_totals ORDER BY season`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	var seasons []int
	for rows.Next() {
		var s int
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

// GetTotals returns the boundary counts for a season, or nil when the
// season is not in the dataset.
func (r *AggregateRepository) GetTotals(ctx context.Context, season int) (*domain.SeasonTotal, error) {
	var t domain.SeasonTotal
	err := r.db.QueryRowContext(ctx, `
		SELECT season, fours, sixes FROM season_totals WHERE season = ?`,
		season).Scan(&t.Season, &t.Fours, &t.Sixes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query season totals: %w", err)
	}
	return &t, nil
}

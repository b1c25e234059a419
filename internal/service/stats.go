package service

import (
	"context"
	"fmt"

	"boundary-tracker/internal/constants"
	"boundary-tracker/internal/domain"
	"boundary-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// StatsService answers the dashboard's read queries from the stored
// aggregate table.
type StatsService struct {
	aggRepo *repository.AggregateRepository
	logger  zerolog.Logger
}

func NewStatsService(aggRepo *repository.AggregateRepository, logger zerolog.Logger) *StatsService {
	return &StatsService{aggRepo: aggRepo, logger: logger}
}

// SeasonComparison holds two seasons' distributions side by side for the
// compare view, plus the boundary totals for the metric cards.
type SeasonComparison struct {
	BoundaryType int                `json:"boundary_type"`
	SeasonA      SeasonDistribution `json:"season_a"`
	SeasonB      SeasonDistribution `json:"season_b"`
}

type SeasonDistribution struct {
	Season   int                   `json:"season"`
	Outcomes []domain.AggregateRow `json:"outcomes"`
	Totals   *domain.SeasonTotal   `json:"totals"`
}

func validBoundaryType(boundaryType int) error {
	if boundaryType != 4 && boundaryType != 6 {
		return fmt.Errorf("boundary type must be 4 or 6, got %d", boundaryType)
	}
	return nil
}

func (s *StatsService) Seasons(ctx context.Context) ([]int, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.aggRepo.GetSeasons(ctx)
}

// Distribution returns the next-ball outcome rows for one season and
// boundary type in the declared outcome order.
func (s *StatsService) Distribution(ctx context.Context, season, boundaryType int) ([]domain.AggregateRow, error) {
	if err := validBoundaryType(boundaryType); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	rows, err := s.aggRepo.GetDistribution(ctx, season, boundaryType)
	if err != nil {
		s.logger.Error().Err(err).Int("season", season).Int("boundary_type", boundaryType).Msg("distribution query failed")
		return nil, err
	}
	return rows, nil
}

// Compare builds the side-by-side view of two seasons.
func (s *StatsService) Compare(ctx context.Context, seasonA, seasonB, boundaryType int) (*SeasonComparison, error) {
	if err := validBoundaryType(boundaryType); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	a, err := s.seasonDistribution(ctx, seasonA, boundaryType)
	if err != nil {
		return nil, err
	}
	b, err := s.seasonDistribution(ctx, seasonB, boundaryType)
	if err != nil {
		return nil, err
	}

	return &SeasonComparison{BoundaryType: boundaryType, SeasonA: *a, SeasonB: *b}, nil
}

func (s *StatsService) seasonDistribution(ctx context.Context, season, boundaryType int) (*SeasonDistribution, error) {
	outcomes, err := s.aggRepo.GetDistribution(ctx, season, boundaryType)
	if err != nil {
		return nil, fmt.Errorf("failed to read distribution for season %d: %w", season, err)
	}
	totals, err := s.aggRepo.GetTotals(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to read totals for season %d: %w", season, err)
	}
	return &SeasonDistribution{Season: season, Outcomes: outcomes, Totals: totals}, nil
}

// Totals returns the per-season boundary counts, nil when unknown.
func (s *StatsService) Totals(ctx context.Context, season int) (*domain.SeasonTotal, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.aggRepo.GetTotals(ctx, season)
}

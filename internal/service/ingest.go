package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"boundary-tracker/internal/aggregate"
	"boundary-tracker/internal/api"
	"boundary-tracker/internal/config"
	"boundary-tracker/internal/constants"
	"boundary-tracker/internal/dataset"
	"boundary-tracker/internal/domain"
	"boundary-tracker/internal/repository"

	"github.com/rs/zerolog"
)

// IngestService runs the batch pipeline: read the dataset, store the raw
// deliveries, compute the boundary aggregate and store it.
type IngestService struct {
	feed         *api.FeedClient
	cfg          *config.Config
	deliveryRepo *repository.DeliveryRepository
	aggRepo      *repository.AggregateRepository
	runRepo      *repository.IngestRunRepository
	logger       zerolog.Logger
}

func NewIngestService(
	feed *api.FeedClient,
	cfg *config.Config,
	deliveryRepo *repository.DeliveryRepository,
	aggRepo *repository.AggregateRepository,
	runRepo *repository.IngestRunRepository,
	logger zerolog.Logger,
) *IngestService {
	return &IngestService{
		feed:         feed,
		cfg:          cfg,
		deliveryRepo: deliveryRepo,
		aggRepo:      aggRepo,
		runRepo:      runRepo,
		logger:       logger,
	}
}

// Run ingests the configured dataset. Without refresh it is a no-op when
// deliveries are already stored, except that a missing aggregate is
// recomputed from the stored raw data.
func (s *IngestService) Run(ctx context.Context, refresh bool) (*domain.IngestRun, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.IngestTimeout)
	defer cancel()

	if !refresh {
		count, err := s.deliveryRepo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to check stored deliveries: %w", err)
		}
		if count > 0 {
			seasons, err := s.aggRepo.GetSeasons(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to check stored aggregate: %w", err)
			}
			if len(seasons) > 0 {
				s.logger.Info().Int("deliveries", count).Msg("dataset already ingested, skipping")
				return s.runRepo.Latest(ctx)
			}
			s.logger.Info().Int("deliveries", count).Msg("aggregate missing, recomputing from stored deliveries")
			return s.reaggregate(ctx, count)
		}
	}

	started := time.Now()

	result, source, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := aggregate.SummarizeParallel(ctx, result.Deliveries, constants.AggregateWorkers)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}

	if err := s.deliveryRepo.ReplaceAll(ctx, result.Deliveries); err != nil {
		return nil, fmt.Errorf("failed to store deliveries: %w", err)
	}
	if err := s.aggRepo.Replace(ctx, summary.Rows, summary.Totals); err != nil {
		return nil, fmt.Errorf("failed to store aggregate: %w", err)
	}

	run := &domain.IngestRun{
		Source:     source,
		Deliveries: len(result.Deliveries),
		Boundaries: summary.Boundaries,
		Skipped:    result.Skipped,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := s.runRepo.Insert(ctx, run); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("run_id", run.ID).
		Str("source", source).
		Int("deliveries", run.Deliveries).
		Int("boundaries", run.Boundaries).
		Int("skipped", run.Skipped).
		Dur("took", run.FinishedAt.Sub(run.StartedAt)).
		Msg("ingest completed")
	return run, nil
}

func (s *IngestService) load(ctx context.Context) (*dataset.Result, string, error) {
	if s.cfg.DatasetPath != "" {
		result, err := dataset.LoadFile(s.cfg.DatasetPath, s.logger)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load dataset file: %w", err)
		}
		return result, s.cfg.DatasetPath, nil
	}

	s.logger.Info().Str("url", s.cfg.DatasetURL).Msg("downloading dataset")
	body, err := s.feed.FetchDataset(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download dataset: %w", err)
	}
	result, err := dataset.Load(bytes.NewReader(body), s.logger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse downloaded dataset: %w", err)
	}
	return result, s.cfg.DatasetURL, nil
}

func (s *IngestService) reaggregate(ctx context.Context, count int) (*domain.IngestRun, error) {
	started := time.Now()

	deliveries, err := s.deliveryRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read stored deliveries: %w", err)
	}

	summary, err := aggregate.SummarizeParallel(ctx, deliveries, constants.AggregateWorkers)
	if err != nil {
		return nil, fmt.Errorf("aggregation failed: %w", err)
	}
	if err := s.aggRepo.Replace(ctx, summary.Rows, summary.Totals); err != nil {
		return nil, fmt.Errorf("failed to store aggregate: %w", err)
	}

	run := &domain.IngestRun{
		Source:     "stored",
		Deliveries: count,
		Boundaries: summary.Boundaries,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := s.runRepo.Insert(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

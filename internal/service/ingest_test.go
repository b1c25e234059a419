package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"boundary-tracker/internal/config"
	"boundary-tracker/internal/database"
	"boundary-tracker/internal/domain"
	"boundary-tracker/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	deliveryRepo *repository.DeliveryRepository
	ingest       *IngestService
	stats        *StatsService
}

func newTestEnv(t *testing.T, csv string) *testEnv {
	t.Helper()

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "fixture.csv")
	require.NoError(t, os.WriteFile(datasetPath, []byte(csv), 0o644))

	cfg := &config.Config{
		DBPath:      filepath.Join(dir, "test.db"),
		DatasetPath: datasetPath,
	}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	log := zerolog.Nop()
	deliveryRepo := repository.NewDeliveryRepository(db, log)
	aggRepo := repository.NewAggregateRepository(db, log)
	runRepo := repository.NewIngestRunRepository(db, log)

	return &testEnv{
		deliveryRepo: deliveryRepo,
		ingest:       NewIngestService(nil, cfg, deliveryRepo, aggRepo, runRepo, log),
		stats:        NewStatsService(aggRepo, log),
	}
}

const goodCSV = `match_id,innings,over,ball,season,runs_batter
m1,1,1,1,2020,6
m1,1,1,2,2020,0
m1,1,1,3,2020,1
`

func TestIngestRunStoresAggregate(t *testing.T) {
	env := newTestEnv(t, goodCSV)
	ctx := context.Background()

	run, err := env.ingest.Run(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, 3, run.Deliveries)
	assert.Equal(t, 1, run.Boundaries)
	assert.NotEmpty(t, run.ID)

	rows, err := env.stats.Distribution(ctx, 2020, 6)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.OutcomeDot, rows[0].Outcome)
	assert.InDelta(t, 100.0, rows[0].Percentage, 1e-9)
}

func TestIngestSkipsWhenAlreadyLoaded(t *testing.T) {
	env := newTestEnv(t, goodCSV)
	ctx := context.Background()

	first, err := env.ingest.Run(ctx, false)
	require.NoError(t, err)

	second, err := env.ingest.Run(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID, "no refresh: the previous run is returned")

	third, err := env.ingest.Run(ctx, true)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID, "refresh forces a new run")
}

func TestIngestRecomputesMissingAggregate(t *testing.T) {
	env := newTestEnv(t, goodCSV)
	ctx := context.Background()

	// Raw data present but no aggregate: the run must rebuild it from the store.
	deliveries := []domain.Delivery{
		{MatchID: "m9", Innings: 1, Over: 1, Ball: 1, Season: 2019, RunsBat: 4, ValidBall: true, CreatedAt: time.Now(), UpdatedAt: time.Now()},
		{MatchID: "m9", Innings: 1, Over: 1, Ball: 2, Season: 2019, RunsBat: 0, ValidBall: true, CreatedAt: time.Now(), UpdatedAt: time.Now()},
	}
	require.NoError(t, env.deliveryRepo.ReplaceAll(ctx, deliveries))

	run, err := env.ingest.Run(ctx, false)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "stored", run.Source)

	seasons, err := env.stats.Seasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2019}, seasons)
}

func TestIngestSurfacesDataError(t *testing.T) {
	env := newTestEnv(t, `match_id,innings,over,ball,season,runs_batter
m1,1,1,1,not-a-year,4
`)

	_, err := env.ingest.Run(context.Background(), false)
	require.Error(t, err)

	var dataErr *domain.DataError
	assert.True(t, errors.As(err, &dataErr), "loader DataError must reach the caller unwrapped")

	count, err := env.deliveryRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count, "a failed run stores nothing")
}

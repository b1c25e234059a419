package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"boundary-tracker/internal/config"
	"boundary-tracker/internal/database"
	"boundary-tracker/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleDeliveries() []domain.Delivery {
	now := time.Now().UTC().Truncate(time.Second)
	return []domain.Delivery{
		{MatchID: "m1", Innings: 1, Over: 1, Ball: 1, Season: 2020, RunsBat: 4, ValidBall: true, CreatedAt: now, UpdatedAt: now},
		{MatchID: "m1", Innings: 1, Over: 1, Ball: 2, Season: 2020, RunsBat: 0, IsWicket: true, ValidBall: true, CreatedAt: now, UpdatedAt: now},
		{MatchID: "m2", Innings: 2, Over: 5, Ball: 3, Season: 2021, RunsBat: 6, ValidBall: true, CreatedAt: now, UpdatedAt: now},
	}
}

func TestDeliveryRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeliveryRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, sampleDeliveries()))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	got, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].MatchID)
	assert.True(t, got[1].IsWicket)
	assert.Equal(t, 2021, got[2].Season)
}

func TestDeliveryRepositoryReplaceIsTotal(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeliveryRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, sampleDeliveries()))
	require.NoError(t, repo.ReplaceAll(ctx, sampleDeliveries()[:1]))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "second ingest replaces the first, not appends")
}

func TestDeliveryRepositoryRejectsDuplicateBalls(t *testing.T) {
	db := newTestDB(t)
	repo := NewDeliveryRepository(db, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAll(ctx, sampleDeliveries()))

	dup := sampleDeliveries()
	dup = append(dup, dup[0])
	err := repo.ReplaceAll(ctx, dup)
	require.Error(t, err, "a duplicated (match, innings, over, ball) must not be collapsed")

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count, "the failed replace rolls back to the previous dataset")
}

func TestAggregateRepositoryRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewAggregateRepository(db, zerolog.Nop())
	ctx := context.Background()

	rows := []domain.AggregateRow{
		{Season: 2020, BoundaryType: 4, Outcome: domain.OutcomeWicket, Count: 1, Percentage: 25},
		{Season: 2020, BoundaryType: 4, Outcome: domain.OutcomeDot, Count: 3, Percentage: 75},
		{Season: 2021, BoundaryType: 6, Outcome: domain.OutcomeSingle, Count: 2, Percentage: 100},
	}
	totals := []domain.SeasonTotal{
		{Season: 2020, Fours: 4, Sixes: 0},
		{Season: 2021, Fours: 0, Sixes: 2},
	}
	require.NoError(t, repo.Replace(ctx, rows, totals))

	dist, err := repo.GetDistribution(ctx, 2020, 4)
	require.NoError(t, err)
	require.Len(t, dist, 2)
	assert.Equal(t, domain.OutcomeDot, dist[0].Outcome, "dot sorts before wicket in the declared order")
	assert.Equal(t, domain.OutcomeWicket, dist[1].Outcome)

	seasons, err := repo.GetSeasons(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2020, 2021}, seasons)

	got, err := repo.GetTotals(ctx, 2021)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.Sixes)

	missing, err := repo.GetTotals(ctx, 1999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.GetAllRows(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 2020, all[0].Season)
	assert.Equal(t, 2021, all[2].Season)
}

func TestIngestRunRepository(t *testing.T) {
	db := newTestDB(t)
	repo := NewIngestRunRepository(db, zerolog.Nop())
	ctx := context.Background()

	empty, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)

	first := &domain.IngestRun{
		Source:     "fixture.csv",
		Deliveries: 100,
		Boundaries: 12,
		StartedAt:  time.Now().Add(-2 * time.Minute),
		FinishedAt: time.Now().Add(-1 * time.Minute),
	}
	require.NoError(t, repo.Insert(ctx, first))
	assert.NotEmpty(t, first.ID, "an id is generated when absent")

	second := &domain.IngestRun{
		Source:     "fixture.csv",
		Deliveries: 120,
		Boundaries: 15,
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
	}
	require.NoError(t, repo.Insert(ctx, second))

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 120, latest.Deliveries)
}

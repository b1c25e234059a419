package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"boundary-tracker/internal/config"
	"boundary-tracker/internal/database"
	"boundary-tracker/internal/domain"
	"boundary-tracker/internal/repository"
	"boundary-tracker/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureCSV = `match_id,innings,over,ball_no,season,runs_batter,runs_total,extra_type,is_wicket,valid_ball
m1,1,1,1,2020,6,6,,0,1
m1,1,1,2,2020,0,0,,0,1
m1,1,1,3,2020,4,4,,0,1
m1,1,1,4,2020,1,1,,0,1
m1,1,1,5,2020,4,4,,0,1
m1,1,1,6,2020,0,0,,1,1
m1,2,1,1,2020,4,4,,0,1
m2,1,1,1,2021,6,6,,0,1
m2,1,1,2,2021,2,2,,0,1
`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	datasetPath := filepath.Join(dir, "fixture.csv")
	require.NoError(t, os.WriteFile(datasetPath, []byte(fixtureCSV), 0o644))

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
	ingestSvc := service.NewIngestService(nil, cfg, deliveryRepo, aggRepo, runRepo, log)
	statsSvc := service.NewStatsService(aggRepo, log)

	srv := NewBoundaryServer(ingestSvc, statsSvc, log)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	resp, err := http.Post(ts.URL+"/api/v1/ingest", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	return ts
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestSeasonsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Seasons []int `json:"seasons"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/seasons", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []int{2020, 2021}, body.Seasons)
}

func TestOutcomesEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body struct {
		Season       int                   `json:"season"`
		BoundaryType int                   `json:"boundary_type"`
		Outcomes     []domain.AggregateRow `json:"outcomes"`
	}
	resp := getJSON(t, ts.URL+"/api/v1/outcomes?season=2020&boundary=4", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 2020 innings 1 has two 4s with successors: ball 3 -> single, ball 5 -> wicket.
	// The innings-2 four is the last recorded ball, so it stays out.
	require.Len(t, body.Outcomes, 2)
	assert.Equal(t, domain.OutcomeSingle, body.Outcomes[0].Outcome)
	assert.Equal(t, domain.OutcomeWicket, body.Outcomes[1].Outcome)
	assert.InDelta(t, 50.0, body.Outcomes[0].Percentage, 1e-9)
	assert.InDelta(t, 50.0, body.Outcomes[1].Percentage, 1e-9)
}

func TestOutcomesValidation(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts.URL+"/api/v1/outcomes?season=2020&boundary=5", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = getJSON(t, ts.URL+"/api/v1/outcomes?boundary=4", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTotalsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var totals domain.SeasonTotal
	resp := getJSON(t, ts.URL+"/api/v1/totals?season=2020", &totals)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// The last-ball four of innings 2 still counts here.
	assert.Equal(t, 3, totals.Fours)
	assert.Equal(t, 1, totals.Sixes)

	resp = getJSON(t, ts.URL+"/api/v1/totals?season=1999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCompareEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body service.SeasonComparison
	resp := getJSON(t, ts.URL+"/api/v1/compare", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "compare lives under /api/v1/outcomes/compare")

	resp = getJSON(t, ts.URL+"/api/v1/outcomes/compare?season_a=2020&season_b=2021&boundary=6", &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 2020, body.SeasonA.Season)
	assert.Equal(t, 2021, body.SeasonB.Season)
	require.Len(t, body.SeasonA.Outcomes, 1)
	assert.Equal(t, domain.OutcomeDot, body.SeasonA.Outcomes[0].Outcome)
	require.Len(t, body.SeasonB.Outcomes, 1)
	assert.Equal(t, domain.OutcomeDouble, body.SeasonB.Outcomes[0].Outcome)
	require.NotNil(t, body.SeasonB.Totals)
	assert.Equal(t, 1, body.SeasonB.Totals.Sixes)
}

func TestHealthEndpoint(t *testing.T) {
	ts := newTestServer(t)

	var body map[string]string
	resp := getJSON(t, ts.URL+"/api/v1/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

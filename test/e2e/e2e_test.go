// test/e2e/e2e_test.go
//
// Full-stack scenarios: the real HTTP server wired to a sqlmock-backed
// catalog and a miniredis-backed cache, exercising the rank pipeline end
// to end without external services.
package e2e

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livebetter/internal/catalog"
	"livebetter/internal/common/config"
	"livebetter/internal/common/logger"
	"livebetter/internal/nlparse"
	"livebetter/internal/rankcache"
	"livebetter/internal/ranking"
	"livebetter/internal/server"
)

var metroColumns = []string{
	"metro_id", "name", "state", "cbsa_code", "lat", "lon", "population",
	"median_rent_usd", "rpp_index", "eff_tax_rate", "utilities_monthly",
	"school_score", "crime_rate", "weather_score", "healthcare_score",
	"walkability_score", "air_quality_index", "commute_time_mins",
}

type stack struct {
	handler http.Handler
	mock    sqlmock.Sqlmock
	redis   *miniredis.Miniredis
}

func catalogRows() *sqlmock.Rows {
	return sqlmock.NewRows(metroColumns).
		AddRow(1, "Richmond", "VA", "40060", 37.54, -77.44, 1300000,
			1450.0, 0.95, 0.27, 165.0,
			82.0, 200.0, 55.0, 90.0, 48.0, 42.0, 24.0).
		AddRow(2, "Pittsburgh", "PA", "38300", 40.44, -79.99, 2300000,
			1250.0, 0.93, 0.27, 155.0,
			75.0, 350.0, 45.0, 88.0, 62.0, 50.0, 26.0).
		AddRow(3, "San Jose", "CA", "41940", 37.34, -121.89, 1900000,
			3200.0, 1.18, 0.30, 210.0,
			90.0, 150.0, 80.0, 92.0, 55.0, 45.0, 32.0)
}

func newStack(t *testing.T) *stack {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	log := logger.NewTestLogger(t)
	store := catalog.NewPostgresStore(db, log)
	cache := rankcache.New(&config.CacheConfig{
		Enabled:     true,
		TTLHours:    24,
		KeyPrefix:   "livebetter:rank",
		MemoryLimit: 128,
	}, rankcache.NewRedisBackend(redisClient, 200*time.Millisecond), log)

	engine := ranking.NewEngine(store, cache,
		ranking.DefaultTaxEstimator(),
		ranking.NewEssentialsCalculator(),
		ranking.NewQualityOfLifeNormalizer(800),
		nil, log, 2)
	parser := nlparse.NewParser(config.GenAIConfig{}, log)

	srv := server.New(&config.ServerConfig{Host: "127.0.0.1", Port: 0},
		engine, parser, store, cache, log)
	return &stack{handler: srv.Handler(), mock: mock, redis: mr}
}

func (s *stack) expectCatalogQuery(rows *sqlmock.Rows, populationMin int64) {
	s.mock.ExpectQuery("SELECT(.|\n)+FROM metro m").
		WithArgs(populationMin).
		WillReturnRows(rows)
}

func (s *stack) post(t *testing.T, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestRankScenario_ScoresAndCaches(t *testing.T) {
	s := newStack(t)
	s.expectCatalogQuery(catalogRows(), int64(0))

	body := `{"salary": 90000, "family_size": 2, "transport_mode": "public_transit"}`

	rec := s.post(t, "/api/rank", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ranking.RankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.CacheHit)
	require.Len(t, resp.Results, 3)

	// Affordable metros outrank the expensive one; the high-rent,
	// high-tax metro lands last.
	assert.Equal(t, int64(3), resp.Results[2].MetroID)
	for i := 0; i+1 < len(resp.Results); i++ {
		assert.GreaterOrEqual(t, resp.Results[i].Score, resp.Results[i+1].Score)
	}

	// Richmond matches the documented worked example.
	var richmond *ranking.RankResult
	for i := range resp.Results {
		if resp.Results[i].MetroID == 1 {
			richmond = &resp.Results[i]
		}
	}
	require.NotNil(t, richmond)
	assert.InDelta(t, 3540.16, richmond.DiscretionaryIncome, 0.01)
	assert.InDelta(t, 0.6216, richmond.AffordabilityScore, 0.0001)

	// Second identical request: no catalog query was queued, so a cache
	// miss would fail the test.
	rec = s.post(t, "/api/rank", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.CacheHit)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestRankScenario_SurvivesRedisOutage(t *testing.T) {
	s := newStack(t)
	s.expectCatalogQuery(catalogRows(), int64(0))

	s.redis.Close()

	rec := s.post(t, "/api/rank", `{"salary": 90000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ranking.RankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 3)

	// The in-process fallback tier still serves the repeat request.
	rec = s.post(t, "/api/rank", `{"salary": 90000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.CacheHit)
}

func TestRankScenario_BikeWalkReordersResults(t *testing.T) {
	s := newStack(t)
	s.expectCatalogQuery(catalogRows(), int64(0))

	// Pittsburgh (walkability 62) stays in; Richmond (48) is excluded below
	// the bike/walk feasibility threshold of 50.
	rec := s.post(t, "/api/rank", `{"salary": 90000, "transport_mode": "bike_walk"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ranking.RankResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	for _, result := range resp.Results {
		assert.NotEqual(t, int64(1), result.MetroID)
	}
}

func TestParseToRankScenario(t *testing.T) {
	s := newStack(t)

	rec := s.post(t, "/api/parse", `{"text": "family of 2, we make 90k, public transit"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var parsed ranking.RankRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, 90000, parsed.Salary)
	assert.Equal(t, 2, parsed.FamilySize)

	// The parsed request feeds straight back into /api/rank.
	s.expectCatalogQuery(catalogRows(), int64(0))
	payload, err := json.Marshal(parsed)
	require.NoError(t, err)

	rec = s.post(t, "/api/rank", string(payload))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestRankScenario_CatalogDownIsServiceUnavailable(t *testing.T) {
	s := newStack(t)
	s.mock.ExpectQuery("SELECT(.|\n)+FROM metro m").
		WithArgs(int64(0)).
		WillReturnError(sql.ErrConnDone)

	rec := s.post(t, "/api/rank", `{"salary": 90000}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

package ranking

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livebetter/internal/catalog"
	"livebetter/internal/common/config"
	apperrors "livebetter/internal/common/errors"
	"livebetter/internal/common/logger"
	"livebetter/internal/rankcache"
)

// fakeStore is an in-memory catalog with call counting.
type fakeStore struct {
	records          []catalog.Record
	listCalls        int
	lastPopulationMin int64
	err              error
}

func (f *fakeStore) ListMetros(_ context.Context, populationMin int64) ([]catalog.Record, error) {
	f.listCalls++
	f.lastPopulationMin = populationMin
	if f.err != nil {
		return nil, apperrors.NewCatalogUnavailableError(f.err)
	}
	var out []catalog.Record
	for _, rec := range f.records {
		if rec.Population >= populationMin {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeStore) GetMetrosByIDs(_ context.Context, ids []int64) ([]catalog.Record, error) {
	var out []catalog.Record
	for _, rec := range f.records {
		for _, id := range ids {
			if rec.ID == id {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) CountMetros(context.Context) (int, error) { return len(f.records), nil }
func (f *fakeStore) Ping(context.Context) error               { return nil }

func testMetro(id int64, state string, population int64, rent float64) catalog.Record {
	return catalog.Record{
		Metro: catalog.Metro{ID: id, Name: "Metro", State: state, Population: population},
		Costs: catalog.Costs{MedianRent: rent, RPPIndex: 1.0, UtilitiesMonthly: 150},
	}
}

func newTestEngine(t *testing.T, store catalog.Store) *Engine {
	t.Helper()
	tax, err := NewTaxEstimator(map[string][]TaxBand{
		"NC": {{UpTo: 60000, Rate: 0.21}, {UpTo: 120000, Rate: 0.27}, {Rate: 0.31}},
		"TX": {{UpTo: 60000, Rate: 0.18}, {UpTo: 120000, Rate: 0.23}, {Rate: 0.28}},
	})
	require.NoError(t, err)

	cache := rankcache.New(&config.CacheConfig{
		Enabled:     true,
		TTLHours:    1,
		KeyPrefix:   "test:rank",
		MemoryLimit: 128,
	}, nil, logger.NewNoOpLogger())

	return NewEngine(store, cache, tax,
		NewEssentialsCalculator(),
		NewQualityOfLifeNormalizer(800),
		nil, logger.NewTestLogger(t), 2)
}

func TestEngine_Rank_CacheMissThenHit(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		testMetro(1, "NC", 500000, 1450),
		testMetro(2, "TX", 800000, 1200),
	}}
	engine := newTestEngine(t, store)
	req := RankRequest{Salary: 90000}

	first, err := engine.Rank(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, 1, store.listCalls)
	require.Len(t, first.Results, 2)

	second, err := engine.Rank(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	// Served from cache; the catalog was not touched again.
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, first.Results, second.Results)
}

func TestEngine_Rank_DifferingRequestsGetDifferentCacheEntries(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{testMetro(1, "NC", 500000, 1450)}}
	engine := newTestEngine(t, store)

	_, err := engine.Rank(context.Background(), RankRequest{Salary: 90000})
	require.NoError(t, err)
	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 95000})
	require.NoError(t, err)

	assert.False(t, resp.CacheHit)
	assert.Equal(t, 2, store.listCalls)
}

func TestEngine_Rank_SortsByScoreThenMetroID(t *testing.T) {
	// Metro 3 has the cheapest rent and must rank first; metros 5 and 4 are
	// identical, so the lower id breaks the tie.
	store := &fakeStore{records: []catalog.Record{
		testMetro(5, "NC", 500000, 1800),
		testMetro(3, "NC", 500000, 900),
		testMetro(4, "NC", 500000, 1800),
	}}
	engine := newTestEngine(t, store)

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000})
	require.NoError(t, err)
	require.Len(t, resp.Results, 3)

	assert.Equal(t, int64(3), resp.Results[0].MetroID)
	assert.Equal(t, int64(4), resp.Results[1].MetroID)
	assert.Equal(t, int64(5), resp.Results[2].MetroID)
	assert.GreaterOrEqual(t, resp.Results[0].Score, resp.Results[1].Score)
	assert.Equal(t, resp.Results[1].Score, resp.Results[2].Score)
}

func TestEngine_Rank_TruncatesToLimit(t *testing.T) {
	store := &fakeStore{}
	for i := int64(1); i <= 10; i++ {
		store.records = append(store.records, testMetro(i, "NC", 500000, 1000+float64(i)*50))
	}
	engine := newTestEngine(t, store)

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestEngine_Rank_PopulationFilter(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		testMetro(1, "NC", 100000, 1450),
		testMetro(2, "NC", 900000, 1450),
	}}
	engine := newTestEngine(t, store)

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000, PopulationMin: 500000})
	require.NoError(t, err)
	assert.Equal(t, int64(500000), store.lastPopulationMin)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(2), resp.Results[0].MetroID)
}

func TestEngine_Rank_InvalidRPPExcludesOnlyThatMetro(t *testing.T) {
	bad := testMetro(1, "NC", 500000, 1450)
	bad.Costs.RPPIndex = 0
	store := &fakeStore{records: []catalog.Record{bad, testMetro(2, "NC", 500000, 1450)}}
	engine := newTestEngine(t, store)

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(2), resp.Results[0].MetroID)
}

func TestEngine_Rank_BikeWalkExcludesUnwalkableMetros(t *testing.T) {
	unwalkable := testMetro(1, "NC", 500000, 1450)
	unwalkable.QOL.WalkabilityScore = floatPtr(30)
	walkable := testMetro(2, "NC", 500000, 1450)
	walkable.QOL.WalkabilityScore = floatPtr(80)
	store := &fakeStore{records: []catalog.Record{unwalkable, walkable}}
	engine := newTestEngine(t, store)

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000, TransportMode: ModeBikeWalk})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(2), resp.Results[0].MetroID)
}

func TestEngine_Rank_MissingStateIsFatal(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{
		testMetro(1, "NC", 500000, 1450),
		testMetro(2, "ZZ", 500000, 1450),
	}}
	engine := newTestEngine(t, store)

	_, err := engine.Rank(context.Background(), RankRequest{Salary: 90000})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTaxStateNotFound))
}

func TestEngine_Rank_CatalogErrorSurfaces(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	engine := newTestEngine(t, store)

	_, err := engine.Rank(context.Background(), RankRequest{Salary: 90000})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCatalogUnavailable))
}

func TestEngine_Rank_InvalidRequest(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{})

	_, err := engine.Rank(context.Background(), RankRequest{Salary: 500})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeRequestValidationFailed))
}

func TestEngine_Rank_EmptyCatalog(t *testing.T) {
	engine := newTestEngine(t, &fakeStore{})

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.False(t, resp.CacheHit)
}

func TestEngine_Rank_HigherSalaryNeverScoresWorse(t *testing.T) {
	store := &fakeStore{records: []catalog.Record{testMetro(1, "NC", 500000, 1450)}}
	engine := newTestEngine(t, store)

	low, err := engine.Rank(context.Background(), RankRequest{Salary: 60000})
	require.NoError(t, err)
	high, err := engine.Rank(context.Background(), RankRequest{Salary: 110000})
	require.NoError(t, err)

	require.Len(t, low.Results, 1)
	require.Len(t, high.Results, 1)
	assert.GreaterOrEqual(t, high.Results[0].Score, low.Results[0].Score)
}

func TestEngine_Rank_ResultCarriesBreakdown(t *testing.T) {
	rec := testMetro(1, "NC", 500000, 1450)
	rec.Costs.RPPIndex = 0.95
	rec.Costs.UtilitiesMonthly = 165
	rec.QOL.WalkabilityScore = floatPtr(48)
	store := &fakeStore{records: []catalog.Record{rec}}
	engine := newTestEngine(t, store)

	resp, err := engine.Rank(context.Background(), RankRequest{Salary: 90000, FamilySize: 2})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)

	result := resp.Results[0]
	assert.InDelta(t, 5763.16, result.NetMonthlyAdjusted, 0.01)
	assert.InDelta(t, 1450.0, result.Essentials.Rent, 1e-9)
	assert.InDelta(t, 165.0, result.Essentials.Utilities, 1e-9)
	assert.InDelta(t, 475.0, result.Essentials.Groceries, 1e-9)
	assert.InDelta(t, 133.0, result.Essentials.Transport, 1e-9)
	assert.InDelta(t, 3540.16, result.DiscretionaryIncome, 0.01)
	assert.InDelta(t, 0.6216, result.AffordabilityScore, 0.0001)
	assert.InDelta(t, 0.6216, result.Score, 0.0001)
	require.NotNil(t, result.QualityOfLife)
	assert.Equal(t, 48.0, *result.QualityOfLife.WalkabilityScore)

	// Defaults applied to the echoed input.
	assert.Equal(t, 50, resp.Input.Limit)
	assert.Equal(t, ModePublicTransit, resp.Input.TransportMode)
}

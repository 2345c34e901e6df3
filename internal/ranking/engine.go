package ranking

import (
	"context"
	"encoding/json"
	"math"
	"runtime"
	"sort"
	"sync"
	"time"

	"livebetter/internal/catalog"
	apperrors "livebetter/internal/common/errors"
	"livebetter/internal/common/logger"
	"livebetter/internal/common/metrics"
	"livebetter/internal/common/observability"
	"livebetter/internal/rankcache"
)

// Exclusion reasons, used as metric labels.
const (
	reasonInvalidData   = "invalid_data"
	reasonTransportMode = "transport_mode"
)

// Engine orchestrates the full ranking pipeline: cache lookup, catalog
// fetch, parallel per-metro scoring, sort, truncate, cache store.
type Engine struct {
	store      catalog.Store
	cache      *rankcache.Cache
	tax        *TaxEstimator
	essentials *EssentialsCalculator
	qol        *QualityOfLifeNormalizer
	obs        *observability.Observability
	logger     logger.Logger
	workers    int
}

// NewEngine assembles the ranking engine. workers bounds the per-request
// scoring pool; non-positive means GOMAXPROCS.
func NewEngine(
	store catalog.Store,
	cache *rankcache.Cache,
	tax *TaxEstimator,
	essentials *EssentialsCalculator,
	qol *QualityOfLifeNormalizer,
	obs *observability.Observability,
	log logger.Logger,
	workers int,
) *Engine {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		store:      store,
		cache:      cache,
		tax:        tax,
		essentials: essentials,
		qol:        qol,
		obs:        obs,
		logger:     log,
		workers:    workers,
	}
}

// Rank executes the pipeline for one request. The returned response carries
// the normalized input (defaults applied) alongside the ranked results.
func (e *Engine) Rank(ctx context.Context, req RankRequest) (*RankResponse, error) {
	start := time.Now()

	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		metrics.RankRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, apperrors.NewRequestValidationFailedError(err.Error())
	}

	key, keyErr := e.cache.KeyFor(req)
	if keyErr == nil {
		if payload, found := e.cache.Get(ctx, key); found {
			var results []RankResult
			if err := json.Unmarshal(payload, &results); err == nil {
				e.observe(ctx, "success", true, start)
				return &RankResponse{Input: req, Results: results, CacheHit: true}, nil
			}
			// Undecodable entries are treated as misses and overwritten.
			e.logger.Warn("Discarding undecodable cache entry",
				map[string]interface{}{"key": key})
		}
	}

	records, err := e.store.ListMetros(ctx, req.PopulationMin)
	if err != nil {
		e.observe(ctx, "error", false, start)
		return nil, err
	}

	results, err := e.scoreAll(ctx, req, records)
	if err != nil {
		e.observe(ctx, "error", false, start)
		return nil, err
	}

	// Deterministic order: best score first, metro id breaks ties so equal
	// scores never reorder between calls.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MetroID < results[j].MetroID
	})
	if len(results) > req.Limit {
		results = results[:req.Limit]
	}

	if keyErr == nil {
		if payload, err := json.Marshal(results); err == nil {
			e.cache.Set(ctx, key, payload)
		}
	}

	e.logger.Info("Ranked metros", map[string]interface{}{
		"candidates": len(records),
		"returned":   len(results),
		"durationMs": time.Since(start).Milliseconds(),
	})
	e.observe(ctx, "success", false, start)
	return &RankResponse{Input: req, Results: results, CacheHit: false}, nil
}

// scoreAll fans the candidate metros out over a bounded worker pool. Any
// fatal error cancels the remaining work; per-metro data problems only
// exclude the affected metro.
func (e *Engine) scoreAll(ctx context.Context, req RankRequest, records []catalog.Record) ([]RankResult, error) {
	scored := make([]*RankResult, len(records))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan int)
	var wg sync.WaitGroup
	var once sync.Once
	var fatal error

	workers := e.workers
	if workers > len(records) {
		workers = len(records)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				result, reason, err := e.scoreMetro(req, records[i])
				if err != nil {
					once.Do(func() {
						fatal = err
						cancel()
					})
					return
				}
				if result == nil {
					metrics.MetrosExcluded.WithLabelValues(reason).Inc()
					continue
				}
				scored[i] = result
			}
		}()
	}

dispatch:
	for i := range records {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if fatal != nil {
		return nil, fatal
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]RankResult, 0, len(records))
	for _, r := range scored {
		if r != nil {
			results = append(results, *r)
		}
	}
	metrics.MetrosScored.Add(float64(len(results)))
	return results, nil
}

// scoreMetro runs the scoring pipeline for a single metro. A nil result
// with a reason means the metro is excluded; a non-nil error is fatal for
// the whole request.
func (e *Engine) scoreMetro(req RankRequest, rec catalog.Record) (*RankResult, string, error) {
	rate, err := e.tax.Rate(req.Salary, rec.State)
	if err != nil {
		return nil, "", err
	}

	net := NetMonthlyIncome(req.Salary, rate)
	adjusted, err := AdjustForRegion(net, rec.Costs.RPPIndex, rec.ID)
	if err != nil {
		if apperrors.IsFatal(err) {
			return nil, "", err
		}
		e.logger.Warn("Excluding metro with invalid data", map[string]interface{}{
			"metroId": rec.ID,
			"error":   err.Error(),
		})
		return nil, reasonInvalidData, nil
	}

	breakdown, excluded, multiplier, err := e.essentials.Calculate(
		adjusted, req.FamilySize, req.RentCapPct, req.TransportMode, rec.Costs, rec.QOL)
	if err != nil {
		return nil, "", err
	}
	if excluded {
		return nil, reasonTransportMode, nil
	}

	discretionary := adjusted - breakdown.Total()
	affordability := AffordabilityScore(discretionary)
	components := e.qol.Normalize(rec.QOL)
	score := CompositeScore(affordability, components, req.Weights(), multiplier)

	result := &RankResult{
		MetroID:             rec.ID,
		Name:                rec.Name,
		State:               rec.State,
		Score:               round4(score),
		AffordabilityScore:  round4(affordability),
		DiscretionaryIncome: round2(discretionary),
		Essentials: Essentials{
			Rent:      round2(breakdown.Rent),
			Utilities: round2(breakdown.Utilities),
			Groceries: round2(breakdown.Groceries),
			Transport: round2(breakdown.Transport),
		},
		NetMonthlyAdjusted: round2(adjusted),
		RPPIndex:           rec.Costs.RPPIndex,
		Population:         rec.Population,
		Coords:             Coords{Lat: rec.Lat, Lon: rec.Lon},
	}
	if rec.QOL.HasData() {
		qol := rec.QOL
		result.QualityOfLife = &qol
	}
	return result, "", nil
}

func (e *Engine) observe(ctx context.Context, outcome string, cacheHit bool, start time.Time) {
	elapsed := time.Since(start)
	metrics.RankRequestsTotal.WithLabelValues(outcome).Inc()
	metrics.RankDuration.Observe(elapsed.Seconds())
	if e.obs != nil {
		e.obs.RecordRankProcessed(ctx, outcome, cacheHit)
		e.obs.RecordRankDuration(ctx, elapsed)
	}
}

// Monetary values round to cents, scores to four places. Stable rounding
// keeps cached and freshly computed payloads byte-identical.
func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

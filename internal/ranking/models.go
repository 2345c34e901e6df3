// Package ranking implements the affordability ranking and scoring engine:
// the deterministic pipeline that converts a household profile and the
// stored metro attributes into composite scores and cost breakdowns.
package ranking

import (
	"fmt"

	"livebetter/internal/catalog"
)

// TransportMode selects the transport cost model for a request.
type TransportMode string

const (
	ModePublicTransit TransportMode = "public_transit"
	ModeCar           TransportMode = "car"
	ModeBikeWalk      TransportMode = "bike_walk"
)

// Request bounds. Requests outside these are rejected at the boundary.
const (
	MinSalary     = 10000
	MaxSalary     = 1000000
	MinFamilySize = 1
	MaxFamilySize = 10
	MinRentCapPct = 0.1
	MaxRentCapPct = 0.6
	MinLimit      = 1
	MaxLimit      = 200
	MaxWeight     = 10.0
)

// RankRequest is the caller-supplied household profile and preferences.
// Every field participates in the cache key; adding a field that affects
// output without adding it here breaks cache correctness.
type RankRequest struct {
	Salary        int           `json:"salary"`
	FamilySize    int           `json:"family_size"`
	RentCapPct    float64       `json:"rent_cap_pct"`
	PopulationMin int64         `json:"population_min"`
	Limit         int           `json:"limit"`
	TransportMode TransportMode `json:"transport_mode"`

	AffordabilityWeight float64 `json:"affordability_weight"`
	SchoolsWeight       float64 `json:"schools_weight"`
	SafetyWeight        float64 `json:"safety_weight"`
	WeatherWeight       float64 `json:"weather_weight"`
	HealthcareWeight    float64 `json:"healthcare_weight"`
	WalkabilityWeight   float64 `json:"walkability_weight"`
}

// ApplyDefaults fills zero-valued optional fields with the documented
// defaults. Salary has no default; it is required.
func (r *RankRequest) ApplyDefaults() {
	if r.FamilySize == 0 {
		r.FamilySize = 1
	}
	if r.RentCapPct == 0 {
		r.RentCapPct = 0.30
	}
	if r.Limit == 0 {
		r.Limit = 50
	}
	if r.TransportMode == "" {
		r.TransportMode = ModePublicTransit
	}
}

// Validate checks the request bounds. The HTTP layer performs schema
// validation too; this guards programmatic callers.
func (r *RankRequest) Validate() error {
	if r.Salary < MinSalary || r.Salary > MaxSalary {
		return fmt.Errorf("salary must be between %d and %d", MinSalary, MaxSalary)
	}
	if r.FamilySize < MinFamilySize || r.FamilySize > MaxFamilySize {
		return fmt.Errorf("family_size must be between %d and %d", MinFamilySize, MaxFamilySize)
	}
	if r.RentCapPct < MinRentCapPct || r.RentCapPct > MaxRentCapPct {
		return fmt.Errorf("rent_cap_pct must be between %.1f and %.1f", MinRentCapPct, MaxRentCapPct)
	}
	if r.PopulationMin < 0 {
		return fmt.Errorf("population_min must be >= 0")
	}
	if r.Limit < MinLimit || r.Limit > MaxLimit {
		return fmt.Errorf("limit must be between %d and %d", MinLimit, MaxLimit)
	}
	switch r.TransportMode {
	case ModePublicTransit, ModeCar, ModeBikeWalk:
	default:
		return fmt.Errorf("transport_mode must be one of public_transit, car, bike_walk")
	}
	for name, w := range map[string]float64{
		"affordability_weight": r.AffordabilityWeight,
		"schools_weight":       r.SchoolsWeight,
		"safety_weight":        r.SafetyWeight,
		"weather_weight":       r.WeatherWeight,
		"healthcare_weight":    r.HealthcareWeight,
		"walkability_weight":   r.WalkabilityWeight,
	} {
		if w < 0 || w > MaxWeight {
			return fmt.Errorf("%s must be between 0 and %.0f", name, MaxWeight)
		}
	}
	return nil
}

// Weights returns the QOL component weights keyed for the composite scorer.
func (r *RankRequest) Weights() Weights {
	return Weights{
		Affordability: r.AffordabilityWeight,
		Schools:       r.SchoolsWeight,
		Safety:        r.SafetyWeight,
		Weather:       r.WeatherWeight,
		Healthcare:    r.HealthcareWeight,
		Walkability:   r.WalkabilityWeight,
	}
}

// Coords is a geographic point.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Essentials is the breakdown of the four always-present monthly cost
// categories, in USD. All values are >= 0.
type Essentials struct {
	Rent      float64 `json:"rent"`
	Utilities float64 `json:"utilities"`
	Groceries float64 `json:"groceries"`
	Transport float64 `json:"transport"`
}

// Total returns the sum of all essential cost categories.
func (e Essentials) Total() float64 {
	return e.Rent + e.Utilities + e.Groceries + e.Transport
}

// RankResult is one metro's scored outcome.
type RankResult struct {
	MetroID             int64                  `json:"metro_id"`
	Name                string                 `json:"name"`
	State               string                 `json:"state"`
	Score               float64                `json:"score"`
	AffordabilityScore  float64                `json:"affordability_score"`
	DiscretionaryIncome float64                `json:"discretionary_income"`
	Essentials          Essentials             `json:"essentials"`
	NetMonthlyAdjusted  float64                `json:"net_monthly_adjusted"`
	RPPIndex            float64                `json:"rpp_index"`
	Population          int64                  `json:"population,omitempty"`
	Coords              Coords                 `json:"coords"`
	QualityOfLife       *catalog.QualityOfLife `json:"quality_of_life,omitempty"`
}

// RankResponse is the full outcome of one Rank call.
type RankResponse struct {
	Input    RankRequest  `json:"input"`
	Results  []RankResult `json:"results"`
	CacheHit bool         `json:"cache_hit"`
}

// Package catalog provides read-only access to the metro reference data
// maintained by the ETL pipeline. The ranking core never mutates it.
package catalog

import "context"

// Metro identifies one metropolitan area.
type Metro struct {
	ID         int64   `json:"metro_id"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	CBSACode   string  `json:"cbsa_code"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	Population int64   `json:"population"`
}

// Costs holds the per-metro cost attributes, one-to-one with Metro.
type Costs struct {
	MedianRent       float64 `json:"median_rent_usd"`
	RPPIndex         float64 `json:"rpp_index"`
	EffectiveTaxRate float64 `json:"eff_tax_rate"`
	UtilitiesMonthly float64 `json:"utilities_monthly"`
}

// QualityOfLife holds the optional per-metro quality-of-life metrics.
// Any field may be absent; absence is represented by a nil pointer, never
// by a sentinel value.
type QualityOfLife struct {
	SchoolScore      *float64 `json:"school_score,omitempty"`
	CrimeRate        *float64 `json:"crime_rate,omitempty"`
	WeatherScore     *float64 `json:"weather_score,omitempty"`
	HealthcareScore  *float64 `json:"healthcare_score,omitempty"`
	WalkabilityScore *float64 `json:"walkability_score,omitempty"`
	AirQualityIndex  *float64 `json:"air_quality_index,omitempty"`
	CommuteTimeMins  *float64 `json:"commute_time_mins,omitempty"`
}

// HasData reports whether any quality-of-life metric is present.
func (q QualityOfLife) HasData() bool {
	return q.SchoolScore != nil || q.CrimeRate != nil || q.WeatherScore != nil ||
		q.HealthcareScore != nil || q.WalkabilityScore != nil ||
		q.AirQualityIndex != nil || q.CommuteTimeMins != nil
}

// Record is one joined catalog row: a metro with its costs and QOL data.
type Record struct {
	Metro
	Costs Costs
	QOL   QualityOfLife
}

// Store is the read-only catalog interface consumed by the ranking core.
type Store interface {
	// ListMetros returns all metros with population >= populationMin,
	// joined with their cost and quality-of-life data.
	ListMetros(ctx context.Context, populationMin int64) ([]Record, error)
	// GetMetrosByIDs returns the rows for the given metro ids; unknown ids
	// are absent from the result.
	GetMetrosByIDs(ctx context.Context, ids []int64) ([]Record, error)
	// CountMetros returns the total number of metros in the catalog.
	CountMetros(ctx context.Context) (int, error)
	// Ping checks catalog connectivity.
	Ping(ctx context.Context) error
}

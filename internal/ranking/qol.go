package ranking

import (
	"math"

	"livebetter/internal/catalog"
)

// neutralComponent substitutes for any absent QOL metric. Keeping absent
// metrics in the weighted average at a neutral value keeps total-weight
// semantics stable instead of silently reweighting the remaining factors.
const neutralComponent = 0.5

// ComponentScores are the normalized [0,1] quality-of-life components.
type ComponentScores struct {
	Schools     float64
	Safety      float64
	Weather     float64
	Healthcare  float64
	Walkability float64
}

// QualityOfLifeNormalizer maps each raw QOL metric onto [0,1].
// CrimeRateCeiling is the fixed reference cap used to invert crime_rate;
// rates at or above the ceiling floor the safety score at 0.
type QualityOfLifeNormalizer struct {
	CrimeRateCeiling float64
}

func NewQualityOfLifeNormalizer(crimeRateCeiling float64) *QualityOfLifeNormalizer {
	return &QualityOfLifeNormalizer{CrimeRateCeiling: crimeRateCeiling}
}

// Normalize converts the raw metrics to component scores, substituting the
// neutral default for absent fields at this boundary so the scoring math
// never sees missing data.
func (n *QualityOfLifeNormalizer) Normalize(qol catalog.QualityOfLife) ComponentScores {
	return ComponentScores{
		Schools:     scaleHundred(qol.SchoolScore),
		Safety:      n.safety(qol.CrimeRate),
		Weather:     scaleHundred(qol.WeatherScore),
		Healthcare:  scaleHundred(qol.HealthcareScore),
		Walkability: scaleHundred(qol.WalkabilityScore),
	}
}

func (n *QualityOfLifeNormalizer) safety(crimeRate *float64) float64 {
	if crimeRate == nil {
		return neutralComponent
	}
	capped := math.Min(*crimeRate, n.CrimeRateCeiling)
	return clamp01(1.0 - capped/n.CrimeRateCeiling)
}

func scaleHundred(v *float64) float64 {
	if v == nil {
		return neutralComponent
	}
	return clamp01(*v / 100.0)
}

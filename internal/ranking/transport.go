package ranking

import (
	"fmt"

	"livebetter/internal/catalog"
)

// Base monthly transport costs per mode (single person, pre-RPP scaling).
const (
	transitBaseSingle        = 100.0
	transitPerAdditional     = 40.0
	transitWalkableDiscount  = 0.85 // walkability > 65
	transitUnwalkablePenalty = 1.30 // walkability < 45

	carBaseSingle         = 450.0
	carPerAdditional      = 100.0
	carLongCommutePenalty = 1.10 // commute > 35 min

	bikeWalkFlat          = 50.0
	bikeWalkMinScore      = 50.0 // metros below this are excluded outright
	bikeWalkBoostScore    = 75.0
	bikeWalkBoostFactor   = 1.15
)

// TransportCostModel is the per-mode strategy for the transport line item.
// Each mode carries its own cost formula, an exclusion rule, and an optional
// multiplier applied to the final composite score (not the transport cost).
type TransportCostModel interface {
	Mode() TransportMode
	// MonthlyCost returns the monthly transport cost in USD.
	MonthlyCost(familySize int, rppIndex float64, qol catalog.QualityOfLife) float64
	// Excludes reports whether the metro is an infeasible lifestyle fit for
	// this mode and must be dropped from the result set entirely.
	Excludes(qol catalog.QualityOfLife) bool
	// CompositeMultiplier returns the factor applied to the metro's final
	// composite score. 1.0 means no adjustment.
	CompositeMultiplier(qol catalog.QualityOfLife) float64
}

type publicTransitModel struct{}

func (publicTransitModel) Mode() TransportMode { return ModePublicTransit }

func (publicTransitModel) MonthlyCost(familySize int, rppIndex float64, qol catalog.QualityOfLife) float64 {
	base := (transitBaseSingle + transitPerAdditional*float64(familySize-1)) * rppIndex
	// Missing walkability, or walkability in [45,65], is neutral.
	if qol.WalkabilityScore != nil {
		switch {
		case *qol.WalkabilityScore > 65:
			base *= transitWalkableDiscount
		case *qol.WalkabilityScore < 45:
			base *= transitUnwalkablePenalty
		}
	}
	return base
}

func (publicTransitModel) Excludes(catalog.QualityOfLife) bool           { return false }
func (publicTransitModel) CompositeMultiplier(catalog.QualityOfLife) float64 { return 1.0 }

type carModel struct{}

func (carModel) Mode() TransportMode { return ModeCar }

func (carModel) MonthlyCost(familySize int, rppIndex float64, qol catalog.QualityOfLife) float64 {
	base := (carBaseSingle + carPerAdditional*float64(familySize-1)) * rppIndex
	if qol.CommuteTimeMins != nil && *qol.CommuteTimeMins > 35 {
		base *= carLongCommutePenalty
	}
	return base
}

func (carModel) Excludes(catalog.QualityOfLife) bool           { return false }
func (carModel) CompositeMultiplier(catalog.QualityOfLife) float64 { return 1.0 }

type bikeWalkModel struct{}

func (bikeWalkModel) Mode() TransportMode { return ModeBikeWalk }

func (bikeWalkModel) MonthlyCost(_ int, rppIndex float64, _ catalog.QualityOfLife) float64 {
	return bikeWalkFlat * rppIndex
}

// Excludes drops metros with a known walkability below the feasibility
// threshold. The datum must be present to exclude; absent data never does.
func (bikeWalkModel) Excludes(qol catalog.QualityOfLife) bool {
	return qol.WalkabilityScore != nil && *qol.WalkabilityScore < bikeWalkMinScore
}

func (bikeWalkModel) CompositeMultiplier(qol catalog.QualityOfLife) float64 {
	if qol.WalkabilityScore != nil && *qol.WalkabilityScore > bikeWalkBoostScore {
		return bikeWalkBoostFactor
	}
	return 1.0
}

var transportModels = map[TransportMode]TransportCostModel{
	ModePublicTransit: publicTransitModel{},
	ModeCar:           carModel{},
	ModeBikeWalk:      bikeWalkModel{},
}

// TransportModelFor returns the cost model registered for mode.
func TransportModelFor(mode TransportMode) (TransportCostModel, error) {
	model, ok := transportModels[mode]
	if !ok {
		return nil, fmt.Errorf("no transport cost model for mode %q", mode)
	}
	return model, nil
}

package ranking

import (
	"math"

	"livebetter/internal/catalog"
)

// Base monthly grocery costs (single person, scaled by family size and RPP).
const (
	groceriesBaseSingle    = 350.0
	groceriesPerAdditional = 150.0
)

// EssentialsCalculator computes the monthly cost breakdown for a household
// in a metro. Transport dispatches on the request's transport mode through
// the registered TransportCostModel.
type EssentialsCalculator struct{}

func NewEssentialsCalculator() *EssentialsCalculator {
	return &EssentialsCalculator{}
}

// Calculate returns the essentials breakdown for a household with the given
// RPP-adjusted monthly income. excluded is true when the transport mode
// deems the metro an infeasible fit; the metro is then dropped, not scored.
// scoreMultiplier is the mode's adjustment to the final composite score.
func (c *EssentialsCalculator) Calculate(
	adjustedIncome float64,
	familySize int,
	rentCapPct float64,
	mode TransportMode,
	costs catalog.Costs,
	qol catalog.QualityOfLife,
) (breakdown Essentials, excluded bool, scoreMultiplier float64, err error) {
	model, err := TransportModelFor(mode)
	if err != nil {
		return Essentials{}, false, 0, err
	}

	if model.Excludes(qol) {
		return Essentials{}, true, 0, nil
	}

	// A household never overspends its stated rent ceiling, even when the
	// metro median is higher.
	rent := math.Min(costs.MedianRent, rentCapPct*adjustedIncome)

	breakdown = Essentials{
		Rent: rent,
		// Utilities are already regional; no RPP scaling.
		Utilities: costs.UtilitiesMonthly,
		Groceries: baseGroceries(familySize) * costs.RPPIndex,
		Transport: model.MonthlyCost(familySize, costs.RPPIndex, qol),
	}

	return breakdown, false, model.CompositeMultiplier(qol), nil
}

func baseGroceries(familySize int) float64 {
	return groceriesBaseSingle + groceriesPerAdditional*float64(familySize-1)
}

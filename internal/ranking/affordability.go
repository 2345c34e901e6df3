package ranking

// Linear normalization anchors for the affordability score: a discretionary
// income of -$500/month maps to 0 and $6,000/month maps to 1.
const (
	affordabilityFloor = -500.0
	affordabilityRange = 6500.0
)

// AffordabilityScore maps monthly discretionary income onto [0,1] with a
// fixed linear normalization. It never adapts to the candidate set: two
// calls with identical inputs always produce identical scores regardless of
// what other metros are in the batch.
func AffordabilityScore(discretionaryIncome float64) float64 {
	return clamp01((discretionaryIncome - affordabilityFloor) / affordabilityRange)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

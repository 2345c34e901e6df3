package ranking

// Weights are the caller-supplied component weights, each in [0,10].
type Weights struct {
	Affordability float64
	Schools       float64
	Safety        float64
	Weather       float64
	Healthcare    float64
	Walkability   float64
}

// Total returns the sum of all weights.
func (w Weights) Total() float64 {
	return w.Affordability + w.Schools + w.Safety + w.Weather + w.Healthcare + w.Walkability
}

// CompositeScore blends the affordability score and the QOL component
// scores into one [0,1] score using the caller's weights. All-zero weights
// fail safe to pure affordability rather than dividing by zero. The
// transport mode's multiplier (e.g. the bike/walk walkability boost) is
// applied last, then the result is re-clamped.
func CompositeScore(affordability float64, components ComponentScores, w Weights, multiplier float64) float64 {
	total := w.Total()

	var composite float64
	if total == 0 {
		composite = affordability
	} else {
		weighted := affordability*w.Affordability +
			components.Schools*w.Schools +
			components.Safety*w.Safety +
			components.Weather*w.Weather +
			components.Healthcare*w.Healthcare +
			components.Walkability*w.Walkability
		composite = weighted / total
	}

	return clamp01(composite * multiplier)
}

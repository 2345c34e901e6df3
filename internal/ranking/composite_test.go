package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompositeScore(t *testing.T) {
	components := ComponentScores{
		Schools:     0.8,
		Safety:      0.6,
		Weather:     0.5,
		Healthcare:  0.9,
		Walkability: 0.4,
	}

	tests := []struct {
		name          string
		affordability float64
		weights       Weights
		multiplier    float64
		expected      float64
	}{
		{
			name:          "all-zero weights fail safe to affordability",
			affordability: 0.6216,
			weights:       Weights{},
			multiplier:    1.0,
			expected:      0.6216,
		},
		{
			name:          "single affordability weight is the identity",
			affordability: 0.7,
			weights:       Weights{Affordability: 10},
			multiplier:    1.0,
			expected:      0.7,
		},
		{
			name:          "equal weights average the components",
			affordability: 0.5,
			weights:       Weights{Affordability: 1, Schools: 1, Safety: 1, Weather: 1, Healthcare: 1, Walkability: 1},
			multiplier:    1.0,
			// (0.5+0.8+0.6+0.5+0.9+0.4)/6
			expected: 3.7 / 6.0,
		},
		{
			name:          "weighting is proportional, not absolute",
			affordability: 1.0,
			weights:       Weights{Affordability: 6, Schools: 4},
			multiplier:    1.0,
			// (1.0*6 + 0.8*4)/10
			expected: 0.92,
		},
		{
			name:          "multiplier boosts the blended score",
			affordability: 0.6,
			weights:       Weights{Affordability: 10},
			multiplier:    1.15,
			expected:      0.69,
		},
		{
			name:          "boosted score re-clamps to one",
			affordability: 0.95,
			weights:       Weights{Affordability: 10},
			multiplier:    1.15,
			expected:      1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := CompositeScore(tt.affordability, components, tt.weights, tt.multiplier)
			assert.InDelta(t, tt.expected, score, 1e-9)
		})
	}
}

func TestCompositeScore_ScaledWeightsAreEquivalent(t *testing.T) {
	components := ComponentScores{Schools: 0.8, Safety: 0.6, Weather: 0.5, Healthcare: 0.9, Walkability: 0.4}
	a := CompositeScore(0.62, components, Weights{Affordability: 1, Schools: 1}, 1.0)
	b := CompositeScore(0.62, components, Weights{Affordability: 5, Schools: 5}, 1.0)
	assert.InDelta(t, a, b, 1e-12)
}

func TestWeightsTotal(t *testing.T) {
	w := Weights{Affordability: 10, Schools: 2, Safety: 3}
	assert.Equal(t, 15.0, w.Total())
	assert.Equal(t, 0.0, Weights{}.Total())
}

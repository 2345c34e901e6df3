package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRankRequest_ApplyDefaults(t *testing.T) {
	req := RankRequest{Salary: 90000}
	req.ApplyDefaults()

	assert.Equal(t, 1, req.FamilySize)
	assert.Equal(t, 0.30, req.RentCapPct)
	assert.Equal(t, 50, req.Limit)
	assert.Equal(t, ModePublicTransit, req.TransportMode)
	// Defaults never overwrite provided values.
	req2 := RankRequest{Salary: 90000, FamilySize: 4, Limit: 10, TransportMode: ModeCar}
	req2.ApplyDefaults()
	assert.Equal(t, 4, req2.FamilySize)
	assert.Equal(t, 10, req2.Limit)
	assert.Equal(t, ModeCar, req2.TransportMode)
}

func TestRankRequest_Validate(t *testing.T) {
	valid := func() RankRequest {
		req := RankRequest{Salary: 90000}
		req.ApplyDefaults()
		return req
	}

	tests := []struct {
		name    string
		mutate  func(*RankRequest)
		wantErr bool
	}{
		{"valid defaults", func(*RankRequest) {}, false},
		{"salary below floor", func(r *RankRequest) { r.Salary = 9999 }, true},
		{"salary above ceiling", func(r *RankRequest) { r.Salary = 1000001 }, true},
		{"salary at floor", func(r *RankRequest) { r.Salary = 10000 }, false},
		{"family size too large", func(r *RankRequest) { r.FamilySize = 11 }, true},
		{"rent cap below minimum", func(r *RankRequest) { r.RentCapPct = 0.05 }, true},
		{"rent cap above maximum", func(r *RankRequest) { r.RentCapPct = 0.7 }, true},
		{"negative population filter", func(r *RankRequest) { r.PopulationMin = -1 }, true},
		{"limit above maximum", func(r *RankRequest) { r.Limit = 201 }, true},
		{"unknown transport mode", func(r *RankRequest) { r.TransportMode = "hoverboard" }, true},
		{"negative weight", func(r *RankRequest) { r.SafetyWeight = -1 }, true},
		{"weight above maximum", func(r *RankRequest) { r.SchoolsWeight = 10.5 }, true},
		{"weight at maximum", func(r *RankRequest) { r.WalkabilityWeight = 10 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(&req)
			err := req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEssentialsTotal(t *testing.T) {
	e := Essentials{Rent: 1450, Utilities: 165, Groceries: 475, Transport: 133}
	assert.InDelta(t, 2223.0, e.Total(), 1e-9)
}

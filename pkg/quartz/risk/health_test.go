package risk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateHealth(t *testing.T) {
	for _, tc := range []struct {
		name            string
		totalCollateral int64
		marginReq       uint64
		expected        uint8
	}{
		{"no collateral", 0, 100, 0},
		{"negative collateral", -500, 100, 0},
		{"no liabilities", 1_000_000, 0, 100},
		{"requirement above buffered collateral", 100, 95, 0},
		{"requirement equals buffered collateral", 1_000, 900, 0},
		{"half of buffered collateral", 1_000, 450, 50},
		{"healthy", 10_000_000, 900_000, 90},
		{"huge collateral", math.MaxInt64, 1, 99},
	} {
		t.Run(tc.name, func(t *testing.T) {
			health := CalculateHealth(MarginCalculation{
				TotalCollateral:   tc.totalCollateral,
				MarginRequirement: tc.marginReq,
			})
			assert.Equal(t, tc.expected, health)
		})
	}
}

func TestCalculateHealthMonotonicInRequirement(t *testing.T) {
	prev := uint8(100)
	for marginReq := uint64(0); marginReq <= 1_000; marginReq += 50 {
		health := CalculateHealth(MarginCalculation{
			TotalCollateral:   1_000,
			MarginRequirement: marginReq,
		})
		assert.LessOrEqual(t, health, prev, "margin requirement %d", marginReq)
		prev = health
	}
}

func TestCanAutoRepay(t *testing.T) {
	assert.False(t, CanAutoRepay(MarginCalculation{TotalCollateral: 1_000, MarginRequirement: 999}))
	assert.False(t, CanAutoRepay(MarginCalculation{TotalCollateral: 1_000, MarginRequirement: 1_000}))
	assert.True(t, CanAutoRepay(MarginCalculation{TotalCollateral: 1_000, MarginRequirement: 1_001}))
	assert.True(t, CanAutoRepay(MarginCalculation{TotalCollateral: -1, MarginRequirement: 0}))
}

// Package risk implements margin health and oracle price validation for
// collateral repay.
package risk

import (
	"math/bits"
)

const (
	// AccountHealthBufferPercent is shaved off total collateral before health
	// is computed, so accounts read as unhealthy before the venue would
	// actually liquidate them.
	AccountHealthBufferPercent = 10

	// CollateralRepayMaxHealthPercent caps the health an account may reach
	// through a collateral repay. Repaying beyond this is swapping collateral
	// rather than covering a loan.
	CollateralRepayMaxHealthPercent = 30
)

// MarginCalculation is the lending venue's margin snapshot for an account.
type MarginCalculation struct {
	TotalCollateral   int64
	MarginRequirement uint64
}

// MeetsMarginRequirement reports whether the account has sufficient
// collateral for its open liabilities.
func (c MarginCalculation) MeetsMarginRequirement() bool {
	return c.TotalCollateral >= 0 && uint64(c.TotalCollateral) >= c.MarginRequirement
}

// CanAutoRepay reports whether the account is under margin and therefore
// eligible for a collateral repay.
func CanAutoRepay(c MarginCalculation) bool {
	return !c.MeetsMarginRequirement()
}

// CalculateHealth maps a margin calculation onto a 0 to 100 health score.
//
// Collateral is first reduced by AccountHealthBufferPercent. Health is the
// percentage of the buffered collateral left after covering the margin
// requirement, clamping at 0 when the requirement exceeds it.
func CalculateHealth(c MarginCalculation) uint8 {
	if c.TotalCollateral <= 0 {
		return 0
	}
	if c.MarginRequirement == 0 {
		return 100
	}

	adjustedTotalCollateral := mulDiv(uint64(c.TotalCollateral), 100-AccountHealthBufferPercent, 100)
	if c.MarginRequirement > adjustedTotalCollateral {
		return 0
	}

	return uint8(mulDiv(adjustedTotalCollateral-c.MarginRequirement, 100, adjustedTotalCollateral))
}

// mulDiv computes value * numerator / denominator with a 128 bit
// intermediate, so collateral values near the int64 ceiling don't overflow.
func mulDiv(value, numerator, denominator uint64) uint64 {
	hi, lo := bits.Mul64(value, numerator)
	quo, _ := bits.Div64(hi, lo, denominator)
	return quo
}

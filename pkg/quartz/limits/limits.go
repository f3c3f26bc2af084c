// Package limits implements the per transaction and per timeframe spend
// limits enforced against a vault.
package limits

import (
	"github.com/pkg/errors"

	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

var (
	ErrInsufficientTransactionSpendLimit = errors.New("amount exceeds per transaction spend limit")
	ErrInsufficientTimeframeSpendLimit   = errors.New("amount exceeds remaining timeframe spend limit")
	ErrMathOverflow                      = errors.New("math overflow")
	ErrInvalidTimestamp                  = errors.New("invalid timestamp")
	ErrInvalidTimeframe                  = errors.New("invalid timeframe")
)

// Consume debits amount from the vault's spend limits at the provided unix
// timestamp, mutating the vault's remaining limit and window bookkeeping.
//
// If one or more timeframes have fully elapsed, the reset timestamp is
// advanced by a whole number of timeframes so windows stay aligned to the
// owner's configured schedule, and the remaining limit refills before the
// debit is applied. The vault is only mutated when the spend is allowed.
func Consume(vault *quartz.Vault, amount uint64, now int64) error {
	if now <= 0 {
		return ErrInvalidTimestamp
	}
	currentTimestamp := uint64(now)

	// A zero timeframe is a misconfigured vault, not a limit breach
	if vault.TimeframeInSeconds == 0 {
		return ErrInvalidTimeframe
	}

	if vault.SpendLimitPerTransaction < amount {
		return errors.Wrapf(
			ErrInsufficientTransactionSpendLimit,
			"limit %d, requested %d",
			vault.SpendLimitPerTransaction, amount,
		)
	}

	nextReset := vault.NextTimeframeResetTimestamp
	remaining := vault.RemainingSpendLimitPerTimeframe

	if currentTimestamp >= nextReset {
		overflow := currentTimestamp - nextReset
		overflowInTimeframes := overflow / vault.TimeframeInSeconds

		secondsToAdd, ok := checkedMul(overflowInTimeframes+1, vault.TimeframeInSeconds)
		if !ok {
			return ErrMathOverflow
		}

		nextReset, ok = checkedAdd(nextReset, secondsToAdd)
		if !ok {
			return ErrMathOverflow
		}
		remaining = vault.SpendLimitPerTimeframe
	}

	if remaining < amount {
		return errors.Wrapf(
			ErrInsufficientTimeframeSpendLimit,
			"remaining %d, requested %d",
			remaining, amount,
		)
	}

	vault.NextTimeframeResetTimestamp = nextReset
	vault.RemainingSpendLimitPerTimeframe = remaining - amount

	return nil
}

func checkedMul(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	product := a * b
	if product/a != b {
		return 0, false
	}
	return product, true
}

func checkedAdd(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

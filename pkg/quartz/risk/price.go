package risk

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
)

// CollateralRepayMaxSlippageBps bounds how far below oracle value a swap may
// fill before the repay is rejected.
const CollateralRepayMaxSlippageBps = 100

// maxPriceExponentDifference bounds the exponent gap between two oracle
// feeds. Pyth feeds sit within a few decimal places of each other; a larger
// gap means a corrupt or mismatched feed.
const maxPriceExponentDifference = 12

var (
	ErrStaleOraclePrice     = errors.New("oracle price is too old")
	ErrNegativeOraclePrice  = errors.New("oracle price is zero or negative")
	ErrInvalidPriceExponent = errors.New("invalid oracle price exponent")
	ErrMaxSlippageExceeded  = errors.New("swap exceeds max slippage")
)

// OraclePrice is a confidence-banded price report from an oracle feed.
type OraclePrice struct {
	Price       int64
	Conf        uint64
	Exponent    int32
	PublishTime int64
}

// LowestPrice returns the worst case price for an asset being received,
// the low end of the confidence interval.
func (p OraclePrice) LowestPrice() (uint64, error) {
	if p.Price <= 0 {
		return 0, ErrNegativeOraclePrice
	}
	if p.Conf > uint64(p.Price) {
		return 0, ErrNegativeOraclePrice
	}
	return uint64(p.Price) - p.Conf, nil
}

// HighestPrice returns the worst case price for an asset being given up,
// the high end of the confidence interval.
func (p OraclePrice) HighestPrice() (uint64, error) {
	if p.Price <= 0 {
		return 0, ErrNegativeOraclePrice
	}
	return uint64(p.Price) + p.Conf, nil
}

// ValidateFreshness rejects prices published more than maxAgeSeconds before
// now.
func (p OraclePrice) ValidateFreshness(now int64, maxAgeSeconds uint64) error {
	if p.PublishTime+int64(maxAgeSeconds) < now {
		return errors.Wrapf(ErrStaleOraclePrice, "published at %d, now %d", p.PublishTime, now)
	}
	return nil
}

// NormalizePriceExponents scales two prices onto a common exponent so their
// raw values are directly comparable. The side with fewer implied decimals,
// the algebraically greater exponent, is multiplied up to the other side's
// scale, so no precision is lost.
func NormalizePriceExponents(priceA uint64, exponentA int32, priceB uint64, exponentB int32) (*big.Int, *big.Int, error) {
	exponentDifference := int64(exponentA) - int64(exponentB)
	if exponentDifference < -maxPriceExponentDifference || exponentDifference > maxPriceExponentDifference {
		return nil, nil, errors.Wrapf(ErrInvalidPriceExponent, "exponents %d and %d", exponentA, exponentB)
	}

	normalizedA := new(big.Int).SetUint64(priceA)
	normalizedB := new(big.Int).SetUint64(priceB)

	if exponentDifference > 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(exponentDifference), nil)
		normalizedA.Mul(normalizedA, scale)
	} else if exponentDifference < 0 {
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(-exponentDifference), nil)
		normalizedB.Mul(normalizedB, scale)
	}

	return normalizedA, normalizedB, nil
}

// ValidatePrices checks that the value deposited by a collateral repay swap
// covers the value withdrawn, within CollateralRepayMaxSlippageBps.
//
// The deposit leg is priced at the low end of its confidence interval and the
// withdraw leg at the high end, so uncertainty always counts against the
// caller.
func ValidatePrices(
	depositAmount uint64,
	withdrawAmount uint64,
	depositPrice OraclePrice,
	withdrawPrice OraclePrice,
	depositMarket *markets.Market,
	withdrawMarket *markets.Market,
	now int64,
) error {
	return validatePrices(
		depositAmount,
		withdrawAmount,
		depositPrice,
		withdrawPrice,
		depositMarket,
		withdrawMarket,
		now,
		CollateralRepayMaxSlippageBps,
	)
}

func validatePrices(
	depositAmount uint64,
	withdrawAmount uint64,
	depositPrice OraclePrice,
	withdrawPrice OraclePrice,
	depositMarket *markets.Market,
	withdrawMarket *markets.Market,
	now int64,
	slippageBps int64,
) error {
	if err := depositPrice.ValidateFreshness(now, depositMarket.PythMaxAgeSeconds); err != nil {
		return err
	}
	depositLowestPrice, err := depositPrice.LowestPrice()
	if err != nil {
		return err
	}

	if err := withdrawPrice.ValidateFreshness(now, withdrawMarket.PythMaxAgeSeconds); err != nil {
		return err
	}
	withdrawHighestPrice, err := withdrawPrice.HighestPrice()
	if err != nil {
		return err
	}

	depositPriceNormalized, withdrawPriceNormalized, err := NormalizePriceExponents(
		depositLowestPrice,
		depositPrice.Exponent,
		withdrawHighestPrice,
		withdrawPrice.Exponent,
	)
	if err != nil {
		return err
	}

	// Cross-multiply by the opposite market's base units so both sides share
	// token decimals.
	depositAmountNormalized := new(big.Int).Mul(
		new(big.Int).SetUint64(depositAmount),
		new(big.Int).SetUint64(withdrawMarket.BaseUnitsPerToken),
	)
	withdrawAmountNormalized := new(big.Int).Mul(
		new(big.Int).SetUint64(withdrawAmount),
		new(big.Int).SetUint64(depositMarket.BaseUnitsPerToken),
	)

	depositValue := depositAmountNormalized.Mul(depositAmountNormalized, depositPriceNormalized)
	withdrawValue := withdrawAmountNormalized.Mul(withdrawAmountNormalized, withdrawPriceNormalized)

	// Integer multiplication instead of floating point for the slippage
	// allowance. 100% x 100bps.
	depositCheckValue := new(big.Int).Mul(depositValue, big.NewInt(100*100))
	withdrawCheckValue := new(big.Int).Mul(withdrawValue, big.NewInt(100*100-slippageBps))

	if depositCheckValue.Cmp(withdrawCheckValue) < 0 {
		return errors.Wrapf(
			ErrMaxSlippageExceeded,
			"deposit value %s below withdraw value %s",
			depositValue, withdrawValue,
		)
	}

	return nil
}

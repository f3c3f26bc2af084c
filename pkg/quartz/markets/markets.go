// Package markets defines the static table of lending markets supported as
// vault collateral.
package markets

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

var ErrInvalidMarket = errors.New("invalid market index")

var (
	UsdcMint = mustBase58Decode("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	WsolMint = mustBase58Decode("So11111111111111111111111111111111111111112")
)

const (
	PythFeedSolUsd  = "0xef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"
	PythFeedUsdcUsd = "0xeaa020c61cc479712813461ce153894a96a6c00b21ed0cfc2798d1f9a9e9c94a"
)

const lamportsPerSol = 1_000_000_000

// Market describes a single lending market a vault can hold balances in.
type Market struct {
	MarketIndex       uint16
	Mint              ed25519.PublicKey
	PythFeed          string
	PythMaxAgeSeconds uint64
	BaseUnitsPerToken uint64
}

var all = []*Market{
	{
		MarketIndex:       0,
		Mint:              UsdcMint,
		PythFeed:          PythFeedUsdcUsd,
		PythMaxAgeSeconds: 60,
		BaseUnitsPerToken: 1_000_000,
	},
	{
		MarketIndex:       1,
		Mint:              WsolMint,
		PythFeed:          PythFeedSolUsd,
		PythMaxAgeSeconds: 30,
		BaseUnitsPerToken: lamportsPerSol,
	},
}

// GetMarket returns the market registered at the provided index.
func GetMarket(marketIndex uint16) (*Market, error) {
	for _, market := range all {
		if market.MarketIndex == marketIndex {
			return market, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidMarket, "market index %d", marketIndex)
}

// GetMarketByMint returns the market whose collateral token matches the
// provided mint.
func GetMarketByMint(mint ed25519.PublicKey) (*Market, error) {
	for _, market := range all {
		if market.Mint.Equal(mint) {
			return market, nil
		}
	}
	return nil, errors.Wrap(ErrInvalidMarket, "unknown mint")
}

// AllMarkets returns every registered market in index order.
func AllMarkets() []*Market {
	markets := make([]*Market, len(all))
	copy(markets, all)
	return markets
}

func mustBase58Decode(value string) ed25519.PublicKey {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return ed25519.PublicKey(decoded)
}

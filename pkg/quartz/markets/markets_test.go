package markets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMarket(t *testing.T) {
	usdc, err := GetMarket(0)
	require.NoError(t, err)
	assert.Equal(t, UsdcMint, usdc.Mint)
	assert.EqualValues(t, 1_000_000, usdc.BaseUnitsPerToken)
	assert.EqualValues(t, 60, usdc.PythMaxAgeSeconds)

	wsol, err := GetMarket(1)
	require.NoError(t, err)
	assert.Equal(t, WsolMint, wsol.Mint)
	assert.EqualValues(t, lamportsPerSol, wsol.BaseUnitsPerToken)
	assert.EqualValues(t, 30, wsol.PythMaxAgeSeconds)

	_, err = GetMarket(2)
	assert.ErrorIs(t, err, ErrInvalidMarket)
}

func TestGetMarketByMint(t *testing.T) {
	market, err := GetMarketByMint(WsolMint)
	require.NoError(t, err)
	assert.EqualValues(t, 1, market.MarketIndex)

	_, err = GetMarketByMint(UsdcMint[:31])
	assert.ErrorIs(t, err, ErrInvalidMarket)
}

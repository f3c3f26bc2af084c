package quartz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithdrawOrderAccountRoundTrip(t *testing.T) {
	order := &WithdrawOrder{
		Lock: TimeLock{
			Owner:        generateKey(t),
			IsOwnerPayer: true,
			ReleaseSlot:  123_456,
		},

		AmountBaseUnits: 1_000_000_000,
		MarketIndex:     1,
		ReduceOnly:      true,
		Destination:     generateKey(t),
	}

	marshalled := order.Marshal()
	require.Len(t, marshalled, WithdrawOrderAccountSize)

	var unmarshalled WithdrawOrder
	require.NoError(t, unmarshalled.Unmarshal(marshalled))
	assert.Equal(t, order, &unmarshalled)

	var invalid WithdrawOrder
	assert.Error(t, invalid.Unmarshal(marshalled[:WithdrawOrderAccountSize-1]))
}

func TestSpendLimitsOrderAccountRoundTrip(t *testing.T) {
	order := &SpendLimitsOrder{
		Lock: TimeLock{
			Owner:       generateKey(t),
			ReleaseSlot: 123_456,
		},

		SpendLimitPerTransaction:    250_000,
		SpendLimitPerTimeframe:      1_000_000,
		TimeframeInSeconds:          86_400,
		NextTimeframeResetTimestamp: 1_750_000_000,
	}

	marshalled := order.Marshal()
	require.Len(t, marshalled, SpendLimitsOrderAccountSize)

	var unmarshalled SpendLimitsOrder
	require.NoError(t, unmarshalled.Unmarshal(marshalled))
	assert.Equal(t, order, &unmarshalled)
}

func TestSpendHoldAccountRoundTrip(t *testing.T) {
	order := &SpendHold{
		Lock: TimeLock{
			Owner:       generateKey(t),
			ReleaseSlot: 123_456,
		},

		AmountBaseUnits: 400_000,
		SpendFee:        true,
	}

	marshalled := order.Marshal()
	require.Len(t, marshalled, SpendHoldAccountSize)

	var unmarshalled SpendHold
	require.NoError(t, unmarshalled.Unmarshal(marshalled))
	assert.Equal(t, order, &unmarshalled)

	// One record type can't be parsed as another
	var wrongType SpendLimitsOrder
	assert.Error(t, wrongType.Unmarshal(marshalled))
}

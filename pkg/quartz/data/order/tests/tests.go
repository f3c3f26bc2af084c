package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/database/query"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
)

func RunTests(t *testing.T, s order.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s order.Store){
		testHappyPath,
		testSingleUse,
		testGetAllByOwner,
		testGetAllReleased,
		testGetCountByState,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s order.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := &order.Record{
			Address:   "withdraw_order",
			OrderType: order.TypeWithdraw,

			Owner:        "owner",
			IsOwnerPayer: true,
			ReleaseSlot:  1_000,

			AmountBaseUnits: 2_500_000,
			MarketIndex:     1,
			ReduceOnly:      true,
			Destination:     "destination",
		}
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, order.ErrOrderNotFound, err)

		require.NoError(t, s.Put(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)
		assert.Equal(t, order.StateInitiated, actual.OrderState)

		err = s.Put(ctx, cloned)
		assert.Equal(t, order.ErrOrderAlreadyExists, err)

		require.NoError(t, s.MarkFulfilled(ctx, expected.Address))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assert.Equal(t, order.StateFulfilled, actual.OrderState)
	})
}

func testSingleUse(t *testing.T, s order.Store) {
	t.Run("testSingleUse", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, &order.Record{
			Address:   "spend_limits_order",
			OrderType: order.TypeSpendLimits,
			Owner:     "owner",

			SpendLimitPerTransaction: 500_000,
			SpendLimitPerTimeframe:   1_000_000,
			TimeframeInSeconds:       86_400,
		}))

		require.NoError(t, s.MarkCancelled(ctx, "spend_limits_order"))

		// A closed order can't transition again in either direction
		assert.Equal(t, order.ErrInvalidOrderState, s.MarkCancelled(ctx, "spend_limits_order"))
		assert.Equal(t, order.ErrInvalidOrderState, s.MarkFulfilled(ctx, "spend_limits_order"))

		assert.Equal(t, order.ErrOrderNotFound, s.MarkFulfilled(ctx, "missing_order"))
	})
}

func testGetAllByOwner(t *testing.T, s order.Store) {
	t.Run("testGetAllByOwner", func(t *testing.T) {
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Put(ctx, &order.Record{
				Address:     fmt.Sprintf("order%d", i),
				OrderType:   order.TypeWithdraw,
				Owner:       "owner",
				Destination: "destination",
			}))
		}
		require.NoError(t, s.Put(ctx, &order.Record{
			Address:   "other_order",
			OrderType: order.TypeSpendHold,
			Owner:     "other_owner",
		}))

		records, err := s.GetAllByOwner(ctx, "owner")
		require.NoError(t, err)
		assert.Len(t, records, 3)

		_, err = s.GetAllByOwner(ctx, "unknown_owner")
		assert.Equal(t, order.ErrOrderNotFound, err)
	})
}

func testGetAllReleased(t *testing.T, s order.Store) {
	t.Run("testGetAllReleased", func(t *testing.T) {
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			require.NoError(t, s.Put(ctx, &order.Record{
				Address:     fmt.Sprintf("order%d", i),
				OrderType:   order.TypeWithdraw,
				Owner:       "owner",
				Destination: "destination",
				ReleaseSlot: uint64(100 * (i + 1)),
			}))
		}

		// Nothing released yet
		_, err := s.GetAllReleased(ctx, 99, query.EmptyCursor, 10, query.Ascending)
		assert.Equal(t, order.ErrOrderNotFound, err)

		// Release boundary is inclusive
		records, err := s.GetAllReleased(ctx, 300, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 3)

		// Fulfilled orders drop out of the scan
		require.NoError(t, s.MarkFulfilled(ctx, records[0].Address))
		records, err = s.GetAllReleased(ctx, 300, query.EmptyCursor, 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 2)

		// Paging by cursor
		records, err = s.GetAllReleased(ctx, 500, query.EmptyCursor, 2, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 2)

		records, err = s.GetAllReleased(ctx, 500, query.ToCursor(records[1].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, records, 2)
	})
}

func testGetCountByState(t *testing.T, s order.Store) {
	t.Run("testGetCountByState", func(t *testing.T) {
		ctx := context.Background()

		for i := 0; i < 4; i++ {
			require.NoError(t, s.Put(ctx, &order.Record{
				Address:   fmt.Sprintf("order%d", i),
				OrderType: order.TypeSpendHold,
				Owner:     "owner",
			}))
		}
		require.NoError(t, s.MarkFulfilled(ctx, "order0"))
		require.NoError(t, s.MarkCancelled(ctx, "order1"))

		count, err := s.GetCountByState(ctx, order.StateInitiated)
		require.NoError(t, err)
		assert.EqualValues(t, 2, count)

		count, err = s.GetCountByState(ctx, order.StateFulfilled)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		count, err = s.GetCountByState(ctx, order.StateCancelled)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *order.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.OrderType, obj2.OrderType)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.IsOwnerPayer, obj2.IsOwnerPayer)
	assert.Equal(t, obj1.ReleaseSlot, obj2.ReleaseSlot)
	assert.Equal(t, obj1.AmountBaseUnits, obj2.AmountBaseUnits)
	assert.Equal(t, obj1.MarketIndex, obj2.MarketIndex)
	assert.Equal(t, obj1.ReduceOnly, obj2.ReduceOnly)
	assert.Equal(t, obj1.Destination, obj2.Destination)
	assert.Equal(t, obj1.SpendLimitPerTransaction, obj2.SpendLimitPerTransaction)
	assert.Equal(t, obj1.SpendLimitPerTimeframe, obj2.SpendLimitPerTimeframe)
	assert.Equal(t, obj1.TimeframeInSeconds, obj2.TimeframeInSeconds)
	assert.Equal(t, obj1.NextTimeframeResetTimestamp, obj2.NextTimeframeResetTimestamp)
	assert.Equal(t, obj1.SpendFee, obj2.SpendFee)
}

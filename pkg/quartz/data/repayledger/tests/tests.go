package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
)

func RunTests(t *testing.T, s repayledger.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s repayledger.Store){
		testHappyPath,
		testPutDuplicate,
		testSaveMissing,
		testDelete,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s repayledger.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		start := time.Now()

		ctx := context.Background()

		expected := &repayledger.Record{
			Address: "ledger",
			Owner:   "owner",
		}
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, repayledger.ErrLedgerNotFound, err)

		require.NoError(t, s.Put(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.True(t, expected.LastUpdatedAt.After(start))

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		// Record the balance snapshots and save

		expected.Deposit = 1_000_000
		expected.Withdraw = 50_000_000
		cloned = expected.Clone()

		require.NoError(t, s.Save(ctx, expected))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)
	})
}

func testPutDuplicate(t *testing.T, s repayledger.Store) {
	t.Run("testPutDuplicate", func(t *testing.T) {
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, &repayledger.Record{
			Address: "ledger",
			Owner:   "owner",
		}))

		err := s.Put(ctx, &repayledger.Record{
			Address: "ledger",
			Owner:   "other_owner",
		})
		assert.Equal(t, repayledger.ErrLedgerAlreadyExists, err)
	})
}

func testSaveMissing(t *testing.T, s repayledger.Store) {
	t.Run("testSaveMissing", func(t *testing.T) {
		ctx := context.Background()

		err := s.Save(ctx, &repayledger.Record{
			Address: "missing_ledger",
			Owner:   "owner",
		})
		assert.Equal(t, repayledger.ErrLedgerNotFound, err)
	})
}

func testDelete(t *testing.T, s repayledger.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		record := &repayledger.Record{
			Address: "ledger",
			Owner:   "owner",
		}
		require.NoError(t, s.Put(ctx, record))

		require.NoError(t, s.Delete(ctx, record.Address))

		_, err := s.GetByAddress(ctx, record.Address)
		assert.Equal(t, repayledger.ErrLedgerNotFound, err)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		// Deleting again is a no-op
		require.NoError(t, s.Delete(ctx, record.Address))
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *repayledger.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.Deposit, obj2.Deposit)
	assert.Equal(t, obj1.Withdraw, obj2.Withdraw)
}

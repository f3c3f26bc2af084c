package tests

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
)

func RunTests(t *testing.T, s vault.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s vault.Store){
		testHappyPath,
		testPutDuplicate,
		testSaveMissing,
		testDelete,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s vault.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		start := time.Now()

		ctx := context.Background()

		expected := &vault.Record{
			Address: "vault",
			Bump:    255,
			Owner:   "owner",

			SpendLimitPerTransaction:        1_000_000,
			SpendLimitPerTimeframe:          5_000_000,
			RemainingSpendLimitPerTimeframe: 5_000_000,
			NextTimeframeResetTimestamp:     1_750_086_400,
			TimeframeInSeconds:              86_400,
		}
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, vault.ErrVaultNotFound, err)

		require.NoError(t, s.Put(ctx, expected))
		assert.True(t, expected.Id > 0)
		assert.True(t, expected.LastUpdatedAt.After(start))

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		actual, err = s.GetByOwner(ctx, expected.Owner)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		// Debit the spend limit window and save

		expected.RemainingSpendLimitPerTimeframe = 4_200_000
		cloned = expected.Clone()

		require.NoError(t, s.Save(ctx, expected))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)
	})
}

func testPutDuplicate(t *testing.T, s vault.Store) {
	t.Run("testPutDuplicate", func(t *testing.T) {
		ctx := context.Background()

		record := &vault.Record{
			Address: "vault",
			Owner:   "owner",
		}

		require.NoError(t, s.Put(ctx, record))

		err := s.Put(ctx, &vault.Record{
			Address: "vault",
			Owner:   "other_owner",
		})
		assert.Equal(t, vault.ErrVaultAlreadyExists, err)
	})
}

func testSaveMissing(t *testing.T, s vault.Store) {
	t.Run("testSaveMissing", func(t *testing.T) {
		ctx := context.Background()

		err := s.Save(ctx, &vault.Record{
			Address: "missing_vault",
			Owner:   "owner",
		})
		assert.Equal(t, vault.ErrVaultNotFound, err)
	})
}

func testDelete(t *testing.T, s vault.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		record := &vault.Record{
			Address: "vault",
			Owner:   "owner",
		}
		require.NoError(t, s.Put(ctx, record))

		require.NoError(t, s.Delete(ctx, record.Address))

		_, err := s.GetByAddress(ctx, record.Address)
		assert.Equal(t, vault.ErrVaultNotFound, err)

		count, err := s.Count(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		// Deleting again is a no-op
		require.NoError(t, s.Delete(ctx, record.Address))
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *vault.Record) {
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Bump, obj2.Bump)
	assert.Equal(t, obj1.Owner, obj2.Owner)
	assert.Equal(t, obj1.SpendLimitPerTransaction, obj2.SpendLimitPerTransaction)
	assert.Equal(t, obj1.SpendLimitPerTimeframe, obj2.SpendLimitPerTimeframe)
	assert.Equal(t, obj1.RemainingSpendLimitPerTimeframe, obj2.RemainingSpendLimitPerTimeframe)
	assert.Equal(t, obj1.NextTimeframeResetTimestamp, obj2.NextTimeframeResetTimestamp)
	assert.Equal(t, obj1.TimeframeInSeconds, obj2.TimeframeInSeconds)
}

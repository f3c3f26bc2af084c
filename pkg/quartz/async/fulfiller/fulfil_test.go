package async_fulfiller

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"sync"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	memory_order "github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order/memory"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/rate"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

type fakeSlotObserver uint64

func (f fakeSlotObserver) CurrentSlot() uint64 {
	return uint64(f)
}

type captureSubmitter struct {
	mu      sync.Mutex
	batches []*engine.Batch
}

func (s *captureSubmitter) Submit(_ context.Context, batch *engine.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches = append(s.batches, batch)
	return nil
}

func (s *captureSubmitter) findByDiscriminator(t *testing.T, discriminator []byte) *engine.Batch {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, batch := range s.batches {
		if bytes.HasPrefix(batch.Instructions[0].Data, discriminator) {
			return batch
		}
	}

	require.Fail(t, "no submitted batch matches the discriminator")
	return nil
}

type denyingLimiter struct {
}

func (d *denyingLimiter) Allow(key string) (bool, error) {
	return false, nil
}

type testEnv struct {
	ctx       context.Context
	orders    order.Store
	submitter *captureSubmitter
	caller    ed25519.PublicKey
	service   *service
}

func setup(t *testing.T, currentSlot uint64, conf Config, limiter rate.Limiter) *testEnv {
	orders := memory_order.New()
	submitter := &captureSubmitter{}

	caller, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	conf.Caller = caller

	return &testEnv{
		ctx:       context.Background(),
		orders:    orders,
		submitter: submitter,
		caller:    caller,
		service:   New(conf, orders, fakeSlotObserver(currentSlot), submitter, limiter).(*service),
	}
}

func generateAddress(t *testing.T) (ed25519.PublicKey, string) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, base58.Encode(pub)
}

func TestFulfiller_FulfilsReleasedOrders(t *testing.T) {
	env := setup(t, 1_000, Config{}, nil)

	owner, encodedOwner := generateAddress(t)
	destination, encodedDestination := generateAddress(t)
	_, withdrawOrderAddress := generateAddress(t)
	_, spendLimitsOrderAddress := generateAddress(t)
	_, pendingOrderAddress := generateAddress(t)

	require.NoError(t, env.orders.Put(env.ctx, &order.Record{
		Address:      withdrawOrderAddress,
		OrderType:    order.TypeWithdraw,
		Owner:        encodedOwner,
		IsOwnerPayer: true,
		ReleaseSlot:  500,

		AmountBaseUnits: 1_000_000_000,
		MarketIndex:     1,
		Destination:     encodedDestination,
	}))
	require.NoError(t, env.orders.Put(env.ctx, &order.Record{
		Address:     spendLimitsOrderAddress,
		OrderType:   order.TypeSpendLimits,
		Owner:       encodedOwner,
		ReleaseSlot: 1_000,

		SpendLimitPerTransaction: 100_000,
		SpendLimitPerTimeframe:   500_000,
		TimeframeInSeconds:       86_400,
	}))
	require.NoError(t, env.orders.Put(env.ctx, &order.Record{
		Address:     pendingOrderAddress,
		OrderType:   order.TypeWithdraw,
		Owner:       encodedOwner,
		ReleaseSlot: 2_000,

		AmountBaseUnits: 500_000,
		Destination:     encodedDestination,
	}))

	require.NoError(t, env.service.fulfilReleasedOrders(env.ctx))
	require.Len(t, env.submitter.batches, 2)

	vault, _, err := quartz.GetVaultAddress(owner)
	require.NoError(t, err)

	mule, _, err := quartz.GetWithdrawMuleAddress(owner, markets.WsolMint)
	require.NoError(t, err)

	depositAddress, _, err := quartz.GetDepositAddress(vault)
	require.NoError(t, err)

	sharedRentPayer, _, err := quartz.GetTimeLockRentPayerAddress()
	require.NoError(t, err)

	withdrawOrder, err := base58.Decode(withdrawOrderAddress)
	require.NoError(t, err)

	withdrawBatch := env.submitter.findByDiscriminator(t, quartz.FulfilWithdrawInstructionDiscriminator)
	require.Len(t, withdrawBatch.Instructions, 1)
	require.Equal(t, quartz.NewFulfilWithdrawInstruction(&quartz.FulfilWithdrawInstructionAccounts{
		Caller:            env.caller,
		Owner:             owner,
		Vault:             vault,
		WithdrawOrder:     withdrawOrder,
		TimeLockRentPayer: owner,
		Mule:              mule,
		Mint:              markets.WsolMint,
		Destination:       destination,
		DepositAddress:    depositAddress,
	}), withdrawBatch.Instructions[0])

	spendLimitsOrder, err := base58.Decode(spendLimitsOrderAddress)
	require.NoError(t, err)

	spendLimitsBatch := env.submitter.findByDiscriminator(t, quartz.FulfilSpendLimitsInstructionDiscriminator)
	require.Len(t, spendLimitsBatch.Instructions, 1)
	require.Equal(t, quartz.NewFulfilSpendLimitsInstruction(&quartz.FulfilSpendLimitsInstructionAccounts{
		Caller:            env.caller,
		Owner:             owner,
		Vault:             vault,
		SpendLimitsOrder:  spendLimitsOrder,
		TimeLockRentPayer: sharedRentPayer,
	}), spendLimitsBatch.Instructions[0])
}

func TestFulfiller_PagesThroughReleasedOrders(t *testing.T) {
	env := setup(t, 1_000, Config{BatchSize: 1}, nil)

	_, encodedOwner := generateAddress(t)
	for i := 0; i < 3; i++ {
		_, orderAddress := generateAddress(t)

		require.NoError(t, env.orders.Put(env.ctx, &order.Record{
			Address:     orderAddress,
			OrderType:   order.TypeSpendLimits,
			Owner:       encodedOwner,
			ReleaseSlot: 100,
		}))
	}

	require.NoError(t, env.service.fulfilReleasedOrders(env.ctx))
	require.Len(t, env.submitter.batches, 3)
}

func TestFulfiller_SkipsSpendHolds(t *testing.T) {
	env := setup(t, 1_000, Config{}, nil)

	_, encodedOwner := generateAddress(t)
	_, orderAddress := generateAddress(t)

	require.NoError(t, env.orders.Put(env.ctx, &order.Record{
		Address:     orderAddress,
		OrderType:   order.TypeSpendHold,
		Owner:       encodedOwner,
		ReleaseSlot: 100,

		AmountBaseUnits: 250_000,
		SpendFee:        true,
	}))

	require.NoError(t, env.service.fulfilReleasedOrders(env.ctx))
	require.Empty(t, env.submitter.batches)
}

func TestFulfiller_RateLimited(t *testing.T) {
	env := setup(t, 1_000, Config{}, &denyingLimiter{})

	_, encodedOwner := generateAddress(t)
	_, orderAddress := generateAddress(t)

	require.NoError(t, env.orders.Put(env.ctx, &order.Record{
		Address:     orderAddress,
		OrderType:   order.TypeSpendLimits,
		Owner:       encodedOwner,
		ReleaseSlot: 100,
	}))

	require.NoError(t, env.service.fulfilReleasedOrders(env.ctx))
	require.Empty(t, env.submitter.batches)
}

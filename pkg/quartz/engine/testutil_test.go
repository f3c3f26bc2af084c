package engine_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	memory_order "github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order/memory"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
	memory_ledger "github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger/memory"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
	memory_vault "github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault/memory"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	memory_env "github.com/quartz-labs/quartz-protocol/pkg/quartz/engine/memory"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/risk"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/jupiter"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

const (
	testStartSlot = 1_000
	testStartTime = 1_700_000_000
)

type testHarness struct {
	ctx context.Context

	env *memory_env.Env

	vaults  vault.Store
	orders  order.Store
	ledgers repayledger.Store

	spendCaller ed25519.PublicKey

	engine *engine.Engine
}

func newTestHarness(t *testing.T) *testHarness {
	env := memory_env.New()
	env.SetClock(testStartSlot, testStartTime)

	h := &testHarness{
		ctx: context.Background(),

		env: env,

		vaults:  memory_vault.New(),
		orders:  memory_order.New(),
		ledgers: memory_ledger.New(),

		spendCaller: generateKey(t),
	}

	h.engine = engine.New(
		engine.Config{SpendCaller: h.spendCaller},
		h.env,
		h.vaults,
		h.orders,
		h.ledgers,
	)
	return h
}

func (h *testHarness) submit(ixns ...solana.Instruction) error {
	return h.engine.ExecuteBatch(h.ctx, &engine.Batch{Instructions: ixns})
}

type testUser struct {
	owner ed25519.PublicKey
	vault ed25519.PublicKey
}

func (h *testHarness) defaultSpendLimits() *quartz.SpendLimitsArgs {
	return &quartz.SpendLimitsArgs{
		SpendLimitPerTransaction:    500_000,
		SpendLimitPerTimeframe:      1_000_000,
		TimeframeInSeconds:          86_400,
		NextTimeframeResetTimestamp: uint64(h.env.CurrentTime()) + 86_400,
	}
}

func (h *testHarness) createUser(t *testing.T, args *quartz.SpendLimitsArgs) *testUser {
	owner := generateKey(t)
	vaultAddress, _, err := quartz.GetVaultAddress(owner)
	require.NoError(t, err)

	ixn := quartz.NewInitUserInstruction(&quartz.InitUserInstructionAccounts{
		Owner: owner,
		Vault: vaultAddress,
	}, args)
	require.NoError(t, h.submit(ixn))

	return &testUser{
		owner: owner,
		vault: vaultAddress,
	}
}

func (h *testHarness) createTokenAccount(t *testing.T, authority, mint ed25519.PublicKey, balance uint64) ed25519.PublicKey {
	account := generateKey(t)
	h.env.CreateTokenAccount(account, mint, authority, balance)
	return account
}

func (h *testHarness) deposit(t *testing.T, user *testUser, marketIndex uint16, source ed25519.PublicKey, amount uint64) {
	market, err := markets.GetMarket(marketIndex)
	require.NoError(t, err)

	mule, _, err := quartz.GetWithdrawMuleAddress(user.owner, market.Mint)
	require.NoError(t, err)

	ixn := quartz.NewDepositInstruction(&quartz.DepositInstructionAccounts{
		Owner:    user.owner,
		Vault:    user.vault,
		OwnerSpl: source,
		Mule:     mule,
		Mint:     market.Mint,
	}, &quartz.BalanceInstructionArgs{
		AmountBaseUnits: amount,
		MarketIndex:     marketIndex,
	})
	require.NoError(t, h.submit(ixn))
}

func (h *testHarness) setFreshPrices(t *testing.T, usdcPrice, solPrice int64) {
	h.env.SetPrice(markets.PythFeedUsdcUsd, risk.OraclePrice{
		Price:       usdcPrice,
		Exponent:    -8,
		PublishTime: h.env.CurrentTime(),
	})
	h.env.SetPrice(markets.PythFeedSolUsd, risk.OraclePrice{
		Price:       solPrice,
		Exponent:    -8,
		PublishTime: h.env.CurrentTime(),
	})
}

// newSwapInstruction builds a minimal whitelisted router swap. The route plan
// is empty, leaving just the discriminator and the fixed argument tail.
func newSwapInstruction(t *testing.T, authority, source, destination, sourceMint, destinationMint ed25519.PublicKey, outAmount uint64, platformFeeBps uint8) solana.Instruction {
	data := make([]byte, 8+8+8+2+1)
	copy(data, jupiter.ExactOutRouteInstructionDiscriminator)
	binary.LittleEndian.PutUint64(data[8:], outAmount)
	data[len(data)-1] = platformFeeBps

	accounts := []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(generateKey(t), false),
		solana.NewReadonlyAccountMeta(authority, true),
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(destination, false),
		solana.NewAccountMeta(generateKey(t), false),
		solana.NewReadonlyAccountMeta(sourceMint, false),
		solana.NewReadonlyAccountMeta(destinationMint, false),
	}
	for len(accounts) < 11 {
		accounts = append(accounts, solana.NewReadonlyAccountMeta(generateKey(t), false))
	}

	return solana.NewInstruction(jupiter.PROGRAM_ID, data, accounts...)
}

func sharedRentPayer(t *testing.T) ed25519.PublicKey {
	address, _, err := quartz.GetTimeLockRentPayerAddress()
	require.NoError(t, err)
	return address
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub
}

func encode(key ed25519.PublicKey) string {
	return base58.Encode(key)
}

package engine_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/risk"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

const (
	// $1 and $125 at the usual pyth exponent
	usdcPrice = 100_000_000
	solPrice  = 12_500_000_000
)

// repayQuartet builds a [start, swap, deposit, withdraw] group that repays a
// USDC borrow by selling wSOL collateral.
func (h *testHarness) repayQuartet(t *testing.T, user *testUser, caller, callerUsdc, callerWsol ed25519.PublicKey, outAmount uint64, platformFeeBps uint8) []solana.Instruction {
	ledger, _, err := quartz.GetCollateralRepayLedgerAddress(user.owner)
	require.NoError(t, err)

	usdcMule, _, err := quartz.GetRepayMuleAddress(user.vault, markets.UsdcMint)
	require.NoError(t, err)

	wsolMule, _, err := quartz.GetRepayMuleAddress(user.vault, markets.WsolMint)
	require.NoError(t, err)

	driftUser := generateKey(t)

	start := quartz.NewStartCollateralRepayInstruction(&quartz.StartCollateralRepayInstructionAccounts{
		Caller:            caller,
		CallerDepositSpl:  callerUsdc,
		CallerWithdrawSpl: callerWsol,
		Owner:             user.owner,
		Vault:             user.vault,
		Ledger:            ledger,
	})

	swap := newSwapInstruction(t, caller, callerWsol, callerUsdc, markets.WsolMint, markets.UsdcMint, outAmount, platformFeeBps)

	deposit := quartz.NewDepositCollateralRepayInstruction(&quartz.DepositCollateralRepayInstructionAccounts{
		Caller:    caller,
		CallerSpl: callerUsdc,
		Owner:     user.owner,
		Vault:     user.vault,
		Mule:      usdcMule,
		Mint:      markets.UsdcMint,
		DriftUser: driftUser,
		Ledger:    ledger,
	}, &quartz.CollateralRepayInstructionArgs{MarketIndex: 0})

	withdraw := quartz.NewWithdrawCollateralRepayInstruction(&quartz.WithdrawCollateralRepayInstructionAccounts{
		Caller:              caller,
		CallerSpl:           callerWsol,
		Owner:               user.owner,
		Vault:               user.vault,
		Mule:                wsolMule,
		Mint:                markets.WsolMint,
		DriftUser:           driftUser,
		DepositPriceUpdate:  generateKey(t),
		WithdrawPriceUpdate: generateKey(t),
		Ledger:              ledger,
	}, &quartz.CollateralRepayInstructionArgs{MarketIndex: 1})

	return []solana.Instruction{start, swap, deposit, withdraw}
}

// setupBorrower creates a user holding 1 SOL of collateral against a 50 USDC
// borrow, fresh oracle prices, and a swap venue quoted at fair value.
func (h *testHarness) setupBorrower(t *testing.T) *testUser {
	user := h.createUser(t, h.defaultSpendLimits())
	h.env.SetPosition(user.vault, 0, 0, 50_000_000)
	h.env.SetPosition(user.vault, 1, 1_000_000_000, 0)
	h.setFreshPrices(t, usdcPrice, solPrice)

	// 0.4 SOL sold covers the 50 USDC repay at $125 per SOL
	h.env.SwapInAmount = 400_000_000
	return user
}

func unhealthyThenRecovered(recovered risk.MarginCalculation) func(ed25519.PublicKey, uint16, uint16) (risk.MarginCalculation, error) {
	calls := 0
	return func(ed25519.PublicKey, uint16, uint16) (risk.MarginCalculation, error) {
		calls++
		if calls == 1 {
			return risk.MarginCalculation{TotalCollateral: 50, MarginRequirement: 100}, nil
		}
		return recovered, nil
	}
}

func TestEngine_CollateralRepay_Bot(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	// Under margin before, health 11 after
	h.env.MarginFunc = unhealthyThenRecovered(risk.MarginCalculation{TotalCollateral: 100, MarginRequirement: 80})

	bot := generateKey(t)
	botUsdc := h.createTokenAccount(t, bot, markets.UsdcMint, 0)
	botWsol := h.createTokenAccount(t, bot, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, bot, botUsdc, botWsol, 50_000_000, 0)
	require.NoError(t, h.submit(quartet...))

	// The borrow is repaid out of the sold collateral
	_, borrowed := h.env.GetPosition(user.vault, 0)
	assert.EqualValues(t, 0, borrowed)

	deposited, _ := h.env.GetPosition(user.vault, 1)
	assert.EqualValues(t, 600_000_000, deposited)

	// The bot is reimbursed exactly what the swap consumed
	balance, err := h.env.TokenBalance(botWsol)
	require.NoError(t, err)
	assert.EqualValues(t, 400_000_000, balance)

	balance, err = h.env.TokenBalance(botUsdc)
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)

	// The balance ledger is consumed and its rent goes to the bot
	count, err := h.ledgers.Count(h.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	assert.Equal(t, 3, h.env.RentRefundCount(bot))
}

func TestEngine_CollateralRepay_Owner(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	// The owner can rebalance a healthy account. No margin gate applies.
	h.env.MarginFunc = func(ed25519.PublicKey, uint16, uint16) (risk.MarginCalculation, error) {
		t.Fatal("margin should not be consulted for an owner repay")
		return risk.MarginCalculation{}, nil
	}

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 50_000_000, 0)
	require.NoError(t, h.submit(quartet...))

	_, borrowed := h.env.GetPosition(user.vault, 0)
	assert.EqualValues(t, 0, borrowed)
}

func TestEngine_CollateralRepay_ThresholdNotReached(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	// A healthy position cannot be force repaid
	h.env.MarginFunc = func(ed25519.PublicKey, uint16, uint16) (risk.MarginCalculation, error) {
		return risk.MarginCalculation{TotalCollateral: 100, MarginRequirement: 50}, nil
	}

	bot := generateKey(t)
	botUsdc := h.createTokenAccount(t, bot, markets.UsdcMint, 0)
	botWsol := h.createTokenAccount(t, bot, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, bot, botUsdc, botWsol, 50_000_000, 0)
	assert.Equal(t, engine.ErrAutoRepayThresholdNotReached, h.submit(quartet...))

	// The batch left nothing behind
	count, err := h.ledgers.Count(h.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)

	balance, err := h.env.TokenBalance(botWsol)
	require.NoError(t, err)
	assert.EqualValues(t, 400_000_000, balance)

	_, borrowed := h.env.GetPosition(user.vault, 0)
	assert.EqualValues(t, 50_000_000, borrowed)
}

func TestEngine_CollateralRepay_TooMuchSold(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)
	h.env.MarginFunc = unhealthyThenRecovered(risk.MarginCalculation{TotalCollateral: 1_000, MarginRequirement: 100})

	bot := generateKey(t)
	botUsdc := h.createTokenAccount(t, bot, markets.UsdcMint, 0)
	botWsol := h.createTokenAccount(t, bot, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, bot, botUsdc, botWsol, 50_000_000, 0)
	assert.Equal(t, engine.ErrAutoRepayTooMuchSold, h.submit(quartet...))

	// The swap had already executed. Everything is rolled back.
	balance, err := h.env.TokenBalance(botWsol)
	require.NoError(t, err)
	assert.EqualValues(t, 400_000_000, balance)

	_, borrowed := h.env.GetPosition(user.vault, 0)
	assert.EqualValues(t, 50_000_000, borrowed)
}

func TestEngine_CollateralRepay_NotEnoughSold(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)
	h.env.MarginFunc = unhealthyThenRecovered(risk.MarginCalculation{TotalCollateral: 100, MarginRequirement: 95})

	bot := generateKey(t)
	botUsdc := h.createTokenAccount(t, bot, markets.UsdcMint, 0)
	botWsol := h.createTokenAccount(t, bot, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, bot, botUsdc, botWsol, 50_000_000, 0)
	assert.Equal(t, engine.ErrAutoRepayNotEnoughSold, h.submit(quartet...))
}

func TestEngine_CollateralRepay_Slippage(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	// Selling $50 of collateral for $45 of repay is outside the allowed
	// slippage
	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 45_000_000, 0)
	assert.ErrorIs(t, h.submit(quartet...), risk.ErrMaxSlippageExceeded)
}

func TestEngine_CollateralRepay_StalePrice(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)
	h.env.SetPrice(markets.PythFeedSolUsd, risk.OraclePrice{
		Price:       solPrice,
		Exponent:    -8,
		PublishTime: h.env.CurrentTime() - 31,
	})

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 50_000_000, 0)
	assert.ErrorIs(t, h.submit(quartet...), risk.ErrStaleOraclePrice)
}

func TestEngine_CollateralRepay_MissingSiblings(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 50_000_000, 0)

	// Any member without its three siblings at the fixed offsets is rejected
	for _, ixn := range []solana.Instruction{quartet[0], quartet[2], quartet[3]} {
		assert.Equal(t, engine.ErrInstructionOrderViolation, h.submit(ixn))
	}
}

func TestEngine_CollateralRepay_WrongOrder(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 50_000_000, 0)
	shuffled := []solana.Instruction{quartet[0], quartet[2], quartet[1], quartet[3]}
	assert.Equal(t, engine.ErrInstructionOrderViolation, h.submit(shuffled...))
}

func TestEngine_CollateralRepay_PlatformFee(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 50_000_000, 1)
	assert.Equal(t, engine.ErrInstructionOrderViolation, h.submit(quartet...))
}

func TestEngine_CollateralRepay_SwapAccountMismatch(t *testing.T) {
	h := newTestHarness(t)

	user := h.setupBorrower(t)

	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 0)
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 400_000_000)

	quartet := h.repayQuartet(t, user, user.owner, ownerUsdc, ownerWsol, 50_000_000, 0)

	// The swap pays out to an account the quartet never snapshotted
	quartet[1] = newSwapInstruction(t, user.owner, ownerWsol, generateKey(t), markets.WsolMint, markets.UsdcMint, 50_000_000, 0)
	assert.Equal(t, engine.ErrAccountIdentityMismatch, h.submit(quartet...))
}

func TestEngine_CollateralRepay_NegativeSoldDelta(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	h.setFreshPrices(t, usdcPrice, solPrice)

	// Both legs point at one caller account and the swap only adds to it, so
	// the withdraw side measures a negative amount sold
	shared := h.createTokenAccount(t, user.owner, markets.UsdcMint, 1_000_000)
	h.env.SwapInAmount = 0

	quartet := h.repayQuartet(t, user, user.owner, shared, shared, 1_000, 0)
	assert.Equal(t, engine.ErrMathOverflow, h.submit(quartet...))

	count, err := h.ledgers.Count(h.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestEngine_ExternalMayNotDrainProtocolAccounts(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	ownerUsdc := h.createTokenAccount(t, user.owner, markets.UsdcMint, 2_000_000)
	h.deposit(t, user, 0, ownerUsdc, 2_000_000)

	feeDestination := h.createTokenAccount(t, h.spendCaller, markets.UsdcMint, 0)
	attacker := generateKey(t)
	attackerUsdc := h.createTokenAccount(t, attacker, markets.UsdcMint, 0)

	initiate := h.initiateSpendInstruction(t, user, h.spendCaller, generateKey(t), feeDestination, 400_000, false)

	// A swap in the same batch tries to siphon the freshly funded holding
	// account
	h.env.SwapInAmount = 100_000
	drain := newSwapInstruction(t, attacker, h.spendMule(t, user), attackerUsdc, markets.UsdcMint, markets.UsdcMint, 1, 0)

	assert.Equal(t, engine.ErrUnauthorizedBalanceChange, h.submit(initiate, drain))

	// The whole batch unwound
	deposited, _ := h.env.GetPosition(user.vault, 0)
	assert.EqualValues(t, 2_000_000, deposited)

	vaultRecord, err := h.vaults.GetByAddress(h.ctx, encode(user.vault))
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000, vaultRecord.RemainingSpendLimitPerTimeframe)

	count, err := h.orders.GetCountByState(h.ctx, order.StateInitiated)
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

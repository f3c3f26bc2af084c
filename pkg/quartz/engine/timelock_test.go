package engine_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/engine"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

const timeLockSlots = 75

func (h *testHarness) initiateWithdraw(t *testing.T, user *testUser, rentPayer, destination ed25519.PublicKey, amount uint64, marketIndex uint16) ed25519.PublicKey {
	orderAccount := generateKey(t)

	ixn := quartz.NewInitiateWithdrawInstruction(&quartz.InitiateWithdrawInstructionAccounts{
		Owner:             user.owner,
		Vault:             user.vault,
		WithdrawOrder:     orderAccount,
		TimeLockRentPayer: rentPayer,
		Destination:       destination,
	}, &quartz.BalanceInstructionArgs{
		AmountBaseUnits: amount,
		MarketIndex:     marketIndex,
	})
	require.NoError(t, h.submit(ixn))

	return orderAccount
}

func (h *testHarness) fulfilWithdrawInstruction(t *testing.T, user *testUser, caller, orderAccount, rentPayer, destination ed25519.PublicKey, marketIndex uint16) solana.Instruction {
	market, err := markets.GetMarket(marketIndex)
	require.NoError(t, err)

	mule, _, err := quartz.GetWithdrawMuleAddress(user.owner, market.Mint)
	require.NoError(t, err)

	depositAddress, _, err := quartz.GetDepositAddress(user.vault)
	require.NoError(t, err)

	return quartz.NewFulfilWithdrawInstruction(&quartz.FulfilWithdrawInstructionAccounts{
		Caller:            caller,
		Owner:             user.owner,
		Vault:             user.vault,
		WithdrawOrder:     orderAccount,
		TimeLockRentPayer: rentPayer,
		Mule:              mule,
		Mint:              market.Mint,
		Destination:       destination,
		DepositAddress:    depositAddress,
	})
}

func TestEngine_InitiateWithdraw(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	orderAccount := h.initiateWithdraw(t, user, user.owner, destination, 1_000_000_000, 1)

	record, err := h.orders.GetByAddress(h.ctx, encode(orderAccount))
	require.NoError(t, err)
	assert.Equal(t, order.TypeWithdraw, record.OrderType)
	assert.Equal(t, order.StateInitiated, record.OrderState)
	assert.Equal(t, encode(user.owner), record.Owner)
	assert.Equal(t, encode(destination), record.Destination)
	assert.True(t, record.IsOwnerPayer)
	assert.EqualValues(t, testStartSlot+timeLockSlots, record.ReleaseSlot)
	assert.EqualValues(t, 1_000_000_000, record.AmountBaseUnits)
	assert.EqualValues(t, 1, record.MarketIndex)
}

func TestEngine_InitiateWithdraw_SharedRentPayer(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	orderAccount := h.initiateWithdraw(t, user, sharedRentPayer(t), destination, 1_000_000_000, 1)

	record, err := h.orders.GetByAddress(h.ctx, encode(orderAccount))
	require.NoError(t, err)
	assert.False(t, record.IsOwnerPayer)
}

func TestEngine_InitiateWithdraw_UnknownRentPayer(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	ixn := quartz.NewInitiateWithdrawInstruction(&quartz.InitiateWithdrawInstructionAccounts{
		Owner:             user.owner,
		Vault:             user.vault,
		WithdrawOrder:     generateKey(t),
		TimeLockRentPayer: generateKey(t),
		Destination:       destination,
	}, &quartz.BalanceInstructionArgs{
		AmountBaseUnits: 1_000_000_000,
		MarketIndex:     1,
	})
	assert.Equal(t, engine.ErrRentPayerMismatch, h.submit(ixn))
}

func TestEngine_WithdrawOrderLifecycle(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 2_000_000_000)
	h.deposit(t, user, 1, ownerWsol, 2_000_000_000)

	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)
	bot := generateKey(t)

	orderAccount := h.initiateWithdraw(t, user, user.owner, destination, 1_000_000_000, 1)
	fulfil := h.fulfilWithdrawInstruction(t, user, bot, orderAccount, user.owner, destination, 1)

	// One slot before release nothing moves
	h.env.AdvanceSlots(timeLockSlots - 1)
	assert.Equal(t, engine.ErrTimeLockNotReleased, h.submit(fulfil))

	balance, err := h.env.TokenBalance(destination)
	require.NoError(t, err)
	assert.EqualValues(t, 0, balance)

	record, err := h.orders.GetByAddress(h.ctx, encode(orderAccount))
	require.NoError(t, err)
	assert.Equal(t, order.StateInitiated, record.OrderState)

	// At the release slot anyone can fulfil
	refundsBefore := h.env.RentRefundCount(user.owner)
	h.env.AdvanceSlots(1)
	require.NoError(t, h.submit(fulfil))

	balance, err = h.env.TokenBalance(destination)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000, balance)

	deposited, _ := h.env.GetPosition(user.vault, 1)
	assert.EqualValues(t, 1_000_000_000, deposited)

	record, err = h.orders.GetByAddress(h.ctx, encode(orderAccount))
	require.NoError(t, err)
	assert.Equal(t, order.StateFulfilled, record.OrderState)

	// The order account's storage deposit went back to the owner, exactly
	// once
	assert.Equal(t, refundsBefore+1, h.env.RentRefundCount(user.owner))

	// The order is single use
	assert.Equal(t, order.ErrInvalidOrderState, h.submit(fulfil))

	balance, err = h.env.TokenBalance(destination)
	require.NoError(t, err)
	assert.EqualValues(t, 1_000_000_000, balance)
	assert.Equal(t, refundsBefore+1, h.env.RentRefundCount(user.owner))
}

func TestEngine_CancelWithdraw(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	ownerWsol := h.createTokenAccount(t, user.owner, markets.WsolMint, 2_000_000_000)
	h.deposit(t, user, 1, ownerWsol, 2_000_000_000)

	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	orderAccount := h.initiateWithdraw(t, user, user.owner, destination, 1_000_000_000, 1)

	cancel := quartz.NewCancelWithdrawInstruction(&quartz.CancelWithdrawInstructionAccounts{
		Owner:             user.owner,
		Vault:             user.vault,
		WithdrawOrder:     orderAccount,
		TimeLockRentPayer: user.owner,
	})

	// Cancellation honors the same release window
	assert.Equal(t, engine.ErrTimeLockNotReleased, h.submit(cancel))

	h.env.AdvanceSlots(timeLockSlots)
	require.NoError(t, h.submit(cancel))

	record, err := h.orders.GetByAddress(h.ctx, encode(orderAccount))
	require.NoError(t, err)
	assert.Equal(t, order.StateCancelled, record.OrderState)

	// No funds moved
	deposited, _ := h.env.GetPosition(user.vault, 1)
	assert.EqualValues(t, 2_000_000_000, deposited)

	// A cancelled order cannot be fulfilled
	fulfil := h.fulfilWithdrawInstruction(t, user, generateKey(t), orderAccount, user.owner, destination, 1)
	assert.Equal(t, order.ErrInvalidOrderState, h.submit(fulfil))
}

func TestEngine_FulfilWithdraw_WrongOwner(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	orderAccount := h.initiateWithdraw(t, user, user.owner, destination, 1_000_000_000, 1)
	h.env.AdvanceSlots(timeLockSlots)

	imposter := &testUser{owner: generateKey(t), vault: user.vault}
	fulfil := h.fulfilWithdrawInstruction(t, imposter, generateKey(t), orderAccount, user.owner, destination, 1)
	assert.Equal(t, engine.ErrInvalidTimeLockOwner, h.submit(fulfil))
}

func TestEngine_FulfilWithdraw_WrongDestination(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	orderAccount := h.initiateWithdraw(t, user, user.owner, destination, 1_000_000_000, 1)
	h.env.AdvanceSlots(timeLockSlots)

	other := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)
	fulfil := h.fulfilWithdrawInstruction(t, user, generateKey(t), orderAccount, user.owner, other, 1)
	assert.Equal(t, engine.ErrAccountIdentityMismatch, h.submit(fulfil))
}

func TestEngine_FulfilWithdraw_WrongRentPayer(t *testing.T) {
	h := newTestHarness(t)

	user := h.createUser(t, h.defaultSpendLimits())
	destination := h.createTokenAccount(t, user.owner, markets.WsolMint, 0)

	orderAccount := h.initiateWithdraw(t, user, user.owner, destination, 1_000_000_000, 1)
	h.env.AdvanceSlots(timeLockSlots)

	// The order was initiated with the owner fronting the storage deposit,
	// so the refund may not be redirected to the shared payer
	fulfil := h.fulfilWithdrawInstruction(t, user, generateKey(t), orderAccount, sharedRentPayer(t), destination, 1)
	assert.Equal(t, engine.ErrRentPayerMismatch, h.submit(fulfil))
}

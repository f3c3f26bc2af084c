package engine

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

func (e *Engine) handleDeposit(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileDeposit(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts
	args := decompiled.Args

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	market, err := markets.GetMarket(args.MarketIndex)
	if err != nil {
		return err
	}
	if !sameKey(accounts.Mint, market.Mint) {
		return ErrAccountIdentityMismatch
	}

	mule, err := e.openBalanceMule(sess, accounts.Owner, accounts.Vault, market.Mint, accounts.Mule)
	if err != nil {
		return err
	}

	if err := e.env.Transfer(accounts.OwnerSpl, mule, args.AmountBaseUnits); err != nil {
		return err
	}

	moved, err := e.env.LendingDeposit(accounts.Vault, mule, market.MarketIndex, args.AmountBaseUnits, args.ReduceOnly)
	if err != nil {
		return err
	}

	// A reduce-only clamp can leave part of the transfer behind. Return it.
	leftover, err := checkedSub(args.AmountBaseUnits, moved)
	if err != nil {
		return err
	}
	if leftover > 0 {
		if err := e.env.Transfer(mule, accounts.OwnerSpl, leftover); err != nil {
			return err
		}
	}

	return e.closeMule(sess, mule, accounts.Owner)
}

func (e *Engine) handleWithdraw(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileWithdraw(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts
	args := decompiled.Args

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	market, err := markets.GetMarket(args.MarketIndex)
	if err != nil {
		return err
	}
	if !sameKey(accounts.Mint, market.Mint) {
		return ErrAccountIdentityMismatch
	}

	mule, err := e.openBalanceMule(sess, accounts.Owner, accounts.Vault, market.Mint, accounts.Mule)
	if err != nil {
		return err
	}

	moved, err := e.env.LendingWithdraw(accounts.Vault, mule, market.MarketIndex, args.AmountBaseUnits, args.ReduceOnly)
	if err != nil {
		return err
	}

	if err := e.env.Transfer(mule, accounts.DestinationSpl, moved); err != nil {
		return err
	}

	return e.closeMule(sess, mule, accounts.Owner)
}

func (e *Engine) handleInitiateWithdraw(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileInitiateWithdraw(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}
	// Fresh order accounts must sign their own creation
	if err := requireSigner(ixn, 2); err != nil {
		return err
	}

	accounts := decompiled.Accounts
	args := decompiled.Args

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}
	if _, err := markets.GetMarket(args.MarketIndex); err != nil {
		return err
	}

	isOwnerPayer, err := resolveInitiationPayer(accounts.Owner, accounts.TimeLockRentPayer)
	if err != nil {
		return err
	}

	return sess.createOrder(ctx, &order.Record{
		Address:   base58.Encode(accounts.WithdrawOrder),
		OrderType: order.TypeWithdraw,

		Owner:        base58.Encode(accounts.Owner),
		IsOwnerPayer: isOwnerPayer,
		ReleaseSlot:  e.env.CurrentSlot() + timeLockDurationSlots,

		AmountBaseUnits: args.AmountBaseUnits,
		MarketIndex:     args.MarketIndex,
		ReduceOnly:      args.ReduceOnly,
		Destination:     base58.Encode(accounts.Destination),
	})
}

func (e *Engine) handleFulfilWithdraw(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileFulfilWithdraw(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts

	record, err := sess.getOrder(ctx, base58.Encode(accounts.WithdrawOrder))
	if err != nil {
		return err
	}
	if record.OrderType != order.TypeWithdraw {
		return ErrAccountIdentityMismatch
	}
	if record.Owner != base58.Encode(accounts.Owner) {
		return ErrInvalidTimeLockOwner
	}
	if !record.IsReleased(e.env.CurrentSlot()) {
		return ErrTimeLockNotReleased
	}
	if record.Destination != base58.Encode(accounts.Destination) {
		return ErrAccountIdentityMismatch
	}

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	depositAddress, _, err := quartz.GetDepositAddress(accounts.Vault)
	if err != nil {
		return err
	}
	if !sameKey(depositAddress, accounts.DepositAddress) {
		return ErrAccountIdentityMismatch
	}

	market, err := markets.GetMarket(record.MarketIndex)
	if err != nil {
		return err
	}
	if !sameKey(accounts.Mint, market.Mint) {
		return ErrAccountIdentityMismatch
	}

	rentDestination, err := rentRefundDestination(record, accounts.Owner, accounts.TimeLockRentPayer)
	if err != nil {
		return err
	}

	mule, err := e.openBalanceMule(sess, accounts.Owner, accounts.Vault, market.Mint, accounts.Mule)
	if err != nil {
		return err
	}

	moved, err := e.env.LendingWithdraw(accounts.Vault, mule, market.MarketIndex, record.AmountBaseUnits, record.ReduceOnly)
	if err != nil {
		return err
	}

	if err := e.env.Transfer(mule, accounts.Destination, moved); err != nil {
		return err
	}

	if err := e.closeMule(sess, mule, accounts.Caller); err != nil {
		return err
	}

	if err := e.env.CloseAccount(accounts.WithdrawOrder, rentDestination); err != nil {
		return err
	}

	return sess.consumeOrder(ctx, record.Address, order.StateFulfilled)
}

func (e *Engine) handleCancelWithdraw(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileCancelWithdraw(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts

	record, err := sess.getOrder(ctx, base58.Encode(accounts.WithdrawOrder))
	if err != nil {
		return err
	}
	if record.OrderType != order.TypeWithdraw {
		return ErrAccountIdentityMismatch
	}
	if record.Owner != base58.Encode(accounts.Owner) {
		return ErrInvalidTimeLockOwner
	}
	if !record.IsReleased(e.env.CurrentSlot()) {
		return ErrTimeLockNotReleased
	}

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	rentDestination, err := rentRefundDestination(record, accounts.Owner, accounts.TimeLockRentPayer)
	if err != nil {
		return err
	}

	if err := e.env.CloseAccount(accounts.WithdrawOrder, rentDestination); err != nil {
		return err
	}

	return sess.consumeOrder(ctx, record.Address, order.StateCancelled)
}

// openBalanceMule opens the per (owner, mint) holding account used by the
// user balance flows, verifying the provided account is the derived one.
func (e *Engine) openBalanceMule(sess *session, owner, vaultAccount, mint, provided ed25519.PublicKey) (ed25519.PublicKey, error) {
	derived, _, err := quartz.GetWithdrawMuleAddress(owner, mint)
	if err != nil {
		return nil, err
	}
	if !sameKey(derived, provided) {
		return nil, ErrAccountIdentityMismatch
	}

	if err := e.env.OpenTokenAccount(derived, mint, vaultAccount); err != nil {
		return nil, err
	}

	sess.trackMule(derived)
	return derived, nil
}

func (e *Engine) closeMule(sess *session, mule, rentDestination ed25519.PublicKey) error {
	if err := e.env.CloseAccount(mule, rentDestination); err != nil {
		return err
	}

	sess.untrackMule(mule)
	return nil
}

// resolveInitiationPayer validates the rent payer supplied at order creation
// and records whether the owner paid directly.
func resolveInitiationPayer(owner, rentPayerAccount ed25519.PublicKey) (bool, error) {
	if sameKey(rentPayerAccount, owner) {
		return true, nil
	}

	shared, _, err := quartz.GetTimeLockRentPayerAddress()
	if err != nil {
		return false, err
	}
	if !sameKey(rentPayerAccount, shared) {
		return false, ErrRentPayerMismatch
	}
	return false, nil
}

package engine

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/limits"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

const usdcMarketIndex = 0

func (e *Engine) handleInitiateSpend(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileInitiateSpend(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}
	// Fresh order accounts must sign their own creation
	if err := requireSigner(ixn, 3); err != nil {
		return err
	}

	accounts := decompiled.Accounts
	args := decompiled.Args

	if !sameKey(accounts.SpendCaller, e.conf.SpendCaller) {
		return ErrInvalidSigner
	}

	record, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault)
	if err != nil {
		return err
	}

	market, err := markets.GetMarket(usdcMarketIndex)
	if err != nil {
		return err
	}
	if !sameKey(accounts.UsdcMint, market.Mint) {
		return ErrAccountIdentityMismatch
	}

	// Card spends are always initiated by the spend caller, so order rent is
	// always fronted by the shared payer.
	shared, _, err := quartz.GetTimeLockRentPayerAddress()
	if err != nil {
		return err
	}
	if !sameKey(accounts.TimeLockRentPayer, shared) {
		return ErrRentPayerMismatch
	}

	if err := e.consumeSpendLimits(sess, record, args.AmountBaseUnits); err != nil {
		return err
	}

	mule, err := e.openSpendMule(sess, accounts.Owner, accounts.Vault, market.Mint, accounts.Mule)
	if err != nil {
		return err
	}

	// The full amount is held. Any fee is only taken if the spend settles, so
	// a cancelled hold returns everything to the owner's position.
	moved, err := e.env.LendingWithdraw(accounts.Vault, mule, market.MarketIndex, args.AmountBaseUnits, false)
	if err != nil {
		return err
	}

	return sess.createOrder(ctx, &order.Record{
		Address:   base58.Encode(accounts.SpendHold),
		OrderType: order.TypeSpendHold,

		Owner:        base58.Encode(accounts.Owner),
		IsOwnerPayer: false,
		ReleaseSlot:  e.env.CurrentSlot() + timeLockDurationSlots,

		AmountBaseUnits: moved,
		SpendFee:        args.SpendFee,
	})
}

func (e *Engine) handleFulfilSpend(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileFulfilSpend(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts

	if !sameKey(accounts.SpendCaller, e.conf.SpendCaller) {
		return ErrInvalidSigner
	}

	record, err := sess.getOrder(ctx, base58.Encode(accounts.SpendHold))
	if err != nil {
		return err
	}
	if record.OrderType != order.TypeSpendHold {
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

	mule, err := e.getSpendMuleChecked(accounts.Owner, accounts.Mule)
	if err != nil {
		return err
	}

	settleAmount := record.AmountBaseUnits
	if record.SpendFee {
		fee, err := checkedMulDiv(record.AmountBaseUnits, spendFeeBps, 10_000)
		if err != nil {
			return err
		}
		if fee > 0 {
			if err := e.env.Transfer(mule, accounts.SpendFeeDestination, fee); err != nil {
				return err
			}
		}

		settleAmount, err = checkedSub(record.AmountBaseUnits, fee)
		if err != nil {
			return err
		}
	}

	if err := e.env.Transfer(mule, accounts.SettlementDestination, settleAmount); err != nil {
		return err
	}

	if err := e.closeMule(sess, mule, accounts.SpendCaller); err != nil {
		return err
	}

	if err := e.env.CloseAccount(accounts.SpendHold, rentDestination); err != nil {
		return err
	}

	return sess.consumeOrder(ctx, record.Address, order.StateFulfilled)
}

func (e *Engine) handleCancelSpend(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileCancelSpend(ixn)
	if err != nil {
		return err
	}

	accounts := decompiled.Accounts

	// Either side of the authorization can walk it back
	spendCallerSigned := requireSigner(ixn, 0) == nil && sameKey(accounts.SpendCaller, e.conf.SpendCaller)
	ownerSigned := requireSigner(ixn, 1) == nil
	if !spendCallerSigned && !ownerSigned {
		return ErrInvalidSigner
	}

	record, err := sess.getOrder(ctx, base58.Encode(accounts.SpendHold))
	if err != nil {
		return err
	}
	if record.OrderType != order.TypeSpendHold {
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

	mule, err := e.getSpendMuleChecked(accounts.Owner, accounts.Mule)
	if err != nil {
		return err
	}

	// Return the held funds to the owner's position
	if _, err := e.env.LendingDeposit(accounts.Vault, mule, usdcMarketIndex, record.AmountBaseUnits, false); err != nil {
		return err
	}

	if err := e.closeMule(sess, mule, accounts.SpendCaller); err != nil {
		return err
	}

	if err := e.env.CloseAccount(accounts.SpendHold, rentDestination); err != nil {
		return err
	}

	return sess.consumeOrder(ctx, record.Address, order.StateCancelled)
}

func (e *Engine) handleInitiateSpendLimits(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileInitiateSpendLimits(ixn)
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

	isOwnerPayer, err := resolveInitiationPayer(accounts.Owner, accounts.TimeLockRentPayer)
	if err != nil {
		return err
	}

	return sess.createOrder(ctx, &order.Record{
		Address:   base58.Encode(accounts.SpendLimitsOrder),
		OrderType: order.TypeSpendLimits,

		Owner:        base58.Encode(accounts.Owner),
		IsOwnerPayer: isOwnerPayer,
		ReleaseSlot:  e.env.CurrentSlot() + timeLockDurationSlots,

		SpendLimitPerTransaction:    args.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:      args.SpendLimitPerTimeframe,
		TimeframeInSeconds:          args.TimeframeInSeconds,
		NextTimeframeResetTimestamp: args.NextTimeframeResetTimestamp,
	})
}

func (e *Engine) handleFulfilSpendLimits(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileFulfilSpendLimits(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts

	record, err := sess.getOrder(ctx, base58.Encode(accounts.SpendLimitsOrder))
	if err != nil {
		return err
	}
	if record.OrderType != order.TypeSpendLimits {
		return ErrAccountIdentityMismatch
	}
	if record.Owner != base58.Encode(accounts.Owner) {
		return ErrInvalidTimeLockOwner
	}
	if !record.IsReleased(e.env.CurrentSlot()) {
		return ErrTimeLockNotReleased
	}

	vaultRecord, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault)
	if err != nil {
		return err
	}

	rentDestination, err := rentRefundDestination(record, accounts.Owner, accounts.TimeLockRentPayer)
	if err != nil {
		return err
	}

	// The portion of the current window already consumed carries over. The
	// new remaining limit can never exceed the new timeframe limit, and the
	// consumed portion is never forgiven by the adjustment.
	consumed, err := checkedSub(vaultRecord.SpendLimitPerTimeframe, vaultRecord.RemainingSpendLimitPerTimeframe)
	if err != nil {
		return err
	}

	remaining := uint64(0)
	if consumed < record.SpendLimitPerTimeframe {
		remaining = record.SpendLimitPerTimeframe - consumed
	}

	vaultRecord.SpendLimitPerTransaction = record.SpendLimitPerTransaction
	vaultRecord.SpendLimitPerTimeframe = record.SpendLimitPerTimeframe
	vaultRecord.RemainingSpendLimitPerTimeframe = remaining
	vaultRecord.TimeframeInSeconds = record.TimeframeInSeconds
	vaultRecord.NextTimeframeResetTimestamp = record.NextTimeframeResetTimestamp
	sess.saveVault(vaultRecord)

	if err := e.env.CloseAccount(accounts.SpendLimitsOrder, rentDestination); err != nil {
		return err
	}

	return sess.consumeOrder(ctx, record.Address, order.StateFulfilled)
}

// consumeSpendLimits runs the rolling window limiter over the vault record,
// persisting the mutated counters only when the spend is allowed.
func (e *Engine) consumeSpendLimits(sess *session, record *vault.Record, amount uint64) error {
	account, err := record.ToProgramAccount()
	if err != nil {
		return err
	}

	if err := limits.Consume(account, amount, e.env.CurrentTime()); err != nil {
		return err
	}

	record.RemainingSpendLimitPerTimeframe = account.RemainingSpendLimitPerTimeframe
	record.NextTimeframeResetTimestamp = account.NextTimeframeResetTimestamp
	sess.saveVault(record)
	return nil
}

func (e *Engine) openSpendMule(sess *session, owner, vaultAccount, mint, provided ed25519.PublicKey) (ed25519.PublicKey, error) {
	derived, err := e.getSpendMuleChecked(owner, provided)
	if err != nil {
		return nil, err
	}

	if err := e.env.OpenTokenAccount(derived, mint, vaultAccount); err != nil {
		return nil, err
	}

	sess.trackMule(derived)
	return derived, nil
}

func (e *Engine) getSpendMuleChecked(owner, provided ed25519.PublicKey) (ed25519.PublicKey, error) {
	derived, _, err := quartz.GetSpendMuleAddress(owner)
	if err != nil {
		return nil, err
	}
	if !sameKey(derived, provided) {
		return nil, ErrAccountIdentityMismatch
	}
	return derived, nil
}

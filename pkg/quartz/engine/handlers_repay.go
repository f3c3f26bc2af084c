package engine

import (
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/markets"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/risk"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/jupiter"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

// repayBatch is the decompiled view of a full collateral repay quartet. The
// four instructions must appear back to back as
// [start, swap, deposit, withdraw].
type repayBatch struct {
	start    *quartz.DecompiledStartCollateralRepay
	swap     *jupiter.DecompiledExactOutRoute
	deposit  *quartz.DecompiledDepositCollateralRepay
	withdraw *quartz.DecompiledWithdrawCollateralRepay

	depositMarket  *markets.Market
	withdrawMarket *markets.Market
}

// decompileRepayBatch rebuilds the quartet from the view of one of its
// members. startOffset is the relative offset of the start instruction.
func decompileRepayBatch(view batchView, startOffset int) (*repayBatch, error) {
	startIxn, ok := view.instructionAt(startOffset)
	if !ok {
		return nil, ErrInstructionOrderViolation
	}
	swapIxn, ok := view.instructionAt(startOffset + 1)
	if !ok {
		return nil, ErrInstructionOrderViolation
	}
	depositIxn, ok := view.instructionAt(startOffset + 2)
	if !ok {
		return nil, ErrInstructionOrderViolation
	}
	withdrawIxn, ok := view.instructionAt(startOffset + 3)
	if !ok {
		return nil, ErrInstructionOrderViolation
	}

	start, err := quartz.DecompileStartCollateralRepay(startIxn)
	if err != nil {
		return nil, ErrInstructionOrderViolation
	}
	swap, err := jupiter.DecompileExactOutRoute(swapIxn)
	if err != nil {
		return nil, ErrInstructionOrderViolation
	}
	deposit, err := quartz.DecompileDepositCollateralRepay(depositIxn)
	if err != nil {
		return nil, ErrInstructionOrderViolation
	}
	withdraw, err := quartz.DecompileWithdrawCollateralRepay(withdrawIxn)
	if err != nil {
		return nil, ErrInstructionOrderViolation
	}

	batch := &repayBatch{
		start:    start,
		swap:     swap,
		deposit:  deposit,
		withdraw: withdraw,
	}
	if err := batch.validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

// validate enforces the account identity invariants that must hold across
// the quartet before any individual step is trusted.
func (b *repayBatch) validate() error {
	start := b.start.Accounts
	swap := b.swap
	deposit := b.deposit.Accounts
	withdraw := b.withdraw.Accounts

	// The same caller, owner, vault, and ledger everywhere
	if !sameKey(start.Caller, deposit.Caller) || !sameKey(start.Caller, withdraw.Caller) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(start.Owner, deposit.Owner) || !sameKey(start.Owner, withdraw.Owner) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(start.Vault, deposit.Vault) || !sameKey(start.Vault, withdraw.Vault) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(start.Ledger, deposit.Ledger) || !sameKey(start.Ledger, withdraw.Ledger) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(deposit.DriftUser, withdraw.DriftUser) {
		return ErrAccountIdentityMismatch
	}

	// The snapshotted accounts are the ones the later steps measure
	if !sameKey(start.CallerDepositSpl, deposit.CallerSpl) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(start.CallerWithdrawSpl, withdraw.CallerSpl) {
		return ErrAccountIdentityMismatch
	}

	// The swap sells the caller's withdraw side asset for the deposit side
	// asset, on the caller's own accounts, with no platform fee skimmed
	if swap.PlatformFeeBps != 0 {
		return ErrInstructionOrderViolation
	}
	if !sameKey(swap.UserTransferAuthority, start.Caller) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(swap.SourceTokenAccount, start.CallerWithdrawSpl) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(swap.DestinationTokenAccount, start.CallerDepositSpl) {
		return ErrAccountIdentityMismatch
	}

	depositMarket, err := markets.GetMarket(b.deposit.Args.MarketIndex)
	if err != nil {
		return err
	}
	withdrawMarket, err := markets.GetMarket(b.withdraw.Args.MarketIndex)
	if err != nil {
		return err
	}

	if !sameKey(deposit.Mint, depositMarket.Mint) || !sameKey(swap.DestinationMint, depositMarket.Mint) {
		return ErrAccountIdentityMismatch
	}
	if !sameKey(withdraw.Mint, withdrawMarket.Mint) || !sameKey(swap.SourceMint, withdrawMarket.Mint) {
		return ErrAccountIdentityMismatch
	}

	b.depositMarket = depositMarket
	b.withdrawMarket = withdrawMarket
	return nil
}

func (e *Engine) handleStartCollateralRepay(ctx context.Context, sess *session, view batchView, ixn solana.Instruction) error {
	batch, err := decompileRepayBatch(view, 0)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := batch.start.Accounts

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	ledgerAddress, err := getLedgerChecked(accounts.Owner, accounts.Ledger)
	if err != nil {
		return err
	}

	// A permissionless repay may only run against a position that is already
	// unsafe. The owner can always rebalance their own account.
	if !ownerAuthorized(ixn, accounts.Caller, accounts.Owner, 3) {
		margin, err := e.env.CalculateMargin(accounts.Vault, batch.deposit.Args.MarketIndex, batch.withdraw.Args.MarketIndex)
		if err != nil {
			return err
		}
		if !risk.CanAutoRepay(margin) {
			return ErrAutoRepayThresholdNotReached
		}
	}

	depositBalance, err := e.env.TokenBalance(accounts.CallerDepositSpl)
	if err != nil {
		return err
	}
	withdrawBalance, err := e.env.TokenBalance(accounts.CallerWithdrawSpl)
	if err != nil {
		return err
	}

	return sess.putLedger(ctx, &repayledger.Record{
		Address: ledgerAddress,
		Owner:   base58.Encode(accounts.Owner),

		Deposit:  depositBalance,
		Withdraw: withdrawBalance,
	})
}

func (e *Engine) handleDepositCollateralRepay(ctx context.Context, sess *session, view batchView, ixn solana.Instruction) error {
	batch, err := decompileRepayBatch(view, -2)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := batch.deposit.Accounts
	market := batch.depositMarket

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	ledgerAddress, err := getLedgerChecked(accounts.Owner, accounts.Ledger)
	if err != nil {
		return err
	}
	ledger, err := sess.getLedger(ctx, ledgerAddress)
	if err != nil {
		return err
	}

	// The swap's actual output is whatever grew in the caller's account
	// since the snapshot
	balance, err := e.env.TokenBalance(accounts.CallerSpl)
	if err != nil {
		return err
	}
	swappedIn, err := checkedSub(balance, ledger.Deposit)
	if err != nil {
		return err
	}

	mule, err := e.openRepayMule(sess, accounts.Vault, market.Mint, accounts.Mule)
	if err != nil {
		return err
	}

	if err := e.env.Transfer(accounts.CallerSpl, mule, swappedIn); err != nil {
		return err
	}

	// Reduce only: the venue clips the repay to the outstanding borrow
	moved, err := e.env.LendingDeposit(accounts.Vault, mule, market.MarketIndex, swappedIn, true)
	if err != nil {
		return err
	}

	leftover, err := checkedSub(swappedIn, moved)
	if err != nil {
		return err
	}
	if leftover > 0 {
		if err := e.env.Transfer(mule, accounts.CallerSpl, leftover); err != nil {
			return err
		}
	}

	if err := e.closeMule(sess, mule, accounts.Caller); err != nil {
		return err
	}

	// Record the amount that actually reached the venue so the withdraw step
	// reimburses consistently with it
	ledger.Deposit = moved
	sess.saveLedger(ledger)
	return nil
}

func (e *Engine) handleWithdrawCollateralRepay(ctx context.Context, sess *session, view batchView, ixn solana.Instruction) error {
	batch, err := decompileRepayBatch(view, -3)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := batch.withdraw.Accounts
	market := batch.withdrawMarket

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	ledgerAddress, err := getLedgerChecked(accounts.Owner, accounts.Ledger)
	if err != nil {
		return err
	}
	ledger, err := sess.getLedger(ctx, ledgerAddress)
	if err != nil {
		return err
	}

	// The caller is reimbursed exactly what the swap consumed
	balance, err := e.env.TokenBalance(accounts.CallerSpl)
	if err != nil {
		return err
	}
	withdrawAmount, err := checkedSub(ledger.Withdraw, balance)
	if err != nil {
		return err
	}
	depositAmount := ledger.Deposit

	depositPrice, err := e.env.GetOraclePrice(batch.depositMarket.PythFeed)
	if err != nil {
		return err
	}
	withdrawPrice, err := e.env.GetOraclePrice(batch.withdrawMarket.PythFeed)
	if err != nil {
		return err
	}

	err = risk.ValidatePrices(
		depositAmount,
		withdrawAmount,
		depositPrice,
		withdrawPrice,
		batch.depositMarket,
		batch.withdrawMarket,
		e.env.CurrentTime(),
	)
	if err != nil {
		return err
	}

	mule, err := e.openRepayMule(sess, accounts.Vault, market.Mint, accounts.Mule)
	if err != nil {
		return err
	}

	moved, err := e.env.LendingWithdraw(accounts.Vault, mule, market.MarketIndex, withdrawAmount, true)
	if err != nil {
		return err
	}

	if err := e.env.Transfer(mule, accounts.CallerSpl, moved); err != nil {
		return err
	}

	if err := e.closeMule(sess, mule, accounts.Caller); err != nil {
		return err
	}

	// A bot must have repaid enough to make the position safe again, but may
	// not liquidate more collateral than that takes
	if !ownerAuthorized(ixn, accounts.Caller, accounts.Owner, 2) {
		margin, err := e.env.CalculateMargin(accounts.Vault, batch.deposit.Args.MarketIndex, batch.withdraw.Args.MarketIndex)
		if err != nil {
			return err
		}

		health := risk.CalculateHealth(margin)
		if health == 0 {
			return ErrAutoRepayNotEnoughSold
		}
		if health > risk.CollateralRepayMaxHealthPercent {
			return ErrAutoRepayTooMuchSold
		}
	}

	if err := sess.deleteLedger(ctx, ledgerAddress); err != nil {
		return err
	}
	return e.env.CloseAccount(accounts.Ledger, accounts.Caller)
}

func getLedgerChecked(owner, provided ed25519.PublicKey) (string, error) {
	derived, _, err := quartz.GetCollateralRepayLedgerAddress(owner)
	if err != nil {
		return "", err
	}
	if !sameKey(derived, provided) {
		return "", ErrAccountIdentityMismatch
	}
	return base58.Encode(derived), nil
}

// ownerAuthorized reports whether the account owner sanctioned this batch
// directly, either as the caller or by co-signing.
func ownerAuthorized(ixn solana.Instruction, caller, owner ed25519.PublicKey, ownerIndex int) bool {
	if sameKey(caller, owner) {
		return true
	}
	return requireSigner(ixn, ownerIndex) == nil
}

func (e *Engine) openRepayMule(sess *session, vaultAccount, mint, provided ed25519.PublicKey) (ed25519.PublicKey, error) {
	derived, _, err := quartz.GetRepayMuleAddress(vaultAccount, mint)
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

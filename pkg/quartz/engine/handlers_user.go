package engine

import (
	"context"

	"github.com/mr-tron/base58/base58"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

func (e *Engine) handleInitUser(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileInitUser(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts
	args := decompiled.Args

	derived, bump, err := quartz.GetVaultAddress(accounts.Owner)
	if err != nil {
		return err
	}
	if !sameKey(derived, accounts.Vault) {
		return ErrAccountIdentityMismatch
	}

	return sess.createVault(ctx, &vault.Record{
		Address: base58.Encode(derived),
		Bump:    bump,

		Owner: base58.Encode(accounts.Owner),

		SpendLimitPerTransaction:        args.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:          args.SpendLimitPerTimeframe,
		RemainingSpendLimitPerTimeframe: args.SpendLimitPerTimeframe,
		NextTimeframeResetTimestamp:     args.NextTimeframeResetTimestamp,
		TimeframeInSeconds:              args.TimeframeInSeconds,
	})
}

func (e *Engine) handleCloseUser(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileCloseUser(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts

	if _, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault); err != nil {
		return err
	}

	if err := sess.deleteVault(ctx, base58.Encode(accounts.Vault)); err != nil {
		return err
	}

	return e.env.CloseAccount(accounts.Vault, accounts.RentDestination)
}

func (e *Engine) handleAdjustSpendLimits(ctx context.Context, sess *session, ixn solana.Instruction) error {
	decompiled, err := quartz.DecompileAdjustSpendLimits(ixn)
	if err != nil {
		return err
	}
	if err := requireSigner(ixn, 0); err != nil {
		return err
	}

	accounts := decompiled.Accounts
	args := decompiled.Args

	record, err := e.getVaultChecked(ctx, sess, accounts.Owner, accounts.Vault)
	if err != nil {
		return err
	}

	// The immediate path may only loosen limits. Anything that tightens the
	// window goes through a SpendLimitsOrder instead.
	if args.SpendLimitPerTransaction < record.SpendLimitPerTransaction ||
		args.SpendLimitPerTimeframe < record.SpendLimitPerTimeframe ||
		args.TimeframeInSeconds != record.TimeframeInSeconds {
		return ErrSpendLimitReductionRequiresTimeLock
	}

	raised, err := checkedSub(args.SpendLimitPerTimeframe, record.SpendLimitPerTimeframe)
	if err != nil {
		return err
	}
	remaining, err := checkedAdd(record.RemainingSpendLimitPerTimeframe, raised)
	if err != nil {
		return err
	}

	record.SpendLimitPerTransaction = args.SpendLimitPerTransaction
	record.SpendLimitPerTimeframe = args.SpendLimitPerTimeframe
	record.RemainingSpendLimitPerTimeframe = remaining

	sess.saveVault(record)
	return nil
}

package engine

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math/bits"

	"github.com/mr-tron/base58/base58"
	"github.com/sirupsen/logrus"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/order"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/repayledger"
	"github.com/quartz-labs/quartz-protocol/pkg/quartz/data/vault"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

const (
	// Roughly thirty seconds of slots between initiating an order and being
	// allowed to act on it.
	timeLockDurationSlots = 75

	// Fee taken on card spends that opt into it.
	spendFeeBps = 50
)

// Batch is one atomic group of instructions submitted together. Instructions
// execute strictly in order and the whole batch is all or nothing.
type Batch struct {
	Instructions []solana.Instruction

	// Nested is set when the batch is being invoked from within another
	// program rather than at top level.
	Nested bool
}

// batchView gives a handler read-only access to its sibling instructions at
// fixed relative offsets.
type batchView struct {
	instructions []solana.Instruction
	index        int
}

func (v batchView) instructionAt(relativeOffset int) (solana.Instruction, bool) {
	index := v.index + relativeOffset
	if index < 0 || index >= len(v.instructions) {
		return solana.Instruction{}, false
	}
	return v.instructions[index], true
}

type Config struct {
	// SpendCaller is the privileged key allowed to initiate and fulfil card
	// spends.
	SpendCaller ed25519.PublicKey
}

// Engine executes instruction batches against the protocol records and an
// external environment.
type Engine struct {
	log  *logrus.Entry
	conf Config
	env  Env

	vaults  vault.Store
	orders  order.Store
	ledgers repayledger.Store
}

func New(conf Config, env Env, vaults vault.Store, orders order.Store, ledgers repayledger.Store) *Engine {
	return &Engine{
		log:  logrus.StandardLogger().WithField("type", "quartz/engine"),
		conf: conf,
		env:  env,

		vaults:  vaults,
		orders:  orders,
		ledgers: ledgers,
	}
}

// ExecuteBatch runs every instruction in the batch in order. On any failure
// the environment is rolled back and no record mutation is persisted.
func (e *Engine) ExecuteBatch(ctx context.Context, batch *Batch) error {
	log := e.log.WithField("method", "ExecuteBatch")

	if batch.Nested {
		return ErrInstructionOrderViolation
	}

	e.env.Begin()

	sess := newSession(e.vaults, e.orders, e.ledgers)

	for i := range batch.Instructions {
		ixn := batch.Instructions[i]

		var err error
		if ixn.IsForProgram(quartz.PROGRAM_ID) {
			err = e.execute(ctx, sess, batchView{batch.Instructions, i}, ixn)
		} else {
			err = e.executeExternal(sess, ixn)
		}

		if err != nil {
			log.WithError(err).Warn("batch rejected")
			e.env.Rollback()
			return err
		}
	}

	if err := sess.commit(ctx); err != nil {
		log.WithError(err).Warn("failed to commit batch records")
		e.env.Rollback()
		return err
	}

	e.env.Commit()
	return nil
}

func (e *Engine) execute(ctx context.Context, sess *session, view batchView, ixn solana.Instruction) error {
	switch {
	case ixn.HasDiscriminator(quartz.InitUserInstructionDiscriminator):
		return e.handleInitUser(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.CloseUserInstructionDiscriminator):
		return e.handleCloseUser(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.AdjustSpendLimitsInstructionDiscriminator):
		return e.handleAdjustSpendLimits(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.DepositInstructionDiscriminator):
		return e.handleDeposit(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.WithdrawInstructionDiscriminator):
		return e.handleWithdraw(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.InitiateWithdrawInstructionDiscriminator):
		return e.handleInitiateWithdraw(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.FulfilWithdrawInstructionDiscriminator):
		return e.handleFulfilWithdraw(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.CancelWithdrawInstructionDiscriminator):
		return e.handleCancelWithdraw(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.InitiateSpendInstructionDiscriminator):
		return e.handleInitiateSpend(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.FulfilSpendInstructionDiscriminator):
		return e.handleFulfilSpend(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.CancelSpendInstructionDiscriminator):
		return e.handleCancelSpend(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.InitiateSpendLimitsInstructionDiscriminator):
		return e.handleInitiateSpendLimits(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.FulfilSpendLimitsInstructionDiscriminator):
		return e.handleFulfilSpendLimits(ctx, sess, ixn)
	case ixn.HasDiscriminator(quartz.StartCollateralRepayInstructionDiscriminator):
		return e.handleStartCollateralRepay(ctx, sess, view, ixn)
	case ixn.HasDiscriminator(quartz.DepositCollateralRepayInstructionDiscriminator):
		return e.handleDepositCollateralRepay(ctx, sess, view, ixn)
	case ixn.HasDiscriminator(quartz.WithdrawCollateralRepayInstructionDiscriminator):
		return e.handleWithdrawCollateralRepay(ctx, sess, view, ixn)
	}
	return quartz.ErrInvalidInstructionData
}

func (e *Engine) executeExternal(sess *session, ixn solana.Instruction) error {
	watermarks, err := e.watchedBalances(sess)
	if err != nil {
		return err
	}

	if err := e.env.ExecuteExternal(ixn); err != nil {
		return err
	}

	return e.checkExternalInvariants(watermarks)
}

// watchedBalances snapshots every protocol owned token account the batch has
// opened so far.
func (e *Engine) watchedBalances(sess *session) (map[string]uint64, error) {
	watermarks := make(map[string]uint64)
	for _, account := range sess.openMules {
		balance, err := e.env.TokenBalance(account)
		if err != nil {
			return nil, err
		}
		watermarks[base58.Encode(account)] = balance
	}
	return watermarks, nil
}

// checkExternalInvariants re-reads every watched balance after an external
// call. An external call must never drain an account it was not given.
func (e *Engine) checkExternalInvariants(watermarks map[string]uint64) error {
	for encoded, watermark := range watermarks {
		account, err := base58.Decode(encoded)
		if err != nil {
			return err
		}

		balance, err := e.env.TokenBalance(account)
		if err != nil {
			return err
		}
		if balance < watermark {
			return ErrUnauthorizedBalanceChange
		}
	}
	return nil
}

func sameKey(a, b ed25519.PublicKey) bool {
	return bytes.Equal(a, b)
}

func requireSigner(ixn solana.Instruction, index int) error {
	if index >= len(ixn.Accounts) || !ixn.Accounts[index].IsSigner {
		return ErrInvalidSigner
	}
	return nil
}

// getVaultChecked verifies the vault account is the one derived from the
// owner, then loads its record.
func (e *Engine) getVaultChecked(ctx context.Context, sess *session, owner, vaultAccount ed25519.PublicKey) (*vault.Record, error) {
	derived, _, err := quartz.GetVaultAddress(owner)
	if err != nil {
		return nil, err
	}
	if !sameKey(derived, vaultAccount) {
		return nil, ErrAccountIdentityMismatch
	}
	return sess.getVault(ctx, base58.Encode(derived))
}

// rentRefundDestination resolves where an order's storage deposit returns to,
// verifying the provided rent payer account matches the payer recorded at
// creation.
func rentRefundDestination(record *order.Record, owner, rentPayerAccount ed25519.PublicKey) (ed25519.PublicKey, error) {
	if record.IsOwnerPayer {
		if !sameKey(rentPayerAccount, owner) {
			return nil, ErrRentPayerMismatch
		}
		return owner, nil
	}

	shared, _, err := quartz.GetTimeLockRentPayerAddress()
	if err != nil {
		return nil, err
	}
	if !sameKey(rentPayerAccount, shared) {
		return nil, ErrRentPayerMismatch
	}
	return shared, nil
}

func checkedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrMathOverflow
	}
	return a - b, nil
}

func checkedAdd(a, b uint64) (uint64, error) {
	if a+b < a {
		return 0, ErrMathOverflow
	}
	return a + b, nil
}

func checkedMulDiv(value, numerator, denominator uint64) (uint64, error) {
	hi, lo := bits.Mul64(value, numerator)
	if hi >= denominator {
		return 0, ErrMathOverflow
	}
	quo, _ := bits.Div64(hi, lo, denominator)
	return quo, nil
}

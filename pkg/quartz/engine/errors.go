package engine

import (
	"github.com/pkg/errors"
)

// Protocol failures are terminal for the current batch. ExecuteBatch never
// partially applies a batch; any of these aborts every state change in it.
//
// Oracle, slippage, and spend limit failures surface as the sentinel errors
// of the risk and limits packages.
var (
	// ErrInstructionOrderViolation indicates a composite batch is missing a
	// required sibling instruction, has one at the wrong offset, or is being
	// invoked from within another program.
	ErrInstructionOrderViolation = errors.New("instruction order violation")

	// ErrAccountIdentityMismatch indicates an account that must agree across
	// sibling instructions, or match a derived address, does not.
	ErrAccountIdentityMismatch = errors.New("account identity mismatch")

	// ErrMathOverflow indicates checked arithmetic over or underflowed. A
	// negative balance delta across an external call surfaces as this.
	ErrMathOverflow = errors.New("math overflow")

	// ErrAutoRepayThresholdNotReached indicates a permissionless caller
	// attempted a collateral repay while the position was still healthy.
	ErrAutoRepayThresholdNotReached = errors.New("account health must be zero to auto repay")

	// ErrAutoRepayNotEnoughSold indicates the position was still unsafe after
	// the repay completed.
	ErrAutoRepayNotEnoughSold = errors.New("account health still zero after repay")

	// ErrAutoRepayTooMuchSold indicates the repay liquidated more collateral
	// than necessary.
	ErrAutoRepayTooMuchSold = errors.New("account health too high after repay")

	// ErrTimeLockNotReleased indicates a fulfil or cancel before the order's
	// release slot.
	ErrTimeLockNotReleased = errors.New("time lock has not been released")

	// ErrInvalidTimeLockOwner indicates the provided owner does not match the
	// order's recorded owner.
	ErrInvalidTimeLockOwner = errors.New("invalid time lock owner")

	// ErrRentPayerMismatch indicates the provided rent refund account does
	// not match the payer recorded at order creation.
	ErrRentPayerMismatch = errors.New("rent payer mismatch")

	// ErrAccountAlreadyInitialized indicates an account that must be created
	// fresh already exists.
	ErrAccountAlreadyInitialized = errors.New("account already initialized")

	// ErrInvalidSigner indicates a required signature is missing or was
	// produced by the wrong party.
	ErrInvalidSigner = errors.New("invalid signer")

	// ErrSpendLimitReductionRequiresTimeLock indicates an attempt to lower
	// spend limits through the immediate adjustment path.
	ErrSpendLimitReductionRequiresTimeLock = errors.New("spend limit reduction requires a time locked order")

	// ErrUnauthorizedBalanceChange indicates a protocol owned balance
	// decreased across an external call that was not authorized to move it.
	ErrUnauthorizedBalanceChange = errors.New("unauthorized balance change across external call")
)

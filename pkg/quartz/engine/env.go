package engine

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/quartz/risk"
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

// Env is the external execution environment a batch runs against: the chain
// clock, token accounts, the lending venue, the oracle, and the whitelisted
// swap router.
//
// Mutations are bracketed by Begin/Commit/Rollback so a failed batch leaves
// the environment untouched. Implementations are not required to be safe for
// concurrent batches.
type Env interface {
	// CurrentSlot returns the slot the batch executes in.
	CurrentSlot() uint64

	// CurrentTime returns the unix timestamp the batch executes at.
	CurrentTime() int64

	// TokenBalance returns the balance of a token account.
	TokenBalance(account ed25519.PublicKey) (uint64, error)

	// OpenTokenAccount creates a token account for the provided mint with
	// the provided authority. ErrAccountAlreadyInitialized is returned if the
	// account already exists.
	OpenTokenAccount(account, mint, authority ed25519.PublicKey) error

	// CloseAccount destroys an account, refunding its storage deposit to the
	// provided destination. Token accounts must be empty before closing.
	CloseAccount(account, rentDestination ed25519.PublicKey) error

	// Transfer moves tokens between two accounts of the same mint.
	Transfer(source, destination ed25519.PublicKey, amount uint64) error

	// LendingDeposit moves up to amount from the source token account into
	// the lending venue position owned by authority, returning the amount
	// actually moved. With reduceOnly the venue clips the deposit to the
	// authority's outstanding borrow on the market.
	LendingDeposit(authority, source ed25519.PublicKey, marketIndex uint16, amount uint64, reduceOnly bool) (uint64, error)

	// LendingWithdraw moves up to amount out of the lending venue position
	// owned by authority into the destination token account, returning the
	// amount actually moved. With reduceOnly the venue clips the withdrawal
	// to the authority's deposited balance on the market.
	LendingWithdraw(authority, destination ed25519.PublicKey, marketIndex uint16, amount uint64, reduceOnly bool) (uint64, error)

	// CalculateMargin requests an initial margin calculation for the
	// position owned by authority over the provided market pair.
	CalculateMargin(authority ed25519.PublicKey, depositMarketIndex, withdrawMarketIndex uint16) (risk.MarginCalculation, error)

	// GetOraclePrice returns the latest price record for a feed.
	GetOraclePrice(feed string) (risk.OraclePrice, error)

	// ExecuteExternal runs an instruction belonging to another program.
	ExecuteExternal(ixn solana.Instruction) error

	// Begin marks the start of a batch.
	Begin()

	// Commit applies every mutation since Begin.
	Commit()

	// Rollback discards every mutation since Begin.
	Rollback()
}

package repayledger

import (
	"time"

	"github.com/pkg/errors"

	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

var (
	ErrLedgerNotFound      = errors.New("no ledger records could be found")
	ErrLedgerAlreadyExists = errors.New("ledger record already exists")
)

// Record tracks the balance snapshots for an in-flight collateral repay. The
// record only exists between the start and the final withdraw instruction of
// a batch, so at rest the store should be empty.
type Record struct {
	Id uint64

	Address string
	Owner   string

	Deposit  uint64
	Withdraw uint64

	LastUpdatedAt time.Time
}

// NewRecordFromProgramAccount maps an on-chain ledger account onto a store
// record.
func NewRecordFromProgramAccount(address, owner string, account *quartz.CollateralRepayLedger) *Record {
	return &Record{
		Address: address,
		Owner:   owner,

		Deposit:  account.Deposit,
		Withdraw: account.Withdraw,
	}
}

// ToProgramAccount maps the record back onto the on-chain account layout.
func (r *Record) ToProgramAccount() *quartz.CollateralRepayLedger {
	return &quartz.CollateralRepayLedger{
		Deposit:  r.Deposit,
		Withdraw: r.Withdraw,
	}
}

func (r *Record) Clone() *Record {
	cloned := *r
	return &cloned
}

func (r *Record) CopyTo(dst *Record) {
	*dst = *r
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}

	if len(r.Address) == 0 {
		return errors.New("ledger address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("ledger owner is required")
	}

	return nil
}

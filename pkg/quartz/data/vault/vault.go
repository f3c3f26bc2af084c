package vault

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

var (
	ErrVaultNotFound      = errors.New("no vault records could be found")
	ErrVaultAlreadyExists = errors.New("vault record already exists")
)

// Record tracks a vault account and its spend limit bookkeeping.
type Record struct {
	Id uint64

	Address string
	Bump    uint8

	Owner string

	SpendLimitPerTransaction        uint64
	SpendLimitPerTimeframe          uint64
	RemainingSpendLimitPerTimeframe uint64
	NextTimeframeResetTimestamp     uint64
	TimeframeInSeconds              uint64

	LastUpdatedAt time.Time
}

// NewRecordFromProgramAccount maps an on-chain vault account onto a store
// record.
func NewRecordFromProgramAccount(address string, account *quartz.Vault) *Record {
	return &Record{
		Address: address,
		Bump:    account.Bump,

		Owner: base58.Encode(account.Owner),

		SpendLimitPerTransaction:        account.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:          account.SpendLimitPerTimeframe,
		RemainingSpendLimitPerTimeframe: account.RemainingSpendLimitPerTimeframe,
		NextTimeframeResetTimestamp:     account.NextTimeframeResetTimestamp,
		TimeframeInSeconds:              account.TimeframeInSeconds,
	}
}

// ToProgramAccount maps the record back onto the on-chain account layout.
func (r *Record) ToProgramAccount() (*quartz.Vault, error) {
	owner, err := base58.Decode(r.Owner)
	if err != nil {
		return nil, errors.Wrap(err, "invalid owner")
	}

	return &quartz.Vault{
		Owner: ed25519.PublicKey(owner),
		Bump:  r.Bump,

		SpendLimitPerTransaction:        r.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:          r.SpendLimitPerTimeframe,
		RemainingSpendLimitPerTimeframe: r.RemainingSpendLimitPerTimeframe,
		NextTimeframeResetTimestamp:     r.NextTimeframeResetTimestamp,
		TimeframeInSeconds:              r.TimeframeInSeconds,
	}, nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Address: r.Address,
		Bump:    r.Bump,

		Owner: r.Owner,

		SpendLimitPerTransaction:        r.SpendLimitPerTransaction,
		SpendLimitPerTimeframe:          r.SpendLimitPerTimeframe,
		RemainingSpendLimitPerTimeframe: r.RemainingSpendLimitPerTimeframe,
		NextTimeframeResetTimestamp:     r.NextTimeframeResetTimestamp,
		TimeframeInSeconds:              r.TimeframeInSeconds,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Address = r.Address
	dst.Bump = r.Bump

	dst.Owner = r.Owner

	dst.SpendLimitPerTransaction = r.SpendLimitPerTransaction
	dst.SpendLimitPerTimeframe = r.SpendLimitPerTimeframe
	dst.RemainingSpendLimitPerTimeframe = r.RemainingSpendLimitPerTimeframe
	dst.NextTimeframeResetTimestamp = r.NextTimeframeResetTimestamp
	dst.TimeframeInSeconds = r.TimeframeInSeconds

	dst.LastUpdatedAt = r.LastUpdatedAt
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.New("record is nil")
	}

	if len(r.Address) == 0 {
		return errors.New("vault address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("vault owner is required")
	}

	if r.RemainingSpendLimitPerTimeframe > r.SpendLimitPerTimeframe {
		return errors.New("remaining spend limit exceeds timeframe limit")
	}

	return nil
}

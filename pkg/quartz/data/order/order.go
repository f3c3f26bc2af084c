package order

import (
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/quartz-labs/quartz-protocol/pkg/solana/quartz"
)

var (
	ErrOrderNotFound      = errors.New("no order records could be found")
	ErrOrderAlreadyExists = errors.New("order record already exists")
	ErrInvalidOrderState  = errors.New("order record is not in a valid state for the update")
)

type Type uint8

const (
	TypeUnknown Type = iota
	TypeWithdraw
	TypeSpendLimits
	TypeSpendHold
)

type State uint8

const (
	StateInitiated State = iota
	StateFulfilled
	StateCancelled
)

// Record tracks a time-locked order from initiation until it's fulfilled or
// cancelled. Each record carries the shared time lock plus the fields for its
// order type; fields for other types are zero.
type Record struct {
	Id uint64

	Address    string
	OrderType  Type
	OrderState State

	Owner        string
	IsOwnerPayer bool
	ReleaseSlot  uint64

	// Withdraw orders
	AmountBaseUnits uint64
	MarketIndex     uint16
	ReduceOnly      bool
	Destination     string

	// Spend limit orders
	SpendLimitPerTransaction    uint64
	SpendLimitPerTimeframe      uint64
	TimeframeInSeconds          uint64
	NextTimeframeResetTimestamp uint64

	// Spend holds
	SpendFee bool

	LastUpdatedAt time.Time
}

// NewRecordFromProgramAccount maps an on-chain order account onto a store
// record in the initiated state.
func NewRecordFromProgramAccount(address string, account quartz.TimeLocked) (*Record, error) {
	lock := account.TimeLock()

	record := &Record{
		Address: address,

		Owner:        base58.Encode(lock.Owner),
		IsOwnerPayer: lock.IsOwnerPayer,
		ReleaseSlot:  lock.ReleaseSlot,
	}

	switch v := account.(type) {
	case *quartz.WithdrawOrder:
		record.OrderType = TypeWithdraw
		record.AmountBaseUnits = v.AmountBaseUnits
		record.MarketIndex = v.MarketIndex
		record.ReduceOnly = v.ReduceOnly
		record.Destination = base58.Encode(v.Destination)
	case *quartz.SpendLimitsOrder:
		record.OrderType = TypeSpendLimits
		record.SpendLimitPerTransaction = v.SpendLimitPerTransaction
		record.SpendLimitPerTimeframe = v.SpendLimitPerTimeframe
		record.TimeframeInSeconds = v.TimeframeInSeconds
		record.NextTimeframeResetTimestamp = v.NextTimeframeResetTimestamp
	case *quartz.SpendHold:
		record.OrderType = TypeSpendHold
		record.AmountBaseUnits = v.AmountBaseUnits
		record.SpendFee = v.SpendFee
	default:
		return nil, errors.New("unknown order account type")
	}

	return record, nil
}

// ToProgramAccount maps the record back onto the on-chain account layout for
// its order type.
func (r *Record) ToProgramAccount() (quartz.TimeLocked, error) {
	owner, err := base58.Decode(r.Owner)
	if err != nil {
		return nil, errors.Wrap(err, "invalid owner")
	}

	lock := quartz.TimeLock{
		Owner:        ed25519.PublicKey(owner),
		IsOwnerPayer: r.IsOwnerPayer,
		ReleaseSlot:  r.ReleaseSlot,
	}

	switch r.OrderType {
	case TypeWithdraw:
		destination, err := base58.Decode(r.Destination)
		if err != nil {
			return nil, errors.Wrap(err, "invalid destination")
		}

		return &quartz.WithdrawOrder{
			Lock: lock,

			AmountBaseUnits: r.AmountBaseUnits,
			MarketIndex:     r.MarketIndex,
			ReduceOnly:      r.ReduceOnly,
			Destination:     ed25519.PublicKey(destination),
		}, nil
	case TypeSpendLimits:
		return &quartz.SpendLimitsOrder{
			Lock: lock,

			SpendLimitPerTransaction:    r.SpendLimitPerTransaction,
			SpendLimitPerTimeframe:      r.SpendLimitPerTimeframe,
			TimeframeInSeconds:          r.TimeframeInSeconds,
			NextTimeframeResetTimestamp: r.NextTimeframeResetTimestamp,
		}, nil
	case TypeSpendHold:
		return &quartz.SpendHold{
			Lock: lock,

			AmountBaseUnits: r.AmountBaseUnits,
			SpendFee:        r.SpendFee,
		}, nil
	default:
		return nil, errors.New("invalid order type")
	}
}

func (r *Record) IsReleased(currentSlot uint64) bool {
	return currentSlot >= r.ReleaseSlot
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
		return errors.New("order address is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("order owner is required")
	}

	switch r.OrderType {
	case TypeWithdraw:
		if len(r.Destination) == 0 {
			return errors.New("withdraw destination is required")
		}
	case TypeSpendLimits, TypeSpendHold:
	default:
		return errors.New("invalid order type")
	}

	switch r.OrderState {
	case StateInitiated, StateFulfilled, StateCancelled:
	default:
		return errors.New("invalid order state")
	}

	return nil
}

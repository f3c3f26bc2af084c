package quartz

import (
	"crypto/ed25519"
	"strconv"

	"github.com/mr-tron/base58/base58"
)

// Vault is the per-user account holding the derivation bump and the rolling
// spend limit counters.
type Vault struct {
	Owner ed25519.PublicKey
	Bump  uint8

	SpendLimitPerTransaction        uint64
	SpendLimitPerTimeframe          uint64
	RemainingSpendLimitPerTimeframe uint64

	// The next timestamp the remaining timeframe limit resets at
	NextTimeframeResetTimestamp uint64

	// How much to extend NextTimeframeResetTimestamp by when it's reached
	TimeframeInSeconds uint64
}

const VaultAccountSize = (8 + // discriminator
	32 + // owner
	1 + // bump
	8 + // spend_limit_per_transaction
	8 + // spend_limit_per_timeframe
	8 + // remaining_spend_limit_per_timeframe
	8 + // next_timeframe_reset_timestamp
	8) // timeframe_in_seconds

var vaultAccountDiscriminator = []byte{211, 8, 232, 43, 2, 152, 117, 119}

func (obj *Vault) Clone() *Vault {
	clone := *obj
	clone.Owner = append(ed25519.PublicKey{}, obj.Owner...)
	return &clone
}

func (obj *Vault) String() string {
	var owner string
	if obj.Owner != nil {
		owner = base58.Encode(obj.Owner)
	}

	return "Vault{" +
		"owner='" + owner + "'" +
		", bump='" + strconv.Itoa(int(obj.Bump)) + "'" +
		", spend_limit_per_transaction='" + strconv.FormatUint(obj.SpendLimitPerTransaction, 10) + "'" +
		", spend_limit_per_timeframe='" + strconv.FormatUint(obj.SpendLimitPerTimeframe, 10) + "'" +
		", remaining_spend_limit_per_timeframe='" + strconv.FormatUint(obj.RemainingSpendLimitPerTimeframe, 10) + "'" +
		", next_timeframe_reset_timestamp='" + strconv.FormatUint(obj.NextTimeframeResetTimestamp, 10) + "'" +
		", timeframe_in_seconds='" + strconv.FormatUint(obj.TimeframeInSeconds, 10) + "'" +
		"}"
}

func (obj *Vault) Marshal() []byte {
	data := make([]byte, VaultAccountSize)

	var offset int

	putDiscriminator(data, vaultAccountDiscriminator, &offset)
	putKey(data, obj.Owner, &offset)
	putUint8(data, obj.Bump, &offset)
	putUint64(data, obj.SpendLimitPerTransaction, &offset)
	putUint64(data, obj.SpendLimitPerTimeframe, &offset)
	putUint64(data, obj.RemainingSpendLimitPerTimeframe, &offset)
	putUint64(data, obj.NextTimeframeResetTimestamp, &offset)
	putUint64(data, obj.TimeframeInSeconds, &offset)

	return data
}

func (obj *Vault) Unmarshal(data []byte) error {
	if len(data) != VaultAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !sliceEq(discriminator, vaultAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getKey(data, &obj.Owner, &offset)
	getUint8(data, &obj.Bump, &offset)
	getUint64(data, &obj.SpendLimitPerTransaction, &offset)
	getUint64(data, &obj.SpendLimitPerTimeframe, &offset)
	getUint64(data, &obj.RemainingSpendLimitPerTimeframe, &offset)
	getUint64(data, &obj.NextTimeframeResetTimestamp, &offset)
	getUint64(data, &obj.TimeframeInSeconds, &offset)

	return nil
}

// CollateralRepayLedger holds the balance snapshots for one in-flight
// collateral repay. It never logically outlives a single atomic batch.
type CollateralRepayLedger struct {
	Deposit  uint64
	Withdraw uint64
}

const CollateralRepayLedgerAccountSize = (8 + // discriminator
	8 + // deposit
	8) // withdraw

var collateralRepayLedgerAccountDiscriminator = []byte{94, 172, 33, 240, 8, 150, 67, 203}

func (obj *CollateralRepayLedger) Marshal() []byte {
	data := make([]byte, CollateralRepayLedgerAccountSize)

	var offset int

	putDiscriminator(data, collateralRepayLedgerAccountDiscriminator, &offset)
	putUint64(data, obj.Deposit, &offset)
	putUint64(data, obj.Withdraw, &offset)

	return data
}

func (obj *CollateralRepayLedger) Unmarshal(data []byte) error {
	if len(data) != CollateralRepayLedgerAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !sliceEq(discriminator, collateralRepayLedgerAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getUint64(data, &obj.Deposit, &offset)
	getUint64(data, &obj.Withdraw, &offset)

	return nil
}

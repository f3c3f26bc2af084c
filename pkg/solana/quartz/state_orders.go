package quartz

import (
	"bytes"
	"crypto/ed25519"
)

func sliceEq(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// TimeLock gates an order from being acted on before its release slot. It is
// embedded in every order record. The rent destination is fixed at creation
// via IsOwnerPayer and never changes.
type TimeLock struct {
	Owner        ed25519.PublicKey
	IsOwnerPayer bool
	ReleaseSlot  uint64
}

const TimeLockSize = (32 + // owner
	1 + // is_owner_payer
	8) // release_slot

func putTimeLock(dst []byte, v *TimeLock, offset *int) {
	putKey(dst, v.Owner, offset)
	putBool(dst, v.IsOwnerPayer, offset)
	putUint64(dst, v.ReleaseSlot, offset)
}
func getTimeLock(src []byte, dst *TimeLock, offset *int) {
	getKey(src, &dst.Owner, offset)
	getBool(src, &dst.IsOwnerPayer, offset)
	getUint64(src, &dst.ReleaseSlot, offset)
}

// TimeLocked is implemented by the closed set of order records carrying a
// TimeLock.
type TimeLocked interface {
	TimeLock() *TimeLock
}

// WithdrawOrder is a time-locked request to pull funds out of the lending
// venue to a fixed destination.
type WithdrawOrder struct {
	Lock TimeLock

	AmountBaseUnits uint64
	MarketIndex     uint16
	ReduceOnly      bool
	Destination     ed25519.PublicKey
}

const WithdrawOrderAccountSize = (8 + // discriminator
	TimeLockSize +
	8 + // amount_base_units
	2 + // market_index
	1 + // reduce_only
	32) // destination

var withdrawOrderAccountDiscriminator = []byte{20, 75, 39, 186, 208, 228, 112, 6}

func (obj *WithdrawOrder) TimeLock() *TimeLock {
	return &obj.Lock
}

func (obj *WithdrawOrder) Marshal() []byte {
	data := make([]byte, WithdrawOrderAccountSize)

	var offset int

	putDiscriminator(data, withdrawOrderAccountDiscriminator, &offset)
	putTimeLock(data, &obj.Lock, &offset)
	putUint64(data, obj.AmountBaseUnits, &offset)
	putUint16(data, obj.MarketIndex, &offset)
	putBool(data, obj.ReduceOnly, &offset)
	putKey(data, obj.Destination, &offset)

	return data
}

func (obj *WithdrawOrder) Unmarshal(data []byte) error {
	if len(data) != WithdrawOrderAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !sliceEq(discriminator, withdrawOrderAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getTimeLock(data, &obj.Lock, &offset)
	getUint64(data, &obj.AmountBaseUnits, &offset)
	getUint16(data, &obj.MarketIndex, &offset)
	getBool(data, &obj.ReduceOnly, &offset)
	getKey(data, &obj.Destination, &offset)

	return nil
}

// SpendLimitsOrder is a time-locked request to replace the vault's spend
// limit configuration.
type SpendLimitsOrder struct {
	Lock TimeLock

	SpendLimitPerTransaction    uint64
	SpendLimitPerTimeframe      uint64
	TimeframeInSeconds          uint64
	NextTimeframeResetTimestamp uint64
}

const SpendLimitsOrderAccountSize = (8 + // discriminator
	TimeLockSize +
	8 + // spend_limit_per_transaction
	8 + // spend_limit_per_timeframe
	8 + // timeframe_in_seconds
	8) // next_timeframe_reset_timestamp

var spendLimitsOrderAccountDiscriminator = []byte{117, 204, 34, 81, 59, 222, 165, 15}

func (obj *SpendLimitsOrder) TimeLock() *TimeLock {
	return &obj.Lock
}

func (obj *SpendLimitsOrder) Marshal() []byte {
	data := make([]byte, SpendLimitsOrderAccountSize)

	var offset int

	putDiscriminator(data, spendLimitsOrderAccountDiscriminator, &offset)
	putTimeLock(data, &obj.Lock, &offset)
	putUint64(data, obj.SpendLimitPerTransaction, &offset)
	putUint64(data, obj.SpendLimitPerTimeframe, &offset)
	putUint64(data, obj.TimeframeInSeconds, &offset)
	putUint64(data, obj.NextTimeframeResetTimestamp, &offset)

	return data
}

func (obj *SpendLimitsOrder) Unmarshal(data []byte) error {
	if len(data) != SpendLimitsOrderAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !sliceEq(discriminator, spendLimitsOrderAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getTimeLock(data, &obj.Lock, &offset)
	getUint64(data, &obj.SpendLimitPerTransaction, &offset)
	getUint64(data, &obj.SpendLimitPerTimeframe, &offset)
	getUint64(data, &obj.TimeframeInSeconds, &offset)
	getUint64(data, &obj.NextTimeframeResetTimestamp, &offset)

	return nil
}

// SpendHold is a time-locked hold created at card authorization time. The
// amount is fixed at creation and not recomputed at settlement.
type SpendHold struct {
	Lock TimeLock

	AmountBaseUnits uint64
	SpendFee        bool
}

const SpendHoldAccountSize = (8 + // discriminator
	TimeLockSize +
	8 + // amount_base_units
	1) // spend_fee

var spendHoldAccountDiscriminator = []byte{160, 58, 136, 9, 77, 202, 190, 41}

func (obj *SpendHold) TimeLock() *TimeLock {
	return &obj.Lock
}

func (obj *SpendHold) Marshal() []byte {
	data := make([]byte, SpendHoldAccountSize)

	var offset int

	putDiscriminator(data, spendHoldAccountDiscriminator, &offset)
	putTimeLock(data, &obj.Lock, &offset)
	putUint64(data, obj.AmountBaseUnits, &offset)
	putBool(data, obj.SpendFee, &offset)

	return data
}

func (obj *SpendHold) Unmarshal(data []byte) error {
	if len(data) != SpendHoldAccountSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !sliceEq(discriminator, spendHoldAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	getTimeLock(data, &obj.Lock, &offset)
	getUint64(data, &obj.AmountBaseUnits, &offset)
	getBool(data, &obj.SpendFee, &offset)

	return nil
}

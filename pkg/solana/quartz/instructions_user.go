package quartz

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

var (
	InitUserInstructionDiscriminator          = []byte{93, 39, 255, 186, 20, 124, 9, 17}
	CloseUserInstructionDiscriminator         = []byte{230, 21, 95, 38, 195, 82, 112, 254}
	AdjustSpendLimitsInstructionDiscriminator = []byte{198, 77, 4, 170, 53, 46, 127, 88}
)

const (
	InitUserInstructionArgsSize = (8 + // SpendLimitPerTransaction
		8 + // SpendLimitPerTimeframe
		8 + // TimeframeInSeconds
		8) // NextTimeframeResetTimestamp

	AdjustSpendLimitsInstructionArgsSize = InitUserInstructionArgsSize
)

type SpendLimitsArgs struct {
	SpendLimitPerTransaction    uint64
	SpendLimitPerTimeframe      uint64
	TimeframeInSeconds          uint64
	NextTimeframeResetTimestamp uint64
}

func putSpendLimitsArgs(dst []byte, args *SpendLimitsArgs, offset *int) {
	putUint64(dst, args.SpendLimitPerTransaction, offset)
	putUint64(dst, args.SpendLimitPerTimeframe, offset)
	putUint64(dst, args.TimeframeInSeconds, offset)
	putUint64(dst, args.NextTimeframeResetTimestamp, offset)
}
func getSpendLimitsArgs(src []byte, dst *SpendLimitsArgs, offset *int) {
	getUint64(src, &dst.SpendLimitPerTransaction, offset)
	getUint64(src, &dst.SpendLimitPerTimeframe, offset)
	getUint64(src, &dst.TimeframeInSeconds, offset)
	getUint64(src, &dst.NextTimeframeResetTimestamp, offset)
}

type InitUserInstructionAccounts struct {
	Owner ed25519.PublicKey
	Vault ed25519.PublicKey
}

func NewInitUserInstruction(
	accounts *InitUserInstructionAccounts,
	args *SpendLimitsArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(InitUserInstructionDiscriminator)+
			InitUserInstructionArgsSize)

	putDiscriminator(data, InitUserInstructionDiscriminator, &offset)
	putSpendLimitsArgs(data, args, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type CloseUserInstructionAccounts struct {
	Owner           ed25519.PublicKey
	Vault           ed25519.PublicKey
	RentDestination ed25519.PublicKey
}

func NewCloseUserInstruction(accounts *CloseUserInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(CloseUserInstructionDiscriminator))
	putDiscriminator(data, CloseUserInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.RentDestination, false),
	)
}

type AdjustSpendLimitsInstructionAccounts struct {
	Owner ed25519.PublicKey
	Vault ed25519.PublicKey
}

// NewAdjustSpendLimitsInstruction builds the immediate spend limit
// adjustment. Limits may only be raised this way; lowering goes through the
// time-locked order flow.
func NewAdjustSpendLimitsInstruction(
	accounts *AdjustSpendLimitsInstructionAccounts,
	args *SpendLimitsArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(AdjustSpendLimitsInstructionDiscriminator)+
			AdjustSpendLimitsInstructionArgsSize)

	putDiscriminator(data, AdjustSpendLimitsInstructionDiscriminator, &offset)
	putSpendLimitsArgs(data, args, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewReadonlyAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.Vault, false),
	)
}

// GetSpendLimitsArgs decodes the spend limit argument block shared by
// InitUser, AdjustSpendLimits and InitiateSpendLimits.
func GetSpendLimitsArgs(data []byte, discriminator []byte) (*SpendLimitsArgs, error) {
	if len(data) != len(discriminator)+InitUserInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var actual []byte
	getDiscriminator(data, &actual, &offset)
	if !sliceEq(actual, discriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args SpendLimitsArgs
	getSpendLimitsArgs(data, &args, &offset)

	return &args, nil
}

package quartz

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

var (
	InitiateSpendInstructionDiscriminator       = []byte{134, 72, 201, 59, 183, 19, 184, 228}
	FulfilSpendInstructionDiscriminator         = []byte{25, 96, 145, 230, 48, 11, 243, 162}
	CancelSpendInstructionDiscriminator         = []byte{66, 121, 5, 227, 84, 169, 160, 90}
	InitiateSpendLimitsInstructionDiscriminator = []byte{116, 205, 34, 84, 217, 144, 6, 150}
	FulfilSpendLimitsInstructionDiscriminator   = []byte{41, 223, 152, 27, 98, 175, 77, 235}
)

const (
	InitiateSpendInstructionArgsSize = (8 + // AmountBaseUnits
		1) // SpendFee
)

type InitiateSpendInstructionArgs struct {
	AmountBaseUnits uint64
	SpendFee        bool
}

// GetInitiateSpendArgs decodes InitiateSpend instruction data.
func GetInitiateSpendArgs(data []byte) (*InitiateSpendInstructionArgs, error) {
	if len(data) != len(InitiateSpendInstructionDiscriminator)+InitiateSpendInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var actual []byte
	getDiscriminator(data, &actual, &offset)
	if !sliceEq(actual, InitiateSpendInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args InitiateSpendInstructionArgs
	getUint64(data, &args.AmountBaseUnits, &offset)
	getBool(data, &args.SpendFee, &offset)

	return &args, nil
}

type InitiateSpendInstructionAccounts struct {
	SpendCaller         ed25519.PublicKey
	Owner               ed25519.PublicKey
	Vault               ed25519.PublicKey
	SpendHold           ed25519.PublicKey
	TimeLockRentPayer   ed25519.PublicKey
	Mule                ed25519.PublicKey
	UsdcMint            ed25519.PublicKey
	SpendFeeDestination ed25519.PublicKey
}

func NewInitiateSpendInstruction(
	accounts *InitiateSpendInstructionAccounts,
	args *InitiateSpendInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(InitiateSpendInstructionDiscriminator)+
			InitiateSpendInstructionArgsSize)

	putDiscriminator(data, InitiateSpendInstructionDiscriminator, &offset)
	putUint64(data, args.AmountBaseUnits, &offset)
	putBool(data, args.SpendFee, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.SpendCaller, true),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.SpendHold, true),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.UsdcMint, false),
		solana.NewAccountMeta(accounts.SpendFeeDestination, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type FulfilSpendInstructionAccounts struct {
	SpendCaller           ed25519.PublicKey
	Owner                 ed25519.PublicKey
	Vault                 ed25519.PublicKey
	SpendHold             ed25519.PublicKey
	TimeLockRentPayer     ed25519.PublicKey
	Mule                  ed25519.PublicKey
	UsdcMint              ed25519.PublicKey
	SettlementDestination ed25519.PublicKey
	SpendFeeDestination   ed25519.PublicKey
}

func NewFulfilSpendInstruction(accounts *FulfilSpendInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(FulfilSpendInstructionDiscriminator))
	putDiscriminator(data, FulfilSpendInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.SpendCaller, true),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.SpendHold, false),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.UsdcMint, false),
		solana.NewAccountMeta(accounts.SettlementDestination, false),
		solana.NewAccountMeta(accounts.SpendFeeDestination, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
	)
}

type CancelSpendInstructionAccounts struct {
	SpendCaller       ed25519.PublicKey
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	SpendHold         ed25519.PublicKey
	TimeLockRentPayer ed25519.PublicKey
	Mule              ed25519.PublicKey
	UsdcMint          ed25519.PublicKey
}

func NewCancelSpendInstruction(accounts *CancelSpendInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(CancelSpendInstructionDiscriminator))
	putDiscriminator(data, CancelSpendInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.SpendCaller, true),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.SpendHold, false),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.UsdcMint, false),
	)
}

type InitiateSpendLimitsInstructionAccounts struct {
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	SpendLimitsOrder  ed25519.PublicKey
	TimeLockRentPayer ed25519.PublicKey
}

func NewInitiateSpendLimitsInstruction(
	accounts *InitiateSpendLimitsInstructionAccounts,
	args *SpendLimitsArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(InitiateSpendLimitsInstructionDiscriminator)+
			AdjustSpendLimitsInstructionArgsSize)

	putDiscriminator(data, InitiateSpendLimitsInstructionDiscriminator, &offset)
	putSpendLimitsArgs(data, args, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.SpendLimitsOrder, true),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type FulfilSpendLimitsInstructionAccounts struct {
	Caller            ed25519.PublicKey
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	SpendLimitsOrder  ed25519.PublicKey
	TimeLockRentPayer ed25519.PublicKey
}

func NewFulfilSpendLimitsInstruction(accounts *FulfilSpendLimitsInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(FulfilSpendLimitsInstructionDiscriminator))
	putDiscriminator(data, FulfilSpendLimitsInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Caller, true),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.SpendLimitsOrder, false),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
	)
}

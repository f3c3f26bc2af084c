package quartz

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

var (
	DepositInstructionDiscriminator          = []byte{242, 35, 198, 137, 82, 225, 242, 182}
	WithdrawInstructionDiscriminator         = []byte{183, 18, 70, 156, 148, 109, 161, 34}
	InitiateWithdrawInstructionDiscriminator = []byte{73, 122, 200, 6, 19, 240, 97, 55}
	FulfilWithdrawInstructionDiscriminator   = []byte{37, 131, 9, 61, 120, 201, 54, 108}
	CancelWithdrawInstructionDiscriminator   = []byte{85, 206, 23, 79, 174, 11, 144, 70}
)

const (
	BalanceInstructionArgsSize = (8 + // AmountBaseUnits
		2 + // MarketIndex
		1) // ReduceOnly
)

// BalanceInstructionArgs is the argument block shared by Deposit, Withdraw
// and InitiateWithdraw.
type BalanceInstructionArgs struct {
	AmountBaseUnits uint64
	MarketIndex     uint16
	ReduceOnly      bool
}

func putBalanceArgs(dst []byte, args *BalanceInstructionArgs, offset *int) {
	putUint64(dst, args.AmountBaseUnits, offset)
	putUint16(dst, args.MarketIndex, offset)
	putBool(dst, args.ReduceOnly, offset)
}
func getBalanceArgs(src []byte, dst *BalanceInstructionArgs, offset *int) {
	getUint64(src, &dst.AmountBaseUnits, offset)
	getUint16(src, &dst.MarketIndex, offset)
	getBool(src, &dst.ReduceOnly, offset)
}

// GetBalanceArgs decodes the shared balance argument block, checking the
// expected instruction discriminator.
func GetBalanceArgs(data []byte, discriminator []byte) (*BalanceInstructionArgs, error) {
	if len(data) != len(discriminator)+BalanceInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var actual []byte
	getDiscriminator(data, &actual, &offset)
	if !sliceEq(actual, discriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args BalanceInstructionArgs
	getBalanceArgs(data, &args, &offset)

	return &args, nil
}

type DepositInstructionAccounts struct {
	Owner    ed25519.PublicKey
	Vault    ed25519.PublicKey
	OwnerSpl ed25519.PublicKey
	Mule     ed25519.PublicKey
	Mint     ed25519.PublicKey
}

func NewDepositInstruction(
	accounts *DepositInstructionAccounts,
	args *BalanceInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(DepositInstructionDiscriminator)+
			BalanceInstructionArgsSize)

	putDiscriminator(data, DepositInstructionDiscriminator, &offset)
	putBalanceArgs(data, args, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.OwnerSpl, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type WithdrawInstructionAccounts struct {
	Owner          ed25519.PublicKey
	Vault          ed25519.PublicKey
	DestinationSpl ed25519.PublicKey
	Mule           ed25519.PublicKey
	Mint           ed25519.PublicKey
}

func NewWithdrawInstruction(
	accounts *WithdrawInstructionAccounts,
	args *BalanceInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(WithdrawInstructionDiscriminator)+
			BalanceInstructionArgsSize)

	putDiscriminator(data, WithdrawInstructionDiscriminator, &offset)
	putBalanceArgs(data, args, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.DestinationSpl, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type InitiateWithdrawInstructionAccounts struct {
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	WithdrawOrder     ed25519.PublicKey
	TimeLockRentPayer ed25519.PublicKey
	Destination       ed25519.PublicKey
}

func NewInitiateWithdrawInstruction(
	accounts *InitiateWithdrawInstructionAccounts,
	args *BalanceInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(InitiateWithdrawInstructionDiscriminator)+
			BalanceInstructionArgsSize)

	putDiscriminator(data, InitiateWithdrawInstructionDiscriminator, &offset)
	putBalanceArgs(data, args, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.WithdrawOrder, true),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
		solana.NewReadonlyAccountMeta(accounts.Destination, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type FulfilWithdrawInstructionAccounts struct {
	Caller            ed25519.PublicKey
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	WithdrawOrder     ed25519.PublicKey
	TimeLockRentPayer ed25519.PublicKey
	Mule              ed25519.PublicKey
	Mint              ed25519.PublicKey
	Destination       ed25519.PublicKey
	DepositAddress    ed25519.PublicKey
}

func NewFulfilWithdrawInstruction(accounts *FulfilWithdrawInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(FulfilWithdrawInstructionDiscriminator))
	putDiscriminator(data, FulfilWithdrawInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Caller, true),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.WithdrawOrder, false),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewAccountMeta(accounts.Destination, false),
		solana.NewAccountMeta(accounts.DepositAddress, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type CancelWithdrawInstructionAccounts struct {
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	WithdrawOrder     ed25519.PublicKey
	TimeLockRentPayer ed25519.PublicKey
}

func NewCancelWithdrawInstruction(accounts *CancelWithdrawInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(CancelWithdrawInstructionDiscriminator))
	putDiscriminator(data, CancelWithdrawInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Owner, true),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.WithdrawOrder, false),
		solana.NewAccountMeta(accounts.TimeLockRentPayer, false),
	)
}

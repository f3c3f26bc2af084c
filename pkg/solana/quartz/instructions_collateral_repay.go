package quartz

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

var (
	StartCollateralRepayInstructionDiscriminator    = []byte{187, 103, 225, 16, 130, 241, 70, 12}
	DepositCollateralRepayInstructionDiscriminator  = []byte{35, 170, 209, 75, 96, 134, 228, 58}
	WithdrawCollateralRepayInstructionDiscriminator = []byte{57, 245, 112, 88, 191, 46, 204, 131}
)

const CollateralRepayInstructionArgsSize = 2 // MarketIndex

type CollateralRepayInstructionArgs struct {
	MarketIndex uint16
}

// GetCollateralRepayArgs decodes the data of a DepositCollateralRepay or
// WithdrawCollateralRepay instruction, identified by discriminator.
func GetCollateralRepayArgs(data []byte, discriminator []byte) (*CollateralRepayInstructionArgs, error) {
	if len(data) != len(discriminator)+CollateralRepayInstructionArgsSize {
		return nil, ErrInvalidInstructionData
	}

	var offset int
	var actual []byte
	getDiscriminator(data, &actual, &offset)
	if !sliceEq(actual, discriminator) {
		return nil, ErrInvalidInstructionData
	}

	var args CollateralRepayInstructionArgs
	getUint16(data, &args.MarketIndex, &offset)

	return &args, nil
}

type StartCollateralRepayInstructionAccounts struct {
	Caller            ed25519.PublicKey
	CallerDepositSpl  ed25519.PublicKey
	CallerWithdrawSpl ed25519.PublicKey
	Owner             ed25519.PublicKey
	Vault             ed25519.PublicKey
	Ledger            ed25519.PublicKey
}

func NewStartCollateralRepayInstruction(accounts *StartCollateralRepayInstructionAccounts) solana.Instruction {
	var offset int

	data := make([]byte, len(StartCollateralRepayInstructionDiscriminator))
	putDiscriminator(data, StartCollateralRepayInstructionDiscriminator, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Caller, true),
		solana.NewAccountMeta(accounts.CallerDepositSpl, false),
		solana.NewAccountMeta(accounts.CallerWithdrawSpl, false),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewReadonlyAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Ledger, false),
		solana.NewReadonlyAccountMeta(SYSVAR_INSTRUCTIONS_PUBKEY, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
	)
}

type DepositCollateralRepayInstructionAccounts struct {
	Caller    ed25519.PublicKey
	CallerSpl ed25519.PublicKey
	Owner     ed25519.PublicKey
	Vault     ed25519.PublicKey
	Mule      ed25519.PublicKey
	Mint      ed25519.PublicKey
	DriftUser ed25519.PublicKey
	Ledger    ed25519.PublicKey
}

func NewDepositCollateralRepayInstruction(
	accounts *DepositCollateralRepayInstructionAccounts,
	args *CollateralRepayInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(DepositCollateralRepayInstructionDiscriminator)+
			CollateralRepayInstructionArgsSize)

	putDiscriminator(data, DepositCollateralRepayInstructionDiscriminator, &offset)
	putUint16(data, args.MarketIndex, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Caller, true),
		solana.NewAccountMeta(accounts.CallerSpl, false),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewAccountMeta(accounts.DriftUser, false),
		solana.NewAccountMeta(accounts.Ledger, false),
		solana.NewReadonlyAccountMeta(SYSVAR_INSTRUCTIONS_PUBKEY, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
	)
}

type WithdrawCollateralRepayInstructionAccounts struct {
	Caller              ed25519.PublicKey
	CallerSpl           ed25519.PublicKey
	Owner               ed25519.PublicKey
	Vault               ed25519.PublicKey
	Mule                ed25519.PublicKey
	Mint                ed25519.PublicKey
	DriftUser           ed25519.PublicKey
	DepositPriceUpdate  ed25519.PublicKey
	WithdrawPriceUpdate ed25519.PublicKey
	Ledger              ed25519.PublicKey
}

func NewWithdrawCollateralRepayInstruction(
	accounts *WithdrawCollateralRepayInstructionAccounts,
	args *CollateralRepayInstructionArgs,
) solana.Instruction {
	var offset int

	data := make([]byte,
		len(WithdrawCollateralRepayInstructionDiscriminator)+
			CollateralRepayInstructionArgsSize)

	putDiscriminator(data, WithdrawCollateralRepayInstructionDiscriminator, &offset)
	putUint16(data, args.MarketIndex, &offset)

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Caller, true),
		solana.NewAccountMeta(accounts.CallerSpl, false),
		solana.NewReadonlyAccountMeta(accounts.Owner, false),
		solana.NewAccountMeta(accounts.Vault, false),
		solana.NewAccountMeta(accounts.Mule, false),
		solana.NewReadonlyAccountMeta(accounts.Mint, false),
		solana.NewAccountMeta(accounts.DriftUser, false),
		solana.NewReadonlyAccountMeta(accounts.DepositPriceUpdate, false),
		solana.NewReadonlyAccountMeta(accounts.WithdrawPriceUpdate, false),
		solana.NewAccountMeta(accounts.Ledger, false),
		solana.NewReadonlyAccountMeta(SYSVAR_INSTRUCTIONS_PUBKEY, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
	)
}

package quartz

import (
	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

func checkInstruction(ixn solana.Instruction, discriminator []byte, accountCount int) error {
	if !ixn.IsForProgram(PROGRAM_ID) {
		return ErrInvalidProgram
	}
	if !ixn.HasDiscriminator(discriminator) {
		return ErrInvalidInstructionData
	}
	if len(ixn.Accounts) != accountCount {
		return ErrInvalidInstructionData
	}
	return nil
}

type DecompiledInitUser struct {
	Accounts InitUserInstructionAccounts
	Args     SpendLimitsArgs
}

func DecompileInitUser(ixn solana.Instruction) (*DecompiledInitUser, error) {
	if err := checkInstruction(ixn, InitUserInstructionDiscriminator, 3); err != nil {
		return nil, err
	}

	args, err := GetSpendLimitsArgs(ixn.Data, InitUserInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledInitUser{
		Accounts: InitUserInstructionAccounts{
			Owner: ixn.Account(0),
			Vault: ixn.Account(1),
		},
		Args: *args,
	}, nil
}

type DecompiledCloseUser struct {
	Accounts CloseUserInstructionAccounts
}

func DecompileCloseUser(ixn solana.Instruction) (*DecompiledCloseUser, error) {
	if err := checkInstruction(ixn, CloseUserInstructionDiscriminator, 3); err != nil {
		return nil, err
	}

	return &DecompiledCloseUser{
		Accounts: CloseUserInstructionAccounts{
			Owner:           ixn.Account(0),
			Vault:           ixn.Account(1),
			RentDestination: ixn.Account(2),
		},
	}, nil
}

type DecompiledAdjustSpendLimits struct {
	Accounts AdjustSpendLimitsInstructionAccounts
	Args     SpendLimitsArgs
}

func DecompileAdjustSpendLimits(ixn solana.Instruction) (*DecompiledAdjustSpendLimits, error) {
	if err := checkInstruction(ixn, AdjustSpendLimitsInstructionDiscriminator, 2); err != nil {
		return nil, err
	}

	args, err := GetSpendLimitsArgs(ixn.Data, AdjustSpendLimitsInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledAdjustSpendLimits{
		Accounts: AdjustSpendLimitsInstructionAccounts{
			Owner: ixn.Account(0),
			Vault: ixn.Account(1),
		},
		Args: *args,
	}, nil
}

type DecompiledDeposit struct {
	Accounts DepositInstructionAccounts
	Args     BalanceInstructionArgs
}

func DecompileDeposit(ixn solana.Instruction) (*DecompiledDeposit, error) {
	if err := checkInstruction(ixn, DepositInstructionDiscriminator, 7); err != nil {
		return nil, err
	}

	args, err := GetBalanceArgs(ixn.Data, DepositInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledDeposit{
		Accounts: DepositInstructionAccounts{
			Owner:    ixn.Account(0),
			Vault:    ixn.Account(1),
			OwnerSpl: ixn.Account(2),
			Mule:     ixn.Account(3),
			Mint:     ixn.Account(4),
		},
		Args: *args,
	}, nil
}

type DecompiledWithdraw struct {
	Accounts WithdrawInstructionAccounts
	Args     BalanceInstructionArgs
}

func DecompileWithdraw(ixn solana.Instruction) (*DecompiledWithdraw, error) {
	if err := checkInstruction(ixn, WithdrawInstructionDiscriminator, 7); err != nil {
		return nil, err
	}

	args, err := GetBalanceArgs(ixn.Data, WithdrawInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledWithdraw{
		Accounts: WithdrawInstructionAccounts{
			Owner:          ixn.Account(0),
			Vault:          ixn.Account(1),
			DestinationSpl: ixn.Account(2),
			Mule:           ixn.Account(3),
			Mint:           ixn.Account(4),
		},
		Args: *args,
	}, nil
}

type DecompiledInitiateWithdraw struct {
	Accounts InitiateWithdrawInstructionAccounts
	Args     BalanceInstructionArgs
}

func DecompileInitiateWithdraw(ixn solana.Instruction) (*DecompiledInitiateWithdraw, error) {
	if err := checkInstruction(ixn, InitiateWithdrawInstructionDiscriminator, 6); err != nil {
		return nil, err
	}

	args, err := GetBalanceArgs(ixn.Data, InitiateWithdrawInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledInitiateWithdraw{
		Accounts: InitiateWithdrawInstructionAccounts{
			Owner:             ixn.Account(0),
			Vault:             ixn.Account(1),
			WithdrawOrder:     ixn.Account(2),
			TimeLockRentPayer: ixn.Account(3),
			Destination:       ixn.Account(4),
		},
		Args: *args,
	}, nil
}

type DecompiledFulfilWithdraw struct {
	Accounts FulfilWithdrawInstructionAccounts
}

func DecompileFulfilWithdraw(ixn solana.Instruction) (*DecompiledFulfilWithdraw, error) {
	if err := checkInstruction(ixn, FulfilWithdrawInstructionDiscriminator, 11); err != nil {
		return nil, err
	}

	return &DecompiledFulfilWithdraw{
		Accounts: FulfilWithdrawInstructionAccounts{
			Caller:            ixn.Account(0),
			Owner:             ixn.Account(1),
			Vault:             ixn.Account(2),
			WithdrawOrder:     ixn.Account(3),
			TimeLockRentPayer: ixn.Account(4),
			Mule:              ixn.Account(5),
			Mint:              ixn.Account(6),
			Destination:       ixn.Account(7),
			DepositAddress:    ixn.Account(8),
		},
	}, nil
}

type DecompiledCancelWithdraw struct {
	Accounts CancelWithdrawInstructionAccounts
}

func DecompileCancelWithdraw(ixn solana.Instruction) (*DecompiledCancelWithdraw, error) {
	if err := checkInstruction(ixn, CancelWithdrawInstructionDiscriminator, 4); err != nil {
		return nil, err
	}

	return &DecompiledCancelWithdraw{
		Accounts: CancelWithdrawInstructionAccounts{
			Owner:             ixn.Account(0),
			Vault:             ixn.Account(1),
			WithdrawOrder:     ixn.Account(2),
			TimeLockRentPayer: ixn.Account(3),
		},
	}, nil
}

type DecompiledInitiateSpend struct {
	Accounts InitiateSpendInstructionAccounts
	Args     InitiateSpendInstructionArgs
}

func DecompileInitiateSpend(ixn solana.Instruction) (*DecompiledInitiateSpend, error) {
	if err := checkInstruction(ixn, InitiateSpendInstructionDiscriminator, 10); err != nil {
		return nil, err
	}

	args, err := GetInitiateSpendArgs(ixn.Data)
	if err != nil {
		return nil, err
	}

	return &DecompiledInitiateSpend{
		Accounts: InitiateSpendInstructionAccounts{
			SpendCaller:         ixn.Account(0),
			Owner:               ixn.Account(1),
			Vault:               ixn.Account(2),
			SpendHold:           ixn.Account(3),
			TimeLockRentPayer:   ixn.Account(4),
			Mule:                ixn.Account(5),
			UsdcMint:            ixn.Account(6),
			SpendFeeDestination: ixn.Account(7),
		},
		Args: *args,
	}, nil
}

type DecompiledFulfilSpend struct {
	Accounts FulfilSpendInstructionAccounts
}

func DecompileFulfilSpend(ixn solana.Instruction) (*DecompiledFulfilSpend, error) {
	if err := checkInstruction(ixn, FulfilSpendInstructionDiscriminator, 10); err != nil {
		return nil, err
	}

	return &DecompiledFulfilSpend{
		Accounts: FulfilSpendInstructionAccounts{
			SpendCaller:           ixn.Account(0),
			Owner:                 ixn.Account(1),
			Vault:                 ixn.Account(2),
			SpendHold:             ixn.Account(3),
			TimeLockRentPayer:     ixn.Account(4),
			Mule:                  ixn.Account(5),
			UsdcMint:              ixn.Account(6),
			SettlementDestination: ixn.Account(7),
			SpendFeeDestination:   ixn.Account(8),
		},
	}, nil
}

type DecompiledCancelSpend struct {
	Accounts CancelSpendInstructionAccounts
}

func DecompileCancelSpend(ixn solana.Instruction) (*DecompiledCancelSpend, error) {
	if err := checkInstruction(ixn, CancelSpendInstructionDiscriminator, 7); err != nil {
		return nil, err
	}

	return &DecompiledCancelSpend{
		Accounts: CancelSpendInstructionAccounts{
			SpendCaller:       ixn.Account(0),
			Owner:             ixn.Account(1),
			Vault:             ixn.Account(2),
			SpendHold:         ixn.Account(3),
			TimeLockRentPayer: ixn.Account(4),
			Mule:              ixn.Account(5),
			UsdcMint:          ixn.Account(6),
		},
	}, nil
}

type DecompiledInitiateSpendLimits struct {
	Accounts InitiateSpendLimitsInstructionAccounts
	Args     SpendLimitsArgs
}

func DecompileInitiateSpendLimits(ixn solana.Instruction) (*DecompiledInitiateSpendLimits, error) {
	if err := checkInstruction(ixn, InitiateSpendLimitsInstructionDiscriminator, 5); err != nil {
		return nil, err
	}

	args, err := GetSpendLimitsArgs(ixn.Data, InitiateSpendLimitsInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledInitiateSpendLimits{
		Accounts: InitiateSpendLimitsInstructionAccounts{
			Owner:             ixn.Account(0),
			Vault:             ixn.Account(1),
			SpendLimitsOrder:  ixn.Account(2),
			TimeLockRentPayer: ixn.Account(3),
		},
		Args: *args,
	}, nil
}

type DecompiledFulfilSpendLimits struct {
	Accounts FulfilSpendLimitsInstructionAccounts
}

func DecompileFulfilSpendLimits(ixn solana.Instruction) (*DecompiledFulfilSpendLimits, error) {
	if err := checkInstruction(ixn, FulfilSpendLimitsInstructionDiscriminator, 5); err != nil {
		return nil, err
	}

	return &DecompiledFulfilSpendLimits{
		Accounts: FulfilSpendLimitsInstructionAccounts{
			Caller:            ixn.Account(0),
			Owner:             ixn.Account(1),
			Vault:             ixn.Account(2),
			SpendLimitsOrder:  ixn.Account(3),
			TimeLockRentPayer: ixn.Account(4),
		},
	}, nil
}

type DecompiledStartCollateralRepay struct {
	Accounts StartCollateralRepayInstructionAccounts
}

func DecompileStartCollateralRepay(ixn solana.Instruction) (*DecompiledStartCollateralRepay, error) {
	if err := checkInstruction(ixn, StartCollateralRepayInstructionDiscriminator, 8); err != nil {
		return nil, err
	}

	return &DecompiledStartCollateralRepay{
		Accounts: StartCollateralRepayInstructionAccounts{
			Caller:            ixn.Account(0),
			CallerDepositSpl:  ixn.Account(1),
			CallerWithdrawSpl: ixn.Account(2),
			Owner:             ixn.Account(3),
			Vault:             ixn.Account(4),
			Ledger:            ixn.Account(5),
		},
	}, nil
}

type DecompiledDepositCollateralRepay struct {
	Accounts DepositCollateralRepayInstructionAccounts
	Args     CollateralRepayInstructionArgs
}

func DecompileDepositCollateralRepay(ixn solana.Instruction) (*DecompiledDepositCollateralRepay, error) {
	if err := checkInstruction(ixn, DepositCollateralRepayInstructionDiscriminator, 10); err != nil {
		return nil, err
	}

	args, err := GetCollateralRepayArgs(ixn.Data, DepositCollateralRepayInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledDepositCollateralRepay{
		Accounts: DepositCollateralRepayInstructionAccounts{
			Caller:    ixn.Account(0),
			CallerSpl: ixn.Account(1),
			Owner:     ixn.Account(2),
			Vault:     ixn.Account(3),
			Mule:      ixn.Account(4),
			Mint:      ixn.Account(5),
			DriftUser: ixn.Account(6),
			Ledger:    ixn.Account(7),
		},
		Args: *args,
	}, nil
}

type DecompiledWithdrawCollateralRepay struct {
	Accounts WithdrawCollateralRepayInstructionAccounts
	Args     CollateralRepayInstructionArgs
}

func DecompileWithdrawCollateralRepay(ixn solana.Instruction) (*DecompiledWithdrawCollateralRepay, error) {
	if err := checkInstruction(ixn, WithdrawCollateralRepayInstructionDiscriminator, 12); err != nil {
		return nil, err
	}

	args, err := GetCollateralRepayArgs(ixn.Data, WithdrawCollateralRepayInstructionDiscriminator)
	if err != nil {
		return nil, err
	}

	return &DecompiledWithdrawCollateralRepay{
		Accounts: WithdrawCollateralRepayInstructionAccounts{
			Caller:              ixn.Account(0),
			CallerSpl:           ixn.Account(1),
			Owner:               ixn.Account(2),
			Vault:               ixn.Account(3),
			Mule:                ixn.Account(4),
			Mint:                ixn.Account(5),
			DriftUser:           ixn.Account(6),
			DepositPriceUpdate:  ixn.Account(7),
			WithdrawPriceUpdate: ixn.Account(8),
			Ledger:              ixn.Account(9),
		},
		Args: *args,
	}, nil
}

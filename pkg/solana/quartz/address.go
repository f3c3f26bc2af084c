package quartz

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

var (
	vaultPrefix          = []byte("vault")
	ledgerPrefix         = []byte("collateral_repay_ledger")
	withdrawMulePrefix   = []byte("withdraw_mule")
	spendMulePrefix      = []byte("spend_mule")
	depositAddressPrefix = []byte("deposit_address")
	rentPayerPrefix      = []byte("time_lock_rent_payer")
)

// GetVaultAddress derives the vault account for an owner.
func GetVaultAddress(owner ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		vaultPrefix,
		owner,
	)
}

// GetCollateralRepayLedgerAddress derives the per-user balance snapshot
// account used by the collateral repay flow.
func GetCollateralRepayLedgerAddress(owner ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		ledgerPrefix,
		owner,
	)
}

// GetRepayMuleAddress derives the ephemeral holding account for one
// (vault, mint) pair. At most one can exist at a time.
func GetRepayMuleAddress(vault, mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		vault,
		mint,
	)
}

// GetWithdrawMuleAddress derives the holding account used while fulfilling a
// withdraw order.
func GetWithdrawMuleAddress(owner, mint ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		withdrawMulePrefix,
		owner,
		mint,
	)
}

// GetSpendMuleAddress derives the holding account backing a spend hold.
func GetSpendMuleAddress(owner ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		spendMulePrefix,
		owner,
	)
}

// GetDepositAddress derives the account anyone can send tokens to for
// deposits on behalf of a vault.
func GetDepositAddress(vault ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		depositAddressPrefix,
		vault,
	)
}

// GetTimeLockRentPayerAddress derives the shared rent payer used when an
// order's storage deposit is fronted by the program instead of the owner.
func GetTimeLockRentPayerAddress() (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		PROGRAM_ID,
		rentPayerPrefix,
	)
}

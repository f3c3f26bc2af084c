package jupiter

import (
	"crypto/ed25519"

	"github.com/quartz-labs/quartz-protocol/pkg/solana"
)

// ExactOutRoute account layout
const (
	userTransferAuthorityIndex   = 1
	sourceTokenAccountIndex      = 2
	destinationTokenAccountIndex = 3
	sourceMintIndex              = 5
	destinationMintIndex         = 6

	minExactOutRouteAccounts = 11
)

type DecompiledExactOutRoute struct {
	UserTransferAuthority   ed25519.PublicKey
	SourceTokenAccount      ed25519.PublicKey
	DestinationTokenAccount ed25519.PublicKey
	SourceMint              ed25519.PublicKey
	DestinationMint         ed25519.PublicKey

	OutAmount      uint64
	PlatformFeeBps uint8
}

// DecompileExactOutRoute parses the parts of a whitelisted swap instruction
// that collateral repay cross-checks against its sibling instructions.
func DecompileExactOutRoute(ixn solana.Instruction) (*DecompiledExactOutRoute, error) {
	if !ixn.IsForProgram(PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}
	if !ixn.HasDiscriminator(ExactOutRouteInstructionDiscriminator) {
		return nil, ErrInvalidInstructionData
	}
	if len(ixn.Accounts) < minExactOutRouteAccounts {
		return nil, ErrInvalidInstructionData
	}

	outAmount, err := GetExactOutRouteOutAmount(ixn.Data)
	if err != nil {
		return nil, err
	}

	platformFeeBps, err := GetExactOutRoutePlatformFeeBps(ixn.Data)
	if err != nil {
		return nil, err
	}

	return &DecompiledExactOutRoute{
		UserTransferAuthority:   ixn.Account(userTransferAuthorityIndex),
		SourceTokenAccount:      ixn.Account(sourceTokenAccountIndex),
		DestinationTokenAccount: ixn.Account(destinationTokenAccountIndex),
		SourceMint:              ixn.Account(sourceMintIndex),
		DestinationMint:         ixn.Account(destinationMintIndex),

		OutAmount:      outAmount,
		PlatformFeeBps: platformFeeBps,
	}, nil
}

// Package jupiter provides read-only bindings for the whitelisted Jupiter
// swap router. Only the ExactOutRoute instruction is recognized; collateral
// repay batches reject any other swap.
package jupiter

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var ExactOutRouteInstructionDiscriminator = []byte{208, 51, 239, 151, 123, 43, 237, 92}

// ExactOutRoute argument blocks end with a fixed-size tail after the
// variable-length route plan:
//
//	out_amount u64 | quoted_in_amount u64 | slippage_bps u16 | platform_fee_bps u8
const (
	exactOutRouteTailSize    = 8 + 8 + 2 + 1
	outAmountTailOffset      = exactOutRouteTailSize
	platformFeeBpsTailOffset = 1
	minExactOutRouteDataSize = 8 + exactOutRouteTailSize
)

// GetExactOutRouteOutAmount extracts the exact output amount a swap
// instruction is quoted to deliver.
func GetExactOutRouteOutAmount(data []byte) (uint64, error) {
	if len(data) < minExactOutRouteDataSize {
		return 0, ErrInvalidInstructionData
	}

	start := len(data) - outAmountTailOffset
	return binary.LittleEndian.Uint64(data[start : start+8]), nil
}

// GetExactOutRoutePlatformFeeBps extracts the platform fee a swap instruction
// carries. Collateral repay requires this to be zero.
func GetExactOutRoutePlatformFeeBps(data []byte) (uint8, error) {
	if len(data) < minExactOutRouteDataSize {
		return 0, ErrInvalidInstructionData
	}

	return data[len(data)-platformFeeBpsTailOffset], nil
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

package jupiter

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetExactOutRouteOutAmount(t *testing.T) {
	data := buildExactOutRouteData(t, 2_500_000, 5)

	outAmount, err := GetExactOutRouteOutAmount(data)
	require.NoError(t, err)
	assert.EqualValues(t, 2_500_000, outAmount)

	_, err = GetExactOutRouteOutAmount(data[:8])
	assert.Equal(t, ErrInvalidInstructionData, err)
}

func TestGetExactOutRoutePlatformFeeBps(t *testing.T) {
	data := buildExactOutRouteData(t, 2_500_000, 5)

	platformFeeBps, err := GetExactOutRoutePlatformFeeBps(data)
	require.NoError(t, err)
	assert.EqualValues(t, 5, platformFeeBps)
}

func buildExactOutRouteData(t *testing.T, outAmount uint64, platformFeeBps uint8) []byte {
	// Discriminator, a fake variable-length route plan, then the fixed tail.
	routePlan := []byte{1, 2, 3, 4, 5}

	data := make([]byte, 0, 8+len(routePlan)+exactOutRouteTailSize)
	data = append(data, ExactOutRouteInstructionDiscriminator...)
	data = append(data, routePlan...)
	data = binary.LittleEndian.AppendUint64(data, outAmount)
	data = binary.LittleEndian.AppendUint64(data, 2_600_000) // quoted_in_amount
	data = binary.LittleEndian.AppendUint16(data, 50)        // slippage_bps
	data = append(data, platformFeeBps)

	require.Len(t, data, 8+len(routePlan)+exactOutRouteTailSize)
	return data
}

package vault

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/mr-tron/base58/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordProgramAccountRoundTrip(t *testing.T) {
	owner, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	vaultAddress, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	record := &Record{
		Address: base58.Encode(vaultAddress),
		Bump:    254,

		Owner: base58.Encode(owner),

		SpendLimitPerTransaction:        500_000,
		SpendLimitPerTimeframe:          1_000_000,
		RemainingSpendLimitPerTimeframe: 600_000,
		NextTimeframeResetTimestamp:     1_750_000_000,
		TimeframeInSeconds:              86_400,
	}

	account, err := record.ToProgramAccount()
	require.NoError(t, err)
	assert.Equal(t, owner, account.Owner)
	assert.EqualValues(t, 254, account.Bump)

	mapped := NewRecordFromProgramAccount(record.Address, account)
	assert.Equal(t, record, mapped)
}

func TestRecordToProgramAccountInvalidOwner(t *testing.T) {
	_, err := (&Record{Owner: "not base58 0OIl"}).ToProgramAccount()
	assert.Error(t, err)
}

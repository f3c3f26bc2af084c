package solana

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"
)

var (
	ErrIncorrectProgram     = errors.New("incorrect program")
	ErrIncorrectInstruction = errors.New("incorrect instruction")
)

// AccountMeta represents the account information required
// for building transactions.
type AccountMeta struct {
	PublicKey  ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

// NewAccountMeta creates a new AccountMeta representing a writable
// account.
func NewAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: true,
	}
}

// NewReadonlyAccountMeta creates a new AccountMeta representing a readonly
// account.
func NewReadonlyAccountMeta(pub ed25519.PublicKey, isSigner bool) AccountMeta {
	return AccountMeta{
		PublicKey:  pub,
		IsSigner:   isSigner,
		IsWritable: false,
	}
}

// Instruction represents a transaction instruction.
type Instruction struct {
	Program  ed25519.PublicKey
	Accounts []AccountMeta
	Data     []byte
}

// NewInstruction creates a new instruction.
func NewInstruction(program ed25519.PublicKey, data []byte, accounts ...AccountMeta) Instruction {
	return Instruction{
		Program:  program,
		Data:     data,
		Accounts: accounts,
	}
}

// Account returns the public key of the account at the provided index, or nil
// if the index is out of range.
func (i Instruction) Account(index int) ed25519.PublicKey {
	if index < 0 || index >= len(i.Accounts) {
		return nil
	}
	return i.Accounts[index].PublicKey
}

// HasDiscriminator returns whether the instruction data begins with the
// provided discriminator bytes.
func (i Instruction) HasDiscriminator(discriminator []byte) bool {
	if len(i.Data) < len(discriminator) {
		return false
	}
	return bytes.Equal(i.Data[:len(discriminator)], discriminator)
}

// IsForProgram returns whether the instruction targets the provided program.
func (i Instruction) IsForProgram(program ed25519.PublicKey) bool {
	return bytes.Equal(i.Program, program)
}

package token

import (
	"crypto/ed25519"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

func TestGetCommand_Error(t *testing.T) {
	keys := generateKeys(t, 2)

	// invalid program
	cmd, err := GetCommand(solana.NewInstruction(keys[1], []byte{}))
	assert.Equal(t, CommandUnknown, cmd)
	assert.Equal(t, solana.ErrIncorrectProgram, err)

	// no data
	cmd, err = GetCommand(solana.NewInstruction(ProgramKey, []byte{}))
	assert.Equal(t, CommandUnknown, cmd)
	assert.NotNil(t, err)
	assert.Contains(t, err.Error(), "missing data")
}

func TestSetAuthority(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := SetAuthority(keys[0], keys[1], keys[2], AuthorityTypeAccountHolder)

	assert.EqualValues(t, 6, instruction.Data[0])
	assert.EqualValues(t, AuthorityTypeAccountHolder, instruction.Data[1])

	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)

	assert.True(t, instruction.Accounts[1].IsSigner)
	assert.False(t, instruction.Accounts[1].IsWritable)

	decompiled, err := DecompileSetAuthority(instruction)
	assert.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Account)
	assert.Equal(t, keys[1], decompiled.CurrentAuthority)
	assert.Equal(t, keys[2], decompiled.NewAuthority)
	assert.Equal(t, AuthorityTypeAccountHolder, decompiled.Type)

	cmd, err := GetCommand(instruction)
	require.NoError(t, err)
	assert.Equal(t, CommandSetAuthority, cmd)

	// Mess with the instruction for validation
	instruction.Data = instruction.Data[:len(instruction.Data)-1]
	_, err = DecompileSetAuthority(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid data size"))

	instruction.Accounts = instruction.Accounts[:1]
	_, err = DecompileSetAuthority(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid number of accounts"))

	instruction.Data[0] = byte(CommandApprove)
	_, err = DecompileSetAuthority(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction.Program = keys[0]
	_, err = DecompileSetAuthority(instruction)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestSetAuthority_NoNewAuthority(t *testing.T) {
	keys := generateKeys(t, 2)

	instruction := SetAuthority(keys[0], keys[1], nil, AuthorityTypeCloseAccount)

	assert.EqualValues(t, []byte{6, byte(AuthorityTypeCloseAccount), 0}, instruction.Data)

	decompiled, err := DecompileSetAuthority(instruction)
	assert.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Account)
	assert.Equal(t, keys[1], decompiled.CurrentAuthority)
	assert.Nil(t, decompiled.NewAuthority)
	assert.Equal(t, AuthorityTypeCloseAccount, decompiled.Type)

	// Mess with the instruction for validation
	instruction.Data = append(instruction.Data, 0)
	_, err = DecompileSetAuthority(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid data size"))

	instruction.Data = []byte{6, byte(AuthorityTypeCloseAccount), 2}
	_, err = DecompileSetAuthority(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid option tag"))
}

func TestTransfer(t *testing.T) {
	keys := generateKeys(t, 4)

	instruction := Transfer(keys[0], keys[1], keys[2], 123456789)

	expectedAmount := make([]byte, 8)
	binary.LittleEndian.PutUint64(expectedAmount, 123456789)

	assert.EqualValues(t, 3, instruction.Data[0])
	assert.EqualValues(t, expectedAmount, instruction.Data[1:])

	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)

	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.False(t, instruction.Accounts[2].IsWritable)

	decompiled, err := DecompileTransfer(instruction)
	assert.NoError(t, err)
	assert.EqualValues(t, 123456789, decompiled.Amount)
	assert.Equal(t, keys[0], decompiled.Source)
	assert.Equal(t, keys[1], decompiled.Destination)
	assert.Equal(t, keys[2], decompiled.Owner)

	cmd, err := GetCommand(instruction)
	require.NoError(t, err)
	assert.Equal(t, CommandTransfer, cmd)

	instruction.Data = instruction.Data[:1]
	_, err = DecompileTransfer(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid instruction data size"))

	instruction.Accounts = instruction.Accounts[:2]
	_, err = DecompileTransfer(instruction)
	assert.NotNil(t, err)
	assert.True(t, strings.Contains(err.Error(), "invalid number of accounts"))

	instruction.Data[0] = byte(CommandApprove)
	_, err = DecompileTransfer(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)

	instruction.Program = keys[3]
	_, err = DecompileTransfer(instruction)
	assert.Equal(t, solana.ErrIncorrectProgram, err)
}

func TestCloseAccount(t *testing.T) {
	keys := generateKeys(t, 3)

	instruction := CloseAccount(keys[0], keys[1], keys[2])
	assert.Equal(t, []byte{byte(CommandCloseAccount)}, instruction.Data)

	cmd, err := GetCommand(instruction)
	require.NoError(t, err)
	assert.Equal(t, CommandCloseAccount, cmd)

	assert.False(t, instruction.Accounts[0].IsSigner)
	assert.True(t, instruction.Accounts[0].IsWritable)
	assert.False(t, instruction.Accounts[1].IsSigner)
	assert.True(t, instruction.Accounts[1].IsWritable)

	assert.True(t, instruction.Accounts[2].IsSigner)
	assert.False(t, instruction.Accounts[2].IsWritable)

	decompiled, err := DecompileCloseAccount(instruction)
	assert.NoError(t, err)
	assert.Equal(t, keys[0], decompiled.Account)
	assert.Equal(t, keys[1], decompiled.Destination)
	assert.Equal(t, keys[2], decompiled.Owner)

	instruction.Accounts = instruction.Accounts[:2]
	decompiled, err = DecompileCloseAccount(instruction)
	assert.True(t, strings.Contains(err.Error(), "invalid number of accounts"))
	assert.Nil(t, decompiled)

	instruction.Data = append(instruction.Data, 1)
	decompiled, err = DecompileCloseAccount(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
	assert.Nil(t, decompiled)

	instruction.Data = []byte{byte(CommandTransfer)}
	decompiled, err = DecompileCloseAccount(instruction)
	assert.Equal(t, solana.ErrIncorrectInstruction, err)
	assert.Nil(t, decompiled)
}

func generateKeys(t *testing.T, amount int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, amount)

	for i := 0; i < amount; i++ {
		pub, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = pub
	}

	return keys
}

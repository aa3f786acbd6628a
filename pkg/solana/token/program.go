package token

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

// ProgramKey is the address of the token program that should be used.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

type Command byte

const (
	// nolint:varcheck,deadcode,unused
	CommandInitializeMint Command = iota
	// nolint:varcheck,deadcode,unused
	CommandInitializeAccount
	// nolint:varcheck,deadcode,unused
	CommandInitializeMultisig
	CommandTransfer
	// nolint:varcheck,deadcode,unused
	CommandApprove
	// nolint:varcheck,deadcode,unused
	CommandRevoke
	CommandSetAuthority
	// nolint:varcheck,deadcode,unused
	CommandMintTo
	// nolint:varcheck,deadcode,unused
	CommandBurn
	CommandCloseAccount

	CommandUnknown = Command(math.MaxUint8)
)

// GetCommand returns the token command an instruction encodes.
func GetCommand(ix solana.Instruction) (Command, error) {
	if !bytes.Equal(ix.Program, ProgramKey) {
		return CommandUnknown, solana.ErrIncorrectProgram
	}
	if len(ix.Data) == 0 {
		return CommandUnknown, errors.New("token instruction missing data")
	}

	return Command(ix.Data[0]), nil
}

type AuthorityType byte

const (
	AuthorityTypeMintTokens AuthorityType = iota
	AuthorityTypeFreezeAccount
	AuthorityTypeAccountHolder
	AuthorityTypeCloseAccount
)

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L128-L139
func SetAuthority(account, currentAuthority, newAuthority ed25519.PublicKey, authorityType AuthorityType) solana.Instruction {
	// Sets a new authority of a mint or account.
	//
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint or account to change the authority of.
	//   1. `[signer]` The current authority of the mint or account.
	data := []byte{byte(CommandSetAuthority), byte(authorityType), 0}
	if len(newAuthority) > 0 {
		data[2] = 1
		data = append(data, newAuthority...)
	}

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(currentAuthority, true),
	)
}

type DecompiledSetAuthority struct {
	Account          ed25519.PublicKey
	CurrentAuthority ed25519.PublicKey
	NewAuthority     ed25519.PublicKey
	Type             AuthorityType
}

func DecompileSetAuthority(ix solana.Instruction) (*DecompiledSetAuthority, error) {
	command, err := GetCommand(ix)
	if err != nil {
		return nil, err
	}
	if command != CommandSetAuthority {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(ix.Accounts) < 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}
	if len(ix.Data) < 3 {
		return nil, errors.Errorf("invalid data size: %d (expect at least 3)", len(ix.Data))
	}
	if ix.Data[2] == 0 && len(ix.Data) != 3 {
		return nil, errors.Errorf("invalid data size: %d (expect 3)", len(ix.Data))
	}
	if ix.Data[2] == 1 && len(ix.Data) != 3+ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid data size: %d (expect %d)", len(ix.Data), 3+ed25519.PublicKeySize)
	}
	if ix.Data[2] > 1 {
		return nil, errors.Errorf("invalid option tag: %d", ix.Data[2])
	}

	decompiled := &DecompiledSetAuthority{
		Account:          ix.Accounts[0].PublicKey,
		CurrentAuthority: ix.Accounts[1].PublicKey,
		Type:             AuthorityType(ix.Data[1]),
	}

	if ix.Data[2] == 1 {
		decompiled.NewAuthority = ix.Data[3 : 3+ed25519.PublicKeySize]
	}

	return decompiled, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L76-L91
func Transfer(source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The source account's owner/delegate.
	data := make([]byte, 1+8)
	data[0] = byte(CommandTransfer)
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(
		ProgramKey,
		data,
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

type DecompiledTransfer struct {
	Source      ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
	Amount      uint64
}

func DecompileTransfer(ix solana.Instruction) (*DecompiledTransfer, error) {
	command, err := GetCommand(ix)
	if err != nil {
		return nil, err
	}
	if command != CommandTransfer {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(ix.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}
	if len(ix.Data) != 9 {
		return nil, errors.Errorf("invalid instruction data size: %d", len(ix.Data))
	}

	return &DecompiledTransfer{
		Source:      ix.Accounts[0].PublicKey,
		Destination: ix.Accounts[1].PublicKey,
		Owner:       ix.Accounts[2].PublicKey,
		Amount:      binary.LittleEndian.Uint64(ix.Data[1:]),
	}, nil
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L183-L197
func CloseAccount(account, dest, owner ed25519.PublicKey) solana.Instruction {
	// Close an account by transferring all its SOL to the destination account.
	// Non-native accounts may only be closed if its token amount is zero.
	//
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to close.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The account's owner.
	return solana.NewInstruction(
		ProgramKey,
		[]byte{byte(CommandCloseAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

type DecompiledCloseAccount struct {
	Account     ed25519.PublicKey
	Destination ed25519.PublicKey
	Owner       ed25519.PublicKey
}

func DecompileCloseAccount(ix solana.Instruction) (*DecompiledCloseAccount, error) {
	command, err := GetCommand(ix)
	if err != nil {
		return nil, err
	}
	if command != CommandCloseAccount || len(ix.Data) != 1 {
		return nil, solana.ErrIncorrectInstruction
	}
	if len(ix.Accounts) < 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}

	return &DecompiledCloseAccount{
		Account:     ix.Accounts[0].PublicKey,
		Destination: ix.Accounts[1].PublicKey,
		Owner:       ix.Accounts[2].PublicKey,
	}, nil
}

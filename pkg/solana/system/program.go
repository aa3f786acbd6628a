package system

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

var ProgramKey [32]byte

type Command uint32

const (
	CommandCreateAccount Command = iota
	// nolint:varcheck,deadcode,unused
	CommandAssign
	CommandTransfer

	CommandUnknown Command = 0xffffffff
)

const (
	createAccountDataSize = 4 + 2*8 + 32
	transferDataSize      = 4 + 8
)

// GetCommand returns the system command an instruction encodes.
func GetCommand(ix solana.Instruction) (Command, error) {
	if !bytes.Equal(ix.Program, ProgramKey[:]) {
		return CommandUnknown, solana.ErrIncorrectProgram
	}
	if len(ix.Data) < 4 {
		return CommandUnknown, errors.New("system instruction missing data")
	}

	return Command(binary.LittleEndian.Uint32(ix.Data)), nil
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	//
	// CreateAccount {
	//   // Number of lamports to transfer to the new account
	//   lamports: u64,
	//   // Number of bytes of memory to allocate
	//   space: u64,
	//
	//   //Address of program that will own the new account
	//   owner: Pubkey,
	// }
	//
	data := make([]byte, createAccountDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandCreateAccount))
	binary.LittleEndian.PutUint64(data[4:], lamports)
	binary.LittleEndian.PutUint64(data[4+8:], size)
	copy(data[4+2*8:], owner)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(ix solana.Instruction) (*DecompiledCreateAccount, error) {
	command, err := GetCommand(ix)
	if err != nil {
		return nil, err
	}
	if command != CommandCreateAccount {
		return nil, solana.ErrIncorrectInstruction
	}

	if len(ix.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}
	if len(ix.Data) != createAccountDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(ix.Data))
	}

	v := &DecompiledCreateAccount{
		Funder:  ix.Accounts[0].PublicKey,
		Address: ix.Accounts[1].PublicKey,
	}
	v.Lamports = binary.LittleEndian.Uint64(ix.Data[4:])
	v.Size = binary.LittleEndian.Uint64(ix.Data[4+8:])
	v.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(v.Owner, ix.Data[4+2*8:])

	return v, nil
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L96-L101
func Transfer(from, to ed25519.PublicKey, lamports uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Recipient account
	data := make([]byte, transferDataSize)
	binary.LittleEndian.PutUint32(data, uint32(CommandTransfer))
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(from, true),
		solana.NewAccountMeta(to, false),
	)
}

type DecompiledTransfer struct {
	From     ed25519.PublicKey
	To       ed25519.PublicKey
	Lamports uint64
}

func DecompileTransfer(ix solana.Instruction) (*DecompiledTransfer, error) {
	command, err := GetCommand(ix)
	if err != nil {
		return nil, err
	}
	if command != CommandTransfer {
		return nil, solana.ErrIncorrectInstruction
	}

	if len(ix.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(ix.Accounts))
	}
	if len(ix.Data) != transferDataSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(ix.Data))
	}

	return &DecompiledTransfer{
		From:     ix.Accounts[0].PublicKey,
		To:       ix.Accounts[1].PublicKey,
		Lamports: binary.LittleEndian.Uint64(ix.Data[4:]),
	}, nil
}

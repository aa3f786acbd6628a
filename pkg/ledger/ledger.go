// Package ledger models the account based ledger that auction instructions
// execute against.
//
// A Ledger serializes transactions touching the same writable accounts and
// applies each transaction atomically: either every account change made
// through a Tx is committed, or none are.
package ledger

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

var (
	ErrAccountNotFound          = errors.New("account not found")
	ErrAccountAlreadyInUse      = errors.New("account already in use")
	ErrMissingRequiredSignature = errors.New("missing required signature")
	ErrAccountNotWritable       = errors.New("account not writable")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrInvalidAccountOwner      = errors.New("invalid account owner")
	ErrOwnerMismatch            = errors.New("owner does not match")
	ErrInvalidAccountData       = errors.New("invalid account data")
	ErrArithmeticOverflow       = errors.New("arithmetic overflow")
	ErrUnsupportedInstruction   = errors.New("unsupported instruction")
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/master/sdk/program/src/rent.rs
	accountStorageOverhead = 128
	lamportsPerByteYear    = 3480
	exemptionThreshold     = 2
)

// MinimumBalanceForRentExemption returns the lamports an account of the
// provided data size must hold to be exempt from rent.
func MinimumBalanceForRentExemption(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThreshold
}

// Account is the ledger state stored at an address.
type Account struct {
	Address  ed25519.PublicKey
	Owner    ed25519.PublicKey
	Lamports uint64
	Data     []byte
}

func (a *Account) Clone() *Account {
	return &Account{
		Address:  append(ed25519.PublicKey(nil), a.Address...),
		Owner:    append(ed25519.PublicKey(nil), a.Owner...),
		Lamports: a.Lamports,
		Data:     append([]byte(nil), a.Data...),
	}
}

// IsOwnedBy returns whether the account is owned by the provided program.
func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	return bytes.Equal(a.Owner, program)
}

// Request describes the execution environment of a single program
// instruction.
type Request struct {
	// Program is the program executing the instruction. Only accounts owned by
	// it may have their data modified or be closed directly.
	Program ed25519.PublicKey

	// Signers are the accounts that signed the enclosing transaction.
	Signers []ed25519.PublicKey

	// Writable are the accounts write locked by the enclosing transaction.
	Writable []ed25519.PublicKey
}

// NewRequest returns a Request with signer and writable sets taken from the
// instruction's account metadata.
func NewRequest(ix solana.Instruction) *Request {
	req := &Request{
		Program: ix.Program,
	}
	for _, account := range ix.Accounts {
		if account.IsSigner {
			req.Signers = append(req.Signers, account.PublicKey)
		}
		if account.IsWritable {
			req.Writable = append(req.Writable, account.PublicKey)
		}
	}
	return req
}

// Tx is the view of the ledger available while executing a Request.
type Tx interface {
	// GetAccount returns a copy of the account at the address, or
	// ErrAccountNotFound.
	GetAccount(address ed25519.PublicKey) (*Account, error)

	// SetAccountData overwrites the data of a writable account owned by the
	// executing program. The data size cannot change.
	SetAccountData(address ed25519.PublicKey, data []byte) error

	// CloseAccount deletes a writable account owned by the executing program,
	// crediting its lamports to the beneficiary.
	CloseAccount(address, beneficiary ed25519.PublicKey) error

	// Invoke executes a system or token program instruction. Each set of
	// signer seeds, bump included, adds the program derived address it
	// produces for the executing program to the instruction's signers.
	Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error

	// IsSigner returns whether the address signed the transaction.
	IsSigner(address ed25519.PublicKey) bool

	// UnixTimestamp returns the ledger clock's current time.
	UnixTimestamp() int64

	// MinimumBalanceForRentExemption returns the rent exempt balance for an
	// account of the provided size.
	MinimumBalanceForRentExemption(size uint64) uint64
}

// Reader provides read only access to ledger state.
type Reader interface {
	GetAccount(ctx context.Context, address ed25519.PublicKey) (*Account, error)

	// GetProgramAccounts returns all accounts owned by the program whose data
	// is exactly dataSize bytes long and matches every filter. A dataSize of
	// zero matches any size.
	GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, dataSize uint64, filters ...solana.MemcmpFilter) ([]*Account, error)
}

// Ledger executes requests atomically.
type Ledger interface {
	Reader

	// Execute runs fn against the ledger. Account changes made through the Tx
	// are committed only if fn returns nil.
	Execute(ctx context.Context, req *Request, fn func(Tx) error) error
}

// Clock provides the ledger time.
type Clock func() time.Time

// MatchesFilters returns whether account data matches every filter.
func MatchesFilters(data []byte, dataSize uint64, filters ...solana.MemcmpFilter) bool {
	if dataSize > 0 && uint64(len(data)) != dataSize {
		return false
	}
	for _, f := range filters {
		end := int(f.Offset) + len(f.Bytes)
		if end > len(data) || !bytes.Equal(data[f.Offset:end], f.Bytes) {
			return false
		}
	}
	return true
}

package ledger

import (
	"bytes"
	"crypto/ed25519"
	"math/bits"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/system"
	"github.com/code-payments/dutch-auction/pkg/solana/token"
)

// State is the mutable account set a Tx executes against. Implementations
// are expected to buffer writes until the enclosing transaction commits.
type State interface {
	Load(address ed25519.PublicKey) (*Account, bool)
	Store(account *Account)
	Delete(address ed25519.PublicKey)
}

type tx struct {
	state    State
	req      *Request
	now      time.Time
	signers  map[string]struct{}
	writable map[string]struct{}
}

// NewTx returns a Tx executing req against state at the provided time.
func NewTx(state State, req *Request, now time.Time) Tx {
	t := &tx{
		state:    state,
		req:      req,
		now:      now,
		signers:  make(map[string]struct{}),
		writable: make(map[string]struct{}),
	}
	for _, signer := range req.Signers {
		t.signers[string(signer)] = struct{}{}
	}
	for _, account := range req.Writable {
		t.writable[string(account)] = struct{}{}
	}
	return t
}

func (t *tx) GetAccount(address ed25519.PublicKey) (*Account, error) {
	account, ok := t.state.Load(address)
	if !ok {
		return nil, errors.Wrap(ErrAccountNotFound, base58.Encode(address))
	}
	return account.Clone(), nil
}

func (t *tx) SetAccountData(address ed25519.PublicKey, data []byte) error {
	account, err := t.loadWritable(address)
	if err != nil {
		return err
	}
	if !account.IsOwnedBy(t.req.Program) {
		return errors.Wrap(ErrInvalidAccountOwner, base58.Encode(address))
	}
	if len(data) != len(account.Data) {
		return errors.Wrapf(ErrInvalidAccountData, "expected %d bytes, got %d", len(account.Data), len(data))
	}

	account.Data = append([]byte(nil), data...)
	t.state.Store(account)
	return nil
}

func (t *tx) CloseAccount(address, beneficiary ed25519.PublicKey) error {
	account, err := t.loadWritable(address)
	if err != nil {
		return err
	}
	if !account.IsOwnedBy(t.req.Program) {
		return errors.Wrap(ErrInvalidAccountOwner, base58.Encode(address))
	}
	if err := t.credit(beneficiary, account.Lamports); err != nil {
		return err
	}

	t.state.Delete(address)
	return nil
}

func (t *tx) Invoke(ix solana.Instruction, signerSeeds ...[][]byte) error {
	signers := make(map[string]struct{}, len(t.signers)+len(signerSeeds))
	for signer := range t.signers {
		signers[signer] = struct{}{}
	}
	for _, seeds := range signerSeeds {
		address, err := solana.CreateProgramAddress(t.req.Program, seeds...)
		if err != nil {
			return errors.Wrapf(ErrMissingRequiredSignature, "invalid signer seeds: %v", err)
		}
		signers[string(address)] = struct{}{}
	}

	for _, account := range ix.Accounts {
		if _, ok := signers[string(account.PublicKey)]; account.IsSigner && !ok {
			return errors.Wrap(ErrMissingRequiredSignature, base58.Encode(account.PublicKey))
		}
		if _, ok := t.writable[string(account.PublicKey)]; account.IsWritable && !ok {
			return errors.Wrap(ErrAccountNotWritable, base58.Encode(account.PublicKey))
		}
	}

	isSigner := func(address ed25519.PublicKey) error {
		if _, ok := signers[string(address)]; !ok {
			return errors.Wrap(ErrMissingRequiredSignature, base58.Encode(address))
		}
		return nil
	}

	switch {
	case bytes.Equal(ix.Program, system.ProgramKey[:]):
		return t.invokeSystem(ix, isSigner)
	case bytes.Equal(ix.Program, token.ProgramKey):
		return t.invokeToken(ix, isSigner)
	default:
		return errors.Wrapf(ErrUnsupportedInstruction, "program %s", base58.Encode(ix.Program))
	}
}

func (t *tx) IsSigner(address ed25519.PublicKey) bool {
	_, ok := t.signers[string(address)]
	return ok
}

func (t *tx) UnixTimestamp() int64 {
	return t.now.Unix()
}

func (t *tx) MinimumBalanceForRentExemption(size uint64) uint64 {
	return MinimumBalanceForRentExemption(size)
}

func (t *tx) invokeSystem(ix solana.Instruction, isSigner func(ed25519.PublicKey) error) error {
	command, err := system.GetCommand(ix)
	if err != nil {
		return err
	}

	switch command {
	case system.CommandCreateAccount:
		create, err := system.DecompileCreateAccount(ix)
		if err != nil {
			return err
		}
		if err := isSigner(create.Funder); err != nil {
			return err
		}
		if err := isSigner(create.Address); err != nil {
			return err
		}
		if _, ok := t.state.Load(create.Address); ok {
			return errors.Wrap(ErrAccountAlreadyInUse, base58.Encode(create.Address))
		}
		if err := t.debitSystemAccount(create.Funder, create.Lamports); err != nil {
			return err
		}

		t.state.Store(&Account{
			Address:  append(ed25519.PublicKey(nil), create.Address...),
			Owner:    append(ed25519.PublicKey(nil), create.Owner...),
			Lamports: create.Lamports,
			Data:     make([]byte, create.Size),
		})
		return nil
	case system.CommandTransfer:
		transfer, err := system.DecompileTransfer(ix)
		if err != nil {
			return err
		}
		if err := isSigner(transfer.From); err != nil {
			return err
		}
		if transfer.Lamports == 0 {
			return nil
		}
		if err := t.debitSystemAccount(transfer.From, transfer.Lamports); err != nil {
			return err
		}
		return t.credit(transfer.To, transfer.Lamports)
	default:
		return errors.Wrapf(ErrUnsupportedInstruction, "system command %d", command)
	}
}

func (t *tx) invokeToken(ix solana.Instruction, isSigner func(ed25519.PublicKey) error) error {
	command, err := token.GetCommand(ix)
	if err != nil {
		return err
	}

	switch command {
	case token.CommandTransfer:
		transfer, err := token.DecompileTransfer(ix)
		if err != nil {
			return err
		}
		if err := isSigner(transfer.Owner); err != nil {
			return err
		}

		source, sourceState, err := t.loadTokenAccount(transfer.Source)
		if err != nil {
			return err
		}
		dest, destState, err := t.loadTokenAccount(transfer.Destination)
		if err != nil {
			return err
		}
		if !sourceState.IsOwnedBy(transfer.Owner) {
			return errors.Wrap(ErrOwnerMismatch, base58.Encode(transfer.Source))
		}
		if !bytes.Equal(sourceState.Mint, destState.Mint) {
			return errors.Wrap(ErrInvalidAccountData, "mint mismatch")
		}
		if sourceState.Amount < transfer.Amount {
			return errors.Wrap(ErrInsufficientFunds, base58.Encode(transfer.Source))
		}
		if bytes.Equal(source.Address, dest.Address) {
			return nil
		}

		amount, carry := bits.Add64(destState.Amount, transfer.Amount, 0)
		if carry != 0 {
			return ErrArithmeticOverflow
		}
		sourceState.Amount -= transfer.Amount
		destState.Amount = amount

		source.Data = sourceState.Marshal()
		dest.Data = destState.Marshal()
		t.state.Store(source)
		t.state.Store(dest)
		return nil
	case token.CommandSetAuthority:
		setAuthority, err := token.DecompileSetAuthority(ix)
		if err != nil {
			return err
		}
		if setAuthority.Type != token.AuthorityTypeAccountHolder {
			return errors.Wrapf(ErrUnsupportedInstruction, "authority type %d", setAuthority.Type)
		}
		if len(setAuthority.NewAuthority) == 0 {
			return errors.Wrap(ErrInvalidAccountData, "account holder cannot be removed")
		}
		if err := isSigner(setAuthority.CurrentAuthority); err != nil {
			return err
		}

		account, state, err := t.loadTokenAccount(setAuthority.Account)
		if err != nil {
			return err
		}
		if !state.IsOwnedBy(setAuthority.CurrentAuthority) {
			return errors.Wrap(ErrOwnerMismatch, base58.Encode(setAuthority.Account))
		}

		state.Owner = append(ed25519.PublicKey(nil), setAuthority.NewAuthority...)
		account.Data = state.Marshal()
		t.state.Store(account)
		return nil
	case token.CommandCloseAccount:
		closeAccount, err := token.DecompileCloseAccount(ix)
		if err != nil {
			return err
		}
		if err := isSigner(closeAccount.Owner); err != nil {
			return err
		}

		account, state, err := t.loadTokenAccount(closeAccount.Account)
		if err != nil {
			return err
		}
		if !state.IsOwnedBy(closeAccount.Owner) {
			return errors.Wrap(ErrOwnerMismatch, base58.Encode(closeAccount.Account))
		}
		if state.Amount != 0 {
			return errors.Wrap(ErrInvalidAccountData, "non-native account has balance")
		}
		if err := t.credit(closeAccount.Destination, account.Lamports); err != nil {
			return err
		}

		t.state.Delete(closeAccount.Account)
		return nil
	default:
		return errors.Wrapf(ErrUnsupportedInstruction, "token command %d", command)
	}
}

func (t *tx) loadWritable(address ed25519.PublicKey) (*Account, error) {
	if _, ok := t.writable[string(address)]; !ok {
		return nil, errors.Wrap(ErrAccountNotWritable, base58.Encode(address))
	}

	account, ok := t.state.Load(address)
	if !ok {
		return nil, errors.Wrap(ErrAccountNotFound, base58.Encode(address))
	}
	return account.Clone(), nil
}

func (t *tx) loadTokenAccount(address ed25519.PublicKey) (*Account, *token.Account, error) {
	account, err := t.loadWritable(address)
	if err != nil {
		return nil, nil, err
	}
	if !account.IsOwnedBy(token.ProgramKey) {
		return nil, nil, errors.Wrap(ErrInvalidAccountOwner, base58.Encode(address))
	}

	var state token.Account
	if err := state.Unmarshal(account.Data); err != nil {
		return nil, nil, errors.Wrap(ErrInvalidAccountData, err.Error())
	}
	return account, &state, nil
}

func (t *tx) debitSystemAccount(address ed25519.PublicKey, lamports uint64) error {
	account, err := t.loadWritable(address)
	if err != nil {
		return err
	}
	if !account.IsOwnedBy(system.SystemAccount) || len(account.Data) > 0 {
		return errors.Wrap(ErrInvalidAccountOwner, base58.Encode(address))
	}
	if account.Lamports < lamports {
		return errors.Wrapf(ErrInsufficientFunds, "%s has %d, needs %d", base58.Encode(address), account.Lamports, lamports)
	}

	account.Lamports -= lamports
	t.state.Store(account)
	return nil
}

// credit adds lamports to the account, creating a system account if none
// exists.
func (t *tx) credit(address ed25519.PublicKey, lamports uint64) error {
	if _, ok := t.writable[string(address)]; !ok {
		return errors.Wrap(ErrAccountNotWritable, base58.Encode(address))
	}

	account, ok := t.state.Load(address)
	if !ok {
		account = &Account{
			Address: append(ed25519.PublicKey(nil), address...),
			Owner:   append(ed25519.PublicKey(nil), system.SystemAccount...),
		}
	} else {
		account = account.Clone()
	}

	balance, carry := bits.Add64(account.Lamports, lamports, 0)
	if carry != 0 {
		return ErrArithmeticOverflow
	}
	account.Lamports = balance
	t.state.Store(account)
	return nil
}

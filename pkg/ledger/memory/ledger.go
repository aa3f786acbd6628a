package memory

import (
	"context"
	"crypto/ed25519"
	"sort"
	"sync"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/system"
	"github.com/code-payments/dutch-auction/pkg/solana/token"
	xsync "github.com/code-payments/dutch-auction/pkg/sync"
)

const lockStripes = 64

// Ledger is an in memory ledger.Ledger.
type Ledger struct {
	clock ledger.Clock
	locks *xsync.StripedLock

	mu       sync.RWMutex
	accounts map[string]*ledger.Account
}

// New returns a new, empty in memory ledger.
func New() *Ledger {
	return &Ledger{
		clock:    time.Now,
		locks:    xsync.NewStripedLock(lockStripes),
		accounts: make(map[string]*ledger.Account),
	}
}

// SetClock overrides the ledger clock.
func (l *Ledger) SetClock(clock ledger.Clock) {
	l.mu.Lock()
	l.clock = clock
	l.mu.Unlock()
}

// SetAccount stores a copy of the account, replacing any existing one.
func (l *Ledger) SetAccount(account *ledger.Account) {
	l.mu.Lock()
	l.accounts[string(account.Address)] = account.Clone()
	l.mu.Unlock()
}

// Fund credits lamports to a system account, creating it if necessary.
func (l *Ledger) Fund(address ed25519.PublicKey, lamports uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[string(address)]
	if !ok {
		account = &ledger.Account{
			Address: append(ed25519.PublicKey(nil), address...),
			Owner:   append(ed25519.PublicKey(nil), system.SystemAccount...),
		}
		l.accounts[string(address)] = account
	}
	account.Lamports += lamports
}

// CreateTokenAccount stores a rent exempt token account.
func (l *Ledger) CreateTokenAccount(address, mint, owner ed25519.PublicKey, amount uint64) {
	l.SetAccount(&ledger.Account{
		Address:  address,
		Owner:    token.ProgramKey,
		Lamports: ledger.MinimumBalanceForRentExemption(token.AccountSize),
		Data:     token.NewAccount(mint, owner, amount).Marshal(),
	})
}

// GetAccount implements ledger.Reader.GetAccount.
func (l *Ledger) GetAccount(ctx context.Context, address ed25519.PublicKey) (*ledger.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	account, ok := l.accounts[string(address)]
	if !ok {
		return nil, errors.Wrap(ledger.ErrAccountNotFound, base58.Encode(address))
	}
	return account.Clone(), nil
}

// GetProgramAccounts implements ledger.Reader.GetProgramAccounts.
func (l *Ledger) GetProgramAccounts(ctx context.Context, program ed25519.PublicKey, dataSize uint64, filters ...solana.MemcmpFilter) ([]*ledger.Account, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var res []*ledger.Account
	for _, account := range l.accounts {
		if !account.IsOwnedBy(program) || !ledger.MatchesFilters(account.Data, dataSize, filters...) {
			continue
		}
		res = append(res, account.Clone())
	}

	sort.Slice(res, func(i, j int) bool {
		return string(res[i].Address) < string(res[j].Address)
	})
	return res, nil
}

// Execute implements ledger.Ledger.Execute.
func (l *Ledger) Execute(ctx context.Context, req *ledger.Request, fn func(ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys := make([][]byte, len(req.Writable))
	for i, address := range req.Writable {
		keys[i] = address
	}
	locks := l.locks.GetMany(keys...)
	for _, lock := range locks {
		lock.Lock()
	}
	defer func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].Unlock()
		}
	}()

	l.mu.RLock()
	now := l.clock()
	l.mu.RUnlock()

	o := &overlay{
		base:    l,
		changes: make(map[string]*ledger.Account),
	}
	if err := fn(ledger.NewTx(o, req, now)); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, account := range o.changes {
		if account == nil {
			delete(l.accounts, key)
			continue
		}
		l.accounts[key] = account
	}
	return nil
}

// overlay buffers account changes made by a single transaction. A nil entry
// marks a deleted account.
type overlay struct {
	base    *Ledger
	changes map[string]*ledger.Account
}

func (o *overlay) Load(address ed25519.PublicKey) (*ledger.Account, bool) {
	if account, ok := o.changes[string(address)]; ok {
		return account, account != nil
	}

	o.base.mu.RLock()
	defer o.base.mu.RUnlock()

	account, ok := o.base.accounts[string(address)]
	if !ok {
		return nil, false
	}
	return account.Clone(), true
}

func (o *overlay) Store(account *ledger.Account) {
	o.changes[string(account.Address)] = account.Clone()
}

func (o *overlay) Delete(address ed25519.PublicKey) {
	o.changes[string(address)] = nil
}

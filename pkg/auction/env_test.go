package auction

import (
	"context"
	"crypto/ed25519"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	auctiondata "github.com/code-payments/dutch-auction/pkg/data/auction"
	auctionmemory "github.com/code-payments/dutch-auction/pkg/data/auction/memory"
	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/ledger/memory"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
	"github.com/code-payments/dutch-auction/pkg/solana/metadata"
	"github.com/code-payments/dutch-auction/pkg/solana/token"
	"github.com/code-payments/dutch-auction/pkg/testutil"
)

const (
	testStartTime     = int64(1_700_000_000)
	testStartingPrice = uint64(1_000_000)
	testReservedPrice = uint64(500_000)
	testPriceStep     = uint64(100_000)
	testInterval      = uint64(60)

	testSellerFeeBasisPoints = 500
)

type testEnv struct {
	ctx context.Context

	ledger    *memory.Ledger
	store     auctiondata.Store
	resolver  *dutchauction.AddressResolver
	processor *Processor
	submitter Submitter
	client    *Client
	now       atomic.Int64

	seller       ed25519.PrivateKey
	sellerKey    ed25519.PublicKey
	mint         ed25519.PublicKey
	tokenAccount ed25519.PublicKey
	taxRecipient ed25519.PublicKey
	creators     []ed25519.PublicKey
	metadata     ed25519.PublicKey
}

type testEnvOption func(*Overrides)

func withRequiredMetadata() testEnvOption {
	return func(o *Overrides) {
		o.RequireMetadata = true
	}
}

func setupTestEnv(t *testing.T, opts ...testEnvOption) *testEnv {
	env := &testEnv{
		ctx:    context.Background(),
		ledger: memory.New(),
		store:  auctionmemory.New(),
		seller: testutil.GenerateSolanaKeypair(t),
	}
	env.sellerKey = env.seller.Public().(ed25519.PublicKey)
	env.now.Store(testStartTime)

	keys := testutil.GenerateSolanaKeys(t, 5)
	program := keys[0]
	env.mint = keys[1]
	env.taxRecipient = keys[2]
	env.creators = keys[3:5]

	overrides := &Overrides{
		SalesTaxRecipient:   env.taxRecipient,
		ConfirmPollInterval: time.Millisecond,
	}
	for _, opt := range opts {
		opt(overrides)
	}
	configProvider := WithOverrides(overrides)

	clock := func() time.Time {
		return time.Unix(env.now.Load(), 0)
	}
	env.ledger.SetClock(clock)

	deriver := solana.NewCachingAddressDeriver(solana.NewAddressDeriver(), 128)
	env.resolver = dutchauction.NewAddressResolver(program, deriver)
	env.processor = NewProcessor(env.resolver, deriver, configProvider)
	env.submitter = NewLocalSubmitter(env.ledger, env.processor)
	env.client = NewClient(env.resolver, deriver, env.ledger, env.submitter, env.store, configProvider)
	env.client.SetClock(clock)

	var err error
	env.tokenAccount, err = token.GetAssociatedAccount(env.sellerKey, env.mint)
	require.NoError(t, err)
	env.ledger.Fund(env.sellerKey, 1_000_000_000)
	env.ledger.CreateTokenAccount(env.tokenAccount, env.mint, env.sellerKey, 1)

	env.metadata, _, err = metadata.GetMetadataAddress(deriver, &metadata.GetMetadataAddressArgs{Mint: env.mint})
	require.NoError(t, err)

	return env
}

func (e *testEnv) advance(seconds int64) {
	e.now.Add(seconds)
}

func (e *testEnv) createMetadata(t *testing.T) {
	md := &metadata.MetadataAccount{
		UpdateAuthority: e.creators[0],
		Mint:            e.mint,
		Data: metadata.Data{
			Name:                 "Test Asset",
			Symbol:               "TEST",
			Uri:                  "https://example.com/asset.json",
			SellerFeeBasisPoints: testSellerFeeBasisPoints,
			Creators: []metadata.Creator{
				{Address: e.creators[0], Verified: true, Share: 60},
				{Address: e.creators[1], Verified: true, Share: 40},
			},
		},
		IsMutable: true,
	}
	data, err := md.Marshal()
	require.NoError(t, err)

	e.ledger.SetAccount(&ledger.Account{
		Address:  e.metadata,
		Owner:    metadata.PROGRAM_ID,
		Lamports: ledger.MinimumBalanceForRentExemption(uint64(len(data))),
		Data:     data,
	})
}

func (e *testEnv) auctionAddress(t *testing.T) ed25519.PublicKey {
	address, _, err := e.resolver.GetAuctionAddress(&dutchauction.GetAuctionAddressArgs{
		Initializer: e.sellerKey,
		Mint:        e.mint,
	})
	require.NoError(t, err)
	return address
}

func (e *testEnv) authority(t *testing.T) ed25519.PublicKey {
	authority, _, err := e.resolver.GetTokenAuthorityAddress()
	require.NoError(t, err)
	return authority
}

func (e *testEnv) openInstruction(t *testing.T, args *dutchauction.InitAuctionInstructionArgs) solana.Instruction {
	_, bump, err := e.resolver.GetAuctionAddress(&dutchauction.GetAuctionAddressArgs{
		Initializer: e.sellerKey,
		Mint:        e.mint,
	})
	require.NoError(t, err)
	args.Bump = bump

	return dutchauction.NewInitAuctionInstruction(
		e.resolver.Program(),
		&dutchauction.InitAuctionInstructionAccounts{
			Initializer:    e.sellerKey,
			TokenAccount:   e.tokenAccount,
			Mint:           e.mint,
			TokenAuthority: e.authority(t),
			AuctionAccount: e.auctionAddress(t),
		},
		args,
	)
}

func defaultOpenArgs() *dutchauction.InitAuctionInstructionArgs {
	return &dutchauction.InitAuctionInstructionArgs{
		StartingPrice: testStartingPrice,
		ReservedPrice: testReservedPrice,
		PriceStep:     testPriceStep,
		Interval:      testInterval,
	}
}

func (e *testEnv) open(t *testing.T) {
	_, err := e.submitter.Submit(e.ctx, []ed25519.PrivateKey{e.seller}, e.openInstruction(t, defaultOpenArgs()))
	require.NoError(t, err)
}

// newTaker returns a funded taker with an empty token account for the mint.
func (e *testEnv) newTaker(t *testing.T, lamports uint64) (ed25519.PrivateKey, ed25519.PublicKey) {
	taker := testutil.GenerateSolanaKeypair(t)
	takerKey := taker.Public().(ed25519.PublicKey)

	takerTokenAccount, err := token.GetAssociatedAccount(takerKey, e.mint)
	require.NoError(t, err)

	e.ledger.Fund(takerKey, lamports)
	e.ledger.CreateTokenAccount(takerTokenAccount, e.mint, takerKey, 0)
	return taker, takerTokenAccount
}

func (e *testEnv) buyInstruction(t *testing.T, taker ed25519.PublicKey, takerTokenAccount ed25519.PublicKey, price uint64, creators []ed25519.PublicKey) solana.Instruction {
	return dutchauction.NewBuyInstruction(
		e.resolver.Program(),
		&dutchauction.BuyInstructionAccounts{
			Taker:             taker,
			TakerTokenAccount: takerTokenAccount,
			Initializer:       e.sellerKey,
			TokenAccount:      e.tokenAccount,
			TokenAuthority:    e.authority(t),
			AuctionAccount:    e.auctionAddress(t),
			SalesTaxRecipient: e.taxRecipient,
			Metadata:          e.metadata,
			Creators:          creators,
		},
		&dutchauction.BuyInstructionArgs{
			FrontendPrice: price,
		},
	)
}

func (e *testEnv) buy(t *testing.T, taker ed25519.PrivateKey, takerTokenAccount ed25519.PublicKey, price uint64, creators []ed25519.PublicKey) error {
	ix := e.buyInstruction(t, taker.Public().(ed25519.PublicKey), takerTokenAccount, price, creators)
	_, err := e.submitter.Submit(e.ctx, []ed25519.PrivateKey{taker}, ix)
	return err
}

func (e *testEnv) lamports(t *testing.T, address ed25519.PublicKey) uint64 {
	account, err := e.ledger.GetAccount(e.ctx, address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0
	}
	require.NoError(t, err)
	return account.Lamports
}

func (e *testEnv) totalLamports(t *testing.T, addresses ...ed25519.PublicKey) uint64 {
	var total uint64
	for _, address := range addresses {
		total += e.lamports(t, address)
	}
	return total
}

func (e *testEnv) tokenState(t *testing.T, address ed25519.PublicKey) *token.Account {
	account, err := e.ledger.GetAccount(e.ctx, address)
	require.NoError(t, err)

	var state token.Account
	require.NoError(t, state.Unmarshal(account.Data))
	return &state
}

package auction

import (
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
	"github.com/code-payments/dutch-auction/pkg/solana/system"
	"github.com/code-payments/dutch-auction/pkg/testutil"
)

func TestProcessor_Open(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	account, err := env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
	require.NoError(t, err)
	assert.EqualValues(t, env.resolver.Program(), account.Owner)
	assert.EqualValues(t, ledger.MinimumBalanceForRentExemption(dutchauction.AuctionAccountSize), account.Lamports)

	var auction dutchauction.AuctionAccount
	require.NoError(t, auction.Unmarshal(account.Data))
	assert.EqualValues(t, env.sellerKey, auction.Initializer)
	assert.EqualValues(t, env.mint, auction.Mint)
	assert.EqualValues(t, env.tokenAccount, auction.TokenAccount)
	assert.Equal(t, testStartingPrice, auction.StartingPrice)
	assert.Equal(t, testReservedPrice, auction.ReservedPrice)
	assert.Equal(t, testPriceStep, auction.PriceStep)
	assert.Equal(t, testInterval, auction.Interval)
	assert.Equal(t, testStartTime, auction.StartingTimestamp)

	// The escrowed token account is now held by the program
	state := env.tokenState(t, env.tokenAccount)
	assert.True(t, state.IsOwnedBy(env.authority(t)))
	assert.EqualValues(t, 1, state.Amount)

	// A second auction for the same pair cannot be opened
	_, err = env.submitter.Submit(env.ctx, []ed25519.PrivateKey{env.seller}, env.openInstruction(t, defaultOpenArgs()))
	assert.ErrorIs(t, err, ledger.ErrAccountAlreadyInUse)
}

func TestProcessor_OpenValidation(t *testing.T) {
	for _, tc := range []struct {
		name     string
		modify   func(env *testEnv, args *dutchauction.InitAuctionInstructionArgs)
		expected error
	}{
		{
			name: "zero price step",
			modify: func(_ *testEnv, args *dutchauction.InitAuctionInstructionArgs) {
				args.PriceStep = 0
			},
			expected: dutchauction.ErrInvalidInstruction,
		},
		{
			name: "zero interval",
			modify: func(_ *testEnv, args *dutchauction.InitAuctionInstructionArgs) {
				args.Interval = 0
			},
			expected: dutchauction.ErrInvalidInstruction,
		},
		{
			name: "starting below reserved",
			modify: func(_ *testEnv, args *dutchauction.InitAuctionInstructionArgs) {
				args.StartingPrice = args.ReservedPrice - 1
			},
			expected: dutchauction.ErrExpectedAmountMismatch,
		},
		{
			name: "wrong mint",
			modify: func(env *testEnv, _ *dutchauction.InitAuctionInstructionArgs) {
				env.ledger.CreateTokenAccount(env.tokenAccount, testutil.GenerateSolanaKeys(t, 1)[0], env.sellerKey, 1)
			},
			expected: dutchauction.ErrInvalidMintAccount,
		},
		{
			name: "more than one unit",
			modify: func(env *testEnv, _ *dutchauction.InitAuctionInstructionArgs) {
				env.ledger.CreateTokenAccount(env.tokenAccount, env.mint, env.sellerKey, 2)
			},
			expected: dutchauction.ErrInvalidTokenAmount,
		},
		{
			name: "not the token owner",
			modify: func(env *testEnv, _ *dutchauction.InitAuctionInstructionArgs) {
				env.ledger.CreateTokenAccount(env.tokenAccount, env.mint, testutil.GenerateSolanaKeys(t, 1)[0], 1)
			},
			expected: dutchauction.ErrInvalidInstruction,
		},
		{
			name: "cannot afford rent",
			modify: func(env *testEnv, _ *dutchauction.InitAuctionInstructionArgs) {
				env.ledger.SetAccount(&ledger.Account{
					Address:  env.sellerKey,
					Owner:    system.SystemAccount,
					Lamports: 10,
				})
			},
			expected: dutchauction.ErrNotRentExempt,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := setupTestEnv(t)
			args := defaultOpenArgs()
			tc.modify(env, args)

			sellerBalance := env.lamports(t, env.sellerKey)

			_, err := env.submitter.Submit(env.ctx, []ed25519.PrivateKey{env.seller}, env.openInstruction(t, args))
			assert.ErrorIs(t, err, tc.expected)

			_, err = env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
			assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
			assert.Equal(t, sellerBalance, env.lamports(t, env.sellerKey))
		})
	}
}

func TestProcessor_Settle(t *testing.T) {
	env := setupTestEnv(t)
	env.createMetadata(t)
	env.open(t)

	taker, takerTokenAccount := env.newTaker(t, 10_000_000)
	takerKey := taker.Public().(ed25519.PublicKey)

	accounts := append([]ed25519.PublicKey{env.sellerKey, takerKey, env.taxRecipient, env.auctionAddress(t)}, env.creators...)
	totalBefore := env.totalLamports(t, accounts...)
	sellerBefore := env.lamports(t, env.sellerKey)
	auctionRent := env.lamports(t, env.auctionAddress(t))

	// Two intervals in, the price has dropped twice
	env.advance(2*int64(testInterval) + 10)
	price := testStartingPrice - 2*testPriceStep

	require.NoError(t, env.buy(t, taker, takerTokenAccount, price, env.creators))

	salesTax := price * dutchauction.DefaultSalesTaxBasisPoints / 10_000
	royalties := price * testSellerFeeBasisPoints / 10_000
	assert.EqualValues(t, 7_920, salesTax)
	assert.EqualValues(t, 40_000, royalties)

	assert.Equal(t, 10_000_000-price, env.lamports(t, takerKey))
	assert.Equal(t, salesTax, env.lamports(t, env.taxRecipient))
	assert.EqualValues(t, 24_000, env.lamports(t, env.creators[0]))
	assert.EqualValues(t, 16_000, env.lamports(t, env.creators[1]))
	assert.Equal(t, sellerBefore+price-salesTax-royalties+auctionRent, env.lamports(t, env.sellerKey))

	// Nothing is created or destroyed
	assert.Equal(t, totalBefore, env.totalLamports(t, accounts...))

	// The asset moved to the taker and the escrow is closed
	assert.EqualValues(t, 1, env.tokenState(t, takerTokenAccount).Amount)
	sellerToken := env.tokenState(t, env.tokenAccount)
	assert.EqualValues(t, 0, sellerToken.Amount)
	assert.True(t, sellerToken.IsOwnedBy(env.sellerKey))

	_, err := env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// Settlement happens at most once
	other, otherTokenAccount := env.newTaker(t, 10_000_000)
	assert.ErrorIs(t, env.buy(t, other, otherTokenAccount, price, env.creators), ledger.ErrAccountNotFound)
}

func TestProcessor_SettleAtFloor(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	taker, takerTokenAccount := env.newTaker(t, 10_000_000)
	takerKey := taker.Public().(ed25519.PublicKey)

	// Long past the point the price stops decaying
	env.advance(100 * int64(testInterval))

	err := env.buy(t, taker, takerTokenAccount, testReservedPrice-1, nil)
	assert.ErrorIs(t, err, dutchauction.ErrExpectedAmountMismatch)
	assert.EqualValues(t, 10_000_000, env.lamports(t, takerKey))

	require.NoError(t, env.buy(t, taker, takerTokenAccount, testReservedPrice, nil))
	assert.Equal(t, 10_000_000-testReservedPrice, env.lamports(t, takerKey))

	// No metadata means no royalties
	salesTax := testReservedPrice * dutchauction.DefaultSalesTaxBasisPoints / 10_000
	assert.Equal(t, salesTax, env.lamports(t, env.taxRecipient))
	assert.EqualValues(t, 0, env.lamports(t, env.creators[0]))
}

func TestProcessor_SettleFrontendPrice(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	taker, takerTokenAccount := env.newTaker(t, 10_000_000)
	takerKey := taker.Public().(ed25519.PublicKey)

	env.advance(int64(testInterval))
	price := testStartingPrice - testPriceStep

	// An offer more than one step stale is rejected
	err := env.buy(t, taker, takerTokenAccount, price+testPriceStep+1, nil)
	assert.ErrorIs(t, err, dutchauction.ErrIncorrectFrontendPrice)

	// Within a step the taker is charged the current price
	require.NoError(t, env.buy(t, taker, takerTokenAccount, price+testPriceStep, nil))
	assert.Equal(t, 10_000_000-price, env.lamports(t, takerKey))
}

func TestProcessor_SettleCreatorMismatch(t *testing.T) {
	env := setupTestEnv(t)
	env.createMetadata(t)
	env.open(t)

	taker, takerTokenAccount := env.newTaker(t, 10_000_000)
	takerKey := taker.Public().(ed25519.PublicKey)

	for _, creators := range [][]ed25519.PublicKey{
		nil,
		env.creators[:1],
		{env.creators[1], env.creators[0]},
		{env.creators[0], testutil.GenerateSolanaKeys(t, 1)[0]},
		append(env.creators, testutil.GenerateSolanaKeys(t, 1)[0]),
	} {
		err := env.buy(t, taker, takerTokenAccount, testStartingPrice, creators)
		assert.ErrorIs(t, err, dutchauction.ErrCreatorMismatch)
	}

	// No transfer happened
	assert.EqualValues(t, 10_000_000, env.lamports(t, takerKey))
	assert.EqualValues(t, 0, env.lamports(t, env.taxRecipient))
	assert.EqualValues(t, 0, env.lamports(t, env.creators[0]))
	assert.EqualValues(t, 0, env.tokenState(t, takerTokenAccount).Amount)
	_, err := env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
	require.NoError(t, err)
}

func TestProcessor_SettleMetadata(t *testing.T) {
	t.Run("required", func(t *testing.T) {
		env := setupTestEnv(t, withRequiredMetadata())
		env.open(t)

		taker, takerTokenAccount := env.newTaker(t, 10_000_000)
		err := env.buy(t, taker, takerTokenAccount, testStartingPrice, nil)
		assert.ErrorIs(t, err, dutchauction.ErrMissingMetadata)
	})

	t.Run("wrong address", func(t *testing.T) {
		env := setupTestEnv(t)
		env.open(t)

		taker, takerTokenAccount := env.newTaker(t, 10_000_000)
		env.metadata = testutil.GenerateSolanaKeys(t, 1)[0]
		err := env.buy(t, taker, takerTokenAccount, testStartingPrice, nil)
		assert.ErrorIs(t, err, dutchauction.ErrInvalidMetadata)
	})

	t.Run("wrong owner", func(t *testing.T) {
		env := setupTestEnv(t)
		env.createMetadata(t)
		account, err := env.ledger.GetAccount(env.ctx, env.metadata)
		require.NoError(t, err)
		account.Owner = testutil.GenerateSolanaKeys(t, 1)[0]
		env.ledger.SetAccount(account)
		env.open(t)

		taker, takerTokenAccount := env.newTaker(t, 10_000_000)
		err = env.buy(t, taker, takerTokenAccount, testStartingPrice, env.creators)
		assert.ErrorIs(t, err, dutchauction.ErrInvalidMetadata)
	})

	t.Run("malformed", func(t *testing.T) {
		env := setupTestEnv(t)
		env.createMetadata(t)
		account, err := env.ledger.GetAccount(env.ctx, env.metadata)
		require.NoError(t, err)
		account.Data = account.Data[:10]
		env.ledger.SetAccount(account)
		env.open(t)

		taker, takerTokenAccount := env.newTaker(t, 10_000_000)
		err = env.buy(t, taker, takerTokenAccount, testStartingPrice, env.creators)
		assert.ErrorIs(t, err, dutchauction.ErrInvalidMetadata)
	})
}

func TestProcessor_SettleSalesTaxRecipient(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	taker, takerTokenAccount := env.newTaker(t, 10_000_000)
	env.taxRecipient = testutil.GenerateSolanaKeys(t, 1)[0]

	err := env.buy(t, taker, takerTokenAccount, testStartingPrice, nil)
	assert.ErrorIs(t, err, dutchauction.ErrInvalidSalesTaxRecipient)
}

func TestProcessor_SettleIntoEscrowedAccount(t *testing.T) {
	env := setupTestEnv(t)
	env.createMetadata(t)
	env.open(t)

	taker, _ := env.newTaker(t, 10_000_000)
	takerKey := taker.Public().(ed25519.PublicKey)
	sellerBefore := env.lamports(t, env.sellerKey)

	err := env.buy(t, taker, env.tokenAccount, testStartingPrice, env.creators)
	assert.ErrorIs(t, err, dutchauction.ErrInvalidInstruction)

	assert.EqualValues(t, 10_000_000, env.lamports(t, takerKey))
	assert.Equal(t, sellerBefore, env.lamports(t, env.sellerKey))
	assert.EqualValues(t, 0, env.lamports(t, env.taxRecipient))
	assert.EqualValues(t, 0, env.lamports(t, env.creators[0]))

	// The auction is untouched and still in escrow
	escrowed := env.tokenState(t, env.tokenAccount)
	assert.EqualValues(t, 1, escrowed.Amount)
	assert.True(t, escrowed.IsOwnedBy(env.authority(t)))
	_, err = env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
	assert.NoError(t, err)
}

func TestProcessor_SettleInsufficientFunds(t *testing.T) {
	env := setupTestEnv(t)
	env.createMetadata(t)
	env.open(t)

	// Enough for the tax and royalties, not for the seller
	taker, takerTokenAccount := env.newTaker(t, 100_000)
	takerKey := taker.Public().(ed25519.PublicKey)

	err := env.buy(t, taker, takerTokenAccount, testStartingPrice, env.creators)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	// Partial transfers were rolled back
	assert.EqualValues(t, 100_000, env.lamports(t, takerKey))
	assert.EqualValues(t, 0, env.lamports(t, env.taxRecipient))
	assert.EqualValues(t, 0, env.lamports(t, env.creators[0]))
}

func TestProcessor_SettleByInitializer(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	sellerBefore := env.lamports(t, env.sellerKey)
	auctionRent := env.lamports(t, env.auctionAddress(t))

	require.NoError(t, env.buy(t, env.seller, env.tokenAccount, testStartingPrice, nil))

	// Behaves as a cancel: no payment, custody returned
	assert.Equal(t, sellerBefore+auctionRent, env.lamports(t, env.sellerKey))
	assert.EqualValues(t, 0, env.lamports(t, env.taxRecipient))

	state := env.tokenState(t, env.tokenAccount)
	assert.True(t, state.IsOwnedBy(env.sellerKey))
	assert.EqualValues(t, 1, state.Amount)

	_, err := env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestProcessor_Cancel(t *testing.T) {
	env := setupTestEnv(t)
	env.open(t)

	cancel := func(signer ed25519.PrivateKey) error {
		ix := dutchauction.NewCancelAuctionInstruction(
			env.resolver.Program(),
			&dutchauction.CancelAuctionInstructionAccounts{
				Initializer:    signer.Public().(ed25519.PublicKey),
				TokenAccount:   env.tokenAccount,
				TokenAuthority: env.authority(t),
				AuctionAccount: env.auctionAddress(t),
			},
		)
		_, err := env.submitter.Submit(env.ctx, []ed25519.PrivateKey{signer}, ix)
		return err
	}

	other := testutil.GenerateSolanaKeypair(t)
	env.ledger.Fund(other.Public().(ed25519.PublicKey), 1_000_000)
	assert.ErrorIs(t, cancel(other), dutchauction.ErrInvalidInstruction)

	sellerBefore := env.lamports(t, env.sellerKey)
	auctionRent := env.lamports(t, env.auctionAddress(t))

	require.NoError(t, cancel(env.seller))
	assert.Equal(t, sellerBefore+auctionRent, env.lamports(t, env.sellerKey))

	state := env.tokenState(t, env.tokenAccount)
	assert.True(t, state.IsOwnedBy(env.sellerKey))
	assert.EqualValues(t, 1, state.Amount)

	// Neither a second cancel nor a settle can find the auction
	assert.ErrorIs(t, cancel(env.seller), ledger.ErrAccountNotFound)

	taker, takerTokenAccount := env.newTaker(t, 10_000_000)
	assert.ErrorIs(t, env.buy(t, taker, takerTokenAccount, testStartingPrice, nil), ledger.ErrAccountNotFound)

	// The pair can be auctioned again
	env.open(t)
}

func TestProcessor_ConcurrentSettle(t *testing.T) {
	env := setupTestEnv(t)
	env.createMetadata(t)
	env.open(t)

	const takerCount = 16

	type participant struct {
		taker        ed25519.PrivateKey
		tokenAccount ed25519.PublicKey
	}
	participants := make([]participant, takerCount)
	for i := range participants {
		participants[i].taker, participants[i].tokenAccount = env.newTaker(t, 10_000_000)
	}

	var wg sync.WaitGroup
	results := make(chan error, takerCount)
	for _, p := range participants {
		wg.Add(1)
		go func(p participant) {
			defer wg.Done()
			results <- env.buy(t, p.taker, p.tokenAccount, testStartingPrice, env.creators)
		}(p)
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ledger.ErrAccountNotFound), err.Error())
	}
	assert.Equal(t, 1, succeeded)

	var paid, owners int
	for _, p := range participants {
		if env.lamports(t, p.taker.Public().(ed25519.PublicKey)) < 10_000_000 {
			paid++
		}
		if env.tokenState(t, p.tokenAccount).Amount == 1 {
			owners++
		}
	}
	assert.Equal(t, 1, paid)
	assert.Equal(t, 1, owners)
}

func TestProcessor_ProcessTransaction(t *testing.T) {
	env := setupTestEnv(t)

	cancel := dutchauction.NewCancelAuctionInstruction(
		env.resolver.Program(),
		&dutchauction.CancelAuctionInstructionAccounts{
			Initializer:    env.sellerKey,
			TokenAccount:   env.tokenAccount,
			TokenAuthority: env.authority(t),
			AuctionAccount: env.auctionAddress(t),
		},
	)

	// Open and cancel in one transaction leaves the seller where it started
	sellerBefore := env.lamports(t, env.sellerKey)
	_, err := env.submitter.Submit(env.ctx, []ed25519.PrivateKey{env.seller}, env.openInstruction(t, defaultOpenArgs()), cancel)
	require.NoError(t, err)
	assert.Equal(t, sellerBefore, env.lamports(t, env.sellerKey))
	assert.True(t, env.tokenState(t, env.tokenAccount).IsOwnedBy(env.sellerKey))

	// A failing instruction discards the effects of earlier ones
	bad := env.openInstruction(t, defaultOpenArgs())
	_, err = env.submitter.Submit(env.ctx, []ed25519.PrivateKey{env.seller}, env.openInstruction(t, defaultOpenArgs()), bad)
	assert.ErrorIs(t, err, ledger.ErrAccountAlreadyInUse)
	_, err = env.ledger.GetAccount(env.ctx, env.auctionAddress(t))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// Foreign programs and unknown instructions are rejected
	err = env.processor.ProcessInstruction(env.ctx, env.ledger, solana.NewInstruction(testutil.GenerateSolanaKeys(t, 1)[0], []byte{1}))
	assert.ErrorIs(t, err, dutchauction.ErrInvalidProgram)
	err = env.processor.ProcessInstruction(env.ctx, env.ledger, solana.NewInstruction(env.resolver.Program(), []byte{1, 2, 3}))
	assert.ErrorIs(t, err, dutchauction.ErrInvalidInstruction)
	assert.ErrorIs(t, env.processor.ProcessTransaction(env.ctx, env.ledger), dutchauction.ErrInvalidInstruction)
}

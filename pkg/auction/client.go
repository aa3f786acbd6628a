package auction

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	xrate "golang.org/x/time/rate"

	auctiondata "github.com/code-payments/dutch-auction/pkg/data/auction"
	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/metrics"
	"github.com/code-payments/dutch-auction/pkg/pointer"
	"github.com/code-payments/dutch-auction/pkg/rate"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
	"github.com/code-payments/dutch-auction/pkg/solana/metadata"
	"github.com/code-payments/dutch-auction/pkg/solana/token"
)

const clientMetricsStructName = "auction.client"

var (
	ErrRateLimited     = errors.New("too many submissions for signer")
	ErrAuctionNotFound = errors.New("auction not found")
	ErrMetadataMissing = errors.New("metadata not found")
)

// Auction is a decoded auction account and its address.
type Auction struct {
	Address ed25519.PublicKey
	State   *dutchauction.AuctionAccount
}

type OpenAuctionArgs struct {
	Initializer ed25519.PrivateKey
	Mint        ed25519.PublicKey
	// Defaults to the initializer's associated token account for the mint
	TokenAccount ed25519.PublicKey

	StartingPrice uint64
	ReservedPrice uint64
	PriceStep     uint64
	Interval      uint64
}

type BuyArgs struct {
	Taker   ed25519.PrivateKey
	Auction ed25519.PublicKey
	// The most the taker is willing to pay, usually the price they were shown
	FrontendPrice uint64
	// Defaults to the taker's associated token account for the mint. The
	// account must already exist.
	TakerTokenAccount ed25519.PublicKey
}

// Client drives auctions on behalf of sellers and buyers. It derives program
// addresses, submits instructions and records each auction's lifecycle in the
// index store.
type Client struct {
	log       *logrus.Entry
	conf      *conf
	resolver  *dutchauction.AddressResolver
	deriver   solana.AddressDeriver
	reader    ledger.Reader
	submitter Submitter
	store     auctiondata.Store
	limiter   rate.Limiter
	clock     ledger.Clock
}

func NewClient(
	resolver *dutchauction.AddressResolver,
	deriver solana.AddressDeriver,
	reader ledger.Reader,
	submitter Submitter,
	store auctiondata.Store,
	configProvider ConfigProvider,
) *Client {
	if deriver == nil {
		deriver = solana.NewAddressDeriver()
	}

	conf := configProvider()
	return &Client{
		log:       logrus.StandardLogger().WithField("type", "auction/client"),
		conf:      conf,
		resolver:  resolver,
		deriver:   deriver,
		reader:    reader,
		submitter: submitter,
		store:     store,
		limiter:   rate.NewLocalRateLimiter(xrate.Limit(conf.submitRateLimit.Get(context.Background()))),
		clock:     time.Now,
	}
}

// SetClock replaces the clock used to evaluate auction prices.
func (c *Client) SetClock(clock ledger.Clock) {
	c.clock = clock
}

// OpenAuction starts an auction for the mint, escrowing the initializer's
// token account.
func (c *Client) OpenAuction(ctx context.Context, args *OpenAuctionArgs) (*auctiondata.Record, error) {
	tracer := metrics.TraceMethodCall(ctx, clientMetricsStructName, "OpenAuction")
	defer tracer.End()

	record, err := c.openAuction(ctx, args)
	tracer.OnError(err)
	return record, err
}

func (c *Client) openAuction(ctx context.Context, args *OpenAuctionArgs) (*auctiondata.Record, error) {
	initializer := args.Initializer.Public().(ed25519.PublicKey)

	log := c.log.WithFields(logrus.Fields{
		"method":      "OpenAuction",
		"initializer": base58.Encode(initializer),
		"mint":        base58.Encode(args.Mint),
	})

	if err := c.checkRateLimit(initializer); err != nil {
		return nil, err
	}

	tokenAccount := args.TokenAccount
	if len(tokenAccount) == 0 {
		var err error
		tokenAccount, err = token.GetAssociatedAccount(initializer, args.Mint)
		if err != nil {
			return nil, err
		}
	}

	auctionAddress, bump, err := c.resolver.GetAuctionAddress(&dutchauction.GetAuctionAddressArgs{
		Initializer: initializer,
		Mint:        args.Mint,
	})
	if err != nil {
		return nil, err
	}
	authority, _, err := c.resolver.GetTokenAuthorityAddress()
	if err != nil {
		return nil, err
	}

	ix := dutchauction.NewInitAuctionInstruction(
		c.resolver.Program(),
		&dutchauction.InitAuctionInstructionAccounts{
			Initializer:    initializer,
			TokenAccount:   tokenAccount,
			Mint:           args.Mint,
			TokenAuthority: authority,
			AuctionAccount: auctionAddress,
		},
		&dutchauction.InitAuctionInstructionArgs{
			StartingPrice: args.StartingPrice,
			ReservedPrice: args.ReservedPrice,
			PriceStep:     args.PriceStep,
			Interval:      args.Interval,
			Bump:          bump,
		},
	)

	sig, err := c.submitter.Submit(ctx, []ed25519.PrivateKey{args.Initializer}, ix)
	if err != nil {
		log.WithError(err).Warn("failed to open auction")
		return nil, err
	}

	log = log.WithField("auction", base58.Encode(auctionAddress))

	// The chain assigns the starting timestamp, so the account is the source
	// of truth for the record.
	auction, err := c.GetAuction(ctx, auctionAddress)
	if err != nil {
		log.WithError(err).Warn("failed to read opened auction")
		return nil, err
	}

	record := &auctiondata.Record{
		Address:           base58.Encode(auctionAddress),
		Initializer:       base58.Encode(initializer),
		Mint:              base58.Encode(args.Mint),
		TokenAccount:      base58.Encode(tokenAccount),
		StartingPrice:     auction.StartingPrice,
		ReservedPrice:     auction.ReservedPrice,
		PriceStep:         auction.PriceStep,
		Interval:          auction.Interval,
		StartingTimestamp: auction.StartingTimestamp,
		Bump:              auction.Bump,
		State:             auctiondata.StateOpen,
		OpenSignature:     sig.String(),
	}
	// The auction is live on the ledger regardless of the index.
	if err := c.store.Put(ctx, record); err != nil {
		log.WithError(err).Error("failed to save auction record")
	}

	log.Debug("auction opened")
	return record, nil
}

// Buy settles an auction at its current price. When the taker is the auction's
// initializer the auction is cancelled instead.
func (c *Client) Buy(ctx context.Context, args *BuyArgs) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, clientMetricsStructName, "Buy")
	defer tracer.End()

	sig, err := c.buy(ctx, args)
	tracer.OnError(err)
	return sig, err
}

func (c *Client) buy(ctx context.Context, args *BuyArgs) (solana.Signature, error) {
	taker := args.Taker.Public().(ed25519.PublicKey)

	log := c.log.WithFields(logrus.Fields{
		"method":  "Buy",
		"auction": base58.Encode(args.Auction),
		"taker":   base58.Encode(taker),
	})

	if err := c.checkRateLimit(taker); err != nil {
		return solana.Signature{}, err
	}

	auction, err := c.GetAuction(ctx, args.Auction)
	if err != nil {
		return solana.Signature{}, err
	}

	takerTokenAccount := args.TakerTokenAccount
	if len(takerTokenAccount) == 0 {
		takerTokenAccount, err = token.GetAssociatedAccount(taker, auction.Mint)
		if err != nil {
			return solana.Signature{}, err
		}
	}

	metadataAddress, _, err := metadata.GetMetadataAddress(c.deriver, &metadata.GetMetadataAddressArgs{Mint: auction.Mint})
	if err != nil {
		return solana.Signature{}, err
	}
	var creators []ed25519.PublicKey
	md, err := c.GetMetadata(ctx, auction.Mint)
	if err == nil {
		for _, creator := range md.Data.Creators {
			creators = append(creators, creator.Address)
		}
	} else if err != ErrMetadataMissing {
		return solana.Signature{}, err
	}

	authority, _, err := c.resolver.GetTokenAuthorityAddress()
	if err != nil {
		return solana.Signature{}, err
	}
	salesTaxRecipient, err := c.conf.getSalesTaxRecipient(ctx)
	if err != nil {
		return solana.Signature{}, err
	}

	ix := dutchauction.NewBuyInstruction(
		c.resolver.Program(),
		&dutchauction.BuyInstructionAccounts{
			Taker:             taker,
			TakerTokenAccount: takerTokenAccount,
			Initializer:       auction.Initializer,
			TokenAccount:      auction.TokenAccount,
			TokenAuthority:    authority,
			AuctionAccount:    args.Auction,
			SalesTaxRecipient: salesTaxRecipient,
			Metadata:          metadataAddress,
			Creators:          creators,
		},
		&dutchauction.BuyInstructionArgs{
			FrontendPrice: args.FrontendPrice,
		},
	)

	price, err := auction.CurrentPrice(c.clock().Unix())
	if err != nil {
		return solana.Signature{}, err
	}

	sig, err := c.submitter.Submit(ctx, []ed25519.PrivateKey{args.Taker}, ix)
	if err != nil {
		log.WithError(err).Warn("failed to buy auction")
		return sig, err
	}

	if bytes.Equal(taker, auction.Initializer) {
		c.recordClosed(ctx, log, args.Auction, auctiondata.StateCancelled, nil, nil, sig)
	} else {
		c.recordClosed(ctx, log, args.Auction, auctiondata.StateSettled, pointer.String(base58.Encode(taker)), pointer.Uint64(price), sig)
	}

	log.WithField("price", price).Debug("auction bought")
	return sig, nil
}

// CancelAuction closes the initializer's auction for the mint and returns the
// escrowed token account.
func (c *Client) CancelAuction(ctx context.Context, initializer ed25519.PrivateKey, mint ed25519.PublicKey) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, clientMetricsStructName, "CancelAuction")
	defer tracer.End()

	sig, err := c.cancelAuction(ctx, initializer, mint)
	tracer.OnError(err)
	return sig, err
}

func (c *Client) cancelAuction(ctx context.Context, initializer ed25519.PrivateKey, mint ed25519.PublicKey) (solana.Signature, error) {
	initializerKey := initializer.Public().(ed25519.PublicKey)

	if err := c.checkRateLimit(initializerKey); err != nil {
		return solana.Signature{}, err
	}

	auctionAddress, _, err := c.resolver.GetAuctionAddress(&dutchauction.GetAuctionAddressArgs{
		Initializer: initializerKey,
		Mint:        mint,
	})
	if err != nil {
		return solana.Signature{}, err
	}

	log := c.log.WithFields(logrus.Fields{
		"method":  "CancelAuction",
		"auction": base58.Encode(auctionAddress),
	})

	auction, err := c.GetAuction(ctx, auctionAddress)
	if err != nil {
		return solana.Signature{}, err
	}
	authority, _, err := c.resolver.GetTokenAuthorityAddress()
	if err != nil {
		return solana.Signature{}, err
	}

	ix := dutchauction.NewCancelAuctionInstruction(
		c.resolver.Program(),
		&dutchauction.CancelAuctionInstructionAccounts{
			Initializer:    initializerKey,
			TokenAccount:   auction.TokenAccount,
			TokenAuthority: authority,
			AuctionAccount: auctionAddress,
		},
	)

	sig, err := c.submitter.Submit(ctx, []ed25519.PrivateKey{initializer}, ix)
	if err != nil {
		log.WithError(err).Warn("failed to cancel auction")
		return sig, err
	}

	c.recordClosed(ctx, log, auctionAddress, auctiondata.StateCancelled, nil, nil, sig)
	log.Debug("auction cancelled")
	return sig, nil
}

// recordClosed moves the auction's record out of the open state. The ledger
// already reflects the outcome, so failures are only logged.
func (c *Client) recordClosed(ctx context.Context, log *logrus.Entry, address ed25519.PublicKey, state auctiondata.State, taker *string, price *uint64, sig solana.Signature) {
	record, err := c.store.GetByAddress(ctx, base58.Encode(address))
	if err != nil {
		log.WithError(err).Warn("failed to load auction record")
		return
	}

	record.State = state
	record.Taker = taker
	record.SettledPrice = price
	record.CloseSignature = pointer.String(sig.String())
	if err := c.store.Update(ctx, record); err != nil {
		log.WithError(err).Warn("failed to update auction record")
	}
}

func (c *Client) checkRateLimit(signer ed25519.PublicKey) error {
	if !c.limiter.Allow(base58.Encode(signer)) {
		return ErrRateLimited
	}
	return nil
}

// GetAuction reads and decodes an auction account.
func (c *Client) GetAuction(ctx context.Context, address ed25519.PublicKey) (*dutchauction.AuctionAccount, error) {
	account, err := c.reader.GetAccount(ctx, address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, ErrAuctionNotFound
	} else if err != nil {
		return nil, err
	}
	if !account.IsOwnedBy(c.resolver.Program()) {
		return nil, ErrAuctionNotFound
	}

	var auction dutchauction.AuctionAccount
	if err := auction.Unmarshal(account.Data); err != nil {
		return nil, err
	}
	return &auction, nil
}

// GetCurrentPrice returns the price an auction sells at now.
func (c *Client) GetCurrentPrice(ctx context.Context, address ed25519.PublicKey) (uint64, error) {
	auction, err := c.GetAuction(ctx, address)
	if err != nil {
		return 0, err
	}
	return auction.CurrentPrice(c.clock().Unix())
}

// GetMetadata reads and decodes the metadata account of a mint.
func (c *Client) GetMetadata(ctx context.Context, mint ed25519.PublicKey) (*metadata.MetadataAccount, error) {
	address, _, err := metadata.GetMetadataAddress(c.deriver, &metadata.GetMetadataAddressArgs{Mint: mint})
	if err != nil {
		return nil, err
	}

	account, err := c.reader.GetAccount(ctx, address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, ErrMetadataMissing
	} else if err != nil {
		return nil, err
	}
	if !account.IsOwnedBy(metadata.PROGRAM_ID) {
		return nil, metadata.ErrInvalidAccountData
	}

	var md metadata.MetadataAccount
	if err := md.Unmarshal(account.Data); err != nil {
		return nil, err
	}
	return &md, nil
}

// GetAuctionsBySeller returns every open auction of an initializer, ordered
// by address.
func (c *Client) GetAuctionsBySeller(ctx context.Context, initializer ed25519.PublicKey) ([]*Auction, error) {
	accounts, err := c.reader.GetProgramAccounts(
		ctx,
		c.resolver.Program(),
		dutchauction.AuctionAccountSize,
		solana.MemcmpFilter{Offset: 0, Bytes: dutchauction.AuctionAccountDiscriminator},
		solana.MemcmpFilter{Offset: dutchauction.InitializerOffset, Bytes: initializer},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*Auction, 0, len(accounts))
	for _, account := range accounts {
		var state dutchauction.AuctionAccount
		if err := state.Unmarshal(account.Data); err != nil {
			c.log.WithError(err).WithField("auction", base58.Encode(account.Address)).Warn("skipping malformed auction account")
			continue
		}
		res = append(res, &Auction{
			Address: account.Address,
			State:   &state,
		})
	}
	return res, nil
}

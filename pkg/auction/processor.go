package auction

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/dutch-auction/pkg/ledger"
	"github.com/code-payments/dutch-auction/pkg/metrics"
	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/dutchauction"
	"github.com/code-payments/dutch-auction/pkg/solana/metadata"
	"github.com/code-payments/dutch-auction/pkg/solana/system"
	"github.com/code-payments/dutch-auction/pkg/solana/token"
)

const (
	metricsStructName = "auction.processor"

	auctionOpenedEventName    = "AuctionOpened"
	auctionSettledEventName   = "AuctionSettled"
	auctionCancelledEventName = "AuctionCancelled"
)

// Processor executes auction program instructions against a ledger.
type Processor struct {
	log      *logrus.Entry
	conf     *conf
	resolver *dutchauction.AddressResolver
	deriver  solana.AddressDeriver
}

// NewProcessor returns a Processor for the program resolver targets. The
// deriver locates metadata accounts; a nil deriver uses the standard
// derivation.
func NewProcessor(resolver *dutchauction.AddressResolver, deriver solana.AddressDeriver, configProvider ConfigProvider) *Processor {
	if deriver == nil {
		deriver = solana.NewAddressDeriver()
	}
	return &Processor{
		log:      logrus.StandardLogger().WithField("type", "auction/processor"),
		conf:     configProvider(),
		resolver: resolver,
		deriver:  deriver,
	}
}

// ProcessInstruction decodes an auction instruction and executes it
// atomically.
func (p *Processor) ProcessInstruction(ctx context.Context, l ledger.Ledger, ix solana.Instruction) error {
	return p.ProcessTransaction(ctx, l, ix)
}

// ProcessTransaction executes a sequence of auction instructions atomically.
// Signer and writable flags apply across every instruction in the sequence.
func (p *Processor) ProcessTransaction(ctx context.Context, l ledger.Ledger, instructions ...solana.Instruction) error {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "ProcessTransaction")
	defer tracer.End()

	err := p.processTransaction(ctx, l, instructions)
	tracer.OnError(err)
	return err
}

func (p *Processor) processTransaction(ctx context.Context, l ledger.Ledger, instructions []solana.Instruction) error {
	if len(instructions) == 0 {
		return dutchauction.ErrInvalidInstruction
	}

	req := &ledger.Request{
		Program: p.resolver.Program(),
	}
	handlers := make([]func(ledger.Tx) error, len(instructions))
	for i, ix := range instructions {
		handler, err := p.getHandler(ctx, ix)
		if err != nil {
			return wrapInstructionError(err, i, len(instructions))
		}
		handlers[i] = handler

		ixReq := ledger.NewRequest(ix)
		req.Signers = append(req.Signers, ixReq.Signers...)
		req.Writable = append(req.Writable, ixReq.Writable...)
	}

	err := l.Execute(ctx, req, func(tx ledger.Tx) error {
		for i, handler := range handlers {
			if err := handler(tx); err != nil {
				return wrapInstructionError(err, i, len(handlers))
			}
		}
		return nil
	})
	if err != nil {
		p.log.WithError(err).Debug("transaction failed")
	}
	return err
}

func (p *Processor) getHandler(ctx context.Context, ix solana.Instruction) (func(ledger.Tx) error, error) {
	if !bytes.Equal(ix.Program, p.resolver.Program()) {
		return nil, dutchauction.ErrInvalidProgram
	}

	instructionType, err := dutchauction.GetInstructionType(ix.Data)
	if err != nil {
		return nil, dutchauction.ErrInvalidInstruction
	}

	switch instructionType {
	case dutchauction.InstructionTypeInitAuction:
		args, accounts, err := dutchauction.DecompileInitAuctionInstruction(ix)
		if err != nil {
			return nil, dutchauction.ErrInvalidInstruction
		}
		return func(tx ledger.Tx) error {
			return p.Open(ctx, tx, accounts, args)
		}, nil
	case dutchauction.InstructionTypeBuy:
		args, accounts, err := dutchauction.DecompileBuyInstruction(ix)
		if err != nil {
			return nil, dutchauction.ErrInvalidInstruction
		}
		return func(tx ledger.Tx) error {
			_, err := p.Settle(ctx, tx, accounts, args)
			return err
		}, nil
	case dutchauction.InstructionTypeCancelAuction:
		accounts, err := dutchauction.DecompileCancelAuctionInstruction(ix)
		if err != nil {
			return nil, dutchauction.ErrInvalidInstruction
		}
		return func(tx ledger.Tx) error {
			return p.Cancel(ctx, tx, accounts)
		}, nil
	default:
		return nil, dutchauction.ErrInvalidInstruction
	}
}

// Open creates the auction account for an (initializer, mint) pair and takes
// custody of the initializer's token account.
func (p *Processor) Open(ctx context.Context, tx ledger.Tx, accounts *dutchauction.InitAuctionInstructionAccounts, args *dutchauction.InitAuctionInstructionArgs) error {
	log := p.log.WithFields(logrus.Fields{
		"method":      "Open",
		"initializer": base58.Encode(accounts.Initializer),
		"mint":        base58.Encode(accounts.Mint),
	})

	if !tx.IsSigner(accounts.Initializer) {
		return dutchauction.ErrInvalidInstruction
	}
	if args.PriceStep == 0 || args.Interval == 0 {
		return dutchauction.ErrInvalidInstruction
	}
	if args.StartingPrice < args.ReservedPrice {
		return dutchauction.ErrExpectedAmountMismatch
	}

	auctionAddress, bump, err := p.resolver.GetAuctionAddress(&dutchauction.GetAuctionAddressArgs{
		Initializer: accounts.Initializer,
		Mint:        accounts.Mint,
	})
	if err != nil {
		return err
	}
	if !bytes.Equal(auctionAddress, accounts.AuctionAccount) || bump != args.Bump {
		return dutchauction.ErrInvalidInstruction
	}

	authority, _, err := p.resolver.GetTokenAuthorityAddress()
	if err != nil {
		return err
	}
	if !bytes.Equal(authority, accounts.TokenAuthority) {
		return dutchauction.ErrInvalidInstruction
	}

	if _, err := tx.GetAccount(auctionAddress); err == nil {
		return errors.Wrap(ledger.ErrAccountAlreadyInUse, base58.Encode(auctionAddress))
	} else if !errors.Is(err, ledger.ErrAccountNotFound) {
		return err
	}

	tokenState, err := loadTokenAccount(tx, accounts.TokenAccount)
	if err != nil {
		return err
	}
	if !bytes.Equal(tokenState.Mint, accounts.Mint) {
		return dutchauction.ErrInvalidMintAccount
	}
	if tokenState.Amount != 1 {
		return dutchauction.ErrInvalidTokenAmount
	}
	if !tokenState.IsOwnedBy(accounts.Initializer) {
		return dutchauction.ErrInvalidInstruction
	}

	rent := tx.MinimumBalanceForRentExemption(dutchauction.AuctionAccountSize)
	initializer, err := tx.GetAccount(accounts.Initializer)
	if err != nil || initializer.Lamports < rent {
		return dutchauction.ErrNotRentExempt
	}

	err = tx.Invoke(
		system.CreateAccount(accounts.Initializer, auctionAddress, p.resolver.Program(), rent, dutchauction.AuctionAccountSize),
		[][]byte{dutchauction.AuctionPrefix, accounts.Initializer, accounts.Mint, {bump}},
	)
	if err != nil {
		return err
	}

	created, err := tx.GetAccount(auctionAddress)
	if err != nil {
		return err
	}
	if created.Lamports < rent {
		return dutchauction.ErrNotRentExempt
	}

	record := &dutchauction.AuctionAccount{
		Initializer:       accounts.Initializer,
		Mint:              accounts.Mint,
		TokenAccount:      accounts.TokenAccount,
		StartingPrice:     args.StartingPrice,
		ReservedPrice:     args.ReservedPrice,
		PriceStep:         args.PriceStep,
		Interval:          args.Interval,
		StartingTimestamp: tx.UnixTimestamp(),
		Bump:              bump,
	}
	data, err := record.Marshal()
	if err != nil {
		return err
	}
	if err := tx.SetAccountData(auctionAddress, data); err != nil {
		return err
	}

	err = tx.Invoke(token.SetAuthority(accounts.TokenAccount, accounts.Initializer, authority, token.AuthorityTypeAccountHolder))
	if err != nil {
		return err
	}

	log.WithField("auction", base58.Encode(auctionAddress)).Debug("auction opened")
	metrics.RecordEvent(ctx, auctionOpenedEventName, map[string]interface{}{
		"auction":        base58.Encode(auctionAddress),
		"starting_price": args.StartingPrice,
		"reserved_price": args.ReservedPrice,
	})
	return nil
}

// Settle sells the escrowed asset to the taker at the current price. A taker
// that is the initializer cancels the auction instead, in which case the
// returned split is nil.
func (p *Processor) Settle(ctx context.Context, tx ledger.Tx, accounts *dutchauction.BuyInstructionAccounts, args *dutchauction.BuyInstructionArgs) (*dutchauction.Split, error) {
	log := p.log.WithFields(logrus.Fields{
		"method":  "Settle",
		"auction": base58.Encode(accounts.AuctionAccount),
		"taker":   base58.Encode(accounts.Taker),
	})

	if !tx.IsSigner(accounts.Taker) {
		return nil, dutchauction.ErrInvalidInstruction
	}

	auction, err := p.loadAuction(tx, accounts.AuctionAccount)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(auction.Initializer, accounts.Initializer) || !bytes.Equal(auction.TokenAccount, accounts.TokenAccount) {
		return nil, dutchauction.ErrInvalidInstruction
	}

	authority, authorityBump, err := p.resolver.GetTokenAuthorityAddress()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(authority, accounts.TokenAuthority) {
		return nil, dutchauction.ErrInvalidInstruction
	}

	if bytes.Equal(accounts.Taker, auction.Initializer) {
		log.Debug("taker is the initializer, cancelling")
		return nil, p.release(ctx, tx, auction, accounts.AuctionAccount, authority, authorityBump)
	}

	// The asset has to leave the escrowed token account.
	if bytes.Equal(accounts.TakerTokenAccount, auction.TokenAccount) {
		return nil, dutchauction.ErrInvalidInstruction
	}

	salesTaxRecipient, err := p.conf.getSalesTaxRecipient(ctx)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(salesTaxRecipient, accounts.SalesTaxRecipient) {
		return nil, dutchauction.ErrInvalidSalesTaxRecipient
	}
	salesTaxBasisPoints, err := p.conf.getSalesTaxBasisPoints(ctx)
	if err != nil {
		return nil, err
	}

	price, err := auction.CurrentPrice(tx.UnixTimestamp())
	if err != nil {
		return nil, err
	}
	if args.FrontendPrice < price {
		return nil, dutchauction.ErrExpectedAmountMismatch
	}
	if args.FrontendPrice-price > auction.PriceStep {
		return nil, dutchauction.ErrIncorrectFrontendPrice
	}

	sellerFeeBasisPoints, creators, err := p.loadRoyalties(ctx, tx, auction.Mint, accounts.Metadata)
	if err != nil {
		return nil, err
	}
	if len(creators) != len(accounts.Creators) {
		return nil, dutchauction.ErrCreatorMismatch
	}
	for i, creator := range creators {
		if !bytes.Equal(creator.Address, accounts.Creators[i]) {
			return nil, dutchauction.ErrCreatorMismatch
		}
	}

	split, err := dutchauction.ComputeSplit(price, salesTaxBasisPoints, sellerFeeBasisPoints, creators)
	if err != nil {
		return nil, err
	}

	if err := tx.Invoke(system.Transfer(accounts.Taker, accounts.SalesTaxRecipient, split.SalesTax)); err != nil {
		return nil, err
	}
	for _, creatorAmount := range split.CreatorAmounts {
		if err := tx.Invoke(system.Transfer(accounts.Taker, creatorAmount.Creator, creatorAmount.Amount)); err != nil {
			return nil, err
		}
	}
	if err := tx.Invoke(system.Transfer(accounts.Taker, auction.Initializer, split.SellerProceeds)); err != nil {
		return nil, err
	}

	authoritySeeds := [][]byte{dutchauction.AuctionPrefix, {authorityBump}}
	if err := tx.Invoke(token.Transfer(auction.TokenAccount, accounts.TakerTokenAccount, authority, 1), authoritySeeds); err != nil {
		return nil, err
	}
	if err := p.closeAuction(tx, auction, accounts.AuctionAccount, authority, authorityBump); err != nil {
		return nil, err
	}

	log.WithField("price", price).Debug("auction settled")
	metrics.RecordEvent(ctx, auctionSettledEventName, map[string]interface{}{
		"auction":         base58.Encode(accounts.AuctionAccount),
		"price":           split.Price,
		"sales_tax":       split.SalesTax,
		"royalties":       split.RoyaltyPool,
		"seller_proceeds": split.SellerProceeds,
	})
	return split, nil
}

// Cancel returns custody of the escrowed token account to the initializer
// and closes the auction.
func (p *Processor) Cancel(ctx context.Context, tx ledger.Tx, accounts *dutchauction.CancelAuctionInstructionAccounts) error {
	if !tx.IsSigner(accounts.Initializer) {
		return dutchauction.ErrInvalidInstruction
	}

	auction, err := p.loadAuction(tx, accounts.AuctionAccount)
	if err != nil {
		return err
	}
	if !bytes.Equal(auction.Initializer, accounts.Initializer) || !bytes.Equal(auction.TokenAccount, accounts.TokenAccount) {
		return dutchauction.ErrInvalidInstruction
	}

	authority, authorityBump, err := p.resolver.GetTokenAuthorityAddress()
	if err != nil {
		return err
	}
	if !bytes.Equal(authority, accounts.TokenAuthority) {
		return dutchauction.ErrInvalidInstruction
	}

	return p.release(ctx, tx, auction, accounts.AuctionAccount, authority, authorityBump)
}

func (p *Processor) release(ctx context.Context, tx ledger.Tx, auction *dutchauction.AuctionAccount, auctionAddress, authority ed25519.PublicKey, authorityBump uint8) error {
	if err := p.closeAuction(tx, auction, auctionAddress, authority, authorityBump); err != nil {
		return err
	}

	p.log.WithFields(logrus.Fields{
		"method":  "Cancel",
		"auction": base58.Encode(auctionAddress),
	}).Debug("auction cancelled")
	metrics.RecordEvent(ctx, auctionCancelledEventName, map[string]interface{}{
		"auction": base58.Encode(auctionAddress),
	})
	return nil
}

// closeAuction hands the token account back to the initializer and closes the
// auction account, returning its rent to the initializer.
func (p *Processor) closeAuction(tx ledger.Tx, auction *dutchauction.AuctionAccount, auctionAddress, authority ed25519.PublicKey, authorityBump uint8) error {
	err := tx.Invoke(
		token.SetAuthority(auction.TokenAccount, authority, auction.Initializer, token.AuthorityTypeAccountHolder),
		[][]byte{dutchauction.AuctionPrefix, {authorityBump}},
	)
	if err != nil {
		return err
	}

	return tx.CloseAccount(auctionAddress, auction.Initializer)
}

func (p *Processor) loadAuction(tx ledger.Tx, address ed25519.PublicKey) (*dutchauction.AuctionAccount, error) {
	account, err := tx.GetAccount(address)
	if err != nil {
		return nil, err
	}
	if !account.IsOwnedBy(p.resolver.Program()) {
		return nil, dutchauction.ErrInvalidInstruction
	}

	var auction dutchauction.AuctionAccount
	if err := auction.Unmarshal(account.Data); err != nil {
		return nil, dutchauction.ErrInvalidInstruction
	}
	return &auction, nil
}

// loadRoyalties reads the seller fee and creators from the mint's metadata
// account. Mints without metadata pay no royalties unless metadata is
// required.
func (p *Processor) loadRoyalties(ctx context.Context, tx ledger.Tx, mint, address ed25519.PublicKey) (uint16, []metadata.Creator, error) {
	expected, _, err := metadata.GetMetadataAddress(p.deriver, &metadata.GetMetadataAddressArgs{Mint: mint})
	if err != nil {
		return 0, nil, err
	}
	if !bytes.Equal(expected, address) {
		return 0, nil, dutchauction.ErrInvalidMetadata
	}

	account, err := tx.GetAccount(address)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		if p.conf.requireMetadata.Get(ctx) {
			return 0, nil, dutchauction.ErrMissingMetadata
		}
		return 0, nil, nil
	} else if err != nil {
		return 0, nil, err
	}
	if !account.IsOwnedBy(metadata.PROGRAM_ID) {
		return 0, nil, dutchauction.ErrInvalidMetadata
	}

	var md metadata.MetadataAccount
	if err := md.Unmarshal(account.Data); err != nil {
		return 0, nil, dutchauction.ErrInvalidMetadata
	}
	if !bytes.Equal(md.Mint, mint) {
		return 0, nil, dutchauction.ErrInvalidMetadata
	}
	if err := md.Data.Validate(); err != nil {
		return 0, nil, dutchauction.ErrInvalidMetadata
	}

	return md.Data.SellerFeeBasisPoints, md.Data.Creators, nil
}

func loadTokenAccount(tx ledger.Tx, address ed25519.PublicKey) (*token.Account, error) {
	account, err := tx.GetAccount(address)
	if err != nil {
		return nil, err
	}
	if !account.IsOwnedBy(token.ProgramKey) {
		return nil, dutchauction.ErrInvalidInstruction
	}

	var state token.Account
	if err := state.Unmarshal(account.Data); err != nil {
		return nil, dutchauction.ErrInvalidInstruction
	}
	return &state, nil
}

func wrapInstructionError(err error, index, count int) error {
	if count == 1 {
		return err
	}
	return errors.Wrapf(err, "instruction %d", index)
}

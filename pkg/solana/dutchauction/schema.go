package dutchauction

import (
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

const (
	typeAuctionAccount    = "AuctionAccount"
	typeInitAuctionArgs   = "InitAuctionArgs"
	typeBuyArgs           = "BuyArgs"
	typeCancelAuctionArgs = "CancelAuctionArgs"
)

var Schema = borsh.NewSchema().
	Register(typeAuctionAccount,
		borsh.F("discriminator", borsh.Bytes(discriminatorSize)),
		borsh.F("initializer_pubkey", borsh.Pubkey()),
		borsh.F("mint_addr", borsh.Pubkey()),
		borsh.F("token_account_pubkey", borsh.Pubkey()),
		borsh.F("starting_price", borsh.U64()),
		borsh.F("reserved_price", borsh.U64()),
		borsh.F("price_step", borsh.U64()),
		borsh.F("interval", borsh.U64()),
		borsh.F("starting_ts", borsh.I64()),
		borsh.F("bump", borsh.U8()),
	).
	Register(typeInitAuctionArgs,
		borsh.F("discriminator", borsh.Bytes(discriminatorSize)),
		borsh.F("starting_price", borsh.U64()),
		borsh.F("reserved_price", borsh.U64()),
		borsh.F("price_step", borsh.U64()),
		borsh.F("interval", borsh.U64()),
		borsh.F("bump", borsh.U8()),
	).
	Register(typeBuyArgs,
		borsh.F("discriminator", borsh.Bytes(discriminatorSize)),
		borsh.F("fe_price", borsh.U64()),
	).
	Register(typeCancelAuctionArgs,
		borsh.F("discriminator", borsh.Bytes(discriminatorSize)),
	)

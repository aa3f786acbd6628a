package dutchauction

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

type InitAuctionInstructionArgs struct {
	StartingPrice uint64
	ReservedPrice uint64
	PriceStep     uint64
	Interval      uint64
	Bump          uint8
}

type InitAuctionInstructionAccounts struct {
	Initializer    ed25519.PublicKey
	TokenAccount   ed25519.PublicKey
	Mint           ed25519.PublicKey
	TokenAuthority ed25519.PublicKey
	AuctionAccount ed25519.PublicKey
}

const initAuctionAccountCount = 9

func NewInitAuctionInstruction(
	program ed25519.PublicKey,
	accounts *InitAuctionInstructionAccounts,
	args *InitAuctionInstructionArgs,
) solana.Instruction {
	// Serialize instruction arguments
	data := mustEncode(typeInitAuctionArgs, borsh.Record{
		"discriminator":  borsh.BytesValue(initAuctionDiscriminator),
		"starting_price": borsh.U64Value(args.StartingPrice),
		"reserved_price": borsh.U64Value(args.ReservedPrice),
		"price_step":     borsh.U64Value(args.PriceStep),
		"interval":       borsh.U64Value(args.Interval),
		"bump":           borsh.U8Value(args.Bump),
	})

	return solana.Instruction{
		Program: program,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Initializer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.TokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.TokenAuthority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.AuctionAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_CLOCK_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}

func DecompileInitAuctionInstruction(ix solana.Instruction) (*InitAuctionInstructionArgs, *InitAuctionInstructionAccounts, error) {
	if len(ix.Accounts) != initAuctionAccountCount {
		return nil, nil, errors.Wrapf(ErrInvalidInstructionData, "expected %d accounts, got %d", initAuctionAccountCount, len(ix.Accounts))
	}

	record, err := Schema.Decode(typeInitAuctionArgs, ix.Data)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	if t, _ := GetInstructionType(ix.Data); t != InstructionTypeInitAuction {
		return nil, nil, ErrInvalidInstructionData
	}

	args := &InitAuctionInstructionArgs{
		StartingPrice: record["starting_price"].Uint64(),
		ReservedPrice: record["reserved_price"].Uint64(),
		PriceStep:     record["price_step"].Uint64(),
		Interval:      record["interval"].Uint64(),
		Bump:          record["bump"].Uint8(),
	}

	accounts := &InitAuctionInstructionAccounts{
		Initializer:    accountKey(ix, 0),
		TokenAccount:   accountKey(ix, 1),
		Mint:           accountKey(ix, 2),
		TokenAuthority: accountKey(ix, 3),
		AuctionAccount: accountKey(ix, 4),
	}

	return args, accounts, nil
}

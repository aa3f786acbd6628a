package dutchauction

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

type BuyInstructionArgs struct {
	// The price the buyer saw, which is the most they are willing to pay
	FrontendPrice uint64
}

type BuyInstructionAccounts struct {
	Taker             ed25519.PublicKey
	TakerTokenAccount ed25519.PublicKey
	Initializer       ed25519.PublicKey
	TokenAccount      ed25519.PublicKey
	TokenAuthority    ed25519.PublicKey
	AuctionAccount    ed25519.PublicKey
	SalesTaxRecipient ed25519.PublicKey
	Metadata          ed25519.PublicKey
	// Royalty recipients, in metadata order
	Creators []ed25519.PublicKey
}

const buyFixedAccountCount = 11

func NewBuyInstruction(
	program ed25519.PublicKey,
	accounts *BuyInstructionAccounts,
	args *BuyInstructionArgs,
) solana.Instruction {
	data := mustEncode(typeBuyArgs, borsh.Record{
		"discriminator": borsh.BytesValue(buyDiscriminator),
		"fe_price":      borsh.U64Value(args.FrontendPrice),
	})

	metas := []solana.AccountMeta{
		solana.NewAccountMeta(accounts.Taker, true),
		solana.NewAccountMeta(accounts.TakerTokenAccount, false),
		solana.NewAccountMeta(accounts.Initializer, false),
		solana.NewAccountMeta(accounts.TokenAccount, false),
		solana.NewReadonlyAccountMeta(accounts.TokenAuthority, false),
		solana.NewAccountMeta(accounts.AuctionAccount, false),
		solana.NewAccountMeta(accounts.SalesTaxRecipient, false),
		solana.NewReadonlyAccountMeta(accounts.Metadata, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSVAR_CLOCK_PUBKEY, false),
	}
	for _, creator := range accounts.Creators {
		metas = append(metas, solana.NewAccountMeta(creator, false))
	}

	return solana.NewInstruction(program, data, metas...)
}

func DecompileBuyInstruction(ix solana.Instruction) (*BuyInstructionArgs, *BuyInstructionAccounts, error) {
	if len(ix.Accounts) < buyFixedAccountCount {
		return nil, nil, errors.Wrapf(ErrInvalidInstructionData, "expected at least %d accounts, got %d", buyFixedAccountCount, len(ix.Accounts))
	}

	record, err := Schema.Decode(typeBuyArgs, ix.Data)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	if t, _ := GetInstructionType(ix.Data); t != InstructionTypeBuy {
		return nil, nil, ErrInvalidInstructionData
	}

	accounts := &BuyInstructionAccounts{
		Taker:             accountKey(ix, 0),
		TakerTokenAccount: accountKey(ix, 1),
		Initializer:       accountKey(ix, 2),
		TokenAccount:      accountKey(ix, 3),
		TokenAuthority:    accountKey(ix, 4),
		AuctionAccount:    accountKey(ix, 5),
		SalesTaxRecipient: accountKey(ix, 6),
		Metadata:          accountKey(ix, 7),
	}
	for i := buyFixedAccountCount; i < len(ix.Accounts); i++ {
		accounts.Creators = append(accounts.Creators, accountKey(ix, i))
	}

	return &BuyInstructionArgs{FrontendPrice: record["fe_price"].Uint64()}, accounts, nil
}

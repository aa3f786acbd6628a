package dutchauction

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

type CancelAuctionInstructionAccounts struct {
	Initializer    ed25519.PublicKey
	TokenAccount   ed25519.PublicKey
	TokenAuthority ed25519.PublicKey
	AuctionAccount ed25519.PublicKey
}

const cancelAuctionAccountCount = 5

func NewCancelAuctionInstruction(
	program ed25519.PublicKey,
	accounts *CancelAuctionInstructionAccounts,
) solana.Instruction {
	data := mustEncode(typeCancelAuctionArgs, borsh.Record{
		"discriminator": borsh.BytesValue(cancelAuctionDiscriminator),
	})

	return solana.NewInstruction(
		program,
		data,
		solana.NewAccountMeta(accounts.Initializer, true),
		solana.NewAccountMeta(accounts.TokenAccount, false),
		solana.NewReadonlyAccountMeta(accounts.TokenAuthority, false),
		solana.NewAccountMeta(accounts.AuctionAccount, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
	)
}

func DecompileCancelAuctionInstruction(ix solana.Instruction) (*CancelAuctionInstructionAccounts, error) {
	if len(ix.Accounts) != cancelAuctionAccountCount {
		return nil, errors.Wrapf(ErrInvalidInstructionData, "expected %d accounts, got %d", cancelAuctionAccountCount, len(ix.Accounts))
	}

	if _, err := Schema.Decode(typeCancelAuctionArgs, ix.Data); err != nil {
		return nil, errors.Wrap(ErrInvalidInstructionData, err.Error())
	}
	if t, _ := GetInstructionType(ix.Data); t != InstructionTypeCancelAuction {
		return nil, ErrInvalidInstructionData
	}

	return &CancelAuctionInstructionAccounts{
		Initializer:    accountKey(ix, 0),
		TokenAccount:   accountKey(ix, 1),
		TokenAuthority: accountKey(ix, 2),
		AuctionAccount: accountKey(ix, 3),
	}, nil
}

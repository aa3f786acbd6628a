package metadata

import (
	"crypto/ed25519"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

type CreateMasterEditionInstructionArgs struct {
	// Nil for an unlimited supply of prints
	MaxSupply *uint64
}

type CreateMasterEditionInstructionAccounts struct {
	Edition         ed25519.PublicKey
	Mint            ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	Metadata        ed25519.PublicKey
}

func NewCreateMasterEditionInstruction(
	accounts *CreateMasterEditionInstructionAccounts,
	args *CreateMasterEditionInstructionArgs,
) (solana.Instruction, error) {
	maxSupply := borsh.None()
	if args.MaxSupply != nil {
		maxSupply = borsh.Some(borsh.U64Value(*args.MaxSupply))
	}

	data, err := Schema.Encode(typeCreateMasterEditionArgs, borsh.Record{
		"instruction": borsh.U8Value(uint8(InstructionTypeCreateMasterEdition)),
		"max_supply":  maxSupply,
	})
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Edition, false),
		solana.NewAccountMeta(accounts.Mint, false),
		solana.NewReadonlyAccountMeta(accounts.UpdateAuthority, true),
		solana.NewReadonlyAccountMeta(accounts.MintAuthority, true),
		solana.NewAccountMeta(accounts.Payer, true),
		solana.NewReadonlyAccountMeta(accounts.Metadata, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSTEM_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSVAR_RENT_PUBKEY, false),
	), nil
}

type MintPrintingTokensInstructionArgs struct {
	Supply uint64
}

type MintPrintingTokensInstructionAccounts struct {
	Destination     ed25519.PublicKey
	PrintingMint    ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
	Metadata        ed25519.PublicKey
	MasterEdition   ed25519.PublicKey
}

func NewMintPrintingTokensInstruction(
	accounts *MintPrintingTokensInstructionAccounts,
	args *MintPrintingTokensInstructionArgs,
) (solana.Instruction, error) {
	data, err := Schema.Encode(typeMintPrintingTokensArgs, borsh.Record{
		"instruction": borsh.U8Value(uint8(InstructionTypeMintPrintingTokens)),
		"supply":      borsh.U64Value(args.Supply),
	})
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(
		PROGRAM_ID,
		data,
		solana.NewAccountMeta(accounts.Destination, false),
		solana.NewAccountMeta(accounts.PrintingMint, false),
		solana.NewReadonlyAccountMeta(accounts.UpdateAuthority, true),
		solana.NewReadonlyAccountMeta(accounts.Metadata, false),
		solana.NewReadonlyAccountMeta(accounts.MasterEdition, false),
		solana.NewReadonlyAccountMeta(SPL_TOKEN_PROGRAM_ID, false),
		solana.NewReadonlyAccountMeta(SYSVAR_RENT_PUBKEY, false),
	), nil
}

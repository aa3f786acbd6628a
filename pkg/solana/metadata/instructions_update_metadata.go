package metadata

import (
	"crypto/ed25519"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

// Nil fields are left unchanged by the program.
type UpdateMetadataInstructionArgs struct {
	Data                *Data
	UpdateAuthority     ed25519.PublicKey
	PrimarySaleHappened *bool
}

type UpdateMetadataInstructionAccounts struct {
	Metadata        ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
}

func NewUpdateMetadataInstruction(
	accounts *UpdateMetadataInstructionAccounts,
	args *UpdateMetadataInstructionArgs,
) (solana.Instruction, error) {
	data := borsh.None()
	if args.Data != nil {
		if err := args.Data.Validate(); err != nil {
			return solana.Instruction{}, err
		}
		data = borsh.Some(borsh.StructValue(args.Data.toRecord()))
	}

	updateAuthority := borsh.None()
	if args.UpdateAuthority != nil {
		updateAuthority = borsh.Some(borsh.PubkeyValue(args.UpdateAuthority))
	}

	primarySaleHappened := borsh.None()
	if args.PrimarySaleHappened != nil {
		primarySaleHappened = borsh.Some(borsh.BoolValue(*args.PrimarySaleHappened))
	}

	encoded, err := Schema.Encode(typeUpdateMetadataArgs, borsh.Record{
		"instruction":           borsh.U8Value(uint8(InstructionTypeUpdateMetadataAccount)),
		"data":                  data,
		"update_authority":      updateAuthority,
		"primary_sale_happened": primarySaleHappened,
	})
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.NewInstruction(
		PROGRAM_ID,
		encoded,
		solana.NewAccountMeta(accounts.Metadata, false),
		solana.NewReadonlyAccountMeta(accounts.UpdateAuthority, true),
	), nil
}

package metadata

import (
	"crypto/ed25519"

	"github.com/code-payments/dutch-auction/pkg/solana"
	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

type CreateMetadataInstructionArgs struct {
	Data      Data
	IsMutable bool
}

type CreateMetadataInstructionAccounts struct {
	Metadata        ed25519.PublicKey
	Mint            ed25519.PublicKey
	MintAuthority   ed25519.PublicKey
	Payer           ed25519.PublicKey
	UpdateAuthority ed25519.PublicKey
}

func NewCreateMetadataInstruction(
	accounts *CreateMetadataInstructionAccounts,
	args *CreateMetadataInstructionArgs,
) (solana.Instruction, error) {
	if err := args.Data.Validate(); err != nil {
		return solana.Instruction{}, err
	}

	// Serialize instruction arguments
	data, err := Schema.Encode(typeCreateMetadataArgs, borsh.Record{
		"instruction": borsh.U8Value(uint8(InstructionTypeCreateMetadataAccount)),
		"data":        borsh.StructValue(args.Data.toRecord()),
		"is_mutable":  borsh.BoolValue(args.IsMutable),
	})
	if err != nil {
		return solana.Instruction{}, err
	}

	return solana.Instruction{
		Program: PROGRAM_ID,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Metadata,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.Mint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.MintAuthority,
				IsWritable: false,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.UpdateAuthority,
				IsWritable: false,
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
		},
	}, nil
}

// DecompileCreateMetadataInstruction reads the arguments back out of a create
// metadata instruction.
func DecompileCreateMetadataInstruction(ix solana.Instruction) (*CreateMetadataInstructionArgs, error) {
	if !ix.Program.Equal(PROGRAM_ID) {
		return nil, ErrInvalidProgram
	}
	if len(ix.Data) == 0 || InstructionType(ix.Data[0]) != InstructionTypeCreateMetadataAccount {
		return nil, ErrInvalidInstructionData
	}

	record, err := Schema.Decode(typeCreateMetadataArgs, ix.Data)
	if err != nil {
		return nil, err
	}

	return &CreateMetadataInstructionArgs{
		Data:      dataFromRecord(record["data"].Record()),
		IsMutable: record["is_mutable"].Bool(),
	}, nil
}

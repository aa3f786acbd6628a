package metadata

type InstructionType uint8

const (
	InstructionTypeCreateMetadataAccount InstructionType = 0
	InstructionTypeUpdateMetadataAccount InstructionType = 1
	InstructionTypeMintPrintingTokens    InstructionType = 9
	InstructionTypeCreateMasterEdition   InstructionType = 10
)

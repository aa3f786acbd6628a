package metadata

import (
	"crypto/ed25519"
	"errors"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
	ErrInvalidMetadataData    = errors.New("invalid metadata data")
)

var (
	PROGRAM_ADDRESS = mustBase58Decode("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID    = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))

	SYSVAR_RENT_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
)

const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxUriLength    = 200
	MaxCreatorLimit = 5

	CreatorSize = 32 + 1 + 1

	// Allocated size of a metadata account, including space the program
	// reserves past the record for later versions.
	MaxMetadataLen = (1 + // key
		32 + // update_authority
		32 + // mint
		MaxNameLength +
		MaxSymbolLength +
		MaxUriLength +
		MaxCreatorLimit*CreatorSize +
		2 + // seller_fee_basis_points
		1 + // primary_sale_happened
		1 + // is_mutable
		198) // reserved

	// Total basis points a fee may claim
	MaxBasisPoints = 10_000

	// Creator shares are percentages of the royalty
	TotalCreatorShare = 100
)

// Key is the leading account type tag on every account owned by the program.
type Key uint8

const (
	KeyUninitialized Key = iota
	KeyEditionV1
	KeyMasterEditionV1
	KeyReservationListV1
	KeyMetadataV1
	KeyReservationListV2
	KeyMasterEditionV2
	KeyEditionMarker
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

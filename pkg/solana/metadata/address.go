package metadata

import (
	"crypto/ed25519"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

var (
	MetadataPrefix = []byte("metadata")
	EditionSuffix  = []byte("edition")
)

type GetMetadataAddressArgs struct {
	Mint ed25519.PublicKey
}

// GetMetadataAddress derives the metadata account for a mint. A nil deriver
// uses the standard derivation.
func GetMetadataAddress(deriver solana.AddressDeriver, args *GetMetadataAddressArgs) (ed25519.PublicKey, uint8, error) {
	if deriver == nil {
		deriver = solana.NewAddressDeriver()
	}

	return deriver.DeriveAddress(
		PROGRAM_ID,
		MetadataPrefix,
		PROGRAM_ID,
		args.Mint,
	)
}

type GetEditionAddressArgs struct {
	Mint ed25519.PublicKey
}

func GetEditionAddress(deriver solana.AddressDeriver, args *GetEditionAddressArgs) (ed25519.PublicKey, uint8, error) {
	if deriver == nil {
		deriver = solana.NewAddressDeriver()
	}

	return deriver.DeriveAddress(
		PROGRAM_ID,
		MetadataPrefix,
		PROGRAM_ID,
		args.Mint,
		EditionSuffix,
	)
}

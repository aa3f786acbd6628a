package dutchauction

import (
	"crypto/ed25519"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

var (
	AuctionPrefix = []byte("dutchauction")
)

// AddressResolver derives the program's addresses for one deployment.
type AddressResolver struct {
	program ed25519.PublicKey
	deriver solana.AddressDeriver
}

// NewAddressResolver returns an AddressResolver for the program. A nil
// deriver uses the standard derivation.
func NewAddressResolver(program ed25519.PublicKey, deriver solana.AddressDeriver) *AddressResolver {
	if deriver == nil {
		deriver = solana.NewAddressDeriver()
	}
	return &AddressResolver{
		program: program,
		deriver: deriver,
	}
}

func (r *AddressResolver) Program() ed25519.PublicKey {
	return r.program
}

type GetAuctionAddressArgs struct {
	Initializer ed25519.PublicKey
	Mint        ed25519.PublicKey
}

func (r *AddressResolver) GetAuctionAddress(args *GetAuctionAddressArgs) (ed25519.PublicKey, uint8, error) {
	return r.deriver.DeriveAddress(
		r.program,
		AuctionPrefix,
		args.Initializer,
		args.Mint,
	)
}

// GetTokenAuthorityAddress derives the authority that holds custody of every
// escrowed token account of the program.
func (r *AddressResolver) GetTokenAuthorityAddress() (ed25519.PublicKey, uint8, error) {
	return r.deriver.DeriveAddress(
		r.program,
		AuctionPrefix,
	)
}

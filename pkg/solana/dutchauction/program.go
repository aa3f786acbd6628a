package dutchauction

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"

	"github.com/mr-tron/base58"
)

var (
	ErrInvalidProgram         = errors.New("invalid program id")
	ErrInvalidAccountData     = errors.New("unexpected account data")
	ErrInvalidInstructionData = errors.New("unexpected instruction data")
)

// Default deployment of the program. Callers pass the program they target
// explicitly; this is only the value configuration falls back to.
var (
	PROGRAM_ADDRESS = mustBase58Decode("ATr4QpNHBjnT14tUEei26zsyMo6AyN9yaAoeLhg3ue26")
	PROGRAM_ID      = ed25519.PublicKey(PROGRAM_ADDRESS)
)

var (
	SYSTEM_PROGRAM_ID    = ed25519.PublicKey(mustBase58Decode("11111111111111111111111111111111"))
	SPL_TOKEN_PROGRAM_ID = ed25519.PublicKey(mustBase58Decode("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"))

	SYSVAR_CLOCK_PUBKEY = ed25519.PublicKey(mustBase58Decode("SysvarC1ock11111111111111111111111111111111"))
	SYSVAR_RENT_PUBKEY  = ed25519.PublicKey(mustBase58Decode("SysvarRent111111111111111111111111111111111"))
)

const (
	DefaultSalesTaxBasisPoints = 99
)

var (
	DefaultSalesTaxRecipient = ed25519.PublicKey(mustBase58Decode("3iYf9hHQPciwgJ1TCjpRUp1A3QW4AfaK7J6vCmETRMuu"))
)

const (
	MaxBasisPoints = 10_000
)

const discriminatorSize = 8

// Anchor prefixes instructions with the first 8 bytes of sha256("global:<name>")
// and accounts with sha256("account:<Name>").
func anchorDiscriminator(namespace, name string) []byte {
	h := sha256.Sum256([]byte(namespace + ":" + name))
	return h[:discriminatorSize]
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}

package dutchauction

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

const (
	AuctionAccountSize = (discriminatorSize +
		32 + // initializer_pubkey
		32 + // mint_addr
		32 + // token_account_pubkey
		8 + // starting_price
		8 + // reserved_price
		8 + // price_step
		8 + // interval
		8 + // starting_ts
		1 + // bump
		8) // unused, zero
)

// Byte offsets of fields within an auction account, for account filters.
const (
	InitializerOffset = discriminatorSize
)

var AuctionAccountDiscriminator = anchorDiscriminator("account", "AuctionAccount")

type AuctionAccount struct {
	Initializer       ed25519.PublicKey
	Mint              ed25519.PublicKey
	TokenAccount      ed25519.PublicKey
	StartingPrice     uint64
	ReservedPrice     uint64
	PriceStep         uint64
	Interval          uint64
	StartingTimestamp int64
	Bump              uint8
}

// Unmarshal reads an auction account. The account is allocated larger than
// the encoded record and the unused tail must be zero.
func (obj *AuctionAccount) Unmarshal(data []byte) error {
	if len(data) != AuctionAccountSize {
		return ErrInvalidAccountData
	}

	record, n, err := Schema.DecodePrefix(typeAuctionAccount, data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	if !bytes.Equal(record["discriminator"].Bytes(), AuctionAccountDiscriminator) {
		return ErrInvalidAccountData
	}

	for _, b := range data[n:] {
		if b != 0 {
			return errors.Wrap(ErrInvalidAccountData, "non-zero padding")
		}
	}

	obj.Initializer = record["initializer_pubkey"].Bytes()
	obj.Mint = record["mint_addr"].Bytes()
	obj.TokenAccount = record["token_account_pubkey"].Bytes()
	obj.StartingPrice = record["starting_price"].Uint64()
	obj.ReservedPrice = record["reserved_price"].Uint64()
	obj.PriceStep = record["price_step"].Uint64()
	obj.Interval = record["interval"].Uint64()
	obj.StartingTimestamp = record["starting_ts"].Int64()
	obj.Bump = record["bump"].Uint8()

	return nil
}

// Marshal returns the full account data, zero filled to AuctionAccountSize.
func (obj *AuctionAccount) Marshal() ([]byte, error) {
	encoded, err := Schema.Encode(typeAuctionAccount, borsh.Record{
		"discriminator":        borsh.BytesValue(AuctionAccountDiscriminator),
		"initializer_pubkey":   borsh.PubkeyValue(obj.Initializer),
		"mint_addr":            borsh.PubkeyValue(obj.Mint),
		"token_account_pubkey": borsh.PubkeyValue(obj.TokenAccount),
		"starting_price":       borsh.U64Value(obj.StartingPrice),
		"reserved_price":       borsh.U64Value(obj.ReservedPrice),
		"price_step":           borsh.U64Value(obj.PriceStep),
		"interval":             borsh.U64Value(obj.Interval),
		"starting_ts":          borsh.I64Value(obj.StartingTimestamp),
		"bump":                 borsh.U8Value(obj.Bump),
	})
	if err != nil {
		return nil, err
	}

	data := make([]byte, AuctionAccountSize)
	copy(data, encoded)
	return data, nil
}

func (obj *AuctionAccount) String() string {
	return fmt.Sprintf(
		"AuctionAccount{initializer=%s,mint=%s,token_account=%s,starting_price=%d,reserved_price=%d,price_step=%d,interval=%d,starting_ts=%s,bump=%d}",
		base58.Encode(obj.Initializer),
		base58.Encode(obj.Mint),
		base58.Encode(obj.TokenAccount),
		obj.StartingPrice,
		obj.ReservedPrice,
		obj.PriceStep,
		obj.Interval,
		time.Unix(obj.StartingTimestamp, 0).UTC().String(),
		obj.Bump,
	)
}

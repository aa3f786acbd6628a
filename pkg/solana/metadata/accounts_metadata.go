package metadata

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana/borsh"
)

type Creator struct {
	Address  ed25519.PublicKey
	Verified bool
	// Percentage of the royalty owed to this creator
	Share uint8
}

type Data struct {
	Name                 string
	Symbol               string
	Uri                  string
	SellerFeeBasisPoints uint16
	// A nil slice encodes as an absent creator list
	Creators []Creator
}

type MetadataAccount struct {
	Key                 Key
	UpdateAuthority     ed25519.PublicKey
	Mint                ed25519.PublicKey
	Data                Data
	PrimarySaleHappened bool
	IsMutable           bool
}

// Unmarshal reads a metadata account. The account is allocated at a fixed
// size larger than the record, so only the leading record is decoded and the
// NUL padding the program adds to string fields is removed.
//
// Following the Metaplex convention, every trailing NUL is treated as padding:
// a name, symbol or uri that was written ending in NUL comes back without it.
func (obj *MetadataAccount) Unmarshal(data []byte) error {
	if len(data) == 0 || Key(data[0]) != KeyMetadataV1 {
		return ErrInvalidAccountData
	}

	record, _, err := Schema.DecodePrefix(typeMetadata, data)
	if err != nil {
		return errors.Wrap(ErrInvalidAccountData, err.Error())
	}

	obj.Key = Key(record["key"].Uint8())
	obj.UpdateAuthority = record["update_authority"].Bytes()
	obj.Mint = record["mint"].Bytes()
	obj.Data = dataFromRecord(record["data"].Record())
	obj.PrimarySaleHappened = record["primary_sale_happened"].Bool()
	obj.IsMutable = record["is_mutable"].Bool()

	return nil
}

// Marshal produces account data the way the program lays it out: string
// fields padded to their maximum lengths and the record zero filled to
// MaxMetadataLen.
func (obj *MetadataAccount) Marshal() ([]byte, error) {
	if err := obj.Data.Validate(); err != nil {
		return nil, err
	}

	padded := obj.Data
	padded.Name = padString(obj.Data.Name, MaxNameLength)
	padded.Symbol = padString(obj.Data.Symbol, MaxSymbolLength)
	padded.Uri = padString(obj.Data.Uri, MaxUriLength)

	encoded, err := Schema.Encode(typeMetadata, borsh.Record{
		"key":                   borsh.U8Value(uint8(KeyMetadataV1)),
		"update_authority":      borsh.PubkeyValue(obj.UpdateAuthority),
		"mint":                  borsh.PubkeyValue(obj.Mint),
		"data":                  borsh.StructValue(padded.toRecord()),
		"primary_sale_happened": borsh.BoolValue(obj.PrimarySaleHappened),
		"is_mutable":            borsh.BoolValue(obj.IsMutable),
	})
	if err != nil {
		return nil, err
	}
	if len(encoded) > MaxMetadataLen {
		return nil, ErrInvalidMetadataData
	}

	data := make([]byte, MaxMetadataLen)
	copy(data, encoded)
	return data, nil
}

// TotalShares sums the creator shares.
func (d *Data) TotalShares() int {
	var total int
	for _, c := range d.Creators {
		total += int(c.Share)
	}
	return total
}

// Validate checks the limits the metadata program enforces on writes.
func (d *Data) Validate() error {
	if len(d.Name) > MaxNameLength {
		return errors.Wrap(ErrInvalidMetadataData, "name too long")
	}
	if len(d.Symbol) > MaxSymbolLength {
		return errors.Wrap(ErrInvalidMetadataData, "symbol too long")
	}
	if len(d.Uri) > MaxUriLength {
		return errors.Wrap(ErrInvalidMetadataData, "uri too long")
	}
	if d.SellerFeeBasisPoints > MaxBasisPoints {
		return errors.Wrap(ErrInvalidMetadataData, "seller fee exceeds 100%")
	}
	if len(d.Creators) > MaxCreatorLimit {
		return errors.Wrap(ErrInvalidMetadataData, "too many creators")
	}
	if d.Creators != nil && d.TotalShares() != TotalCreatorShare {
		return errors.Wrap(ErrInvalidMetadataData, "creator shares must add up to 100")
	}

	for i, c := range d.Creators {
		if len(c.Address) != ed25519.PublicKeySize {
			return errors.Wrapf(ErrInvalidMetadataData, "creator %d has an invalid address", i)
		}
		for _, other := range d.Creators[:i] {
			if bytes.Equal(c.Address, other.Address) {
				return errors.Wrap(ErrInvalidMetadataData, "duplicate creator")
			}
		}
	}

	return nil
}

func (d *Data) toRecord() borsh.Record {
	creators := borsh.None()
	if d.Creators != nil {
		items := make([]borsh.Value, len(d.Creators))
		for i, c := range d.Creators {
			items[i] = borsh.StructValue(borsh.Record{
				"address":  borsh.PubkeyValue(c.Address),
				"verified": borsh.BoolValue(c.Verified),
				"share":    borsh.U8Value(c.Share),
			})
		}
		creators = borsh.Some(borsh.VectorValue(items...))
	}

	return borsh.Record{
		"name":                    borsh.StringValue(d.Name),
		"symbol":                  borsh.StringValue(d.Symbol),
		"uri":                     borsh.StringValue(d.Uri),
		"seller_fee_basis_points": borsh.U16Value(d.SellerFeeBasisPoints),
		"creators":                creators,
	}
}

func dataFromRecord(r borsh.Record) Data {
	d := Data{
		Name:                 trimPadding(r["name"].Text()),
		Symbol:               trimPadding(r["symbol"].Text()),
		Uri:                  trimPadding(r["uri"].Text()),
		SellerFeeBasisPoints: r["seller_fee_basis_points"].Uint16(),
	}

	if creators, ok := r["creators"].Option(); ok {
		d.Creators = make([]Creator, 0, len(creators.Items()))
		for _, item := range creators.Items() {
			c := item.Record()
			d.Creators = append(d.Creators, Creator{
				Address:  c["address"].Bytes(),
				Verified: c["verified"].Bool(),
				Share:    c["share"].Uint8(),
			})
		}
	}

	return d
}

func padString(v string, length int) string {
	if len(v) >= length {
		return v
	}
	return v + strings.Repeat("\x00", length-len(v))
}

func trimPadding(v string) string {
	return strings.TrimRight(v, "\x00")
}

func (obj *MetadataAccount) String() string {
	creators := make([]string, len(obj.Data.Creators))
	for i, c := range obj.Data.Creators {
		creators[i] = fmt.Sprintf("{address=%s,verified=%t,share=%d}", base58.Encode(c.Address), c.Verified, c.Share)
	}

	return fmt.Sprintf(
		"Metadata{update_authority=%s,mint=%s,name=%s,symbol=%s,uri=%s,seller_fee_basis_points=%d,creators=[%s],primary_sale_happened=%t,is_mutable=%t}",
		base58.Encode(obj.UpdateAuthority),
		base58.Encode(obj.Mint),
		obj.Data.Name,
		obj.Data.Symbol,
		obj.Data.Uri,
		obj.Data.SellerFeeBasisPoints,
		strings.Join(creators, ","),
		obj.PrimarySaleHappened,
		obj.IsMutable,
	)
}

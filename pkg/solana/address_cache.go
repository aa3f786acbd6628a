package solana

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"

	"github.com/code-payments/dutch-auction/pkg/cache"
)

type derivedAddress struct {
	address ed25519.PublicKey
	bump    uint8
}

type cachingAddressDeriver struct {
	base  AddressDeriver
	cache cache.Cache
}

// NewCachingAddressDeriver memoizes derivations made by base. The bump search
// is the expensive part of derivation, and the same escrow, authority and
// metadata addresses are derived repeatedly for a given auction.
func NewCachingAddressDeriver(base AddressDeriver, maxEntries int) AddressDeriver {
	return &cachingAddressDeriver{
		base:  base,
		cache: cache.NewCache(maxEntries),
	}
}

// DeriveAddress implements AddressDeriver.DeriveAddress
func (d *cachingAddressDeriver) DeriveAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	key := derivationCacheKey(program, seeds)
	if cached, ok := d.cache.Retrieve(key); ok {
		res := cached.(*derivedAddress)
		return res.address, res.bump, nil
	}

	address, bump, err := d.base.DeriveAddress(program, seeds...)
	if err != nil {
		return nil, 0, err
	}

	// A concurrent derivation may have raced us into the cache, which is fine
	// since the result is deterministic.
	_ = d.cache.Insert(key, &derivedAddress{address: address, bump: bump}, 1)
	return address, bump, nil
}

func derivationCacheKey(program ed25519.PublicKey, seeds [][]byte) string {
	var sb strings.Builder
	sb.WriteString(hex.EncodeToString(program))
	for _, seed := range seeds {
		sb.WriteByte(':')
		sb.WriteString(hex.EncodeToString(seed))
	}
	return sb.String()
}

package dutchauction

import (
	"crypto/ed25519"
	"math/bits"

	"github.com/code-payments/dutch-auction/pkg/solana/metadata"
)

// Split is the division of a settlement price between its recipients.
type Split struct {
	Price          uint64
	SalesTax       uint64
	RoyaltyPool    uint64
	CreatorAmounts []CreatorAmount
	SellerProceeds uint64
}

type CreatorAmount struct {
	Creator ed25519.PublicKey
	Amount  uint64
}

// ComputeSplit divides price between the sales tax recipient, the creators
// and the seller. Each creator gets its percentage share of the royalty pool
// and the first creator absorbs the integer division remainder. Without
// creators there is no royalty pool.
func ComputeSplit(price uint64, salesTaxBasisPoints, sellerFeeBasisPoints uint16, creators []metadata.Creator) (*Split, error) {
	if uint32(salesTaxBasisPoints)+uint32(sellerFeeBasisPoints) > MaxBasisPoints {
		return nil, ErrInvalidRoyaltyFee
	}

	salesTax, err := basisPointsOf(price, uint64(salesTaxBasisPoints))
	if err != nil {
		return nil, err
	}

	split := &Split{
		Price:    price,
		SalesTax: salesTax,
	}

	if len(creators) > 0 {
		var totalShares uint64
		for _, c := range creators {
			totalShares += uint64(c.Share)
		}
		if totalShares != metadata.TotalCreatorShare {
			return nil, ErrInvalidMetadata
		}

		split.RoyaltyPool, err = basisPointsOf(price, uint64(sellerFeeBasisPoints))
		if err != nil {
			return nil, err
		}

		var distributed uint64
		split.CreatorAmounts = make([]CreatorAmount, len(creators))
		for i, c := range creators {
			hi, lo := bits.Mul64(split.RoyaltyPool, uint64(c.Share))
			if hi != 0 {
				return nil, ErrAmountOverflow
			}
			amount := lo / metadata.TotalCreatorShare

			split.CreatorAmounts[i] = CreatorAmount{Creator: c.Address, Amount: amount}
			distributed += amount
		}
		split.CreatorAmounts[0].Amount += split.RoyaltyPool - distributed
	}

	split.SellerProceeds = price - split.SalesTax - split.RoyaltyPool

	if !split.isConserved() {
		return nil, ErrInvalidFinalAmount
	}
	return split, nil
}

// TotalCreatorAmount sums what the creators receive.
func (s *Split) TotalCreatorAmount() uint64 {
	var total uint64
	for _, c := range s.CreatorAmounts {
		total += c.Amount
	}
	return total
}

func (s *Split) isConserved() bool {
	total, carry := bits.Add64(s.SalesTax, s.SellerProceeds, 0)
	if carry != 0 {
		return false
	}
	for _, c := range s.CreatorAmounts {
		total, carry = bits.Add64(total, c.Amount, 0)
		if carry != 0 {
			return false
		}
	}
	return total == s.Price && s.TotalCreatorAmount() == s.RoyaltyPool
}

func basisPointsOf(amount, basisPoints uint64) (uint64, error) {
	hi, lo := bits.Mul64(amount, basisPoints)
	if hi != 0 {
		return 0, ErrAmountOverflow
	}
	return lo / MaxBasisPoints, nil
}

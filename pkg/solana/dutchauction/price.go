package dutchauction

import (
	"math/bits"
)

// CurrentPrice is the ask at ledger time now. The price drops by PriceStep
// once per completed Interval and never goes below ReservedPrice.
func (obj *AuctionAccount) CurrentPrice(now int64) (uint64, error) {
	return CurrentPrice(obj.StartingPrice, obj.ReservedPrice, obj.PriceStep, obj.Interval, obj.StartingTimestamp, now)
}

func CurrentPrice(startingPrice, reservedPrice, priceStep, interval uint64, startingTs, now int64) (uint64, error) {
	if interval == 0 || startingPrice < reservedPrice {
		return 0, ErrInvalidInstruction
	}
	if now < startingTs {
		return 0, ErrNumericConversionFailed
	}

	elapsed := uint64(now) - uint64(startingTs)
	steps := elapsed / interval

	hi, decay := bits.Mul64(priceStep, steps)
	if hi != 0 {
		return 0, ErrAmountOverflow
	}

	if decay >= startingPrice-reservedPrice {
		return reservedPrice, nil
	}
	return startingPrice - decay, nil
}

// FloorTimestamp is the first ledger time at which the price reaches
// ReservedPrice.
func (obj *AuctionAccount) FloorTimestamp() (int64, error) {
	if obj.PriceStep == 0 || obj.Interval == 0 || obj.StartingPrice < obj.ReservedPrice {
		return 0, ErrInvalidInstruction
	}

	spread := obj.StartingPrice - obj.ReservedPrice
	steps := spread / obj.PriceStep
	if spread%obj.PriceStep != 0 {
		steps++
	}

	hi, offset := bits.Mul64(steps, obj.Interval)
	if hi != 0 || offset > uint64(1<<63-1)-uint64(max(obj.StartingTimestamp, 0)) {
		return 0, ErrAmountOverflow
	}
	return obj.StartingTimestamp + int64(offset), nil
}

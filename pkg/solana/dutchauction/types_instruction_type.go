package dutchauction

import (
	"bytes"
)

type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeInitAuction
	InstructionTypeBuy
	InstructionTypeCancelAuction
)

var (
	initAuctionDiscriminator   = anchorDiscriminator("global", "init_auction")
	buyDiscriminator           = anchorDiscriminator("global", "buy")
	cancelAuctionDiscriminator = anchorDiscriminator("global", "cancel_auction")
)

// GetInstructionType identifies an instruction from its discriminator.
func GetInstructionType(data []byte) (InstructionType, error) {
	if len(data) < discriminatorSize {
		return InstructionTypeUnknown, ErrInvalidInstructionData
	}

	switch prefix := data[:discriminatorSize]; {
	case bytes.Equal(prefix, initAuctionDiscriminator):
		return InstructionTypeInitAuction, nil
	case bytes.Equal(prefix, buyDiscriminator):
		return InstructionTypeBuy, nil
	case bytes.Equal(prefix, cancelAuctionDiscriminator):
		return InstructionTypeCancelAuction, nil
	}
	return InstructionTypeUnknown, ErrInvalidInstructionData
}

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeInitAuction:
		return "init_auction"
	case InstructionTypeBuy:
		return "buy"
	case InstructionTypeCancelAuction:
		return "cancel_auction"
	}
	return "unknown"
}

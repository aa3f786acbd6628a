package dutchauction

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/code-payments/dutch-auction/pkg/solana"
)

// EscrowError is a custom program error. Values match the codes the program
// returns on chain.
type EscrowError uint32

const (
	// Invalid instruction
	ErrInvalidInstruction EscrowError = iota

	// Not rent exempt
	ErrNotRentExempt

	// Expected amount mismatch
	ErrExpectedAmountMismatch

	// Amount overflow
	ErrAmountOverflow

	// Invalid sales tax recipient
	ErrInvalidSalesTaxRecipient

	// Numeric conversion failed
	ErrNumericConversionFailed

	// Invalid mint account
	ErrInvalidMintAccount

	// Invalid token amount
	ErrInvalidTokenAmount

	// Invalid metadata
	ErrInvalidMetadata

	// Missing metadata
	ErrMissingMetadata

	// Final amounts do not add up to the price
	ErrInvalidFinalAmount

	// Royalty and sales tax exceed 100%
	ErrInvalidRoyaltyFee

	// Creator accounts do not match metadata
	ErrCreatorMismatch
)

const (
	// Offered amount is too far above the current price
	ErrIncorrectFrontendPrice EscrowError = 300
)

var escrowErrorNames = map[EscrowError]string{
	ErrInvalidInstruction:       "InvalidInstruction",
	ErrNotRentExempt:            "NotRentExempt",
	ErrExpectedAmountMismatch:   "ExpectedAmountMismatch",
	ErrAmountOverflow:           "AmountOverflow",
	ErrInvalidSalesTaxRecipient: "InvalidSalesTaxRecipient",
	ErrNumericConversionFailed:  "NumericConversionFailed",
	ErrInvalidMintAccount:       "InvalidMintAccount",
	ErrInvalidTokenAmount:       "InvalidTokenAmount",
	ErrInvalidMetadata:          "InvalidMetadata",
	ErrMissingMetadata:          "MissingMetadata",
	ErrInvalidFinalAmount:       "InvalidFinalAmount",
	ErrInvalidRoyaltyFee:        "InvalidRoyaltyFee",
	ErrCreatorMismatch:          "CreatorMismatch",
	ErrIncorrectFrontendPrice:   "IncorrectFrontendPrice",
}

func (e EscrowError) Error() string {
	if name, ok := escrowErrorNames[e]; ok {
		return fmt.Sprintf("escrow error %d: %s", uint32(e), name)
	}
	return fmt.Sprintf("escrow error %d", uint32(e))
}

func (e EscrowError) String() string {
	if name, ok := escrowErrorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("EscrowError(%d)", uint32(e))
}

// CustomError is the value the runtime reports for e in a failed transaction.
func (e EscrowError) CustomError() solana.CustomError {
	return solana.CustomError(e)
}

// GetEscrowError extracts a program error from err. It understands errors
// returned directly by the program as well as custom errors parsed from a
// transaction result.
func GetEscrowError(err error) (EscrowError, bool) {
	if err == nil {
		return 0, false
	}

	var escrowErr EscrowError
	if errors.As(err, &escrowErr) {
		return escrowErr, true
	}

	var customErr solana.CustomError
	if errors.As(err, &customErr) {
		return fromCustomError(customErr)
	}

	var txErr *solana.TransactionError
	if errors.As(err, &txErr) && txErr.InstructionError() != nil {
		if ce := txErr.InstructionError().CustomError(); ce != nil {
			return fromCustomError(*ce)
		}
	}

	return 0, false
}

func fromCustomError(ce solana.CustomError) (EscrowError, bool) {
	e := EscrowError(ce)
	if _, ok := escrowErrorNames[e]; !ok || ce < 0 {
		return 0, false
	}
	return e, true
}

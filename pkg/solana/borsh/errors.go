package borsh

import (
	"github.com/pkg/errors"
)

var (
	ErrTruncatedInput  = errors.New("truncated input")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrTrailingBytes   = errors.New("trailing bytes after record")
	ErrUnknownType     = errors.New("type not registered in schema")
	ErrKindMismatch    = errors.New("value kind does not match field kind")
	ErrMissingField    = errors.New("missing field value")
	ErrUnexpectedField = errors.New("value has field not present in schema")
	ErrInvalidLength   = errors.New("invalid fixed length value")
	ErrInvalidUTF8     = errors.New("string is not valid utf-8")
	ErrValueTooLarge   = errors.New("value too large to encode")
)

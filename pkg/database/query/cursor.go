package query

import (
	"encoding/binary"
)

// Cursor is an opaque position within a paged result set, encoding the id of
// the last record seen.
type Cursor []byte

var (
	EmptyCursor Cursor = Cursor([]byte{})
)

func ToCursor(val uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return b
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}

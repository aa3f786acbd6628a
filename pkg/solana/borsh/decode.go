package borsh

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Decode deserializes data as the struct type typeName. The record must
// consume data exactly.
func (s *Schema) Decode(typeName string, data []byte) (Record, error) {
	r, n, err := s.DecodePrefix(typeName, data)
	if err != nil {
		return nil, err
	}

	if n != len(data) {
		return nil, errors.Wrapf(ErrTrailingBytes, "%s: %d of %d bytes consumed", typeName, n, len(data))
	}
	return r, nil
}

// DecodePrefix deserializes a typeName record from the start of data and
// returns the number of bytes consumed. Callers reading fixed size accounts
// are responsible for validating whatever follows the record.
func (s *Schema) DecodePrefix(typeName string, data []byte) (Record, int, error) {
	d := &decoder{schema: s, data: data}
	r, err := d.decodeStruct(typeName, typeName)
	if err != nil {
		return nil, 0, err
	}
	return r, d.offset, nil
}

type decoder struct {
	schema *Schema
	data   []byte
	offset int
}

func (d *decoder) take(path string, n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.offset < n {
		return nil, errors.Wrapf(ErrTruncatedInput, "%s: need %d bytes at offset %d, have %d", path, n, d.offset, len(d.data)-d.offset)
	}

	b := d.data[d.offset : d.offset+n]
	d.offset += n
	return b, nil
}

func (d *decoder) decodeStruct(path, typeName string) (Record, error) {
	fields, ok := d.schema.Fields(typeName)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%s: %s", path, typeName)
	}

	r := make(Record, len(fields))
	for _, f := range fields {
		v, err := d.decodeValue(path+"."+f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		r[f.Name] = v
	}
	return r, nil
}

func (d *decoder) decodeValue(path string, t Type) (Value, error) {
	switch t.Kind {
	case KindU8:
		b, err := d.take(path, 1)
		if err != nil {
			return Value{}, err
		}
		return U8Value(b[0]), nil
	case KindBool:
		b, err := d.take(path, 1)
		if err != nil {
			return Value{}, err
		}
		if b[0] > 1 {
			return Value{}, errors.Wrapf(ErrUnknownVariant, "%s: bool byte %d", path, b[0])
		}
		return BoolValue(b[0] == 1), nil
	case KindU16:
		b, err := d.take(path, 2)
		if err != nil {
			return Value{}, err
		}
		return U16Value(binary.LittleEndian.Uint16(b)), nil
	case KindU32:
		b, err := d.take(path, 4)
		if err != nil {
			return Value{}, err
		}
		return U32Value(binary.LittleEndian.Uint32(b)), nil
	case KindU64:
		b, err := d.take(path, 8)
		if err != nil {
			return Value{}, err
		}
		return U64Value(binary.LittleEndian.Uint64(b)), nil
	case KindI64:
		b, err := d.take(path, 8)
		if err != nil {
			return Value{}, err
		}
		return I64Value(int64(binary.LittleEndian.Uint64(b))), nil
	case KindString:
		n, err := d.length(path)
		if err != nil {
			return Value{}, err
		}
		b, err := d.take(path, n)
		if err != nil {
			return Value{}, err
		}
		if !utf8.Valid(b) {
			return Value{}, errors.Wrap(ErrInvalidUTF8, path)
		}
		return StringValue(string(b)), nil
	case KindPubkey:
		b, err := d.take(path, PubkeySize)
		if err != nil {
			return Value{}, err
		}
		return PubkeyValue(b), nil
	case KindFixedBytes:
		b, err := d.take(path, t.Len)
		if err != nil {
			return Value{}, err
		}
		return BytesValue(b), nil
	case KindOption:
		b, err := d.take(path, 1)
		if err != nil {
			return Value{}, err
		}
		switch b[0] {
		case 0:
			return None(), nil
		case 1:
			elem, err := d.decodeValue(path, *t.Elem)
			if err != nil {
				return Value{}, err
			}
			return Some(elem), nil
		default:
			return Value{}, errors.Wrapf(ErrUnknownVariant, "%s: option tag %d", path, b[0])
		}
	case KindVector:
		n, err := d.length(path)
		if err != nil {
			return Value{}, err
		}

		// Bound the allocation by what the input could possibly hold.
		capacity := n
		if remaining := len(d.data) - d.offset; capacity > remaining {
			capacity = remaining
		}

		items := make([]Value, 0, capacity)
		for i := 0; i < n; i++ {
			item, err := d.decodeValue(indexPath(path, i), *t.Elem)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)
		}
		return Value{kind: KindVector, items: items}, nil
	case KindStruct:
		r, err := d.decodeStruct(path, t.Struct)
		if err != nil {
			return Value{}, err
		}
		return StructValue(r), nil
	}

	return Value{}, errors.Wrapf(ErrUnknownVariant, "%s: unsupported kind %d", path, t.Kind)
}

func (d *decoder) length(path string) (int, error) {
	b, err := d.take(path, 4)
	if err != nil {
		return 0, err
	}
	return int(binary.LittleEndian.Uint32(b)), nil
}

func indexPath(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}

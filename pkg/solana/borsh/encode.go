package borsh

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Encode serializes r as the struct type typeName.
//
// Every field registered for the type must be present in r, and r may not
// carry fields the schema doesn't know about.
func (s *Schema) Encode(typeName string, r Record) ([]byte, error) {
	e := &encoder{schema: s}
	if err := e.encodeStruct(typeName, typeName, r); err != nil {
		return nil, err
	}
	return e.buf, nil
}

type encoder struct {
	schema *Schema
	buf    []byte
}

func (e *encoder) encodeStruct(path, typeName string, r Record) error {
	fields, ok := e.schema.Fields(typeName)
	if !ok {
		return errors.Wrapf(ErrUnknownType, "%s: %s", path, typeName)
	}

	for name := range r {
		if !hasField(fields, name) {
			return errors.Wrapf(ErrUnexpectedField, "%s.%s", path, name)
		}
	}

	for _, f := range fields {
		v, ok := r[f.Name]
		if !ok {
			return errors.Wrapf(ErrMissingField, "%s.%s", path, f.Name)
		}

		if err := e.encodeValue(path+"."+f.Name, f.Type, v); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeValue(path string, t Type, v Value) error {
	if v.kind != t.Kind {
		return errors.Wrapf(ErrKindMismatch, "%s: expected %s, got %s", path, t.Kind, v.kind)
	}

	switch t.Kind {
	case KindU8, KindBool:
		e.buf = append(e.buf, byte(v.num))
	case KindU16:
		e.buf = binary.LittleEndian.AppendUint16(e.buf, uint16(v.num))
	case KindU32:
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.num))
	case KindU64, KindI64:
		e.buf = binary.LittleEndian.AppendUint64(e.buf, v.num)
	case KindString:
		if !utf8.ValidString(v.str) {
			return errors.Wrap(ErrInvalidUTF8, path)
		}
		if uint64(len(v.str)) > math.MaxUint32 {
			return errors.Wrap(ErrValueTooLarge, path)
		}
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(v.str)))
		e.buf = append(e.buf, v.str...)
	case KindPubkey:
		if len(v.bytes) != PubkeySize {
			return errors.Wrapf(ErrInvalidLength, "%s: expected %d bytes, got %d", path, PubkeySize, len(v.bytes))
		}
		e.buf = append(e.buf, v.bytes...)
	case KindFixedBytes:
		if len(v.bytes) != t.Len {
			return errors.Wrapf(ErrInvalidLength, "%s: expected %d bytes, got %d", path, t.Len, len(v.bytes))
		}
		e.buf = append(e.buf, v.bytes...)
	case KindOption:
		if v.elem == nil {
			e.buf = append(e.buf, 0)
			return nil
		}
		e.buf = append(e.buf, 1)
		return e.encodeValue(path, *t.Elem, *v.elem)
	case KindVector:
		if uint64(len(v.items)) > math.MaxUint32 {
			return errors.Wrap(ErrValueTooLarge, path)
		}
		e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(v.items)))
		for i, item := range v.items {
			if err := e.encodeValue(indexPath(path, i), *t.Elem, item); err != nil {
				return err
			}
		}
	case KindStruct:
		return e.encodeStruct(path, t.Struct, v.record)
	default:
		return errors.Wrapf(ErrKindMismatch, "%s: unsupported kind %d", path, t.Kind)
	}

	return nil
}

func hasField(fields []Field, name string) bool {
	for _, f := range fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

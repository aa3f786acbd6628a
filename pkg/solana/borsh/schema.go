package borsh

import (
	"fmt"
	"sync"
)

// Kind is the closed set of field kinds understood by the codec.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindU8
	KindU16
	KindU32
	KindU64
	KindI64
	KindBool
	KindString
	KindPubkey
	KindFixedBytes
	KindOption
	KindVector
	KindStruct
)

// PubkeySize is the width of a pubkey field on the wire.
const PubkeySize = 32

// Type describes the wire layout of a single field.
//
// Only the members relevant to Kind are set: Len for KindFixedBytes, Elem for
// KindOption and KindVector, and Struct (a name registered in the Schema) for
// KindStruct.
type Type struct {
	Kind   Kind
	Len    int
	Elem   *Type
	Struct string
}

func U8() Type     { return Type{Kind: KindU8} }
func U16() Type    { return Type{Kind: KindU16} }
func U32() Type    { return Type{Kind: KindU32} }
func U64() Type    { return Type{Kind: KindU64} }
func I64() Type    { return Type{Kind: KindI64} }
func Bool() Type   { return Type{Kind: KindBool} }
func String() Type { return Type{Kind: KindString} }
func Pubkey() Type { return Type{Kind: KindPubkey} }

// Bytes is a fixed size byte array without a length prefix.
func Bytes(n int) Type {
	return Type{Kind: KindFixedBytes, Len: n}
}

// Option is a presence byte followed by elem when present.
func Option(elem Type) Type {
	return Type{Kind: KindOption, Elem: &elem}
}

// Vector is a u32 count followed by that many elem encodings.
func Vector(elem Type) Type {
	return Type{Kind: KindVector, Elem: &elem}
}

// Struct references another type registered in the same Schema.
func Struct(name string) Type {
	return Type{Kind: KindStruct, Struct: name}
}

// Field is a named, ordered member of a struct type.
type Field struct {
	Name string
	Type Type
}

func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

// Schema maps logical type names to their ordered field lists. New record
// types are added with Register; the codec itself never changes.
type Schema struct {
	mu    sync.RWMutex
	types map[string][]Field
}

func NewSchema() *Schema {
	return &Schema{
		types: make(map[string][]Field),
	}
}

// Register adds a struct type to the schema. It panics if the name is already
// registered, a field is malformed, or the type contains itself without an
// option or vector in between, since all are programming errors. Struct
// references may name types registered later.
func (s *Schema) Register(name string, fields ...Field) *Schema {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.types[name]; exists {
		panic(fmt.Sprintf("borsh: type '%s' already registered", name))
	}

	seen := make(map[string]struct{})
	for _, f := range fields {
		if len(f.Name) == 0 {
			panic(fmt.Sprintf("borsh: type '%s' has an unnamed field", name))
		}
		if _, dup := seen[f.Name]; dup {
			panic(fmt.Sprintf("borsh: type '%s' has duplicate field '%s'", name, f.Name))
		}
		seen[f.Name] = struct{}{}

		if err := f.Type.validate(); err != nil {
			panic(fmt.Sprintf("borsh: type '%s' field '%s': %v", name, f.Name, err))
		}
	}

	if s.embeds(fields, name, make(map[string]bool)) {
		panic(fmt.Sprintf("borsh: type '%s' contains itself", name))
	}

	cloned := make([]Field, len(fields))
	copy(cloned, fields)
	s.types[name] = cloned
	return s
}

// embeds reports whether target is reachable from fields through struct
// fields alone. Options and vectors consume at least one byte per level, so
// recursion through them always terminates on finite input.
func (s *Schema) embeds(fields []Field, target string, visited map[string]bool) bool {
	for _, f := range fields {
		if f.Type.Kind != KindStruct {
			continue
		}
		ref := f.Type.Struct
		if ref == target {
			return true
		}
		if visited[ref] {
			continue
		}
		visited[ref] = true

		if next, ok := s.types[ref]; ok && s.embeds(next, target, visited) {
			return true
		}
	}
	return false
}

// Fields returns the ordered field list registered for name.
func (s *Schema) Fields(name string) ([]Field, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.types[name]
	return fields, ok
}

func (t Type) validate() error {
	switch t.Kind {
	case KindU8, KindU16, KindU32, KindU64, KindI64, KindBool, KindString, KindPubkey:
		return nil
	case KindFixedBytes:
		if t.Len <= 0 {
			return fmt.Errorf("fixed bytes length must be positive")
		}
		return nil
	case KindOption, KindVector:
		if t.Elem == nil {
			return fmt.Errorf("%s requires an element type", t.Kind)
		}
		return t.Elem.validate()
	case KindStruct:
		if len(t.Struct) == 0 {
			return fmt.Errorf("struct reference requires a name")
		}
		return nil
	default:
		return fmt.Errorf("unknown kind %d", t.Kind)
	}
}

func (k Kind) String() string {
	switch k {
	case KindU8:
		return "u8"
	case KindU16:
		return "u16"
	case KindU32:
		return "u32"
	case KindU64:
		return "u64"
	case KindI64:
		return "i64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindPubkey:
		return "pubkey"
	case KindFixedBytes:
		return "bytes"
	case KindOption:
		return "option"
	case KindVector:
		return "vec"
	case KindStruct:
		return "struct"
	}
	return "unknown"
}

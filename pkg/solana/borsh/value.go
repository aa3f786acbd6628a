package borsh

// Value is a single decoded or to-be-encoded field value. Which members are
// meaningful is determined by its kind.
type Value struct {
	kind   Kind
	num    uint64
	str    string
	bytes  []byte
	elem   *Value
	items  []Value
	record Record
}

// Record is a struct value keyed by field name.
type Record map[string]Value

func U8Value(v uint8) Value   { return Value{kind: KindU8, num: uint64(v)} }
func U16Value(v uint16) Value { return Value{kind: KindU16, num: uint64(v)} }
func U32Value(v uint32) Value { return Value{kind: KindU32, num: uint64(v)} }
func U64Value(v uint64) Value { return Value{kind: KindU64, num: v} }
func I64Value(v int64) Value  { return Value{kind: KindI64, num: uint64(v)} }

func BoolValue(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

func StringValue(v string) Value {
	return Value{kind: KindString, str: v}
}

func PubkeyValue(v []byte) Value {
	return Value{kind: KindPubkey, bytes: cloneBytes(v)}
}

func BytesValue(v []byte) Value {
	return Value{kind: KindFixedBytes, bytes: cloneBytes(v)}
}

// Some is a present option value.
func Some(v Value) Value {
	return Value{kind: KindOption, elem: &v}
}

// None is an absent option value.
func None() Value {
	return Value{kind: KindOption}
}

func VectorValue(items ...Value) Value {
	cloned := make([]Value, len(items))
	copy(cloned, items)
	return Value{kind: KindVector, items: cloned}
}

func StructValue(r Record) Value {
	return Value{kind: KindStruct, record: r}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) Uint8() uint8    { return uint8(v.num) }
func (v Value) Uint16() uint16  { return uint16(v.num) }
func (v Value) Uint32() uint32  { return uint32(v.num) }
func (v Value) Uint64() uint64  { return v.num }
func (v Value) Int64() int64    { return int64(v.num) }
func (v Value) Bool() bool      { return v.num != 0 }
func (v Value) Text() string    { return v.str }
func (v Value) Bytes() []byte   { return cloneBytes(v.bytes) }
func (v Value) Items() []Value  { return v.items }
func (v Value) Record() Record  { return v.record }

// Option returns the wrapped value of a present option.
func (v Value) Option() (Value, bool) {
	if v.elem == nil {
		return Value{}, false
	}
	return *v.elem, true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cloned := make([]byte, len(b))
	copy(cloned, b)
	return cloned
}

package pointer

// To returns a pointer to a copy of value
func To[T any](value T) *T {
	return &value
}

// IfValid returns a pointer to value if valid, otherwise nil. It pairs with
// the sql.Null* types.
func IfValid[T any](valid bool, value T) *T {
	if valid {
		return &value
	}
	return nil
}

// Copy returns a pointer to a copy of the value behind p, or nil
func Copy[T any](p *T) *T {
	if p == nil {
		return nil
	}
	return To(*p)
}

func String(value string) *string {
	return To(value)
}

func StringIfValid(valid bool, value string) *string {
	return IfValid(valid, value)
}

func StringCopy(value *string) *string {
	return Copy(value)
}

func Uint64(value uint64) *uint64 {
	return To(value)
}

func Uint64IfValid(valid bool, value uint64) *uint64 {
	return IfValid(valid, value)
}

func Uint64Copy(value *uint64) *uint64 {
	return Copy(value)
}

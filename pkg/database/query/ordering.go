package query

// Ordering is the direction records are returned in, by id.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

func (o Ordering) String() string {
	if o == Descending {
		return "desc"
	}
	return "asc"
}

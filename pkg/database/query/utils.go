package query

import "strconv"

// PaginateQuery appends id cursor, ordering and limit clauses to a query
// whose filters are wrapped in brackets:
//
//	query := "SELECT * FROM table WHERE (state = $1)"
//	PaginateQuery(query, []interface{}{1}, ToCursor(10), 5, Descending)
//	> "SELECT * FROM table WHERE (state = $1) AND id < $2 ORDER BY id DESC LIMIT $3"
func PaginateQuery(query string, opts []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	if len(cursor) > 0 {
		v := strconv.Itoa(len(opts) + 1)

		if direction == Ascending {
			query += " AND id > $" + v
		} else {
			query += " AND id < $" + v
		}

		opts = append(opts, cursor.ToUint64())
	}

	if direction == Ascending {
		query += " ORDER BY id ASC"
	} else {
		query += " ORDER BY id DESC"
	}

	if limit > 0 {
		query += " LIMIT $" + strconv.Itoa(len(opts)+1)
		opts = append(opts, limit)
	}

	return query, opts
}

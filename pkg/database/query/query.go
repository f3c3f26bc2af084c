// Package query provides cursor based pagination helpers shared by the data
// stores.
package query

import (
	"encoding/binary"
	"strconv"
)

// Cursor marks a position within an id ordered result set.
type Cursor []byte

var EmptyCursor = Cursor([]byte{})

func ToCursor(val uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return b
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}

// Ordering of a returned set of records.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

// PaginateQuery appends cursor, ordering and limit clauses to a query of the
// form "SELECT ... WHERE (...)".
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
		v := strconv.Itoa(len(opts) + 1)

		query += " LIMIT $" + v

		opts = append(opts, limit)
	}

	return query, opts
}

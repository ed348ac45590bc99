package store

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// placeholder returns the n-th Postgres positional placeholder ($1, $2, ...).
func placeholder(n int) string { return "$" + strconv.Itoa(n) }

func join(parts []string, sep string) string { return strings.Join(parts, sep) }

// uuidArray converts a slice of UUIDs into a driver value lib/pq can bind
// as a Postgres uuid[] with an explicit ::uuid[] cast at the call site.
func uuidArray(ids []uuid.UUID) any {
	ss := make([]string, len(ids))
	for i, id := range ids {
		ss[i] = id.String()
	}
	return pq.Array(ss)
}

package ids

import "github.com/oklog/ulid/v2"

// New returns a lexicographically sortable ULID used as a storage key.
// Keys sort by creation time, which keeps audit listings naturally ordered.
func New() string {
	return ulid.Make().String()
}

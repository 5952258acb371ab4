package board

import "github.com/oklog/ulid/v2"

// NewID returns a fresh, time-ordered identifier.
func NewID() string {
	return ulid.Make().String()
}

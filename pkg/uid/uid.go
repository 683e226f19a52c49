// Package uid generates the identifiers the engine hands out: batch ids,
// request ids and marketplace correlation ids.
package uid

import "github.com/google/uuid"

// New returns a random UUIDv4 string.
func New() string {
	return uuid.New().String()
}

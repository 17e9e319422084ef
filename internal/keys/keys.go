// internal/keys/keys.go
package keys

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// maxInstant is the far-future epoch the descending key scheme counts down
// from. Keys stay 19 digits wide (and therefore ordered as strings) until
// well past the year 2200.
var maxInstant = time.Date(2262, time.January, 1, 0, 0, 0, 0, time.UTC)

// now is swapped out in tests.
var now = time.Now

// NewMostRecentFirst returns a unique key whose lexicographic order inverts
// creation time: a key generated later sorts before an earlier one. Listing
// a partition in key order therefore yields newest first, and a prefix scan
// of N rows is "the most recent N" with no store-side sort.
//
// The key is the zero-padded nanosecond count remaining until maxInstant,
// followed by a random UUID for uniqueness (122 random bits, so collisions
// are negligible at any realistic write rate).
func NewMostRecentFirst() string {
	remaining := maxInstant.Sub(now().UTC()).Nanoseconds()
	return fmt.Sprintf("%019d-%s", remaining, uuid.NewString())
}

// NewOldestFirst returns a unique key whose lexicographic order follows
// creation time, for rows that should list oldest first (draft clones).
func NewOldestFirst() string {
	elapsed := now().UTC().UnixNano()
	return fmt.Sprintf("%019d-%s", elapsed, uuid.NewString())
}

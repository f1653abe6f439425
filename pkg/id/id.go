// Package id generates the identifiers stamped onto closed trades.
package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. ULIDs are time-sortable, so the in-memory trade
// history, the snapshot file, and the SQLite journal all keep trades in close
// order under the same primary key. ulid.Make draws crypto-seeded entropy and
// stays monotonic within a millisecond.
func New() string {
	return ulid.Make().String()
}

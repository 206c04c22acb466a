// ABOUTME: Locally generated identifiers for embedded records and stages
// ABOUTME: Time-sortable ULIDs from a shared monotonic entropy source

package models

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewLocalID returns a ULID string. IDs from one process sort in creation order.
func NewLocalID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

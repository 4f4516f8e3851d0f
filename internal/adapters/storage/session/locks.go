package session

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultLockStripes is the stripe count used when NewLockTable gets n <= 0.
const DefaultLockStripes = 256

// LockTable hands out a mutex per session id from a fixed set of stripes.
// Two ids may share a stripe; one id always maps to the same stripe.
type LockTable struct {
	stripes []sync.Mutex
}

// NewLockTable creates a table with n stripes.
func NewLockTable(n int) *LockTable {
	if n <= 0 {
		n = DefaultLockStripes
	}
	return &LockTable{stripes: make([]sync.Mutex, n)}
}

// For returns the lock guarding session id.
func (t *LockTable) For(id string) sync.Locker {
	return &t.stripes[xxhash.Sum64String(id)%uint64(len(t.stripes))]
}

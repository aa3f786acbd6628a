package sync

import (
	"sort"
	base "sync"
)

const pointsPerStripe = 200

// StripedLock is a partitioned locking mechanism that consistently maps a key
// space to a fixed set of locks, bounding memory regardless of how many keys
// are locked.
type StripedLock struct {
	locks []base.RWMutex
	ring  *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	if stripes == 0 {
		stripes = 1
	}
	return &StripedLock{
		locks: make([]base.RWMutex, stripes),
		ring:  newRing(stripes, pointsPerStripe),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	return &l.locks[l.ring.stripe(key)]
}

// GetMany gets the distinct locks for a set of keys, ordered by stripe. Callers
// acquiring every returned lock in order cannot deadlock with one another.
func (l *StripedLock) GetMany(keys ...[]byte) []*base.RWMutex {
	seen := make(map[int]struct{})
	var stripes []int
	for _, key := range keys {
		stripe := l.ring.stripe(key)
		if _, ok := seen[stripe]; ok {
			continue
		}

		seen[stripe] = struct{}{}
		stripes = append(stripes, stripe)
	}
	sort.Ints(stripes)

	locks := make([]*base.RWMutex, len(stripes))
	for i, stripe := range stripes {
		locks[i] = &l.locks[stripe]
	}
	return locks
}

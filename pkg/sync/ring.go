package sync

import (
	"encoding/binary"
	"fmt"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring consistently hashes keys onto a fixed set of stripes
type ring struct {
	points *treemap.Map

	// Keys hashing past the last point wrap around to the first one. Cached
	// since treemap.Map.Min is O(log n).
	first int
}

// newRing returns a ring over stripes [0, stripes), each placed at
// pointsPerStripe positions.
func newRing(stripes, pointsPerStripe uint) *ring {
	points := treemap.NewWith(utils.Int64Comparator)
	for stripe := 0; stripe < int(stripes); stripe++ {
		seed, _ := murmur3.Sum128([]byte(fmt.Sprintf("stripe%d", stripe)))

		var buf [12]byte
		binary.LittleEndian.PutUint64(buf[:8], seed)
		for i := 0; i < int(pointsPerStripe); i++ {
			binary.LittleEndian.PutUint32(buf[8:], uint32(i))
			hash, _ := murmur3.Sum128(buf[:])
			points.Put(int64(hash), stripe)
		}
	}

	r := &ring{points: points}
	if _, first := points.Min(); first != nil {
		r.first = first.(int)
	}
	return r
}

// stripe returns the stripe owning key
func (r *ring) stripe(key []byte) int {
	raw, _ := murmur3.Sum128(key)
	if _, stripe := r.points.Ceiling(int64(raw)); stripe != nil {
		return stripe.(int)
	}
	return r.first
}

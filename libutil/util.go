package libutil

import (
	"math"
)

const (
	Rad2Deg = float32(180 / math.Pi)
	Deg2Rad = float32(math.Pi / 180)
)

type Releaser interface {
	Release()
}

// Cleanup collects resources created during a multi-step allocation.
// If the allocation fails the caller invokes Release to free everything collected so far.
type Cleanup []Releaser

func (c *Cleanup) Add(r Releaser) {
	*c = append(*c, r)
}

// Release frees the collected resources in reverse order and empties the list.
func (c *Cleanup) Release() {
	for i := len(*c) - 1; i >= 0; i-- {
		if (*c)[i] != nil {
			(*c)[i].Release()
		}
	}
	*c = (*c)[:0]
}

// ReleaseAll releases every non-nil resource.
func ReleaseAll(rs ...Releaser) {
	for _, r := range rs {
		if r != nil {
			r.Release()
		}
	}
}

// Log2Floor returns floor(log2(v)) for v > 0 and -1 otherwise.
func Log2Floor(v int) int {
	if v <= 0 {
		return -1
	}
	n := -1
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

func IsPowerOfTwo(v int) bool {
	return v > 0 && v&(v-1) == 0
}

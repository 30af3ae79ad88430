package utils

import "sort"

// NewRangeOffsets builds a monotonic offset table for n groups of uniform
// stride: offsets[g] is the first member index of group g, offsets[n] is the
// total member count.
func NewRangeOffsets(n, stride int) (offsets []int) {
	offsets = make([]int, n+1)
	for g := 0; g <= n; g++ {
		offsets[g] = g * stride
	}
	return
}

// FindOwner maps a member index i to its owning group via binary search over
// a monotonic offset table of length ngroups+1. Returns -1 when i falls
// outside the table.
func FindOwner(starts []int, i int) int {
	var (
		n = len(starts) - 1
	)
	if n < 1 || i < starts[0] || i >= starts[n] {
		return -1
	}
	// First entry greater than i, minus one, is the owner
	return sort.SearchInts(starts, i+1) - 1
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindOwner(t *testing.T) {
	// Uniform offsets
	{
		starts := NewRangeOffsets(3, 3) // {0, 3, 6, 9}
		assert.Equal(t, []int{0, 3, 6, 9}, starts)
		assert.Equal(t, 0, FindOwner(starts, 0))
		assert.Equal(t, 0, FindOwner(starts, 2))
		assert.Equal(t, 1, FindOwner(starts, 3))
		assert.Equal(t, 2, FindOwner(starts, 8))
	}
	// Out of range
	{
		starts := []int{0, 4}
		assert.Equal(t, -1, FindOwner(starts, -1))
		assert.Equal(t, -1, FindOwner(starts, 4))
	}
	// Ragged offsets
	{
		starts := []int{0, 1, 5, 6}
		assert.Equal(t, 0, FindOwner(starts, 0))
		assert.Equal(t, 1, FindOwner(starts, 1))
		assert.Equal(t, 1, FindOwner(starts, 4))
		assert.Equal(t, 2, FindOwner(starts, 5))
	}
}

func TestPartitionMap(t *testing.T) {
	// Partitions tile the index range exactly, without overlap
	for _, tc := range [][2]int{{1, 10}, {3, 10}, {4, 4}, {7, 100}, {16, 5}} {
		pm := NewPartitionMap(tc[0], tc[1])
		pos := 0
		for n := 0; n < pm.ParallelDegree; n++ {
			imin, imax := pm.GetBucketRange(n)
			assert.Equal(t, pos, imin)
			assert.LessOrEqual(t, imin, imax)
			pos = imax
		}
		assert.Equal(t, tc[1], pos)
	}
}

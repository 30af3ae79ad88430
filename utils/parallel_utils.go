package utils

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	if ParallelDegree < 1 {
		ParallelDegree = 1
	}
	if maxIndex > 0 && ParallelDegree > maxIndex {
		ParallelDegree = maxIndex
	}
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	var (
		base = maxIndex / ParallelDegree
		rem  = maxIndex % ParallelDegree
		pos  int
	)
	for n := 0; n < ParallelDegree; n++ {
		size := base
		if n < rem {
			size++
		}
		pm.Partitions[n] = [2]int{pos, pos + size}
		pos += size
	}
	return
}

// GetBucketRange returns the half-open index range [imin,imax) owned by
// partition n.
func (pm *PartitionMap) GetBucketRange(n int) (imin, imax int) {
	imin, imax = pm.Partitions[n][0], pm.Partitions[n][1]
	return
}

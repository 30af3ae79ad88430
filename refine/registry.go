package refine

import (
	"fmt"
	"sync"
)

// MaxLevelsIncrement is the granularity at which tree depths are rounded up
// when forming checker keys, so that trees of similar depth share a kernel.
const MaxLevelsIncrement = 10

// CheckerKey identifies a specialized checker kernel: ambient dimension,
// coordinate and index precision, and the rounded tree depth bound.
type CheckerKey struct {
	Dim       int
	CoordBits int
	IndexBits int
	MaxLevels int
}

// checkerKernel is a predicate implementation specialized for one key. The
// distance kernel is bound at lookup time so the box-scan inner loops pay
// no dimension branch.
type checkerKernel struct {
	key   CheckerKey
	dist2 func(a, b [3]float64) float64
}

// Registry memoizes checker kernels per key. It is long-lived, populated
// lazily, and safe for concurrent lookup.
type Registry struct {
	mu      sync.RWMutex
	kernels map[CheckerKey]*checkerKernel
}

func NewRegistry() *Registry {
	return &Registry{kernels: make(map[CheckerKey]*checkerKernel)}
}

func divCeil(a, b int) int { return (a + b - 1) / b }

func (r *Registry) get(dim, nlevels int) (*checkerKernel, error) {
	key := CheckerKey{
		Dim:       dim,
		CoordBits: 64,
		IndexBits: 32,
		MaxLevels: MaxLevelsIncrement * divCeil(nlevels, MaxLevelsIncrement),
	}
	r.mu.RLock()
	k, ok := r.kernels[key]
	r.mu.RUnlock()
	if ok {
		return k, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if k, ok = r.kernels[key]; ok {
		return k, nil
	}
	k = &checkerKernel{key: key}
	switch dim {
	case 2:
		k.dist2 = func(a, b [3]float64) float64 {
			dx, dy := a[0]-b[0], a[1]-b[1]
			return dx*dx + dy*dy
		}
	case 3:
		k.dist2 = func(a, b [3]float64) float64 {
			dx, dy, dz := a[0]-b[0], a[1]-b[1], a[2]-b[2]
			return dx*dx + dy*dy + dz*dz
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
	}
	r.kernels[key] = k
	return k, nil
}

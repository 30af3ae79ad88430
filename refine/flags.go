package refine

import "sync/atomic"

// Flags is a per-element refine flag vector. It is allocated fresh for each
// loop iteration, monotone within it (flags are set, never cleared), and
// safe for concurrent element-parallel writers: Set is an idempotent atomic
// true-write, so overlapping stores of the same flag are benign.
type Flags struct {
	v []int32
}

func NewFlags(nelements int) *Flags {
	return &Flags{v: make([]int32, nelements)}
}

// Uniform returns a flag vector with every element flagged, used for the
// unconditional stage-2 refinement rounds.
func Uniform(nelements int) (f *Flags) {
	f = NewFlags(nelements)
	for i := range f.v {
		f.v[i] = 1
	}
	return
}

func (f *Flags) Len() int { return len(f.v) }

func (f *Flags) Set(i int) { atomic.StoreInt32(&f.v[i], 1) }

func (f *Flags) IsSet(i int) bool { return atomic.LoadInt32(&f.v[i]) == 1 }

func (f *Flags) Count() (n int) {
	for i := range f.v {
		if atomic.LoadInt32(&f.v[i]) == 1 {
			n++
		}
	}
	return
}

func (f *Flags) Bools() (b []bool) {
	b = make([]bool, len(f.v))
	for i := range f.v {
		b[i] = atomic.LoadInt32(&f.v[i]) == 1
	}
	return
}

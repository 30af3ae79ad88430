// Package tree provides the box tree used for the proximity queries of the
// refinement criteria: an adaptive quadtree/octree over the combined
// source and center point set of a discretization, with per-box membership
// lists kept separate for sources and centers.
package tree

import (
	"fmt"
	"math"
)

// PointSet is a dense coordinate set in ambient dimension 2 or 3.
type PointSet struct {
	Dim     int
	X, Y, Z []float64
}

func NewPointSet2D(x, y []float64) *PointSet {
	return &PointSet{Dim: 2, X: x, Y: y}
}

func NewPointSet3D(x, y, z []float64) *PointSet {
	return &PointSet{Dim: 3, X: x, Y: y, Z: z}
}

func (ps *PointSet) Len() int { return len(ps.X) }

func (ps *PointSet) At(i int) (p [3]float64) {
	p[0], p[1] = ps.X[i], ps.Y[i]
	if ps.Dim == 3 {
		p[2] = ps.Z[i]
	}
	return
}

type Options struct {
	MaxPointsPerBox int // split threshold, default 32
	MaxLevels       int // depth cap, default 24
}

func (o Options) withDefaults() Options {
	if o.MaxPointsPerBox == 0 {
		o.MaxPointsPerBox = 32
	}
	if o.MaxLevels == 0 {
		o.MaxLevels = 24
	}
	return o
}

// Tree is a hierarchical partition of {sources, centers} into boxes. Every
// point is a member of exactly one leaf box; membership lists of interior
// boxes are empty. Built fresh for each refinement iteration and read-only
// afterwards.
type Tree struct {
	Dim              int
	Sources, Centers *PointSet

	Level     []int32
	Parent    []int32
	Children  [][8]int32 // octant-indexed, -1 for empty slot, nil pattern for leaves left as -1
	BoxCenter [][3]float64
	HalfWidth []float64
	IsLeaf    []bool
	NLevels   int

	BoxToSourceStarts []int32
	BoxToSourceLists  []int32
	BoxToCenterStarts []int32
	BoxToCenterLists  []int32
}

func (t *Tree) NBoxes() int { return len(t.Level) }

type builder struct {
	t        *Tree
	opts     Options
	srcLists [][]int32
	ctrLists [][]int32
}

// New builds the tree over the union of the two point sets. Both sets must
// share the same ambient dimension.
func New(sources, centers *PointSet, opts Options) (*Tree, error) {
	if sources.Dim != centers.Dim {
		return nil, fmt.Errorf("tree: source dimension %d does not match center dimension %d",
			sources.Dim, centers.Dim)
	}
	if sources.Dim != 2 && sources.Dim != 3 {
		return nil, fmt.Errorf("tree: unsupported ambient dimension %d", sources.Dim)
	}
	opts = opts.withDefaults()
	t := &Tree{Dim: sources.Dim, Sources: sources, Centers: centers}
	b := &builder{t: t, opts: opts}

	center, hw := boundingCube(sources, centers)
	src := make([]int32, sources.Len())
	for i := range src {
		src[i] = int32(i)
	}
	ctr := make([]int32, centers.Len())
	for i := range ctr {
		ctr[i] = int32(i)
	}
	b.addBox(-1, center, hw, 0, src, ctr)
	b.flatten()
	return t, nil
}

func boundingCube(a, b *PointSet) (center [3]float64, hw float64) {
	lo := [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	extend := func(ps *PointSet) {
		for i := 0; i < ps.Len(); i++ {
			p := ps.At(i)
			for ax := 0; ax < ps.Dim; ax++ {
				lo[ax] = math.Min(lo[ax], p[ax])
				hi[ax] = math.Max(hi[ax], p[ax])
			}
		}
	}
	extend(a)
	extend(b)
	for ax := 0; ax < a.Dim; ax++ {
		center[ax] = 0.5 * (lo[ax] + hi[ax])
		hw = math.Max(hw, 0.5*(hi[ax]-lo[ax]))
	}
	if hw == 0 {
		hw = 1
	}
	// Slack keeps boundary points strictly inside the root box
	hw *= 1 + 1e-12
	return
}

func (b *builder) addBox(parent int32, center [3]float64, hw float64, level int32,
	src, ctr []int32) int32 {
	var (
		t  = b.t
		id = int32(t.NBoxes())
	)
	t.Level = append(t.Level, level)
	t.Parent = append(t.Parent, parent)
	t.Children = append(t.Children, [8]int32{-1, -1, -1, -1, -1, -1, -1, -1})
	t.BoxCenter = append(t.BoxCenter, center)
	t.HalfWidth = append(t.HalfWidth, hw)
	t.IsLeaf = append(t.IsLeaf, false)
	b.srcLists = append(b.srcLists, nil)
	b.ctrLists = append(b.ctrLists, nil)
	if int(level)+1 > t.NLevels {
		t.NLevels = int(level) + 1
	}

	if len(src)+len(ctr) <= b.opts.MaxPointsPerBox || int(level) >= b.opts.MaxLevels-1 {
		t.IsLeaf[id] = true
		b.srcLists[id] = src
		b.ctrLists[id] = ctr
		return id
	}

	noctants := 1 << t.Dim
	srcByOct := make([][]int32, noctants)
	ctrByOct := make([][]int32, noctants)
	for _, i := range src {
		o := octant(t.Dim, center, t.Sources.At(int(i)))
		srcByOct[o] = append(srcByOct[o], i)
	}
	for _, i := range ctr {
		o := octant(t.Dim, center, t.Centers.At(int(i)))
		ctrByOct[o] = append(ctrByOct[o], i)
	}
	for o := 0; o < noctants; o++ {
		if len(srcByOct[o]) == 0 && len(ctrByOct[o]) == 0 {
			continue
		}
		child := b.addBox(id, childCenter(t.Dim, center, hw, o), 0.5*hw, level+1,
			srcByOct[o], ctrByOct[o])
		t.Children[id][o] = child
	}
	return id
}

// octant assigns a point to a child slot with an inclusive upper-side rule,
// so that LeafContaining descends to the same leaf the point was stored in.
func octant(dim int, center, p [3]float64) (o int) {
	for ax := 0; ax < dim; ax++ {
		if p[ax] >= center[ax] {
			o |= 1 << ax
		}
	}
	return
}

func childCenter(dim int, center [3]float64, hw float64, o int) (c [3]float64) {
	c = center
	for ax := 0; ax < dim; ax++ {
		if o&(1<<ax) != 0 {
			c[ax] += 0.5 * hw
		} else {
			c[ax] -= 0.5 * hw
		}
	}
	return
}

func (b *builder) flatten() {
	var (
		t = b.t
		n = t.NBoxes()
	)
	t.BoxToSourceStarts = make([]int32, n+1)
	t.BoxToCenterStarts = make([]int32, n+1)
	for id := 0; id < n; id++ {
		t.BoxToSourceStarts[id+1] = t.BoxToSourceStarts[id] + int32(len(b.srcLists[id]))
		t.BoxToCenterStarts[id+1] = t.BoxToCenterStarts[id] + int32(len(b.ctrLists[id]))
		t.BoxToSourceLists = append(t.BoxToSourceLists, b.srcLists[id]...)
		t.BoxToCenterLists = append(t.BoxToCenterLists, b.ctrLists[id]...)
	}
}

// LeafContaining descends to the leaf box holding p, or -1 when p lies
// outside the tree.
func (t *Tree) LeafContaining(p [3]float64) int32 {
	var b int32
	for ax := 0; ax < t.Dim; ax++ {
		if math.Abs(p[ax]-t.BoxCenter[0][ax]) > t.HalfWidth[0] {
			return -1
		}
	}
	for !t.IsLeaf[b] {
		c := t.Children[b][octant(t.Dim, t.BoxCenter[b], p)]
		if c < 0 {
			return -1
		}
		b = c
	}
	return b
}

func (t *Tree) boxIntersectsBall(b int32, p [3]float64, r float64) bool {
	var d2 float64
	for ax := 0; ax < t.Dim; ax++ {
		d := math.Abs(p[ax]-t.BoxCenter[b][ax]) - t.HalfWidth[b]
		if d > 0 {
			d2 += d * d
		}
	}
	return d2 <= r*r
}

// AppendBoxesIntersectingBall appends to out every leaf box whose bounds
// intersect the closed ball (p, r).
func (t *Tree) AppendBoxesIntersectingBall(p [3]float64, r float64, out []int32) []int32 {
	stack := make([]int32, 1, 64)
	stack[0] = 0
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !t.boxIntersectsBall(b, p, r) {
			continue
		}
		if t.IsLeaf[b] {
			out = append(out, b)
			continue
		}
		for _, c := range t.Children[b] {
			if c >= 0 {
				stack = append(stack, c)
			}
		}
	}
	return out
}

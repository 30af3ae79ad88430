package geometry

import "fmt"

// Mesh is a boundary mesh of 1D panels embedded in 2D. It is mutable: the
// Refiner grows it in place. Discretizations snapshot all geometry they need
// at build time and are unaffected by later growth.
type Mesh struct {
	VX, VY []float64    // vertex coordinates
	EToV   [][2]int     // panel to vertex connectivity
	ET     [][2]float64 // per-panel parameter interval on Curve, unused when Curve is nil
	Curve  CurveFunc
}

func NewMesh() (m *Mesh) {
	m = &Mesh{}
	return
}

// NewMeshFromCurve discretizes a closed curve into K panels of equal
// parameter length.
func NewMeshFromCurve(curve CurveFunc, K int) (m *Mesh) {
	m = &Mesh{Curve: curve}
	for k := 0; k < K; k++ {
		x, y := curve(float64(k) / float64(K))
		m.AddVertex(x, y)
	}
	for k := 0; k < K; k++ {
		t0 := float64(k) / float64(K)
		t1 := float64(k+1) / float64(K)
		m.EToV = append(m.EToV, [2]int{k, (k + 1) % K})
		m.ET = append(m.ET, [2]float64{t0, t1})
	}
	return
}

// AddPlate adds a straight plate from (x0,y0) to (x1,y1) split into K
// equal panels. Usable standalone or to compose multi-plate geometries via
// repeated calls on the same mesh.
func (m *Mesh) AddPlate(x0, y0, x1, y1 float64, K int) {
	var (
		base = len(m.VX)
	)
	for k := 0; k <= K; k++ {
		f := float64(k) / float64(K)
		m.AddVertex(x0+f*(x1-x0), y0+f*(y1-y0))
	}
	for k := 0; k < K; k++ {
		m.EToV = append(m.EToV, [2]int{base + k, base + k + 1})
		m.ET = append(m.ET, [2]float64{0, 0})
	}
}

func (m *Mesh) AddVertex(x, y float64) (v int) {
	v = len(m.VX)
	m.VX = append(m.VX, x)
	m.VY = append(m.VY, y)
	return
}

func (m *Mesh) NElements() int { return len(m.EToV) }

// Refiner bisects flagged panels of a Mesh in place. It supports repeated
// incremental calls and records the children of the last call for the
// connection builder.
type Refiner struct {
	mesh     *Mesh
	children [][]int // old panel index to new panel indices, last Refine call
}

func NewRefiner(m *Mesh) (r *Refiner) {
	r = &Refiner{mesh: m}
	return
}

func (r *Refiner) Mesh() *Mesh { return r.mesh }

// Children returns the panel mapping produced by the last Refine call:
// one new index for a kept panel, two for a bisected one.
func (r *Refiner) Children() [][]int { return r.children }

func (r *Refiner) Refine(flags []bool) error {
	var (
		m = r.mesh
		K = m.NElements()
	)
	if len(flags) != K {
		return fmt.Errorf("refiner: have %d flags for %d elements", len(flags), K)
	}
	newEToV := make([][2]int, 0, K)
	newET := make([][2]float64, 0, K)
	r.children = make([][]int, K)
	for e := 0; e < K; e++ {
		vs, ts := m.EToV[e], m.ET[e]
		if !flags[e] {
			r.children[e] = []int{len(newEToV)}
			newEToV = append(newEToV, vs)
			newET = append(newET, ts)
			continue
		}
		var mid int
		tm := 0.5 * (ts[0] + ts[1])
		if m.Curve != nil {
			x, y := m.Curve(tm)
			mid = m.AddVertex(x, y)
		} else {
			mid = m.AddVertex(
				0.5*(m.VX[vs[0]]+m.VX[vs[1]]),
				0.5*(m.VY[vs[0]]+m.VY[vs[1]]))
		}
		r.children[e] = []int{len(newEToV), len(newEToV) + 1}
		newEToV = append(newEToV, [2]int{vs[0], mid}, [2]int{mid, vs[1]})
		newET = append(newET, [2]float64{ts[0], tm}, [2]float64{tm, ts[1]})
	}
	m.EToV = newEToV
	m.ET = newET
	return nil
}

package geometry

import (
	"fmt"
	"math"

	"github.com/notargets/goqbx/utils"
)

// GroupFactory fixes the nodal layout of discretizations built from a mesh.
// Order+1 Chebyshev-Gauss-Lobatto nodes per panel; FineOrder is used for the
// upsampled quadrature discretization consumed by stage-2 refinement.
type GroupFactory struct {
	Order     int
	FineOrder int
}

func (gf GroupFactory) WithDefaults() GroupFactory {
	if gf.Order == 0 {
		gf.Order = 4
	}
	if gf.FineOrder == 0 {
		gf.FineOrder = 2 * gf.Order
	}
	return gf
}

// Fine returns the factory for the auxiliary quadrature discretization.
func (gf GroupFactory) Fine() GroupFactory {
	gf = gf.WithDefaults()
	return GroupFactory{Order: gf.FineOrder, FineOrder: gf.FineOrder}
}

// GLNodes returns Order+1 Chebyshev-Gauss-Lobatto nodes on [-1,1] with exact
// endpoints.
func GLNodes(Order int) (xi []float64) {
	xi = make([]float64, Order+1)
	for j := 0; j <= Order; j++ {
		xi[j] = -math.Cos(math.Pi * float64(j) / float64(Order))
	}
	xi[0], xi[Order] = -1, 1
	if Order%2 == 0 {
		xi[Order/2] = 0
	}
	return
}

// Quantity names a geometric property array obtainable from a
// discretization via Bind.
type Quantity int

const (
	ExpansionRadii        Quantity = iota // per center
	QuadResolution                        // per panel
	ScaledMaxCurvature                    // per panel
	SourceDangerZoneRadii                 // per panel
)

func (q Quantity) String() string {
	switch q {
	case ExpansionRadii:
		return "expansion radii"
	case QuadResolution:
		return "quadrature resolution"
	case ScaledMaxCurvature:
		return "scaled max curvature"
	case SourceDangerZoneRadii:
		return "source danger zone radii"
	}
	return "unknown quantity"
}

// Discretization is an immutable nodal snapshot of a mesh: panel-major
// quadrature nodes (the sources), unit normals, and two expansion centers
// per node, one on each side of the boundary. Center index for node i and
// side s is 2*i+s.
type Discretization struct {
	K, Np, Dim int
	Order      int

	NodeX, NodeY     []float64 // K*Np sources, panel major
	NormalX, NormalY []float64
	CenterX, CenterY []float64 // 2*K*Np expansion centers

	PanelToSourceStarts []int // len K+1
	PanelToCenterStarts []int // len K+1

	centerRadii   []float64 // per center
	panelSize     []float64 // per panel, arc length
	scaledMaxCurv []float64 // per panel

	mesh *Mesh
}

// NewDiscretization snapshots the current state of m with the nodal layout
// of gf. The result is independent of later mesh growth.
func NewDiscretization(m *Mesh, gf GroupFactory) (d *Discretization) {
	gf = gf.WithDefaults()
	var (
		K  = m.NElements()
		Np = gf.Order + 1
		xi = GLNodes(gf.Order)
	)
	d = &Discretization{
		K: K, Np: Np, Dim: 2,
		Order:               gf.Order,
		NodeX:               make([]float64, K*Np),
		NodeY:               make([]float64, K*Np),
		NormalX:             make([]float64, K*Np),
		NormalY:             make([]float64, K*Np),
		CenterX:             make([]float64, 2*K*Np),
		CenterY:             make([]float64, 2*K*Np),
		PanelToSourceStarts: utils.NewRangeOffsets(K, Np),
		PanelToCenterStarts: utils.NewRangeOffsets(K, 2*Np),
		centerRadii:         make([]float64, 2*K*Np),
		panelSize:           make([]float64, K),
		scaledMaxCurv:       make([]float64, K),
		mesh:                m,
	}
	for k := 0; k < K; k++ {
		d.buildPanel(m, k, xi)
	}
	return
}

func (d *Discretization) buildPanel(m *Mesh, k int, xi []float64) {
	var (
		Np     = d.Np
		vs, ts = m.EToV[k], m.ET[k]
		off    = k * Np
	)
	for j := 0; j < Np; j++ {
		f := 0.5 * (xi[j] + 1)
		if m.Curve != nil {
			d.NodeX[off+j], d.NodeY[off+j] = m.Curve(ts[0] + f*(ts[1]-ts[0]))
		} else {
			d.NodeX[off+j] = m.VX[vs[0]] + f*(m.VX[vs[1]]-m.VX[vs[0]])
			d.NodeY[off+j] = m.VY[vs[0]] + f*(m.VY[vs[1]]-m.VY[vs[0]])
		}
	}
	// Panel size is the chord-summed arc length
	var h float64
	for j := 1; j < Np; j++ {
		h += math.Hypot(d.NodeX[off+j]-d.NodeX[off+j-1], d.NodeY[off+j]-d.NodeY[off+j-1])
	}
	d.panelSize[k] = h
	// Nodal normals from chord tangents, centers on both sides at the
	// expansion radius
	r := 0.5 * h
	for j := 0; j < Np; j++ {
		jm, jp := j-1, j+1
		if jm < 0 {
			jm = 0
		}
		if jp >= Np {
			jp = Np - 1
		}
		tx := d.NodeX[off+jp] - d.NodeX[off+jm]
		ty := d.NodeY[off+jp] - d.NodeY[off+jm]
		tl := math.Hypot(tx, ty)
		if tl > 0 {
			tx, ty = tx/tl, ty/tl
		}
		nx, ny := -ty, tx
		d.NormalX[off+j], d.NormalY[off+j] = nx, ny
		for s := 0; s < 2; s++ {
			side := float64(2*s - 1) // -1 interior, +1 exterior
			c := 2*(off+j) + s
			d.CenterX[c] = d.NodeX[off+j] + side*r*nx
			d.CenterY[c] = d.NodeY[off+j] + side*r*ny
			d.centerRadii[c] = r
		}
	}
	// Scaled max curvature from the turning angle of successive chords
	var maxCurv float64
	for j := 1; j < Np-1; j++ {
		a0 := math.Atan2(d.NodeY[off+j]-d.NodeY[off+j-1], d.NodeX[off+j]-d.NodeX[off+j-1])
		a1 := math.Atan2(d.NodeY[off+j+1]-d.NodeY[off+j], d.NodeX[off+j+1]-d.NodeX[off+j])
		dtheta := math.Abs(math.Remainder(a1-a0, 2*math.Pi))
		ds := 0.5 * (math.Hypot(d.NodeX[off+j]-d.NodeX[off+j-1], d.NodeY[off+j]-d.NodeY[off+j-1]) +
			math.Hypot(d.NodeX[off+j+1]-d.NodeX[off+j], d.NodeY[off+j+1]-d.NodeY[off+j]))
		if ds > 0 && dtheta/ds > maxCurv {
			maxCurv = dtheta / ds
		}
	}
	d.scaledMaxCurv[k] = maxCurv * h
}

func (d *Discretization) NNodes() int   { return d.K * d.Np }
func (d *Discretization) NCenters() int { return 2 * d.K * d.Np }

// Mesh returns the underlying mesh object. The mesh keeps mutating as
// refinement proceeds; the discretization itself does not change.
func (d *Discretization) Mesh() *Mesh { return d.mesh }

// Bind evaluates a named geometric quantity as a dense array at the
// quantity's natural granularity. The returned slice is owned by the
// discretization and must not be modified.
func (d *Discretization) Bind(q Quantity) ([]float64, error) {
	switch q {
	case ExpansionRadii:
		return d.centerRadii, nil
	case QuadResolution:
		return d.panelSize, nil
	case ScaledMaxCurvature:
		return d.scaledMaxCurv, nil
	case SourceDangerZoneRadii:
		radii := make([]float64, d.K)
		for k := 0; k < d.K; k++ {
			radii[k] = 0.25 * d.panelSize[k]
		}
		return radii, nil
	}
	return nil, fmt.Errorf("discretization: cannot bind quantity %d", q)
}

package geometry

import (
	"fmt"
	"math"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Connection is the prolongation operator from one discretization to its
// refined successor, stored as a sparse CSR matrix of shape
// (To.NNodes() x From.NNodes()).
type Connection struct {
	From, To *Discretization
	P        *sparse.CSR
}

// NewRefinementConnection builds the refined discretization from the
// refiner's mesh and the old-to-new prolongation. Must be called directly
// after Refiner.Refine, before the refiner advances again.
func NewRefinementConnection(r *Refiner, from *Discretization, gf GroupFactory) (c *Connection, err error) {
	children := r.Children()
	if len(children) != from.K {
		return nil, fmt.Errorf("connection: refiner has %d parent elements, discretization has %d",
			len(children), from.K)
	}
	if gf = gf.WithDefaults(); gf.Order != from.Order {
		return nil, fmt.Errorf("connection: factory order %d does not match discretization order %d",
			gf.Order, from.Order)
	}
	var (
		to = NewDiscretization(r.Mesh(), gf)
		Np = from.Np
		xi = GLNodes(from.Order)
		ph = sparse.NewDOK(to.NNodes(), from.NNodes())
	)
	// Child node positions inside the parent reference interval
	lo := make([]float64, Np)
	hi := make([]float64, Np)
	for j := 0; j < Np; j++ {
		lo[j] = 0.5 * (xi[j] - 1)
		hi[j] = 0.5 * (xi[j] + 1)
	}
	iLo := chebInterpMatrix(xi, lo)
	iHi := chebInterpMatrix(xi, hi)
	for e, kids := range children {
		switch len(kids) {
		case 1:
			for j := 0; j < Np; j++ {
				ph.Set(kids[0]*Np+j, e*Np+j, 1)
			}
		case 2:
			for ci, block := range []*mat.Dense{iLo, iHi} {
				for j := 0; j < Np; j++ {
					for i := 0; i < Np; i++ {
						ph.Set(kids[ci]*Np+j, e*Np+i, block.At(j, i))
					}
				}
			}
		default:
			return nil, fmt.Errorf("connection: element %d has %d children", e, len(kids))
		}
	}
	c = &Connection{From: from, To: to, P: ph.ToCSR()}
	return
}

// Apply prolongates nodal values from the old discretization onto the new
// one.
func (c *Connection) Apply(u []float64) ([]float64, error) {
	if len(u) != c.From.NNodes() {
		return nil, fmt.Errorf("connection: have %d values for %d nodes", len(u), c.From.NNodes())
	}
	var out mat.VecDense
	out.MulVec(c.P, mat.NewVecDense(len(u), u))
	return out.RawVector().Data, nil
}

// chebInterpMatrix returns the interpolation matrix from values at the
// nodes to values at the targets, via a Chebyshev Vandermonde system.
func chebInterpMatrix(nodes, targets []float64) *mat.Dense {
	var (
		Np   = len(nodes)
		v    = chebVandermonde(nodes, Np)
		vt   = chebVandermonde(targets, Np)
		vInv mat.Dense
		im   mat.Dense
	)
	if err := vInv.Inverse(v); err != nil {
		panic(fmt.Sprintf("connection: singular Vandermonde: %v", err))
	}
	im.Mul(vt, &vInv)
	return &im
}

func chebVandermonde(pts []float64, Np int) *mat.Dense {
	v := mat.NewDense(len(pts), Np, nil)
	for i, x := range pts {
		if x < -1 {
			x = -1
		} else if x > 1 {
			x = 1
		}
		theta := math.Acos(x)
		for m := 0; m < Np; m++ {
			v.Set(i, m, math.Cos(float64(m)*theta))
		}
	}
	return v
}

// ChainedConnection composes a sequence of refinement connections
// front-to-back into a single prolongation from the original
// discretization to the final one.
type ChainedConnection struct {
	From, To    *Discretization
	Connections []*Connection
}

func Chain(from *Discretization, conns []*Connection) (cc *ChainedConnection) {
	cc = &ChainedConnection{From: from, To: from, Connections: conns}
	if n := len(conns); n > 0 {
		cc.To = conns[n-1].To
	}
	return
}

func (cc *ChainedConnection) Apply(u []float64) ([]float64, error) {
	var err error
	for _, c := range cc.Connections {
		if u, err = c.Apply(u); err != nil {
			return nil, err
		}
	}
	return u, nil
}

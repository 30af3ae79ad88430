// Package refine decides which elements of a QBX boundary discretization
// are geometrically inadequate and drives the mesh refiner until three
// accuracy criteria hold everywhere:
//
//   - Condition 1 (expansion disks undisturbed by sources): a center must be
//     closest to its own source panel.
//   - Condition 2 (sufficient source quadrature resolution): quadrature
//     contributions from every panel are as accurate as from the center's
//     own panel.
//   - Condition 3 (panel size bounds): panel size bounded by a kernel
//     length scale and by scaled maximum curvature.
package refine

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/notargets/goqbx/geometry"
	"github.com/notargets/goqbx/tree"
	"github.com/notargets/goqbx/utils"
)

// Places collects the discretizations a tree build may draw points from,
// keyed by refinement stage.
type Places struct {
	Stage1     *geometry.Discretization
	Stage2     *geometry.Discretization
	QuadStage2 *geometry.Discretization
}

// Wrangler owns the checker registry and runs the per-iteration criterion
// evaluations, element-parallel across NP goroutines.
type Wrangler struct {
	Registry *Registry
	NP       int
	Debug    bool
}

func NewWrangler() *Wrangler {
	return &Wrangler{
		Registry: NewRegistry(),
		NP:       runtime.GOMAXPROCS(0),
	}
}

// BuildTree builds the spatial index for one refinement iteration. Stage-1
// trees hold the sources and centers of the stage-1 discretization; stage-2
// trees take their sources from the fine quadrature discretization and
// their centers from the stage-2 discretization.
func (w *Wrangler) BuildTree(places Places, useStage2 bool) (*tree.Tree, error) {
	var sources, centers *tree.PointSet
	if useStage2 {
		if places.Stage2 == nil || places.QuadStage2 == nil {
			return nil, fmt.Errorf("%w: stage 2 tree build", ErrMissingPlaces)
		}
		sources = tree.NewPointSet2D(places.QuadStage2.NodeX, places.QuadStage2.NodeY)
		centers = tree.NewPointSet2D(places.Stage2.CenterX, places.Stage2.CenterY)
	} else {
		if places.Stage1 == nil {
			return nil, fmt.Errorf("%w: stage 1 tree build", ErrMissingPlaces)
		}
		sources = tree.NewPointSet2D(places.Stage1.NodeX, places.Stage1.NodeY)
		centers = tree.NewPointSet2D(places.Stage1.CenterX, places.Stage1.CenterY)
	}
	return tree.New(sources, centers, tree.Options{})
}

func (w *Wrangler) FindPeerLists(t *tree.Tree) *tree.PeerLists {
	return tree.FindPeerLists(t)
}

// CheckExpansionDisksUndisturbedBySources implements Condition 1: every
// expansion center of d whose ball of radius (1-tol)*expansionRadius
// contains any source marks its owning panel for refinement. A source at
// exactly that distance counts as a violation. Returns whether any panel
// was found to refine.
func (w *Wrangler) CheckExpansionDisksUndisturbedBySources(
	d *geometry.Discretization, t *tree.Tree, pl *tree.PeerLists,
	expansionDisturbanceTolerance float64, flags *Flags) (bool, error) {

	k, err := w.Registry.get(t.Dim, t.NLevels)
	if err != nil {
		return false, err
	}
	if flags.Len() != d.K {
		return false, fmt.Errorf("%w: have %d flags for %d elements",
			ErrFlagsLength, flags.Len(), d.K)
	}
	radii, err := d.Bind(geometry.ExpansionRadii)
	if err != nil {
		return false, err
	}

	var (
		nprev = w.debugCount(flags)
		found int32
		pm    = utils.NewPartitionMap(w.NP, t.Centers.Len())
		wg    sync.WaitGroup
	)
	for n := 0; n < pm.ParallelDegree; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var buf []int32
			imin, imax := pm.GetBucketRange(n)
			for ic := imin; ic < imax; ic++ {
				c := t.Centers.At(ic)
				r := (1 - expansionDisturbanceTolerance) * radii[ic]
				buf = pl.Candidates(t, c, r, buf[:0])
				violated := false
			scan:
				for _, b := range buf {
					for idx := t.BoxToSourceStarts[b]; idx < t.BoxToSourceStarts[b+1]; idx++ {
						s := t.Sources.At(int(t.BoxToSourceLists[idx]))
						if k.dist2(c, s) <= r*r {
							violated = true
							break scan
						}
					}
				}
				if violated {
					flags.Set(utils.FindOwner(d.PanelToCenterStarts, ic))
					atomic.StoreInt32(&found, 1)
				}
			}
		}(n)
	}
	wg.Wait()
	w.debugReport(flags, nprev)
	return found == 1, nil
}

// CheckSufficientSourceQuadratureResolution implements Condition 2, the
// mirror of Condition 1 with source and center roles swapped: every fine
// quadrature source whose panel danger-zone ball contains any center marks
// its own panel. Radii and flags are per panel of d (the stage-2
// discretization); the tree sources and their panel offsets come from the
// fine quadrature discretization, which shares d's panel layout.
func (w *Wrangler) CheckSufficientSourceQuadratureResolution(
	d, quad *geometry.Discretization, t *tree.Tree, pl *tree.PeerLists,
	flags *Flags) (bool, error) {

	k, err := w.Registry.get(t.Dim, t.NLevels)
	if err != nil {
		return false, err
	}
	if flags.Len() != d.K || quad.K != d.K {
		return false, fmt.Errorf("%w: have %d flags for %d elements (%d fine)",
			ErrFlagsLength, flags.Len(), d.K, quad.K)
	}
	radii, err := d.Bind(geometry.SourceDangerZoneRadii)
	if err != nil {
		return false, err
	}

	var (
		nprev = w.debugCount(flags)
		found int32
		pm    = utils.NewPartitionMap(w.NP, t.Sources.Len())
		wg    sync.WaitGroup
	)
	for n := 0; n < pm.ParallelDegree; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			var buf []int32
			imin, imax := pm.GetBucketRange(n)
			for is := imin; is < imax; is++ {
				var (
					s     = t.Sources.At(is)
					panel = utils.FindOwner(quad.PanelToSourceStarts, is)
					r     = radii[panel]
				)
				buf = pl.Candidates(t, s, r, buf[:0])
				violated := false
			scan:
				for _, b := range buf {
					for idx := t.BoxToCenterStarts[b]; idx < t.BoxToCenterStarts[b+1]; idx++ {
						c := t.Centers.At(int(t.BoxToCenterLists[idx]))
						if k.dist2(s, c) <= r*r {
							violated = true
							break scan
						}
					}
				}
				if violated {
					flags.Set(panel)
					atomic.StoreInt32(&found, 1)
				}
			}
		}(n)
	}
	wg.Wait()
	w.debugReport(flags, nprev)
	return found == 1, nil
}

// CheckElementPropThreshold implements the Condition 3 family: flag every
// element whose property value strictly exceeds the threshold. Pure in its
// inputs; element-parallel with idempotent flag writes.
func (w *Wrangler) CheckElementPropThreshold(elementProperty []float64,
	threshold float64, flags *Flags) (bool, error) {

	if len(elementProperty) != flags.Len() {
		return false, fmt.Errorf("%w: have %d flags for %d property values",
			ErrFlagsLength, flags.Len(), len(elementProperty))
	}
	var (
		nprev   = w.debugCount(flags)
		updated int32
		pm      = utils.NewPartitionMap(w.NP, flags.Len())
		wg      sync.WaitGroup
	)
	for n := 0; n < pm.ParallelDegree; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			imin, imax := pm.GetBucketRange(n)
			for e := imin; e < imax; e++ {
				if elementProperty[e] > threshold {
					flags.Set(e)
					atomic.StoreInt32(&updated, 1)
				}
			}
		}(n)
	}
	wg.Wait()
	w.debugReport(flags, nprev)
	return updated == 1, nil
}

// Refine applies the flags: bisect the flagged panels of the underlying
// mesh and build the refined discretization together with the old-to-new
// connection. The flags length must match the current element count.
func (w *Wrangler) Refine(d *geometry.Discretization, refiner *geometry.Refiner,
	flags *Flags, gf geometry.GroupFactory) (*geometry.Connection, error) {

	if flags.Len() != d.K {
		return nil, fmt.Errorf("%w: have %d flags for %d elements",
			ErrFlagsLength, flags.Len(), d.K)
	}
	start := time.Now()
	if err := refiner.Refine(flags.Bools()); err != nil {
		return nil, err
	}
	conn, err := geometry.NewRefinementConnection(refiner, d, gf)
	if err != nil {
		return nil, err
	}
	if w.Debug {
		log.Printf("refiner: refine mesh: %d -> %d elements in %v",
			d.K, conn.To.K, time.Since(start))
	}
	return conn, nil
}

func (w *Wrangler) debugCount(flags *Flags) int {
	if !w.Debug {
		return 0
	}
	return flags.Count()
}

func (w *Wrangler) debugReport(flags *Flags, nprev int) {
	if !w.Debug {
		return
	}
	if n := flags.Count(); n > nprev {
		log.Printf("refiner: found %d panel(s) to refine", n-nprev)
	}
}

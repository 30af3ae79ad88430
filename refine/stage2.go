package refine

import (
	"log"

	"github.com/notargets/goqbx/geometry"
)

// RefineStage2 refines the stage-1 result until Condition 2 holds on the
// secondary (quadrature) discretization, then applies the configured number
// of unconditional uniform refinement rounds. Unlike stage 1 there is no
// cheap pre-filter, so the tree is built every iteration, together with a
// throwaway fine quadrature discretization that supplies its sources. The
// returned connection chains from stage1 through all stage-2 steps
// including the uniform rounds.
func RefineStage2(w *Wrangler, stage1 *geometry.Discretization, refiner *geometry.Refiner,
	gf geometry.GroupFactory, cfg Config) (*Result, error) {

	cfg = cfg.withDefaults()
	w.Debug = w.Debug || cfg.Debug
	if refiner == nil {
		refiner = geometry.NewRefiner(stage1.Mesh())
	}

	var (
		state            = Iterating
		cur              = stage1
		conns            []*geometry.Connection
		violatedCriteria []string
		iterViolated     = []string{"start"} // forces the first iteration
		niter            int
		warning          *NotConvergedWarning
	)
	for len(iterViolated) > 0 {
		iterViolated = nil
		niter++
		if niter > cfg.MaxIterations {
			warning = &NotConvergedWarning{
				Stage:                         stage2Name,
				ViolatedCriteria:              violatedCriteria,
				ExpansionDisturbanceTolerance: cfg.ExpansionDisturbanceTolerance,
			}
			log.Printf("warning: %s", warning.Error())
			state = MaxIterExceeded
			niter--
			break
		}

		// The fine quadrature discretization exists only to supply
		// geometric inputs to this iteration's tree build.
		quad := geometry.NewDiscretization(cur.Mesh(), gf.Fine())
		t, err := w.BuildTree(Places{Stage1: stage1, Stage2: cur, QuadStage2: quad}, true)
		if err != nil {
			return nil, err
		}
		pl := w.FindPeerLists(t)
		flags := NewFlags(cur.K)

		insufficient, err := w.CheckSufficientSourceQuadratureResolution(
			cur, quad, t, pl, flags)
		if err != nil {
			return nil, err
		}
		if insufficient {
			iterViolated = append(iterViolated, "insufficient quadrature resolution")
			if cfg.Visualize {
				if err = writeRefinementSnapshot(stage2Name,
					"quad-resolution", niter, cur, flags); err != nil {
					return nil, err
				}
			}
		}

		if len(iterViolated) > 0 {
			violatedCriteria = append(violatedCriteria, iterViolated[0])
			conn, err := w.Refine(cur, refiner, flags, gf)
			if err != nil {
				return nil, err
			}
			cur = conn.To
			conns = append(conns, conn)
		} else {
			state = Converged
		}
	}

	for round := 0; round < cfg.ForceUniformRefinementRounds; round++ {
		conn, err := w.Refine(cur, refiner, Uniform(cur.K), gf)
		if err != nil {
			return nil, err
		}
		cur = conn.To
		conns = append(conns, conn)
	}

	return &Result{
		Discr:            cur,
		Conn:             geometry.Chain(stage1, conns),
		State:            state,
		ViolatedCriteria: violatedCriteria,
		Iterations:       niter,
		Warning:          warning,
	}, nil
}

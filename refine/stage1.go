package refine

import (
	"log"
	"strings"

	"github.com/notargets/goqbx/geometry"
)

// State is the control-loop state after a refinement stage returns.
type State int

const (
	Iterating State = iota
	Converged
	MaxIterExceeded
)

func (s State) String() string {
	switch s {
	case Iterating:
		return "ITERATING"
	case Converged:
		return "CONVERGED"
	case MaxIterExceeded:
		return "MAX_ITER_EXCEEDED"
	}
	return "UNKNOWN"
}

// Config selects and parametrizes the refinement criteria. The pointer
// fields are optional: a nil threshold disables the corresponding check.
type Config struct {
	KernelLengthScale             *float64
	ScaledMaxCurvatureThreshold   *float64
	ExpansionDisturbanceTolerance float64 // default 0.025
	MaxIterations                 int     // default 10
	ForceUniformRefinementRounds  int     // stage 2 only
	Debug                         bool
	Visualize                     bool
}

func (cfg Config) withDefaults() Config {
	if cfg.ExpansionDisturbanceTolerance == 0 {
		cfg.ExpansionDisturbanceTolerance = 0.025
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 10
	}
	return cfg
}

// Result is the outcome of one refinement stage. Warning is non-nil only
// in the MaxIterExceeded state; the discretization then is the last one
// reached, not rolled back.
type Result struct {
	Discr            *geometry.Discretization
	Conn             *geometry.ChainedConnection
	State            State
	ViolatedCriteria []string // one entry per applied refinement
	Iterations       int
	Warning          *NotConvergedWarning
}

// RefineStage1 refines d until Conditions 1 and 3 (kernel length scale and
// curvature, as configured) hold on the primary discretization. A nil
// refiner defaults to a fresh one over d's mesh. The returned connection
// chains from d through every applied refinement.
func RefineStage1(w *Wrangler, d *geometry.Discretization, refiner *geometry.Refiner,
	gf geometry.GroupFactory, cfg Config) (*Result, error) {

	cfg = cfg.withDefaults()
	w.Debug = w.Debug || cfg.Debug
	if refiner == nil {
		refiner = geometry.NewRefiner(d.Mesh())
	}

	var (
		state            = Iterating
		cur              = d
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
				Stage:                         stage1Name,
				ViolatedCriteria:              violatedCriteria,
				ExpansionDisturbanceTolerance: cfg.ExpansionDisturbanceTolerance,
			}
			log.Printf("warning: %s", warning.Error())
			state = MaxIterExceeded
			niter--
			break
		}

		flags := NewFlags(cur.K)

		if cfg.KernelLengthScale != nil {
			quadResolution, err := cur.Bind(geometry.QuadResolution)
			if err != nil {
				return nil, err
			}
			violates, err := w.CheckElementPropThreshold(
				quadResolution, *cfg.KernelLengthScale, flags)
			if err != nil {
				return nil, err
			}
			if violates {
				iterViolated = append(iterViolated, "kernel length scale")
				if cfg.Visualize {
					if err = writeRefinementSnapshot(stage1Name,
						"kernel-length-scale", niter, cur, flags); err != nil {
						return nil, err
					}
				}
			}
		}

		if cfg.ScaledMaxCurvatureThreshold != nil {
			scaledMaxCurv, err := cur.Bind(geometry.ScaledMaxCurvature)
			if err != nil {
				return nil, err
			}
			violates, err := w.CheckElementPropThreshold(
				scaledMaxCurv, *cfg.ScaledMaxCurvatureThreshold, flags)
			if err != nil {
				return nil, err
			}
			if violates {
				iterViolated = append(iterViolated, "curvature")
				if cfg.Visualize {
					if err = writeRefinementSnapshot(stage1Name,
						"curvature", niter, cur, flags); err != nil {
						return nil, err
					}
				}
			}
		}

		if len(iterViolated) == 0 {
			// Only start building trees once the cheap length-based
			// criteria are happy. The tree is rebuilt each iteration:
			// point identities change after every refinement.
			t, err := w.BuildTree(Places{Stage1: cur}, false)
			if err != nil {
				return nil, err
			}
			pl := w.FindPeerLists(t)
			disturbed, err := w.CheckExpansionDisksUndisturbedBySources(
				cur, t, pl, cfg.ExpansionDisturbanceTolerance, flags)
			if err != nil {
				return nil, err
			}
			if disturbed {
				iterViolated = append(iterViolated, "disturbed expansions")
				if cfg.Visualize {
					if err = writeRefinementSnapshot(stage1Name,
						"disturbed-expansions", niter, cur, flags); err != nil {
						return nil, err
					}
				}
			}
		}

		if len(iterViolated) > 0 {
			violatedCriteria = append(violatedCriteria, strings.Join(iterViolated, " and "))
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

	return &Result{
		Discr:            cur,
		Conn:             geometry.Chain(d, conns),
		State:            state,
		ViolatedCriteria: violatedCriteria,
		Iterations:       niter,
		Warning:          warning,
	}, nil
}

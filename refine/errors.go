package refine

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration errors: caller bugs, surfaced as fatal errors.
var (
	ErrUnsupportedDimension = errors.New("refine: unsupported ambient dimension for checker kernels")
	ErrUnsupportedPrecision = errors.New("refine: unsupported coordinate or index precision")
	ErrFlagsLength          = errors.New("refine: refine flags length does not match element count")
	ErrUnknownStage         = errors.New("refine: unexpected stage name")
	ErrMissingPlaces        = errors.New("refine: geometry collection is missing a required discretization")
)

// NotConvergedWarning reports that a refinement loop hit its iteration cap
// with criteria still violated. It is non-fatal: the loop result carries the
// last-reached discretization and this warning alongside it.
type NotConvergedWarning struct {
	Stage                         string
	ViolatedCriteria              []string
	ExpansionDisturbanceTolerance float64
}

func (w *NotConvergedWarning) Error() string {
	var crit []string
	for i, vc := range w.ViolatedCriteria {
		crit = append(crit, fmt.Sprintf("%d: %s", i+1, vc))
	}
	return fmt.Sprintf(
		"refiner for %s did not terminate after %d iterations (the maximum). "+
			"If the issue is disturbance of expansion disks, a slightly increased "+
			"expansion disturbance tolerance (currently: %g) may help. "+
			"The criteria triggering refinement in each iteration were: %s",
		w.Stage, len(w.ViolatedCriteria), w.ExpansionDisturbanceTolerance,
		strings.Join(crit, ", "))
}

package refine

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"

	"github.com/notargets/goqbx/geometry"
)

const (
	stage1Name = "stage-1"
	stage2Name = "stage-2"
)

// writeRefinementSnapshot emits one binary mesh-snapshot artifact for a
// violated criterion: node coordinates followed by the per-panel refine
// flags, little endian, in the same layout style as the solver mesh output
// files.
func writeRefinementSnapshot(stage, criterion string, niter int,
	d *geometry.Discretization, flags *Flags) error {

	if stage != stage1Name && stage != stage2Name {
		return fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
	log.Printf("for criterion %s: splitting %d/%d %s elements",
		criterion, flags.Count(), d.K, stage)

	fileName := fmt.Sprintf("refinement-%s-%s-%03d.dat", stage, criterion, niter)
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	var (
		nDimensions = int64(d.Dim)
		lenNodes    = int64(d.NNodes())
		xy          = make([]float64, 2*lenNodes)
		flagsOut    = make([]int32, d.K)
	)
	for i := 0; i < int(lenNodes); i++ {
		xy[2*i] = d.NodeX[i]
		xy[2*i+1] = d.NodeY[i]
	}
	for e := 0; e < d.K; e++ {
		if flags.IsSet(e) {
			flagsOut[e] = 1
		}
	}
	binary.Write(file, binary.LittleEndian, nDimensions)
	binary.Write(file, binary.LittleEndian, lenNodes)
	binary.Write(file, binary.LittleEndian, xy)
	binary.Write(file, binary.LittleEndian, int64(d.K))
	binary.Write(file, binary.LittleEndian, flagsOut)
	return nil
}

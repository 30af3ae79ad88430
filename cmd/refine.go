/*
Copyright © 2020 NAME HERE <EMAIL ADDRESS>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"io/ioutil"
	"os"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/notargets/goqbx/InputParameters"
	"github.com/notargets/goqbx/geometry"
	"github.com/notargets/goqbx/refine"
)

type RefineModel struct {
	Geometry   string
	Panels     int
	GapWidth   float64
	ParamsFile string
	Profile    bool
}

// RefineCmd represents the refine command
var RefineCmd = &cobra.Command{
	Use:   "refine",
	Short: "Refine a boundary geometry until the QBX criteria are satisfied",
	Long: `
Builds one of the named boundary geometries, runs stage-1 refinement
(expansion disks, panel size bounds) followed by stage-2 refinement
(quadrature resolution), and prints a convergence summary.`,
	Run: func(cmd *cobra.Command, args []string) {
		rm := &RefineModel{}
		rm.Geometry, _ = cmd.Flags().GetString("geometry")
		rm.Panels, _ = cmd.Flags().GetInt("panels")
		rm.GapWidth, _ = cmd.Flags().GetFloat64("gapWidth")
		rm.ParamsFile, _ = cmd.Flags().GetString("inputParametersFile")
		rm.Profile, _ = cmd.Flags().GetBool("profile")
		rp := processRefineInput(rm)
		RunRefine(rm, rp)
	},
}

func processRefineInput(rm *RefineModel) (rp *InputParameters.RefinementParameters) {
	rp = &InputParameters.RefinementParameters{
		Title:           "Refinement Case",
		PolynomialOrder: 4,
	}
	if len(rm.ParamsFile) != 0 {
		data, err := ioutil.ReadFile(rm.ParamsFile)
		if err != nil {
			fmt.Printf("error: %s\n", err.Error())
			exampleFile := `
########################################
Title: "Refinement Case"
PolynomialOrder: 4
FineOrder: 8
KernelLengthScale: 0.5
ExpansionDisturbanceTolerance: 0.025
MaxIterations: 10
ForceUniformRefinementRounds: 0
########################################
`
			fmt.Printf("Example File:%s\n", exampleFile)
			os.Exit(1)
		}
		if err = rp.Parse(data); err != nil {
			panic(err)
		}
	}
	return
}

func init() {
	rootCmd.AddCommand(RefineCmd)
	RefineCmd.Flags().StringP("geometry", "g", "circle", "geometry to refine: circle, ellipse or plates")
	RefineCmd.Flags().IntP("panels", "k", 8, "number of panels in the initial mesh")
	RefineCmd.Flags().Float64P("gapWidth", "w", 0.3, "gap between the plates (plates geometry)")
	RefineCmd.Flags().StringP("inputParametersFile", "I", "", "YAML file with refinement parameters")
	RefineCmd.Flags().BoolP("profile", "p", false, "write a CPU profile of the refinement run")
}

func buildMesh(rm *RefineModel) *geometry.Mesh {
	switch rm.Geometry {
	case "circle":
		return geometry.NewMeshFromCurve(geometry.Circle(1), rm.Panels)
	case "ellipse":
		return geometry.NewMeshFromCurve(geometry.Ellipse(2, 1), rm.Panels)
	case "plates":
		m := geometry.NewMesh()
		m.AddPlate(0, 0, 1, 0, rm.Panels)
		m.AddPlate(0, rm.GapWidth, 1, rm.GapWidth, rm.Panels)
		return m
	}
	fmt.Printf("error: unknown geometry %q\n", rm.Geometry)
	os.Exit(1)
	return nil
}

func RunRefine(rm *RefineModel, rp *InputParameters.RefinementParameters) {
	if rm.Profile {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}
	rp.Print()

	var (
		m       = buildMesh(rm)
		gf      = geometry.GroupFactory{Order: rp.PolynomialOrder, FineOrder: rp.FineOrder}
		refiner = geometry.NewRefiner(m)
		d       = geometry.NewDiscretization(m, gf)
		w       = refine.NewWrangler()
		cfg     = refine.Config{
			KernelLengthScale:             rp.KernelLengthScale,
			ScaledMaxCurvatureThreshold:   rp.ScaledMaxCurvatureThreshold,
			ExpansionDisturbanceTolerance: rp.ExpansionDisturbanceTolerance,
			MaxIterations:                 rp.MaxIterations,
			ForceUniformRefinementRounds:  rp.ForceUniformRefinementRounds,
			Debug:                         rp.Debug,
			Visualize:                     rp.Visualize,
		}
	)
	fmt.Printf("refining %s geometry: %d panels, order %d\n", rm.Geometry, d.K, d.Order)

	res1, err := refine.RefineStage1(w, d, refiner, gf, cfg)
	if err != nil {
		panic(err)
	}
	fmt.Printf("stage 1: %s after %d iterations, %d -> %d panels\n",
		res1.State, res1.Iterations, d.K, res1.Discr.K)
	for i, vc := range res1.ViolatedCriteria {
		fmt.Printf("  iteration %d: %s\n", i+1, vc)
	}

	res2, err := refine.RefineStage2(w, res1.Discr, refiner, gf, cfg)
	if err != nil {
		panic(err)
	}
	fmt.Printf("stage 2: %s after %d iterations, %d -> %d panels\n",
		res2.State, res2.Iterations, res1.Discr.K, res2.Discr.K)
	for i, vc := range res2.ViolatedCriteria {
		fmt.Printf("  iteration %d: %s\n", i+1, vc)
	}
	if cfg.ForceUniformRefinementRounds > 0 {
		fmt.Printf("  plus %d uniform refinement round(s)\n", cfg.ForceUniformRefinementRounds)
	}
}

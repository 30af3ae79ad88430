package InputParameters

import (
	"fmt"

	"github.com/ghodss/yaml"
)

// Parameters obtained from the YAML input file
type RefinementParameters struct {
	Title                         string   `yaml:"Title"`
	PolynomialOrder               int      `yaml:"PolynomialOrder"`
	FineOrder                     int      `yaml:"FineOrder"`
	KernelLengthScale             *float64 `yaml:"KernelLengthScale"`
	ScaledMaxCurvatureThreshold   *float64 `yaml:"ScaledMaxCurvatureThreshold"`
	ExpansionDisturbanceTolerance float64  `yaml:"ExpansionDisturbanceTolerance"`
	MaxIterations                 int      `yaml:"MaxIterations"`
	ForceUniformRefinementRounds  int      `yaml:"ForceUniformRefinementRounds"`
	Debug                         bool     `yaml:"Debug"`
	Visualize                     bool     `yaml:"Visualize"`
}

func (rp *RefinementParameters) Parse(data []byte) error {
	return yaml.Unmarshal(data, rp)
}

func (rp *RefinementParameters) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", rp.Title)
	fmt.Printf("[%d]\t\t\t\t= Polynomial Order\n", rp.PolynomialOrder)
	fmt.Printf("[%d]\t\t\t\t= Fine Order\n", rp.FineOrder)
	if rp.KernelLengthScale != nil {
		fmt.Printf("%8.5f\t\t= KernelLengthScale\n", *rp.KernelLengthScale)
	}
	if rp.ScaledMaxCurvatureThreshold != nil {
		fmt.Printf("%8.5f\t\t= ScaledMaxCurvatureThreshold\n", *rp.ScaledMaxCurvatureThreshold)
	}
	fmt.Printf("%8.5f\t\t= ExpansionDisturbanceTolerance\n", rp.ExpansionDisturbanceTolerance)
	fmt.Printf("[%d]\t\t\t\t= MaxIterations\n", rp.MaxIterations)
	fmt.Printf("[%d]\t\t\t\t= ForceUniformRefinementRounds\n", rp.ForceUniformRefinementRounds)
}

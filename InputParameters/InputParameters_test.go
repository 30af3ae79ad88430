package InputParameters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	yamlInput := `
Title: Gap geometry
PolynomialOrder: 4
FineOrder: 8
KernelLengthScale: 0.2
ExpansionDisturbanceTolerance: 0.05
MaxIterations: 12
ForceUniformRefinementRounds: 1
Debug: true
`
	var rp RefinementParameters
	require.NoError(t, rp.Parse([]byte(yamlInput)))
	assert.Equal(t, "Gap geometry", rp.Title)
	assert.Equal(t, 4, rp.PolynomialOrder)
	assert.Equal(t, 8, rp.FineOrder)
	require.NotNil(t, rp.KernelLengthScale)
	assert.Equal(t, 0.2, *rp.KernelLengthScale)
	// Absent optional thresholds stay nil so the checks stay disabled
	assert.Nil(t, rp.ScaledMaxCurvatureThreshold)
	assert.Equal(t, 0.05, rp.ExpansionDisturbanceTolerance)
	assert.Equal(t, 12, rp.MaxIterations)
	assert.Equal(t, 1, rp.ForceUniformRefinementRounds)
	assert.True(t, rp.Debug)
	assert.False(t, rp.Visualize)
	rp.Print()
}

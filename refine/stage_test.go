package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/goqbx/geometry"
)

func floatPtr(v float64) *float64 { return &v }

func TestRefineStage1TwoPlates(t *testing.T) {
	// Two parallel unit plates with a gap smaller than the expansion
	// radius. Each halving of the panel size halves the radius, so the
	// disturbed-expansions criterion fires until the radius drops below
	// the gap: two refinement rounds, every panel split each time.
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 3}
	)
	m.AddPlate(0, 0, 1, 0, 1)
	m.AddPlate(0, 0.3, 1, 0.3, 1)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage1(w, d, nil, gf, Config{})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Nil(t, res.Warning)
	assert.Equal(t, []string{"disturbed expansions", "disturbed expansions"},
		res.ViolatedCriteria)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 8, res.Discr.K)

	// The chained connection spans from the input discretization to the
	// result, one link per refinement, strictly growing
	require.Len(t, res.Conn.Connections, 2)
	assert.Same(t, d, res.Conn.From)
	assert.Same(t, res.Discr, res.Conn.To)
	prev := d.K
	for _, c := range res.Conn.Connections {
		assert.Greater(t, c.To.K, prev)
		prev = c.To.K
	}

	u := make([]float64, d.NNodes())
	for i := range u {
		u[i] = 1
	}
	up, err := res.Conn.Apply(u)
	require.NoError(t, err)
	require.Len(t, up, res.Discr.NNodes())
	for _, v := range up {
		assert.InDelta(t, 1, v, 1.e-12)
	}
}

func TestRefineStage1MaxIterExceeded(t *testing.T) {
	// An unreachable kernel length scale keeps the cheap criterion firing
	// forever; the loop stops after the iteration cap, keeping the last
	// discretization instead of rolling back.
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 2}
	)
	m.AddPlate(0, 0, 1, 0, 2)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage1(w, d, nil, gf, Config{
		KernelLengthScale: floatPtr(0.01),
		MaxIterations:     1,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxIterExceeded, res.State)
	require.NotNil(t, res.Warning)
	assert.Equal(t, "stage-1", res.Warning.Stage)
	assert.Contains(t, res.Warning.Error(), "did not terminate after 1 iterations")
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []string{"kernel length scale"}, res.ViolatedCriteria)
	assert.Equal(t, 4, res.Discr.K)
	require.Len(t, res.Conn.Connections, 1)
}

func TestRefineStage1IterationBound(t *testing.T) {
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 2}
	)
	m.AddPlate(0, 0, 1, 0, 1)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage1(w, d, nil, gf, Config{
		KernelLengthScale: floatPtr(1.e-6),
		MaxIterations:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, MaxIterExceeded, res.State)
	assert.Equal(t, 3, res.Iterations)
	assert.Len(t, res.ViolatedCriteria, 3)
	// Uniform halving from one panel: three doublings
	assert.Equal(t, 8, res.Discr.K)
}

func TestRefineStage1CurvatureConvergence(t *testing.T) {
	// Unit circle in four panels: scaled max curvature per panel is about
	// the panel arc length, which starts above the threshold and falls
	// below it after two uniform halvings.
	var (
		w  = NewWrangler()
		m  = geometry.NewMeshFromCurve(geometry.Circle(1), 4)
		gf = geometry.GroupFactory{Order: 4}
	)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage1(w, d, nil, gf, Config{
		ScaledMaxCurvatureThreshold: floatPtr(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Equal(t, []string{"curvature", "curvature"}, res.ViolatedCriteria)
	assert.Equal(t, 16, res.Discr.K)

	curv, err := res.Discr.Bind(geometry.ScaledMaxCurvature)
	require.NoError(t, err)
	for _, c := range curv {
		assert.LessOrEqual(t, c, 0.5)
	}
}

func TestRefineStage2ForcedUniformRounds(t *testing.T) {
	// An isolated plate satisfies the quadrature-resolution criterion
	// immediately; the forced uniform rounds still run and each one splits
	// every panel.
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 2}
	)
	m.AddPlate(0, 0, 1, 0, 2)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage2(w, d, nil, gf, Config{
		ForceUniformRefinementRounds: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Empty(t, res.ViolatedCriteria)
	assert.Equal(t, 1, res.Iterations)
	require.Len(t, res.Conn.Connections, 2)
	assert.Equal(t, 8, res.Discr.K)
	assert.Same(t, d, res.Conn.From)
	assert.Same(t, res.Discr, res.Conn.To)
}

func TestRefineStage2QuadratureResolution(t *testing.T) {
	// A coarse panel whose danger zone reaches a nearby finer plate. The
	// first round splits only the coarse panel; afterwards its danger zone
	// still reaches the fine plate's centers and the fine plate's sources
	// now reach the coarse panels' centers, so the second round splits
	// everything. The third check is clean.
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 3}
	)
	m.AddPlate(0, 0, 1, 0, 1)
	m.AddPlate(0, 0.3, 0.8, 0.3, 2)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage2(w, d, nil, gf, Config{})
	require.NoError(t, err)
	assert.Equal(t, Converged, res.State)
	assert.Equal(t, []string{
		"insufficient quadrature resolution",
		"insufficient quadrature resolution",
	}, res.ViolatedCriteria)
	assert.Equal(t, 3, res.Iterations)
	require.Len(t, res.Conn.Connections, 2)
	assert.Equal(t, 4, res.Conn.Connections[0].To.K)
	assert.Equal(t, 8, res.Discr.K)
}

func TestRefineStage2MaxIterExceeded(t *testing.T) {
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 3}
	)
	m.AddPlate(0, 0, 1, 0, 1)
	m.AddPlate(0, 0.3, 0.8, 0.3, 2)
	d := geometry.NewDiscretization(m, gf)

	res, err := RefineStage2(w, d, nil, gf, Config{MaxIterations: 1})
	require.NoError(t, err)
	assert.Equal(t, MaxIterExceeded, res.State)
	require.NotNil(t, res.Warning)
	assert.Equal(t, "stage-2", res.Warning.Stage)
	assert.Equal(t, 1, res.Iterations)
	assert.Equal(t, []string{"insufficient quadrature resolution"}, res.ViolatedCriteria)
	// Only the coarse panel was split before the cap hit
	assert.Equal(t, 4, res.Discr.K)
}

func TestStagesChainTogether(t *testing.T) {
	// Stage 2 picks up the refiner and discretization where stage 1 left
	// them, and the two chained connections compose over the full history.
	var (
		w  = NewWrangler()
		m  = geometry.NewMesh()
		gf = geometry.GroupFactory{Order: 3}
	)
	m.AddPlate(0, 0, 1, 0, 1)
	m.AddPlate(0, 0.3, 1, 0.3, 1)
	var (
		d       = geometry.NewDiscretization(m, gf)
		refiner = geometry.NewRefiner(m)
	)
	s1, err := RefineStage1(w, d, refiner, gf, Config{})
	require.NoError(t, err)
	require.Equal(t, Converged, s1.State)

	s2, err := RefineStage2(w, s1.Discr, refiner, gf, Config{})
	require.NoError(t, err)
	assert.Equal(t, Converged, s2.State)
	assert.Same(t, s1.Discr, s2.Conn.From)
	assert.GreaterOrEqual(t, s2.Discr.K, s1.Discr.K)

	u := make([]float64, d.NNodes())
	for i, x := range d.NodeX {
		u[i] = x
	}
	mid, err := s1.Conn.Apply(u)
	require.NoError(t, err)
	fin, err := s2.Conn.Apply(mid)
	require.NoError(t, err)
	require.Len(t, fin, s2.Discr.NNodes())
	for i, x := range s2.Discr.NodeX {
		assert.InDelta(t, x, fin[i], 1.e-12)
	}
}

package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionCoeff_FallsBackToDefaults(t *testing.T) {
	p := Params{Resolution: []float64{0.01, 0.02}}
	assert.Equal(t, 0.01, p.ResolutionCoeff(0))
	assert.Equal(t, 0.02, p.ResolutionCoeff(1))
	// Missing entries come from the built-in parametrization.
	assert.Equal(t, DefaultResolution[2], p.ResolutionCoeff(2))
	assert.Equal(t, DefaultResolution[3], p.ResolutionCoeff(3))
	assert.Equal(t, 0.0, p.ResolutionCoeff(7))
}

func TestMomentumChargeShift_Polynomial(t *testing.T) {
	p := Params{MomShift: []float64{0.5, 2.0, 1.0}}
	// 0.5 + 2*eta + eta^2 at eta = 3
	assert.InDelta(t, 15.5, p.MomentumChargeShift(3), 1e-12)
	assert.InDelta(t, 0.5, p.MomentumChargeShift(0), 1e-12)

	empty := Params{}
	assert.Equal(t, 0.0, empty.MomentumChargeShift(1.0))
}

func TestTimeShiftGraph_Interpolation(t *testing.T) {
	g := TimeShiftGraph{
		Eta:   []float64{-1.0, 0.0, 1.0},
		Shift: []float64{10, 20, 40},
	}
	require.NoError(t, g.Validate())

	assert.InDelta(t, 15.0, g.At(-0.5), 1e-12)
	assert.InDelta(t, 20.0, g.At(0), 1e-12)
	assert.InDelta(t, 30.0, g.At(0.5), 1e-12)
	// Clamped outside the covered range.
	assert.InDelta(t, 10.0, g.At(-5), 1e-12)
	assert.InDelta(t, 40.0, g.At(5), 1e-12)
}

func TestTimeShiftGraph_Validate(t *testing.T) {
	assert.Error(t, (&TimeShiftGraph{}).Validate())
	assert.Error(t, (&TimeShiftGraph{Eta: []float64{0, 1}, Shift: []float64{1}}).Validate())
	assert.Error(t, (&TimeShiftGraph{Eta: []float64{1, 0}, Shift: []float64{1, 2}}).Validate())
	assert.NoError(t, (&TimeShiftGraph{Eta: []float64{0}, Shift: []float64{5}}).Validate())
}

func TestParams_TimeShiftPerSign(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, 0.0, p.TimeShift(0.3, 1))

	p.SetTimeShift(&TimeShiftGraph{Eta: []float64{0}, Shift: []float64{7}}, true)
	assert.Equal(t, 7.0, p.TimeShift(0.3, 1))
	assert.Equal(t, 0.0, p.TimeShift(0.3, -1))

	p.SetTimeShift(&TimeShiftGraph{Eta: []float64{0}, Shift: []float64{-4}}, false)
	assert.Equal(t, -4.0, p.TimeShift(0.3, -1))
}

func TestCollection_RetrieveAndNames(t *testing.T) {
	coll := Collection{Passes: map[string]Params{
		"apass2": {Resolution: []float64{1}},
		"apass1": {Resolution: []float64{2}},
	}}
	p, ok := coll.Retrieve("apass1")
	assert.True(t, ok)
	assert.Equal(t, []float64{2}, p.Resolution)

	_, ok = coll.Retrieve("cpass0")
	assert.False(t, ok)
	assert.Equal(t, []string{"apass1", "apass2"}, coll.PassNames())
}

func TestDefaultCollection(t *testing.T) {
	coll := DefaultCollection("unanchored")
	p, ok := coll.Retrieve("unanchored")
	require.True(t, ok)
	assert.Equal(t, DefaultResolution, p.Resolution)
}

func TestParseCollisionSystem(t *testing.T) {
	for name, want := range map[string]CollisionSystem{
		"":     CollSysUnset,
		"pp":   CollSysPP,
		"PbPb": CollSysPbPb,
		"xexe": CollSysXeXe,
		"pPb":  CollSysPPb,
	} {
		got, err := ParseCollisionSystem(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseCollisionSystem("OO")
	assert.Error(t, err)
}

func TestClassifyCollisionSystem(t *testing.T) {
	assert.Equal(t, CollSysPP, ClassifyCollisionSystem(BeamInfo{ZA: 1, AA: 1, ZB: 1, AB: 1}))
	assert.Equal(t, CollSysPbPb, ClassifyCollisionSystem(BeamInfo{ZA: 82, AA: 208, ZB: 82, AB: 208}))
	assert.Equal(t, CollSysXeXe, ClassifyCollisionSystem(BeamInfo{ZA: 54, AA: 129, ZB: 54, AB: 129}))
	assert.Equal(t, CollSysPPb, ClassifyCollisionSystem(BeamInfo{ZA: 1, AA: 1, ZB: 82, AB: 208}))
	assert.Equal(t, CollSysPPb, ClassifyCollisionSystem(BeamInfo{ZA: 82, AA: 208, ZB: 1, AB: 1}))
	assert.Equal(t, CollSysUnset, ClassifyCollisionSystem(BeamInfo{ZA: 8, AA: 16, ZB: 8, AB: 16}))
}

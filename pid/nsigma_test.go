package pid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tofpid/tofpid/pid/calib"
)

func TestSeparation_ExactHypothesis_Zero(t *testing.T) {
	params := calib.DefaultParams()
	ev := CombinedTime{Value: 50, Err: 20, Flags: FlagEvTimeTOF}

	trk := testTrack(1.1)
	trk.TOFSignal = ev.Value + ExpectedTime(&trk, Kaon)

	res := Separation(&params, &trk, ev, Kaon)
	assert.InDelta(t, 0.0, res.Nsigma, 1e-9)
	assert.InDelta(t, ExpectedSigma(&params, &trk, Kaon), res.ExpSigma, 1e-9)
}

func TestSeparation_OffsetInSigmaUnits(t *testing.T) {
	params := calib.DefaultParams()
	ev := CombinedTime{Value: 0, Err: 0}

	trk := testTrack(0.9)
	sigma := ExpectedSigma(&params, &trk, Pion)
	trk.TOFSignal = ExpectedTime(&trk, Pion) + 3*sigma

	res := Separation(&params, &trk, ev, Pion)
	assert.InDelta(t, 3.0, res.Nsigma, 1e-9)
}

func TestSeparation_EventTimeErrorWidensDenominator(t *testing.T) {
	params := calib.DefaultParams()
	trk := testTrack(1.0)
	sigma := ExpectedSigma(&params, &trk, Pion)
	trk.TOFSignal = ExpectedTime(&trk, Pion) + 5*sigma

	tight := Separation(&params, &trk, CombinedTime{Err: 0}, Pion)
	wide := Separation(&params, &trk, CombinedTime{Err: 3 * sigma}, Pion)
	assert.Less(t, math.Abs(wide.Nsigma), math.Abs(tight.Nsigma))
}

func TestSeparation_AppliesTimeShift(t *testing.T) {
	params := calib.DefaultParams()
	params.SetTimeShift(&calib.TimeShiftGraph{Eta: []float64{0}, Shift: []float64{10}}, true)

	trk := testTrack(1.0)
	trk.TOFSignal = ExpectedTime(&trk, Pion) + 10 // exactly the calibrated shift

	res := Separation(&params, &trk, CombinedTime{}, Pion)
	assert.InDelta(t, 0.0, res.Nsigma, 1e-9)

	// Negative tracks have no graph installed, so the shift stays.
	trk.Sign = -1
	res = Separation(&params, &trk, CombinedTime{}, Pion)
	assert.Greater(t, res.Nsigma, 0.0)
}

func TestSeparation_NoTOF_Sentinel(t *testing.T) {
	params := calib.DefaultParams()
	trk := testTrack(1.0)
	trk.HasTOF = false
	res := Separation(&params, &trk, CombinedTime{}, Pion)
	assert.Equal(t, SentinelResult(), res)
	assert.Equal(t, NsigmaSentinel, res.Nsigma)
}

func TestPackNsigma_Quantization(t *testing.T) {
	assert.Equal(t, int8(0), PackNsigma(0))
	assert.Equal(t, int8(12), PackNsigma(1.23))
	assert.Equal(t, int8(-12), PackNsigma(-1.23))
	assert.Equal(t, int8(13), PackNsigma(1.26))
}

func TestPackNsigma_Clamping(t *testing.T) {
	assert.Equal(t, int8(127), PackNsigma(50))
	assert.Equal(t, int8(-128), PackNsigma(-50))
	assert.Equal(t, int8(-128), PackNsigma(NsigmaSentinel))
	assert.Equal(t, int8(-128), PackNsigma(math.NaN()))
}

func TestUnpackNsigma_RoundTrip(t *testing.T) {
	for _, ns := range []float64{-12.0, -3.3, 0, 0.7, 9.9} {
		packed := PackNsigma(ns)
		assert.InDelta(t, ns, UnpackNsigma(packed), 0.05+1e-9)
	}
	assert.Equal(t, NsigmaSentinel, UnpackNsigma(-128))
}

package pid

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tofpid/tofpid/pid/calib"
)

// timedTrack builds a timing-eligible track whose measured time is exactly the
// expected time for sp plus the true event time t0.
func timedTrack(p, t0 float64, sp Species) Track {
	trk := testTrack(p)
	trk.TOFSignal = ExpectedTime(&trk, sp) + t0
	return trk
}

func defaultFilter() TrackFilter {
	cfg := DefaultEventTimeConfig()
	return GoodForEventTime(cfg.MinMomentum, cfg.MaxMomentum)
}

func TestMakeEventTime_NoTracks_DiamondPrior(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	est := MakeEventTime(nil, defaultFilter(), &params, cfg)

	assert.True(t, est.NoUsable)
	assert.Equal(t, 0.0, est.Value)
	assert.InDelta(t, cfg.ErrDiamond(), est.Err, 1e-9)
	assert.Equal(t, 0, est.Multiplicity)
}

func TestMakeEventTime_FilteredTracksDoNotContribute(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	tracks := []Track{
		timedTrack(1.0, 50, Pion),
		timedTrack(3.0, 50, Pion), // above the momentum window
	}
	tracks = append(tracks, timedTrack(1.2, 50, Pion))
	tracks[2].HasITS = false

	est := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	assert.Equal(t, 1, est.Multiplicity)
}

func TestMakeEventTime_RecoversTrueEventTime(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	const t0 = 80.0

	var tracks []Track
	momenta := []float64{0.7, 0.9, 1.1, 1.3, 1.5, 1.7, 0.8, 1.2}
	for _, p := range momenta {
		tracks = append(tracks, timedTrack(p, t0, Pion))
	}

	est := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	require.False(t, est.NoUsable)
	assert.Equal(t, len(momenta), est.Multiplicity)
	// Exact input times: the all-pion assignment has chi2 = 0 and every
	// residual equals t0.
	assert.InDelta(t, t0, est.Value, 1e-9)
	assert.Greater(t, est.Err, 0.0)
	assert.Less(t, est.Err, cfg.ErrDiamond())
}

func TestMakeEventTime_MixedSpecies_AssignsHypotheses(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	const t0 = -60.0

	tracks := []Track{
		timedTrack(0.7, t0, Pion),
		timedTrack(1.0, t0, Kaon),
		timedTrack(1.3, t0, Proton),
		timedTrack(0.9, t0, Pion),
	}
	est := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	require.False(t, est.NoUsable)
	// The true assignment gives chi2 = 0, so the search must find it.
	assert.InDelta(t, t0, est.Value, 1e-9)
}

func TestMakeEventTime_Deterministic(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	var tracks []Track
	for _, p := range []float64{0.6, 0.8, 1.0, 1.2, 1.4, 1.6, 1.8} {
		tracks = append(tracks, timedTrack(p, 30, Kaon))
	}
	a := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	b := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	assert.Equal(t, a.Value, b.Value)
	assert.Equal(t, a.Err, b.Err)
	assert.Equal(t, a.Multiplicity, b.Multiplicity)
}

func TestMakeEventTime_ChunkedSample_StillConverges(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	const t0 = 45.0

	// 14 tracks force a second combinatorial chunk.
	var tracks []Track
	for i := 0; i < 14; i++ {
		p := 0.6 + 0.09*float64(i)
		tracks = append(tracks, timedTrack(p, t0, Pion))
	}
	est := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	require.False(t, est.NoUsable)
	assert.Equal(t, 14, est.Multiplicity)
	assert.InDelta(t, t0, est.Value, 1e-9)
}

func TestMakeEventTime_WeightBelowDiamondFloor(t *testing.T) {
	// A resolution far worse than the diamond prior cannot beat it.
	params := calib.Params{Resolution: []float64{0, 0, 0, 10000}}
	cfg := DefaultEventTimeConfig()
	tracks := []Track{timedTrack(1.0, 20, Pion)}

	est := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	assert.True(t, est.NoUsable)
	assert.Equal(t, 0.0, est.Value)
	assert.InDelta(t, cfg.ErrDiamond(), est.Err, 1e-9)
}

func TestRemoveBias_ExcludesOwnContribution(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	tracks := []Track{
		timedTrack(0.7, 100, Pion),
		timedTrack(1.1, 100, Pion),
		timedTrack(1.5, 100, Pion),
	}
	filter := defaultFilter()
	est := MakeEventTime(tracks, filter, &params, cfg)
	require.False(t, est.NoUsable)

	cursor := 0
	for i := range tracks {
		value, errv, usable := est.RemoveBias(&tracks[i], filter, &cursor, cfg.MaxBiasExcluded)
		require.True(t, usable)
		// All residuals equal the true event time, so removing one leaves it.
		assert.InDelta(t, 100.0, value, 1e-9)
		// Two remaining contributions carry less weight than three.
		assert.Greater(t, errv, est.Err)
	}
	assert.Equal(t, 3, cursor)
}

func TestRemoveBias_NonContributingTrack_EstimateUnchanged(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	tracks := []Track{
		timedTrack(0.8, 25, Pion),
		timedTrack(1.2, 25, Pion),
	}
	filter := defaultFilter()
	est := MakeEventTime(tracks, filter, &params, cfg)

	outside := timedTrack(2.5, 25, Pion) // fails the momentum window
	cursor := 0
	value, errv, usable := est.RemoveBias(&outside, filter, &cursor, cfg.MaxBiasExcluded)
	assert.True(t, usable)
	assert.Equal(t, est.Value, value)
	assert.Equal(t, est.Err, errv)
	assert.Equal(t, 0, cursor)
}

func TestRemoveBias_LookAlikeExcludedTogether(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()

	// Two split tracks sharing a TOF hit (identical measured time) plus one
	// independent track.
	a := timedTrack(1.0, 100, Pion)
	b := a
	c := timedTrack(1.4, 100, Pion)
	tracks := []Track{a, b, c}

	filter := defaultFilter()
	est := MakeEventTime(tracks, filter, &params, cfg)
	require.False(t, est.NoUsable)

	cursor := 0
	_, errv, usable := est.RemoveBias(&tracks[0], filter, &cursor, cfg.MaxBiasExcluded)
	require.True(t, usable)
	// Both look-alikes removed: only c remains, so the error is c's sigma.
	sigmaC := ExpectedSigma(&params, &c, Pion)
	assert.InDelta(t, sigmaC, errv, 1e-9)
	assert.Equal(t, 1, cursor)
}

func TestMakeEventTime_NonFiniteSignal_ZeroWeight(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	tracks := []Track{
		timedTrack(0.7, 50, Pion),
		timedTrack(1.0, 50, Pion),
		timedTrack(1.3, 50, Pion),
	}
	tracks[1].TOFSignal = math.NaN()

	est := MakeEventTime(tracks, defaultFilter(), &params, cfg)
	require.False(t, est.NoUsable)
	// The bad signal drops out instead of poisoning the whole chunk.
	assert.Equal(t, 2, est.Multiplicity)
	assert.InDelta(t, 50.0, est.Value, 1e-9)
}

func TestRemoveBias_StaysAlignedPastNonFiniteSignal(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()

	// Two combinatorial chunks. Track 0 carries a broken signal; the last
	// track sits at a different true event time than the rest, so removing
	// the wrong contribution is visible in the restated values.
	var tracks []Track
	tracks = append(tracks, timedTrack(0.65, 200, Pion))
	tracks[0].TOFSignal = math.NaN()
	for _, p := range []float64{0.7, 0.8, 0.9, 1.0, 1.1, 1.2, 1.3, 1.4, 1.5, 1.6} {
		tracks = append(tracks, timedTrack(p, 200, Pion))
	}
	tracks = append(tracks, timedTrack(1.7, 100, Pion))

	filter := defaultFilter()
	est := MakeEventTime(tracks, filter, &params, cfg)
	require.False(t, est.NoUsable)
	require.Equal(t, 11, est.Multiplicity)
	require.Greater(t, est.Value, 100.0)
	require.Less(t, est.Value, 200.0)

	cursor := 0
	vals := make([]float64, len(tracks))
	for i := range tracks {
		v, _, usable := est.RemoveBias(&tracks[i], filter, &cursor, cfg.MaxBiasExcluded)
		require.True(t, usable, "track %d", i)
		vals[i] = v
	}
	assert.Equal(t, len(tracks), cursor)

	// The broken track contributed nothing, so it keeps the full estimate.
	assert.Equal(t, est.Value, vals[0])
	// Removing the lone early-time contribution leaves exactly the common
	// event time of the others.
	assert.InDelta(t, 200.0, vals[11], 1e-9)
	// Every contributing track must lose its own measurement, not a
	// neighbour's: dropping a late-time contribution pulls the value down.
	for i := 1; i <= 10; i++ {
		assert.Less(t, vals[i], est.Value, "track %d", i)
	}
}

func TestRemoveBias_SingleTrackGroup_Diamond(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	tracks := []Track{timedTrack(1.0, 55, Pion)}
	filter := defaultFilter()
	est := MakeEventTime(tracks, filter, &params, cfg)
	require.False(t, est.NoUsable)

	// A lone track has no companions to estimate against.
	cursor := 0
	value, errv, usable := est.RemoveBias(&tracks[0], filter, &cursor, cfg.MaxBiasExcluded)
	assert.False(t, usable)
	assert.Equal(t, 0.0, value)
	assert.InDelta(t, cfg.ErrDiamond(), errv, 1e-9)
}

func TestRemoveBias_RemainingWeightBelowFloor_Diamond(t *testing.T) {
	// Each track alone sits below the diamond floor; two together clear it.
	params := calib.Params{Resolution: []float64{0, 0, 0, 250}}
	cfg := DefaultEventTimeConfig()
	tracks := []Track{
		timedTrack(0.9, 10, Pion),
		timedTrack(1.3, 10, Pion),
	}
	filter := defaultFilter()
	est := MakeEventTime(tracks, filter, &params, cfg)
	require.False(t, est.NoUsable)

	cursor := 0
	value, errv, usable := est.RemoveBias(&tracks[0], filter, &cursor, cfg.MaxBiasExcluded)
	assert.False(t, usable)
	assert.Equal(t, 0.0, value)
	assert.InDelta(t, cfg.ErrDiamond(), errv, 1e-9)
}

func TestRemoveBias_NoUsableEstimate_Diamond(t *testing.T) {
	params := calib.DefaultParams()
	cfg := DefaultEventTimeConfig()
	est := MakeEventTime(nil, defaultFilter(), &params, cfg)

	trk := timedTrack(1.0, 0, Pion)
	cursor := 0
	value, errv, usable := est.RemoveBias(&trk, defaultFilter(), &cursor, cfg.MaxBiasExcluded)
	assert.False(t, usable)
	assert.Equal(t, 0.0, value)
	assert.InDelta(t, cfg.ErrDiamond(), errv, 1e-9)
}

func TestEventTimeConfig_DiamondDerivedQuantities(t *testing.T) {
	cfg := DefaultEventTimeConfig()
	assert.InDelta(t, 6.0*PsPerCm, cfg.ErrDiamond(), 1e-9)
	e := cfg.ErrDiamond()
	assert.InDelta(t, 1/(e*e), cfg.WeightDiamond(), 1e-18)

	cfg.DiamondCm = 2.0
	assert.Less(t, cfg.ErrDiamond(), e)
	assert.False(t, math.Signbit(cfg.WeightDiamond()))
}

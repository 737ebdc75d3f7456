package pid

import (
	"math"

	"github.com/tofpid/tofpid/pid/calib"
)

const (
	// CmPerPs is the speed of light in cm/ps.
	CmPerPs = 0.0299792458
	// PsPerCm converts a path length in cm to a light travel time in ps.
	PsPerCm = 33.356409
)

// ExpectedTime returns the expected time of flight (ps) for a track under a
// species hypothesis: t = L/c * E/p with E^2 = p^2 + m^2. The track momentum
// is a rigidity, so z=2 hypotheses see twice the momentum.
func ExpectedTime(trk *Track, sp Species) float64 {
	mom := trk.ExpMom() * sp.Charge()
	if mom <= 0 || trk.Length <= 0 {
		return 0
	}
	mass := sp.Mass()
	energy := math.Sqrt(mom*mom + mass*mass)
	return trk.Length * PsPerCm * energy / mom
}

// ExpectedSigma returns the expected resolution (ps) on the time of flight
// for a species hypothesis, from the calibrated parametrization: a
// momentum-resolution term scaled by the expected time plus a constant
// intrinsic term in quadrature.
func ExpectedSigma(params *calib.Params, trk *Track, sp Species) float64 {
	mom := trk.ExpMom() * sp.Charge()
	if mom <= 0 {
		return math.Inf(1)
	}
	texp := ExpectedTime(trk, sp)
	dpp := params.ResolutionCoeff(0) +
		params.ResolutionCoeff(1)*mom +
		params.ResolutionCoeff(2)*sp.Mass()/mom
	sigmaMom := dpp * texp / (1 + mom)
	intrinsic := params.ResolutionCoeff(3)
	return math.Sqrt(sigmaMom*sigmaMom + intrinsic*intrinsic)
}

// CorrectedExpMom applies the calibrated charge-dependent momentum shift to
// the expected momentum at the TOF radius.
func CorrectedExpMom(params *calib.Params, trk *Track) float64 {
	return trk.ExpMom() / (1 + float64(trk.Sign)*params.MomentumChargeShift(trk.Eta))
}

// Beta returns the measured velocity ratio of a track given its assigned
// event time (ps). Returns NsigmaSentinel when the time of flight is not
// positive.
func Beta(trk *Track, eventTime float64) float64 {
	tof := trk.TOFSignal - eventTime
	if tof <= 0 {
		return NsigmaSentinel
	}
	return trk.Length / (tof * CmPerPs)
}

// BetaExpectedSigma is the flat expected resolution on Beta from the
// calibration bundle.
func BetaExpectedSigma(params *calib.Params) float64 {
	return params.BetaReso
}

// TOFMass computes the mass (GeV/c^2) from a momentum and a measured beta.
// Returns NsigmaSentinel for an unphysical beta.
func TOFMass(mom, beta float64) float64 {
	if beta <= 0 {
		return NsigmaSentinel
	}
	return mom * math.Sqrt(math.Abs(1/(beta*beta)-1))
}

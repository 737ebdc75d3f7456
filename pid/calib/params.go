package calib

import (
	"fmt"
	"sort"
)

// Params is one versioned bundle of TOF response calibration parameters,
// keyed by reconstruction pass inside a Collection.
//
// Resolution holds the coefficients of the expected-sigma parametrization:
//
//	dpp   = r0 + r1*p + r2*mass/p          (relative momentum resolution)
//	sigma = sqrt((dpp*texp/(1+p))^2 + r3^2)
//
// MomShift holds polynomial coefficients in eta for the charge-dependent
// shift applied to the expected momentum at the TOF radius.
type Params struct {
	Resolution []float64 `yaml:"resolution"`
	MomShift   []float64 `yaml:"momentum_shift"`
	// BetaReso is the flat expected resolution on the measured velocity ratio.
	BetaReso float64 `yaml:"beta_resolution"`

	shiftPos *TimeShiftGraph
	shiftNeg *TimeShiftGraph
}

// DefaultResolution matches the parametrization shipped with the unanchored pass.
var DefaultResolution = []float64{0.008, 0.008, 0.002, 40.0}

// DefaultParams returns a Params with the built-in resolution parametrization,
// no momentum shift and no time shift.
func DefaultParams() Params {
	return Params{
		Resolution: append([]float64(nil), DefaultResolution...),
		BetaReso:   0.008,
	}
}

// ResolutionCoeff returns the i-th resolution coefficient, falling back to the
// built-in default when the loaded slice is shorter.
func (p *Params) ResolutionCoeff(i int) float64 {
	if i < len(p.Resolution) {
		return p.Resolution[i]
	}
	if i < len(DefaultResolution) {
		return DefaultResolution[i]
	}
	return 0
}

// MomentumChargeShift evaluates the momentum shift polynomial at eta.
// Zero when no coefficients are loaded.
func (p *Params) MomentumChargeShift(eta float64) float64 {
	shift := 0.0
	pow := 1.0
	for _, c := range p.MomShift {
		shift += c * pow
		pow *= eta
	}
	return shift
}

// SetTimeShift installs the time-shift graph for the given charge sign.
// A nil graph clears it.
func (p *Params) SetTimeShift(g *TimeShiftGraph, positive bool) {
	if positive {
		p.shiftPos = g
	} else {
		p.shiftNeg = g
	}
}

// TimeShift returns the calibrated time shift (ps) at eta for a track of the
// given charge sign. Zero when no graph is loaded for that sign.
func (p *Params) TimeShift(eta float64, sign int8) float64 {
	g := p.shiftPos
	if sign < 0 {
		g = p.shiftNeg
	}
	if g == nil {
		return 0
	}
	return g.At(eta)
}

// TimeShiftGraph is a piecewise-linear eta -> time shift (ps) curve.
// Points must be sorted by eta; evaluation clamps outside the covered range.
type TimeShiftGraph struct {
	Eta   []float64 `yaml:"eta"`
	Shift []float64 `yaml:"shift"`
}

// Validate checks the graph is non-empty, consistent and sorted.
func (g *TimeShiftGraph) Validate() error {
	if len(g.Eta) == 0 {
		return fmt.Errorf("time shift graph has no points")
	}
	if len(g.Eta) != len(g.Shift) {
		return fmt.Errorf("time shift graph has %d eta points but %d shift points", len(g.Eta), len(g.Shift))
	}
	if !sort.Float64sAreSorted(g.Eta) {
		return fmt.Errorf("time shift graph eta points are not sorted")
	}
	return nil
}

// At evaluates the graph at eta with linear interpolation between points.
func (g *TimeShiftGraph) At(eta float64) float64 {
	n := len(g.Eta)
	if n == 0 {
		return 0
	}
	if eta <= g.Eta[0] {
		return g.Shift[0]
	}
	if eta >= g.Eta[n-1] {
		return g.Shift[n-1]
	}
	i := sort.SearchFloat64s(g.Eta, eta)
	// g.Eta[i-1] < eta <= g.Eta[i]
	x0, x1 := g.Eta[i-1], g.Eta[i]
	y0, y1 := g.Shift[i-1], g.Shift[i]
	return y0 + (y1-y0)*(eta-x0)/(x1-x0)
}

// Collection maps reconstruction pass names to parameter bundles. This is the
// shape of the parametrization object fetched from the calibration store or
// loaded from a local file.
type Collection struct {
	Passes map[string]Params `yaml:"passes"`
}

// Retrieve looks up the parameters for a pass.
func (c *Collection) Retrieve(pass string) (Params, bool) {
	p, ok := c.Passes[pass]
	return p, ok
}

// PassNames returns the available pass names, sorted for stable logging.
func (c *Collection) PassNames() []string {
	names := make([]string, 0, len(c.Passes))
	for name := range c.Passes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultCollection returns a collection holding only the built-in
// parametrization under the given pass name.
func DefaultCollection(pass string) *Collection {
	return &Collection{Passes: map[string]Params{pass: DefaultParams()}}
}

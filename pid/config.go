package pid

import "math"

// EventTimeConfig groups the event-time estimation parameters.
type EventTimeConfig struct {
	MinMomentum     float64 // lower edge of the timing-sample momentum window (GeV/c)
	MaxMomentum     float64 // upper edge of the timing-sample momentum window (GeV/c)
	MaxTracksInSet  int     // cap on the combinatorial set size
	DiamondCm       float64 // luminous-region spread (cm) behind the fallback prior
	MaxBiasExcluded int     // max contributions removed per track during bias removal
	MaxEventTime    float64 // |event time| above this is rejected as unusable (ps); <=0 disables
}

// DefaultEventTimeConfig mirrors the production defaults.
func DefaultEventTimeConfig() EventTimeConfig {
	return EventTimeConfig{
		MinMomentum:     0.5,
		MaxMomentum:     2.0,
		MaxTracksInSet:  10,
		DiamondCm:       6.0,
		MaxBiasExcluded: 2,
		MaxEventTime:    100000.0,
	}
}

// ErrDiamond is the time spread (ps) of the diamond prior.
func (c EventTimeConfig) ErrDiamond() float64 {
	return c.DiamondCm * PsPerCm
}

// WeightDiamond is the inverse-variance weight of the diamond prior; the
// floor below which a combined weight is not trusted.
func (c EventTimeConfig) WeightDiamond() float64 {
	e := c.ErrDiamond()
	return 1 / (e * e)
}

// PipelineConfig is the fully resolved processing configuration. It is built
// once at startup; nothing re-resolves variants afterwards.
type PipelineConfig struct {
	// RunID identifies this processing run in logs and sink metadata.
	// Generated when empty.
	RunID string
	// Run2 takes event times from the collision record instead of the TOF
	// estimator.
	Run2 bool
	// RequireSel8 skips event-time estimation for collisions failing the
	// event selection.
	RequireSel8 bool

	EvTime EventTimeConfig

	// ComputeEvTimeWithTOF / ComputeEvTimeWithFT0 select the combination
	// mode: -1 autoset from the collision system, 0 off, 1 on.
	ComputeEvTimeWithTOF int
	ComputeEvTimeWithFT0 int

	// Species enables per-species packed nsigma output; SpeciesFull enables
	// the full (sigma, nsigma) output.
	Species     []Species
	SpeciesFull []Species

	// EnableBetaMass adds the beta and TOF-mass output rows.
	EnableBetaMass bool
	// ShiftExpMomForBetaMass applies the calibrated momentum-charge shift to
	// the momentum entering the TOF mass.
	ShiftExpMomForBetaMass bool
}

// DefaultPipelineConfig enables packed nsigma for all species and autosets
// the combination mode.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EvTime:               DefaultEventTimeConfig(),
		ComputeEvTimeWithTOF: -1,
		ComputeEvTimeWithFT0: -1,
		Species:              AllSpecies(),
	}
}

// DefaultTimeError (ps) is the error assigned when no event-time source is
// available at all (track without a collision, FT0-only mode without FT0).
const DefaultTimeError = 999.0

func isFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

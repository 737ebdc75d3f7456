package pid

import (
	"fmt"
	"math"

	"github.com/tofpid/tofpid/pid/calib"
)

// EvTimeFlags records which sources contributed to a combined event time.
type EvTimeFlags uint8

const (
	// FlagEvTimeTOF marks a contribution from the TOF track-sample estimate.
	FlagEvTimeTOF EvTimeFlags = 1 << iota
	// FlagEvTimeFT0 marks a contribution from the FT0 detector time.
	FlagEvTimeFT0
)

// Mode selects which event-time sources the combiner uses. Resolved once per
// dataset; never re-branched per collision.
type Mode int

const (
	// ModeTOFAndFT0 inverse-variance combines both sources per track.
	ModeTOFAndFT0 Mode = iota
	// ModeTOFOnly uses only the TOF track-sample estimate.
	ModeTOFOnly
	// ModeFT0Only uses only the FT0 detector time.
	ModeFT0Only
)

func (m Mode) String() string {
	switch m {
	case ModeTOFAndFT0:
		return "TOF+FT0"
	case ModeTOFOnly:
		return "TOF"
	case ModeFT0Only:
		return "FT0"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ResolveMode maps the collision system and the two mode switches (-1 auto,
// 0 off, 1 on) onto one combination mode. pp datasets default to FT0 only,
// PbPb to TOF only; any other system must be configured explicitly.
// Conflicting or empty selections are configuration errors.
func ResolveMode(sys calib.CollisionSystem, withTOF, withFT0 int) (Mode, error) {
	if withTOF == -1 || withFT0 == -1 {
		switch sys {
		case calib.CollSysPP:
			if withTOF == -1 {
				withTOF = 0
			}
			if withFT0 == -1 {
				withFT0 = 1
			}
		case calib.CollSysPbPb:
			if withTOF == -1 {
				withTOF = 1
			}
			if withFT0 == -1 {
				withFT0 = 0
			}
		default:
			return 0, fmt.Errorf("collision system %s not supported for event-time autoset", sys)
		}
	}
	switch {
	case withTOF == 1 && withFT0 == 1:
		return ModeTOFAndFT0, nil
	case withTOF == 1:
		return ModeTOFOnly, nil
	case withFT0 == 1:
		return ModeFT0Only, nil
	}
	return 0, fmt.Errorf("no event-time source enabled (TOF=%d, FT0=%d)", withTOF, withFT0)
}

// TimeEstimate is one event-time measurement with its uncertainty (ps).
type TimeEstimate struct {
	Value float64
	Err   float64
}

// CombinedTime is the final per-track event time. Flags identify the
// contributing sources; zero flags mean the diamond prior or a sentinel.
type CombinedTime struct {
	Value float64
	Err   float64
	Flags EvTimeFlags
}

// NoCollisionTime is the sentinel assigned to tracks without a collision.
func NoCollisionTime() CombinedTime {
	return CombinedTime{Value: 0, Err: DefaultTimeError, Flags: 0}
}

// Combiner blends the TOF track-sample estimate with the FT0 time according
// to the resolved mode.
type Combiner struct {
	mode          Mode
	maxEventTime  float64
	errDiamond    float64
	weightDiamond float64
}

// NewCombiner builds a combiner for the resolved mode.
func NewCombiner(mode Mode, cfg EventTimeConfig) Combiner {
	return Combiner{
		mode:          mode,
		maxEventTime:  cfg.MaxEventTime,
		errDiamond:    cfg.ErrDiamond(),
		weightDiamond: cfg.WeightDiamond(),
	}
}

// Mode returns the resolved combination mode.
func (c Combiner) Mode() Mode { return c.mode }

// tofUsable applies the validity window to a TOF-derived estimate.
func (c Combiner) tofUsable(tof TimeEstimate) bool {
	if tof.Err >= c.errDiamond {
		return false
	}
	return c.maxEventTime <= 0 || math.Abs(tof.Value) < c.maxEventTime
}

// Combine merges the per-track TOF estimate with the optional FT0 estimate.
// A nil ft0 means absent or invalid for this collision. With exactly one
// usable source the estimate passes through with its flag; with two they are
// inverse-variance combined; with none the diamond prior is returned with no
// flags set.
func (c Combiner) Combine(tof TimeEstimate, ft0 *TimeEstimate) CombinedTime {
	switch c.mode {
	case ModeTOFOnly:
		if c.tofUsable(tof) {
			return CombinedTime{Value: tof.Value, Err: tof.Err, Flags: FlagEvTimeTOF}
		}
		return CombinedTime{Value: 0, Err: c.errDiamond, Flags: 0}

	case ModeFT0Only:
		if ft0 != nil {
			return CombinedTime{Value: ft0.Value, Err: ft0.Err, Flags: FlagEvTimeFT0}
		}
		return NoCollisionTime()
	}

	// ModeTOFAndFT0
	var flags EvTimeFlags
	var sumW, sumWT float64
	if c.tofUsable(tof) {
		w := 1 / (tof.Err * tof.Err)
		sumW += w
		sumWT += tof.Value * w
		flags |= FlagEvTimeTOF
	}
	if ft0 != nil && ft0.Err > 0 {
		w := 1 / (ft0.Err * ft0.Err)
		sumW += w
		sumWT += ft0.Value * w
		flags |= FlagEvTimeFT0
	}
	if sumW < c.weightDiamond {
		return CombinedTime{Value: 0, Err: c.errDiamond, Flags: 0}
	}
	return CombinedTime{Value: sumWT / sumW, Err: math.Sqrt(1 / sumW), Flags: flags}
}

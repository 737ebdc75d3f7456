package pid

import (
	"math"

	"github.com/tofpid/tofpid/pid/calib"
)

// NsigmaSentinel marks a separation that could not be computed (no collision
// assignment, no TOF match). Well outside the quantized range.
const NsigmaSentinel = -999.0

// NsigmaResult is the separation statistic for one track under one species
// hypothesis.
type NsigmaResult struct {
	// ExpSigma is the expected time-of-flight resolution (ps).
	ExpSigma float64
	// Nsigma is the measured-to-expected separation in units of the combined
	// uncertainty.
	Nsigma float64
}

// Separation computes the Nsigma statistic: the measured time of flight minus
// the event time, the calibrated per-charge time shift and the expected time,
// normalized by the quadrature sum of the event-time uncertainty and the
// expected resolution.
func Separation(params *calib.Params, trk *Track, ev CombinedTime, sp Species) NsigmaResult {
	if !trk.HasTOF {
		return NsigmaResult{ExpSigma: NsigmaSentinel, Nsigma: NsigmaSentinel}
	}
	expTime := ExpectedTime(trk, sp)
	expSigma := ExpectedSigma(params, trk, sp)
	shift := params.TimeShift(trk.Eta, trk.Sign)
	denom := math.Sqrt(ev.Err*ev.Err + expSigma*expSigma)
	ns := (trk.TOFSignal - ev.Value - shift - expTime) / denom
	return NsigmaResult{ExpSigma: expSigma, Nsigma: ns}
}

// SentinelResult is the "not computable" output.
func SentinelResult() NsigmaResult {
	return NsigmaResult{ExpSigma: NsigmaSentinel, Nsigma: NsigmaSentinel}
}

// Packed nsigma quantization for the compact tables: bin width 0.1, int8
// payload. Overflow and underflow clamp to the edge bins; the sentinel (and
// anything below the representable range) lands in the underflow bin.
const (
	nsigmaBinWidth     = 0.1
	nsigmaPackedMax    = 127
	nsigmaPackedMin    = -127
	nsigmaUnderflowBin = -128
)

// PackNsigma quantizes an nsigma value for the compact table encoding.
func PackNsigma(ns float64) int8 {
	if math.IsNaN(ns) {
		return nsigmaUnderflowBin
	}
	bins := math.Round(ns / nsigmaBinWidth)
	if bins > nsigmaPackedMax {
		return nsigmaPackedMax
	}
	if bins < nsigmaPackedMin {
		return nsigmaUnderflowBin
	}
	return int8(bins)
}

// UnpackNsigma restores the bin-center value of a packed nsigma.
func UnpackNsigma(packed int8) float64 {
	if packed == nsigmaUnderflowBin {
		return NsigmaSentinel
	}
	return float64(packed) * nsigmaBinWidth
}

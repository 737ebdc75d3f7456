package pid

import (
	"math"

	"github.com/tofpid/tofpid/pid/calib"
)

// lookAlikeTolerance (ps) bounds the measured-time distance within which a
// neighbouring contribution is treated as a duplicate of the track itself
// (split tracks sharing one TOF hit) and removed together with it.
const lookAlikeTolerance = 1e-3

// EventTimeEstimate is the combined collision time from the TOF track sample.
// It keeps the per-track contributions and their running sums so that bias
// removal subtracts rather than re-scans. Immutable once returned.
type EventTimeEstimate struct {
	// Value and Err are the combined event time and its uncertainty (ps).
	Value float64
	Err   float64
	// Multiplicity is the number of contributing tracks.
	Multiplicity int
	// NoUsable is set when the estimate is the diamond prior: no qualifying
	// tracks, or a combined weight below the diamond floor.
	NoUsable bool

	errDiamond    float64
	weightDiamond float64

	// Per-contribution state, one entry per filter-passing track in
	// iteration order. Tracks that could not contribute hold zero weight.
	weights   []float64
	residuals []float64 // measured minus expected under the chosen hypothesis
	measured  []float64
	sumW      float64
	sumWT     float64
}

// hypoTimes caches the expected time and inverse-variance weight of one track
// under each event-time hypothesis.
type hypoTimes struct {
	residual [3]float64
	weight   [3]float64
}

// MakeEventTime runs the combinatorial event-time estimation over the tracks
// of one collision. Tracks failing the filter do not contribute. The input
// order fixes the floating-point summation order, so a fixed input yields
// bit-identical output.
func MakeEventTime(tracks []Track, filter TrackFilter, params *calib.Params, cfg EventTimeConfig) *EventTimeEstimate {
	est := &EventTimeEstimate{
		errDiamond:    cfg.ErrDiamond(),
		weightDiamond: cfg.WeightDiamond(),
	}

	var cand []*Track
	for i := range tracks {
		if filter(&tracks[i]) {
			cand = append(cand, &tracks[i])
		}
	}

	maxSet := cfg.MaxTracksInSet
	if maxSet < 1 {
		maxSet = 1
	}
	for start := 0; start < len(cand); start += maxSet {
		end := start + maxSet
		if end > len(cand) {
			end = len(cand)
		}
		est.addChunk(cand[start:end], params)
	}

	for _, w := range est.weights {
		if w > 0 {
			est.Multiplicity++
		}
	}
	if est.sumW < est.weightDiamond {
		est.Value = 0
		est.Err = est.errDiamond
		est.NoUsable = true
		return est
	}
	est.Value = est.sumWT / est.sumW
	est.Err = math.Sqrt(1 / est.sumW)
	return est
}

// addChunk finds the minimum-chi2 species assignment for one set of tracks
// and appends the resulting contributions. Exactly one contribution is
// appended per track — zero-weight for tracks that cannot contribute (bad
// signal, unusable sigma) — so the contribution list stays aligned with the
// filter-passing track sequence that RemoveBias walks.
func (e *EventTimeEstimate) addChunk(chunk []*Track, params *calib.Params) {
	n := len(chunk)
	if n == 0 {
		return
	}
	nHyp := len(EventTimeHypotheses)

	cache := make([]hypoTimes, n)
	for i, trk := range chunk {
		for h, sp := range EventTimeHypotheses {
			sigma := ExpectedSigma(params, trk, sp)
			if !isFinite(sigma) || sigma <= 0 {
				cache[i].weight[h] = 0
				continue
			}
			residual := trk.TOFSignal - ExpectedTime(trk, sp)
			if !isFinite(residual) {
				cache[i].weight[h] = 0
				continue
			}
			cache[i].residual[h] = residual
			cache[i].weight[h] = 1 / (sigma * sigma)
		}
	}

	// Exhaustive odometer over hypothesis assignments. The set size cap
	// bounds this at nHyp^MaxTracksInSet evaluations per chunk.
	combo := make([]int, n)
	best := make([]int, n)
	bestChi2 := math.Inf(1)
	for {
		var sumW, sumWT float64
		for i := range combo {
			h := combo[i]
			sumW += cache[i].weight[h]
			sumWT += cache[i].weight[h] * cache[i].residual[h]
		}
		if sumW > 0 {
			t0 := sumWT / sumW
			chi2 := 0.0
			for i := range combo {
				h := combo[i]
				d := cache[i].residual[h] - t0
				chi2 += cache[i].weight[h] * d * d
			}
			if chi2 < bestChi2 {
				bestChi2 = chi2
				copy(best, combo)
			}
		}
		// Increment the odometer; first hypothesis varies fastest so ties
		// resolve to the lightest assignment deterministically.
		j := 0
		for ; j < n; j++ {
			combo[j]++
			if combo[j] < nHyp {
				break
			}
			combo[j] = 0
		}
		if j == n {
			break
		}
	}

	for i, trk := range chunk {
		var w, r float64
		if !math.IsInf(bestChi2, 1) {
			h := best[i]
			w = cache[i].weight[h]
			r = cache[i].residual[h]
		}
		e.weights = append(e.weights, w)
		e.residuals = append(e.residuals, r)
		e.measured = append(e.measured, trk.TOFSignal)
		e.sumW += w
		e.sumWT += w * r
	}
}

// RemoveBias restates the event time for one track without that track's own
// contribution, so the track's measurement cannot validate its own PID
// hypothesis. cursor is the caller's running position in the contribution
// list and must advance with the same track iteration order used to build the
// estimate; the subtraction is O(1) amortized. Up to maxExcluded
// contributions are removed: the track's own plus immediately following
// look-alikes with the same measured time.
//
// Tracks failing the filter did not contribute; they get the estimate
// unchanged. If the remaining weight falls below the diamond floor the
// diamond prior is returned with usable=false.
func (e *EventTimeEstimate) RemoveBias(trk *Track, filter TrackFilter, cursor *int, maxExcluded int) (value, err float64, usable bool) {
	if e.NoUsable {
		return 0, e.errDiamond, false
	}
	if !filter(trk) {
		return e.Value, e.Err, true
	}
	i := *cursor
	if i >= len(e.weights) {
		// Contribution list exhausted: iteration order mismatch.
		return e.Value, e.Err, true
	}
	*cursor = i + 1

	sumW := e.sumW - e.weights[i]
	sumWT := e.sumWT - e.weights[i]*e.residuals[i]
	if maxExcluded < 1 {
		maxExcluded = 1
	}
	for j := i + 1; j < len(e.weights) && j-i < maxExcluded; j++ {
		// Inverted comparison so a non-finite measured time never matches.
		if !(math.Abs(e.measured[j]-e.measured[i]) <= lookAlikeTolerance) {
			break
		}
		sumW -= e.weights[j]
		sumWT -= e.weights[j] * e.residuals[j]
	}

	if sumW < e.weightDiamond {
		return 0, e.errDiamond, false
	}
	return sumWT / sumW, math.Sqrt(1 / sumW), true
}

package pid

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// QAAccumulator collects nsigma values per species for an end-of-run summary.
// Sentinels are ignored. Stands in for the histogram-based QA of the full
// framework: cheap moments and quantiles instead of binned spectra.
type QAAccumulator struct {
	values map[Species][]float64
}

// NewQAAccumulator creates an empty accumulator.
func NewQAAccumulator() *QAAccumulator {
	return &QAAccumulator{values: make(map[Species][]float64)}
}

// Add records one nsigma value for a species. Sentinel values are dropped.
func (q *QAAccumulator) Add(sp Species, nsigma float64) {
	if nsigma == NsigmaSentinel || !isFinite(nsigma) {
		return
	}
	q.values[sp] = append(q.values[sp], nsigma)
}

// SpeciesSummary is the distribution summary for one species.
type SpeciesSummary struct {
	Species Species
	N       int
	Mean    float64
	StdDev  float64
	P5      float64
	Median  float64
	P95     float64
}

// Summary computes per-species distribution summaries, ordered by species
// index. Species with no recorded values are omitted.
func (q *QAAccumulator) Summary() []SpeciesSummary {
	var out []SpeciesSummary
	for sp := Species(0); sp < NSpecies; sp++ {
		vals := q.values[sp]
		if len(vals) == 0 {
			continue
		}
		sorted := append([]float64(nil), vals...)
		sort.Float64s(sorted)
		out = append(out, SpeciesSummary{
			Species: sp,
			N:       len(sorted),
			Mean:    stat.Mean(sorted, nil),
			StdDev:  stat.StdDev(sorted, nil),
			P5:      stat.Quantile(0.05, stat.Empirical, sorted, nil),
			Median:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
			P95:     stat.Quantile(0.95, stat.Empirical, sorted, nil),
		})
	}
	return out
}

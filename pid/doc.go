// Package pid computes Time-Of-Flight particle-identification observables:
// per-collision event times and per-track, per-species Nsigma separations.
//
// # Reading Guide
//
// Start with these three files to understand the computation core:
//   - eventtime.go: the combinatorial event-time estimator and bias removal
//   - combine.go: blending the TOF estimate with the FT0 detector time
//   - nsigma.go: the separation statistic and its compact quantization
//
// # Architecture
//
// The pid package holds the algorithms and row types; supporting concerns
// live in sub-packages:
//   - pid/calib: calibration parameter store, pass resolution, run refresh
//   - pid/dataset: YAML dataset loading and synthetic generation
//   - pid/sink: CSV, sqlite and in-memory row sinks
//
// Pipeline (pipeline.go) is the single-threaded orchestrator: it refreshes
// calibration at run-number transitions, resolves the event-time combination
// mode once per dataset, and streams collisions through estimation,
// bias removal, combination and nsigma production in input order. For a fixed
// input ordering the output is bit-reproducible.
package pid

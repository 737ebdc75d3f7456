package cmd

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tofpid/tofpid/pid"
	"github.com/tofpid/tofpid/pid/calib"
	"github.com/tofpid/tofpid/pid/dataset"
	"github.com/tofpid/tofpid/pid/sink"
)

var (
	// CLI flags for calibration sources
	paramFile       string // Local YAML parameter collection, bypasses the store
	calibDir        string // Root directory of a file-backed calibration store
	paramPath       string // Store path of the parameter collection
	passName        string // Reconstruction pass, or "metadata" to resolve from the dataset
	passDefault     string // Fallback pass when the primary one is missing
	fatalPassMiss   bool   // Treat a missing primary pass as an error
	timeDependent   bool   // Re-fetch store objects on every run change
	timeShiftPos    string // Time-shift object path, positive tracks
	timeShiftNeg    string // Time-shift object path, negative tracks
	timeShiftPosMC  string // Time-shift object path, positive tracks, MC
	timeShiftNegMC  string // Time-shift object path, negative tracks, MC
	beamInfoPath    string // Store path of the beam configuration object
	collisionSystem string // Collision system override (pp, PbPb, XeXe, pPb); empty autodetects

	// CLI flags for event-time estimation
	evMinMomentum  float64 // Lower momentum edge of the timing sample (GeV/c)
	evMaxMomentum  float64 // Upper momentum edge of the timing sample (GeV/c)
	evMaxTracks    int     // Cap on the combinatorial set size
	evDiamondCm    float64 // Luminous-region spread (cm) behind the fallback prior
	evMaxExcluded  int     // Max contributions removed per track during bias removal
	evMaxEventTime float64 // |event time| above this is rejected (ps)
	evWithTOF      int     // Use the TOF estimate: -1 autoset, 0 off, 1 on
	evWithFT0      int     // Use the FT0 time: -1 autoset, 0 off, 1 on

	// CLI flags for output selection
	speciesTiny    string // Species with packed nsigma output, comma-separated
	speciesFull    string // Species with full (sigma, nsigma) output, comma-separated
	enableBetaMass bool   // Emit beta and TOF-mass rows
	shiftExpMom    bool   // Apply the momentum-charge shift to the TOF mass momentum
	requireSel8    bool   // Emit sentinels for collisions failing the event selection
	outDir         string // CSV output directory
	sqlitePath     string // Optional sqlite output database
	printQA        bool   // Print per-species nsigma summaries at the end
)

// processCmd runs the PID pipeline over one dataset file
var processCmd = &cobra.Command{
	Use:   "process <dataset.yaml>",
	Short: "Produce event-time and nsigma tables for a dataset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ds, err := dataset.Load(args[0])
		if err != nil {
			logrus.Fatalf("Loading dataset: %v", err)
		}
		logrus.Infof("Loaded dataset: run %d, %d collisions, %d unassigned tracks",
			ds.RunNumber, len(ds.Collisions), len(ds.Unassigned))

		collSys, err := calib.ParseCollisionSystem(collisionSystem)
		if err != nil {
			logrus.Fatalf("%v", err)
		}

		cfg := calib.Config{
			ParamFile:           paramFile,
			ParametrizationPath: paramPath,
			Pass:                passName,
			PassDefault:         passDefault,
			FatalOnPassMissing:  fatalPassMiss,
			TimeDependent:       timeDependent,
			TimeShiftPathPos:    timeShiftPos,
			TimeShiftPathNeg:    timeShiftNeg,
			TimeShiftPathPosMC:  timeShiftPosMC,
			TimeShiftPathNegMC:  timeShiftNegMC,
			BeamInfoPath:        beamInfoPath,
			CollisionSystem:     collSys,
		}
		mgr, err := calib.NewManager(cfg, buildStore(cfg), ds.Meta)
		if err != nil {
			logrus.Fatalf("Setting up calibration: %v", err)
		}

		pcfg := pid.DefaultPipelineConfig()
		pcfg.Run2 = !ds.Meta.Run3
		pcfg.RequireSel8 = requireSel8
		pcfg.EvTime = pid.EventTimeConfig{
			MinMomentum:     evMinMomentum,
			MaxMomentum:     evMaxMomentum,
			MaxTracksInSet:  evMaxTracks,
			DiamondCm:       evDiamondCm,
			MaxBiasExcluded: evMaxExcluded,
			MaxEventTime:    evMaxEventTime,
		}
		pcfg.ComputeEvTimeWithTOF = evWithTOF
		pcfg.ComputeEvTimeWithFT0 = evWithFT0
		pcfg.EnableBetaMass = enableBetaMass
		pcfg.ShiftExpMomForBetaMass = shiftExpMom
		if pcfg.Species, err = pid.ParseSpeciesList(speciesTiny); err != nil {
			logrus.Fatalf("--species: %v", err)
		}
		if pcfg.SpeciesFull, err = pid.ParseSpeciesList(speciesFull); err != nil {
			logrus.Fatalf("--species-full: %v", err)
		}
		if len(pcfg.Species) == 0 && len(pcfg.SpeciesFull) == 0 {
			pcfg.Species = pid.AllSpecies()
		}

		pcfg.RunID = uuid.NewString()
		sinks, closeSinks := buildSinks(pcfg.RunID, ds.RunNumber)
		p := pid.NewPipeline(pcfg, mgr, sinks...)
		logrus.Infof("Processing run %s", p.RunID())

		if err := p.BeginRun(ds.RunNumber, ds.Timestamp); err != nil {
			logrus.Fatalf("Starting run %d: %v", ds.RunNumber, err)
		}
		for i := range ds.Collisions {
			if err := p.ProcessCollision(&ds.Collisions[i]); err != nil {
				logrus.Fatalf("Processing collision %d: %v", ds.Collisions[i].ID, err)
			}
		}
		if err := p.ProcessUnassigned(ds.Unassigned); err != nil {
			logrus.Fatalf("Processing unassigned tracks: %v", err)
		}
		closeSinks()

		if printQA {
			for _, s := range p.QA().Summary() {
				logrus.Infof("nsigma %s: n=%d mean=%.3f stddev=%.3f p5=%.3f median=%.3f p95=%.3f",
					s.Species, s.N, s.Mean, s.StdDev, s.P5, s.Median, s.P95)
			}
		}
		logrus.Info("Processing complete.")
	},
}

// buildStore picks the calibration store. Without a --calib-dir an in-memory
// store seeded with the built-in parametrization stands in, so a dataset can
// be processed with no external calibration at all.
func buildStore(cfg calib.Config) calib.Store {
	if calibDir != "" {
		fs, err := calib.NewFileStore(calibDir)
		if err != nil {
			logrus.Fatalf("Opening calibration store: %v", err)
		}
		return fs
	}
	mem := calib.NewMemStore()
	if cfg.ParamFile == "" {
		// Seeded under the fallback pass so any requested pass resolves to it.
		data, err := yaml.Marshal(calib.DefaultCollection(cfg.PassDefault))
		if err != nil {
			logrus.Fatalf("Encoding built-in parametrization: %v", err)
		}
		mem.Put(cfg.ParametrizationPath, data)
		logrus.Warnf("No calibration source given, using the built-in parametrization as pass %q", cfg.PassDefault)
	}
	if cfg.CollisionSystem == calib.CollSysUnset {
		// Autodetection needs a beam object; without a real store a pp
		// configuration stands in.
		data, err := yaml.Marshal(calib.BeamInfo{ZA: 1, AA: 1, ZB: 1, AB: 1})
		if err != nil {
			logrus.Fatalf("Encoding built-in beam info: %v", err)
		}
		mem.Put(cfg.BeamInfoPath, data)
		logrus.Warnf("No calibration source given, beam info defaults to pp; pass --collision-system to override")
	}
	return mem
}

// buildSinks wires the configured outputs and returns a close func.
func buildSinks(runID string, runNumber int64) ([]pid.Sink, func()) {
	var sinks []pid.Sink
	csvSink, err := sink.NewCSVSink(outDir)
	if err != nil {
		logrus.Fatalf("Opening CSV output: %v", err)
	}
	sinks = append(sinks, csvSink)
	if sqlitePath != "" {
		dbSink, err := sink.NewSQLiteSink(sqlitePath, runID, runNumber)
		if err != nil {
			logrus.Fatalf("Opening sqlite output: %v", err)
		}
		sinks = append(sinks, dbSink)
	}
	return sinks, func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logrus.Fatalf("Closing output: %v", err)
			}
		}
	}
}

// init sets up CLI flags and attaches the subcommand
func init() {
	processCmd.Flags().StringVar(&paramFile, "param-file", "", "Local YAML parameter collection (bypasses the store)")
	processCmd.Flags().StringVar(&calibDir, "calib-dir", "", "Root directory of a file-backed calibration store")
	processCmd.Flags().StringVar(&paramPath, "param-path", "Analysis/PID/TOF/TimeZeroOnTheFly", "Store path of the parameter collection")
	processCmd.Flags().StringVar(&passName, "pass", calib.PassFromMetadata, "Reconstruction pass (\"metadata\" resolves it from the dataset)")
	processCmd.Flags().StringVar(&passDefault, "pass-default", "unanchored", "Fallback pass when the primary one is missing")
	processCmd.Flags().BoolVar(&fatalPassMiss, "fatal-on-pass-missing", false, "Treat a missing primary pass as an error")
	processCmd.Flags().BoolVar(&timeDependent, "time-dependent", false, "Re-fetch store objects on every run change")
	processCmd.Flags().StringVar(&timeShiftPos, "timeshift-pos", "", "Time-shift object path for positive tracks (.yaml suffix reads a local file)")
	processCmd.Flags().StringVar(&timeShiftNeg, "timeshift-neg", "", "Time-shift object path for negative tracks")
	processCmd.Flags().StringVar(&timeShiftPosMC, "timeshift-pos-mc", "", "Time-shift object path for positive tracks, MC datasets")
	processCmd.Flags().StringVar(&timeShiftNegMC, "timeshift-neg-mc", "", "Time-shift object path for negative tracks, MC datasets")
	processCmd.Flags().StringVar(&beamInfoPath, "beam-info-path", "GLO/Config/GRPLHCIF", "Store path of the beam configuration object")
	processCmd.Flags().StringVar(&collisionSystem, "collision-system", "", "Collision system override (pp, PbPb, XeXe, pPb); empty autodetects from beam info")

	processCmd.Flags().Float64Var(&evMinMomentum, "evtime-min-p", 0.5, "Lower momentum edge of the timing sample (GeV/c)")
	processCmd.Flags().Float64Var(&evMaxMomentum, "evtime-max-p", 2.0, "Upper momentum edge of the timing sample (GeV/c)")
	processCmd.Flags().IntVar(&evMaxTracks, "evtime-max-tracks", 10, "Cap on the combinatorial set size")
	processCmd.Flags().Float64Var(&evDiamondCm, "diamond", 6.0, "Luminous-region spread (cm) behind the fallback prior")
	processCmd.Flags().IntVar(&evMaxExcluded, "evtime-max-excluded", 2, "Max contributions removed per track during bias removal")
	processCmd.Flags().Float64Var(&evMaxEventTime, "evtime-max", 100000, "Reject |event time| above this (ps)")
	processCmd.Flags().IntVar(&evWithTOF, "evtime-tof", -1, "Use the TOF event-time estimate (-1 autoset, 0 off, 1 on)")
	processCmd.Flags().IntVar(&evWithFT0, "evtime-ft0", -1, "Use the FT0 time (-1 autoset, 0 off, 1 on)")

	processCmd.Flags().StringVar(&speciesTiny, "species", "", "Species with packed nsigma output, comma-separated (default all)")
	processCmd.Flags().StringVar(&speciesFull, "species-full", "", "Species with full (sigma, nsigma) output, comma-separated")
	processCmd.Flags().BoolVar(&enableBetaMass, "beta", false, "Emit beta and TOF-mass rows")
	processCmd.Flags().BoolVar(&shiftExpMom, "shift-exp-mom", false, "Apply the momentum-charge shift to the TOF mass momentum")
	processCmd.Flags().BoolVar(&requireSel8, "require-sel8", false, "Emit sentinels for collisions failing the event selection")
	processCmd.Flags().StringVar(&outDir, "out", "out", "CSV output directory")
	processCmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Optional sqlite output database path")
	processCmd.Flags().BoolVar(&printQA, "qa", false, "Print per-species nsigma summaries at the end")

	rootCmd.AddCommand(processCmd)
}

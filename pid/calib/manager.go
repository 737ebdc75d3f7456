package calib

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// PassFromMetadata is the sentinel pass name that requests resolution of the
// reconstruction pass from the dataset metadata.
const PassFromMetadata = "metadata"

// Metadata carries the per-dataset information the manager needs to resolve
// the reconstruction pass and the time-shift object paths.
type Metadata struct {
	MC         bool
	Run3       bool
	RecoPass   string
	AnchorPass string
}

// Config selects where calibration parameters come from and how pass
// fallback is handled.
type Config struct {
	// ParamFile, when non-empty, is a local YAML parameter collection loaded
	// once at startup and never refreshed.
	ParamFile string
	// ParametrizationPath is the store path of the parameter collection.
	ParametrizationPath string
	// Pass is the reconstruction pass to retrieve, or PassFromMetadata.
	Pass string
	// PassDefault is fetched when Pass is absent from the collection.
	PassDefault string
	// FatalOnPassMissing makes a missing primary pass an error instead of a
	// warning + fallback to PassDefault.
	FatalOnPassMissing bool
	// TimeDependent re-fetches store-sourced objects on every run change.
	// When false, store objects are fetched once on the first refresh.
	TimeDependent bool

	// Time-shift object paths per charge sign, with MC variants. A path
	// ending in ".yaml" is read from the local filesystem once; anything else
	// is fetched from the store. Empty means no shift for that sign.
	TimeShiftPathPos   string
	TimeShiftPathNeg   string
	TimeShiftPathPosMC string
	TimeShiftPathNegMC string

	// BeamInfoPath is the store path of the beam configuration object,
	// consulted only when CollisionSystem is CollSysUnset.
	BeamInfoPath string
	// CollisionSystem overrides beam-info autodetection when not CollSysUnset.
	CollisionSystem CollisionSystem
}

// Manager owns the current calibration parameters. It is the only mutable
// state shared across collisions: Refresh mutates it at run-number
// transitions, everything else reads it. Not safe for concurrent use.
type Manager struct {
	cfg   Config
	store Store
	meta  Metadata

	pass       string
	params     Params
	fileParams *Collection
	collSys    CollisionSystem
	lastRun    int64
	timestamp  int64
}

// NewManager resolves the reconstruction pass and, if configured, loads the
// file-based parameter collection. Store-sourced objects are fetched on the
// first Refresh.
func NewManager(cfg Config, store Store, meta Metadata) (*Manager, error) {
	m := &Manager{
		cfg:     cfg,
		store:   store,
		meta:    meta,
		params:  DefaultParams(),
		collSys: cfg.CollisionSystem,
		lastRun: -1,
	}

	m.pass = cfg.Pass
	if m.pass == PassFromMetadata {
		if meta.MC {
			m.pass = meta.AnchorPass
		} else {
			m.pass = meta.RecoPass
		}
		logrus.Infof("resolved reconstruction pass %q from dataset metadata", m.pass)
	}

	if cfg.ParamFile != "" {
		coll, err := loadCollectionFile(cfg.ParamFile)
		if err != nil {
			return nil, err
		}
		m.fileParams = coll
		if err := m.applyCollection(coll, "file "+cfg.ParamFile); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Params returns the active calibration parameters. The returned pointer is
// read-only between Refresh calls.
func (m *Manager) Params() *Params {
	return &m.params
}

// Pass returns the resolved reconstruction pass name.
func (m *Manager) Pass() string {
	return m.pass
}

// CollisionSystem returns the resolved collision system. CollSysUnset until
// the first Refresh when autodetection is configured.
func (m *Manager) CollisionSystem() CollisionSystem {
	return m.collSys
}

// Refresh updates the calibration state for a new run number. It is
// idempotent while the run number is unchanged; the run-number stream is
// assumed monotonic and is not verified.
func (m *Manager) Refresh(runNumber int64, timestamp int64) error {
	if runNumber == m.lastRun {
		return nil
	}
	logrus.Infof("updating calibration from run %d to %d (timestamp %d)", m.lastRun, runNumber, timestamp)
	first := m.lastRun < 0
	m.lastRun = runNumber
	m.timestamp = timestamp

	if m.collSys == CollSysUnset {
		if err := m.resolveCollisionSystem(); err != nil {
			return err
		}
	}

	if m.fileParams == nil && (first || m.cfg.TimeDependent) {
		if err := m.fetchCollection(); err != nil {
			return err
		}
	}

	if err := m.refreshTimeShift(m.timeShiftPath(true), true, first); err != nil {
		return err
	}
	return m.refreshTimeShift(m.timeShiftPath(false), false, first)
}

func (m *Manager) timeShiftPath(positive bool) string {
	if m.meta.MC {
		if positive {
			return m.cfg.TimeShiftPathPosMC
		}
		return m.cfg.TimeShiftPathNegMC
	}
	if positive {
		return m.cfg.TimeShiftPathPos
	}
	return m.cfg.TimeShiftPathNeg
}

func (m *Manager) fetchMeta() map[string]string {
	meta := map[string]string{}
	if m.pass != "" {
		meta["RecoPassName"] = m.pass
	}
	return meta
}

func (m *Manager) fetchCollection() error {
	data, found, err := m.store.Fetch(m.cfg.ParametrizationPath, m.timestamp, m.fetchMeta())
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no parametrization object at %q in the calibration store", m.cfg.ParametrizationPath)
	}
	var coll Collection
	if err := yaml.Unmarshal(data, &coll); err != nil {
		return fmt.Errorf("parsing parametrization object %q: %w", m.cfg.ParametrizationPath, err)
	}
	return m.applyCollection(&coll, "store path "+m.cfg.ParametrizationPath)
}

// applyCollection installs the parameters for the resolved pass, falling back
// to the default pass unless configured fatal. Installed time-shift graphs
// survive: the collection carries only resolution and momentum-shift curves.
func (m *Manager) applyCollection(coll *Collection, source string) error {
	p, ok := coll.Retrieve(m.pass)
	if !ok {
		if m.cfg.FatalOnPassMissing {
			return fmt.Errorf("pass %q not available in the collection from %s (have %v)", m.pass, source, coll.PassNames())
		}
		logrus.Warnf("pass %q not available in the collection from %s, fetching %q", m.pass, source, m.cfg.PassDefault)
		p, ok = coll.Retrieve(m.cfg.PassDefault)
		if !ok {
			return fmt.Errorf("default pass %q not available in the collection from %s (have %v)", m.cfg.PassDefault, source, coll.PassNames())
		}
	}
	shiftPos, shiftNeg := m.params.shiftPos, m.params.shiftNeg
	m.params = p
	m.params.shiftPos, m.params.shiftNeg = shiftPos, shiftNeg
	if m.params.BetaReso == 0 {
		m.params.BetaReso = DefaultParams().BetaReso
	}
	logrus.Infof("installed resolution parametrization %v from %s", m.params.Resolution, source)
	return nil
}

// refreshTimeShift loads the time-shift graph for one charge sign. File paths
// are loaded once on the first refresh; store paths are re-fetched on every
// run change when the response is time dependent. A missing store object is
// tolerated: the sign keeps its previous (or zero) shift.
func (m *Manager) refreshTimeShift(path string, positive bool, first bool) error {
	if path == "" {
		return nil
	}
	fromFile := strings.HasSuffix(path, ".yaml")
	if fromFile {
		if !first {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading time shift file %q: %w", path, err)
		}
		return m.installTimeShift(data, path, positive)
	}
	if !first && !m.cfg.TimeDependent {
		return nil
	}
	data, found, err := m.store.Fetch(path, m.timestamp, m.fetchMeta())
	if err != nil {
		return err
	}
	if !found {
		logrus.Warnf("no time shift object at %q for %s tracks, keeping previous", path, signName(positive))
		return nil
	}
	return m.installTimeShift(data, path, positive)
}

func (m *Manager) installTimeShift(data []byte, path string, positive bool) error {
	var g TimeShiftGraph
	if err := yaml.Unmarshal(data, &g); err != nil {
		return fmt.Errorf("parsing time shift object %q: %w", path, err)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("time shift object %q: %w", path, err)
	}
	m.params.SetTimeShift(&g, positive)
	logrus.Infof("installed time shift for %s tracks from %q (shift at eta=0: %g ps)",
		signName(positive), path, g.At(0))
	return nil
}

func (m *Manager) resolveCollisionSystem() error {
	data, found, err := m.store.Fetch(m.cfg.BeamInfoPath, m.timestamp, nil)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("collision system is set to autodetect but no beam info object at %q", m.cfg.BeamInfoPath)
	}
	var beams BeamInfo
	if err := yaml.Unmarshal(data, &beams); err != nil {
		return fmt.Errorf("parsing beam info object %q: %w", m.cfg.BeamInfoPath, err)
	}
	m.collSys = ClassifyCollisionSystem(beams)
	logrus.Infof("resolved collision system %s from beam info (Z=%d/%d)", m.collSys, beams.ZA, beams.ZB)
	return nil
}

func loadCollectionFile(path string) (*Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}
	var coll Collection
	if err := yaml.Unmarshal(data, &coll); err != nil {
		return nil, fmt.Errorf("parsing parameter file %q: %w", path, err)
	}
	return &coll, nil
}

func signName(positive bool) string {
	if positive {
		return "positive"
	}
	return "negative"
}

package pid

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tofpid/tofpid/pid/calib"
)

// Pipeline runs the staged PID computation: per-collision event-time
// estimation, per-track bias removal, source combination, and per-species
// nsigma production. Single-threaded; collisions are consumed one fully
// materialized group at a time in input order.
type Pipeline struct {
	cfg   PipelineConfig
	mgr   *calib.Manager
	sinks []Sink
	qa    *QAAccumulator

	runID    string
	combiner Combiner
	modeSet  bool
	filter   TrackFilter

	trackIndex int64
}

// NewPipeline wires a pipeline to its calibration manager and sinks.
func NewPipeline(cfg PipelineConfig, mgr *calib.Manager, sinks ...Sink) *Pipeline {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Pipeline{
		cfg:    cfg,
		mgr:    mgr,
		sinks:  sinks,
		qa:     NewQAAccumulator(),
		runID:  runID,
		filter: GoodForEventTime(cfg.EvTime.MinMomentum, cfg.EvTime.MaxMomentum),
	}
}

// RunID identifies this processing run in logs and sink metadata.
func (p *Pipeline) RunID() string { return p.runID }

// QA returns the accumulated nsigma summary state.
func (p *Pipeline) QA() *QAAccumulator { return p.qa }

// BeginRun refreshes the calibration for a run number and, on the first call,
// resolves the combination mode from the collision system. Fatal
// configuration errors (missing pass, unsupported collision system) surface
// here.
func (p *Pipeline) BeginRun(runNumber int64, timestamp int64) error {
	if err := p.mgr.Refresh(runNumber, timestamp); err != nil {
		return err
	}
	if p.modeSet || p.cfg.Run2 {
		return nil
	}
	mode, err := ResolveMode(p.mgr.CollisionSystem(), p.cfg.ComputeEvTimeWithTOF, p.cfg.ComputeEvTimeWithFT0)
	if err != nil {
		return err
	}
	p.combiner = NewCombiner(mode, p.cfg.EvTime)
	p.modeSet = true
	logrus.Infof("run %s: collision system %s, event-time mode %s", p.runID, p.mgr.CollisionSystem(), mode)
	return nil
}

// ProcessCollision produces all rows for one collision's track sample.
func (p *Pipeline) ProcessCollision(col *Collision) error {
	if p.cfg.Run2 {
		return p.processRun2(col)
	}
	if !p.modeSet {
		return fmt.Errorf("ProcessCollision before BeginRun")
	}
	if p.cfg.RequireSel8 && !col.Sel8 {
		logrus.Debugf("collision %d fails event selection, emitting sentinels", col.ID)
		for i := range col.Tracks {
			if err := p.emitTrack(&col.Tracks[i], col.ID, NoCollisionTime(), -1); err != nil {
				return err
			}
		}
		return nil
	}

	var ft0 *TimeEstimate
	if col.FT0 != nil && col.FT0.Valid {
		// Collision-level FT0 time, already in ps.
		ft0 = &TimeEstimate{Value: col.FT0.Value, Err: col.FT0.Err}
	}

	if p.combiner.Mode() == ModeFT0Only {
		ct := p.combiner.Combine(TimeEstimate{}, ft0)
		for i := range col.Tracks {
			if err := p.emitTrack(&col.Tracks[i], col.ID, ct, -1); err != nil {
				return err
			}
		}
		return nil
	}

	est := MakeEventTime(col.Tracks, p.filter, p.mgr.Params(), p.cfg.EvTime)
	cursor := 0
	for i := range col.Tracks {
		trk := &col.Tracks[i]
		value, errv, usable := est.RemoveBias(trk, p.filter, &cursor, p.cfg.EvTime.MaxBiasExcluded)
		tof := TimeEstimate{Value: value, Err: errv}
		if !usable {
			tof.Err = p.cfg.EvTime.ErrDiamond()
			tof.Value = 0
		}
		ct := p.combiner.Combine(tof, ft0)
		if err := p.emitTrack(trk, col.ID, ct, est.Multiplicity); err != nil {
			return err
		}
	}
	return nil
}

// processRun2 takes the event time directly from the collision record.
func (p *Pipeline) processRun2(col *Collision) error {
	ct := CombinedTime{
		Value: col.Time * 1000, // ns -> ps
		Err:   col.TimeRes * 1000,
		Flags: FlagEvTimeTOF,
	}
	for i := range col.Tracks {
		if err := p.emitTrack(&col.Tracks[i], col.ID, ct, -1); err != nil {
			return err
		}
	}
	return nil
}

// ProcessUnassigned emits sentinel rows for tracks without a collision.
func (p *Pipeline) ProcessUnassigned(tracks []Track) error {
	for i := range tracks {
		trk := &tracks[i]
		idx := p.nextIndex()
		if err := p.writeEventTime(EventTimeRow{
			TrackIndex:   idx,
			CollisionID:  -1,
			Time:         0,
			TimeErr:      DefaultTimeError,
			Flags:        0,
			Multiplicity: -1,
		}); err != nil {
			return err
		}
		if err := p.emitNsigma(trk, idx, CombinedTime{}, true); err != nil {
			return err
		}
		if p.cfg.EnableBetaMass {
			// Keep the beta table aligned with the track stream.
			if err := p.writeBeta(BetaRow{
				TrackIndex: idx,
				Beta:       NsigmaSentinel,
				BetaErr:    BetaExpectedSigma(p.mgr.Params()),
				Mass:       NsigmaSentinel,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) nextIndex() int64 {
	idx := p.trackIndex
	p.trackIndex++
	return idx
}

func (p *Pipeline) emitTrack(trk *Track, collisionID int64, ct CombinedTime, multiplicity int) error {
	idx := p.nextIndex()
	if err := p.writeEventTime(EventTimeRow{
		TrackIndex:   idx,
		CollisionID:  collisionID,
		Time:         ct.Value,
		TimeErr:      ct.Err,
		Flags:        ct.Flags,
		Multiplicity: multiplicity,
	}); err != nil {
		return err
	}
	if err := p.emitNsigma(trk, idx, ct, false); err != nil {
		return err
	}
	if p.cfg.EnableBetaMass {
		if err := p.emitBeta(trk, idx, ct); err != nil {
			return err
		}
	}
	return nil
}

// emitNsigma writes one row per enabled species, driven by the configured
// species lists rather than per-species branches.
func (p *Pipeline) emitNsigma(trk *Track, idx int64, ct CombinedTime, sentinel bool) error {
	params := p.mgr.Params()
	for _, sp := range p.cfg.Species {
		res := SentinelResult()
		if !sentinel {
			res = Separation(params, trk, ct, sp)
		}
		p.qa.Add(sp, res.Nsigma)
		if err := p.writeNsigma(NsigmaRow{
			TrackIndex: idx,
			Species:    sp,
			Nsigma:     res.Nsigma,
			Packed:     PackNsigma(res.Nsigma),
		}); err != nil {
			return err
		}
	}
	for _, sp := range p.cfg.SpeciesFull {
		res := SentinelResult()
		if !sentinel {
			res = Separation(params, trk, ct, sp)
		}
		if err := p.writeNsigma(NsigmaRow{
			TrackIndex: idx,
			Species:    sp,
			ExpSigma:   res.ExpSigma,
			Nsigma:     res.Nsigma,
			Packed:     PackNsigma(res.Nsigma),
			Full:       true,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) emitBeta(trk *Track, idx int64, ct CombinedTime) error {
	params := p.mgr.Params()
	beta := NsigmaSentinel
	mass := NsigmaSentinel
	if trk.HasTOF {
		beta = Beta(trk, ct.Value)
		mom := trk.ExpMom()
		if p.cfg.ShiftExpMomForBetaMass {
			mom = CorrectedExpMom(params, trk)
		}
		mass = TOFMass(mom, beta)
	}
	return p.writeBeta(BetaRow{
		TrackIndex: idx,
		Beta:       beta,
		BetaErr:    BetaExpectedSigma(params),
		Mass:       mass,
	})
}

func (p *Pipeline) writeEventTime(row EventTimeRow) error {
	for _, s := range p.sinks {
		if err := s.WriteEventTime(row); err != nil {
			return fmt.Errorf("writing event-time row: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) writeNsigma(row NsigmaRow) error {
	for _, s := range p.sinks {
		if err := s.WriteNsigma(row); err != nil {
			return fmt.Errorf("writing nsigma row: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) writeBeta(row BetaRow) error {
	for _, s := range p.sinks {
		if err := s.WriteBeta(row); err != nil {
			return fmt.Errorf("writing beta row: %w", err)
		}
	}
	return nil
}

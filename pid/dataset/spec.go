// Package dataset loads collision datasets from YAML spec files and
// generates deterministic synthetic datasets for tests and benchmarks.
package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tofpid/tofpid/pid"
	"github.com/tofpid/tofpid/pid/calib"
)

// Spec is the on-disk dataset shape.
type Spec struct {
	RunNumber  int64           `yaml:"run_number"`
	Timestamp  int64           `yaml:"timestamp"`
	Meta       MetaSpec        `yaml:"metadata"`
	Collisions []CollisionSpec `yaml:"collisions"`
	Unassigned []TrackSpec     `yaml:"unassigned_tracks,omitempty"`
}

// MetaSpec is the per-dataset metadata block. Run defaults to "run3".
type MetaSpec struct {
	MC         bool   `yaml:"mc"`
	Run        string `yaml:"run"` // "run2" or "run3"
	RecoPass   string `yaml:"reco_pass"`
	AnchorPass string `yaml:"anchor_pass"`
}

// CollisionSpec is one collision record.
type CollisionSpec struct {
	ID      int64       `yaml:"id"`
	Sel8    bool        `yaml:"sel8"`
	Time    float64     `yaml:"time,omitempty"`     // ns, run2 variant
	TimeRes float64     `yaml:"time_res,omitempty"` // ns, run2 variant
	FT0     *FT0Spec    `yaml:"ft0,omitempty"`
	Tracks  []TrackSpec `yaml:"tracks"`
}

// FT0Spec is the FT0 time for one collision, in ps.
type FT0Spec struct {
	Time  float64 `yaml:"time"`
	Res   float64 `yaml:"res"`
	Valid bool    `yaml:"valid"`
}

// TrackSpec is one track record.
type TrackSpec struct {
	P         float64 `yaml:"p"`
	Eta       float64 `yaml:"eta"`
	Sign      int8    `yaml:"sign"`
	Length    float64 `yaml:"length"`
	Type      string  `yaml:"type,omitempty"` // "global" (default), "global-iu", "other"
	HasTOF    bool    `yaml:"has_tof"`
	HasITS    bool    `yaml:"has_its"`
	HasTPC    bool    `yaml:"has_tpc"`
	TOFSignal float64 `yaml:"tof_signal,omitempty"`
	TOFExpMom float64 `yaml:"tof_exp_mom,omitempty"`
}

// Dataset is the decoded, validated input consumed by the pipeline.
type Dataset struct {
	RunNumber  int64
	Timestamp  int64
	Meta       calib.Metadata
	Collisions []pid.Collision
	Unassigned []pid.Track
}

// Load reads and validates a dataset spec file.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing dataset %q: %w", path, err)
	}
	return spec.ToDataset()
}

// ToDataset validates the spec and converts it to pipeline input types.
func (s *Spec) ToDataset() (*Dataset, error) {
	if s.RunNumber <= 0 {
		return nil, fmt.Errorf("dataset run_number must be positive, got %d", s.RunNumber)
	}
	run3 := true
	switch s.Meta.Run {
	case "", "run3":
	case "run2":
		run3 = false
	default:
		return nil, fmt.Errorf("unknown run kind %q (want run2 or run3)", s.Meta.Run)
	}
	ds := &Dataset{
		RunNumber: s.RunNumber,
		Timestamp: s.Timestamp,
		Meta: calib.Metadata{
			MC:         s.Meta.MC,
			Run3:       run3,
			RecoPass:   s.Meta.RecoPass,
			AnchorPass: s.Meta.AnchorPass,
		},
	}
	for ci, cs := range s.Collisions {
		col := pid.Collision{
			ID:      cs.ID,
			Sel8:    cs.Sel8,
			Time:    cs.Time,
			TimeRes: cs.TimeRes,
		}
		if cs.FT0 != nil {
			col.FT0 = &pid.FT0Time{Value: cs.FT0.Time, Err: cs.FT0.Res, Valid: cs.FT0.Valid}
		}
		for ti, ts := range cs.Tracks {
			trk, err := ts.toTrack()
			if err != nil {
				return nil, fmt.Errorf("collision %d track %d: %w", ci, ti, err)
			}
			col.Tracks = append(col.Tracks, trk)
		}
		ds.Collisions = append(ds.Collisions, col)
	}
	for ti, ts := range s.Unassigned {
		trk, err := ts.toTrack()
		if err != nil {
			return nil, fmt.Errorf("unassigned track %d: %w", ti, err)
		}
		ds.Unassigned = append(ds.Unassigned, trk)
	}
	return ds, nil
}

func (t *TrackSpec) toTrack() (pid.Track, error) {
	var kind pid.TrackType
	switch t.Type {
	case "", "global":
		kind = pid.TrackGlobal
	case "global-iu":
		kind = pid.TrackGlobalIU
	case "other":
		kind = pid.TrackOther
	default:
		return pid.Track{}, fmt.Errorf("unknown track type %q", t.Type)
	}
	if t.Sign != 1 && t.Sign != -1 {
		return pid.Track{}, fmt.Errorf("sign must be +1 or -1, got %d", t.Sign)
	}
	if t.HasTOF && t.Length <= 0 {
		return pid.Track{}, fmt.Errorf("TOF-matched track needs a positive length, got %g", t.Length)
	}
	return pid.Track{
		P:         t.P,
		Eta:       t.Eta,
		Sign:      t.Sign,
		Length:    t.Length,
		Type:      kind,
		HasTOF:    t.HasTOF,
		HasITS:    t.HasITS,
		HasTPC:    t.HasTPC,
		TOFSignal: t.TOFSignal,
		TOFExpMom: t.TOFExpMom,
	}, nil
}

// Save writes the spec to a YAML file.
func (s *Spec) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding dataset: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}

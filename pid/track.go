package pid

// TrackType is the reconstruction category of a track. Only globally
// reconstructed tracks (at the vertex or at the innermost update) qualify for
// event-time estimation.
type TrackType uint8

const (
	// TrackGlobal is a track propagated to the primary vertex.
	TrackGlobal TrackType = iota
	// TrackGlobalIU is a track at its innermost update.
	TrackGlobalIU
	// TrackOther covers every other reconstruction category.
	TrackOther
)

// Track is one reconstructed track with its TOF match. Times are in ps,
// momenta in GeV/c, lengths in cm.
type Track struct {
	P      float64 // momentum (rigidity) at the vertex
	Eta    float64
	Sign   int8 // charge sign, +1 or -1
	Length float64
	Type   TrackType

	HasTOF bool
	HasITS bool
	HasTPC bool

	// TOFSignal is the measured time of flight. Meaningless unless HasTOF.
	TOFSignal float64
	// TOFExpMom is the expected momentum at the TOF radius; zero means
	// "use P".
	TOFExpMom float64
}

// ExpMom returns the momentum used for expected-time evaluation.
func (t *Track) ExpMom() float64 {
	if t.TOFExpMom > 0 {
		return t.TOFExpMom
	}
	return t.P
}

// FT0Time is an externally supplied (FT0) event-time measurement for one
// collision. Value and Err are in ps.
type FT0Time struct {
	Value float64
	Err   float64
	Valid bool
}

// Collision is one collision with its ordered track sample.
type Collision struct {
	ID int64
	// Sel8 marks collisions passing the event selection; consulted only when
	// the pipeline requires it.
	Sel8 bool
	// Time and TimeRes (ns) are the reconstruction-level collision time,
	// used directly by the run2 variant.
	Time    float64
	TimeRes float64
	FT0     *FT0Time
	Tracks  []Track
}

// TrackFilter selects tracks eligible for event-time estimation.
type TrackFilter func(*Track) bool

// GoodForEventTime builds the timing-selection predicate: a TOF match, both
// tracking detectors, a global track fit, and a momentum window where the
// pion/kaon/proton hypotheses stay separable.
func GoodForEventTime(minMomentum, maxMomentum float64) TrackFilter {
	return func(t *Track) bool {
		return t.HasTOF &&
			t.P > minMomentum && t.P < maxMomentum &&
			t.HasITS &&
			t.HasTPC &&
			(t.Type == TrackGlobal || t.Type == TrackGlobalIU)
	}
}

package pid

// EventTimeRow is the per-track event-time output.
type EventTimeRow struct {
	TrackIndex   int64
	CollisionID  int64 // -1 for unassigned tracks
	Time         float64
	TimeErr      float64
	Flags        EvTimeFlags
	Multiplicity int // contributing tracks of the TOF estimate; -1 when none ran
}

// NsigmaRow is the per-track per-species PID output. Full rows carry the
// expected resolution alongside the separation; compact rows carry the packed
// quantized separation.
type NsigmaRow struct {
	TrackIndex int64
	Species    Species
	ExpSigma   float64
	Nsigma     float64
	Packed     int8
	Full       bool
}

// BetaRow is the per-track velocity-ratio and TOF-mass output.
type BetaRow struct {
	TrackIndex int64
	Beta       float64
	BetaErr    float64
	Mass       float64
}

// Sink consumes the produced rows. Implementations live in pid/sink.
// Writes arrive in track iteration order; Close flushes.
type Sink interface {
	WriteEventTime(row EventTimeRow) error
	WriteNsigma(row NsigmaRow) error
	WriteBeta(row BetaRow) error
	Close() error
}

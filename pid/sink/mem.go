package sink

import "github.com/tofpid/tofpid/pid"

// MemSink collects rows in memory. Used by tests and by pipeline round-trip
// checks.
type MemSink struct {
	EventTimes []pid.EventTimeRow
	Nsigmas    []pid.NsigmaRow
	Betas      []pid.BetaRow
}

// NewMemSink creates an empty collector.
func NewMemSink() *MemSink {
	return &MemSink{}
}

func (m *MemSink) WriteEventTime(row pid.EventTimeRow) error {
	m.EventTimes = append(m.EventTimes, row)
	return nil
}

func (m *MemSink) WriteNsigma(row pid.NsigmaRow) error {
	m.Nsigmas = append(m.Nsigmas, row)
	return nil
}

func (m *MemSink) WriteBeta(row pid.BetaRow) error {
	m.Betas = append(m.Betas, row)
	return nil
}

func (m *MemSink) Close() error { return nil }

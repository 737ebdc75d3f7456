// Package sink provides row sinks for the PID pipeline output: CSV files,
// a sqlite database, and an in-memory collector.
package sink

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tofpid/tofpid/pid"
)

// CSVSink writes the produced tables as CSV files in a directory:
// evtime.csv, nsigma.csv and beta.csv.
type CSVSink struct {
	evFile   *os.File
	nsFile   *os.File
	betaFile *os.File
	ev       *csv.Writer
	ns       *csv.Writer
	beta     *csv.Writer
}

// NewCSVSink creates the output files with headers.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	s := &CSVSink{}
	var err error
	if s.evFile, s.ev, err = newCSV(filepath.Join(dir, "evtime.csv"),
		[]string{"track", "collision", "time_ps", "time_err_ps", "flags", "multiplicity"}); err != nil {
		return nil, err
	}
	if s.nsFile, s.ns, err = newCSV(filepath.Join(dir, "nsigma.csv"),
		[]string{"track", "species", "exp_sigma_ps", "nsigma", "packed", "full"}); err != nil {
		s.evFile.Close()
		return nil, err
	}
	if s.betaFile, s.beta, err = newCSV(filepath.Join(dir, "beta.csv"),
		[]string{"track", "beta", "beta_err", "mass_gev"}); err != nil {
		s.evFile.Close()
		s.nsFile.Close()
		return nil, err
	}
	return s, nil
}

func newCSV(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("writing header of %s: %w", path, err)
	}
	return f, w, nil
}

func (s *CSVSink) WriteEventTime(row pid.EventTimeRow) error {
	return s.ev.Write([]string{
		strconv.FormatInt(row.TrackIndex, 10),
		strconv.FormatInt(row.CollisionID, 10),
		formatF(row.Time),
		formatF(row.TimeErr),
		strconv.Itoa(int(row.Flags)),
		strconv.Itoa(row.Multiplicity),
	})
}

func (s *CSVSink) WriteNsigma(row pid.NsigmaRow) error {
	return s.ns.Write([]string{
		strconv.FormatInt(row.TrackIndex, 10),
		row.Species.String(),
		formatF(row.ExpSigma),
		formatF(row.Nsigma),
		strconv.Itoa(int(row.Packed)),
		strconv.FormatBool(row.Full),
	})
}

func (s *CSVSink) WriteBeta(row pid.BetaRow) error {
	return s.beta.Write([]string{
		strconv.FormatInt(row.TrackIndex, 10),
		formatF(row.Beta),
		formatF(row.BetaErr),
		formatF(row.Mass),
	})
}

// Close flushes and closes all files, reporting the first error.
func (s *CSVSink) Close() error {
	s.ev.Flush()
	s.ns.Flush()
	s.beta.Flush()
	var firstErr error
	for _, w := range []*csv.Writer{s.ev, s.ns, s.beta} {
		if err := w.Error(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, f := range []*os.File{s.evFile, s.nsFile, s.betaFile} {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func formatF(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

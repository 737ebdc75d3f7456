package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tofpid/tofpid/pid"
)

// qaCmd summarizes a previously produced nsigma table
var qaCmd = &cobra.Command{
	Use:   "qa <nsigma.csv>",
	Short: "Summarize a produced nsigma table per species",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		acc, err := loadNsigmaCSV(args[0])
		if err != nil {
			logrus.Fatalf("Reading nsigma table: %v", err)
		}
		for _, s := range acc.Summary() {
			fmt.Printf("%-4s n=%-8d mean=%8.3f stddev=%8.3f p5=%8.3f median=%8.3f p95=%8.3f\n",
				s.Species, s.N, s.Mean, s.StdDev, s.P5, s.Median, s.P95)
		}
	},
}

// loadNsigmaCSV replays a nsigma.csv into a fresh accumulator. Sentinel and
// non-finite values are dropped by the accumulator itself.
func loadNsigmaCSV(path string) (*pid.QAAccumulator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if _, err := r.Read(); err != nil { // header
		return nil, fmt.Errorf("reading header: %w", err)
	}
	acc := pid.NewQAAccumulator()
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("short record %v", rec)
		}
		sp, err := pid.ParseSpecies(rec[1])
		if err != nil {
			return nil, err
		}
		ns, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("parsing nsigma %q: %w", rec[3], err)
		}
		acc.Add(sp, ns)
	}
	return acc, nil
}

func init() {
	rootCmd.AddCommand(qaCmd)
}

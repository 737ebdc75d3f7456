package pid

import (
	"fmt"
	"strings"
)

// Species is a particle mass hypothesis index.
type Species uint8

const (
	Electron Species = iota
	Muon
	Pion
	Kaon
	Proton
	Deuteron
	Triton
	Helium3
	Alpha
	// NSpecies is the number of supported hypotheses.
	NSpecies
)

var speciesNames = [NSpecies]string{"El", "Mu", "Pi", "Ka", "Pr", "De", "Tr", "He", "Al"}

// speciesMasses are the hypothesis masses in GeV/c^2.
var speciesMasses = [NSpecies]float64{
	0.000510999,
	0.1056584,
	0.1395704,
	0.4936770,
	0.9382721,
	1.8756129,
	2.8089211,
	2.8083916,
	3.7273794,
}

// speciesCharges are the absolute charges in units of e.
var speciesCharges = [NSpecies]float64{1, 1, 1, 1, 1, 1, 1, 2, 2}

func (s Species) String() string {
	if s < NSpecies {
		return speciesNames[s]
	}
	return fmt.Sprintf("Species(%d)", uint8(s))
}

// Mass returns the hypothesis mass in GeV/c^2.
func (s Species) Mass() float64 { return speciesMasses[s] }

// Charge returns the absolute charge in units of e. The track momentum is a
// rigidity, so z=2 hypotheses double the momentum entering the expected time.
func (s Species) Charge() float64 { return speciesCharges[s] }

// ParseSpecies resolves a species tag (e.g. "Pi", case-insensitive).
func ParseSpecies(name string) (Species, error) {
	for i, n := range speciesNames {
		if strings.EqualFold(n, name) {
			return Species(i), nil
		}
	}
	return 0, fmt.Errorf("unknown species %q (valid: %s)", name, strings.Join(speciesNames[:], ", "))
}

// ParseSpeciesList parses a comma-separated species tag list. An empty string
// yields an empty list.
func ParseSpeciesList(csv string) ([]Species, error) {
	if strings.TrimSpace(csv) == "" {
		return nil, nil
	}
	var out []Species
	for _, tok := range strings.Split(csv, ",") {
		sp, err := ParseSpecies(strings.TrimSpace(tok))
		if err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, nil
}

// AllSpecies returns every supported hypothesis in index order.
func AllSpecies() []Species {
	out := make([]Species, 0, NSpecies)
	for s := Species(0); s < NSpecies; s++ {
		out = append(out, s)
	}
	return out
}

// EventTimeHypotheses are the hypotheses tried per track during event-time
// estimation. The true species is unknown; these cover the bulk of the
// timing-eligible sample.
var EventTimeHypotheses = []Species{Pion, Kaon, Proton}

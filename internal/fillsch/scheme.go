// Package fillsch loads LHC bunch-filling schemes, converts legacy LPC
// exports into the shape the downstream mask builder expects, and implements
// the long-range-interaction heuristics used to pick representative bunches.
package fillsch

import (
	"encoding/json"
	"fmt"
	"os"
)

// Slots is the number of 25 ns bunch slots per LHC ring.
const Slots = 3564

// Beam selects one of the two beams.
type Beam string

const (
	Beam1 Beam = "beam_1"
	Beam2 Beam = "beam_2"
)

// Scheme is a bunch-filling scheme: per-beam slot occupancy over the full
// ring, plus the grouping of bunches into identical-bunch families. Each
// family lists the slot indices of bunches that see the same long-range
// encounter pattern; the first member stands in for the whole family in a
// bunch scan.
type Scheme struct {
	Beam1                 []int   `json:"beam1"`
	Beam2                 []int   `json:"beam2"`
	Beam1IdenticalBunches [][]int `json:"beam1_identical_bunches"`
	Beam2IdenticalBunches [][]int `json:"beam2_identical_bunches"`
}

// Load reads a filling scheme from path. Legacy LPC exports (recognized by
// their top-level "fills" key) are reformatted first; in that case the
// converted scheme is persisted next to the original and the returned path
// points at the converted file. Schemes lacking identical-bunch families get
// them computed in memory.
func Load(path string) (*Scheme, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading filling scheme: %w", err)
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, "", fmt.Errorf("parsing filling scheme %s: %w", path, err)
	}

	if _, legacy := probe["fills"]; legacy {
		scheme, _, _, converted, err := ReformatFromLPC(path)
		if err != nil {
			return nil, "", err
		}
		return scheme, converted, nil
	}

	var scheme Scheme
	if err := json.Unmarshal(raw, &scheme); err != nil {
		return nil, "", fmt.Errorf("parsing filling scheme %s: %w", path, err)
	}
	if len(scheme.Beam1) == 0 || len(scheme.Beam2) == 0 {
		return nil, "", fmt.Errorf("filling scheme %s is missing beam1/beam2 occupancy", path)
	}

	if scheme.Beam1IdenticalBunches == nil {
		scheme.Beam1IdenticalBunches = families(scheme.Beam1, scheme.Beam2, DefaultLongRangeWindow)
	}
	if scheme.Beam2IdenticalBunches == nil {
		scheme.Beam2IdenticalBunches = families(scheme.Beam2, scheme.Beam1, DefaultLongRangeWindow)
	}

	return &scheme, path, nil
}

// FilledSlots returns the occupied slot indices of the selected beam, in
// ring order.
func (s *Scheme) FilledSlots(beam Beam) []int {
	occ := s.occupancy(beam)
	var filled []int
	for i, v := range occ {
		if v != 0 {
			filled = append(filled, i)
		}
	}
	return filled
}

// FamilyLeaders returns the first member of each identical-bunch family of
// the selected beam. These are the representative bunches a scan iterates
// over.
func (s *Scheme) FamilyLeaders(beam Beam) []int {
	var fams [][]int
	if beam == Beam2 {
		fams = s.Beam2IdenticalBunches
	} else {
		fams = s.Beam1IdenticalBunches
	}
	leaders := make([]int, 0, len(fams))
	for _, fam := range fams {
		if len(fam) > 0 {
			leaders = append(leaders, fam[0])
		}
	}
	return leaders
}

func (s *Scheme) occupancy(beam Beam) []int {
	if beam == Beam2 {
		return s.Beam2
	}
	return s.Beam1
}

func (s *Scheme) other(beam Beam) []int {
	if beam == Beam2 {
		return s.Beam1
	}
	return s.Beam2
}

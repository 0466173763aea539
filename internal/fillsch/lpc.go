package fillsch

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// lpcExport mirrors the JSON produced by the LPC fill-table service
// (schemeInfo.py). Each fill carries a csv section listing, per beam, the
// occupied slots of the ring.
type lpcExport struct {
	Fills map[string]struct {
		Name string `json:"name"`
		CSV  string `json:"csv"`
	} `json:"fills"`
}

// ReformatFromLPC converts a legacy LPC scheme export into the canonical
// shape and persists it next to the original with a _converted.json suffix.
// It returns the converted scheme, the two raw occupancy arrays, and the
// path of the converted file.
//
// The csv section contains one block per beam, each headed by a line
// mentioning "Slot" and followed by comma-separated rows whose second column
// is the occupied slot index; a short row terminates the block. The first
// block describes beam 1, the second beam 2.
func ReformatFromLPC(path string) (*Scheme, []int, []int, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("reading LPC scheme: %w", err)
	}

	var export lpcExport
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, nil, nil, "", fmt.Errorf("parsing LPC scheme %s: %w", path, err)
	}
	if len(export.Fills) == 0 {
		return nil, nil, nil, "", fmt.Errorf("LPC scheme %s contains no fills", path)
	}

	// Exports normally hold a single fill; take the lowest-numbered one so
	// repeated runs stay deterministic either way.
	fillNumbers := make([]string, 0, len(export.Fills))
	for n := range export.Fills {
		fillNumbers = append(fillNumbers, n)
	}
	sort.Strings(fillNumbers)
	fill := export.Fills[fillNumbers[0]]

	b1, b2, err := parseLPCCSV(fill.CSV)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("fill %s: %w", fillNumbers[0], err)
	}

	scheme := &Scheme{
		Beam1:                 b1,
		Beam2:                 b2,
		Beam1IdenticalBunches: families(b1, b2, DefaultLongRangeWindow),
		Beam2IdenticalBunches: families(b2, b1, DefaultLongRangeWindow),
	}

	converted := strings.TrimSuffix(path, ".json") + "_converted.json"
	out, err := json.Marshal(scheme)
	if err != nil {
		return nil, nil, nil, "", fmt.Errorf("encoding converted scheme: %w", err)
	}
	if err := os.WriteFile(converted, out, 0o644); err != nil {
		return nil, nil, nil, "", fmt.Errorf("writing converted scheme: %w", err)
	}

	return scheme, b1, b2, converted, nil
}

func parseLPCCSV(csv string) ([]int, []int, error) {
	b1 := make([]int, Slots)
	b2 := make([]int, Slots)
	lines := strings.Split(csv, "\n")

	beamSeen := 0
	for i := 0; i < len(lines); i++ {
		if !strings.Contains(lines[i], "Slot") {
			continue
		}
		target := b1
		if beamSeen > 0 {
			target = b2
		}
		beamSeen++

		for j := i + 1; j < len(lines); j++ {
			cols := strings.Split(lines[j], ",")
			if len(cols) < 2 {
				i = j
				break
			}
			slot, err := strconv.Atoi(strings.TrimSpace(cols[1]))
			if err != nil {
				return nil, nil, fmt.Errorf("bad slot index in csv line %d: %w", j+1, err)
			}
			if slot < 0 || slot >= Slots {
				return nil, nil, fmt.Errorf("slot index %d out of range [0,%d)", slot, Slots)
			}
			target[slot] = 1
			i = j
		}
	}

	if beamSeen < 2 {
		return nil, nil, fmt.Errorf("csv section lists %d beam blocks, want 2", beamSeen)
	}
	return b1, b2, nil
}

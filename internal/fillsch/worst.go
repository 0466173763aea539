package fillsch

import "fmt"

// DefaultLongRangeWindow is the number of long-range encounters considered on
// each side of an interaction point.
const DefaultLongRangeWindow = 26

// Slot offsets of the off-center interaction points in 25 ns slots. IP1 and
// IP5 sit at offset zero; a bunch meets its opposite-beam partner at the
// shifted slot for IP2 and IP8.
const (
	ip2Offset = 891
	ip8Offset = 2670
)

// lrSignature is the per-IP-region count of long-range encounters for one
// bunch: the filled opposite-beam slots within the window around the head-on
// partner slot at IP1/5, IP2 and IP8.
type lrSignature [3]int

func signatureAt(slot int, other []int, window int) lrSignature {
	var sig lrSignature
	for region, offset := range [3]int{0, ip2Offset, ip8Offset} {
		partner := (slot + offset) % Slots
		for d := -window; d <= window; d++ {
			if d == 0 {
				continue // head-on, not long-range
			}
			j := ((partner+d)%Slots + Slots) % Slots
			if other[j] != 0 {
				sig[region]++
			}
		}
	}
	return sig
}

// total counts IP1 and IP5 once each; they share the zero offset.
func (s lrSignature) total() int {
	return 2*s[0] + s[1] + s[2]
}

// WorstBunch returns the filled slot of the selected beam with the largest
// number of long-range encounters, considering window encounters on each
// side of every interaction point. Ties resolve to the lowest slot index so
// repeated runs agree.
func WorstBunch(s *Scheme, window int, beam Beam) (int, error) {
	own := s.occupancy(beam)
	other := s.other(beam)

	worst, worstCount := -1, -1
	for slot, v := range own {
		if v == 0 {
			continue
		}
		if n := signatureAt(slot, other, window).total(); n > worstCount {
			worst, worstCount = slot, n
		}
	}
	if worst < 0 {
		return 0, fmt.Errorf("no filled slots for %s", beam)
	}
	return worst, nil
}

// families groups the filled slots of one beam into identical-bunch families:
// bunches whose long-range signatures match see the same beam-beam forces, so
// tracking one of them covers the whole family. Families are ordered by their
// first member; members are in ring order.
func families(own, other []int, window int) [][]int {
	order := make([]lrSignature, 0)
	members := make(map[lrSignature][]int)

	for slot, v := range own {
		if v == 0 {
			continue
		}
		sig := signatureAt(slot, other, window)
		if _, seen := members[sig]; !seen {
			order = append(order, sig)
		}
		members[sig] = append(members[sig], slot)
	}

	fams := make([][]int, 0, len(order))
	for _, sig := range order {
		fams = append(fams, members[sig])
	}
	return fams
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Study structure, the validated in-memory form of a
// user's .hcl study definition.
//
// Why a Study struct?
//
// The study file is the single user-edited input of the whole tool: particle
// distribution, optics, machine knobs, beam-beam settings, tracking
// parameters and scan axes all live there. Decoding it once into a typed,
// validated value means every later stage works from plain Go data and no
// configuration parsing leaks into the expansion or tree-writing code.
package study

import (
	"fmt"
	"sort"
)

// Beam names as the optics tooling spells them.
const (
	BeamB1 = "lhcb1"
	BeamB2 = "lhcb2"
)

// Study is the validated study definition.
type Study struct {
	Name       string
	Particles  Particles
	Optics     Optics
	TuneChroma TuneChroma
	Knobs      map[string]float64
	Leveling   Leveling
	BeamBeam   BeamBeam
	Tracking   Tracking
	Axes       []Axis
}

// Particles describes the initial particle distribution and how it is split
// for parallel tracking.
type Particles struct {
	RMin    float64
	RMax    float64
	NR      int
	NAngles int
	NSplit  int
}

// Optics selects the optics file and the per-beam energies.
type Optics struct {
	File       string
	BeamEnergy map[string]float64
}

// TuneChroma holds the tunes and chromaticities, applied to both beams, plus
// the linear coupling knob deltas.
type TuneChroma struct {
	Qx, Qy     float64
	Dqx, Dqy   float64
	DeltaCmr   float64
	DeltaCmi   float64
}

// Leveling holds the luminosity leveling settings for IP2 and IP8.
type Leveling struct {
	Skip                  bool
	IP2SeparationInSigmas float64
	IP8Luminosity         float64
}

// BeamBeam holds the beam-beam settings, including the filling-scheme
// reference and the optional per-beam bunch indices. A nil index means
// "not pinned down": the bunch scan axis or the selection policy decides.
type BeamBeam struct {
	NumParticlesPerBunch float64
	NemittX              float64
	NemittY              float64
	SchemeFile           string
	IBunchB1             *int
	IBunchB2             *int
	CheckBunchNumber     bool
	LongRangeWindow      int
}

// Tracking holds the tracking-stage parameters.
type Tracking struct {
	NTurns   int
	DeltaMax float64
	Beam     string
}

// Axis is an explicit scan axis from the study's scan block, layered on top
// of the implicit split and bunch axes.
type Axis struct {
	Name   string
	Path   []string
	Values []any
}

func (s *Study) validate() error {
	if s.Name == "" {
		return fmt.Errorf("study name must not be empty")
	}
	if s.Particles.NSplit < 1 {
		return fmt.Errorf("particles.n_split must be at least 1, got %d", s.Particles.NSplit)
	}
	if s.Particles.NAngles < 1 {
		return fmt.Errorf("particles.n_angles must be at least 1, got %d", s.Particles.NAngles)
	}
	if s.Particles.RMax <= s.Particles.RMin {
		return fmt.Errorf("particles.r_max (%g) must exceed particles.r_min (%g)",
			s.Particles.RMax, s.Particles.RMin)
	}
	if s.Optics.File == "" {
		return fmt.Errorf("optics.file must not be empty")
	}

	beams := make([]string, 0, len(s.Optics.BeamEnergy))
	for b := range s.Optics.BeamEnergy {
		beams = append(beams, b)
	}
	sort.Strings(beams)
	for _, b := range beams {
		if b != BeamB1 && b != BeamB2 {
			return fmt.Errorf("unknown beam %q in optics block", b)
		}
	}
	if len(beams) != 2 {
		return fmt.Errorf("optics block must configure both %s and %s", BeamB1, BeamB2)
	}

	if s.Tracking.Beam != BeamB1 && s.Tracking.Beam != BeamB2 {
		return fmt.Errorf("tracking.beam must be %s or %s, got %q", BeamB1, BeamB2, s.Tracking.Beam)
	}
	if s.Tracking.NTurns < 1 {
		return fmt.Errorf("tracking.n_turns must be positive, got %d", s.Tracking.NTurns)
	}

	if s.BeamBeam.CheckBunchNumber && s.BeamBeam.SchemeFile == "" {
		return fmt.Errorf("beambeam.check_bunch_number requires beambeam.scheme_file")
	}
	for _, idx := range []*int{s.BeamBeam.IBunchB1, s.BeamBeam.IBunchB2} {
		if idx != nil && (*idx < 0) {
			return fmt.Errorf("bunch indices must be non-negative, got %d", *idx)
		}
	}
	return nil
}

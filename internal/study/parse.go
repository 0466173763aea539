// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package study

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/scangridgo/internal/ctxlog"
	"github.com/vk/scangridgo/internal/fsutil"
)

// hclFile is the top-level structure of a study file for decoding.
type hclFile struct {
	Study *hclStudy `hcl:"study,block"`
}

type hclStudy struct {
	Name       string         `hcl:"name,label"`
	Particles  *hclParticles  `hcl:"particles,block"`
	Optics     *hclOptics     `hcl:"optics,block"`
	TuneChroma *hclTuneChroma `hcl:"tune_chroma,block"`
	Knobs      *hclKnobs      `hcl:"knobs,block"`
	Leveling   *hclLeveling   `hcl:"leveling,block"`
	BeamBeam   *hclBeamBeam   `hcl:"beambeam,block"`
	Tracking   *hclTracking   `hcl:"tracking,block"`
	Scan       *hclScan       `hcl:"scan,block"`
}

type hclParticles struct {
	RMin    float64 `hcl:"r_min"`
	RMax    float64 `hcl:"r_max"`
	NR      *int    `hcl:"n_r,optional"`
	NAngles int     `hcl:"n_angles"`
	NSplit  int     `hcl:"n_split"`
}

type hclOptics struct {
	File  string     `hcl:"file"`
	Beams []*hclBeam `hcl:"beam,block"`
}

type hclBeam struct {
	Name      string  `hcl:"name,label"`
	EnergyTot float64 `hcl:"energy_tot"`
}

type hclTuneChroma struct {
	Qx       float64 `hcl:"qx"`
	Qy       float64 `hcl:"qy"`
	Dqx      float64 `hcl:"dqx"`
	Dqy      float64 `hcl:"dqy"`
	DeltaCmr float64 `hcl:"delta_cmr,optional"`
	DeltaCmi float64 `hcl:"delta_cmi,optional"`
}

// hclKnobs captures the knobs block as a raw body: the knob set is open
// (on_x1, on_sep5, on_crab1, i_oct_b1, ...), so it is decoded generically in
// knobs.go rather than through a fixed struct.
type hclKnobs struct {
	Body hcl.Body `hcl:",remain"`
}

type hclLeveling struct {
	Skip bool        `hcl:"skip,optional"`
	IP2  *hclIP2     `hcl:"ip2,block"`
	IP8  *hclIP8     `hcl:"ip8,block"`
}

type hclIP2 struct {
	SeparationInSigmas float64 `hcl:"separation_in_sigmas"`
}

type hclIP8 struct {
	Luminosity float64 `hcl:"luminosity"`
}

type hclBeamBeam struct {
	NumParticlesPerBunch float64 `hcl:"num_particles_per_bunch"`
	NemittX              float64 `hcl:"nemitt_x"`
	NemittY              float64 `hcl:"nemitt_y"`
	SchemeFile           string  `hcl:"scheme_file,optional"`
	IBunchB1             *int    `hcl:"i_bunch_b1,optional"`
	IBunchB2             *int    `hcl:"i_bunch_b2,optional"`
	CheckBunchNumber     bool    `hcl:"check_bunch_number,optional"`
	LongRangeWindow      *int    `hcl:"long_range_window,optional"`
}

type hclTracking struct {
	NTurns   int     `hcl:"n_turns"`
	DeltaMax float64 `hcl:"delta_max"`
	Beam     string  `hcl:"beam"`
}

type hclScan struct {
	Axes []*hclAxis `hcl:"axis,block"`
}

type hclAxis struct {
	Name   string         `hcl:"name,label"`
	Path   []string       `hcl:"path"`
	Values hcl.Expression `hcl:"values"`
}

// Load reads a study definition from path, which may be a single .hcl file
// or a directory containing one. Exactly one study block must be found.
func Load(ctx context.Context, path string) (*Study, error) {
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("study path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, fmt.Errorf("finding study files in %s: %w", path, err)
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no .hcl study files found in %s", path)
		}
	}
	logger.Debug("Loading study definition.", "files", len(files))

	parser := hclparse.NewParser()
	var found *Study
	for _, file := range files {
		s, err := parseFile(file, parser)
		if err != nil {
			return nil, err
		}
		if s == nil {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("multiple study blocks found (in %s and elsewhere)", file)
		}
		found = s
	}
	if found == nil {
		return nil, fmt.Errorf("no study block found under %s", path)
	}

	logger.Info("Study definition loaded.", "study", found.Name, "explicit_axes", len(found.Axes))
	return found, nil
}

func parseFile(path string, parser *hclparse.Parser) (*Study, error) {
	hclF, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse study file %s: %w", path, diags)
	}

	var parsed hclFile
	diags = gohcl.DecodeBody(hclF.Body, nil, &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode study file %s: %w", path, diags)
	}
	if parsed.Study == nil {
		return nil, nil
	}
	return newStudy(parsed.Study, path)
}

func newStudy(h *hclStudy, path string) (*Study, error) {
	for name, block := range map[string]any{
		"particles":   h.Particles,
		"optics":      h.Optics,
		"tune_chroma": h.TuneChroma,
		"beambeam":    h.BeamBeam,
		"tracking":    h.Tracking,
	} {
		if isNilBlock(block) {
			return nil, fmt.Errorf("study %q in %s is missing its %s block", h.Name, path, name)
		}
	}

	s := &Study{
		Name: h.Name,
		Particles: Particles{
			RMin:    h.Particles.RMin,
			RMax:    h.Particles.RMax,
			NAngles: h.Particles.NAngles,
			NSplit:  h.Particles.NSplit,
		},
		Optics: Optics{
			File:       h.Optics.File,
			BeamEnergy: make(map[string]float64, len(h.Optics.Beams)),
		},
		TuneChroma: TuneChroma{
			Qx:       h.TuneChroma.Qx,
			Qy:       h.TuneChroma.Qy,
			Dqx:      h.TuneChroma.Dqx,
			Dqy:      h.TuneChroma.Dqy,
			DeltaCmr: h.TuneChroma.DeltaCmr,
			DeltaCmi: h.TuneChroma.DeltaCmi,
		},
		BeamBeam: BeamBeam{
			NumParticlesPerBunch: h.BeamBeam.NumParticlesPerBunch,
			NemittX:              h.BeamBeam.NemittX,
			NemittY:              h.BeamBeam.NemittY,
			SchemeFile:           h.BeamBeam.SchemeFile,
			IBunchB1:             h.BeamBeam.IBunchB1,
			IBunchB2:             h.BeamBeam.IBunchB2,
			CheckBunchNumber:     h.BeamBeam.CheckBunchNumber,
			LongRangeWindow:      26,
		},
		Tracking: Tracking{
			NTurns:   h.Tracking.NTurns,
			DeltaMax: h.Tracking.DeltaMax,
			Beam:     h.Tracking.Beam,
		},
	}

	// Radial sampling defaults to 2*16 points per unit radius, the standard
	// density for DA scans.
	if h.Particles.NR != nil {
		s.Particles.NR = *h.Particles.NR
	} else {
		s.Particles.NR = int(2 * 16 * (s.Particles.RMax - s.Particles.RMin))
	}

	if h.BeamBeam.LongRangeWindow != nil {
		s.BeamBeam.LongRangeWindow = *h.BeamBeam.LongRangeWindow
	}

	for _, b := range h.Optics.Beams {
		if _, dup := s.Optics.BeamEnergy[b.Name]; dup {
			return nil, fmt.Errorf("beam %q configured twice in optics block", b.Name)
		}
		s.Optics.BeamEnergy[b.Name] = b.EnergyTot
	}

	if h.Leveling != nil {
		s.Leveling.Skip = h.Leveling.Skip
		if h.Leveling.IP2 != nil {
			s.Leveling.IP2SeparationInSigmas = h.Leveling.IP2.SeparationInSigmas
		}
		if h.Leveling.IP8 != nil {
			s.Leveling.IP8Luminosity = h.Leveling.IP8.Luminosity
		}
	}

	if h.Knobs != nil {
		knobs, err := parseKnobs(h.Knobs.Body)
		if err != nil {
			return nil, fmt.Errorf("study %q: %w", h.Name, err)
		}
		s.Knobs = knobs
	}

	if h.Scan != nil {
		axes, err := parseAxes(h.Scan.Axes)
		if err != nil {
			return nil, fmt.Errorf("study %q: %w", h.Name, err)
		}
		s.Axes = axes
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid study %q in %s: %w", h.Name, path, err)
	}
	return s, nil
}

func isNilBlock(block any) bool {
	switch b := block.(type) {
	case *hclParticles:
		return b == nil
	case *hclOptics:
		return b == nil
	case *hclTuneChroma:
		return b == nil
	case *hclBeamBeam:
		return b == nil
	case *hclTracking:
		return b == nil
	}
	return block == nil
}

// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package study

import "github.com/vk/scangridgo/internal/confmap"

// ColliderFile is the per-job relative path of the collider built by the
// first generation.
const ColliderFile = "../collider/collider.json"

// LogFile is the per-job tree-maker log name.
const LogFile = "tree_maker.log"

// ParticlesConfig returns the initial-particle-distribution section of the
// first generation.
func (s *Study) ParticlesConfig() confmap.Tree {
	return confmap.Tree{
		"r_min":    s.Particles.RMin,
		"r_max":    s.Particles.RMax,
		"n_r":      s.Particles.NR,
		"n_angles": s.Particles.NAngles,
		"n_split":  s.Particles.NSplit,
	}
}

// MadConfig returns the optics/mad section of the first generation.
func (s *Study) MadConfig() confmap.Tree {
	beamConfig := confmap.Tree{}
	for beam, energy := range s.Optics.BeamEnergy {
		beamConfig[beam] = confmap.Tree{"beam_energy_tot": energy}
	}
	return confmap.Tree{
		"optics_file": s.Optics.File,
		"beam_config": beamConfig,
	}
}

// ColliderConfig returns the second-generation collider section. patternPath
// is the effective filling-scheme path ("" means a full fill); the bunch
// indices may be nil when the scan or policy supplies them.
func (s *Study) ColliderConfig(patternPath string, iBunchB1, iBunchB2 *int) confmap.Tree {
	perBeam := func(v float64) confmap.Tree {
		return confmap.Tree{BeamB1: v, BeamB2: v}
	}

	knobSettings := confmap.Tree{}
	for name, v := range s.Knobs {
		knobSettings[name] = v
	}

	mask := confmap.Tree{
		"pattern_fname": patternValue(patternPath),
		"i_bunch_b1":    bunchValue(iBunchB1),
		"i_bunch_b2":    bunchValue(iBunchB2),
	}

	return confmap.Tree{
		"config_knobs_and_tuning": confmap.Tree{
			"qx":            perBeam(s.TuneChroma.Qx),
			"qy":            perBeam(s.TuneChroma.Qy),
			"dqx":           perBeam(s.TuneChroma.Dqx),
			"dqy":           perBeam(s.TuneChroma.Dqy),
			"delta_cmr":     s.TuneChroma.DeltaCmr,
			"delta_cmi":     s.TuneChroma.DeltaCmi,
			"knob_settings": knobSettings,
		},
		"skip_leveling": s.Leveling.Skip,
		"config_lumi_leveling": confmap.Tree{
			"ip2": confmap.Tree{"separation_in_sigmas": s.Leveling.IP2SeparationInSigmas},
			"ip8": confmap.Tree{"luminosity": s.Leveling.IP8Luminosity},
		},
		"config_beambeam": confmap.Tree{
			"num_particles_per_bunch":   s.BeamBeam.NumParticlesPerBunch,
			"nemitt_x":                  s.BeamBeam.NemittX,
			"nemitt_y":                  s.BeamBeam.NemittY,
			"mask_with_filling_pattern": mask,
		},
	}
}

// SimulationConfig returns the second-generation tracking section.
func (s *Study) SimulationConfig() confmap.Tree {
	return confmap.Tree{
		"n_turns":       s.Tracking.NTurns,
		"delta_max":     s.Tracking.DeltaMax,
		"beam":          s.Tracking.Beam,
		"collider_file": ColliderFile,
	}
}

// JobTemplate returns the full second-generation template one job variant is
// expanded from. The expansion deep-copies it per job, so the template
// itself is never handed out.
func (s *Study) JobTemplate(patternPath string, iBunchB1, iBunchB2 *int) confmap.Tree {
	return confmap.Tree{
		"config_simulation": s.SimulationConfig(),
		"config_collider":   s.ColliderConfig(patternPath, iBunchB1, iBunchB2),
		"log_file":          LogFile,
	}
}

func patternValue(path string) any {
	if path == "" {
		return nil // full fill
	}
	return path
}

func bunchValue(idx *int) any {
	if idx == nil {
		return nil
	}
	return *idx
}

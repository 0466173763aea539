package study

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/scangridgo/internal/confmap"
)

const validStudy = `
study "opt_flathv_75_1500_withbb" {
  particles {
    r_min    = 2
    r_max    = 10
    n_angles = 5
    n_split  = 8
  }

  optics {
    file = "acc-models-lhc/flatcc/opt_flathv_75_180_1500_thin.madx"
    beam "lhcb1" { energy_tot = 7000 }
    beam "lhcb2" { energy_tot = 7000 }
  }

  tune_chroma {
    qx        = 62.313
    qy        = 60.320
    dqx       = 5.0
    dqy       = 5.0
    delta_cmr = 0.001
  }

  knobs {
    on_x1    = 250
    on_sep1  = 0
    on_x5    = 250
    on_crab1 = -190
    i_oct_b1 = 60.0
  }

  leveling {
    ip2 { separation_in_sigmas = 5 }
    ip8 { luminosity = 2.0e33 }
  }

  beambeam {
    num_particles_per_bunch = 1.3e11
    nemitt_x                = 2.5e-6
    nemitt_y                = 2.5e-6
    scheme_file             = "scheme.json"
    i_bunch_b2              = 1144
  }

  tracking {
    n_turns   = 1000000
    delta_max = 0.00027
    beam      = "lhcb1"
  }

  scan {
    axis "qx_b1" {
      path   = ["config_collider", "config_knobs_and_tuning", "qx", "lhcb1"]
      values = [62.305, 62.310, 62.315]
    }
  }
}
`

func writeStudy(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "study.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadValidStudy(t *testing.T) {
	s, err := Load(context.Background(), writeStudy(t, validStudy))
	require.NoError(t, err)

	assert.Equal(t, "opt_flathv_75_1500_withbb", s.Name)
	assert.Equal(t, 8, s.Particles.NSplit)
	// n_r derived: 2*16*(10-2)
	assert.Equal(t, 256, s.Particles.NR)
	assert.Equal(t, 7000.0, s.Optics.BeamEnergy["lhcb2"])
	assert.Equal(t, 62.313, s.TuneChroma.Qx)
	assert.Equal(t, 0.001, s.TuneChroma.DeltaCmr)
	assert.Equal(t, 0.0, s.TuneChroma.DeltaCmi)
	assert.Equal(t, 250.0, s.Knobs["on_x1"])
	assert.Equal(t, -190.0, s.Knobs["on_crab1"])
	assert.False(t, s.Leveling.Skip)
	assert.Equal(t, 2.0e33, s.Leveling.IP8Luminosity)
	require.NotNil(t, s.BeamBeam.IBunchB2)
	assert.Equal(t, 1144, *s.BeamBeam.IBunchB2)
	assert.Nil(t, s.BeamBeam.IBunchB1)
	assert.Equal(t, 26, s.BeamBeam.LongRangeWindow)

	require.Len(t, s.Axes, 1)
	ax := s.Axes[0]
	assert.Equal(t, "qx_b1", ax.Name)
	assert.Equal(t, []string{"config_collider", "config_knobs_and_tuning", "qx", "lhcb1"}, ax.Path)
	assert.Equal(t, []any{62.305, 62.31, 62.315}, ax.Values)
}

func TestLoadFromDirectory(t *testing.T) {
	path := writeStudy(t, validStudy)
	s, err := Load(context.Background(), filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, "opt_flathv_75_1500_withbb", s.Name)
}

func TestLoadMissingBlock(t *testing.T) {
	src := `
study "broken" {
  particles {
    r_min    = 2
    r_max    = 10
    n_angles = 5
    n_split  = 8
  }
}
`
	_, err := Load(context.Background(), writeStudy(t, src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestLoadRejectsBadKnob(t *testing.T) {
	srcBadKnob := minimalStudy(`
  knobs { on_x1 = "not a number" }
`, "lhcb1")
	_, err := Load(context.Background(), writeStudy(t, srcBadKnob))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `knob "on_x1"`)
}

func TestLoadRejectsBadTrackingBeam(t *testing.T) {
	_, err := Load(context.Background(), writeStudy(t, minimalStudy("", "lhcb3")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracking.beam")
}

// minimalStudy builds a syntactically complete study with every required
// block, an optional extra section, and the given tracking beam.
func minimalStudy(extra, trackingBeam string) string {
	return `
study "s" {
  particles {
    r_min    = 2
    r_max    = 10
    n_angles = 5
    n_split  = 1
  }
  optics {
    file = "x.madx"
    beam "lhcb1" { energy_tot = 7000 }
    beam "lhcb2" { energy_tot = 7000 }
  }
  tune_chroma {
    qx  = 62.31
    qy  = 60.32
    dqx = 5
    dqy = 5
  }
` + extra + `
  beambeam {
    num_particles_per_bunch = 1e11
    nemitt_x                = 2.5e-6
    nemitt_y                = 2.5e-6
  }
  tracking {
    n_turns   = 100
    delta_max = 0.0001
    beam      = "` + trackingBeam + `"
  }
}
`
}

func TestJobTemplateShape(t *testing.T) {
	s, err := Load(context.Background(), writeStudy(t, validStudy))
	require.NoError(t, err)

	tmpl := s.JobTemplate("/abs/scheme.json", nil, s.BeamBeam.IBunchB2)

	v, ok := confmap.Get(tmpl, "config_simulation", "collider_file")
	require.True(t, ok)
	assert.Equal(t, ColliderFile, v)

	v, ok = confmap.Get(tmpl, "config_collider", "config_knobs_and_tuning", "qx", "lhcb2")
	require.True(t, ok)
	assert.Equal(t, 62.313, v)

	v, ok = confmap.Get(tmpl, "config_collider", "config_beambeam", "mask_with_filling_pattern", "i_bunch_b1")
	require.True(t, ok)
	assert.Nil(t, v)

	v, ok = confmap.Get(tmpl, "config_collider", "config_beambeam", "mask_with_filling_pattern", "i_bunch_b2")
	require.True(t, ok)
	assert.Equal(t, 1144, v)

	v, ok = confmap.Get(tmpl, "config_collider", "config_beambeam", "mask_with_filling_pattern", "pattern_fname")
	require.True(t, ok)
	assert.Equal(t, "/abs/scheme.json", v)

	assert.Equal(t, LogFile, tmpl["log_file"])

	// The template is rebuilt per call, never shared.
	other := s.JobTemplate("/abs/scheme.json", nil, nil)
	require.NoError(t, confmap.Set(other, 1, "config_simulation", "n_turns"))
	v, _ = confmap.Get(tmpl, "config_simulation", "n_turns")
	assert.Equal(t, 1000000, v)
}

func TestMadConfig(t *testing.T) {
	s, err := Load(context.Background(), writeStudy(t, validStudy))
	require.NoError(t, err)

	mad := s.MadConfig()
	v, ok := confmap.Get(mad, "beam_config", "lhcb1", "beam_energy_tot")
	require.True(t, ok)
	assert.Equal(t, 7000.0, v)
	assert.Equal(t, s.Optics.File, mad["optics_file"])
}

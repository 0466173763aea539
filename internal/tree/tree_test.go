package tree

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vk/scangridgo/internal/confmap"
)

func testJobs() []Job {
	return []Job{
		{
			ID:    "xtrack_0000",
			Split: 0, Bunch: 100,
			Config: confmap.Tree{
				"config_simulation": confmap.Tree{"n_turns": 100, "particle_file": "../particles/00.parquet"},
				"log_file":          "tree_maker.log",
			},
		},
		{
			ID:    "xtrack_0001",
			Split: 1, Bunch: 100,
			Config: confmap.Tree{
				"config_simulation": confmap.Tree{"n_turns": 100, "particle_file": "../particles/01.parquet"},
				"log_file":          "tree_maker.log",
			},
		},
	}
}

func baseConfig() confmap.Tree {
	return confmap.Tree{
		RootKey: confmap.Tree{
			"generations": 2,
		},
	}
}

func TestAssemble(t *testing.T) {
	particles := confmap.Tree{"n_split": 2}
	mad := confmap.Tree{"optics_file": "x.madx"}

	assembled, err := Assemble(baseConfig(), particles, mad, testJobs(), "/env/activate")
	require.NoError(t, err)

	v, ok := confmap.Get(assembled, RootKey, "setup_env_script")
	require.True(t, ok)
	assert.Equal(t, "/env/activate", v)

	v, ok = confmap.Get(assembled, RootKey, "children", Generation1, "config_particles", "n_split")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = confmap.Get(assembled, RootKey, "children", Generation1, "children", "xtrack_0001",
		"config_simulation", "particle_file")
	require.True(t, ok)
	assert.Equal(t, "../particles/01.parquet", v)
}

func TestAssembleMissingRoot(t *testing.T) {
	_, err := Assemble(confmap.Tree{}, nil, nil, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), RootKey)
}

func TestAssembleDuplicateJob(t *testing.T) {
	jobs := testJobs()
	jobs[1].ID = jobs[0].ID
	_, err := Assemble(baseConfig(), nil, nil, jobs, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate job")
}

func TestWrite(t *testing.T) {
	outDir := t.TempDir()
	jobs := testJobs()

	assembled, err := Assemble(baseConfig(), confmap.Tree{"n_split": 2},
		confmap.Tree{"optics_file": "x.madx"}, jobs, "/env/activate")
	require.NoError(t, err)

	res, err := Write(context.Background(), "test_study", assembled, jobs,
		NewHTCondorScript("/env/activate"), outDir)
	require.NoError(t, err)

	studyDir := filepath.Join(outDir, "scans", "test_study")
	assert.Equal(t, studyDir, res.StudyDir)

	// First-generation config carries particles+mad but not the children.
	raw, err := os.ReadFile(filepath.Join(studyDir, Generation1, "config.yaml"))
	require.NoError(t, err)
	var gen1 map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &gen1))
	assert.Contains(t, gen1, "config_particles")
	assert.NotContains(t, gen1, "children")

	// Per-job directories with config and executable run script.
	for _, job := range jobs {
		jobDir := filepath.Join(studyDir, Generation1, job.ID)

		raw, err := os.ReadFile(filepath.Join(jobDir, "config.yaml"))
		require.NoError(t, err)
		var cfg map[string]any
		require.NoError(t, yaml.Unmarshal(raw, &cfg))
		assert.Contains(t, cfg, "config_simulation")

		info, err := os.Stat(filepath.Join(jobDir, "run.sh"))
		require.NoError(t, err)
		assert.NotZero(t, info.Mode()&0o111, "run.sh must be executable")

		script, err := os.ReadFile(filepath.Join(jobDir, "run.sh"))
		require.NoError(t, err)
		assert.Contains(t, string(script), "source /env/activate")
		assert.Contains(t, string(script), jobDir)
	}

	// Manifests renamed to carry the study name; the plain names are gone.
	assert.Equal(t, filepath.Join(studyDir, "tree_maker_test_study.json"), res.ManifestPath)
	assert.Equal(t, filepath.Join(studyDir, "tree_maker_test_study.log"), res.LogPath)
	_, err = os.Stat(filepath.Join(studyDir, "tree_maker.json"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(studyDir, "tree_maker.log"))
	assert.True(t, os.IsNotExist(err))

	raw, err = os.ReadFile(res.ManifestPath)
	require.NoError(t, err)
	var manifest map[string]any
	require.NoError(t, json.Unmarshal(raw, &manifest))
	assert.Contains(t, manifest, RootKey)

	logBody, err := os.ReadFile(res.LogPath)
	require.NoError(t, err)
	assert.Contains(t, string(logBody), "xtrack_0000")
	assert.Contains(t, string(logBody), "2 jobs")
}

func TestLoadBaseConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("root:\n  generations: 2\n"), 0o644))

	cfg, err := LoadBaseConfig(path)
	require.NoError(t, err)
	v, ok := confmap.Get(cfg, RootKey, "generations")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, err = LoadBaseConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

// Package tree assembles the simulation tree for a study and materializes it
// on the filesystem: one directory per job under scans/<study>/, a per-job
// config and run script, and the study-level manifest and log.
package tree

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vk/scangridgo/internal/confmap"
)

// RootKey is the fixed key the job tree is inserted under in the base
// configuration.
const RootKey = "root"

// Generation1 is the name of the first-generation node that builds the
// particle distribution and the bare collider.
const Generation1 = "base_collider"

// Job is one fully expanded tracking job: an isolated config plus the axis
// values that shaped it. Bunch is -1 when the study scans no bunches.
type Job struct {
	ID     string
	Config confmap.Tree
	Split  int
	Bunch  int
}

// LoadBaseConfig reads the tree-maker base configuration (YAML).
func LoadBaseConfig(path string) (confmap.Tree, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading base config: %w", err)
	}
	var cfg confmap.Tree
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parsing base config %s: %w", path, err)
	}
	return cfg, nil
}

// Assemble inserts the two-generation job tree into the base configuration:
// the first generation carries the particle-distribution and optics
// parameters, its children are the per-job tracking configs. The base config
// must already contain the root node.
func Assemble(base, particles, mad confmap.Tree, jobs []Job, envScript string) (confmap.Tree, error) {
	root, ok := base[RootKey].(confmap.Tree)
	if !ok {
		return nil, fmt.Errorf("base config has no %q mapping", RootKey)
	}

	jobChildren := make(confmap.Tree, len(jobs))
	for _, job := range jobs {
		if _, dup := jobChildren[job.ID]; dup {
			return nil, fmt.Errorf("duplicate job %q in tree", job.ID)
		}
		jobChildren[job.ID] = job.Config
	}

	root["children"] = confmap.Tree{
		Generation1: confmap.Tree{
			"config_particles": particles,
			"config_mad":       mad,
			"children":         jobChildren,
		},
	}
	root["setup_env_script"] = envScript

	return base, nil
}

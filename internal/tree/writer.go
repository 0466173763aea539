package tree

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vk/scangridgo/internal/confmap"
	"github.com/vk/scangridgo/internal/ctxlog"
)

// ScriptGenerator renders the run script for one job. jobDir is the job's
// absolute directory on disk.
type ScriptGenerator func(job Job, jobDir string) (string, error)

// WriteResult reports where the tree landed.
type WriteResult struct {
	StudyDir     string
	ManifestPath string
	LogPath      string
}

// Write materializes the assembled tree: scans/<study>/base_collider with a
// first-generation config, one subdirectory per job holding config.yaml and
// run.sh, and a manifest plus log at the study root, both renamed to carry
// the study name.
func Write(ctx context.Context, studyName string, root confmap.Tree, jobs []Job, gen ScriptGenerator, outDir string) (*WriteResult, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	studyDir := filepath.Join(outDir, "scans", studyName)
	gen1Dir := filepath.Join(studyDir, Generation1)
	if err := os.MkdirAll(gen1Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating study directory: %w", err)
	}

	logLines := make([]string, 0, len(jobs)+2)
	logLines = append(logLines, fmt.Sprintf("study %s: %d jobs", studyName, len(jobs)))

	if err := writeGeneration1Config(root, gen1Dir); err != nil {
		return nil, err
	}

	for _, job := range jobs {
		jobDir := filepath.Join(gen1Dir, job.ID)
		if err := os.MkdirAll(jobDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating job directory %s: %w", job.ID, err)
		}
		if err := writeYAML(filepath.Join(jobDir, "config.yaml"), job.Config); err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}

		script, err := gen(job, jobDir)
		if err != nil {
			return nil, fmt.Errorf("generating run script for %s: %w", job.ID, err)
		}
		if err := os.WriteFile(filepath.Join(jobDir, "run.sh"), []byte(script), 0o755); err != nil {
			return nil, fmt.Errorf("writing run script for %s: %w", job.ID, err)
		}

		logLines = append(logLines, fmt.Sprintf("created %s", filepath.Join(Generation1, job.ID)))
	}

	manifestPath, logPath, err := writeManifests(studyName, studyDir, root, logLines)
	if err != nil {
		return nil, err
	}

	logger.Info("Tree folders are ready.",
		"study", studyName, "jobs", len(jobs), "dir", studyDir, "elapsed", time.Since(start))

	return &WriteResult{
		StudyDir:     studyDir,
		ManifestPath: manifestPath,
		LogPath:      logPath,
	}, nil
}

// writeGeneration1Config writes the first-generation node's own config: its
// particle and optics sections, without the per-job children.
func writeGeneration1Config(root confmap.Tree, gen1Dir string) error {
	gen1, ok := confmap.Get(root, RootKey, "children", Generation1)
	if !ok {
		return fmt.Errorf("assembled tree has no %s node", Generation1)
	}
	gen1Tree, ok := gen1.(confmap.Tree)
	if !ok {
		return fmt.Errorf("%s node is not a mapping", Generation1)
	}

	cfg := confmap.DeepCopy(gen1Tree)
	delete(cfg, "children")
	return writeYAML(filepath.Join(gen1Dir, "config.yaml"), cfg)
}

// writeManifests writes tree_maker.json and tree_maker.log at the study root
// and renames both to carry the study name, mirroring the tree-maker
// contract downstream tooling expects.
func writeManifests(studyName, studyDir string, root confmap.Tree, logLines []string) (string, string, error) {
	rawManifest, err := json.MarshalIndent(root, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("encoding manifest: %w", err)
	}
	plainManifest := filepath.Join(studyDir, "tree_maker.json")
	if err := os.WriteFile(plainManifest, rawManifest, 0o644); err != nil {
		return "", "", fmt.Errorf("writing manifest: %w", err)
	}

	plainLog := filepath.Join(studyDir, "tree_maker.log")
	var logBody []byte
	for _, line := range logLines {
		logBody = append(logBody, line...)
		logBody = append(logBody, '\n')
	}
	if err := os.WriteFile(plainLog, logBody, 0o644); err != nil {
		return "", "", fmt.Errorf("writing log: %w", err)
	}

	manifestPath := filepath.Join(studyDir, fmt.Sprintf("tree_maker_%s.json", studyName))
	logPath := filepath.Join(studyDir, fmt.Sprintf("tree_maker_%s.log", studyName))
	if err := os.Rename(plainManifest, manifestPath); err != nil {
		return "", "", fmt.Errorf("renaming manifest: %w", err)
	}
	if err := os.Rename(plainLog, logPath); err != nil {
		return "", "", fmt.Errorf("renaming log: %w", err)
	}
	return manifestPath, logPath, nil
}

func writeYAML(path string, tree confmap.Tree) error {
	raw, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

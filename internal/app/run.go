package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/scangridgo/internal/bunchsel"
	"github.com/vk/scangridgo/internal/ctxlog"
	"github.com/vk/scangridgo/internal/fillsch"
	"github.com/vk/scangridgo/internal/manifest"
	"github.com/vk/scangridgo/internal/scangrid"
	"github.com/vk/scangridgo/internal/tree"
)

// registryFile is the SQLite job registry written next to the JSON manifest.
const registryFile = "tree_maker.db"

// Run executes the full generation pipeline: filling scheme, bunch
// resolution, scan expansion, tree assembly, filesystem write, registry.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	start := time.Now()

	s := a.study

	scheme, patternPath, err := a.loadScheme(ctx)
	if err != nil {
		return err
	}

	iBunchB1, iBunchB2 := s.BeamBeam.IBunchB1, s.BeamBeam.IBunchB2
	if s.BeamBeam.CheckBunchNumber {
		var policy bunchsel.Policy = bunchsel.Interactive{In: os.Stdin, Out: a.outW}
		if a.config.NonInteractive {
			policy = bunchsel.PreferWorst{}
		}
		r1, r2, err := bunchsel.Resolve(ctx, scheme, iBunchB1, iBunchB2,
			s.BeamBeam.LongRangeWindow, policy)
		if err != nil {
			return fmt.Errorf("resolving bunch indices: %w", err)
		}
		iBunchB1, iBunchB2 = &r1, &r2
	}

	template := s.JobTemplate(patternPath, iBunchB1, iBunchB2)
	axes := a.scanAxes(scheme)

	derivations := []scangrid.Derivation{{
		Path: []string{"config_simulation", "particle_file"},
		Render: func(picks map[string]any) any {
			return fmt.Sprintf("../particles/%02d.parquet", picks["split"])
		},
	}}

	res, err := scangrid.Expand(template, axes, scangrid.SequentialNames("xtrack_", 4), derivations)
	if err != nil {
		return fmt.Errorf("expanding scan grid: %w", err)
	}
	a.logger.Info("Scan grid expanded.", "jobs", len(res.Order), "axes", len(axes))

	jobs := make([]tree.Job, 0, len(res.Order))
	for _, id := range res.Order {
		picks := res.Picks[id]
		job := tree.Job{ID: id, Config: res.Variants[id], Bunch: -1}
		if split, ok := picks["split"].(int); ok {
			job.Split = split
		}
		if bunch, ok := picks["bunch"].(int); ok {
			job.Bunch = bunch
		}
		jobs = append(jobs, job)
	}

	base, err := tree.LoadBaseConfig(a.config.BaseConfigPath)
	if err != nil {
		return err
	}

	envScript, err := a.envScript()
	if err != nil {
		return err
	}

	assembled, err := tree.Assemble(base, s.ParticlesConfig(), s.MadConfig(), jobs, envScript)
	if err != nil {
		return fmt.Errorf("assembling tree: %w", err)
	}

	result, err := tree.Write(ctx, s.Name, assembled, jobs,
		tree.NewHTCondorScript(envScript), a.config.OutputDir)
	if err != nil {
		return fmt.Errorf("writing tree: %w", err)
	}

	if err := a.recordRegistry(ctx, result.StudyDir, jobs); err != nil {
		return err
	}

	a.logger.Info("Done with the tree creation.",
		"study", s.Name, "jobs", len(jobs), "dir", result.StudyDir, "elapsed", time.Since(start))
	a.logger.Debug("App.Run method finished.")
	return nil
}

// loadScheme loads the filling scheme when the study references one,
// reformatting legacy LPC exports on the fly. The returned path is the
// effective pattern path the jobs must point at (the converted file when a
// reformat happened), made absolute so jobs work from any directory.
func (a *App) loadScheme(ctx context.Context) (*fillsch.Scheme, string, error) {
	ref := a.study.BeamBeam.SchemeFile
	if ref == "" {
		a.logger.Info("No filling scheme configured; jobs assume a full fill.")
		return nil, "", nil
	}

	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, "", fmt.Errorf("resolving scheme path: %w", err)
	}

	scheme, effective, err := fillsch.Load(abs)
	if err != nil {
		return nil, "", fmt.Errorf("loading filling scheme: %w", err)
	}
	if effective != abs {
		ctxlog.FromContext(ctx).Info("Filling scheme reformatted from LPC export.",
			"original", abs, "converted", effective)
	}
	return scheme, effective, nil
}

// scanAxes builds the axis list: the implicit split axis, the implicit bunch
// axis over identical-bunch family leaders when a scheme is present, then
// the study's explicit axes in declared order.
func (a *App) scanAxes(scheme *fillsch.Scheme) []scangrid.Axis {
	splitValues := make([]any, a.study.Particles.NSplit)
	for i := range splitValues {
		splitValues[i] = i
	}
	axes := []scangrid.Axis{{Name: "split", Values: splitValues}}

	if scheme != nil {
		leaders := scheme.FamilyLeaders(fillsch.Beam1)
		bunchValues := make([]any, len(leaders))
		for i, b := range leaders {
			bunchValues[i] = b
		}
		axes = append(axes, scangrid.Axis{
			Name:   "bunch",
			Path:   []string{"config_collider", "config_beambeam", "mask_with_filling_pattern", "i_bunch_b1"},
			Values: bunchValues,
		})
	}

	for _, ax := range a.study.Axes {
		axes = append(axes, scangrid.Axis{Name: ax.Name, Path: ax.Path, Values: ax.Values})
	}
	return axes
}

// envScript resolves the environment activation script sourced by every run
// script. Defaults to the miniforge layout one level above the working
// directory.
func (a *App) envScript() (string, error) {
	if a.config.EnvScript != "" {
		return filepath.Abs(a.config.EnvScript)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return filepath.Join(cwd, "..", "miniforge", "bin", "activate"), nil
}

func (a *App) recordRegistry(ctx context.Context, studyDir string, jobs []tree.Job) error {
	store, err := manifest.Open(filepath.Join(studyDir, registryFile))
	if err != nil {
		return fmt.Errorf("opening job registry: %w", err)
	}
	defer func() { _ = store.Close() }()

	jobPaths := make(map[string]string, len(jobs))
	for _, job := range jobs {
		jobPaths[job.ID] = filepath.Join(tree.Generation1, job.ID)
	}
	if err := store.RecordStudy(ctx, a.study.Name, jobs, jobPaths); err != nil {
		return fmt.Errorf("recording job registry: %w", err)
	}
	a.logger.Debug("Job registry recorded.", "jobs", len(jobs))
	return nil
}

package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	StudyPath      string // hcl study definition (file or directory)
	BaseConfigPath string // tree-maker base config (yaml)
	OutputDir      string // where scans/<study>/ is created
	EnvScript      string // environment activation script for run scripts

	LogFormat      string
	LogLevel       string
	NonInteractive bool
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.StudyPath == "" {
		return nil, errors.New("StudyPath is a required configuration field and cannot be empty")
	}
	if cfg.BaseConfigPath == "" {
		cfg.BaseConfigPath = "config.yaml"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "."
	}
	return &cfg, nil
}

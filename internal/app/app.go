package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/scangridgo/internal/ctxlog"
	"github.com/vk/scangridgo/internal/study"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	study  *study.Study
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and a loaded,
// validated study definition.
func NewApp(outW io.Writer, appConfig *Config) (*App, error) {
	logger := newLogger(appConfig.LogLevel, appConfig.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	s, err := study.Load(ctx, appConfig.StudyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load study definition: %w", err)
	}
	logger.Debug("Study definition loaded.", "study", s.Name)

	return &App{
		outW:   outW,
		logger: logger,
		config: appConfig,
		study:  s,
	}, nil
}

// Study returns the loaded study definition. This is primarily for testing.
func (a *App) Study() *study.Study {
	return a.study
}

// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"modlink/internal/config"
	"modlink/internal/finder"
	"modlink/pkg/modlink"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: all Cobra command handlers receive an App
	// reference and reach the engine through it.
	App struct {
		Config ConfigProvider
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp. Tests supply
	// mock implementations to isolate specific behavior.
	Dependencies struct {
		Config ConfigProvider
		Stdout io.Writer
		Stderr io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// session is one opened registry plus the finder it draws modules from.
	// Commands open a session, do their work, and close it before returning.
	session struct {
		registry *modlink.Registry
		finder   *finder.DirFinder
	}
)

// NewApp builds an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	return &App{
		Config: deps.Config,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// loadConfig loads the effective configuration, honoring the --config flag.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
}

// openSession builds a registry over the configured search paths.
// The caller must close the returned session.
func (a *App) openSession(ctx context.Context) (*session, error) {
	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	logger := newLogger(a.stderr, cfg)

	roots := make([]string, 0, len(cfg.SearchPaths)+1)
	for _, p := range cfg.SearchPaths {
		roots = append(roots, string(p))
	}
	// The user modules directory is always on the path, after explicit entries.
	if modDir, dirErr := config.ModulesDir(); dirErr == nil {
		roots = append(roots, modDir)
	}

	df := finder.NewDirFinder(logger, roots...)
	reg := modlink.NewRegistry(
		modlink.WithRegistryName(cfg.Registry.Name),
		modlink.WithLogger(logger),
		modlink.WithFinder(df),
	)

	return &session{registry: reg, finder: df}, nil
}

func (s *session) close() error { return s.registry.Close() }

// newLogger builds the shared logger at the configured level. The --verbose
// flag forces debug regardless of config.
func newLogger(w io.Writer, cfg *config.Config) *log.Logger {
	level := log.InfoLevel
	switch cfg.Log.Level {
	case config.LogLevelDebug:
		level = log.DebugLevel
	case config.LogLevelInfo:
		level = log.InfoLevel
	case config.LogLevelWarn:
		level = log.WarnLevel
	case config.LogLevelError:
		level = log.ErrorLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: false,
	})
}

// Package bootstrap assembles the pieces every macrodash binary needs:
// environment, configuration, logger, tracing, catalog and fetch pipeline.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"macrodash/internal/catalog"
	"macrodash/internal/config"
	"macrodash/internal/fetch"
	"macrodash/internal/logging"
	"macrodash/internal/providers/gemini"
	"macrodash/internal/telemetry"
)

var Version = "dev"

type Runtime struct {
	Config  *config.Config
	Logger  *zap.Logger
	Catalog catalog.Catalog

	shutdownTracing telemetry.ShutdownFunc
}

// LoadEnv reads .env from the working directory when it exists.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func Init(ctx context.Context, cfgFile string) (*Runtime, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}

	cat, err := cfg.LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	shutdown, err := telemetry.InitProvider(ctx, cfg.TelemetryConfig(Version))
	if err != nil {
		return nil, err
	}

	logger.Debug("runtime initialized",
		zap.String("version", Version),
		zap.Int("indicators", cat.Len()),
		zap.Bool("tracing", cfg.Telemetry.Enabled),
	)
	return &Runtime{Config: cfg, Logger: logger, Catalog: cat, shutdownTracing: shutdown}, nil
}

// Orchestrator builds the Gemini-backed fetch pipeline. It fails with
// gemini.ErrMissingAPIKey when no key is configured.
func (r *Runtime) Orchestrator() (*fetch.Orchestrator, error) {
	provider, err := gemini.NewWithConfig(r.Config.GeminiProviderConfig())
	if err != nil {
		return nil, err
	}
	return fetch.New(provider, r.Catalog, fetch.WithLogger(r.Logger)), nil
}

func (r *Runtime) Close(ctx context.Context) {
	if r.shutdownTracing != nil {
		if err := r.shutdownTracing(ctx); err != nil {
			r.Logger.Warn("tracing shutdown", zap.Error(err))
		}
	}
	_ = r.Logger.Sync()
}

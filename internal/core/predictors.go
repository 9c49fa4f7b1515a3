package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/agenthands/spliced/internal/config"
	"github.com/agenthands/spliced/internal/core/extraction"
	"github.com/agenthands/spliced/internal/core/model"
	"github.com/agenthands/spliced/internal/core/predict"
	"github.com/agenthands/spliced/internal/driver"
	"github.com/agenthands/spliced/internal/oracle"
)

// Packages providing each external tool, for the package manager fallback.
const (
	libabigailPackage = "libabigail"
	smeaglePackage    = "smeagle"
)

// NewPredictors builds the default predictor set. Tools are located on first
// use, so a missing tool disables only the predictor that needs it.
func NewPredictors(cfg *config.Config, log *slog.Logger) []predict.Predictor {
	if log == nil {
		log = slog.Default()
	}
	runner := oracle.NewRunner(cfg.ToolTimeout(), log)

	var manager oracle.PackageManager
	if cfg.Tools.PackageManager != "" {
		manager = &oracle.Spack{Binary: cfg.Tools.PackageManager, Install: cfg.Tools.Install, Runner: runner}
	}
	locator := oracle.NewLocator(manager, log)
	workers := cfg.Concurrency.Workers

	return []predict.Predictor{
		predict.NewSymbols(log),
		predict.Defer(model.PredictorLibabigail, func(ctx context.Context) (predict.Predictor, error) {
			path, err := locator.Find(ctx, cfg.Tools.Abicompat, libabigailPackage)
			if err != nil {
				return nil, err
			}
			return predict.NewLibabigail(&oracle.Abicompat{Path: path, Runner: runner}, workers, log), nil
		}),
		predict.Defer(model.PredictorSmeagle, func(ctx context.Context) (predict.Predictor, error) {
			extractor, err := locator.Find(ctx, cfg.Tools.Smeagle, smeaglePackage)
			if err != nil {
				return nil, err
			}
			compat, err := locator.Find(ctx, cfg.Tools.SmeagleCompat, smeaglePackage)
			if err != nil {
				return nil, err
			}
			return predict.NewSmeagle(
				&oracle.Structural{Path: compat, Runner: runner},
				extraction.NewToolExtractor(extractor, runner),
				cfg.CacheDir(),
				workers,
				log,
			), nil
		}),
	}
}

// Open builds an engine from configuration, connecting to the graph store
// when one is configured.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}
	e := NewEngine(NewPredictors(cfg, log), nil, log)
	if cfg.Memgraph.URI == "" {
		log.Info("no graph store configured, predictions will not be stored")
		return e, nil
	}

	d, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to memgraph: %w", err)
	}
	e.Driver = d
	if err := e.BuildIndices(ctx); err != nil {
		_ = d.Close(ctx)
		return nil, err
	}
	return e, nil
}

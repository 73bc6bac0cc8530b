package commands

import (
	"context"
	"fmt"

	"github.com/wonny/salescast/internal/artifacts"
	"github.com/wonny/salescast/internal/featurestore"
	"github.com/wonny/salescast/internal/features"
	"github.com/wonny/salescast/internal/modelspec"
	"github.com/wonny/salescast/internal/pipeline"
	"github.com/wonny/salescast/internal/serving"
	"github.com/wonny/salescast/pkg/config"
	"github.com/wonny/salescast/pkg/database"
	"github.com/wonny/salescast/pkg/logger"
)

// featureBackend is both ends of the feature store (parquet artifacts or PostgreSQL)
type featureBackend interface {
	featurestore.Source
	featurestore.Sink
}

// app holds the dependencies shared by every command
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	spec  *modelspec.Spec
	store artifacts.Store
	db    *database.DB // nil unless FEATURE_STORE_SOURCE=postgres
}

// newApp loads config, logger, model spec and the artifact store
func newApp(ctx context.Context) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Model spec
	spec, err := modelspec.Load(cfg.ModelSpecPath)
	if err != nil {
		return nil, fmt.Errorf("load model spec: %w", err)
	}

	// 4. Artifact store
	store, err := artifacts.New(ctx, cfg.Artifacts)
	if err != nil {
		return nil, fmt.Errorf("open artifact store: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"artifact_source": cfg.Artifacts.Source,
		"feature_store":   cfg.FeatureStoreSource,
		"model_id":        spec.Meta.ModelID,
	}).Debug("Application initialized")

	return &app{cfg: cfg, log: log, spec: spec, store: store}, nil
}

// featureStore returns the configured feature store, connecting to PostgreSQL on first use
func (a *app) featureStore(ctx context.Context) (featureBackend, error) {
	if a.cfg.FeatureStoreSource != "postgres" {
		return featurestore.NewArtifactSource(a.store, a.spec.Artifacts.Prices, a.spec.Artifacts.RecentHistory), nil
	}

	if a.db == nil {
		db, err := database.New(ctx, a.cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.log.Info("Connected to database")
	}
	return featurestore.NewRepository(a.db.Pool), nil
}

// pipeline builds the offline pipeline over the artifact store and feature store
func (a *app) pipeline(ctx context.Context) (*pipeline.Pipeline, error) {
	fs, err := a.featureStore(ctx)
	if err != nil {
		return nil, err
	}
	return pipeline.New(a.store, fs, a.spec, a.log.Zerolog()), nil
}

// service loads every serving artifact
func (a *app) service(ctx context.Context, observer features.Observer) (*serving.Service, error) {
	fs, err := a.featureStore(ctx)
	if err != nil {
		return nil, err
	}
	return serving.Load(ctx, serving.Options{
		Spec:        a.spec,
		Store:       a.store,
		Source:      fs,
		ModelFormat: a.cfg.ModelFormat,
		Observer:    observer,
		Logger:      a.log.Zerolog(),
	})
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

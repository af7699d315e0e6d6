package main

import (
	"context"
	"fmt"

	"github.com/andresuchdata/autopo-replenish/internal/actionplan"
	"github.com/andresuchdata/autopo-replenish/internal/advisory"
	"github.com/andresuchdata/autopo-replenish/internal/cache"
	"github.com/andresuchdata/autopo-replenish/internal/config"
	"github.com/andresuchdata/autopo-replenish/internal/forecast"
	"github.com/andresuchdata/autopo-replenish/internal/recommendation"
	"github.com/andresuchdata/autopo-replenish/internal/repository"
	"github.com/andresuchdata/autopo-replenish/internal/repository/postgres"
	"github.com/andresuchdata/autopo-replenish/internal/storage"
	"github.com/rs/zerolog/log"
)

// stores groups the repositories behind one database handle.
type stores struct {
	db       *postgres.DB
	sqlite   bool
	history  repository.HistoryRepository
	products repository.ProductRepository
	policies repository.PolicyRepository
	plans    repository.ActionPlanRepository
	cached   *cache.CachedHistory
}

// openStores connects to Postgres, or to SQLite when sqlitePath is set.
func openStores(ctx context.Context, cfg *config.Config, sqlitePath string) (*stores, error) {
	var (
		db  *postgres.DB
		err error
	)
	if sqlitePath != "" {
		db, err = postgres.OpenSQLite(ctx, sqlitePath)
	} else {
		db, err = postgres.NewDB(&cfg.Database)
	}
	if err != nil {
		return nil, err
	}

	historyCache, err := cache.NewHistoryCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("history cache unavailable, continuing without it")
		historyCache = cache.NewNoopHistoryCache()
	}

	history := postgres.NewHistoryRepository(db)
	return &stores{
		db:       db,
		sqlite:   sqlitePath != "",
		history:  history,
		products: postgres.NewProductRepository(db),
		policies: postgres.NewPolicyRepository(db),
		plans:    postgres.NewActionPlanRepository(db),
		cached:   cache.NewCachedHistory(history, historyCache),
	}, nil
}

func (s *stores) Close() error {
	return s.db.Close()
}

// newPlanService builds the lifecycle service with the object storage archive
// when storage is enabled.
func newPlanService(ctx context.Context, cfg *config.Config, plans actionplan.Store) (*actionplan.Service, error) {
	if !cfg.Storage.Enabled {
		return actionplan.NewService(plans, nil), nil
	}

	client, err := storage.NewMinioClient(ctx, minioConfig(cfg.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to init plan archive: %w", err)
	}
	return actionplan.NewService(plans, storage.NewPlanArchiver(client, cfg.Storage.Prefix)), nil
}

func minioConfig(cfg config.StorageConfig) storage.MinioConfig {
	return storage.MinioConfig{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		UseSSL:    cfg.UseSSL,
	}
}

// newAdvisoryGuard returns nil when the advisory step is disabled or misconfigured.
func newAdvisoryGuard(cfg *config.Config) recommendation.AdvisoryGuard {
	if !cfg.Forecast.AdvisoryEnabled {
		return nil
	}

	client, err := advisory.NewClient(advisory.ClientConfig{
		BaseURL:      cfg.Advisory.BaseURL,
		APIKey:       cfg.Advisory.APIKey,
		Model:        cfg.Advisory.Model,
		Timeout:      cfg.Advisory.Timeout,
		MaxRetries:   cfg.Advisory.MaxRetries,
		TokenURL:     cfg.Advisory.TokenURL,
		ClientID:     cfg.Advisory.ClientID,
		ClientSecret: cfg.Advisory.ClientSecret,
		Scopes:       cfg.Advisory.Scopes,
	})
	if err != nil {
		log.Warn().Err(err).Msg("advisory client disabled")
		return nil
	}

	return advisory.NewGuard(client, advisory.GuardConfig{
		Enabled:   true,
		Threshold: cfg.Forecast.DeviationThreshold,
		Timeout:   cfg.Advisory.Timeout,
	})
}

func newRecommendationService(cfg *config.Config, st *stores, plans *actionplan.Service) *recommendation.Service {
	resolver := forecast.NewResolver(forecast.Config{
		SmoothingAlpha: cfg.Forecast.SmoothingAlpha,
		LookupTimeout:  cfg.Forecast.LookupTimeout,
	}, st.cached, st.products)

	recCfg := recommendation.DefaultConfig()
	recCfg.DefaultLeadTimeDays = cfg.Forecast.DefaultLeadTimeDays
	recCfg.DefaultServiceLevel = cfg.Forecast.DefaultServiceLevel
	recCfg.SmoothingAlpha = cfg.Forecast.SmoothingAlpha
	recCfg.CorrelationRho = cfg.Forecast.CorrelationRho
	recCfg.BatchConcurrency = cfg.Forecast.BatchConcurrency
	recCfg.LookupTimeout = cfg.Forecast.LookupTimeout

	return recommendation.NewService(resolver, newAdvisoryGuard(cfg), recCfg).
		WithHistory(st.cached).
		WithPolicyStore(st.policies).
		WithPlans(plans)
}

// Package control wires the extraction service together and manages its
// lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/robfig/cron/v3"

	"github.com/joblens/extractor/internal/api"
	"github.com/joblens/extractor/internal/core/config"
	"github.com/joblens/extractor/internal/extraction"
	"github.com/joblens/extractor/internal/extraction/breaker"
	"github.com/joblens/extractor/internal/extraction/cache"
	"github.com/joblens/extractor/internal/extraction/retry"
	"github.com/joblens/extractor/internal/infra/llm"
	redisclient "github.com/joblens/extractor/internal/infra/redis"
	"github.com/joblens/extractor/internal/infra/storage/postgres"
)

// Service is the main application struct that manages the extractor
// lifecycle.
type Service struct {
	cfg       *config.AppConfig
	pipeline  *extraction.Pipeline
	breakers  *breaker.Registry
	cache     cache.Store
	db        *postgres.DB
	apiServer *api.Server
	cron      *cron.Cron
	cancel    context.CancelFunc
}

// NewService creates a new Service instance with all dependencies
// initialized.
func NewService(cfg *config.AppConfig) (*Service, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}

	// 1. Initialize the response cache
	store, err := newCache(cfg)
	if err != nil {
		return nil, err
	}

	// 2. Initialize provider clients and the circuit breaker registry
	breakers := breaker.NewRegistry(cfg.Breaker.CheckInterval, cfg.Breaker.CheckTimeout)
	providers := make(map[string]extraction.ProviderEntry, len(cfg.Providers))

	for _, pc := range cfg.Providers {
		client, err := llm.NewClient(pc.Kind, pc.Name, pc.BaseURL, pc.APIKey, pc.Model, pc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("failed to create provider %s: %w", pc.Name, err)
		}
		providers[pc.Name] = extraction.ProviderEntry{
			Client:      client,
			Model:       pc.Model,
			TextModel:   pc.TextModel,
			VisionModel: pc.VisionModel,
		}
		breakers.Register(pc.Name, client.Ping, breaker.Config{
			FailureThreshold: pc.FailureThreshold,
			SuccessThreshold: pc.SuccessThreshold,
			Timeout:          pc.BreakerTimeout,
		})
		slog.Info("registered provider", "provider", pc.Name, "kind", pc.Kind, "model", pc.Model)
	}

	// 3. Initialize the record sink
	var sink extraction.RecordSink
	var db *postgres.DB
	var records *postgres.RecordStore
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(context.Background(), cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		// Run migrations
		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		records = postgres.NewRecordStore(db)
		sink = records
		slog.Info("Using PostgreSQL record store")
	} else {
		sink = extraction.LogSink{}
		slog.Info("Using log-only record sink")
	}

	// 4. Assemble the pipeline
	pipeline := extraction.NewPipeline(extraction.Config{
		Primary:          cfg.Extraction.Primary,
		Fallbacks:        cfg.Extraction.Fallbacks,
		Providers:        providers,
		MaxContentLength: cfg.Extraction.MaxContentLength,
		InvokeTimeout:    cfg.Extraction.InvokeTimeout,
		Retry: retry.Config{
			MaxRetries: cfg.Extraction.MaxRetries,
			BaseDelay:  cfg.Extraction.RetryBaseDelay,
		},
		Cache:    store,
		Breakers: breakers,
		Sink:     sink,
	})

	apiServer := api.NewServer(pipeline, store, breakers, cfg.Server.Port)
	if db != nil {
		apiServer.WithRecordLookup(records)
		apiServer.WithDBHealth(db.Health)
	}

	s := &Service{
		cfg:       cfg,
		pipeline:  pipeline,
		breakers:  breakers,
		cache:     store,
		db:        db,
		apiServer: apiServer,
	}
	s.scheduleMaintenance()
	return s, nil
}

func newCache(cfg *config.AppConfig) (cache.Store, error) {
	switch cfg.Cache.Backend {
	case "redis":
		store, err := redisclient.NewCache(cfg.Redis, cfg.Cache.TTL)
		if err != nil {
			return nil, fmt.Errorf("failed to init redis cache: %w", err)
		}
		slog.Info("Using Redis response cache", "ttl", cfg.Cache.TTL)
		return store, nil
	default:
		slog.Info("Using memory response cache", "ttl", cfg.Cache.TTL)
		return cache.NewMemory(cfg.Cache.TTL), nil
	}
}

// scheduleMaintenance sets up the periodic expired-entry sweep for the
// memory cache backend. Redis expires keys itself.
func (s *Service) scheduleMaintenance() {
	mem, ok := s.cache.(*cache.Memory)
	if !ok || s.cfg.Cache.TTL <= 0 {
		return
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", s.cfg.Cache.SweepInterval)
	_, err := s.cron.AddFunc(spec, func() {
		if removed := mem.CleanExpired(); removed > 0 {
			slog.Info("swept expired cache entries", "removed", removed)
		}
	})
	if err != nil {
		slog.Warn("failed to schedule cache sweep", "error", err)
		s.cron = nil
	}
}

// Pipeline returns the extraction pipeline, used by tests and the CLI.
func (s *Service) Pipeline() *extraction.Pipeline {
	return s.pipeline
}

// Start launches the background loops and the HTTP server.
func (s *Service) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.breakers.Start(ctx)
	if s.cron != nil {
		s.cron.Start()
	}

	go func() {
		slog.Info("HTTP server listening", "port", s.cfg.Server.Port)
		if err := s.apiServer.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed", "error", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.breakers.Stop()

	if s.cron != nil {
		cronCtx := s.cron.Stop()
		select {
		case <-cronCtx.Done():
		case <-time.After(2 * time.Second):
			slog.Warn("cache sweep did not finish before shutdown")
		}
	}

	if err := s.apiServer.Stop(ctx); err != nil {
		slog.Error("failed to stop HTTP server", "error", err)
	}
	if err := s.cache.Close(); err != nil {
		slog.Error("failed to close cache", "error", err)
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}

	slog.Info("extractor stopped")
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/codex-pipeline/internal/codex"
	"github.com/jonathan/codex-pipeline/internal/config"
	"github.com/jonathan/codex-pipeline/internal/db"
	"github.com/jonathan/codex-pipeline/internal/fetch"
	"github.com/jonathan/codex-pipeline/internal/ingestion"
	"github.com/jonathan/codex-pipeline/internal/llm"
	"github.com/jonathan/codex-pipeline/internal/logger"
	"github.com/jonathan/codex-pipeline/internal/metrics"
	"github.com/jonathan/codex-pipeline/internal/pipeline"
	"github.com/jonathan/codex-pipeline/internal/store"
)

// loadConfig resolves settings in order: config file, environment, flags,
// then defaults.
func (o *globalOptions) loadConfig() (config.Config, error) {
	cfg := &config.Config{}
	if o.configPath != "" {
		loaded, err := config.LoadConfig(o.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return config.Config{}, err
	}

	if o.apiKey != "" {
		cfg.APIKey = o.apiKey
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.redisURL != "" {
		cfg.RedisURL = o.redisURL
	}
	if o.codexDir != "" {
		cfg.CodexDir = o.codexDir
	}
	cfg.UseBrowser = cfg.UseBrowser || o.useBrowser
	cfg.LogJSON = cfg.LogJSON || o.logJSON
	cfg.Debug = cfg.Debug || o.debug

	merged := cfg.MergeWithDefaults(config.Config{})
	if err := merged.Validate(); err != nil {
		return config.Config{}, err
	}
	return merged, nil
}

// app holds the wired collaborators for one command invocation
type app struct {
	cfg     config.Config
	log     *zap.Logger
	svc     *pipeline.Service
	readers *ingestion.Readers
	metrics *metrics.Metrics
	closers []func()
}

// newApp connects the store, cache, model client and fetcher described by
// cfg. needLLM is false for commands that never call the model.
func newApp(ctx context.Context, cfg config.Config, log *zap.Logger, needLLM bool) (_ *app, err error) {
	a := &app{cfg: cfg, log: logger.OrNop(log), metrics: metrics.New()}
	defer func() {
		if err != nil {
			a.closeAll()
		}
	}()

	var st store.Store = store.NewMemory()
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		st = conn
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = store.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = cache.Close() })
		st = store.NewCached(st, cache, 0, a.log)
	}

	registry := codex.NewRegistry(st, a.log)
	if err := registry.LoadBuiltins(ctx); err != nil {
		return nil, fmt.Errorf("failed to install built-in codexes: %w", err)
	}
	if cfg.CodexDir != "" {
		n, err := registry.LoadDir(ctx, cfg.CodexDir)
		if err != nil {
			return nil, err
		}
		a.log.Info("loaded codexes", zap.String("dir", cfg.CodexDir), zap.Int("count", n))
	}

	var gateway llm.Gateway
	var vision llm.VisionClient
	if needLLM {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required (set GEMINI_API_KEY environment variable or use --api-key flag)")
		}
		client, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		gateway = llm.NewGateway(client, time.Duration(cfg.GatewayTimeoutSeconds)*time.Second, a.log)
		if v, ok := client.(llm.VisionClient); ok {
			vision = v
		}
	}
	a.readers = ingestion.NewReaders(vision, a.log)

	fetchOpts := fetch.DefaultOptions()
	fetchOpts.UseBrowser = cfg.UseBrowser
	var fetcher fetch.Fetcher = fetch.New(fetchOpts, a.log)
	if cache != nil {
		fetcher = fetch.NewCachedFetcher(fetcher, cache, 0, a.log)
	}

	a.svc = pipeline.New(pipeline.Deps{
		Store:   st,
		Codexes: registry,
		Gateway: gateway,
		Readers: a.readers,
		Fetcher: fetcher,
		Metrics: a.metrics,
		Logger:  a.log,
	}, pipeline.Options{
		Workers:          cfg.Workers,
		QueueSize:        cfg.QueueSize,
		BatchConcurrency: cfg.BatchConcurrency,
	})
	return a, nil
}

// Close drains the worker pool, then releases connections
func (a *app) Close() {
	if a.svc != nil {
		a.svc.Close()
	}
	a.closeAll()
}

func (a *app) closeAll() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// commandLogger logs to stdout for the server. One-shot commands print
// results on stdout, so they only log when debugging.
func commandLogger(cfg config.Config, server bool) (*zap.Logger, error) {
	if !server && !cfg.Debug {
		return zap.NewNop(), nil
	}
	return logger.New(cfg.LogJSON, cfg.Debug)
}

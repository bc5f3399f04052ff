// Package app wires the knowledge engine from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/carekb/internal/config"
	"github.com/kailas-cloud/carekb/internal/corpus"
	"github.com/kailas-cloud/carekb/internal/db"
	dbRedis "github.com/kailas-cloud/carekb/internal/db/redis"
	"github.com/kailas-cloud/carekb/internal/db/sqlite"
	domcol "github.com/kailas-cloud/carekb/internal/domain/collection"
	"github.com/kailas-cloud/carekb/internal/domain/search/intent"
	"github.com/kailas-cloud/carekb/internal/domain/search/request"
	"github.com/kailas-cloud/carekb/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/carekb/internal/logger"
	"github.com/kailas-cloud/carekb/internal/metrics"
	budgetrepo "github.com/kailas-cloud/carekb/internal/repository/budget"
	"github.com/kailas-cloud/carekb/internal/repository/chunkindex"
	"github.com/kailas-cloud/carekb/internal/repository/embcache"
	"github.com/kailas-cloud/carekb/internal/tokenizer"
	chiTransport "github.com/kailas-cloud/carekb/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/carekb/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/carekb/internal/usecase/collection"
	embeddinguc "github.com/kailas-cloud/carekb/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/carekb/internal/usecase/health"
	"github.com/kailas-cloud/carekb/internal/usecase/keyword"
	"github.com/kailas-cloud/carekb/internal/usecase/router"
	searchuc "github.com/kailas-cloud/carekb/internal/usecase/search"
	usageuc "github.com/kailas-cloud/carekb/internal/usecase/usage"
	"github.com/kailas-cloud/carekb/internal/version"
)

// App is the assembled engine: storage, embedding chain, collections and search.
type App struct {
	cfg         config.Config
	logger      *zap.Logger
	store       db.Store
	collections *collectionuc.Manager
	search      *searchuc.Service
	health      *healthuc.Service
	server      *chiTransport.Server
}

// Open loads the configuration of env, creates the logger and builds the engine.
func Open(ctx context.Context, env string) (*App, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting carekb",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("corpus_root", cfg.Corpus.Root),
	)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// New builds the engine. The store must become ready within the configured
// readiness timeout; collections are not loaded until Initialize.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := openStore(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterKnowledgeMetrics()

	emb := cfg.Embedding

	// Pass nil interfaces, not typed nil pointers, when no budget is configured.
	var (
		budget       embeddinguc.BudgetChecker
		budgetReader usageuc.BudgetReader
	)
	if emb.Budget.DailyTokenLimit > 0 || emb.Budget.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if emb.Budget.Action == string(embeddinguc.BudgetActionReject) {
			action = embeddinguc.BudgetActionReject
		}
		tracker := embeddinguc.NewBudgetTracker(
			emb.Provider, emb.Budget.DailyTokenLimit, emb.Budget.MonthlyTokenLimit, action, logger,
		).WithStore(ctx, budgetrepo.New(store, 48*time.Hour, 62*24*time.Hour))
		budget, budgetReader = tracker, tracker
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     emb.APIKey,
		BaseURL:    emb.BaseURL,
		Model:      emb.Model,
		Dimensions: emb.Dimensions,
		Provider:   emb.Provider,
		Logger:     logger,
	})
	instrumented := embeddinguc.NewInstrumentedEmbedder(base, emb.Provider, emb.Model, budget, logger).
		WithMaxBatch(emb.Batch.MaxItems)

	cache, err := embcache.NewCache(store, emb.MemoryCacheSize, metrics.EmbeddingCacheTotal, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("embedding cache: %w", err)
	}

	counter, err := tokenizer.New(emb.Tokenizer)
	if err != nil {
		logger.Warn("Tokenizer unavailable, estimating token counts", zap.Error(err))
	}

	pipeline := embeddinguc.NewPipeline(instrumented, cache, counter, embeddinguc.PipelineConfig{
		MaxItems:  emb.Batch.MaxItems,
		MaxTokens: emb.Batch.MaxTokens,
		Delay:     time.Duration(emb.Batch.DelayMs) * time.Millisecond,
		Timeout:   time.Duration(emb.TimeoutSec) * time.Second,
	}, logger)

	repo := chunkindex.New(store).WithHNSW(chunkindex.HNSWConfig{
		M:           cfg.Index.HNSWM,
		EFConstruct: cfg.Index.HNSWEFConstruct,
	})
	loader := corpus.NewLoader(cfg.Corpus.Root, cfg.Corpus.Ceiling, logger)

	manager, err := collectionuc.NewManager(sources(cfg.Corpus), loader, pipeline, repo, logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("collection manager: %w", err)
	}

	routes := router.New(router.Roles{
		General:    cfg.DomainFor(config.RoleGeneral),
		Medication: cfg.DomainFor(config.RoleMedication),
	}, intent.FilterOptions{MedicationItemLimit: cfg.Search.MedicationItemLimit})

	engine := searchuc.NewEngine(manager, keyword.New(manager), embcache.NewEmbedder(instrumented, cache), searchuc.EngineConfig{
		VectorWeight:  cfg.Search.VectorWeight,
		KeywordWeight: cfg.Search.KeywordWeight,
		Fusion:        searchuc.Fusion(cfg.Search.Fusion),
		Timeout:       time.Duration(emb.TimeoutSec) * time.Second,
	}, logger)
	searchSvc := searchuc.New(routes, engine, logger)

	healthSvc := healthuc.New(store, base, manager)
	server := chiTransport.NewServer(searchSvc, manager, healthSvc, cfg.Search.DefaultK, logger).
		WithUsage(usageuc.New(budgetReader, emb.Provider, emb.Model))

	logger.Info("Engine assembled",
		zap.String("provider", emb.Provider),
		zap.String("model", emb.Model),
		zap.Strings("domains", manager.Domains()),
	)

	return &App{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		collections: manager,
		search:      searchSvc,
		health:      healthSvc,
		server:      server,
	}, nil
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		return dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
	case config.DriverSQLite, "":
		return sqlite.NewStore(sqlite.Config{Path: cfg.Path})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func sources(cfg config.CorpusConfig) []corpus.Source {
	out := make([]corpus.Source, 0, len(cfg.Domains))
	for _, d := range cfg.Domains {
		out = append(out, corpus.Source{
			Domain:     d.Name,
			Kind:       domcol.Kind(d.Kind),
			Dir:        d.Dir,
			Extensions: d.Extensions,
		})
	}
	return out
}

// Initialize loads or builds every configured collection.
func (a *App) Initialize(ctx context.Context) map[string]domcol.Collection {
	return a.collections.Initialize(ctx)
}

// Search answers one request.
func (a *App) Search(ctx context.Context, req request.Request) ([]result.Scored, error) {
	return a.search.Search(ctx, req)
}

// Status reports every collection's lifecycle.
func (a *App) Status() []domcol.Collection {
	return a.collections.Status()
}

// Rebuild rebuilds one collection from the corpus.
func (a *App) Rebuild(ctx context.Context, name string) (domcol.Collection, error) {
	return a.collections.Rebuild(ctx, name)
}

// Reset drops every persisted generation.
func (a *App) Reset(ctx context.Context) error {
	return a.collections.Reset(ctx)
}

// Health aggregates component health.
func (a *App) Health(ctx context.Context) healthuc.Report {
	return a.health.Check(ctx)
}

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler {
	return a.server.Router(a.cfg.Auth.APIKeys)
}

// Serve starts the HTTP API, initializes collections in the background and
// blocks until ctx is cancelled, then shuts down gracefully.
func (a *App) Serve(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Handler(),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	initCtx, stopInit := context.WithCancel(ctx)
	defer stopInit()
	go func() {
		cols := a.Initialize(initCtx)
		ready := 0
		for _, c := range cols {
			if c.Ready() {
				ready++
			}
		}
		a.logger.Info("Collections initialized", zap.Int("ready", ready), zap.Int("total", len(cols)))
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}

// Close stops rebuilds, releases the store and flushes the logger.
func (a *App) Close() {
	a.collections.Shutdown()
	a.store.Close()
	_ = a.logger.Sync()
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"DailyReleases/internal/classifier"
	"DailyReleases/internal/config"
	"DailyReleases/internal/domain"
	"DailyReleases/internal/enrichment"
	"DailyReleases/internal/infrastructure/discord"
	"DailyReleases/internal/infrastructure/httpcache"
	"DailyReleases/internal/infrastructure/nfo"
	"DailyReleases/internal/infrastructure/parser"
	"DailyReleases/internal/infrastructure/scheduler"
	"DailyReleases/internal/infrastructure/storage"
	"DailyReleases/internal/infrastructure/stores"
	"DailyReleases/internal/ports"
	"DailyReleases/internal/report"
	"DailyReleases/internal/scanner"
	"DailyReleases/internal/usecase"
	"DailyReleases/pkg/logger"
)

// shutdownTimeout bounds how long the daemon waits for a running job on exit.
const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *storage.Store
	cache      *httpcache.Cache
	classifier *classifier.Classifier
	enricher   *enrichment.Enricher
	pipeline   *usecase.Pipeline
	retry      usecase.RetryPolicy
}

// New opens the database and builds every component from cfg.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = slog.New(slog.DiscardHandler)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	store, err := storage.Open(ctx, cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cache := httpcache.New(
		store,
		httpcache.NewHTTPFetcher(cfg.Web.Timeout, cfg.Web.UserAgent),
		httpcache.NewLimiter(cfg.Web.RateLimit),
		httpcache.WithDefaultTTL(cfg.Web.CacheTime),
		httpcache.WithLogger(logger.Component(baseLogger, "httpcache")),
	)

	registry := scanner.NewRegistry(
		parser.NewPredbScanner(cache),
		parser.NewXrelScanner(cache),
		parser.NewXrelP2PScanner(cache),
	)
	if err := cfg.CheckScanners(registry.Names()); err != nil {
		_ = store.Close()
		return nil, err
	}
	source := parser.NewStrategySource(registry, cfg.Sources, logger.Component(baseLogger, "source"))
	if cfg.Main.BackupNFOs {
		source.WithArchiver(nfo.NewArchiver(cache, cfg.NFODir(), logger.Component(baseLogger, "nfo")))
	}

	cls := classifier.New(logger.Component(baseLogger, "classifier"))
	enricher := newEnricher(cfg, cache, baseLogger)

	deps := usecase.PipelineDeps{
		Source:     source,
		Ledger:     store,
		Classifier: cls,
		Renderer:   report.NewRenderer(cfg.EpiloguePath(), logger.Component(baseLogger, "report")),
		Cleaner:    cache,
		Post:       cfg.Main.Post,
		Retention:  cfg.Web.Retention,
		Logger:     logger.Component(baseLogger, "pipeline"),
	}
	if enricher != nil {
		deps.Enricher = enricher
	}
	if url := cfg.Notifications.Discord.WebhookURL; url != "" {
		deps.Notifier = discord.NewNotifier(url)
	}

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		cache:      cache,
		classifier: cls,
		enricher:   enricher,
		pipeline:   usecase.NewPipeline(deps),
		retry: usecase.RetryPolicy{
			MaxAttempts: cfg.Main.RetryAttempts,
			Delay:       cfg.Main.RetryDelay,
			Logger:      logger.Component(baseLogger, "retry"),
		},
	}, nil
}

func newEnricher(cfg config.Config, getter httpcache.Getter, base *slog.Logger) *enrichment.Enricher {
	var (
		providers []stores.Provider
		opts      = []enrichment.Option{
			enrichment.RequireLink(cfg.Main.RequireStoreLink),
			enrichment.WithLogger(logger.Component(base, "enrichment")),
			enrichment.WithMemoTTL(cfg.Web.CacheTime),
		}
	)
	if cfg.Stores.Steam.Enabled {
		steam := stores.NewSteam(getter, logger.Component(base, "stores.steam"))
		providers = append(providers, steam)
		opts = append(opts, enrichment.WithDetailer(steam))
	}
	if cfg.Stores.GOG.Enabled {
		providers = append(providers, stores.NewGOG(getter, logger.Component(base, "stores.gog")))
	}
	if cfg.Stores.Epic.Enabled {
		providers = append(providers, stores.NewEpic(getter, logger.Component(base, "stores.epic")))
	}
	google := cfg.Stores.Google
	if google.Enabled() {
		opts = append(opts, enrichment.WithFallback(
			stores.NewWebSearch(getter, google.Key, google.CX, logger.Component(base, "stores.web")),
		))
	}
	if len(providers) == 0 && !google.Enabled() {
		return nil
	}
	return enrichment.New(providers, opts...)
}

// Run performs one pipeline execution, retried per the configured policy.
func (a *Application) Run(ctx context.Context) (usecase.Result, error) {
	var res usecase.Result
	err := a.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = a.pipeline.Run(ctx)
		return err
	})
	return res, err
}

// Daemon runs the pipeline every day at the configured time until ctx ends.
func (a *Application) Daemon(ctx context.Context) error {
	hour, minute, err := a.cfg.Scheduler.TimeOfDay()
	if err != nil {
		return err
	}
	driver := scheduler.NewDailyScheduler(hour, minute, a.cfg.Scheduler.Location(), a.cfg.Scheduler.RunOnStart)
	sched := usecase.NewScheduler(driver, func(ctx context.Context) error {
		_, err := a.Run(ctx)
		return err
	}, logger.Component(a.logger, "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	next := driver.NextRun(time.Now())
	a.logger.Info("daemon started", "next_run", next, "timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("daemon stopped")
	return nil
}

// CleanResult counts what Clean removed.
type CleanResult struct {
	Responses int64
	Processed int64
}

// Clean drops cached responses and processed dirnames older than the retention.
func (a *Application) Clean(ctx context.Context) (CleanResult, error) {
	var res CleanResult
	var err error
	if res.Responses, err = a.cache.Clean(ctx, a.cfg.Web.Retention); err != nil {
		return res, fmt.Errorf("clean cache: %w", err)
	}
	if res.Processed, err = a.store.PruneProcessed(ctx, time.Now().Add(-a.cfg.Web.Retention)); err != nil {
		return res, fmt.Errorf("prune processed: %w", err)
	}
	return res, nil
}

// Classify classifies a single dirname as if it was published now, optionally
// looking it up in the stores.
func (a *Application) Classify(ctx context.Context, dirname string, enrich bool) (domain.ClassifiedRelease, error) {
	release, err := a.classifier.Classify(domain.RawRelease{Dirname: dirname, PublishedAt: time.Now()})
	if err != nil {
		return domain.ClassifiedRelease{}, err
	}
	if enrich && a.enricher != nil {
		if err := a.enricher.Enrich(ctx, &release); err != nil {
			return release, err
		}
	}
	return release, nil
}

// Close releases the database.
func (a *Application) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

var (
	_ ports.ReleaseLedger = (*storage.Store)(nil)
	_ ports.CacheCleaner  = (*httpcache.Cache)(nil)
)

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"MomentumScanner/internal/config"
	"MomentumScanner/internal/entity"
	"MomentumScanner/internal/infrastructure/cache"
	"MomentumScanner/internal/infrastructure/fetch"
	"MomentumScanner/internal/infrastructure/filings"
	"MomentumScanner/internal/infrastructure/httpapi"
	"MomentumScanner/internal/infrastructure/llm"
	"MomentumScanner/internal/infrastructure/parser"
	"MomentumScanner/internal/infrastructure/scheduler"
	"MomentumScanner/internal/infrastructure/storage"
	"MomentumScanner/internal/infrastructure/telegram"
	"MomentumScanner/internal/logging"
	"MomentumScanner/internal/ports"
	"MomentumScanner/internal/scanner"
	"MomentumScanner/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// ErrNoDatabase is returned by Serve when no database DSN is configured.
var ErrNoDatabase = errors.New("database.dsn is required to serve the results API")

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	news     *usecase.NewsPipeline
	analysis *usecase.AnalysisService
	repo     ports.AnalysisRepository
	closers  []func() error
}

// New builds the application. Optional integrations (database, Redis,
// summarizer, Telegram) are enabled only when configured.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, nil)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	matcher := loadMatcher(cfg.Entities, baseLogger)

	registry := scanner.NewRegistry()
	registry.Register(parser.NewNaverScanner(cfg.Search.Naver, cfg.Pipeline.TitleDenylist, matcher, nil,
		baseLogger.With("component", "scanner.naver")))
	source := parser.NewStrategySource(registry, cfg.Search.Providers, baseLogger.With("component", "source"))

	deps := usecase.PipelineDeps{
		Source:  source,
		Fetcher: fetch.NewFetcher(cfg.Pipeline, nil, baseLogger.With("component", "fetch")),
		Extract: parser.ExtractBody,
		Matcher: matcher,
		Config:  cfg.Pipeline,
		Logger:  baseLogger.With("component", "pipeline"),
	}
	if bodyCache := a.openCache(ctx); bodyCache != nil {
		deps.Cache = bodyCache
	}
	a.news = usecase.NewNewsPipeline(deps)

	analysisDeps := usecase.AnalysisDeps{
		News:    a.news,
		Filings: filings.NewClient(cfg.Filings),
		Matcher: matcher,
		Logger:  baseLogger.With("component", "analysis"),
	}
	if cfg.ChatGPT.APIKey != "" {
		analysisDeps.Summarizer = llm.NewChatGPTClient(cfg.ChatGPT, baseLogger.With("component", "llm"))
	} else {
		baseLogger.Warn("no OpenAI API key configured; summaries are disabled")
	}
	if notifier := telegram.NewNotifier(cfg.Notifications.Telegram); notifier.Enabled() {
		analysisDeps.Notifier = notifier
	}
	if cfg.Database.DSN != "" {
		repo, err := a.openRepository(ctx)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.repo = repo
		analysisDeps.Repository = repo
	}
	a.analysis = usecase.NewAnalysisService(analysisDeps)

	return a, nil
}

func loadMatcher(cfg config.EntitiesConfig, log *slog.Logger) *entity.Matcher {
	if cfg.CSVPath == "" {
		log.Warn("no entity list configured; co-mention filtering is disabled")
		return entity.NewMatcher(nil)
	}
	matcher, err := entity.LoadCSV(cfg.CSVPath)
	if err != nil {
		log.Warn("cannot load entity list; co-mention filtering is disabled", "path", cfg.CSVPath, "error", err)
		return entity.NewMatcher(nil)
	}
	log.Info("entity list loaded", "path", cfg.CSVPath, "names", matcher.Len())
	return matcher
}

func (a *Application) openCache(ctx context.Context) ports.BodyCache {
	if a.cfg.Cache.RedisAddr == "" {
		return nil
	}
	c := cache.NewRedisBodyCache(a.cfg.Cache)
	if err := c.Ping(ctx); err != nil {
		a.logger.Warn("redis unavailable; body cache disabled", "addr", a.cfg.Cache.RedisAddr, "error", err)
		_ = c.Close()
		return nil
	}
	a.closers = append(a.closers, c.Close)
	return c
}

func (a *Application) openRepository(ctx context.Context) (*storage.PostgresRepository, error) {
	db, err := storage.Open(ctx, a.cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return migrate(ctx, db)
}

func migrate(ctx context.Context, db *sql.DB) (*storage.PostgresRepository, error) {
	repo := storage.NewPostgresRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}

// News runs only the curation pipeline for one entity.
func (a *Application) News(ctx context.Context, name string) (usecase.Result, error) {
	return a.news.Run(ctx, name)
}

// Analyze runs full analyses for names once.
func (a *Application) Analyze(ctx context.Context, names []string) usecase.BatchResult {
	return a.analysis.AnalyzeBatch(ctx, names)
}

// Serve runs the results API and the watchlist scheduler until ctx is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if a.repo == nil {
		return ErrNoDatabase
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location(),
		a.logger.With("component", "scheduler"))
	jobs := usecase.NewScheduler(driver, a.analysis, a.cfg.Scheduler.Watchlist, a.logger.With("component", "watchlist"))
	if err := jobs.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	server := httpapi.NewServer(a.cfg.Server.Addr, a.repo, a.analysis, a.logger.With("component", "httpapi"))
	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", "error", err)
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		a.logger.Warn("scheduler shutdown", "error", err)
	}
	return serveErr
}

// Close releases database and cache connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

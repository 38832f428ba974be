package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"

	"SerialWatch/internal/api"
	"SerialWatch/internal/config"
	"SerialWatch/internal/infrastructure/scheduler"
	"SerialWatch/internal/infrastructure/searchapi"
	"SerialWatch/internal/infrastructure/storage"
	"SerialWatch/internal/infrastructure/telegram"
	"SerialWatch/internal/logging"
	"SerialWatch/internal/ports"
	"SerialWatch/internal/search"
	"SerialWatch/internal/usecase"
)

// Application wires config to the pipeline service and lifecycle pieces.
// Storage and search adapters are chosen exactly once here; nothing else in
// the codebase branches on configuration at call time.
type Application struct {
	cfg     config.Config
	logger  *slog.Logger
	service *usecase.Service
	sweeper *usecase.Sweeper
	db      *sql.DB
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	store, err := app.buildStore()
	if err != nil {
		return nil, err
	}

	provider, err := buildSearchProvider(cfg.Search)
	if err != nil {
		return nil, err
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	app.service = usecase.NewService(usecase.ServiceDeps{
		Store:      store,
		Search:     provider,
		Notifier:   notifier,
		MaxResults: cfg.Search.MaxResults,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	if cfg.Scheduler.IsEnabled() {
		driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval())
		app.sweeper = usecase.NewSweeper(driver, app.service)
	}

	return app, nil
}

func (a *Application) buildStore() (ports.Store, error) {
	if a.cfg.Database.DSN == "" {
		a.logger.Info("no database configured, using in-memory store")
		return storage.NewMemoryStore(), nil
	}

	db, err := sql.Open("postgres", a.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.db = db
	return storage.NewPostgresStore(db), nil
}

func buildSearchProvider(cfg config.SearchConfig) (ports.SearchProvider, error) {
	registry := search.NewRegistry()
	registry.Register(searchapi.NewAPIClient(cfg.Endpoint, cfg.APIKey, cfg.Timeout()))
	registry.Register(searchapi.NewPageScraper(cfg.Endpoint, nil))

	provider, err := registry.Resolve(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("select search provider: %w", err)
	}
	return provider, nil
}

// Run starts the sweep scheduler and serves the HTTP API until ctx ends or
// the listener fails.
func (a *Application) Run(ctx context.Context) error {
	if a.sweeper != nil {
		if err := a.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("start sweeper: %w", err)
		}
		defer func() { _ = a.sweeper.Stop(ctx) }()
	}

	router := api.NewRouter(a.service, a.logger.With("component", "http"))
	a.logger.Info("http listening", "addr", a.cfg.HTTP.Addr)

	if err := router.Run(a.cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Package cli provides common initialization shared by cmd/money and
// cmd/money-cli: environment loading, logger setup and wiring the store,
// ledger service, controller and renderer together.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"money/internal/backend"
	"money/internal/config"
	"money/internal/controller"
	"money/internal/log"
	"money/internal/persistence"
	"money/internal/render"
	"money/internal/services"
	"money/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger initializes structured logging at the given level with a text
// handler on stdout and sets it as the default logger.
func SetupLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	log.SetDefault(logger)
	return logger
}

// SetupTerminalLogger routes records through charmbracelet/log, which reads
// better in a terminal than slog's text handler.
func SetupTerminalLogger(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Prefix:          "money",
		Level:           charmlog.Level(lvl),
	})
	logger := log.New(log.Config{Level: lvl, Component: log.ComponentCLI, Handler: handler})
	if err != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	return logger
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// App is the wired application: one store, one ledger service and one
// controller owned by whoever called Bootstrap.
type App struct {
	Config     *config.Config
	Store      storage.Store
	Service    *services.LedgerService
	Controller *controller.Controller
	Renderer   *render.Renderer
	Terminal   *render.Terminal
	// Started is the notification produced by the initial load.
	Started controller.Notification

	cleanup backend.CleanupFunc
	logger  *log.Logger
}

// Bootstrap opens the configured store and event publisher, builds the
// controller and runs its initial load.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Discard()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load time zone: %w", err)
	}
	renderer, err := render.New(cfg.CurrencySymbol, loc)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	publisher := factory.CreatePublisher(bcfg)

	persist := persistence.New(res.Store,
		persistence.WithKeys(cfg.LedgerKey, cfg.ThemeKey),
		persistence.WithLogger(logger))
	svc := services.NewLedgerService(persist, publisher, logger)
	ctrl := controller.New(svc,
		controller.WithCurrency(cfg.CurrencySymbol),
		controller.WithNotificationTTL(cfg.NotificationTTL),
		controller.WithLogger(logger))

	app := &App{
		Config:     cfg,
		Store:      res.Store,
		Service:    svc,
		Controller: ctrl,
		Renderer:   renderer,
		Terminal:   render.NewTerminal(cfg.CurrencySymbol, loc),
		cleanup:    res.Cleanup,
		logger:     logger,
	}
	app.Started = ctrl.Start(ctx)
	logger.Info("Ledger loaded",
		"backend", bcfg.Type,
		"events", bcfg.Events,
		"transactions", ctrl.Stats().Count,
		"balance", ctrl.Stats().Balance.String())
	return app, nil
}

// Close saves the ledger one last time, then closes the publisher and the
// store. Every step runs even if an earlier one fails.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Controller.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.Service.Close(); err != nil {
		errs = append(errs, err)
	}
	if a.cleanup != nil {
		if err := a.cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

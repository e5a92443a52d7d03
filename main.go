package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pos-backend/config"
	"pos-backend/controllers"
	"pos-backend/database"
	"pos-backend/middlewares"
	"pos-backend/printing"
	"pos-backend/repository"
	"pos-backend/routes"
	"pos-backend/services"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// run wires the application and serves until SIGINT/SIGTERM. Every resource it
// opens is closed before it returns.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Store
	var store repository.Store
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store, data is lost on exit")
		store = repository.NewMemoryStore()
	default:
		db, err := database.Connect(cfg.DSN(), cfg.IsDevelopment())
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer func() {
			if err := database.Close(db); err != nil {
				log.Warn().Err(err).Msg("closing postgres pool")
			}
		}()
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
		store = repository.NewGormStore(db)
	}

	// ---- Notifications
	var notifier services.Notifier = services.LogNotifier{}
	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer rdb.Close()
		notifier = services.NewRedisNotifier(rdb, cfg.NotifyChannel)
	}

	if err := controllers.EnsureAdmin(ctx, store, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		return fmt.Errorf("seed operator account: %w", err)
	}

	// ---- Services
	mirror := services.NewMirror(store)
	if err := mirror.Load(ctx); err != nil {
		// Same as the "Failed to load data" toast: keep serving, /api/refresh retries.
		log.Error().Err(err).Msg("initial load failed")
		notifier.Notify(ctx, services.Notification{Title: "Error", Description: "Failed to load data from the database", Severity: services.SeverityError})
	}
	jwt := middlewares.NewJWT(cfg.JWTSecret, time.Duration(cfg.JWTExpirationHours)*time.Hour)
	ctl := controllers.New(controllers.Options{
		Store:      store,
		Products:   services.NewProductService(store, notifier),
		Invoices:   services.NewInvoiceService(store, notifier, cfg.InvoiceNumberPrefix),
		Mirror:     mirror,
		JWT:        jwt,
		Receipt:    printing.Header{Name: cfg.ReceiptName, Lines: cfg.ReceiptHeaderLines()},
		PrintDelay: time.Duration(cfg.PrintDelayMs) * time.Millisecond,
	})

	// ---- HTTP
	app := routes.NewApp(routes.AppOptions{
		BodyLimitMB:     cfg.BodyLimitMB,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: time.Duration(cfg.RateLimitWindowSeconds) * time.Second,
	}, ctl, jwt, store)

	listenErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("API server starting")
		listenErr <- app.Listen(":" + strconv.Itoa(cfg.Port))
	}()

	select {
	case err := <-listenErr:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info().Msg("server exited")
	return nil
}

// setupLogger uses a console writer in development and JSON otherwise.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

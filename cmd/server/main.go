package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/forgo/muster/internal/config"
	"github.com/forgo/muster/internal/i18n"
	"github.com/forgo/muster/internal/jobs"
	"github.com/forgo/muster/internal/middleware"
	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/internal/notify"
	"github.com/forgo/muster/internal/repository"
	"github.com/forgo/muster/internal/service"
	"github.com/forgo/muster/internal/telemetry"
	"github.com/forgo/muster/pkg/jwt"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	var port, logLevel string
	flagSet := pflag.NewFlagSet("muster", pflag.ContinueOnError)
	flagSet.StringVarP(&port, "port", "p", "", "HTTP port (overrides SERVER_PORT)")
	flagSet.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides LOG_LEVEL)")
	showVersion := flagSet.Bool("version", false, "print version and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *showVersion {
		fmt.Println("muster", version)
		return nil
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracing
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("tracing shutdown failed", slog.String("error", err.Error()))
		}
	}()

	// Initialize JWT service
	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		Expiration:     cfg.JWT.Expiration,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	// Initialize roster core
	rosterRepo := repository.NewRosterRepository()
	hub := service.NewRosterHub()
	defer hub.Close()

	var sender notify.Sender = notify.NewNoopSender()
	if cfg.Email.Enabled {
		sender = notify.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From)
	}
	emailLang, _ := i18n.ParseTag(cfg.Email.Language)
	dispatcher := service.NewPromotionDispatcher(service.PromotionDispatcherConfig{
		Notifier:  service.NewEmailNotifier(service.EmailNotifierConfig{Sender: sender, Language: emailLang}),
		QueueSize: cfg.Dispatcher.QueueSize,
	})
	dispatcher.Start()
	defer dispatcher.Stop()

	rosterService := service.NewRosterService(service.RosterServiceConfig{
		Store:    rosterRepo,
		Sink:     hub,
		Notifier: service.MultiNotifier{service.NewHubNotifier(hub), dispatcher},
	})

	// Initialize background jobs
	sweeper := jobs.NewRosterSweeper(rosterService, model.RetentionPolicy{
		ClosedRetention: cfg.Sweeper.ClosedRetention,
		MaxAge:          cfg.Sweeper.MaxAge,
	}, cfg.Sweeper.Interval)
	sweeper.Start()
	defer sweeper.Stop()

	// Initialize middleware state
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	})
	defer rateLimiter.Stop()

	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{
		TTL: cfg.Idempotency.TTL,
	})
	defer idempotencyStore.Stop()

	wrapped := newRouter(routerDeps{
		Tokens:         jwtService,
		Rosters:        rosterService,
		Hub:            hub,
		RateLimiter:    rateLimiter,
		Idempotency:    idempotencyStore,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           wrapped,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server...")

		// Open event streams never go idle; end them before draining
		hub.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("server exited")
	return nil
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/consumers"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/events"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/handler"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/repository"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/service"
	"github.com/Foxglovery/BA-google-sheet-magic/internal/kitchen/setup"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/auth"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/config"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/httputil"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/logger"
	"github.com/Foxglovery/BA-google-sheet-magic/pkg/messaging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const serviceName = "kitchen-service"

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithLevel(serviceName, cfg.Server.Environment, cfg.Log.Level)
	log.Info().Msg("starting Kitchen Service")

	loc, err := cfg.Kitchen.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid timezone")
	}
	layout, err := repository.LayoutFromConfig(cfg.Kitchen)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid sheet layout")
	}
	opts, err := service.OptionsFromConfig(cfg.Kitchen)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid kitchen options")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := setup.OpenStore(ctx, cfg, layout, loc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer store.Close()

	locker, closeLocker, err := setup.NewLocker(ctx, &cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create lock")
	}
	defer closeLocker()

	// RabbitMQ is optional: without it edits arrive over HTTP only and
	// nothing is published.
	var (
		rmq       *messaging.RabbitMQ
		publisher service.Publisher
	)
	if cfg.RabbitMQ.Enabled {
		rmq, err = messaging.New(&cfg.RabbitMQ, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()

		if err := rmq.DeclareDeadLetterQueue(serviceName); err != nil {
			log.Fatal().Err(err).Msg("failed to declare dead letter queue")
		}

		kitchenPublisher, err := events.NewKitchenEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
		publisher = kitchenPublisher
	}

	sheetService := service.NewSheetService(store.Store, layout, opts, locker, publisher, log)

	if rmq != nil {
		editConsumer, err := consumers.NewSheetEditConsumer(rmq, sheetService, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create sheet edit consumer")
		}
		if err := editConsumer.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to start sheet edit consumer")
		}
		go rmq.Watch(ctx, func() error { return editConsumer.Restart(ctx) })
	}

	kitchenHandler := handler.NewKitchenHandler(sheetService, loc, log)
	hostTokens := auth.NewHostTokens(&cfg.Auth)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":  "healthy",
			"service": serviceName,
			"store":   sheetService.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes
	r.Route("/api/v1/kitchen", func(r chi.Router) {
		r.Use(hostTokens.Middleware(log))
		kitchenHandler.RegisterRoutes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/almoxarifado/almox-backend/internal/warehouse/events"
	"github.com/almoxarifado/almox-backend/internal/warehouse/handler"
	"github.com/almoxarifado/almox-backend/internal/warehouse/notify"
	"github.com/almoxarifado/almox-backend/internal/warehouse/repository"
	"github.com/almoxarifado/almox-backend/internal/warehouse/service"
	"github.com/almoxarifado/almox-backend/pkg/auth"
	"github.com/almoxarifado/almox-backend/pkg/config"
	"github.com/almoxarifado/almox-backend/pkg/database"
	"github.com/almoxarifado/almox-backend/pkg/httputil"
	"github.com/almoxarifado/almox-backend/pkg/logger"
	"github.com/almoxarifado/almox-backend/pkg/messaging"
)

func main() {
	// Local development reads a .env file; in deployment the
	// environment comes from the orchestrator
	_ = godotenv.Load()

	cfg, err := config.LoadWithValidation("warehouse-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("warehouse-service", cfg.Server.Environment)
	log.Info().Msg("starting Warehouse Service")

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// The broker is optional: a nil publisher drops events, everything
	// else keeps working
	var publisher *events.WarehouseEventPublisher
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Warn().Err(err).Msg("RabbitMQ unavailable, events will not be published")
	} else {
		defer rmq.Close()
		publisher, err = events.NewWarehouseEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	hub := notify.NewHub(log)

	// Repositories
	itemRepo := repository.NewItemRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	sectorRepo := repository.NewSectorRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Services
	alertService := service.NewAlertService(alertRepo, itemRepo, publisher, hub, log)
	itemService := service.NewItemService(db, itemRepo, catRepo, alertService, publisher, log)
	withdrawalService := service.NewWithdrawalService(db, withdrawalRepo, itemRepo, alertService, publisher, hub, log)
	importService := service.NewBulkImportService(db, itemRepo, catRepo, publisher, cfg.Import.MaxRows, log)
	scanner := service.NewAlertScanner(itemRepo, alertService, cfg.Alerts.ExpiryWindowDays, log)

	// Handlers
	itemHandler := handler.NewItemHandler(itemService, log)
	categoryHandler := handler.NewCategoryHandler(itemService, log)
	sectorHandler := handler.NewSectorHandler(sectorRepo, log)
	withdrawalHandler := handler.NewWithdrawalHandler(withdrawalService, log)
	alertHandler := handler.NewAlertHandler(alertService, log)
	importHandler := handler.NewBulkImportHandler(importService, cfg.Import.MaxBodySize, log)
	wsHandler := handler.NewWSHandler(hub, log)

	authManager := auth.NewManager(&cfg.JWT)

	// Scheduled jobs
	scheduler := service.NewScheduler(scanner, alertService, cfg.Alerts.CleanupRetention, log)
	if err := scheduler.Start(cfg.Alerts.ScanCron, cfg.Alerts.CleanupCron); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}
	defer scheduler.Stop()

	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "warehouse-service",
			"database": db.Health(r.Context()),
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// Realtime pushes; the browser cannot send an Authorization header
	// on a websocket handshake, so this route skips the middleware
	r.Get("/ws/alerts", wsHandler.Subscribe)

	r.Route("/api/v1/warehouse", func(r chi.Router) {
		r.Use(httputil.Authenticate(authManager))

		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Get("/{id}", itemHandler.Get)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(auth.RoleAdmin, auth.RoleManager))
				r.Post("/", itemHandler.Create)
				r.Put("/{id}", itemHandler.Update)
				r.Delete("/{id}", itemHandler.Retire)
				r.Post("/retire-by-period", itemHandler.RetireByPeriod)
				r.Post("/import", importHandler.Upload)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.With(httputil.RequireRole(auth.RoleAdmin, auth.RoleManager)).Post("/", categoryHandler.Create)
		})

		r.Route("/sectors", func(r chi.Router) {
			r.Get("/", sectorHandler.List)
			r.With(httputil.RequireRole(auth.RoleAdmin, auth.RoleManager)).Post("/", sectorHandler.Create)
		})

		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/", withdrawalHandler.List)
			r.Post("/", withdrawalHandler.Create)
			r.Get("/{id}", withdrawalHandler.Get)
			r.Delete("/{id}", withdrawalHandler.Cancel)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(auth.RoleAdmin, auth.RoleManager))
				r.Patch("/{id}/status", withdrawalHandler.UpdateStatus)
				r.Post("/deactivate-by-period", withdrawalHandler.DeactivateByPeriod)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Get("/unviewed-count", alertHandler.UnviewedCount)
			r.Get("/{id}", alertHandler.Get)
			r.Post("/{id}/view", alertHandler.MarkViewed)
			r.Post("/view-all", alertHandler.MarkAllViewed)

			r.Group(func(r chi.Router) {
				r.Use(httputil.RequireRole(auth.RoleAdmin, auth.RoleManager))
				r.Post("/{id}/suppress", alertHandler.Suppress)
				r.Delete("/{id}/suppress", alertHandler.Unsuppress)
				r.Delete("/{id}", alertHandler.Delete)
			})
		})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

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
	"github.com/kycflow/kycflow-backend/internal/kyc/batch"
	"github.com/kycflow/kycflow-backend/internal/kyc/events"
	"github.com/kycflow/kycflow-backend/internal/kyc/extractor"
	"github.com/kycflow/kycflow-backend/internal/kyc/handler"
	"github.com/kycflow/kycflow-backend/internal/kyc/normalize"
	"github.com/kycflow/kycflow-backend/internal/kyc/repository"
	"github.com/kycflow/kycflow-backend/internal/kyc/service"
	"github.com/kycflow/kycflow-backend/internal/kyc/storage"
	"github.com/kycflow/kycflow-backend/pkg/config"
	"github.com/kycflow/kycflow-backend/pkg/database"
	"github.com/kycflow/kycflow-backend/pkg/httputil"
	"github.com/kycflow/kycflow-backend/pkg/logger"
	"github.com/kycflow/kycflow-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("kyc-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("kyc-service", cfg.Server.Environment)
	log.Info().Msg("starting KYC Service")

	// Connect to database; persistence is best-effort, so a missing
	// database in development only disables the report repository
	var repo *repository.ReportRepository
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		if config.IsDevelopment() {
			log.Warn().Err(err).Msg("database unavailable, report persistence disabled")
		} else {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
	} else {
		defer db.Close()
		repo = repository.NewReportRepository(db)
	}

	// Connect to RabbitMQ; same best-effort policy in development
	var publisher *events.KYCEventPublisher
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		if config.IsDevelopment() {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, event publishing disabled")
		} else {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
	} else {
		defer rmq.Close()
		publisher, err = events.NewKYCEventPublisher(rmq, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event publisher")
		}
	}

	// Wire the pipeline
	ext := extractor.NewVLMExtractor(&cfg.Extractor)
	engine := normalize.NewEngine(log.WithComponent("normalize"))
	orch := batch.NewOrchestrator(ext, engine, log.WithComponent("batch"),
		batch.WithWorkers(cfg.Batch.Workers))

	store := storage.NewJobStore(cfg.Batch.JobTTL)
	defer store.Close()
	svc := service.NewService(orch, store, repo, publisher, log)
	kycHandler := handler.NewHandler(svc, cfg.Batch.MaxUploadSize, log)

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":  "healthy",
			"service": "kyc-service",
		}
		if db != nil {
			health["database"] = db.Health(r.Context())
		}
		if rmq != nil {
			health["rabbitmq"] = rmq.Health()
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	r.Route("/api/v1/kyc", func(r chi.Router) {
		r.Post("/batches", kycHandler.CreateBatch)
		r.Get("/batches/{jobID}", kycHandler.GetBatch)
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
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

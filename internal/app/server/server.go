package server

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"accessgov/internal/domain/access"
	"accessgov/internal/domain/audit"
	"accessgov/internal/domain/auth"
	"accessgov/internal/domain/campaign"
	"accessgov/internal/domain/deptrisk"
	"accessgov/internal/domain/directory"
	"accessgov/internal/domain/drift"
	"accessgov/internal/domain/notifications"
	"accessgov/internal/domain/overpriv"
	"accessgov/internal/domain/roles"
	"accessgov/internal/platform/config"
	"accessgov/internal/platform/db"
	"accessgov/internal/platform/email"
	"accessgov/internal/platform/events"
	"accessgov/internal/platform/jobs"
	"accessgov/internal/platform/metrics"
	audithandler "accessgov/internal/transport/http/handlers/audit"
	authhandler "accessgov/internal/transport/http/handlers/auth"
	campaignshandler "accessgov/internal/transport/http/handlers/campaigns"
	governancehandler "accessgov/internal/transport/http/handlers/governance"
	notificationshandler "accessgov/internal/transport/http/handlers/notifications"
	riskhandler "accessgov/internal/transport/http/handlers/risk"
	roleshandler "accessgov/internal/transport/http/handlers/roles"
	"accessgov/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	level := slog.LevelInfo
	if cfg.Environment == "development" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	if cfg.MetricsEnabled {
		metrics.Init()
	}

	directoryStore := directory.NewStore(pool)
	accessStore := access.NewStore(pool)
	rolesStore := roles.NewStore(pool)
	authStore := auth.NewStore(pool)
	auditSvc := audit.New(pool)
	driftStore := drift.NewStore(pool)
	overprivStore := overpriv.NewStore(pool)
	campaignStore := campaign.NewStore(pool)

	notificationsSvc := notifications.New(notifications.NewStore(pool), email.New(cfg), cfg.EmailFrom)
	sink := events.NewLogSink()

	driftSvc := drift.NewService(accessStore, accessStore, rolesStore, directoryStore, driftStore, sink)
	overprivSvc := overpriv.NewService(accessStore, accessStore, directoryStore, overprivStore, sink)
	campaignSvc := campaign.NewService(campaignStore, accessStore, directoryStore, notificationsSvc, sink, cfg.ReportDir)
	deptriskSvc := deptrisk.NewService(deptrisk.NewStore(pool, overprivStore, accessStore), sink)

	jobs.New(pool, cfg, driftSvc, overprivSvc, campaignSvc, campaignStore).Start(ctx)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	if cfg.MetricsEnabled {
		router.Use(metrics.Instrument)
	}
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Handle("/metrics", metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		authHandler := authhandler.NewHandler(authStore, cfg.JWTSecret)
		r.With(middleware.LoginRateLimit(10, time.Minute)).Post("/auth/login", authHandler.HandleLogin)
		r.With(middleware.RequireUser).Get("/auth/me", authHandler.HandleMe)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			campaignshandler.NewHandler(campaignSvc, auditSvc).RegisterRoutes(r)
			governancehandler.NewHandler(driftSvc, overprivSvc, rolesStore, auditSvc).RegisterRoutes(r)
			roleshandler.NewHandler(rolesStore, auditSvc).RegisterRoutes(r)
			riskhandler.NewHandler(deptriskSvc, directoryStore).RegisterRoutes(r)
			notificationshandler.NewHandler(notificationsSvc).RegisterRoutes(r)
			audithandler.NewHandler(auditSvc).RegisterRoutes(r)
		})
	})

	slog.Info("access governance server listening", "addr", cfg.Addr, "env", cfg.Environment)
	if err := http.ListenAndServe(cfg.Addr, router); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}

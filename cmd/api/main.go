package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "gite_booking/internal/adapters/http_server"
	"gite_booking/internal/adapters/observability"
	redisad "gite_booking/internal/adapters/redis"
	"gite_booking/internal/adapters/webhook"
	"gite_booking/internal/app"
	"gite_booking/internal/domain"
	"gite_booking/internal/shared"
	mysqlrepo "gite_booking/internal/storage/mysql"
)

// multiSink fans one audit event out to every sink; the first failure wins
// but later sinks still run.
type multiSink []domain.AuditSink

func (m multiSink) Record(ctx context.Context, e domain.AuditEvent) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	audit := multiSink{repo}
	if cfg.AuditWebhookURL != "" {
		sink, err := webhook.New(cfg.AuditWebhookURL, cfg.AuditWebhookRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("webhook sink failed")
		}
		audit = append(audit, sink)
		log.Info().Str("url", cfg.AuditWebhookURL).Msg("audit webhook enabled")
	}

	availability := app.NewAvailabilityService(repo, cache, audit, cfg.CacheTTL)
	pricing := app.NewPricingService(repo)
	bookings := app.NewBookingService(repo, availability, pricing, audit)

	// http
	srv := server.New(cfg.APIKey)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{Availability: availability, Bookings: bookings})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}

package main

import (
	"database/sql"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/locasite/locasite/internal/adapters/api"
	"github.com/locasite/locasite/internal/adapters/cache"
	"github.com/locasite/locasite/internal/adapters/provider"
	"github.com/locasite/locasite/internal/adapters/repository"
	"github.com/locasite/locasite/internal/config"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/locasite/locasite/internal/core/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Unable to load configuration: %v", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer func() {
		if errClose := db.Close(); errClose != nil {
			logger.Warn("failed to close database", "error", errClose)
		}
	}()

	if err := db.Ping(); err != nil {
		logger.Warn("could not ping database", "error", err)
	}

	repo := repository.NewPostgresRepository(db)

	repo.ReportPoolMetrics()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			repo.ReportPoolMetrics()
		}
	}()

	var availability ports.AvailabilityCache
	if cfg.RedisAddr != "" {
		availability = cache.NewRedisAvailabilityCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		logger.Info("availability cache enabled", "addr", cfg.RedisAddr)
	}

	vercel := provider.NewVercelClient(cfg.VercelToken, cfg.VercelProjectID, cfg.VercelTeamID)
	if !vercel.Configured() {
		logger.Warn("no hosting provider credentials; verification degrades to HTTPS probe")
	}

	reservationSvc := services.NewReservationService(repo, availability, logger)
	domainSvc := services.NewDomainService(repo, reservationSvc, vercel, cfg.BaseDomain, logger)
	publishingSvc := services.NewPublishingService(repo, repo, logger)

	apiHandler := api.NewAPIHandler(reservationSvc, domainSvc, publishingSvc, repo, repo)
	mux := http.NewServeMux()
	apiHandler.RegisterRoutes(mux)

	logger.Info("management API listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
		log.Fatalf("HTTP Server failed: %v", err)
	}
}

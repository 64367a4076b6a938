// The reaper periodically deletes expired subdomain reservations. Lazy
// expiry keeps individual lookups correct, but abandoned creation attempts
// would otherwise accumulate rows until the next lookup of that exact
// string; this job bounds that growth.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/locasite/locasite/internal/adapters/cache"
	"github.com/locasite/locasite/internal/adapters/repository"
	"github.com/locasite/locasite/internal/config"
	"github.com/locasite/locasite/internal/core/ports"
	"github.com/locasite/locasite/internal/core/services"
)

func main() {
	interval := flag.Duration("interval", time.Minute, "How often to sweep expired reservations")
	once := flag.Bool("once", false, "Run a single sweep and exit")
	flag.Parse()

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

	repo := repository.NewPostgresRepository(db)

	// Share the availability cache with the API so reaped names stop
	// reading as taken the moment the sweep removes them.
	var availability ports.AvailabilityCache
	if cfg.RedisAddr != "" {
		availability = cache.NewRedisAvailabilityCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	}
	svc := services.NewReservationService(repo, availability, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweep := func() {
		count, err := svc.CleanupExpired(ctx)
		if err != nil {
			logger.Error("cleanup sweep failed", "error", err)
			return
		}
		logger.Info("cleanup sweep complete", "removed", count)
	}

	sweep()
	if *once {
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case <-ticker.C:
			sweep()
		}
	}
}

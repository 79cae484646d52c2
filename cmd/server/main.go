// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/classbank/internal/auth"
	"github.com/jason-s-yu/classbank/internal/cache"
	"github.com/jason-s-yu/classbank/internal/database"
	"github.com/jason-s-yu/classbank/internal/handlers"
	"github.com/jason-s-yu/classbank/internal/leaderboard"
	"github.com/jason-s-yu/classbank/internal/ledger"
	"github.com/jason-s-yu/classbank/internal/market"
	"github.com/jason-s-yu/classbank/internal/metrics"
	"github.com/jason-s-yu/classbank/internal/middleware"
	"github.com/jason-s-yu/classbank/internal/stats"
)

func main() {
	auth.Init()
	database.ConnectDB()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := database.EnsureSchema(context.Background()); err != nil {
		logger.Fatalf("schema bootstrap failed: %v", err)
	}

	store := database.NewPGStore(database.DB)
	statsStore := database.NewPGStats(database.DB)
	ignore := parseIgnoreSet(logger)

	engine := ledger.NewEngine(store, logger)
	hub := leaderboard.NewHub(logger)

	// Post-commit side effects, in order: audit trail, statistics
	// delta, live leaderboard, metrics. Each is best-effort.
	engine.AddHook(ledger.TransactionLogHook(logger, store))
	engine.AddHook(ledger.StatsHook(logger, statsStore, ignore))
	engine.AddHook(leaderboard.Hook(hub))
	engine.AddHook(metrics.Hook())

	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Warn("redis unavailable; in-memory cooldown, no activity feed")
		engine.SetCooldown(ledger.NewMemCooldown(ledger.PeerCooldown))
	} else {
		engine.SetCooldown(cache.NewCooldown(ledger.PeerCooldown))
		engine.AddHook(cache.ActivityHook(logger))
	}

	marketSvc := market.NewService(engine, store, statsStore, logger)

	api := &handlers.API{
		Logger: logger,
		Engine: engine,
		Market: marketSvc,
		Stats:  statsStore,
		Ledger: store,
		Dir:    store,
		Hub:    hub,
		Ignore: ignore,
	}

	mux := api.Routes()
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8080"
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		addr = v
	}
	logger.Infof("classbank listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, middleware.LogMiddleware(logger)(mux)))
}

// parseIgnoreSet reads STATS_IGNORE_ACCOUNTS, a comma-separated list of
// account ids excluded from global statistics.
func parseIgnoreSet(logger *logrus.Logger) stats.IgnoreSet {
	var ids []uuid.UUID
	for _, part := range strings.Split(os.Getenv("STATS_IGNORE_ACCOUNTS"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			logger.Warnf("skipping bad account id in STATS_IGNORE_ACCOUNTS: %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return stats.NewIgnoreSet(ids...)
}

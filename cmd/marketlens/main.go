package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"marketlens/config"
	"marketlens/internal/catalog"
	"marketlens/internal/coordinator"
	"marketlens/internal/esi"
	"marketlens/internal/gateway"
	"marketlens/internal/logger"
	"marketlens/internal/metrics"
	redisstore "marketlens/internal/store/redis"
	sqlitestore "marketlens/internal/store/sqlite"
	"marketlens/internal/watch"
)

func main() {
	// Local development reads a .env file; in production the variables
	// come from the environment and the file simply doesn't exist.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init("marketlens", slog.LevelInfo)
	log.Info("starting", "listen", cfg.ListenAddr, "esi", cfg.ESIBaseURL)

	policy, err := coordinator.ParseBookPolicy(cfg.OrderBookPolicy)
	if err != nil {
		log.Error("bad config", "err", err)
		os.Exit(1)
	}

	prom := metrics.New()

	// ---- Persistence collaborators (both optional, both fire-and-forget) ----
	client := esi.NewClient(cfg.ESIBaseURL, log, esi.WithTimeout(cfg.FetchTimeout))

	if store, err := sqlitestore.New(cfg.SQLitePath, log); err != nil {
		log.Warn("sqlite store unavailable, raw history will not be persisted", "err", err)
	} else {
		defer store.Close()
		client.History = store
	}

	if cache, err := redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}, log); err != nil {
		log.Warn("redis cache unavailable, order books will not be cached", "err", err)
	} else {
		defer cache.Close()
		client.Books = cache
	}

	// ---- Reference catalog ----
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Warn("catalog unavailable, serving without name resolution", "path", cfg.CatalogPath, "err", err)
			cat = nil
		}
	}

	// ---- Coordinator + HTTP surface ----
	coord := coordinator.New(client, policy, log)
	coord.SetObserver(prom)

	hub := gateway.NewHub(log, prom)
	server := gateway.NewServer(coord, cat, hub, prom, log)
	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	// ---- Watchlist refresher (own coordinator so scheduled runs never
	// supersede interactive requests) ----
	watchCoord := coordinator.New(client, policy, log)
	watchCoord.SetObserver(prom)
	watcher, err := watch.New(watchCoord, cfg.ParseWatchlist(), cfg.WatchCron, hub, prom, log)
	if err != nil {
		log.Error("bad watch config", "err", err)
		os.Exit(1)
	}
	watcher.Start()
	defer watcher.Stop()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()
	log.Info("listening", "addr", cfg.ListenAddr)

	// ---- Graceful shutdown ----
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "err", err)
	}
}

package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"marketlens/internal/model"
)

// Config holds all application configuration loaded from environment
// variables. cmd mains call godotenv.Load first so a local .env file works
// the same way.
type Config struct {
	// Market data API
	ESIBaseURL   string
	FetchTimeout time.Duration

	// HTTP surface (API + WebSocket + /metrics)
	ListenAddr string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	CatalogPath   string

	// Behavior
	OrderBookPolicy string // "graceful" or "strict"

	// Watchlist: comma-separated "region:type:timeframe" tuples refreshed
	// on WatchCron, e.g. "10000002:34:weekly,10000002:44992:daily".
	Watchlist string
	WatchCron string
}

// Load reads configuration from environment variables with sensible
// defaults.
func Load() *Config {
	return &Config{
		ESIBaseURL:   getEnv("ESI_BASE_URL", "https://esi.evetech.net/latest"),
		FetchTimeout: getDuration("FETCH_TIMEOUT", 15*time.Second),

		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/history.db"),
		CatalogPath:   getEnv("CATALOG_PATH", "data/catalog.yaml"),

		OrderBookPolicy: getEnv("ORDER_BOOK_POLICY", "graceful"),

		Watchlist: getEnv("WATCHLIST", ""),
		WatchCron: getEnv("WATCH_CRON", "@every 5m"),
	}
}

// WatchEntry is one parsed watchlist tuple.
type WatchEntry struct {
	RegionID  int32
	TypeID    int32
	Timeframe model.Timeframe
}

// ParseWatchlist parses the Watchlist string into watch entries. Malformed
// tuples are skipped with a log line rather than failing startup.
func (c *Config) ParseWatchlist() []WatchEntry {
	if strings.TrimSpace(c.Watchlist) == "" {
		return nil
	}
	parts := strings.Split(c.Watchlist, ",")
	entries := make([]WatchEntry, 0, len(parts))
	for _, p := range parts {
		entry, err := parseWatchEntry(strings.TrimSpace(p))
		if err != nil {
			log.Printf("[config] skipping watchlist entry %q: %v", p, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseWatchEntry(s string) (WatchEntry, error) {
	fields := strings.Split(s, ":")
	if len(fields) != 3 {
		return WatchEntry{}, fmt.Errorf("want region:type:timeframe, got %d fields", len(fields))
	}
	region, err := strconv.ParseInt(fields[0], 10, 32)
	if err != nil {
		return WatchEntry{}, fmt.Errorf("bad region id: %w", err)
	}
	typ, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return WatchEntry{}, fmt.Errorf("bad type id: %w", err)
	}
	tf, err := model.ParseTimeframe(fields[2])
	if err != nil {
		return WatchEntry{}, err
	}
	return WatchEntry{RegionID: int32(region), TypeID: int32(typ), Timeframe: tf}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("[config] invalid duration for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return d
}

package config

import (
	"testing"
	"time"

	"marketlens/internal/model"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.ESIBaseURL == "" {
		t.Error("ESIBaseURL default missing")
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("FetchTimeout default: got %v", cfg.FetchTimeout)
	}
	if cfg.OrderBookPolicy != "graceful" {
		t.Errorf("OrderBookPolicy default: got %q", cfg.OrderBookPolicy)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ESI_BASE_URL", "http://localhost:9999")
	t.Setenv("FETCH_TIMEOUT", "3s")
	cfg := Load()
	if cfg.ESIBaseURL != "http://localhost:9999" {
		t.Errorf("ESIBaseURL: got %q", cfg.ESIBaseURL)
	}
	if cfg.FetchTimeout != 3*time.Second {
		t.Errorf("FetchTimeout: got %v", cfg.FetchTimeout)
	}
}

func TestParseWatchlist(t *testing.T) {
	cfg := &Config{Watchlist: "10000002:34:weekly, 10000002:44992:daily, junk, 1:2:hourly"}
	entries := cfg.ParseWatchlist()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2 (malformed ones skipped)", len(entries))
	}
	if entries[0].RegionID != 10000002 || entries[0].TypeID != 34 || entries[0].Timeframe != model.Weekly {
		t.Errorf("entry 0: %+v", entries[0])
	}
	if entries[1].Timeframe != model.Daily {
		t.Errorf("entry 1 timeframe: %v", entries[1].Timeframe)
	}
}

func TestParseWatchlist_Empty(t *testing.T) {
	cfg := &Config{Watchlist: "  "}
	if entries := cfg.ParseWatchlist(); entries != nil {
		t.Errorf("empty watchlist: got %v", entries)
	}
}

package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timeframe selects the output resolution of the analysis table.
type Timeframe string

const (
	Daily  Timeframe = "daily"
	Weekly Timeframe = "weekly"
)

// ParseTimeframe maps a query/config string to a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "d":
		return Daily, nil
	case "weekly", "w":
		return Weekly, nil
	}
	return "", fmt.Errorf("unknown timeframe %q", s)
}

// IndicatorKind identifies one of the supported price-series indicators.
type IndicatorKind string

const (
	KindMA   IndicatorKind = "MA"
	KindEMA  IndicatorKind = "EMA"
	KindTEMA IndicatorKind = "TEMA"
	KindRSI  IndicatorKind = "RSI"
)

// IndicatorKey is the structured (kind, period) identity of one indicator
// column. Display names like "EMA14" exist only at the serialization
// boundary — internal code passes the key itself around.
type IndicatorKey struct {
	Kind   IndicatorKind
	Period int
}

// Column returns the deterministic display name, e.g. "EMA14".
func (k IndicatorKey) Column() string {
	return string(k.Kind) + strconv.Itoa(k.Period)
}

// ParseIndicatorKey parses a display form like "EMA14" or "rsi_14" back
// into a structured key.
func ParseIndicatorKey(s string) (IndicatorKey, error) {
	s = strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(s, "_", "")))
	for _, kind := range []IndicatorKind{KindTEMA, KindEMA, KindRSI, KindMA} {
		if strings.HasPrefix(s, string(kind)) {
			n, err := strconv.Atoi(s[len(kind):])
			if err != nil || n <= 0 {
				return IndicatorKey{}, fmt.Errorf("invalid indicator period in %q", s)
			}
			return IndicatorKey{Kind: kind, Period: n}, nil
		}
	}
	return IndicatorKey{}, fmt.Errorf("unknown indicator %q", s)
}

// AtrSmoothing selects the smoothing applied to the true-range series.
type AtrSmoothing string

const (
	SmoothRMA AtrSmoothing = "RMA"
	SmoothSMA AtrSmoothing = "SMA"
	SmoothEMA AtrSmoothing = "EMA"
	SmoothWMA AtrSmoothing = "WMA"
)

// AtrSpec governs the ATR and stop-loss band columns. A nil *AtrSpec on a
// request means no ATR columns at all.
type AtrSpec struct {
	Length     int
	Smoothing  AtrSmoothing
	Multiplier float64
}

// Validate checks an AtrSpec against its domain constraints.
func (a AtrSpec) Validate() error {
	if a.Length <= 0 {
		return fmt.Errorf("atr length must be positive, got %d", a.Length)
	}
	if a.Multiplier <= 0 {
		return fmt.Errorf("atr multiplier must be positive, got %g", a.Multiplier)
	}
	switch a.Smoothing {
	case SmoothRMA, SmoothSMA, SmoothEMA, SmoothWMA:
		return nil
	}
	return fmt.Errorf("unknown atr smoothing %q", a.Smoothing)
}

// AnalysisRequest carries everything one analysis run needs. Generation is
// a per-request token; results tagged with a superseded generation are
// dropped instead of overwriting a newer request's view.
type AnalysisRequest struct {
	Generation string        `json:"generation"`
	RegionID   int32         `json:"region_id"`
	TypeID     int32         `json:"type_id"`
	Timeframe  Timeframe     `json:"timeframe"`
	Indicators []IndicatorKey `json:"-"`
	Atr        *AtrSpec      `json:"-"`
	LogScale   bool          `json:"log_scale"`
	Requested  time.Time     `json:"requested"`
}

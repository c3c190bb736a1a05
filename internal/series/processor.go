package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"marketlens/internal/indicator"
	"marketlens/internal/model"
)

// ErrEmptySeries marks a valid but zero-length input: nothing to display,
// not a failure worth halting anything over.
var ErrEmptySeries = errors.New("empty price series")

// Process builds the analysis table for one request. Steps, in order:
// sort ascending by date, resample if the timeframe asks for it, compute
// each requested indicator column over the resampled average prices, then
// the ATR and stop-loss columns over the resampled highs and lows.
//
// Indicators run after resampling, so a period of 14 on a weekly table
// means 14 weeks.
func Process(records []model.PriceRecord, tf model.Timeframe, keys []model.IndicatorKey, atr *model.AtrSpec) (*model.AnalysisTable, error) {
	if len(records) == 0 {
		return nil, ErrEmptySeries
	}

	sorted := make([]model.PriceRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	if tf == model.Weekly {
		sorted = resampleWeekly(sorted)
	}

	t := &model.AnalysisTable{
		Timeframe: tf,
		Dates:     make([]time.Time, len(sorted)),
		Average:   make([]float64, len(sorted)),
		Highest:   make([]float64, len(sorted)),
		Lowest:    make([]float64, len(sorted)),
		Volume:    make([]int64, len(sorted)),
	}
	for i, r := range sorted {
		t.Dates[i] = r.Date
		t.Average[i] = r.Average
		t.Highest[i] = r.Highest
		t.Lowest[i] = r.Lowest
		t.Volume[i] = r.Volume
	}

	for _, key := range keys {
		values, err := compute(key, t.Average)
		if err != nil {
			return nil, err
		}
		t.Columns = append(t.Columns, model.IndicatorColumn{Key: key, Values: values})
	}

	if atr != nil {
		if err := atr.Validate(); err != nil {
			return nil, err
		}
		a := indicator.ATR(t.Highest, t.Lowest, atr.Length, atr.Smoothing)
		short, long := indicator.Stops(t.Highest, t.Lowest, a, atr.Multiplier)
		t.Atr = &model.AtrColumns{Spec: *atr, ATR: a, ShortStop: short, LongStop: long}
	}

	return t, nil
}

// compute dispatches one indicator key over the price column.
func compute(key model.IndicatorKey, prices []float64) ([]float64, error) {
	if key.Period <= 0 {
		return nil, fmt.Errorf("indicator %s: period must be positive", key.Kind)
	}
	switch key.Kind {
	case model.KindMA:
		return indicator.MA(prices, key.Period), nil
	case model.KindEMA:
		return indicator.EMA(prices, key.Period), nil
	case model.KindTEMA:
		return indicator.TEMA(prices, key.Period), nil
	case model.KindRSI:
		return indicator.RSI(prices, key.Period), nil
	}
	return nil, fmt.Errorf("unknown indicator kind %q", key.Kind)
}

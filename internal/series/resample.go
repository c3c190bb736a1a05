// Package series turns raw daily price records into the final analysis
// table: sort, resample to the requested timeframe, then annotate with the
// requested indicator and ATR columns.
package series

import (
	"time"

	"marketlens/internal/model"
)

// weekEnd returns the calendar week-end (Sunday, UTC midnight) on or after
// the given date. All days of one calendar week map to the same label.
func weekEnd(d time.Time) time.Time {
	d = d.UTC().Truncate(24 * time.Hour)
	offset := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, offset)
}

// resampleWeekly folds sorted daily records into one row per calendar week
// that had at least one source day: average → mean, highest → max,
// lowest → min, volume → sum, dated by the week-end. Records must already
// be sorted ascending; buckets then arrive in order and each one is
// finalized as soon as a record for a later week shows up.
func resampleWeekly(records []model.PriceRecord) []model.PriceRecord {
	if len(records) == 0 {
		return nil
	}
	out := make([]model.PriceRecord, 0, len(records)/5+1)

	var (
		bucket time.Time
		row    model.PriceRecord
		sum    float64
		days   int
	)
	flush := func() {
		row.Average = sum / float64(days)
		out = append(out, row)
	}
	for _, r := range records {
		we := weekEnd(r.Date)
		if days > 0 && we.Equal(bucket) {
			sum += r.Average
			days++
			if r.Highest > row.Highest {
				row.Highest = r.Highest
			}
			if r.Lowest < row.Lowest {
				row.Lowest = r.Lowest
			}
			row.Volume += r.Volume
			continue
		}
		if days > 0 {
			flush()
		}
		bucket = we
		row = model.PriceRecord{
			Date:    we,
			Highest: r.Highest,
			Lowest:  r.Lowest,
			Volume:  r.Volume,
		}
		sum = r.Average
		days = 1
	}
	flush()
	return out
}

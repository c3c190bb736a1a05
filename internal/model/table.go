package model

import (
	"encoding/json"
	"math"
	"time"
)

// IndicatorColumn is one computed column of the analysis table, aligned
// index-for-index with the table's date axis. Undefined leading positions
// hold NaN.
type IndicatorColumn struct {
	Key    IndicatorKey
	Values []float64
}

// AtrColumns holds the ATR-derived columns when an AtrSpec was supplied.
type AtrColumns struct {
	Spec      AtrSpec
	ATR       []float64
	ShortStop []float64
	LongStop  []float64
}

// AnalysisTable is the finished product of one analysis run: the resampled
// price series plus the requested indicator columns, all chronological and
// all the same length. Tables are built once and never mutated — a new
// request produces a new table.
type AnalysisTable struct {
	Timeframe Timeframe
	Dates     []time.Time
	Average   []float64
	Highest   []float64
	Lowest    []float64
	Volume    []int64
	Columns   []IndicatorColumn
	Atr       *AtrColumns
}

// Len returns the number of rows.
func (t *AnalysisTable) Len() int { return len(t.Dates) }

// tableRow is the row-oriented wire shape; indicator columns appear under
// their display names so chart clients can address them directly.
type tableRow map[string]any

// MarshalJSON serializes the table row-oriented with display column names.
// NaN cells (undefined indicator positions) serialize as null.
func (t *AnalysisTable) MarshalJSON() ([]byte, error) {
	rows := make([]tableRow, t.Len())
	for i := range t.Dates {
		row := tableRow{
			"date":    t.Dates[i].Format("2006-01-02"),
			"average": t.Average[i],
			"highest": t.Highest[i],
			"lowest":  t.Lowest[i],
			"volume":  t.Volume[i],
		}
		for _, col := range t.Columns {
			row[col.Key.Column()] = nullableFloat(col.Values[i])
		}
		if t.Atr != nil {
			row["ATR"] = nullableFloat(t.Atr.ATR[i])
			row["ShortStop"] = nullableFloat(t.Atr.ShortStop[i])
			row["LongStop"] = nullableFloat(t.Atr.LongStop[i])
		}
		rows[i] = row
	}
	return json.Marshal(struct {
		Timeframe Timeframe  `json:"timeframe"`
		Rows      []tableRow `json:"rows"`
	}{t.Timeframe, rows})
}

func nullableFloat(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

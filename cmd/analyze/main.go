// Command analyze is a one-shot CLI: fetch history and order book for one
// market, build the analysis table, and print it.
//
//	analyze -region 10000002 -type 34 -timeframe weekly -indicators EMA14,MA20 -atr-length 14
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"marketlens/internal/coordinator"
	"marketlens/internal/esi"
	"marketlens/internal/logger"
	"marketlens/internal/model"
)

func main() {
	_ = godotenv.Load()

	var (
		regionID   = flag.Int("region", 10000002, "market region id")
		typeID     = flag.Int("type", 34, "item type id")
		timeframe  = flag.String("timeframe", "daily", "daily or weekly")
		indicators = flag.String("indicators", "", "comma-separated, e.g. EMA14,MA20,RSI14")
		atrLength  = flag.Int("atr-length", 0, "ATR length (0 disables ATR columns)")
		atrSmooth  = flag.String("atr-smoothing", "RMA", "RMA, SMA, EMA or WMA")
		atrMult    = flag.Float64("atr-multiplier", 1.5, "stop band multiplier")
		baseURL    = flag.String("base-url", "", "market API root (default: public ESI)")
		timeout    = flag.Duration("timeout", 15*time.Second, "per-fetch timeout")
		topDepth   = flag.Int("depth", 10, "depth levels to print per side")
	)
	flag.Parse()

	log := logger.Init("analyze", slog.LevelWarn)

	tf, err := model.ParseTimeframe(*timeframe)
	if err != nil {
		fatal(err)
	}
	var keys []model.IndicatorKey
	if *indicators != "" {
		for _, part := range strings.Split(*indicators, ",") {
			key, err := model.ParseIndicatorKey(part)
			if err != nil {
				fatal(err)
			}
			keys = append(keys, key)
		}
	}
	var atr *model.AtrSpec
	if *atrLength > 0 {
		atr = &model.AtrSpec{
			Length:     *atrLength,
			Smoothing:  model.AtrSmoothing(strings.ToUpper(*atrSmooth)),
			Multiplier: *atrMult,
		}
		if err := atr.Validate(); err != nil {
			fatal(err)
		}
	}

	client := esi.NewClient(*baseURL, log, esi.WithTimeout(*timeout))
	coord := coordinator.New(client, coordinator.BookGraceful, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*(*timeout)+time.Minute)
	defer cancel()

	req := coord.NewRequest(int32(*regionID), int32(*typeID), tf, keys, atr, false)
	out, err := coord.Run(ctx, req)
	if err != nil {
		fatal(err)
	}

	printTable(out.Table)
	if out.HasDepth {
		printDepth(out, *topDepth)
	} else {
		fmt.Println("\n(order book unavailable, no depth view)")
	}
}

func printTable(t *model.AnalysisTable) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)

	header := []string{"date", "average", "highest", "lowest", "volume"}
	for _, col := range t.Columns {
		header = append(header, col.Key.Column())
	}
	if t.Atr != nil {
		header = append(header, "ATR", "ShortStop", "LongStop")
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for i := range t.Dates {
		row := []string{
			t.Dates[i].Format("2006-01-02"),
			cell(t.Average[i]),
			cell(t.Highest[i]),
			cell(t.Lowest[i]),
			fmt.Sprintf("%d", t.Volume[i]),
		}
		for _, col := range t.Columns {
			row = append(row, cell(col.Values[i]))
		}
		if t.Atr != nil {
			row = append(row, cell(t.Atr.ATR[i]), cell(t.Atr.ShortStop[i]), cell(t.Atr.LongStop[i]))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}

func printDepth(out *coordinator.Outcome, top int) {
	fmt.Printf("\nbuy depth (top %d):\n", top)
	for i, lvl := range out.Buy {
		if i >= top {
			break
		}
		fmt.Printf("  %14.2f  x %d\n", lvl.Price, lvl.TotalVolume)
	}
	fmt.Printf("sell depth (top %d):\n", top)
	for i, lvl := range out.Sell {
		if i >= top {
			break
		}
		fmt.Printf("  %14.2f  x %d\n", lvl.Price, lvl.TotalVolume)
	}
}

func cell(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "analyze:", err)
	os.Exit(1)
}

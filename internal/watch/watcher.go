// Package watch periodically re-runs the analysis for a configured list of
// (region, type, timeframe) markets and pushes each fresh snapshot to the
// WebSocket hub, so chart clients see watched markets refresh without
// asking.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"marketlens/config"
	"marketlens/internal/coordinator"
	"marketlens/internal/gateway"
	"marketlens/internal/metrics"
	"marketlens/internal/model"
)

// refreshBudget bounds one whole watchlist sweep.
const refreshBudget = 5 * time.Minute

// Runner is the slice of the coordinator the watcher needs. The watcher
// gets its own coordinator instance so scheduled runs never supersede
// interactive requests for the same market.
type Runner interface {
	NewRequest(regionID, typeID int32, tf model.Timeframe, keys []model.IndicatorKey, atr *model.AtrSpec, logScale bool) model.AnalysisRequest
	Run(ctx context.Context, req model.AnalysisRequest) (*coordinator.Outcome, error)
}

// Broadcaster receives finished snapshots. *gateway.Hub satisfies it.
type Broadcaster interface {
	Broadcast(v any)
}

// Watcher schedules watchlist refreshes with cron.
type Watcher struct {
	cron    *cron.Cron
	runner  Runner
	entries []config.WatchEntry
	hub     Broadcaster
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a watcher and registers the refresh job on the given cron
// spec (e.g. "@every 5m"). An empty watchlist yields a watcher that does
// nothing.
func New(runner Runner, entries []config.WatchEntry, spec string, hub Broadcaster, m *metrics.Metrics, log *slog.Logger) (*Watcher, error) {
	w := &Watcher{
		cron:    cron.New(),
		runner:  runner,
		entries: entries,
		hub:     hub,
		metrics: m,
		log:     log,
	}
	if len(entries) > 0 {
		if _, err := w.cron.AddFunc(spec, w.refresh); err != nil {
			return nil, err
		}
	}
	return w, nil
}

// Start begins scheduling. Returns immediately.
func (w *Watcher) Start() { w.cron.Start() }

// Stop stops scheduling and waits for a running sweep to finish.
func (w *Watcher) Stop() {
	<-w.cron.Stop().Done()
}

// refresh runs the whole watchlist once, sequentially. Failures are logged
// per market and never stop the sweep.
func (w *Watcher) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), refreshBudget)
	defer cancel()

	if w.metrics != nil {
		w.metrics.WatchRunsTotal.Inc()
	}
	for _, e := range w.entries {
		req := w.runner.NewRequest(e.RegionID, e.TypeID, e.Timeframe, nil, nil, false)
		out, err := w.runner.Run(ctx, req)
		if err != nil {
			if errors.Is(err, coordinator.ErrSuperseded) {
				continue
			}
			w.log.Warn("watch refresh failed",
				"region_id", e.RegionID, "type_id", e.TypeID, "err", err)
			continue
		}

		resp := gateway.AnalysisResponse{
			Request: gateway.RequestInfo{
				Generation: req.Generation,
				RegionID:   e.RegionID,
				TypeID:     e.TypeID,
				Timeframe:  e.Timeframe,
			},
			Table: out.Table,
		}
		if out.HasDepth {
			resp.Depth = &gateway.DepthView{Buy: out.Buy, Sell: out.Sell}
		}
		w.hub.Broadcast(resp)
	}
}

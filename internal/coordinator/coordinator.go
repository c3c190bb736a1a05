// Package coordinator fans two concurrent market fetches back into one
// analysis result. Each fetch runs in its own goroutine and posts exactly
// one message to a shared result channel; a single consumer drains the
// channel and drives a small state machine until the request is ready or
// failed. Nothing but the channel is shared between the workers.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketlens/internal/model"
	"marketlens/internal/orderbook"
	"marketlens/internal/series"
)

// BookPolicy decides what an order-book fetch failure does to the request.
type BookPolicy string

const (
	// BookGraceful renders the price table without a depth view when the
	// order-book fetch fails.
	BookGraceful BookPolicy = "graceful"
	// BookStrict fails the whole request on an order-book fetch failure.
	BookStrict BookPolicy = "strict"
)

// ParseBookPolicy maps a config string to a BookPolicy.
func ParseBookPolicy(s string) (BookPolicy, error) {
	switch BookPolicy(s) {
	case "", BookGraceful:
		return BookGraceful, nil
	case BookStrict:
		return BookStrict, nil
	}
	return "", fmt.Errorf("unknown order book policy %q", s)
}

// ErrSuperseded reports that a newer request replaced this one while its
// fetches were in flight; the late result was dropped, not rendered.
var ErrSuperseded = errors.New("request superseded by a newer one")

// Fetcher is the slice of the market client the coordinator needs.
type Fetcher interface {
	FetchPriceHistory(ctx context.Context, regionID, typeID int32) ([]model.PriceRecord, error)
	FetchOrderBook(ctx context.Context, regionID, typeID int32) ([]model.OrderRecord, error)
}

// Observer receives coordination events for metrics. FetchDone is called
// from the worker goroutines, so implementations must be safe for
// concurrent use.
type Observer interface {
	FetchDone(slot string, d time.Duration, err error)
	ProcessDone(d time.Duration)
	StaleDropped()
}

// Outcome is the finished product handed to the rendering layer.
type Outcome struct {
	Request model.AnalysisRequest
	Table   *model.AnalysisTable

	// HasDepth is false when the order book was unavailable and the
	// graceful policy let the table through without it.
	HasDepth bool
	Buy      []model.DepthLevel
	Sell     []model.DepthLevel
}

// slot identifies which fetch a result belongs to, so arrival order never
// matters for pairing.
type slot int

const (
	slotHistory slot = iota
	slotOrders
)

func (s slot) String() string {
	if s == slotHistory {
		return "history"
	}
	return "orders"
}

// fetchResult is the one message each worker posts.
type fetchResult struct {
	slot    slot
	records []model.PriceRecord
	orders  []model.OrderRecord
	err     error
}

// state machine positions; terminal states are ready and failed.
type state int

const (
	awaitingBoth state = iota
	awaitingPrice
	awaitingOrderBook
	ready
	failed
)

// Coordinator runs analysis requests. Safe for concurrent Run calls; the
// generation token makes sure only the newest request's outcome survives
// when callers race.
type Coordinator struct {
	fetcher  Fetcher
	policy   BookPolicy
	log      *slog.Logger
	observer Observer

	// latest generation token per (region, type) pair; results for older
	// generations are dropped instead of overwriting a newer request's
	// view of the same market.
	latest sync.Map // "region:type" → generation string
}

func pairKey(regionID, typeID int32) string {
	return fmt.Sprintf("%d:%d", regionID, typeID)
}

// New creates a Coordinator with the given order-book failure policy.
func New(fetcher Fetcher, policy BookPolicy, log *slog.Logger) *Coordinator {
	return &Coordinator{fetcher: fetcher, policy: policy, log: log}
}

// SetObserver installs a metrics observer. Call before the first Run.
func (c *Coordinator) SetObserver(o Observer) { c.observer = o }

// NewRequest stamps an AnalysisRequest with a fresh generation token.
func (c *Coordinator) NewRequest(regionID, typeID int32, tf model.Timeframe, keys []model.IndicatorKey, atr *model.AtrSpec, logScale bool) model.AnalysisRequest {
	return model.AnalysisRequest{
		Generation: uuid.NewString(),
		RegionID:   regionID,
		TypeID:     typeID,
		Timeframe:  tf,
		Indicators: keys,
		Atr:        atr,
		LogScale:   logScale,
		Requested:  time.Now().UTC(),
	}
}

// Run launches both fetches for the request, waits for the fan-in to reach
// a terminal state, and builds the outcome. The price history is mandatory;
// the order book is optional under the graceful policy. Fetches are never
// cancelled mid-flight — a request superseded while running finishes its
// network work and has its result dropped.
func (c *Coordinator) Run(ctx context.Context, req model.AnalysisRequest) (*Outcome, error) {
	c.latest.Store(pairKey(req.RegionID, req.TypeID), req.Generation)

	// Buffered to the number of workers: a worker can always post its one
	// message and exit, even when the consumer already gave up.
	results := make(chan fetchResult, 2)

	go func() {
		start := time.Now()
		records, err := c.fetcher.FetchPriceHistory(ctx, req.RegionID, req.TypeID)
		c.observe(slotHistory, time.Since(start), err)
		results <- fetchResult{slot: slotHistory, records: records, err: err}
	}()
	go func() {
		start := time.Now()
		orders, err := c.fetcher.FetchOrderBook(ctx, req.RegionID, req.TypeID)
		c.observe(slotOrders, time.Since(start), err)
		results <- fetchResult{slot: slotOrders, orders: orders, err: err}
	}()

	var (
		st         = awaitingBoth
		records    []model.PriceRecord
		orders     []model.OrderRecord
		bookFailed bool
		failure    error
	)
	for st != ready && st != failed {
		var res fetchResult
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-results:
		}

		switch {
		case res.slot == slotHistory && res.err != nil:
			// Mandatory input failed: report it and let any counterpart
			// result die in the channel buffer.
			st, failure = failed, res.err

		case res.slot == slotHistory:
			records = res.records
			if st == awaitingPrice || bookFailed {
				st = ready
			} else {
				st = awaitingOrderBook
			}

		case res.err != nil: // order book failed
			if c.policy == BookStrict {
				st, failure = failed, res.err
				break
			}
			c.log.Warn("order book unavailable, rendering without depth",
				"region_id", req.RegionID, "type_id", req.TypeID, "err", res.err)
			bookFailed = true
			if st == awaitingOrderBook {
				st = ready
			} else {
				st = awaitingPrice
			}

		default:
			orders = res.orders
			if st == awaitingOrderBook {
				st = ready
			} else {
				st = awaitingPrice
			}
		}
	}
	if st == failed {
		return nil, failure
	}

	if cur, _ := c.latest.Load(pairKey(req.RegionID, req.TypeID)); cur != req.Generation {
		if c.observer != nil {
			c.observer.StaleDropped()
		}
		c.log.Info("dropping stale analysis result", "generation", req.Generation)
		return nil, ErrSuperseded
	}

	procStart := time.Now()
	table, err := series.Process(records, req.Timeframe, req.Indicators, req.Atr)
	if c.observer != nil {
		c.observer.ProcessDone(time.Since(procStart))
	}
	if err != nil {
		return nil, err
	}

	out := &Outcome{Request: req, Table: table}
	if !bookFailed {
		out.HasDepth = true
		out.Buy, out.Sell = orderbook.Aggregate(orders)
	}
	return out, nil
}

func (c *Coordinator) observe(s slot, d time.Duration, err error) {
	if c.observer != nil {
		c.observer.FetchDone(s.String(), d, err)
	}
}

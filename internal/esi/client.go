// Package esi is the HTTP client for the public market endpoints: daily
// price history and the live order book for a (region, type) pair.
package esi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"marketlens/internal/model"
)

const (
	// DefaultBaseURL is the public ESI root.
	DefaultBaseURL = "https://esi.evetech.net/latest"

	defaultTimeout = 15 * time.Second

	// persistTimeout bounds the fire-and-forget store call so a hung
	// store cannot leak goroutines forever.
	persistTimeout = 10 * time.Second
)

// HistoryRecorder receives raw history rows after a successful fetch.
// Failures here are logged and swallowed — persistence never fails a fetch.
type HistoryRecorder interface {
	SavePriceHistory(ctx context.Context, regionID, typeID int32, records []model.PriceRecord) error
}

// BookRecorder receives the raw order book after a successful fetch, with
// the same fire-and-forget contract as HistoryRecorder.
type BookRecorder interface {
	SaveOrderBook(ctx context.Context, regionID, typeID int32, orders []model.OrderRecord) error
}

// Client fetches market data over HTTP. One request per call, no retries;
// the embedded http.Client enforces the timeout and a timeout surfaces as
// the same *FetchError as any other transport failure.
type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger

	// Optional persistence collaborators, both fire-and-forget.
	History HistoryRecorder
	Books   BookRecorder
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient swaps the underlying HTTP client (tests use this with
// httptest servers).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a market data client against the given API root.
func NewClient(baseURL string, log *slog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// historyRow is the wire shape of one history entry. Fields the pipeline
// does not use (order_count) are ignored by the decoder.
type historyRow struct {
	Date    string  `json:"date"`
	Average float64 `json:"average"`
	Highest float64 `json:"highest"`
	Lowest  float64 `json:"lowest"`
	Volume  int64   `json:"volume"`
}

// FetchPriceHistory performs one read of the daily history series for
// (regionID, typeID). On success the raw rows are also handed to the
// history recorder in the background.
func (c *Client) FetchPriceHistory(ctx context.Context, regionID, typeID int32) ([]model.PriceRecord, error) {
	url := fmt.Sprintf("%s/markets/%d/history/?type_id=%d", c.baseURL, regionID, typeID)
	body, _, err := c.get(ctx, url)
	if err != nil {
		return nil, &FetchError{Op: "price history", Err: err}
	}

	var rows []historyRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &FetchError{Op: "price history", Err: fmt.Errorf("decode: %w", err)}
	}

	records := make([]model.PriceRecord, 0, len(rows))
	for _, r := range rows {
		date, err := time.ParseInLocation("2006-01-02", r.Date, time.UTC)
		if err != nil {
			return nil, &FetchError{Op: "price history", Err: fmt.Errorf("bad date %q: %w", r.Date, err)}
		}
		records = append(records, model.PriceRecord{
			Date:    date,
			Average: r.Average,
			Highest: r.Highest,
			Lowest:  r.Lowest,
			Volume:  r.Volume,
		})
	}

	if c.History != nil {
		go c.persistHistory(regionID, typeID, records)
	}
	return records, nil
}

// FetchOrderBook performs one read of all open orders for (regionID,
// typeID), walking every page the endpoint reports via X-Pages. A market
// with no open orders yields an empty slice, not an error.
func (c *Client) FetchOrderBook(ctx context.Context, regionID, typeID int32) ([]model.OrderRecord, error) {
	var orders []model.OrderRecord
	pages := 1
	for page := 1; page <= pages; page++ {
		url := fmt.Sprintf("%s/markets/%d/orders/?order_type=all&type_id=%d&page=%d", c.baseURL, regionID, typeID, page)
		body, header, err := c.get(ctx, url)
		if err != nil {
			return nil, &FetchError{Op: "order book", Err: err}
		}
		if page == 1 {
			if n, err := strconv.Atoi(header.Get("X-Pages")); err == nil && n > 1 {
				pages = n
			}
		}

		var rows []model.OrderRecord
		if err := json.Unmarshal(body, &rows); err != nil {
			return nil, &FetchError{Op: "order book", Err: fmt.Errorf("decode: %w", err)}
		}
		orders = append(orders, rows...)
	}

	if orders == nil {
		orders = []model.OrderRecord{}
	}
	if c.Books != nil {
		snapshot := make([]model.OrderRecord, len(orders))
		copy(snapshot, orders)
		go c.persistBook(regionID, typeID, snapshot)
	}
	return orders, nil
}

// get issues a single GET and returns the body for 2xx responses.
func (c *Client) get(ctx context.Context, url string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, resp.Header, nil
}

func (c *Client) persistHistory(regionID, typeID int32, records []model.PriceRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.History.SavePriceHistory(ctx, regionID, typeID, records); err != nil {
		c.log.Warn("history persistence failed", "region_id", regionID, "type_id", typeID, "err", err)
	}
}

func (c *Client) persistBook(regionID, typeID int32, orders []model.OrderRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := c.Books.SaveOrderBook(ctx, regionID, typeID, orders); err != nil {
		c.log.Warn("order book persistence failed", "region_id", regionID, "type_id", typeID, "err", err)
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "…"
	}
	return string(b)
}

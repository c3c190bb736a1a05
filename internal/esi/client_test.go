package esi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"marketlens/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, nil))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestFetchPriceHistory_DecodesAndOrders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/10000002/history/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("type_id") != "34" {
			t.Errorf("unexpected type_id %s", r.URL.Query().Get("type_id"))
		}
		w.Write([]byte(`[
			{"date":"2026-03-02","average":5.1,"highest":5.5,"lowest":4.9,"volume":1000,"order_count":12},
			{"date":"2026-03-03","average":5.2,"highest":5.6,"lowest":5.0,"volume":2000,"order_count":9}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	records, err := c.FetchPriceHistory(context.Background(), 10000002, 34)
	if err != nil {
		t.Fatalf("FetchPriceHistory: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records: got %d, want 2", len(records))
	}
	if records[0].Average != 5.1 || records[0].Volume != 1000 {
		t.Errorf("record 0: %+v", records[0])
	}
	want := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)
	if !records[1].Date.Equal(want) {
		t.Errorf("record 1 date: got %v, want %v", records[1].Date, want)
	}
}

func TestFetchPriceHistory_Non2xxIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Type not found!"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.FetchPriceHistory(context.Background(), 10000002, 999999)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want *FetchError, got %T: %v", err, err)
	}
	if fe.Op != "price history" {
		t.Errorf("Op: got %q", fe.Op)
	}
}

func TestFetchPriceHistory_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	_, err := c.FetchPriceHistory(context.Background(), 1, 1)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want *FetchError for malformed body, got %v", err)
	}
}

func TestFetchOrderBook_WalksPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("X-Pages", "2")
		switch page {
		case 1:
			w.Write([]byte(`[{"price":10,"volume_remain":5,"is_buy_order":true}]`))
		case 2:
			w.Write([]byte(`[{"price":12,"volume_remain":2,"is_buy_order":false}]`))
		default:
			t.Errorf("unexpected page %d", page)
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	orders, err := c.FetchOrderBook(context.Background(), 10000002, 34)
	if err != nil {
		t.Fatalf("FetchOrderBook: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders: got %d, want 2", len(orders))
	}
	if !orders[0].IsBuyOrder || orders[1].IsBuyOrder {
		t.Errorf("order sides wrong: %+v", orders)
	}
}

func TestFetchOrderBook_EmptyMarketIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testLogger())
	orders, err := c.FetchOrderBook(context.Background(), 10000002, 34)
	if err != nil {
		t.Fatalf("empty market should not error: %v", err)
	}
	if orders == nil || len(orders) != 0 {
		t.Errorf("want empty non-nil slice, got %v", orders)
	}
}

type recordingStore struct {
	mu      sync.Mutex
	saved   int
	failErr error
	done    chan struct{}
}

func (s *recordingStore) SavePriceHistory(_ context.Context, _, _ int32, records []model.PriceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = len(records)
	close(s.done)
	return s.failErr
}

func TestFetchPriceHistory_PersistsFireAndForget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2026-03-02","average":5,"highest":6,"lowest":4,"volume":10}]`))
	}))
	defer srv.Close()

	store := &recordingStore{done: make(chan struct{})}
	c := NewClient(srv.URL, testLogger())
	c.History = store

	if _, err := c.FetchPriceHistory(context.Background(), 1, 1); err != nil {
		t.Fatalf("FetchPriceHistory: %v", err)
	}
	select {
	case <-store.done:
	case <-time.After(2 * time.Second):
		t.Fatal("store was never called")
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if store.saved != 1 {
		t.Errorf("saved rows: got %d, want 1", store.saved)
	}
}

func TestFetchPriceHistory_StoreFailureDoesNotFailFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"date":"2026-03-02","average":5,"highest":6,"lowest":4,"volume":10}]`))
	}))
	defer srv.Close()

	store := &recordingStore{done: make(chan struct{}), failErr: errors.New("disk full")}
	c := NewClient(srv.URL, testLogger())
	c.History = store

	records, err := c.FetchPriceHistory(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("fetch must succeed even when the store fails: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records: got %d, want 1", len(records))
	}
	<-store.done
}

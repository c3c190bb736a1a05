package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"marketlens/internal/catalog"
	"marketlens/internal/coordinator"
	"marketlens/internal/esi"
	"marketlens/internal/logger"
	"marketlens/internal/metrics"
	"marketlens/internal/model"
	"marketlens/internal/series"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// requestBudget bounds one end-to-end analysis request, covering both
// fetches and processing.
const requestBudget = 60 * time.Second

// Runner is the slice of the coordinator the gateway needs.
type Runner interface {
	NewRequest(regionID, typeID int32, tf model.Timeframe, keys []model.IndicatorKey, atr *model.AtrSpec, logScale bool) model.AnalysisRequest
	Run(ctx context.Context, req model.AnalysisRequest) (*coordinator.Outcome, error)
}

// Server wires the analysis pipeline to HTTP.
type Server struct {
	runner  Runner
	catalog *catalog.Catalog
	hub     *Hub
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewServer creates the HTTP surface. catalog may be nil when no reference
// data is configured; id lookups are then passed through unvalidated.
func NewServer(runner Runner, cat *catalog.Catalog, hub *Hub, m *metrics.Metrics, log *slog.Logger) *Server {
	return &Server{runner: runner, catalog: cat, hub: hub, metrics: m, log: log}
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes registers all HTTP routes on the provided mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/analysis", s.handleAnalysis)
	mux.HandleFunc("/api/catalog/types", s.handleTypes)
	mux.HandleFunc("/api/catalog/regions", s.handleRegions)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.log.Error("ws upgrade failed", "err", err)
			return
		}
		s.hub.HandleConn(conn)
	})
}

// RequestInfo echoes the parsed request back to the client, with names
// resolved where the catalog knows them.
type RequestInfo struct {
	Generation string          `json:"generation"`
	RegionID   int32           `json:"region_id"`
	RegionName string          `json:"region_name,omitempty"`
	TypeID     int32           `json:"type_id"`
	TypeName   string          `json:"type_name,omitempty"`
	Timeframe  model.Timeframe `json:"timeframe"`
	LogScale   bool            `json:"log_scale"`
}

// DepthView is the aggregated order book, both sides.
type DepthView struct {
	Buy  []model.DepthLevel `json:"buy"`
	Sell []model.DepthLevel `json:"sell"`
}

// AnalysisResponse is the full analysis payload. Depth is omitted when the
// order book was unavailable and the graceful policy applied.
type AnalysisResponse struct {
	Request RequestInfo          `json:"request"`
	Table   *model.AnalysisTable `json:"table"`
	Depth   *DepthView           `json:"depth,omitempty"`
}

// handleAnalysis runs GET /api/analysis?region_id=&type_id=&timeframe=
// &indicators=EMA14,MA20&atr_length=&atr_smoothing=&atr_multiplier=
// &log_scale=.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}

	regionID, typeID, tf, keys, atr, logScale, err := s.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	info := RequestInfo{RegionID: regionID, TypeID: typeID, Timeframe: tf, LogScale: logScale}
	if s.catalog != nil {
		info.TypeName, err = s.catalog.TypeName(typeID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		info.RegionName, err = s.catalog.RegionName(regionID)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
	}

	req := s.runner.NewRequest(regionID, typeID, tf, keys, atr, logScale)
	info.Generation = req.Generation

	ctx, cancel := context.WithTimeout(r.Context(), requestBudget)
	defer cancel()
	ctx = logger.WithRequestID(ctx, req.Generation)

	out, err := s.runner.Run(ctx, req)
	switch {
	case err == nil:
	case errors.Is(err, series.ErrEmptySeries):
		// Nothing to display is not a failure: an empty table renders as
		// an empty chart.
		s.respond(w, AnalysisResponse{Request: info, Table: &model.AnalysisTable{Timeframe: tf}})
		return
	case errors.Is(err, coordinator.ErrSuperseded):
		writeError(w, http.StatusConflict, err.Error())
		return
	default:
		s.countAnalysis("error")
		var fe *esi.FetchError
		if errors.As(err, &fe) {
			writeError(w, http.StatusBadGateway, fe.Error())
			return
		}
		s.log.Error("analysis failed", append([]any{"err", err}, logger.LogWithRequest(ctx)...)...)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	resp := AnalysisResponse{Request: info, Table: out.Table}
	if out.HasDepth {
		resp.Depth = &DepthView{Buy: out.Buy, Sell: out.Sell}
	}
	s.countAnalysis("ok")
	if s.hub != nil {
		s.hub.Broadcast(resp)
	}
	s.respond(w, resp)
}

func (s *Server) countAnalysis(outcome string) {
	if s.metrics != nil {
		s.metrics.AnalysesTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) handleTypes(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if s.catalog == nil {
		json.NewEncoder(w).Encode([]catalog.Entry{})
		return
	}
	json.NewEncoder(w).Encode(s.catalog.Types())
}

func (s *Server) handleRegions(w http.ResponseWriter, r *http.Request) {
	SetCORS(w)
	w.Header().Set("Content-Type", "application/json")
	if s.catalog == nil {
		json.NewEncoder(w).Encode([]catalog.Entry{})
		return
	}
	json.NewEncoder(w).Encode(s.catalog.Regions())
}

func (s *Server) parseQuery(r *http.Request) (regionID, typeID int32, tf model.Timeframe, keys []model.IndicatorKey, atr *model.AtrSpec, logScale bool, err error) {
	q := r.URL.Query()

	regionID, err = parseID(q.Get("region_id"), "region_id")
	if err != nil {
		return
	}
	typeID, err = parseID(q.Get("type_id"), "type_id")
	if err != nil {
		return
	}
	tf, err = model.ParseTimeframe(q.Get("timeframe"))
	if err != nil {
		return
	}

	if raw := strings.TrimSpace(q.Get("indicators")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			var key model.IndicatorKey
			key, err = model.ParseIndicatorKey(part)
			if err != nil {
				return
			}
			keys = append(keys, key)
		}
	}

	if raw := q.Get("atr_length"); raw != "" {
		spec := model.AtrSpec{Smoothing: model.SmoothRMA, Multiplier: 1.5}
		var length int
		length, err = strconv.Atoi(raw)
		if err != nil {
			err = fmt.Errorf("bad atr_length: %w", err)
			return
		}
		spec.Length = length
		if sm := q.Get("atr_smoothing"); sm != "" {
			spec.Smoothing = model.AtrSmoothing(strings.ToUpper(sm))
		}
		if mult := q.Get("atr_multiplier"); mult != "" {
			spec.Multiplier, err = strconv.ParseFloat(mult, 64)
			if err != nil {
				err = fmt.Errorf("bad atr_multiplier: %w", err)
				return
			}
		}
		if err = spec.Validate(); err != nil {
			return
		}
		atr = &spec
	}

	logScale = q.Get("log_scale") == "true" || q.Get("log_scale") == "1"
	return
}

func parseID(raw, name string) (int32, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("bad %s %q", name, raw)
	}
	return int32(id), nil
}

func (s *Server) respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

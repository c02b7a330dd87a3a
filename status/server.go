package status

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-catalog-watch/models"
	"github.com/aluiziolira/go-catalog-watch/scraper"
)

// Provider exposes a poller's latest snapshot.
type Provider interface {
	Status() scraper.Status
}

// Server provides the health, metrics and recent-items endpoints.
type Server struct {
	pollers []Provider
	recent  *Recent
	server  *http.Server
}

// NewServer wires the routes. registry may be nil, in which case /metrics is not served.
func NewServer(addr string, registry *prometheus.Registry, recent *Recent, pollers []Provider) *Server {
	mux := http.NewServeMux()
	s := &Server{
		pollers: pollers,
		recent:  recent,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /recent", s.handleRecent)
	if registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return s
}

// Handler returns the route multiplexer, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves until Stop is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	slog.Info("status server listening", slog.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Status  string           `json:"status"`
	Pollers []scraper.Status `json:"pollers"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Pollers: make([]scraper.Status, 0, len(s.pollers))}
	code := http.StatusOK
	for _, p := range s.pollers {
		st := p.Status()
		if st.State != scraper.StateRunning {
			resp.Status = "unavailable"
			code = http.StatusServiceUnavailable
		}
		resp.Pollers = append(resp.Pollers, st)
	}
	if len(s.pollers) == 0 {
		resp.Status = "unavailable"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	items := []models.Notification{}
	if s.recent != nil {
		items = s.recent.List(limit)
	}
	writeJSON(w, http.StatusOK, items)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("encode status response", slog.Any("error", err))
	}
}

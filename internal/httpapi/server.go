package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/slotwatch/internal/domain"
	"github.com/hamed0406/slotwatch/internal/repo"
)

// Server exposes the watcher's latest results read-only.
type Server struct {
	Logger    *zap.Logger
	Status    repo.StatusStore
	Window    domain.Window
	Locations []domain.LocationID
	// State reports the watcher state, e.g. "RUNNING".
	State    func() string
	Gatherer prometheus.Gatherer
}

func NewServer(l *zap.Logger, st repo.StatusStore, w domain.Window, locs []domain.LocationID, state func() string, g prometheus.Gatherer) *Server {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return &Server{Logger: l, Status: st, Window: w, Locations: locs, State: state, Gatherer: g}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/api/status", s.handleStatus)

	return r
}

func (s *Server) state() string {
	if s.State == nil {
		return "UNKNOWN"
	}
	return s.State()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if st := s.state(); st == "FAILED" || st == "STOPPED" {
		http.Error(w, st, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statusResponse struct {
	State        string               `json:"state"`
	Window       domain.Window        `json:"window"`
	Locations    []domain.LocationID  `json:"locations"`
	Observations []domain.Observation `json:"observations"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	obs, err := s.Status.Latest(r.Context())
	if err != nil {
		s.Logger.Warn("status_list_error", zap.Error(err))
		http.Error(w, "status error", http.StatusInternalServerError)
		return
	}
	if obs == nil {
		obs = []domain.Observation{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(statusResponse{
		State:        s.state(),
		Window:       s.Window,
		Locations:    s.Locations,
		Observations: obs,
	})
}

// Start serves the router on addr in the background. Shut it down with
// the returned server.
func (s *Server) Start(addr string) *http.Server {
	hs := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
	go func() {
		s.Logger.Info("status_listen", zap.String("addr", addr))
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error("status_server_error", zap.Error(err))
		}
	}()
	return hs
}

// Package status exposes the station's local-only health/status/metrics
// HTTP surface, grounded on the teacher's internal/api/server.go router
// setup (chi + cors + standard middleware stack) but trimmed to the
// handful of read-only endpoints a gateway operator needs: no auth
// surface, no REST CRUD API, since the station persists no state of
// its own (spec.md §6).
package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Metrics holds the Prometheus collectors the rest of the station
// updates as it processes uplinks/downlinks.
type Metrics struct {
	UplinksTotal      prometheus.Counter
	DownlinksTotal    prometheus.Counter
	DutyCycleRejects  prometheus.Counter
	PPSFaults         prometheus.Counter
	QueueDepth        prometheus.Gauge
}

// NewMetrics registers the station's counters/gauges on a fresh
// registry so tests can construct independent instances.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		UplinksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_uplinks_total", Help: "Total uplink frames forwarded to the LNS.",
		}),
		DownlinksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_downlinks_total", Help: "Total dnmsg downlink requests received from the LNS.",
		}),
		DutyCycleRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_duty_cycle_rejects_total", Help: "Downlinks rejected by admission control (duty cycle, LBT, dwell time or half-duplex gate).",
		}),
		PPSFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "station_pps_faults_total", Help: "PPS drift faults detected by the time domain.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "station_tx_queue_depth", Help: "Current depth of the downlink priority queue.",
		}),
	}
	reg.MustRegister(m.UplinksTotal, m.DownlinksTotal, m.DutyCycleRejects, m.PPSFaults, m.QueueDepth)
	return m
}

// Server is the status HTTP surface.
type Server struct {
	router   chi.Router
	server   *http.Server
	registry *prometheus.Registry
	started  time.Time
	region   string
}

// NewServer builds a Server bound to region (reported on /status) with
// a dedicated Prometheus registry mounted at /metrics.
func NewServer(region string, registry *prometheus.Registry) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		registry: registry,
		started:  time.Now(),
		region:   region,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/status", s.handleStatus)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type statusPayload struct {
	Region    string  `json:"region"`
	UptimeSec float64 `json:"uptime_seconds"`
	CPUPercent float64 `json:"cpu_percent"`
	MemUsedPct float64 `json:"mem_used_percent"`
	HostUptime uint64  `json:"host_uptime_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	payload := statusPayload{
		Region:    s.region,
		UptimeSec: time.Since(s.started).Seconds(),
	}
	if pcts, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(pcts) > 0 {
		payload.CPUPercent = pcts[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(r.Context()); err == nil {
		payload.MemUsedPct = vm.UsedPercent
	}
	if uptime, err := host.UptimeWithContext(r.Context()); err == nil {
		payload.HostUptime = uptime
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// ListenAndServe starts the status server; it runs until ctx is
// cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server.Addr = addr
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("status server shutdown error")
		}
	}()
	log.Info().Str("addr", addr).Msg("status server listening")
	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

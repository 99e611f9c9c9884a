// Package metrics exposes the health and progress signals called out in
// SPEC_FULL.md as a Prometheus registry served over HTTP, the observability
// layer the distilled spec's "Open questions" section asks for but leaves
// unspecified (a poll-health counter) generalised into a small dashboard of
// gauges any of the long-lived components can update.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server owns a private Prometheus registry (not the global default
// registry, so multiple instances never collide in tests) and the
// metrics every long-lived component updates.
type Server struct {
	registry *prometheus.Registry
	http     *http.Server

	BestDeadline        prometheus.Gauge
	CurrentHeight       prometheus.Gauge
	NoncesPerMinute     prometheus.Gauge
	TrackerPollFailures prometheus.Counter
	TrackerHealthy      prometheus.Gauge
	SubmitterAttempts   *prometheus.CounterVec
}

// NewServer builds the registry and an http.Server bound to listenAddr, but
// does not start listening — call ListenAndServe on its own goroutine.
func NewServer(listenAddr string) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		registry: reg,
		BestDeadline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_best_deadline_seconds",
			Help: "Best deadline observed for the current block, in seconds.",
		}),
		CurrentHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_current_height",
			Help: "Block height currently being mined.",
		}),
		NoncesPerMinute: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "coordinator_nonces_per_minute",
			Help: "Nonce scan rate since the current block started.",
		}),
		TrackerPollFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_poll_failures",
			Help: "Cumulative count of failed getMiningInfo polls.",
		}),
		TrackerHealthy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_healthy",
			Help: "1 if the successive poll-failure count is below the unhealthy threshold, 0 otherwise.",
		}),
		SubmitterAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "submitter_attempts_total",
			Help: "Count of submitNonce attempts, labeled by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		s.BestDeadline,
		s.CurrentHeight,
		s.NoncesPerMinute,
		s.TrackerPollFailures,
		s.TrackerHealthy,
		s.SubmitterAttempts,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.http = &http.Server{Addr: listenAddr, Handler: mux}
	return s
}

// ListenAndServe blocks serving /metrics until the server is shut down. An
// empty listen address disables serving: it returns nil immediately.
func (s *Server) ListenAndServe() error {
	if s.http.Addr == "" {
		return nil
	}
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

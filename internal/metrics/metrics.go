package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"GoldSentinel/internal/logger"
)

// Metrics holds the Prometheus collectors shared by all jobs.
type Metrics struct {
	registry *prometheus.Registry

	JobRuns       *prometheus.CounterVec // labels: job, status
	MessagesSent  *prometheus.CounterVec // labels: kind
	FeedItems     *prometheus.CounterVec // labels: source, outcome
	LLMCalls      *prometheus.CounterVec // labels: provider, status
	FetchDuration *prometheus.HistogramVec
	LastClose     *prometheus.GaugeVec // labels: symbol
}

// New creates the collectors and registers them on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldsentinel_job_runs_total",
			Help: "Job runs by outcome",
		}, []string{"job", "status"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldsentinel_messages_sent_total",
			Help: "Telegram messages delivered",
		}, []string{"kind"}),
		FeedItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldsentinel_feed_items_total",
			Help: "Feed items by outcome (new, stale, duplicate, failed)",
		}, []string{"source", "outcome"}),
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goldsentinel_llm_calls_total",
			Help: "Language model requests",
		}, []string{"provider", "status"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goldsentinel_fetch_duration_seconds",
			Help:    "Latency of outbound data fetches",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"source"}),
		LastClose: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "goldsentinel_last_close",
			Help: "Close of the most recent bar analysed",
		}, []string{"symbol"}),
	}

	m.registry.MustRegister(
		m.JobRuns,
		m.MessagesSent,
		m.FeedItems,
		m.LLMCalls,
		m.FetchDuration,
		m.LastClose,
	)
	return m
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFetch records the duration since start under source.
func (m *Metrics) ObserveFetch(source string, start time.Time) {
	m.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

// Push sends the current state to a Pushgateway. One-shot runs use this
// because they exit before any scrape could happen.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	pusher := push.New(url, job).Gatherer(m.registry)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// Server exposes /metrics and /healthz for daemon mode.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer builds the HTTP server for m.
func NewServer(addr string, m *Metrics) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start(ctx context.Context) {
	go func() {
		logger.Info(ctx, "metrics server listening", zap.String("addr", s.addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorWithErr(ctx, "metrics server stopped", err)
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

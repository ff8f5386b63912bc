package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Backend calls
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthsync_requests_total",
			Help: "Total number of backend requests",
		},
		[]string{"endpoint", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "healthsync_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"endpoint"},
	)

	requestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "healthsync_requests_in_flight",
			Help: "Number of backend requests currently outstanding",
		},
	)

	// Client state
	refreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthsync_refresh_total",
			Help: "Total number of snapshot refreshes by result",
		},
		[]string{"result"},
	)

	archiveRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "healthsync_archive_rows_total",
			Help: "Total number of rows upserted into the archive",
		},
		[]string{"table"},
	)
)

// Status labels for requests that never produced an HTTP status
const (
	StatusNetworkError = "network_error"
)

// Refresh result labels
const (
	RefreshApplied = "applied"
	RefreshStale   = "stale"
	RefreshFailed  = "failed"
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RequestStarted marks a backend call as in flight and returns a func that records its outcome
func RequestStarted(endpoint string) func(status int) {
	start := time.Now()
	requestsInFlight.Inc()
	return func(status int) {
		requestsInFlight.Dec()
		label := StatusNetworkError
		if status > 0 {
			label = strconv.Itoa(status)
		}
		requestsTotal.WithLabelValues(endpoint, label).Inc()
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

// RecordRefresh records the result of a snapshot refresh
func RecordRefresh(result string) {
	refreshTotal.WithLabelValues(result).Inc()
}

// RecordArchiveRows records rows written to an archive table
func RecordArchiveRows(table string, n int) {
	archiveRowsTotal.WithLabelValues(table).Add(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

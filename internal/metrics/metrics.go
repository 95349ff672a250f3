// Package metrics exposes Prometheus instrumentation for writes, imports and searches.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "govsense"

var (
	// ProcedureWrites counts single-record writes.
	// Labels: op (create, update, delete), result (success, error)
	ProcedureWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "procedure_writes_total",
			Help:      "Total number of procedure create, update and delete operations",
		},
		[]string{"op", "result"},
	)

	// ImportRows counts import rows by outcome.
	// Labels: outcome (created, skipped, error)
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Total number of import rows by outcome",
		},
		[]string{"outcome"},
	)

	// SearchRequests counts searches.
	// Labels: outcome (hit, empty, error)
	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total number of search requests by outcome",
		},
		[]string{"outcome"},
	)

	// SearchDuration tracks end-to-end search latency including the query embedding.
	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of search requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// Result maps an error to the result label
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordWrite counts one procedure write
func RecordWrite(op string, err error) {
	ProcedureWrites.WithLabelValues(op, Result(err)).Inc()
}

// RecordImport adds the per-outcome row counts of one import
func RecordImport(created, skipped, failed int) {
	ImportRows.WithLabelValues("created").Add(float64(created))
	ImportRows.WithLabelValues("skipped").Add(float64(skipped))
	ImportRows.WithLabelValues("error").Add(float64(failed))
}

// RecordSearch counts one search and observes its latency
func RecordSearch(start time.Time, hits int, err error) {
	SearchDuration.Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		SearchRequests.WithLabelValues("error").Inc()
	case hits == 0:
		SearchRequests.WithLabelValues("empty").Inc()
	default:
		SearchRequests.WithLabelValues("hit").Inc()
	}
}

// Handler returns the /metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

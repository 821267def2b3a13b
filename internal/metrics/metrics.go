// Package metrics exposes the scraper's Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	FetchAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_fetch_attempts_total",
		Help: "HTTP fetch attempts by outcome (ok, error, status, empty, blocked).",
	}, []string{"outcome"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scraper_fetch_duration_seconds",
		Help:    "Duration of single fetch attempts.",
		Buckets: prometheus.DefBuckets,
	})

	FetchExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_fetch_exhausted_total",
		Help: "Fetches that failed after every retry attempt.",
	})

	SessionResetsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_session_resets_total",
		Help: "Session cookie jars discarded after a suspected block.",
	})

	CategoriesEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_categories_emitted_total",
		Help: "Categories handed to the sink.",
	})

	ProductsEmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scraper_products_emitted_total",
		Help: "Products handed to the sink.",
	})

	ItemFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scraper_item_failures_total",
		Help: "Recoverable per-item failures by kind (branch, listing, product, sink).",
	}, []string{"kind"})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Infof("📈 Metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("❌ Metrics server stopped: %v", err)
		}
	}()
}

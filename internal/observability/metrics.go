package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for the crawler.
type Metrics struct {
	// Fetch metrics
	FetchesTotal  atomic.Int64
	FetchesFailed atomic.Int64
	FetchRetries  atomic.Int64
	FetchDenials  atomic.Int64

	// Pipeline metrics
	LinksDiscovered   atomic.Int64
	ArticlesIngested  atomic.Int64
	ArticlesSkipped   atomic.Int64
	ExtractionsFailed atomic.Int64
	ValidationsFailed atomic.Int64

	// Enrichment metrics
	EnrichmentCalls    atomic.Int64
	EnrichmentFailures atomic.Int64
	TopicsLinked       atomic.Int64
	CompaniesLinked    atomic.Int64

	BytesDownloaded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"newshound_fetches_total", "Total fetches issued", m.FetchesTotal.Load()},
		{"newshound_fetches_failed_total", "Total failed fetches", m.FetchesFailed.Load()},
		{"newshound_fetch_retries_total", "Total fetch retries after denial", m.FetchRetries.Load()},
		{"newshound_fetch_denials_total", "Total access-denial responses", m.FetchDenials.Load()},
		{"newshound_links_discovered_total", "Total candidate links discovered", m.LinksDiscovered.Load()},
		{"newshound_articles_ingested_total", "Total new articles persisted", m.ArticlesIngested.Load()},
		{"newshound_articles_skipped_total", "Total already-known articles skipped", m.ArticlesSkipped.Load()},
		{"newshound_extractions_failed_total", "Total exhausted extraction cascades", m.ExtractionsFailed.Load()},
		{"newshound_validations_failed_total", "Total records rejected by validation", m.ValidationsFailed.Load()},
		{"newshound_enrichment_calls_total", "Total enrichment backend calls", m.EnrichmentCalls.Load()},
		{"newshound_enrichment_failures_total", "Total failed enrichment calls", m.EnrichmentFailures.Load()},
		{"newshound_topics_linked_total", "Total article-topic links created", m.TopicsLinked.Load()},
		{"newshound_companies_linked_total", "Total article-company links created", m.CompaniesLinked.Load()},
		{"newshound_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_total":       m.FetchesTotal.Load(),
		"fetches_failed":      m.FetchesFailed.Load(),
		"fetch_retries":       m.FetchRetries.Load(),
		"fetch_denials":       m.FetchDenials.Load(),
		"links_discovered":    m.LinksDiscovered.Load(),
		"articles_ingested":   m.ArticlesIngested.Load(),
		"articles_skipped":    m.ArticlesSkipped.Load(),
		"extractions_failed":  m.ExtractionsFailed.Load(),
		"validations_failed":  m.ValidationsFailed.Load(),
		"enrichment_calls":    m.EnrichmentCalls.Load(),
		"enrichment_failures": m.EnrichmentFailures.Load(),
		"topics_linked":       m.TopicsLinked.Load(),
		"companies_linked":    m.CompaniesLinked.Load(),
		"bytes_downloaded":    m.BytesDownloaded.Load(),
	}
}

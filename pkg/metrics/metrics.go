// Package metrics exposes Prometheus metrics for a running worker loop.
// The collector implements the loop's Observer interface; the optional
// HTTP server serves /metrics and /healthz for scraping.
package metrics

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/psantana5/workloop/pkg/logging"
	"github.com/psantana5/workloop/pkg/memguard"
)

const namespace = "workloop"

// Collector holds the loop metrics on a private registry
type Collector struct {
	registry *prometheus.Registry

	iterations prometheus.Counter
	processed  prometheus.Counter
	sleeps     prometheus.Counter
	memLimit   prometheus.Gauge
}

// NewCollector creates a collector with memory usage sampled by usage;
// nil selects the process RSS sampler.
func NewCollector(usage memguard.UsageFunc) *Collector {
	if usage == nil {
		usage = memguard.ProcessRSS
	}
	start := time.Now()

	c := &Collector{
		registry: prometheus.NewRegistry(),
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "iterations_total",
			Help:      "Loop iterations started.",
		}),
		processed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_processed_total",
			Help:      "Jobs that reported work done.",
		}),
		sleeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sleeps_total",
			Help:      "Inter-poll sleeps in worker mode.",
		}),
		memLimit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_limit_bytes",
			Help:      "Configured memory ceiling; 0 when unlimited.",
		}),
	}

	memUsed := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "memory_used_bytes",
		Help:      "Process resident set size, sampled per scrape.",
	}, func() float64 {
		used, err := usage()
		if err != nil {
			return 0
		}
		return float64(used)
	})
	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Seconds since the worker process started.",
	}, func() float64 {
		return time.Since(start).Seconds()
	})

	c.registry.MustRegister(c.iterations, c.processed, c.sleeps, c.memLimit, memUsed, uptime)
	return c
}

// SetMemoryLimit publishes the configured ceiling
func (c *Collector) SetMemoryLimit(limit int64) {
	if limit < 0 {
		limit = 0
	}
	c.memLimit.Set(float64(limit))
}

// LoopIteration implements loop.Observer
func (c *Collector) LoopIteration() { c.iterations.Inc() }

// JobProcessed implements loop.Observer
func (c *Collector) JobProcessed() { c.processed.Inc() }

// LoopSleep implements loop.Observer
func (c *Collector) LoopSleep() { c.sleeps.Inc() }

// Handler returns the /metrics handler for the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Router builds the scrape endpoints
func (c *Collector) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", c.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

// Serve starts the metrics endpoint in the background. Shut the
// returned server down when the loop stops.
func Serve(addr string, c *Collector, log *logging.Logger) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: c.Router(),
	}
	go func() {
		log.Info("metrics endpoint listening", logging.Fields{"addr": addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics endpoint failed", logging.Fields{"error": err.Error()})
		}
	}()
	return srv
}

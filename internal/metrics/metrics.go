package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the pipeline's prometheus collectors
type Metrics struct {
	Registry *prometheus.Registry

	ExtractorRequests *prometheus.CounterVec // by target kind and outcome
	ImportRecords     *prometheus.CounterVec // by outcome: imported, skipped, error
	ImportRuns        prometheus.Counter
	ImportPages       prometheus.Counter
	EnrichmentJobs    *prometheus.CounterVec // by job kind and outcome
	QueueDepth        prometheus.Gauge
	ReleasesDeleted   prometheus.Counter
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		ExtractorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "releasarr",
			Name:      "extractor_requests_total",
			Help:      "Calls to the extraction service by target and outcome.",
		}, []string{"target", "outcome"}),
		ImportRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "releasarr",
			Name:      "import_records_total",
			Help:      "Upstream release records processed by outcome.",
		}, []string{"outcome"}),
		ImportRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "releasarr",
			Name:      "import_runs_total",
			Help:      "Completed import runs.",
		}),
		ImportPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "releasarr",
			Name:      "import_pages_total",
			Help:      "Listing pages processed.",
		}),
		EnrichmentJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "releasarr",
			Name:      "enrichment_jobs_total",
			Help:      "Finished enrichment jobs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "releasarr",
			Name:      "enrichment_queue_depth",
			Help:      "Jobs waiting for a worker.",
		}),
		ReleasesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "releasarr",
			Name:      "releases_deleted_total",
			Help:      "Releases removed by cleanup.",
		}),
	}

	reg.MustRegister(
		m.ExtractorRequests,
		m.ImportRecords,
		m.ImportRuns,
		m.ImportPages,
		m.EnrichmentJobs,
		m.QueueDepth,
		m.ReleasesDeleted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

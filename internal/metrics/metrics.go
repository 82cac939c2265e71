package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dataset labels.
const (
	Products     = "products"
	Customers    = "customers"
	Transactions = "transactions"
	Erasure      = "erasure"
)

// Registry holds the counters for one run. A nil *Registry is valid and
// records nothing.
type Registry struct {
	reg               *prometheus.Registry
	Processed         *prometheus.CounterVec
	Invalid           *prometheus.CounterVec
	ParseErrors       *prometheus.CounterVec
	MissingFiles      *prometheus.CounterVec
	Partitions        *prometheus.CounterVec
	PartitionDuration prometheus.Histogram
	ErasureRequests   prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lakecheck_records_processed_total",
		Help: "Records read per dataset.",
	}, []string{"dataset"})
	invalid := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lakecheck_records_invalid_total",
		Help: "Rule violations per dataset and rule.",
	}, []string{"dataset", "rule"})
	parseErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lakecheck_parse_errors_total",
		Help: "Undecodable files or lines per dataset.",
	}, []string{"dataset"})
	missing := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lakecheck_missing_files_total",
		Help: "Partition files that were absent.",
	}, []string{"dataset"})
	partitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lakecheck_partitions_total",
		Help: "Partitions by outcome.",
	}, []string{"status"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lakecheck_partition_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	erasure := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lakecheck_erasure_requests",
		Help: "Keys in the loaded erasure table.",
	})

	r.MustRegister(processed, invalid, parseErrors, missing, partitions, duration, erasure)
	return &Registry{
		reg:               r,
		Processed:         processed,
		Invalid:           invalid,
		ParseErrors:       parseErrors,
		MissingFiles:      missing,
		Partitions:        partitions,
		PartitionDuration: duration,
		ErasureRequests:   erasure,
	}
}

func (r *Registry) AddProcessed(dataset string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.Processed.WithLabelValues(dataset).Add(float64(n))
}

func (r *Registry) AddInvalid(dataset string, byRule map[string]int) {
	if r == nil {
		return
	}
	for rule, n := range byRule {
		r.Invalid.WithLabelValues(dataset, rule).Add(float64(n))
	}
}

func (r *Registry) ParseError(dataset string) {
	if r == nil {
		return
	}
	r.ParseErrors.WithLabelValues(dataset).Inc()
}

func (r *Registry) Missing(dataset string) {
	if r == nil {
		return
	}
	r.MissingFiles.WithLabelValues(dataset).Inc()
}

func (r *Registry) PartitionDone(status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Partitions.WithLabelValues(status).Inc()
	r.PartitionDuration.Observe(elapsed.Seconds())
}

func (r *Registry) SetErasureRequests(n int) {
	if r == nil {
		return
	}
	r.ErasureRequests.Set(float64(n))
}

// WriteTextfile dumps the registry in the node-exporter textfile format.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, r.reg)
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

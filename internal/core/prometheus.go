package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "aligncore"

// PrometheusMetricsRecorder exports operation latency and outcome counters.
type PrometheusMetricsRecorder struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder registers the operation metrics with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of selection and progress operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		total: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Selection and progress operations by outcome.",
		}, []string{"operation", "status"}),
	}
	for _, c := range []prometheus.Collector{r.duration, r.total} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	status := "error"
	if success {
		status = "success"
	}
	r.duration.WithLabelValues(operation).Observe(duration.Seconds())
	r.total.WithLabelValues(operation, status).Inc()
}

// ProgressCollector publishes satisfaction counts and requirements as gauges
// evaluated at scrape time.
type ProgressCollector struct {
	svc       *Service
	satisfied *prometheus.Desc
	required  *prometheus.Desc
	complete  *prometheus.Desc
	timeout   time.Duration
}

// NewProgressCollector returns a collector reading progress from svc.
func NewProgressCollector(svc *Service) *ProgressCollector {
	return &ProgressCollector{
		svc: svc,
		satisfied: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "satisfied_records"),
			"Processed records per bucket and relation.",
			[]string{"bucket", "relation"}, nil),
		required: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "required_records"),
			"Required annotations per relation.",
			[]string{"relation"}, nil),
		complete: prometheus.NewDesc(
			prometheus.BuildFQName(metricsNamespace, "", "selection_complete"),
			"1 when every relation quota is met in both languages.",
			nil, nil),
		timeout: 5 * time.Second,
	}
}

// Describe implements prometheus.Collector.
func (c *ProgressCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.satisfied
	ch <- c.required
	ch <- c.complete
}

// Collect implements prometheus.Collector. It bypasses the operation metrics
// so scrapes do not count as evaluate_progress calls. Failures are logged and
// reported as an invalid metric; serve with promhttp.ContinueOnError to keep
// the remaining families.
func (c *ProgressCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	report, err := c.svc.progressReport(ctx)
	if err != nil {
		c.svc.logger.Warn("progress scrape failed", "code", string(Classify(err)), "error", err)
		ch <- prometheus.NewInvalidMetric(c.satisfied, err)
		return
	}
	for bucket, byRelation := range report.Satisfied {
		for rel, n := range byRelation {
			ch <- prometheus.MustNewConstMetric(c.satisfied, prometheus.GaugeValue, float64(n), string(bucket), rel)
		}
	}
	for rel, n := range report.Requirements {
		ch <- prometheus.MustNewConstMetric(c.required, prometheus.GaugeValue, float64(n), rel)
	}
	complete := 0.0
	if report.Complete {
		complete = 1
	}
	ch <- prometheus.MustNewConstMetric(c.complete, prometheus.GaugeValue, complete)
}

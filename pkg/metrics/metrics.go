package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "swarmdock"

// Metrics holds the service collectors.
type Metrics struct {
	registry *prometheus.Registry

	ProvisioningFailures *prometheus.CounterVec
	PaymentEvents        *prometheus.CounterVec
	WalletBalance        prometheus.Gauge
	BatchTTL             *prometheus.GaugeVec
	JobRuns              *prometheus.CounterVec
	JobDuration          *prometheus.HistogramVec
	HTTPRequests         *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ProvisioningFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provisioning_failures_total",
			Help:      "Failed postage batch operations.",
		}, []string{"operation"}),
		PaymentEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_events_total",
			Help:      "Payment provider notifications by outcome.",
		}, []string{"provider", "type", "result"}),
		WalletBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "wallet_balance_bzz",
			Help:      "BZZ balance of the Bee node wallet.",
		}),
		BatchTTL: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "postage_batch_ttl_seconds",
			Help:      "Remaining TTL of active postage batches.",
		}, []string{"batch_id"}),
		JobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Background job runs by result.",
		}, []string{"job", "result"}),
		JobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Background job duration.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"job"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ProvisioningFailures,
		m.PaymentEvents,
		m.WalletBalance,
		m.BatchTTL,
		m.JobRuns,
		m.JobDuration,
		m.HTTPRequests,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveJob matches scheduler.Observer.
func (m *Metrics) ObserveJob(job string, took time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.JobRuns.WithLabelValues(job, result).Inc()
	m.JobDuration.WithLabelValues(job).Observe(took.Seconds())
}

func (m *Metrics) ProvisioningFailed(operation string) {
	m.ProvisioningFailures.WithLabelValues(operation).Inc()
}

func (m *Metrics) PaymentEvent(provider, eventType, result string) {
	m.PaymentEvents.WithLabelValues(provider, eventType, result).Inc()
}

func (m *Metrics) SetWalletBalance(bzz float64) { m.WalletBalance.Set(bzz) }

func (m *Metrics) SetBatchTTL(batchID string, ttl time.Duration) {
	m.BatchTTL.WithLabelValues(batchID).Set(ttl.Seconds())
}

// ForgetBatch drops the TTL series of a released batch.
func (m *Metrics) ForgetBatch(batchID string) {
	m.BatchTTL.DeleteLabelValues(batchID)
}

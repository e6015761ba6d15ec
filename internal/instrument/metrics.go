package instrument

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	crmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "touchpoints",
		Subsystem: "crm",
		Name:      "requests_total",
		Help:      "CRM API calls by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	crmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "touchpoints",
		Subsystem: "crm",
		Name:      "request_seconds",
		Help:      "CRM API call latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	crmRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "touchpoints",
		Subsystem: "crm",
		Name:      "retries_total",
		Help:      "CRM API calls retried after a transient failure",
	}, []string{"endpoint"})

	touchpointsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "touchpoints",
		Subsystem: "pipeline",
		Name:      "touchpoints_total",
		Help:      "Touchpoints kept after dedup, by kind",
	}, []string{"kind"})

	customersProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "touchpoints",
		Subsystem: "pipeline",
		Name:      "customers_total",
		Help:      "Customers processed, by cohort",
	}, []string{"cohort"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "touchpoints",
		Subsystem: "pipeline",
		Name:      "run_seconds",
		Help:      "Wall time of a full batch run",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})
)

func CRMRequest(endpoint, outcome string, took time.Duration) {
	crmRequests.WithLabelValues(endpoint, outcome).Inc()
	crmLatency.WithLabelValues(endpoint).Observe(took.Seconds())
}

func CRMRetry(endpoint string) { crmRetries.WithLabelValues(endpoint).Inc() }

func Touchpoint(kind string) { touchpointsEmitted.WithLabelValues(kind).Inc() }

func Customer(cohort string) {
	if cohort == "" {
		cohort = "none"
	}
	customersProcessed.WithLabelValues(cohort).Inc()
}

func Run(took time.Duration) { runDuration.Observe(took.Seconds()) }

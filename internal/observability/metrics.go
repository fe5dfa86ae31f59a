package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PersonsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kinfolk",
		Name:      "persons_created_total",
		Help:      "Total number of person records created",
	})

	MediaItemsAttached = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kinfolk",
		Name:      "media_items_attached_total",
		Help:      "Total number of media items appended to person documents",
	}, []string{"type"})

	AttachConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "kinfolk",
		Name:      "attach_version_conflicts_total",
		Help:      "Number of attachment writes retried after a concurrent update",
	})

	URLSignings = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kinfolk",
		Name:      "url_signings_total",
		Help:      "Signed URL requests by outcome",
	}, []string{"result"})

	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "kinfolk",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kinfolk",
		Name:      "events_published_total",
		Help:      "Domain events published to NATS by outcome",
	}, []string{"event", "result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kinfolk",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

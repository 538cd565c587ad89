package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	submissionsTotal       *prometheus.CounterVec
	persistenceFailures    *prometheus.CounterVec
	eventsPublishedTotal   *prometheus.CounterVec
	leaderboardCacheLookup *prometheus.CounterVec
	feedSubscribers        prometheus.Gauge
	feedEventsTotal        *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the execution pipeline.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codearena_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		submissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_submissions_total",
			Help: "Executions classified, by derived submission status.",
		}, []string{"status"})

		persistenceFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_persistence_failures_total",
			Help: "Recording steps that failed after a successful execution.",
		}, []string{"step"})

		eventsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_events_published_total",
			Help: "Submission events published, by transport and result.",
		}, []string{"transport", "result"})

		leaderboardCacheLookup = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_leaderboard_cache_lookups_total",
			Help: "Leaderboard cache lookups by result.",
		}, []string{"result"})

		feedSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "codearena_feed_subscribers",
			Help: "Active submission feed subscribers on this node.",
		})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "codearena_feed_events_total",
			Help: "Submission events fanned out to feed subscribers, by origin.",
		}, []string{"origin"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			submissionsTotal,
			persistenceFailures,
			eventsPublishedTotal,
			leaderboardCacheLookup,
			feedSubscribers,
			feedEventsTotal,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SubmissionsTotal counts classified executions by status.
func SubmissionsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return submissionsTotal
}

// PersistenceFailures counts failed recording steps: user, submission, progress.
func PersistenceFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return persistenceFailures
}

// EventsPublished counts submission event publications.
func EventsPublished() *prometheus.CounterVec {
	RegisterMetrics()
	return eventsPublishedTotal
}

// LeaderboardCacheLookups counts cache hits and misses.
func LeaderboardCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return leaderboardCacheLookup
}

// FeedSubscribers tracks live submission feed subscriptions.
func FeedSubscribers() prometheus.Gauge {
	RegisterMetrics()
	return feedSubscribers
}

// FeedEvents counts events delivered to the local feed hub.
func FeedEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

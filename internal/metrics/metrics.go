package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchlab_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pitchlab_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchlab_messages_posted_total",
			Help: "Total messages posted",
		},
		[]string{"role"}, // "user" or "assistant"
	)

	IdeasCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitchlab_ideas_created_total",
			Help: "Total ideas created",
		},
	)

	IdeaVotes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitchlab_idea_votes_total",
			Help: "Total idea votes cast",
		},
	)

	// Digest pipeline metrics
	DigestsRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchlab_digests_run_total",
			Help: "Total digest invocations",
		},
		[]string{"mode"},
	)

	CompletionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchlab_completion_fallbacks_total",
			Help: "Completion calls degraded to fallback output",
		},
		[]string{"reason"}, // "transport", "status", "parse"
	)

	TagsLinked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitchlab_tags_linked_total",
			Help: "Total tag links created or confirmed by reconciliation",
		},
	)

	// Event fanout metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchlab_events_published_total",
			Help: "Total events published to room subscribers",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pitchlab_events_dropped_total",
			Help: "Events dropped because a subscriber was too slow",
		},
	)

	SubscribersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pitchlab_subscribers_connected",
			Help: "Currently connected event stream subscribers",
		},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pitchlab_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)

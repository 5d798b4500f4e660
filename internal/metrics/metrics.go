package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Timer metrics
	TimerTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intentio_timer_ticks_total",
			Help: "Total one-second ticks applied to a playing session",
		},
	)

	TimerTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentio_timer_transitions_total",
			Help: "Total phase transitions",
		},
		[]string{"from", "to", "trigger"},
	)

	TimerPlaying = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intentio_timer_playing",
			Help: "1 while the current session is playing",
		},
	)

	TimerIteration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intentio_timer_completed_focus_phases",
			Help: "Focus phases completed since the engine started",
		},
	)

	PolicyReadErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intentio_timer_policy_read_errors_total",
			Help: "Timer policy reads that fell back to the last good snapshot",
		},
	)

	// Session store metrics
	SessionsPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intentio_sessions_persisted_total",
			Help: "Focus sessions written to the session store",
		},
	)

	SessionPersistFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "intentio_session_persist_failures_total",
			Help: "Session store inserts that failed",
		},
	)

	// Queue metrics
	QueueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intentio_queue_length",
			Help: "Number of entries in the session queue",
		},
	)

	// Event metrics
	EventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentio_events_published_total",
			Help: "Events published on the bus",
		},
		[]string{"event"},
	)

	EventsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentio_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		},
		[]string{"event"},
	)

	EventSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "intentio_event_subscribers",
			Help: "Number of active event subscribers",
		},
	)

	// HTTP metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intentio_http_requests_total",
			Help: "Total API requests processed",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intentio_http_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		TimerTicksTotal,
		TimerTransitionsTotal,
		TimerPlaying,
		TimerIteration,
		PolicyReadErrors,
		SessionsPersisted,
		SessionPersistFailures,
		QueueLength,
		EventsPublished,
		EventsDropped,
		EventSubscribers,
		RequestsTotal,
		RequestDuration,
	)
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

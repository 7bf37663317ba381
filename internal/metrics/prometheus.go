package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sales_dashboard_upstream_duration_seconds",
			Help:    "Analytics backend request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"endpoint"},
	)

	UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_upstream_requests_total",
			Help: "Analytics backend requests by endpoint and HTTP status",
		},
		[]string{"endpoint", "status"},
	)

	FetchCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_fetch_cycles_total",
			Help: "View fetch cycles by view and outcome",
		},
		[]string{"view", "outcome"},
	)

	InFlightCycles = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sales_dashboard_fetch_cycles_in_flight",
			Help: "View fetch cycles currently awaiting the backend",
		},
		[]string{"view"},
	)

	PagesRendered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_pages_rendered_total",
			Help: "HTML pages rendered",
		},
		[]string{"page"},
	)

	AlertsShown = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sales_dashboard_alert_banners_total",
			Help: "Alert banners rendered on the dashboard",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ChatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_chat_messages_total",
			Help: "Chat messages answered by provider and status",
		},
		[]string{"provider", "status"},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sales_dashboard_llm_tokens_used",
			Help: "Total LLM tokens used by the chat panel",
		},
		[]string{"model", "type"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sales_dashboard_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sales_dashboard_circuit_breaker_state",
			Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(UpstreamDuration)
		prometheus.MustRegister(UpstreamRequests)
		prometheus.MustRegister(FetchCycles)
		prometheus.MustRegister(InFlightCycles)
		prometheus.MustRegister(PagesRendered)
		prometheus.MustRegister(AlertsShown)
		prometheus.MustRegister(CacheHits)
		prometheus.MustRegister(CacheMisses)
		prometheus.MustRegister(ChatMessages)
		prometheus.MustRegister(LLMTokensUsed)
		prometheus.MustRegister(ActiveSessions)
		prometheus.MustRegister(BreakerState)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

// Package metrics exposes Prometheus counters for usage decisions, billable
// actions and webhook processing.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talkah",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "talkah",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	usageDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talkah",
			Subsystem: "usage",
			Name:      "decisions_total",
			Help:      "Usage limit evaluations by action, tier and result",
		},
		[]string{"action", "tier", "result"},
	)

	usageIncrementFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talkah",
			Subsystem: "usage",
			Name:      "increment_failures_total",
			Help:      "Usage increments that failed after the action was sent",
		},
		[]string{"action"},
	)

	actionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talkah",
			Subsystem: "actions",
			Name:      "total",
			Help:      "Billable actions by type and transport outcome",
		},
		[]string{"action", "outcome"},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talkah",
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Webhook events by provider, type and outcome",
		},
		[]string{"provider", "type", "outcome"},
	)

	planChangesApplied = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "talkah",
			Subsystem: "billing",
			Name:      "plan_changes_applied_total",
			Help:      "Pending plan changes applied by the scheduler",
		},
	)
)

func RecordUsageDecision(action, tier string, allowed bool) {
	result := "deny"
	if allowed {
		result = "allow"
	}
	usageDecisionsTotal.WithLabelValues(action, tier, result).Inc()
}

func RecordIncrementFailure(action string) {
	usageIncrementFailures.WithLabelValues(action).Inc()
}

func RecordAction(action, outcome string) {
	actionsTotal.WithLabelValues(action, outcome).Inc()
}

func RecordWebhook(provider, eventType, outcome string) {
	webhookEventsTotal.WithLabelValues(provider, eventType, outcome).Inc()
}

func RecordPlanChangesApplied(n int) {
	planChangesApplied.Add(float64(n))
}

// Middleware records request count and latency per matched route.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		httpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

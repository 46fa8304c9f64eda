package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	registrationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_created_total",
			Help: "Total registrations created per race",
		},
		[]string{"race_id"},
	)

	validationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validation_failures_total",
			Help: "Total submission validation failures per error code",
		},
		[]string{"code"},
	)

	paymentOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_orders_total",
			Help: "Total payment orders created at the provider",
		},
		[]string{"status"},
	)

	webhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total provider webhook deliveries",
		},
		[]string{"event_type", "result"},
	)

	gatewayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of payment gateway requests",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"operation"},
	)

	statusCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "payment_status_cache_entries",
			Help: "Current number of cached payment status entries",
		},
	)
)

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	if redisClient != nil {
		go monitor.collectMetrics()
	}

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx := context.Background()

		keys, err := m.redis.Keys(ctx, "payment:status:*").Result()
		if err != nil {
			continue
		}
		statusCacheEntries.Set(float64(len(keys)))
	}
}

func (m *Monitor) TrackRegistrationCreated(raceID string) {
	registrationsCreated.WithLabelValues(raceID).Inc()
}

func (m *Monitor) TrackValidationFailure(code string) {
	validationFailures.WithLabelValues(code).Inc()
}

func (m *Monitor) TrackPaymentOrder(status string) {
	paymentOrders.WithLabelValues(status).Inc()
}

func (m *Monitor) TrackWebhookEvent(eventType, result string) {
	webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Monitor) TrackGatewayRequest(operation string, duration time.Duration) {
	gatewayDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

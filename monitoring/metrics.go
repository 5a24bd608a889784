package monitoring

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	purchaseAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "purchase_attempts_total",
			Help: "Total purchase attempts by outcome",
		},
		[]string{"event_id", "status"},
	)

	purchaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "purchase_duration_seconds",
			Help:    "Duration of purchase transactions",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"event_id"},
	)

	ticketsSold = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tickets_sold_total",
			Help: "Tickets sold per event, from the stats cache",
		},
		[]string{"event_id"},
	)

	migrationRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "migration_records_total",
			Help: "Records touched by migrations, by phase and result",
		},
		[]string{"phase", "result"},
	)
)

// TrackPurchase records one purchase attempt.
func TrackPurchase(eventID, status string, duration time.Duration) {
	purchaseAttempts.WithLabelValues(eventID, status).Inc()
	purchaseDuration.WithLabelValues(eventID).Observe(duration.Seconds())
}

// TrackMigration records a completed migration run.
func TrackMigration(phase string, updated, skipped, created, errored int) {
	migrationRecords.WithLabelValues(phase, "updated").Add(float64(updated))
	migrationRecords.WithLabelValues(phase, "skipped").Add(float64(skipped))
	migrationRecords.WithLabelValues(phase, "created").Add(float64(created))
	migrationRecords.WithLabelValues(phase, "errored").Add(float64(errored))
}

type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	monitor := &Monitor{redis: redisClient}

	go monitor.collectMetrics()

	return monitor
}

func (m *Monitor) collectMetrics() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.collectSoldGauges(context.Background())
	}
}

// collectSoldGauges scrapes the stats cache written by the stats migration
// and the purchase path.
func (m *Monitor) collectSoldGauges(ctx context.Context) {
	keys, err := m.redis.Keys(ctx, "stats:event:*").Result()
	if err != nil {
		return
	}
	for _, key := range keys {
		eventID := key[len("stats:event:"):]
		data, err := m.redis.Get(ctx, key).Result()
		if err != nil {
			continue
		}
		var stats struct {
			TicketsSold int `json:"tickets_sold"`
		}
		if err := json.Unmarshal([]byte(data), &stats); err != nil {
			continue
		}
		ticketsSold.WithLabelValues(eventID).Set(float64(stats.TicketsSold))
	}
}

// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SnapshotsReceived  prometheus.Counter
	MatchesRecorded    prometheus.Counter
	DuplicatesSkipped  prometheus.Counter
	FinalizeAborts     prometheus.Counter
	AnnouncesSent      prometheus.Counter
	AnnouncesFailed    prometheus.Counter
	APIPollCycles      prometheus.Counter
	APIMatchesUpserted prometheus.Counter

	// Histograms (seconds)
	FinalizeDuration prometheus.Observer
	APIPollDuration  prometheus.Observer

	// Gauges
	LastKillsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SnapshotsReceived = promauto.NewCounter(prometheus.CounterOpts{Name: "gsi_snapshots_received_total", Help: "Number of GSI payloads accepted by the ingest endpoint"})
		MatchesRecorded = promauto.NewCounter(prometheus.CounterOpts{Name: "match_records_committed_total", Help: "Number of match records persisted"})
		DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "match_duplicates_skipped_total", Help: "Number of match-end events skipped as duplicates"})
		FinalizeAborts = promauto.NewCounter(prometheus.CounterOpts{Name: "match_finalize_aborts_total", Help: "Number of finalizations aborted (kills undetermined)"})
		AnnouncesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "channel_announces_sent_total", Help: "Number of post-match messages sent to the channel"})
		AnnouncesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "channel_announces_failed_total", Help: "Number of post-match messages that failed to send"})
		APIPollCycles = promauto.NewCounter(prometheus.CounterOpts{Name: "leetify_poll_cycles_total", Help: "Number of Leetify poll cycles"})
		APIMatchesUpserted = promauto.NewCounter(prometheus.CounterOpts{Name: "leetify_matches_upserted_total", Help: "Number of API-sourced match rows upserted"})
		FinalizeDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "match_finalize_duration_seconds", Help: "Finalization duration seconds", Buckets: prometheus.DefBuckets})
		APIPollDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "leetify_poll_duration_seconds", Help: "Poll cycle duration seconds", Buckets: prometheus.DefBuckets})
		LastKillsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "tracked_player_last_kills", Help: "Kill count from the most recently finalized match"})
	})
}

// SetLastKills records the kill count of the most recent finalized match.
func SetLastKills(n int) {
	if LastKillsGauge != nil {
		LastKillsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}

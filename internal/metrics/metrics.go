// Package metrics exposes the Prometheus instruments of the matching engine
// and the notification pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EmbeddingRequests *prometheus.CounterVec
	MatchPassDuration prometheus.Histogram
	MatchesUpserted   prometheus.Counter
	MatchFailures     prometheus.Counter

	NotificationsDispatched *prometheus.CounterVec
	ChannelAttempts         *prometheus.CounterVec
	TasksRetried            prometheus.Counter
	TasksAbandoned          prometheus.Counter

	PublishFailures *prometheus.CounterVec
	StreamClients   *prometheus.GaugeVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EmbeddingRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmatch_embedding_requests_total",
			Help: "Embedding lookups by kind and outcome (reused, computed, error)",
		}, []string{"kind", "outcome"}),
		MatchPassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jobmatch_match_pass_duration_seconds",
			Help:    "Duration of one job-against-all-resumes pass",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		MatchesUpserted: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmatch_matches_upserted_total",
			Help: "Qualifying matches written",
		}),
		MatchFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmatch_match_comparison_failures_total",
			Help: "Resume comparisons skipped because of an error",
		}),
		NotificationsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmatch_notifications_dispatched_total",
			Help: "Notification intents dispatched by mode (queued, inline)",
		}, []string{"mode"}),
		ChannelAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmatch_channel_attempts_total",
			Help: "Channel adapter calls by channel and outcome (success, failed, skipped)",
		}, []string{"channel", "outcome"}),
		TasksRetried: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmatch_queue_tasks_retried_total",
			Help: "Queue tasks scheduled for another attempt",
		}),
		TasksAbandoned: f.NewCounter(prometheus.CounterOpts{
			Name: "jobmatch_queue_tasks_abandoned_total",
			Help: "Queue tasks dropped after exhausting their attempt budget",
		}),
		PublishFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jobmatch_realtime_publish_failures_total",
			Help: "Realtime events that could not be published",
		}, []string{"channel"}),
		StreamClients: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "jobmatch_stream_clients",
			Help: "Connected realtime clients by transport",
		}, []string{"transport"}),
	}
}

func (m *Metrics) Embedding(kind, outcome string) {
	if m == nil {
		return
	}
	m.EmbeddingRequests.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) MatchPass(d time.Duration, upserted, failed int) {
	if m == nil {
		return
	}
	m.MatchPassDuration.Observe(d.Seconds())
	m.MatchesUpserted.Add(float64(upserted))
	m.MatchFailures.Add(float64(failed))
}

func (m *Metrics) Dispatched(mode string) {
	if m == nil {
		return
	}
	m.NotificationsDispatched.WithLabelValues(mode).Inc()
}

func (m *Metrics) ChannelAttempt(channel, outcome string) {
	if m == nil {
		return
	}
	m.ChannelAttempts.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) TaskRetried() {
	if m == nil {
		return
	}
	m.TasksRetried.Inc()
}

func (m *Metrics) TaskAbandoned() {
	if m == nil {
		return
	}
	m.TasksAbandoned.Inc()
}

func (m *Metrics) PublishFailed(channel string) {
	if m == nil {
		return
	}
	m.PublishFailures.WithLabelValues(channel).Inc()
}

// StreamClient adjusts the connected-client gauge by delta.
func (m *Metrics) StreamClient(transport string, delta float64) {
	if m == nil {
		return
	}
	m.StreamClients.WithLabelValues(transport).Add(delta)
}

// Package metrics provides Prometheus metrics for the Indulge service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignupsTotal tracks account signups by role
	SignupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Total number of account signups by role",
		},
		[]string{"role"},
	)

	// LoginsTotal tracks login attempts by outcome
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Total number of login attempts by outcome",
		},
		[]string{"status"},
	)

	// LikesTotal tracks likes recorded
	LikesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "matching",
			Name:      "likes_total",
			Help:      "Total number of likes recorded",
		},
	)

	// PassesTotal tracks passes recorded
	PassesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "matching",
			Name:      "passes_total",
			Help:      "Total number of passes recorded",
		},
	)

	// MatchesTotal tracks mutual matches created
	MatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "matching",
			Name:      "matches_total",
			Help:      "Total number of mutual matches created",
		},
	)

	// MessagesTotal tracks messages sent
	MessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Total number of messages sent",
		},
	)

	// FeedRequestDuration tracks discovery feed query duration
	FeedRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "indulge",
			Subsystem: "feed",
			Name:      "request_duration_seconds",
			Help:      "Duration of discovery feed queries in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	// OTPSendsTotal tracks verification code sends by channel and outcome
	OTPSendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "verification",
			Name:      "otp_sends_total",
			Help:      "Total number of verification code sends by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "indulge",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"event_type", "status"},
	)
)

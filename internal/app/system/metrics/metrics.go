// Package metrics holds the Prometheus collectors for the chat service.
// Collectors register with the default registry on import and are served by
// promhttp at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// MessagesSent counts durable message inserts by author kind
	// ("human" or "assistant").
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dukhiatma",
			Name:      "messages_sent_total",
			Help:      "Messages persisted, by author kind.",
		},
		[]string{"kind"},
	)

	// SendFailures counts rejected or failed sends by reason.
	SendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dukhiatma",
			Name:      "send_failures_total",
			Help:      "Sends that did not persist, by reason.",
		},
		[]string{"reason"},
	)

	// AssistantAttempts counts generative-text attempts per model and outcome.
	AssistantAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dukhiatma",
			Name:      "assistant_attempts_total",
			Help:      "Generative-text attempts, by model and result.",
		},
		[]string{"model", "result"},
	)

	// AssistantReplies counts whole fallback-chain outcomes.
	AssistantReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dukhiatma",
			Name:      "assistant_replies_total",
			Help:      "Assistant replies, by result (ok, exhausted, discarded).",
		},
		[]string{"result"},
	)

	// ActiveSessions is the number of open chat sessions on this node.
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dukhiatma",
			Name:      "chat_sessions_active",
			Help:      "Open chat sessions.",
		},
	)

	// RealtimeEvents counts change events published to local subscribers.
	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dukhiatma",
			Name:      "realtime_events_total",
			Help:      "Realtime events fanned out, by table and op.",
		},
		[]string{"table", "op"},
	)

	// MembersRemoved counts admin removals by outcome.
	MembersRemoved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dukhiatma",
			Name:      "member_removals_total",
			Help:      "Admin removal attempts, by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		MessagesSent,
		SendFailures,
		AssistantAttempts,
		AssistantReplies,
		ActiveSessions,
		RealtimeEvents,
		MembersRemoved,
	)
}

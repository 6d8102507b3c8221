package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulse", Name: "mutations_total", Help: "Number of successful store mutations by collection and operation."},
		[]string{"collection", "op"},
	)
	MutationsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulse", Name: "mutations_rejected_total", Help: "Number of mutations rejected before any store write, by reason."},
		[]string{"reason"},
	)
	LiveSubscriptions = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "pulse", Name: "live_subscriptions_active", Help: "Number of live query subscriptions currently registered."},
	)
	SnapshotsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulse", Name: "live_snapshots_delivered_total", Help: "Number of full result-set snapshots delivered to subscribers by collection."},
		[]string{"collection"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulse", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "pulse", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(MutationsTotal)
	reg.MustRegister(MutationsRejected)
	reg.MustRegister(LiveSubscriptions)
	reg.MustRegister(SnapshotsDelivered)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}

// Package metrics defines the console's custom Prometheus metrics. HTTP
// request metrics come from echoprometheus and are not declared here.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "console"

// ── Auth ──────────────────────────────────────────────────────────────────────

// AuthAttemptsTotal counts sign-up, sign-in and sign-out calls.
// Labels:
//   - action: "signup", "signin" or "signout"
//   - result: "success", "invalid" or "error"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts.",
	},
	[]string{"action", "result"},
)

// GuardDecisionsTotal counts access guard outcomes per protected route group.
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of access guard decisions, by route and outcome.",
	},
	[]string{"route", "outcome"},
)

// ── Admin lifecycle ───────────────────────────────────────────────────────────

// BootstrapOutcomesTotal counts first-admin setup attempts.
// Label:
//   - code: "success" or the failure code (e.g. "ADMIN_EXISTS")
var BootstrapOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bootstrap_outcomes_total",
		Help:      "Total number of first-admin bootstrap attempts, by strategy and result code.",
	},
	[]string{"strategy", "code"},
)

// ConfirmationsTotal counts confirmation link completions.
var ConfirmationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Total number of confirmation attempts, by link shape and status.",
	},
	[]string{"shape", "status"},
)

// PromotionOutcomesTotal counts admin promotion requests.
var PromotionOutcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "promotion_outcomes_total",
		Help:      "Total number of admin promotions, by result code.",
	},
	[]string{"code"},
)

// ── Dependencies ──────────────────────────────────────────────────────────────

// RemoteCallDuration measures calls to the identity service and record store.
// Labels:
//   - operation: client operation name (e.g. "auth.signin", "rpc.admin_exists")
//   - result: "ok" or "error"
var RemoteCallDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "remote_call_duration_seconds",
		Help:      "Duration of calls to the backend-as-a-service.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"operation", "result"},
)

// AuditQueue is the subset of the audit dispatcher the gauges read from.
type AuditQueue interface {
	Depth() int64
	Dropped() int64
}

// RegisterAuditQueue exposes the audit dispatcher's backlog and drop count.
// Call it once per process.
func RegisterAuditQueue(q AuditQueue) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_queue_depth",
			Help:      "Current number of audit entries pending in the dispatcher.",
		},
		func() float64 { return float64(q.Depth()) },
	)
	promauto.NewCounterFunc(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_dropped_total",
			Help:      "Total number of audit entries dropped on a full queue.",
		},
		func() float64 { return float64(q.Dropped()) },
	)
}

// ObserveRemoteCall records one backend call. Its signature matches
// supabase.Observer.
func ObserveRemoteCall(op string, elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	RemoteCallDuration.WithLabelValues(op, result).Observe(elapsed.Seconds())
}

// Result returns "success" or code for outcome counters.
func Result(success bool, code string) string {
	if success {
		return "success"
	}
	if code == "" {
		return "unknown"
	}
	return code
}

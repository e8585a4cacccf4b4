package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LatencyBucket = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "quickpay_latency_bucket",
		Help:    "Request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	RateLimitDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickpay_ratelimit_decisions_total",
		Help: "Rate limiter decisions by protected function and outcome",
	}, []string{"function", "outcome"})

	RateLimitFailOpen = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickpay_ratelimit_fail_open_total",
		Help: "Checks allowed because the backing store failed",
	}, []string{"function"})

	RateLimitSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quickpay_ratelimit_swept_total",
		Help: "Stale rate limit records deleted by the sweeper",
	})

	RiskScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quickpay_risk_score",
		Help:    "Distribution of merchant risk scores",
		Buckets: []float64{10, 25, 40, 50, 60, 75, 90, 100},
	})

	RiskLevels = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickpay_risk_levels_total",
		Help: "Merchant risk evaluations by tier",
	}, []string{"level"})

	OTPSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickpay_otp_sends_total",
		Help: "OTP delivery attempts by result",
	}, []string{"result"})

	AuditEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickpay_audit_entries_total",
		Help: "Audit entries by sink and result",
	}, []string{"sink", "result"})
)

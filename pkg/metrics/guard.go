package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GuardMetrics records outcomes of the authentication/authorization guard chain.
type GuardMetrics struct {
	authnOutcomes *prometheus.CounterVec
	authzDenials  *prometheus.CounterVec
	provisioned   prometheus.Counter
	verifyLatency prometheus.Histogram
}

// NewGuardMetrics registers the guard metrics on the provided registerer.
func NewGuardMetrics(reg prometheus.Registerer) *GuardMetrics {
	if reg == nil {
		return &GuardMetrics{}
	}
	authnOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authn_outcomes_total",
		Help: "Authentication guard outcomes by result.",
	}, []string{"outcome"})
	authzDenials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authz_denials_total",
		Help: "Authorization guard denials by reason.",
	}, []string{"reason"})
	provisioned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "users_provisioned_total",
		Help: "Users auto-provisioned on first login.",
	})
	verifyLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "token_verify_duration_seconds",
		Help:    "Latency of delegated token verification.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(authnOutcomes, authzDenials, provisioned, verifyLatency)
	return &GuardMetrics{
		authnOutcomes: authnOutcomes,
		authzDenials:  authzDenials,
		provisioned:   provisioned,
		verifyLatency: verifyLatency,
	}
}

// ObserveAuthn records an authentication outcome (allowed, missing_credential,
// invalid_credential, verifier_unavailable).
func (g *GuardMetrics) ObserveAuthn(outcome string) {
	if g == nil || g.authnOutcomes == nil {
		return
	}
	g.authnOutcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveAuthzDenial records an authorization denial (unauthenticated,
// insufficient_role).
func (g *GuardMetrics) ObserveAuthzDenial(reason string) {
	if g == nil || g.authzDenials == nil {
		return
	}
	g.authzDenials.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncProvisioned counts a first-login auto-provision.
func (g *GuardMetrics) IncProvisioned() {
	if g == nil || g.provisioned == nil {
		return
	}
	g.provisioned.Inc()
}

// ObserveVerifyDuration records the time spent in the external verifier.
func (g *GuardMetrics) ObserveVerifyDuration(d time.Duration) {
	if g == nil || g.verifyLatency == nil {
		return
	}
	g.verifyLatency.Observe(d.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return "unknown"
	}
	return strings.ReplaceAll(trimmed, " ", "_")
}

package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the MFA counters. A nil *Metrics records nothing.
type Metrics struct {
	Challenges     *prometheus.CounterVec
	Lockouts       prometheus.Counter
	EmailDelivery  *prometheus.CounterVec
	SetupsComplete prometheus.Counter
}

// NewMetrics registers the MFA counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Challenges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bartab_mfa_challenges_total",
				Help: "MFA challenge attempts by method and outcome",
			},
			[]string{"method", "outcome"}, // outcome: success/failure/locked
		),
		Lockouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "bartab_mfa_lockouts_total",
			Help: "Number of times a user was locked out after repeated failures",
		}),
		EmailDelivery: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bartab_mfa_email_otp_delivery_total",
				Help: "Email OTP dispatch results",
			},
			[]string{"result"}, // delivered/failed
		),
		SetupsComplete: factory.NewCounter(prometheus.CounterOpts{
			Name: "bartab_mfa_setups_completed_total",
			Help: "Number of confirmed TOTP enrolments",
		}),
	}
}

func (m *Metrics) challenge(method, outcome string) {
	if m == nil {
		return
	}
	m.Challenges.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) lockout() {
	if m == nil {
		return
	}
	m.Lockouts.Inc()
}

func (m *Metrics) emailDelivery(delivered bool) {
	if m == nil {
		return
	}
	result := "failed"
	if delivered {
		result = "delivered"
	}
	m.EmailDelivery.WithLabelValues(result).Inc()
}

func (m *Metrics) setupCompleted() {
	if m == nil {
		return
	}
	m.SetupsComplete.Inc()
}

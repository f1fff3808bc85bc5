// Package metrics exposes prometheus instruments for the settlement engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments. Services take it as an
// optional dependency and guard every call with a nil check.
type Metrics struct {
	settlements     *prometheus.CounterVec
	walletCredits   prometheus.Counter
	reconciliations prometheus.Counter
	lockTimeouts    prometheus.Counter
}

// New registers the settlement instruments on the given registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "paylane",
			Name:      "settlements_total",
			Help:      "Settlement attempts by phase and outcome.",
		}, []string{"phase", "outcome"}),
		walletCredits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paylane",
			Name:      "wallet_credits_total",
			Help:      "Successful wallet credits.",
		}),
		reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paylane",
			Name:      "reconciliation_warnings_total",
			Help:      "Wallet credits that failed after a successful charge.",
		}),
		lockTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "paylane",
			Name:      "lock_wait_timeouts_total",
			Help:      "Resource lock acquisitions that timed out.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.settlements,
		m.walletCredits,
		m.reconciliations,
		m.lockTimeouts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) RecordSettlement(phase, outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(phase, outcome).Inc()
}

func (m *Metrics) RecordWalletCredit() {
	if m == nil {
		return
	}
	m.walletCredits.Inc()
}

func (m *Metrics) RecordReconciliationWarning() {
	if m == nil {
		return
	}
	m.reconciliations.Inc()
}

func (m *Metrics) RecordLockTimeout() {
	if m == nil {
		return
	}
	m.lockTimeouts.Inc()
}

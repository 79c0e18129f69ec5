// Package metrics exposes Prometheus counters for account operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

const namespace = "bankaccount"

const (
	OperationOpen     = "open"
	OperationDeposit  = "deposit"
	OperationWithdraw = "withdraw"

	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder tracks operation outcomes and moved amounts. A nil *Recorder is a
// valid no-op.
type Recorder struct {
	operations *prometheus.CounterVec
	amounts    *prometheus.CounterVec
	open       prometheus.Gauge
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Account operations by kind and outcome",
			},
			[]string{"operation", "outcome"},
		),
		amounts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "amount_total",
				Help:      "Sum of successfully applied amounts by operation",
			},
			[]string{"operation"},
		),
		open: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "accounts_open",
			Help:      "Accounts currently held by this process",
		}),
	}

	for _, c := range []prometheus.Collector{r.operations, r.amounts, r.open} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records one operation. amount is only added on success.
func (r *Recorder) Observe(operation, outcome string, amount decimal.Decimal) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, outcome).Inc()
	if outcome != OutcomeSuccess {
		return
	}
	r.amounts.WithLabelValues(operation).Add(amount.InexactFloat64())
	if operation == OperationOpen {
		r.open.Inc()
	}
}

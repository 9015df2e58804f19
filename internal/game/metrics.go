package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the game counters exported on /metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	RoundsResolved prometheus.CounterVec // partitioned by outcome: crashed or aborted
	BetsPlaced     prometheus.Counter
	BetsRejected   prometheus.CounterVec // partitioned by error code
	Cashouts       prometheus.CounterVec // partitioned by kind: manual or auto
	Wagered        prometheus.Counter
	PaidOut        prometheus.Counter
	CrashPoints    prometheus.Histogram
	ActiveBets     prometheus.Gauge
	CreditFailures prometheus.Counter
}

// crash points cluster at the low end of [1, 15]
var crashBuckets = []float64{1.01, 1.1, 1.5, 2, 3, 5, 8, 10, 12, 15}

// NewMetrics creates and registers the game metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.RoundsResolved = *factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crash_rounds_resolved_total",
		Help: "resolved rounds; partitioned by outcome",
	}, []string{"outcome"})

	m.BetsPlaced = factory.NewCounter(prometheus.CounterOpts{
		Name: "crash_bets_placed_total",
		Help: "accepted bets",
	})
	m.BetsRejected = *factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crash_bets_rejected_total",
		Help: "rejected bets; partitioned by error code",
	}, []string{"code"})

	m.Cashouts = *factory.NewCounterVec(prometheus.CounterOpts{
		Name: "crash_cashouts_total",
		Help: "settled cash-outs; partitioned by manual or auto",
	}, []string{"kind"})

	m.Wagered = factory.NewCounter(prometheus.CounterOpts{
		Name: "crash_wagered_total",
		Help: "sum of accepted stakes",
	})
	m.PaidOut = factory.NewCounter(prometheus.CounterOpts{
		Name: "crash_paid_out_total",
		Help: "sum of cash-out payouts",
	})

	m.CrashPoints = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "crash_point",
		Help:    "distribution of crash points",
		Buckets: crashBuckets,
	})
	m.ActiveBets = factory.NewGauge(prometheus.GaugeOpts{
		Name: "crash_active_bets",
		Help: "bets in the current round",
	})
	m.CreditFailures = factory.NewCounter(prometheus.CounterOpts{
		Name: "crash_credit_failures_total",
		Help: "won cash-outs the ledger failed to credit",
	})
	return m
}

func (m *Metrics) betPlaced(amount float64) {
	if m == nil {
		return
	}
	m.BetsPlaced.Inc()
	m.Wagered.Add(amount)
	m.ActiveBets.Inc()
}

func (m *Metrics) betRejected(err error) {
	if m == nil {
		return
	}
	m.BetsRejected.WithLabelValues(ErrorCode(err)).Inc()
}

func (m *Metrics) settled(s Settlement) {
	if m == nil {
		return
	}
	kind := "manual"
	if s.Auto {
		kind = "auto"
	}
	m.Cashouts.WithLabelValues(kind).Inc()
	m.PaidOut.Add(s.Payout)
}

func (m *Metrics) resolved(res TickResult) {
	if m == nil {
		return
	}
	outcome := "crashed"
	if res.Aborted {
		outcome = "aborted"
	} else {
		m.CrashPoints.Observe(res.CrashPoint)
	}
	m.RoundsResolved.WithLabelValues(outcome).Inc()
	m.ActiveBets.Set(0)
}

func (m *Metrics) creditFailed() {
	if m == nil {
		return
	}
	m.CreditFailures.Inc()
}

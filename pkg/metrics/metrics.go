package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the wallet-core instrumentation. Construct once per process
// with a dedicated registerer so tests can use a fresh registry.
type Metrics struct {
	settlementsTotal  *prometheus.CounterVec
	counterConflicts  prometheus.Counter
	queueDepth        prometheus.Gauge
	queueFlushesTotal *prometheus.CounterVec
	restoredProofs    prometheus.Counter
	promisesIssued    prometheus.Counter
}

// New registers and returns the wallet metric set.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		settlementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nutpay_settlements_total",
			Help: "Settlement operations by op (receive, send_split, melt, pay) and outcome",
		}, []string{"op", "outcome"}),

		counterConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "nutpay_counter_conflicts_total",
			Help: "Blinding-index conflicts resolved by counter skip",
		}),

		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "nutpay_offline_queue_depth",
			Help: "Pending payment intents awaiting replay",
		}),

		queueFlushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nutpay_queue_flushes_total",
			Help: "Offline queue flush runs by outcome",
		}, []string{"outcome"}),

		restoredProofs: factory.NewCounter(prometheus.CounterOpts{
			Name: "nutpay_restored_proofs_total",
			Help: "Proofs recovered by the restore scanner",
		}),

		promisesIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "nutpay_promises_issued_total",
			Help: "Credo promises issued to cover ecash shortfalls",
		}),
	}
}

// Nop returns a metric set bound to a throwaway registry.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) IncSettlement(op string, outcome string) {
	m.settlementsTotal.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) IncCounterConflict() {
	m.counterConflicts.Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) IncFlush(outcome string) {
	m.queueFlushesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddRestoredProofs(n int) {
	m.restoredProofs.Add(float64(n))
}

func (m *Metrics) IncPromiseIssued() {
	m.promisesIssued.Inc()
}

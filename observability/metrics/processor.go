package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// ProcessorMetrics tracks command throughput and the credit-risk events the
// ledger emits while servicing loans.
type ProcessorMetrics struct {
	commandsProcessed *prometheus.CounterVec
	commandsRejected  *prometheus.CounterVec
	loansDefaulted    prometheus.Counter
	collateralSeized  prometheus.Counter
	seizedAmount      prometheus.Counter
}

var (
	processorOnce     sync.Once
	processorRegistry *ProcessorMetrics
)

// Processor returns the process-wide metrics registry, registering the
// collectors on first use.
func Processor() *ProcessorMetrics {
	processorOnce.Do(func() {
		processorRegistry = &ProcessorMetrics{
			commandsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "creditchain_commands_processed_total",
				Help: "Count of committed commands by kind.",
			}, []string{"kind"}),
			commandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "creditchain_commands_rejected_total",
				Help: "Count of rejected commands by kind and reason.",
			}, []string{"kind", "reason"}),
			loansDefaulted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "creditchain_loans_defaulted_total",
				Help: "Count of installment loans marked defaulted.",
			}),
			collateralSeized: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "creditchain_collateral_seizures_total",
				Help: "Count of collateral seizure executions.",
			}),
			seizedAmount: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "creditchain_collateral_seized_amount_total",
				Help: "Cumulative collateral seized, in the settlement asset's smallest unit.",
			}),
		}
		prometheus.MustRegister(
			processorRegistry.commandsProcessed,
			processorRegistry.commandsRejected,
			processorRegistry.loansDefaulted,
			processorRegistry.collateralSeized,
			processorRegistry.seizedAmount,
		)
	})
	return processorRegistry
}

func (m *ProcessorMetrics) ObserveProcessed(kind string) {
	if m == nil {
		return
	}
	m.commandsProcessed.WithLabelValues(kind).Inc()
}

func (m *ProcessorMetrics) ObserveRejected(kind, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.commandsRejected.WithLabelValues(kind, reason).Inc()
}

func (m *ProcessorMetrics) ObserveDefault() {
	if m == nil {
		return
	}
	m.loansDefaulted.Inc()
}

func (m *ProcessorMetrics) ObserveSeizure(amount uint64) {
	if m == nil {
		return
	}
	m.collateralSeized.Inc()
	m.seizedAmount.Add(float64(amount))
}

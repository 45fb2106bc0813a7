package wasm

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	labelOutcome = "outcome"

	outcomeSuccess       = "success"
	outcomeDeterministic = "deterministic"
	outcomeError         = "error"
)

// Metrics are the prometheus collectors of a VM.
type Metrics struct {
	invocations  *prometheus.CounterVec
	gasUsed      prometheus.Histogram
	staticMemory prometheus.Histogram
}

// gas buckets from one host call overhead up to the default ceiling
var gasBuckets = prometheus.ExponentialBuckets(1e4, 10, 10)

func NewMetrics(prom prometheus.Registerer) (*Metrics, error) {
	invocations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wasmgas_handler_invocations_total",
			Help: "Handler invocations by outcome.",
		},
		[]string{labelOutcome},
	)
	gasUsed := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wasmgas_handler_gas_used",
			Help:    "Gas used per handler invocation.",
			Buckets: gasBuckets,
		},
	)
	staticMemory := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wasmgas_module_static_memory_gas",
			Help:    "Load-time memory charge per stored module.",
			Buckets: gasBuckets,
		},
	)

	var err error
	if invocations, err = registerCollector(prom, invocations); err != nil {
		return nil, err
	}
	if gasUsed, err = registerCollector(prom, gasUsed); err != nil {
		return nil, err
	}
	if staticMemory, err = registerCollector(prom, staticMemory); err != nil {
		return nil, err
	}
	return &Metrics{
		invocations:  invocations,
		gasUsed:      gasUsed,
		staticMemory: staticMemory,
	}, nil
}

func (m *Metrics) observeInvocation(outcome string, gasUsed uint64) {
	m.invocations.With(prometheus.Labels{labelOutcome: outcome}).Inc()
	m.gasUsed.Observe(float64(gasUsed))
}

func (m *Metrics) observeModule(staticMemory uint64) {
	m.staticMemory.Observe(float64(staticMemory))
}

var ErrWrongMetricType = errors.New("collector already registered with different type")

// registerCollector registers c, or returns the collector already registered
// under the same name.
func registerCollector[T prometheus.Collector](prom prometheus.Registerer, c T) (T, error) {
	err := prom.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		return c, err
	}

	existing, ok := are.ExistingCollector.(T)
	if !ok {
		return c, ErrWrongMetricType
	}
	return existing, nil
}

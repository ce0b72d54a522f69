package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks the direct-debit presentment and reconciliation flow.
type EngineMetrics struct {
	batches        *prometheus.CounterVec
	rows           *prometheus.CounterVec
	buildDuration  *prometheus.HistogramVec
	importDuration *prometheus.HistogramVec
	fiscalIssuance *prometheus.CounterVec
}

var (
	engineMetricsOnce sync.Once
	engineMetrics     *EngineMetrics
)

func Engine() *EngineMetrics {
	return EngineWithConfig(Config{})
}

func EngineWithConfig(cfg Config) *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineMetrics = newEngineMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return engineMetrics
}

func ResetEngineMetricsForTest() {
	engineMetricsOnce = sync.Once{}
	engineMetrics = nil
}

func newEngineMetrics(registerer prometheus.Registerer, cfg Config) *EngineMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "caravel"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	batches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "caravel_direct_debit_batches_total",
			Help:        "Direct-debit file batches by direction and final status.",
			ConstLabels: constLabels,
		},
		[]string{"direction", "status"},
	)

	rows := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "caravel_direct_debit_rows_total",
			Help:        "Direct-debit file rows by direction and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"direction", "outcome"}, // outbound: presented; inbound: paid | rejected | error
	)

	buildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "caravel_direct_debit_build_duration_seconds",
			Help:        "Time spent building an outbound presentment batch.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"adapter"},
	)

	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "caravel_direct_debit_import_duration_seconds",
			Help: "Time spent importing a bank response file.",
			Buckets: []float64{
				0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120,
			},
			ConstLabels: constLabels,
		},
		[]string{"adapter"},
	)

	fiscalIssuance := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "caravel_fiscal_issuance_total",
			Help:        "Fiscal document issuance requests by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // issued | failed
	)

	registerer.MustRegister(
		batches,
		rows,
		buildDuration,
		importDuration,
		fiscalIssuance,
	)

	return &EngineMetrics{
		batches:        batches,
		rows:           rows,
		buildDuration:  buildDuration,
		importDuration: importDuration,
		fiscalIssuance: fiscalIssuance,
	}
}

func (m *EngineMetrics) IncBatch(direction, status string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(direction, status).Inc()
}

func (m *EngineMetrics) AddRows(direction, outcome string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.rows.WithLabelValues(direction, outcome).Add(float64(count))
}

func (m *EngineMetrics) ObserveBuildDuration(adapter string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.buildDuration.WithLabelValues(adapter).Observe(elapsed.Seconds())
}

func (m *EngineMetrics) ObserveImportDuration(adapter string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importDuration.WithLabelValues(adapter).Observe(elapsed.Seconds())
}

func (m *EngineMetrics) IncFiscalIssuance(result string) {
	if m == nil {
		return
	}
	m.fiscalIssuance.WithLabelValues(result).Inc()
}

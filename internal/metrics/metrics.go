package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	evaluations     *prometheus.CounterVec
	annotations     *prometheus.CounterVec
	emails          *prometheus.CounterVec
	turnErrors      *prometheus.CounterVec
	analysisLatency prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_evaluations_total",
			Help: "Completed contract evaluations by recommended action",
		}, []string{"action"}),
		annotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_annotations_total",
			Help: "Clause annotations by outcome",
		}, []string{"outcome"}),
		emails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_escalation_emails_total",
			Help: "Escalation emails by outcome",
		}, []string{"outcome"}),
		turnErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_turn_errors_total",
			Help: "Conversation turns aborted by stage",
		}, []string{"stage"}),
		analysisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "contract_analysis_duration_seconds",
			Help:    "Latency of the contract analysis call",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
	}
	reg.MustRegister(
		m.evaluations,
		m.annotations,
		m.emails,
		m.turnErrors,
		m.analysisLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Evaluation(action string) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(action).Inc()
}

func (m *Metrics) Annotation(success bool) {
	if m == nil {
		return
	}
	m.annotations.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) Email(success bool) {
	if m == nil {
		return
	}
	m.emails.WithLabelValues(outcome(success)).Inc()
}

func (m *Metrics) TurnError(stage string) {
	if m == nil {
		return
	}
	m.turnErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) ObserveAnalysis(d time.Duration) {
	if m == nil {
		return
	}
	m.analysisLatency.Observe(d.Seconds())
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

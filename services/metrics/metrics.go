// Package metricsvc exposes import and rollover counters to Prometheus.
package metricsvc

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/morris0411/ManavisGradesApp/core"
)

// Run kinds
const (
	KindRoster   = "roster"
	KindExams    = "exams"
	KindSubjects = "subjects"
	KindSeed     = "exam_seed"
	KindRollover = "rollover"
)

// Outcomes
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

type Metrics struct {
	reg      *prometheus.Registry
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Import and rollover runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of import and rollover runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"kind"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows written or skipped by imports.",
		}, []string{"kind", "outcome"}),
	}
	m.reg.MustRegister(m.runs, m.duration, m.rows, collectors.NewGoCollector())
	return m
}

// Outcome classifies the error returned by a run.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case core.IsValidation(err), core.IsRejection(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// ObserveRun records one run of kind that started at started and returned err.
func (m *Metrics) ObserveRun(kind string, started time.Time, err error) {
	m.runs.WithLabelValues(kind, Outcome(err)).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) AddRows(kind, outcome string, n int) {
	if n > 0 {
		m.rows.WithLabelValues(kind, outcome).Add(float64(n))
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

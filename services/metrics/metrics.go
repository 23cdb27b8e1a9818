// Package metrics exposes the service's prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/exoshivam/smart-attendance/core/attendance"
)

const namespace = "attendance"

// Recorder counts attendance marking outcomes per method.
type Recorder struct {
	registry *prometheus.Registry
	marks    *prometheus.CounterVec
}

var _ attendance.Recorder = (*Recorder)(nil)

func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	marks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "marks_total",
		Help:      "Attendance marking attempts by method and outcome.",
	}, []string{"method", "outcome"})
	registry.MustRegister(marks)

	return &Recorder{registry: registry, marks: marks}
}

func (r *Recorder) ObserveMark(method, outcome string) {
	r.marks.WithLabelValues(method, outcome).Inc()
}

// Handler serves the registry in the prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

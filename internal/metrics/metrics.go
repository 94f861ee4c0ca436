// Package metrics records conversation and export metrics with Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives bot metrics
type Recorder interface {
	IncEvent(kind string)
	IncValidationFailure(rule string)
	IncConversation(stage string)
	ObserveExport(success bool, duration time.Duration)
}

// Conversation stages
const (
	StageStarted   = "started"
	StageBegun     = "begun"
	StageCompleted = "completed"
	StageReset     = "reset"
)

// PrometheusRecorder implements Recorder with Prometheus collectors
type PrometheusRecorder struct {
	eventsTotal        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	conversationsTotal *prometheus.CounterVec
	exportsTotal       *prometheus.CounterVec
	exportDuration     *prometheus.HistogramVec
}

// NewPrometheusRecorder registers the collectors on reg
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		eventsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surveybot_inbound_events_total",
				Help: "Inbound respondent events by kind",
			},
			[]string{"kind"},
		),
		validationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surveybot_validation_failures_total",
				Help: "Text answers rejected by a validation rule",
			},
			[]string{"rule"},
		),
		conversationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surveybot_conversations_total",
				Help: "Conversations by lifecycle stage",
			},
			[]string{"stage"},
		),
		exportsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "surveybot_exports_total",
				Help: "Spreadsheet exports by status",
			},
			[]string{"status"},
		),
		exportDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "surveybot_export_duration_seconds",
				Help:    "Duration of spreadsheet exports in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
	}
}

func (p *PrometheusRecorder) IncEvent(kind string) {
	p.eventsTotal.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncValidationFailure(rule string) {
	p.validationFailures.WithLabelValues(rule).Inc()
}

func (p *PrometheusRecorder) IncConversation(stage string) {
	p.conversationsTotal.WithLabelValues(stage).Inc()
}

// ObserveExport counts the export and records its duration
func (p *PrometheusRecorder) ObserveExport(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	p.exportsTotal.WithLabelValues(status).Inc()
	p.exportDuration.WithLabelValues(status).Observe(duration.Seconds())
}

type nopRecorder struct{}

func (nopRecorder) IncEvent(string)                   {}
func (nopRecorder) IncValidationFailure(string)       {}
func (nopRecorder) IncConversation(string)            {}
func (nopRecorder) ObserveExport(bool, time.Duration) {}

// Nop returns a recorder that drops everything
func Nop() Recorder {
	return nopRecorder{}
}

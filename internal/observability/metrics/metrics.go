package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the scheduling pipeline.
type PipelineMetrics struct {
	requestsTotal   *prometheus.CounterVec
	guardrailTotal  *prometheus.CounterVec
	stageLatency    *prometheus.HistogramVec
	blendConfidence prometheus.Histogram
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "pipeline",
			Name:      "requests_total",
			Help:      "Total scheduling requests processed",
		}, []string{"source", "status"}),
		guardrailTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scheduler",
			Subsystem: "pipeline",
			Name:      "guardrail_total",
			Help:      "Guardrail verdicts",
		}, []string{"status"}),
		stageLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "pipeline",
			Name:      "stage_latency_seconds",
			Help:      "Latency per pipeline stage",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		blendConfidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "scheduler",
			Subsystem: "pipeline",
			Name:      "blended_confidence",
			Help:      "Blended confidence of completed requests",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.guardrailTotal, m.stageLatency, m.blendConfidence)
	return m
}

func (m *PipelineMetrics) ObserveRequest(source, status string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(source, status).Inc()
}

func (m *PipelineMetrics) ObserveGuardrail(status string) {
	if m == nil {
		return
	}
	m.guardrailTotal.WithLabelValues(status).Inc()
}

func (m *PipelineMetrics) ObserveStageLatency(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *PipelineMetrics) ObserveBlendedConfidence(score float64) {
	if m == nil {
		return
	}
	m.blendConfidence.Observe(score)
}

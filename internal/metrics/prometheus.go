package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"grounded-meal-planner/internal/shared"
)

const namespace = "meal_planner"

// Recorder exposes pipeline counters to Prometheus. It satisfies the
// degradation recorder interfaces of the candidate fetcher and the planner.
type Recorder struct {
	registry *prometheus.Registry

	Degradations *prometheus.CounterVec
	AgentCalls   *prometheus.CounterVec
	AgentTokens  *prometheus.CounterVec
	AgentLatency *prometheus.HistogramVec
	Plans        *prometheus.CounterVec
}

// NewRecorder registers the collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		Degradations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "degradations_total",
				Help:      "Fallbacks taken by the planning pipeline, by kind",
			},
			[]string{"kind"},
		),
		AgentCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_calls_total",
				Help:      "LLM agent executions",
			},
			[]string{"agent"},
		),
		AgentTokens: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "agent_tokens_total",
				Help:      "Tokens consumed by LLM agents",
			},
			[]string{"agent", "type"},
		),
		AgentLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "agent_latency_seconds",
				Help:      "Latency of LLM agent executions",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"agent"},
		),
		Plans: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_total",
				Help:      "Generated meal plans by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordDegradation counts one fallback of the given kind.
func (r *Recorder) RecordDegradation(kind string) {
	r.Degradations.WithLabelValues(kind).Inc()
}

// ObserveAgent records one agent execution.
func (r *Recorder) ObserveAgent(meta shared.AgentMeta) {
	r.AgentCalls.WithLabelValues(meta.AgentName).Inc()
	r.AgentTokens.WithLabelValues(meta.AgentName, "prompt").Add(float64(meta.Usage.PromptTokens))
	r.AgentTokens.WithLabelValues(meta.AgentName, "completion").Add(float64(meta.Usage.CompletionTokens))
	if meta.Latency > 0 {
		r.AgentLatency.WithLabelValues(meta.AgentName).Observe(meta.Latency.Seconds())
	}
}

// ObservePlan counts a finished plan as "generated" or "fallback".
func (r *Recorder) ObservePlan(fallback bool) {
	outcome := "generated"
	if fallback {
		outcome = "fallback"
	}
	r.Plans.WithLabelValues(outcome).Inc()
}

// Gatherer returns the registry for exposition.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the current values in the node exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage labels used in metrics and failure events.
const (
	StagePoll      = "poll"
	StageHeroRead  = "hero_read"
	StageNarrative = "narrative"
	StageImage     = "image"
	StagePin       = "pin"
	StageCommit    = "commit"
)

// Metrics holds the orchestrator's collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	requestsDetected  *prometheus.CounterVec
	requestsCommitted *prometheus.CounterVec
	commitFailures    *prometheus.CounterVec
	stageFailures     *prometheus.CounterVec
	fallbacks         *prometheus.CounterVec
	duration          *prometheus.HistogramVec
}

// NewMetrics registers the orchestrator collectors plus Go and process
// collectors on a new registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		requestsDetected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamemaster_requests_detected_total",
			Help: "Adventure requests detected on-chain, by kind.",
		}, []string{"kind"}),
		requestsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamemaster_requests_committed_total",
			Help: "Resolutions broadcast successfully, by kind.",
		}, []string{"kind"}),
		commitFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamemaster_commit_failures_total",
			Help: "Resolutions that could not be broadcast, by kind.",
		}, []string{"kind"}),
		stageFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamemaster_stage_failures_total",
			Help: "Pipeline stage failures, by stage.",
		}, []string{"stage"}),
		fallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gamemaster_fallbacks_total",
			Help: "Requests committed with a substituted payload, by stage.",
		}, []string{"stage"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gamemaster_request_duration_seconds",
			Help:    "Time from detection to commit attempt.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 240},
		}, []string{"kind"}),
	}
}

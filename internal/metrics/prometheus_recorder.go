package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "anda"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	runDuration   *prom.HistogramVec
	runOutcomes   *prom.CounterVec
	rollbacks     *prom.CounterVec
	probes        *prom.CounterVec
	exhausted     prom.Counter
	cacheCopies   *prom.CounterVec
	compiles      *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg. A nil
// registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual build stages",
			Buckets:   prom.DefBuckets,
		}, []string{"project", "stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Stage result counts by outcome",
		}, []string{"project", "stage", "result"}),
		runDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Total project run duration",
			Buckets:   prom.DefBuckets,
		}, []string{"project"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "run_outcomes_total",
			Help:      "Project runs by final outcome",
		}, []string{"project", "outcome"}),
		rollbacks: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rollbacks_total",
			Help:      "Rollback stage executions by result",
		}, []string{"project", "result"}),
		probes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "source_package_probes_total",
			Help:      "Source package probes by result",
		}, []string{"result"}),
		exhausted: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dependency_resolution_exhausted_total",
			Help:      "Package builds that ran out of dependency resolution attempts",
		}),
		cacheCopies: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_cache_copies_total",
			Help:      "Artifact cache copy attempts by result",
		}, []string{"result"}),
		compiles: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "graph_compilations_total",
			Help:      "Build graph compilation requests by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.runDuration, pr.runOutcomes,
		pr.rollbacks, pr.probes, pr.exhausted, pr.cacheCopies, pr.compiles)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(project, stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(project, stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(project, stage string, result ResultLabel) {
	p.stageResults.WithLabelValues(project, stage, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveRunDuration(project string, d time.Duration) {
	p.runDuration.WithLabelValues(project).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRunOutcome(project, outcome string) {
	p.runOutcomes.WithLabelValues(project, outcome).Inc()
}

func (p *PrometheusRecorder) IncRollback(project string, success bool) {
	p.rollbacks.WithLabelValues(project, successLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncProbe(unresolved bool) {
	result := "resolved"
	if unresolved {
		result = "unresolved"
	}
	p.probes.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) IncResolutionExhausted() { p.exhausted.Inc() }

func (p *PrometheusRecorder) IncCacheCopy(success bool) {
	p.cacheCopies.WithLabelValues(successLabel(success)).Inc()
}

func (p *PrometheusRecorder) IncCompile(result string) {
	p.compiles.WithLabelValues(result).Inc()
}

func successLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

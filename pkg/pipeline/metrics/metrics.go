// Package metrics exports pipeline activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

const namespace = "taskflow"

const (
	statusSuccess = "success"
	statusFailure = "failure"
)

type pipelineMetrics struct {
	pipeline string

	nodesTotal   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	runsTotal    *prometheus.CounterVec
}

// PipelineMetrics returns a hook exporting node outputs and successful runs of the pipeline
// named pipelineName to reg. Collectors already registered by another hook are reused, so
// several pipelines can share one registry.
func PipelineMetrics(reg prometheus.Registerer, pipelineName string) (model.PipelineHook, error) {
	nodesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_outputs_total",
			Help:      "Total node outputs by pipeline, node, type and status",
		},
		[]string{"pipeline", "node", "type", "status"},
	)
	nodeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Node duration by pipeline, node and type. Subscribe nodes report their wait",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
		},
		[]string{"pipeline", "node", "type"},
	)
	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_completed_total",
			Help:      "Total successful pipeline runs",
		},
		[]string{"pipeline"},
	)

	pm := &pipelineMetrics{pipeline: pipelineName}
	var err error
	if pm.nodesTotal, err = register(reg, nodesTotal); err != nil {
		return nil, err
	}
	if pm.nodeDuration, err = register(reg, nodeDuration); err != nil {
		return nil, err
	}
	if pm.runsTotal, err = register(reg, runsTotal); err != nil {
		return nil, err
	}

	return pm, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	are := prometheus.AlreadyRegisteredError{}
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, errors.Wrap(err, "unable to register collector")
}

func (pm *pipelineMetrics) New() error {
	return nil
}

func (pm *pipelineMetrics) PrepareNode(_, node *model.NodeInfo) error {
	for _, status := range []string{statusSuccess, statusFailure} {
		pm.nodesTotal.WithLabelValues(pm.pipeline, node.ID, string(node.Type), status)
	}

	return nil
}

func (pm *pipelineMetrics) PrepareSlotLink(_, _ *model.NodeInfo) error {
	return nil
}

func (pm *pipelineMetrics) OnNodeOutput(node *model.NodeInfo, duration time.Duration, err error) error {
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	pm.nodesTotal.WithLabelValues(pm.pipeline, node.ID, string(node.Type), status).Inc()
	pm.nodeDuration.WithLabelValues(pm.pipeline, node.ID, string(node.Type)).Observe(duration.Seconds())

	return nil
}

func (pm *pipelineMetrics) Finish() error {
	pm.runsTotal.WithLabelValues(pm.pipeline).Inc()

	return nil
}

package measure

import (
	"sync"
	"time"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

type pipelineMeasure struct {
	Measure
	mu sync.Mutex
	// publishers lists, for every subscribe node, the publish nodes sharing its slot.
	publishers map[string][]string
}

func (pm *pipelineMeasure) New() error {
	pm.AddMetric(model.StartNode.ID)

	return nil
}

func (pm *pipelineMeasure) PrepareNode(_, node *model.NodeInfo) error {
	pm.AddMetric(node.ID)

	return nil
}

func (pm *pipelineMeasure) PrepareSlotLink(publisher, subscriber *model.NodeInfo) error {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.publishers[subscriber.ID] = append(pm.publishers[subscriber.ID], publisher.ID)

	return nil
}

func (pm *pipelineMeasure) OnNodeOutput(node *model.NodeInfo, duration time.Duration, err error) error {
	mt := pm.AddMetric(node.ID)
	if node.Type == model.SubscribeNodeType {
		pm.mu.Lock()
		publishers := pm.publishers[node.ID]
		pm.mu.Unlock()
		for _, pub := range publishers {
			mt.AddTransportDuration(pub, duration)
		}
	}
	if err != nil {
		mt.AddFailure(duration)

		return nil
	}
	mt.AddDuration(duration)

	return nil
}

func (pm *pipelineMeasure) Finish() error {
	return nil
}

// PipelineMeasure returns a hook recording node durations into measure.
func PipelineMeasure(measure Measure) model.PipelineHook {
	return &pipelineMeasure{Measure: measure, publishers: map[string][]string{}}
}

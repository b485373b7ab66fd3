package drawer

import (
	"time"

	"github.com/pkg/errors"

	"github.com/askiada/go-taskflow/pkg/pipeline/measure"
	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

type pipelineDrawer struct {
	Drawer
	m measure.Measure
}

func (pd *pipelineDrawer) New() error {
	err := pd.AddNode(model.StartNode)
	if err != nil {
		return errors.Wrap(err, "unable to add start node to drawer")
	}

	return nil
}

func (pd *pipelineDrawer) PrepareNode(parent, node *model.NodeInfo) error {
	err := pd.AddNode(node)
	if err != nil {
		return err
	}

	return pd.AddLink(parent.ID, node.ID)
}

func (pd *pipelineDrawer) PrepareSlotLink(publisher, subscriber *model.NodeInfo) error {
	return pd.AddSlotLink(publisher.ID, subscriber.ID)
}

func (pd *pipelineDrawer) OnNodeOutput(*model.NodeInfo, time.Duration, error) error {
	return nil
}

func (pd *pipelineDrawer) Finish() error {
	if pd.m != nil {
		err := pd.AddMeasure(pd.m)
		if err != nil {
			return errors.Wrap(err, "unable to add measure")
		}
	}

	err := pd.Draw()
	if err != nil {
		return errors.Wrap(err, "unable to draw pipeline")
	}

	return nil
}

// PipelineDrawer returns a hook drawing the pipeline graph after every successful run.
// The measure is optional; when set, the graph carries the measured durations.
func PipelineDrawer(drawer Drawer, measure measure.Measure) model.PipelineHook {
	return &pipelineDrawer{drawer, measure}
}

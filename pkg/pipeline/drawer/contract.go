package drawer

import (
	"io"

	"github.com/askiada/go-taskflow/pkg/pipeline/measure"
	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline.
type Drawer interface {
	// AddNode adds a node to the pipeline drawer. Adding a node twice is a no-op.
	AddNode(node *model.NodeInfo) error
	// AddLink adds a link between a parent node and one of its children.
	AddLink(parentID, childID string) error
	// AddSlotLink adds a link between a publisher and a subscriber of the same slot.
	AddSlotLink(publisherID, subscriberID string) error
	// AddMeasure labels and colours the graph with the measured durations.
	AddMeasure(measure measure.Measure) error
	// WriteTo writes the graph in the DOT language.
	WriteTo(w io.Writer) error
	// Draw creates a file with the pipeline graph.
	Draw() error
}

package model

// NodeType is the explicit discriminant of a graph node.
type NodeType string

const (
	TaskNodeType       NodeType = "task"
	SequentialNodeType NodeType = "sequential"
	ParallelNodeType   NodeType = "parallel"
	PublishNodeType    NodeType = "publish"
	SubscribeNodeType  NodeType = "subscribe"
	// BoundaryNodeType marks the synthetic start node.
	BoundaryNodeType NodeType = "boundary"
)

// NodeInfo describes one node of a validated pipeline graph.
type NodeInfo struct {
	// ID is unique within a pipeline. It is derived from Name and disambiguated when two
	// distinct nodes share the same name.
	ID   string
	Name string
	Type NodeType
	// Slot is the context slot name for publish and subscribe nodes.
	Slot string
}

// StartNode is the parent of every root.
var StartNode = &NodeInfo{ID: "start", Name: "start", Type: BoundaryNodeType}

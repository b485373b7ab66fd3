package model

import "time"

// PipelineHook defines the interface for pipeline observers.
type PipelineHook interface {
	// New initialises the hook before the pipeline graph is traversed.
	New() error

	pipelineGraphHook
	pipelineRunHook

	// Finish runs after every successful pipeline run.
	Finish() error
}

// pipelineGraphHook defines the hooks called once, while the pipeline is validated.
type pipelineGraphHook interface {
	// PrepareNode runs for every parent/child relation found in the composed graph.
	// Roots are reported with StartNode as parent.
	PrepareNode(parent, node *NodeInfo) error
	// PrepareSlotLink runs for every publisher/subscriber pair sharing a slot name.
	PrepareSlotLink(publisher, subscriber *NodeInfo) error
}

// pipelineRunHook defines the hooks called while the pipeline runs.
type pipelineRunHook interface {
	// OnNodeOutput runs everytime a task or a slot node returns.
	// For subscribe nodes the duration is the time spent waiting for the value.
	OnNodeOutput(node *NodeInfo, duration time.Duration, err error) error
}

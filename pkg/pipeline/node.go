package pipeline

import (
	"context"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

// Node is implemented by every element of a composed graph.
//
// Nodes are built once and may be invoked concurrently by many runs: only the PipelineContext
// differs from one invocation to the next.
type Node interface {
	// Invoke runs the node against the shared context with the given input.
	Invoke(ctx context.Context, pc *PipelineContext, in Input) (any, error)
	// Name returns the node name used in errors, logs and hooks.
	Name() string
	// Type returns the node discriminant.
	Type() model.NodeType
	// Children returns the composed nodes of a group, nil otherwise.
	Children() []Node
}

// Input holds the positional and named arguments delivered to a node.
type Input struct {
	Args  []any
	Named map[string]any
}

// Args builds an Input from positional arguments.
func Args(args ...any) Input {
	return Input{Args: args}
}

// next returns the input of the node following a sequential child that returned out.
// Named arguments are forwarded unchanged.
func (in Input) next(out any) Input {
	return Input{Args: []any{out}, Named: in.Named}
}

// Results is returned by parallel groups and by pipelines holding more than one root.
// Values are ordered by declaration, never by completion.
type Results []any

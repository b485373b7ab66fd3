package pipeline

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

// TaskGroup is a composite node running its children either sequentially or in parallel.
// Its children are never modified after construction.
type TaskGroup struct {
	children []Node
	parallel bool
}

// Sequence returns a group running nodes one after the other, each receiving the previous result.
func Sequence(nodes ...Node) *TaskGroup {
	return &TaskGroup{children: flatten(nodes, model.SequentialNodeType)}
}

// Parallel returns a group starting every node at once and collecting their results in order.
func Parallel(nodes ...Node) *TaskGroup {
	return &TaskGroup{children: flatten(nodes, model.ParallelNodeType), parallel: true}
}

// Then composes a and b sequentially. Nested sequential groups are flattened so that
// (a then b) then c and a then (b then c) build the same group.
func Then(a, b Node) *TaskGroup {
	return Sequence(a, b)
}

// With composes a and b in parallel. Nested parallel groups are flattened.
func With(a, b Node) *TaskGroup {
	return Parallel(a, b)
}

func flatten(nodes []Node, mode model.NodeType) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.Type() == mode {
			out = append(out, n.Children()...)

			continue
		}
		out = append(out, n)
	}

	return out
}

func (g *TaskGroup) Name() string {
	names := make([]string, len(g.children))
	for i, child := range g.children {
		names[i] = child.Name()
	}
	sep := " >> "
	if g.parallel {
		sep = " | "
	}

	return "(" + strings.Join(names, sep) + ")"
}

func (g *TaskGroup) Type() model.NodeType {
	if g.parallel {
		return model.ParallelNodeType
	}

	return model.SequentialNodeType
}

// Children returns a copy of the group children.
func (g *TaskGroup) Children() []Node {
	out := make([]Node, len(g.children))
	copy(out, g.children)

	return out
}

// Then chains next after the group.
func (g *TaskGroup) Then(next Node) *TaskGroup { return Then(g, next) }

// With runs other alongside the group.
func (g *TaskGroup) With(other Node) *TaskGroup { return With(g, other) }

func (g *TaskGroup) Invoke(ctx context.Context, pc *PipelineContext, in Input) (any, error) {
	if g.parallel {
		return g.invokeParallel(ctx, pc, in)
	}

	return g.invokeSequential(ctx, pc, in)
}

func (g *TaskGroup) invokeSequential(ctx context.Context, pc *PipelineContext, in Input) (any, error) {
	var out any
	for _, child := range g.children {
		res, err := child.Invoke(ctx, pc, in)
		if err != nil {
			return nil, err
		}
		out = res
		in = in.next(res)
	}

	return out, nil
}

// invokeParallel starts every child before waiting for any of them. The first failure cancels
// the context given to the siblings still running.
func (g *TaskGroup) invokeParallel(ctx context.Context, pc *PipelineContext, in Input) (any, error) {
	results := make(Results, len(g.children))
	errGrp, dCtx := errgroup.WithContext(ctx)
	for i, child := range g.children {
		errGrp.Go(func() error {
			res, err := child.Invoke(dCtx, pc, in)
			if err != nil {
				return err
			}
			results[i] = res

			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (g *TaskGroup) String() string {
	mode := "Sequential"
	if g.parallel {
		mode = "Parallel"
	}
	parts := make([]string, len(g.children))
	for i, child := range g.children {
		parts[i] = fmt.Sprint(child)
	}

	return fmt.Sprintf("TaskGroup(%s: [%s])", mode, strings.Join(parts, ", "))
}

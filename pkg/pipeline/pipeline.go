package pipeline

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

// Pipeline holds independent root subgraphs sharing one PipelineContext per run.
type Pipeline struct {
	name   string
	roots  []Node
	logger *slog.Logger
	hooks  []model.PipelineHook
	infos  map[Node]*model.NodeInfo
}

// New creates a pipeline from its roots.
//
// Every subscribed name must be published somewhere among the roots, otherwise an
// *OutputMismatchError naming all the unsatisfied subscriptions is returned and nothing runs.
func New(roots []Node, opts ...Option) (*Pipeline, error) {
	pipe := &Pipeline{
		name:   "pipeline",
		roots:  append([]Node(nil), roots...),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(pipe)
	}

	gi, err := indexRoots(pipe.roots)
	if err != nil {
		return nil, err
	}
	pipe.infos = gi.infos

	for _, hook := range pipe.hooks {
		err := hook.New()
		if err != nil {
			return nil, errors.Wrap(err, "unable to initialise pipeline hook")
		}
	}
	err = gi.prepareHooks(pipe.hooks)
	if err != nil {
		return nil, err
	}

	return pipe, nil
}

// Roots returns the pipeline roots.
func (p *Pipeline) Roots() []Node {
	return append([]Node(nil), p.roots...)
}

// NodeInfo returns the static description of a node of the pipeline.
func (p *Pipeline) NodeInfo(node Node) (*model.NodeInfo, bool) {
	info, ok := p.infos[node]

	return info, ok
}

// Run runs the pipeline with a fresh context and the given positional arguments.
func (p *Pipeline) Run(ctx context.Context, args ...any) (any, error) {
	return p.RunInput(ctx, nil, Args(args...))
}

// RunInput runs every root concurrently with the same input against pc.
// A nil pc is replaced by a fresh context; passing one allows staged runs sharing outputs.
//
// With a single root its result is returned directly, otherwise the Results of every root in
// declaration order. The first root failure cancels the others and is returned immediately.
func (p *Pipeline) RunInput(ctx context.Context, pc *PipelineContext, in Input) (any, error) {
	if pc == nil {
		pc = NewPipelineContext()
	}
	runID := uuid.NewString()

	ctx, span := tracer.Start(ctx, "pipeline "+p.name,
		trace.WithAttributes(
			attribute.String("taskflow.pipeline", p.name),
			attribute.String("taskflow.run_id", runID),
			attribute.Int("taskflow.roots", len(p.roots)),
		),
	)
	defer span.End()

	dCtx, cancel := context.WithCancel(withRun(ctx, &run{id: runID, pipeline: p}))
	defer cancel()

	start := time.Now()
	p.logger.Info("pipeline started",
		slog.String("pipeline", p.name),
		slog.String("run_id", runID),
		slog.Int("roots", len(p.roots)),
	)

	results := make(Results, len(p.roots))
	errcList := &errorChans{}
	for i, root := range p.roots {
		errC := make(chan error, 1)
		errcList.add(newErrorChan("root "+strconv.Itoa(i)+" "+root.Name(), errC))

		go func() {
			defer close(errC)
			res, err := root.Invoke(dCtx, pc, in)
			if err != nil {
				errC <- err

				return
			}
			results[i] = res
		}()
	}

	err := waitForRoots(errcList.list...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("pipeline failed",
			slog.String("pipeline", p.name),
			slog.String("run_id", runID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)

		return nil, err
	}

	err = p.finishRun()
	if err != nil {
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	p.logger.Info("pipeline completed",
		slog.String("pipeline", p.name),
		slog.String("run_id", runID),
		slog.Duration("duration", time.Since(start)),
	)

	if len(results) == 1 {
		return results[0], nil
	}

	return results, nil
}

// waitForRoots waits for results from all error channels.
// It returns early on the first error.
func waitForRoots(errs ...*errorChan) error {
	errc := mergeErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) finishRun() error {
	for _, hook := range p.hooks {
		err := hook.Finish()
		if err != nil {
			return errors.Wrap(err, "unable to finish pipeline hook")
		}
	}

	return nil
}

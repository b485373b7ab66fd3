package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("github.com/askiada/go-taskflow/pkg/pipeline")

// run is the state of one pipeline invocation, carried by the context.Context given to nodes.
type run struct {
	id       string
	pipeline *Pipeline
}

type runKey struct{}

func withRun(ctx context.Context, r *run) context.Context {
	return context.WithValue(ctx, runKey{}, r)
}

func runFrom(ctx context.Context) *run {
	r, _ := ctx.Value(runKey{}).(*run)

	return r
}

// RunID returns the identifier of the pipeline run ctx belongs to, or "" outside of a run.
func RunID(ctx context.Context) string {
	return runIDFrom(ctx)
}

func runIDFrom(ctx context.Context) string {
	if r := runFrom(ctx); r != nil {
		return r.id
	}

	return ""
}

// observe reports a task or slot output to the logger and the hooks of the current run.
// Nodes invoked outside of a pipeline run report nothing.
func observe(ctx context.Context, node Node, elapsed time.Duration, nodeErr error) error {
	r := runFrom(ctx)
	if r == nil {
		return nil
	}
	p := r.pipeline
	info, ok := p.infos[node]
	if !ok {
		return nil
	}

	if nodeErr != nil {
		p.logger.Error("node failed",
			slog.String("run_id", r.id),
			slog.String("node", info.ID),
			slog.Duration("duration", elapsed),
			slog.String("error", nodeErr.Error()),
		)
	} else {
		p.logger.Debug("node completed",
			slog.String("run_id", r.id),
			slog.String("node", info.ID),
			slog.String("type", string(info.Type)),
			slog.Duration("duration", elapsed),
		)
	}

	for _, hook := range p.hooks {
		if err := hook.OnNodeOutput(info, elapsed, nodeErr); err != nil {
			return errors.Wrapf(err, "unable to run node output hook for %s", info.ID)
		}
	}

	return nil
}

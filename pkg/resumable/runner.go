// Package resumable runs a flat list of named steps over one data mapping, checkpointing after
// every completed step so that a later run with the same identifier skips them.
package resumable

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-taskflow/pkg/checkpoint"
)

var tracer = otel.Tracer("github.com/askiada/go-taskflow/pkg/resumable")

// Runner executes step lists against a checkpoint strategy.
type Runner struct {
	strategy checkpoint.Strategy
	logger   *slog.Logger
}

type RunnerOption func(r *Runner)

// RunnerLogger sets the logger. slog.Default() is used otherwise.
func RunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner returns a runner saving into strategy. A nil strategy disables checkpoints.
func NewRunner(strategy checkpoint.Strategy, opts ...RunnerOption) *Runner {
	r := &Runner{strategy: strategy, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Execute runs steps in order over data and returns the final data.
//
// When a checkpoint exists under id it replaces data, and every step it records as completed is
// skipped. After each successful step its name is appended to the completed steps and the data
// is saved under id. A failing step returns a *StepError and nothing is saved.
func (r *Runner) Execute(ctx context.Context, id string, steps []Step, data checkpoint.Data) (checkpoint.Data, error) {
	ctx, span := tracer.Start(ctx, "resumable "+id,
		trace.WithAttributes(
			attribute.String("taskflow.checkpoint_id", id),
			attribute.Int("taskflow.steps", len(steps)),
		),
	)
	defer span.End()

	data, err := r.restore(ctx, id, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	for _, step := range steps {
		if data.IsCompleted(step.name) {
			r.logger.Info("step skipped",
				slog.String("checkpoint_id", id),
				slog.String("step", step.name),
			)

			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "before step %s", step.name)
		}

		start := time.Now()
		out, err := r.runStep(ctx, step, data)
		if err != nil {
			r.logger.Error("step failed",
				slog.String("checkpoint_id", id),
				slog.String("step", step.name),
				slog.Duration("duration", time.Since(start)),
				slog.String("error", err.Error()),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return nil, err
		}

		// The ledger belongs to the runner, whatever the step returned.
		out[checkpoint.CompletedStepsKey] = data.CompletedSteps()
		out.MarkCompleted(step.name)
		data = out
		err = r.save(ctx, id, data)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())

			return nil, errors.Wrapf(err, "unable to checkpoint step %s", step.name)
		}
		r.logger.Info("step completed",
			slog.String("checkpoint_id", id),
			slog.String("step", step.name),
			slog.Duration("duration", time.Since(start)),
		)
	}
	span.SetStatus(codes.Ok, "")

	return data, nil
}

func (r *Runner) restore(ctx context.Context, id string, data checkpoint.Data) (checkpoint.Data, error) {
	if r.strategy != nil {
		restored, ok, err := r.strategy.Restore(ctx, id)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to restore checkpoint %s", id)
		}
		if ok {
			r.logger.Info("checkpoint restored",
				slog.String("checkpoint_id", id),
				slog.Any("completed_steps", restored.CompletedSteps()),
			)

			return restored, nil
		}
	}
	if data == nil {
		return checkpoint.Data{}, nil
	}

	return data.Clone(), nil
}

func (r *Runner) save(ctx context.Context, id string, data checkpoint.Data) error {
	if r.strategy == nil {
		return nil
	}

	return r.strategy.Save(ctx, id, data)
}

func (r *Runner) runStep(ctx context.Context, step Step, data checkpoint.Data) (checkpoint.Data, error) {
	ctx, span := tracer.Start(ctx, "step "+step.name,
		trace.WithAttributes(
			attribute.String("taskflow.step", step.name),
			attribute.Bool("taskflow.concurrent", step.concurrent),
		),
	)
	defer span.End()

	var (
		out checkpoint.Data
		err error
	)
	if step.concurrent {
		out, err = runConcurrent(ctx, step.members, data)
	} else {
		out, err = callMember(ctx, step.members[0], data.Clone())
	}
	if err != nil {
		err = &StepError{Step: step.name, Cause: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	return out, nil
}

// runConcurrent runs every member on its own copy of data. The keys each member added or changed
// are merged in declaration order, so a later member wins a collision.
func runConcurrent(ctx context.Context, members []member, data checkpoint.Data) (checkpoint.Data, error) {
	results := make([]checkpoint.Data, len(members))
	errGrp, dCtx := errgroup.WithContext(ctx)
	for i, m := range members {
		errGrp.Go(func() error {
			out, err := callMember(dCtx, m, data.Clone())
			if err != nil {
				return errors.Wrap(err, m.name)
			}
			results[i] = out

			return nil
		})
	}
	if err := errGrp.Wait(); err != nil {
		return nil, err
	}

	merged := data.Clone()
	for _, res := range results {
		for key, value := range res {
			if key == checkpoint.CompletedStepsKey {
				continue
			}
			if before, ok := data[key]; ok && reflect.DeepEqual(before, value) {
				continue
			}
			merged[key] = value
		}
	}

	return merged, nil
}

func callMember(ctx context.Context, m member, in checkpoint.Data) (out checkpoint.Data, err error) {
	if m.fn == nil {
		return nil, ErrNilStep
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	out, err = m.fn(ctx, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = in
	}

	return out, nil
}

package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/askiada/go-taskflow/pkg/pipeline/model"
)

// TaskFunc is the body of a leaf task.
type TaskFunc func(ctx context.Context, in Input) (any, error)

// ContextTaskFunc is the body of a leaf task that needs the shared pipeline context.
type ContextTaskFunc func(ctx context.Context, pc *PipelineContext, in Input) (any, error)

// Task is a leaf node wrapping one unit of work.
type Task struct {
	name string
	body ContextTaskFunc
}

type TaskOption func(t *Task)

// TaskName overrides the default task name.
func TaskName(name string) TaskOption {
	return func(t *Task) {
		t.name = name
	}
}

func newTask(defaultName string, body ContextTaskFunc, opts ...TaskOption) *Task {
	t := &Task{name: defaultName, body: body}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// NewTask wraps fn in a task named after fn.
func NewTask(fn TaskFunc, opts ...TaskOption) *Task {
	return newTask(funcName(fn), func(ctx context.Context, _ *PipelineContext, in Input) (any, error) {
		return fn(ctx, in)
	}, opts...)
}

// NewContextTask wraps fn in a task receiving the shared pipeline context.
func NewContextTask(fn ContextTaskFunc, opts ...TaskOption) *Task {
	return newTask(funcName(fn), fn, opts...)
}

// Task0 wraps a function taking no argument. Positional inputs are ignored.
func Task0[R any](fn func(ctx context.Context) (R, error), opts ...TaskOption) *Task {
	return newTask(funcName(fn), func(ctx context.Context, _ *PipelineContext, _ Input) (any, error) {
		return fn(ctx)
	}, opts...)
}

// Task1 wraps a function taking one typed argument.
func Task1[A, R any](fn func(ctx context.Context, a A) (R, error), opts ...TaskOption) *Task {
	return newTask(funcName(fn), func(ctx context.Context, _ *PipelineContext, in Input) (any, error) {
		args, err := bind(in, 1)
		if err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}

		return fn(ctx, a)
	}, opts...)
}

// Task2 wraps a function taking two typed arguments. A single Results input of length two,
// as returned by a parallel group, is spread over both parameters.
func Task2[A, B, R any](fn func(ctx context.Context, a A, b B) (R, error), opts ...TaskOption) *Task {
	return newTask(funcName(fn), func(ctx context.Context, _ *PipelineContext, in Input) (any, error) {
		args, err := bind(in, 2)
		if err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}

		return fn(ctx, a, b)
	}, opts...)
}

// Task3 is Task2 with three typed arguments.
func Task3[A, B, C, R any](fn func(ctx context.Context, a A, b B, c C) (R, error), opts ...TaskOption) *Task {
	return newTask(funcName(fn), func(ctx context.Context, _ *PipelineContext, in Input) (any, error) {
		args, err := bind(in, 3)
		if err != nil {
			return nil, err
		}
		a, err := arg[A](args, 0)
		if err != nil {
			return nil, err
		}
		b, err := arg[B](args, 1)
		if err != nil {
			return nil, err
		}
		c, err := arg[C](args, 2)
		if err != nil {
			return nil, err
		}

		return fn(ctx, a, b, c)
	}, opts...)
}

func (t *Task) Name() string { return t.name }

func (t *Task) Type() model.NodeType { return model.TaskNodeType }

func (t *Task) Children() []Node { return nil }

// Invoke runs the body inline. Any error or panic from the body is returned as a
// *TaskExecutionError carrying the task name.
func (t *Task) Invoke(ctx context.Context, pc *PipelineContext, in Input) (out any, err error) {
	ctx, span := tracer.Start(ctx, "task "+t.name,
		trace.WithAttributes(
			attribute.String("taskflow.node", t.name),
			attribute.String("taskflow.run_id", runIDFrom(ctx)),
		),
	)
	defer span.End()

	start := time.Now()
	out, err = t.call(ctx, pc, in)
	if err != nil {
		err = &TaskExecutionError{Task: t.name, Cause: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	hookErr := observe(ctx, t, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	if hookErr != nil {
		return nil, hookErr
	}

	return out, nil
}

func (t *Task) call(ctx context.Context, pc *PipelineContext, in Input) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return t.body(ctx, pc, in)
}

// Then chains next after t.
func (t *Task) Then(next Node) *TaskGroup { return Then(t, next) }

// With runs other alongside t.
func (t *Task) With(other Node) *TaskGroup { return With(t, other) }

func (t *Task) String() string {
	return fmt.Sprintf("Task(%s)", t.name)
}

// funcName returns the identifier of fn without its package path.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "task"
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "task"
	}
	name := rf.Name()
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	if idx := strings.Index(name, "."); idx >= 0 {
		name = name[idx+1:]
	}

	return name
}

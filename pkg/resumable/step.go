package resumable

import (
	"context"
	"reflect"
	"runtime"
	"strings"

	"github.com/askiada/go-taskflow/pkg/checkpoint"
)

// StepFunc is the body of a step. It receives its own copy of the data and returns the data the
// next step works on. A nil result keeps the copy it received, including in-place changes.
type StepFunc func(ctx context.Context, data checkpoint.Data) (checkpoint.Data, error)

// Step is either a single function or a group of functions running concurrently.
type Step struct {
	name    string
	members []member
	// concurrent is set for groups, even with a single member.
	concurrent bool
}

type member struct {
	name string
	fn   StepFunc
}

type StepOption func(s *Step)

// StepName overrides the name recorded in the completed steps.
func StepName(name string) StepOption {
	return func(s *Step) {
		s.name = name
	}
}

// Single returns a step calling fn. It is named after fn by default.
func Single(fn StepFunc, opts ...StepOption) Step {
	name := funcName(fn)
	step := Step{name: name, members: []member{{name: name, fn: fn}}}
	for _, opt := range opts {
		opt(&step)
	}

	return step
}

// Concurrent returns a step running every fn at once, each on its own copy of the data. The
// group is recorded as a whole, by default under "(a | b)" for members a and b.
//
// The copy is shallow: members must replace nested maps and slices rather than mutate them in place.
func Concurrent(fns []StepFunc, opts ...StepOption) Step {
	step := Step{concurrent: true, members: make([]member, len(fns))}
	names := make([]string, len(fns))
	for i, fn := range fns {
		names[i] = funcName(fn)
		step.members[i] = member{name: names[i], fn: fn}
	}
	step.name = "(" + strings.Join(names, " | ") + ")"
	for _, opt := range opts {
		opt(&step)
	}

	return step
}

// Name returns the name recorded once the step completes.
func (s Step) Name() string {
	return s.name
}

func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "step"
	}
	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return "step"
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
